package log

import (
	"io"
	"log"
	"os"

	"github.com/fatih/color"
)

var (
	Info = NewLogger(os.Stdout, color.New(color.FgGreen).Sprint("INFO "))
	Warn = NewLogger(os.Stdout, color.New(color.FgYellow).Sprint("WARN "))
	Erro = NewLogger(os.Stderr, color.New(color.FgRed).Sprint("ERRO "))
	Debg = NewLogger(os.Stdout, color.New(color.FgCyan).Sprint("DEBG "))
)

type Logger struct {
	*log.Logger
	out io.Writer
}

func NewLogger(out io.Writer, prefix string) *Logger {
	return &Logger{
		Logger: log.New(out, prefix, log.LstdFlags|log.Lshortfile),
		out:    out,
	}
}

func (l *Logger) On() {
	l.Logger.SetOutput(l.out)
}

func (l *Logger) Off() {
	l.Logger.SetOutput(io.Discard)
}

// SetOutput redirects the logger and makes w the target of subsequent On calls.
func (l *Logger) SetOutput(w io.Writer) {
	l.out = w
	l.Logger.SetOutput(w)
}

// NoColor disables ANSI prefixes, e.g. when logs are shipped to a file.
func NoColor() {
	color.NoColor = true
	for l, p := range map[*Logger]string{Info: "INFO ", Warn: "WARN ", Erro: "ERRO ", Debg: "DEBG "} {
		l.SetPrefix(p)
	}
}
