package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerOnOff(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewLogger(buf, "TEST ")

	l.Println("first")
	l.Off()
	l.Println("muted")
	l.On()
	l.Println("second")

	out := buf.String()
	assert.Contains(t, out, "first")
	assert.NotContains(t, out, "muted")
	assert.Contains(t, out, "second")
}

func TestLoggerSetOutputSurvivesOn(t *testing.T) {
	l := NewLogger(&bytes.Buffer{}, "TEST ")
	buf := &bytes.Buffer{}

	l.SetOutput(buf)
	l.Off()
	l.On()
	l.Println("hello")

	assert.Contains(t, buf.String(), "hello")
}

func TestNoColor(t *testing.T) {
	NoColor()

	assert.Equal(t, "INFO ", Info.Prefix())
	assert.Equal(t, "WARN ", Warn.Prefix())
	assert.Equal(t, "ERRO ", Erro.Prefix())
	assert.Equal(t, "DEBG ", Debg.Prefix())
}
