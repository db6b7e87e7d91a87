package schedule

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var ErrAlreadyRunning = errors.New("task already running")

// Ticker abstracts time.Ticker so tests can drive ticks by hand.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFactory func(d time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func RealTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

type Option func(t *Task)

// WithTicker swaps the clock, used by tests.
func WithTicker(f TickerFactory) Option {
	return func(t *Task) {
		t.newTicker = f
	}
}

// WithoutImmediateRun skips the run that normally happens right on Start.
func WithoutImmediateRun() Option {
	return func(t *Task) {
		t.immediate = false
	}
}

// Task runs fn once on Start and then every interval until Stop or ctx cancel.
// Runs never overlap.
type Task struct {
	interval  time.Duration
	fn        func()
	newTicker TickerFactory
	immediate bool

	mu      sync.Mutex
	running bool
	quit    chan struct{}
	done    chan struct{}

	runMu sync.Mutex
	runs  atomic.Uint64
}

func NewTask(interval time.Duration, fn func(), opts ...Option) *Task {
	t := &Task{
		interval:  interval,
		fn:        fn,
		newTicker: RealTicker,
		immediate: true,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *Task) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()

		return ErrAlreadyRunning
	}

	t.running = true
	quit, done := make(chan struct{}), make(chan struct{})
	t.quit, t.done = quit, done
	t.mu.Unlock()

	if t.immediate {
		t.run()
	}

	go t.loop(ctx, t.newTicker(t.interval), quit, done)

	return nil
}

// Stop halts the task and waits for an in-flight run to finish. Safe to call twice.
func (t *Task) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()

		return
	}
	t.running = false
	close(t.quit)
	done := t.done
	t.mu.Unlock()

	<-done
}

func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.running
}

// Runs is the number of completed runs since creation.
func (t *Task) Runs() uint64 {
	return t.runs.Load()
}

func (t *Task) Interval() time.Duration { return t.interval }

func (t *Task) loop(ctx context.Context, ticker Ticker, quit, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			return
		case <-ctx.Done():
			t.mu.Lock()
			if t.quit == quit {
				t.running = false
			}
			t.mu.Unlock()

			return
		case <-ticker.C():
			select {
			case <-quit:
				return
			default:
			}
			t.run()
		}
	}
}

func (t *Task) run() {
	t.runMu.Lock()
	defer t.runMu.Unlock()

	t.fn()
	t.runs.Add(1)
}
