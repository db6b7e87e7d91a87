package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               { f.stopped.Store(true) }

// tick delivers one tick and waits until the task consumed it.
func (f *fakeTicker) tick(t *testing.T, task *Task) {
	t.Helper()
	before := task.Runs()
	f.ch <- time.Now()
	require.Eventually(t, func() bool { return task.Runs() == before+1 }, time.Second, time.Millisecond)
}

func newFake() (*fakeTicker, TickerFactory) {
	f := &fakeTicker{ch: make(chan time.Time)}

	return f, func(time.Duration) Ticker { return f }
}

func TestTaskRunsImmediatelyAndOnTicks(t *testing.T) {
	var calls atomic.Int32
	fake, factory := newFake()
	task := NewTask(5*time.Second, func() { calls.Add(1) }, WithTicker(factory))

	require.NoError(t, task.Start(context.Background()))
	assert.Equal(t, int32(1), calls.Load(), "startup run")
	assert.True(t, task.Running())

	fake.tick(t, task)
	fake.tick(t, task)
	assert.Equal(t, int32(3), calls.Load())

	task.Stop()
	assert.False(t, task.Running())
	assert.True(t, fake.stopped.Load())
}

func TestTaskWithoutImmediateRun(t *testing.T) {
	var calls atomic.Int32
	fake, factory := newFake()
	task := NewTask(time.Second, func() { calls.Add(1) }, WithTicker(factory), WithoutImmediateRun())

	require.NoError(t, task.Start(context.Background()))
	assert.Equal(t, int32(0), calls.Load())

	fake.tick(t, task)
	assert.Equal(t, int32(1), calls.Load())
	task.Stop()
}

func TestTaskDoubleStart(t *testing.T) {
	_, factory := newFake()
	task := NewTask(time.Second, func() {}, WithTicker(factory))

	require.NoError(t, task.Start(context.Background()))
	assert.ErrorIs(t, task.Start(context.Background()), ErrAlreadyRunning)

	task.Stop()
	task.Stop()
}

func TestTaskRestart(t *testing.T) {
	var calls atomic.Int32
	_, factory := newFake()
	task := NewTask(time.Second, func() { calls.Add(1) }, WithTicker(factory))

	require.NoError(t, task.Start(context.Background()))
	task.Stop()
	require.NoError(t, task.Start(context.Background()))
	task.Stop()

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, uint64(2), task.Runs())
}

func TestTaskStopsOnContextCancel(t *testing.T) {
	fake, factory := newFake()
	task := NewTask(time.Second, func() {}, WithTicker(factory))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, task.Start(ctx))
	cancel()

	require.Eventually(t, func() bool { return !task.Running() }, time.Second, time.Millisecond)
	require.Eventually(t, fake.stopped.Load, time.Second, time.Millisecond)
	task.Stop()
}

func TestTaskRealTicker(t *testing.T) {
	var calls atomic.Int32
	task := NewTask(10*time.Millisecond, func() { calls.Add(1) })

	require.NoError(t, task.Start(context.Background()))
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	task.Stop()

	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "no runs after Stop")
}
