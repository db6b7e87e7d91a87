package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/egregors/hkdash/log"
)

const (
	cleanerWorkerSleep = 30 * time.Second
)

type Option func(m *InMem)

func WithRetention(dur time.Duration) Option {
	return func(m *InMem) {
		m.retentionDuration = dur
	}
}

// WithClock replaces time.Now, used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *InMem) {
		m.now = now
	}
}

type Value struct {
	T time.Time
	V float64
}

// InMem keeps a gauge timeline per key for the text dashboard.
// Nothing survives a restart.
type InMem struct {
	mu            sync.RWMutex
	gaugeTimeLine map[string][]Value

	retentionDuration time.Duration
	now               func() time.Time

	stop chan struct{}
	once sync.Once
}

func New(opts ...Option) *InMem {
	m := &InMem{
		gaugeTimeLine: make(map[string][]Value),
		now:           time.Now,
		stop:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	go m.cleaner()

	return m
}

func (m *InMem) Gauge(key string, val float64) {
	log.Debg.Printf("gauge %s: %v", key, val)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.gaugeTimeLine[key] = append(m.gaugeTimeLine[key], Value{T: m.now(), V: val})
}

// Series returns the raw values of key recorded during the last dur, oldest first.
func (m *InMem) Series(key string, dur time.Duration) []Value {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start, end := m.now().Add(-dur), m.now()
	var out []Value
	for _, v := range m.gaugeTimeLine[key] {
		if v.T.After(start) && !v.T.After(end) {
			out = append(out, v)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].T.Before(out[j].T)
	})

	return out
}

// Avg returns hourly averages of key for the last dur, oldest hour first.
func (m *InMem) Avg(key string, dur time.Duration) []Value {
	durData := m.Series(key, dur)
	if len(durData) == 0 {
		return nil
	}

	hAvg := make(map[time.Time][]float64)
	for _, v := range durData {
		t := v.T.Truncate(time.Hour)
		hAvg[t] = append(hAvg[t], v.V)
	}

	avg := make([]Value, 0, len(hAvg))
	for k, v := range hAvg {
		sum := 0.0
		for _, vv := range v {
			sum += vv
		}

		avg = append(avg, Value{T: k, V: sum / (float64(len(v)))})
	}

	sort.Slice(avg, func(i, j int) bool {
		return avg[i].T.Before(avg[j].T)
	})

	return avg
}

func (m *InMem) Close() {
	m.once.Do(func() { close(m.stop) })
}

func (m *InMem) cleaner() {
	if m.retentionDuration == 0 {
		log.Info.Println("metrics retention isn't set up")

		return
	}

	for {
		select {
		case <-m.stop:
			return
		case <-time.After(cleanerWorkerSleep):
			m.cleanup()
		}
	}
}

func (m *InMem) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.retentionDuration)
	var totalVs, totalNewVs int
	for k, v := range m.gaugeTimeLine {
		var newV []Value
		for _, vv := range v {
			if vv.T.After(cutoff) {
				newV = append(newV, vv)
			}
		}
		totalVs += len(v)
		totalNewVs += len(newV)
		m.gaugeTimeLine[k] = newV
	}

	if diff := totalVs - totalNewVs; diff != 0 {
		log.Debg.Printf("cleaner removed %d gauges by retention policy", diff)
	}
}
