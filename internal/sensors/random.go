package sensors

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	DefaultTempMin = 20.0
	DefaultTempMax = 25.0
	DefaultHumiMin = 50
	DefaultHumiMax = 70
)

type Option func(r *Random)

// WithSeed makes the sequence of readings reproducible.
func WithSeed(seed uint64) Option {
	return func(r *Random) {
		//nolint:gosec // simulated data
		r.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

func WithTemperatureRange(lo, hi float64) Option {
	return func(r *Random) {
		r.tempMin, r.tempMax = lo, hi
	}
}

func WithHumidityRange(lo, hi int) Option {
	return func(r *Random) {
		r.humiMin, r.humiMax = lo, hi
	}
}

// Random is a simulated climate sensor. Temperature is uniform in its range
// rounded to one decimal, humidity is uniform in its range rounded to an integer.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand

	tempMin, tempMax float64
	humiMin, humiMax int
}

func NewRandom(opts ...Option) *Random {
	r := &Random{
		tempMin: DefaultTempMin,
		tempMax: DefaultTempMax,
		humiMin: DefaultHumiMin,
		humiMax: DefaultHumiMax,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.rng == nil {
		now := uint64(time.Now().UnixNano())
		//nolint:gosec // simulated data
		r.rng = rand.New(rand.NewPCG(now, now>>7))
	}

	return r
}

func (r *Random) CurrentTemperature() (float64, error) {
	t := r.tempMin + (r.tempMax-r.tempMin)*r.float()

	return math.Round(t*10) / 10, nil
}

func (r *Random) CurrentHumidity() (float64, error) {
	h := float64(r.humiMin) + float64(r.humiMax-r.humiMin)*r.float()

	return math.Round(h), nil
}

func (r *Random) float() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rng.Float64()
}
