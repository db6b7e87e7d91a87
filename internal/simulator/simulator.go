package simulator

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/egregors/hkdash/internal/display"
	"github.com/egregors/hkdash/internal/schedule"
	"github.com/egregors/hkdash/internal/sensors"
	"github.com/egregors/hkdash/log"
)

const DefaultInterval = 5 * time.Second

type ClimateSensor interface {
	CurrentTemperature() (float64, error)
	CurrentHumidity() (float64, error)
}

// Listener gets every fresh reading after it was written to the display.
type Listener func(r sensors.Reading)

// ErrorListener gets every failed sensor read.
type ErrorListener func(err error)

type Opts struct {
	Sensor      ClimateSensor
	Temperature display.Texter
	Humidity    display.Texter
	Interval    time.Duration

	// TaskOpts are passed to the underlying schedule.Task.
	TaskOpts []schedule.Option
}

// Simulator writes a fresh climate reading to two text targets,
// once on Start and then every Interval.
type Simulator struct {
	sensor      ClimateSensor
	temperature display.Texter
	humidity    display.Texter
	task        *schedule.Task

	mu        sync.RWMutex
	last      sensors.Reading
	lastErr   error
	listeners []Listener
	onError   []ErrorListener
}

func New(opts Opts) *Simulator {
	if opts.Sensor == nil {
		opts.Sensor = sensors.NewRandom()
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}

	s := &Simulator{
		sensor:      opts.Sensor,
		temperature: opts.Temperature,
		humidity:    opts.Humidity,
	}
	s.task = schedule.NewTask(opts.Interval, func() { _ = s.UpdateSensorData() }, opts.TaskOpts...)

	return s
}

// Subscribe adds a listener. Not safe to call concurrently with Start.
func (s *Simulator) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners = append(s.listeners, l)
}

// OnError adds a listener for failed updates. Not safe to call concurrently with Start.
func (s *Simulator) OnError(l ErrorListener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onError = append(s.onError, l)
}

// UpdateSensorData samples the sensor and writes "22.3°C" / "61%" to the targets.
// On a sensor error the targets keep their previous text.
func (s *Simulator) UpdateSensorData() error {
	var t, h float64

	g := new(errgroup.Group)
	g.Go(func() (err error) {
		t, err = s.sensor.CurrentTemperature()
		return err
	})
	g.Go(func() (err error) {
		h, err = s.sensor.CurrentHumidity()
		return err
	})
	if err := g.Wait(); err != nil {
		log.Erro.Printf("can't get sensor data: %s", err.Error())
		s.mu.Lock()
		s.lastErr = err
		onError := s.onError
		s.mu.Unlock()

		for _, l := range onError {
			l(err)
		}

		return err
	}

	r := sensors.Reading{
		Temperature: math.Round(t*10) / 10,
		Humidity:    int(math.Round(h)),
		At:          time.Now(),
	}

	s.temperature.SetText(r.TemperatureText())
	s.humidity.SetText(r.HumidityText())
	log.Debg.Printf("sensor update: %s %s", r.TemperatureText(), r.HumidityText())

	s.mu.Lock()
	s.last, s.lastErr = r, nil
	listeners := s.listeners
	s.mu.Unlock()

	for _, l := range listeners {
		l(r)
	}

	return nil
}

func (s *Simulator) Start(ctx context.Context) error {
	log.Info.Printf("start sensor simulator, update every %s", s.task.Interval())

	return s.task.Start(ctx)
}

func (s *Simulator) Stop() {
	s.task.Stop()
}

func (s *Simulator) Running() bool {
	return s.task.Running()
}

// Last is the latest successful reading; ok is false before the first one.
func (s *Simulator) Last() (r sensors.Reading, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.last, !s.last.At.IsZero()
}

// Err is the error of the latest update, nil when it succeeded.
func (s *Simulator) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastErr
}
