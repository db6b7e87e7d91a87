package srv

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/egregors/hkdash/internal/api"
	"github.com/egregors/hkdash/internal/display"
	"github.com/egregors/hkdash/internal/metrics"
	"github.com/egregors/hkdash/internal/schedule"
	"github.com/egregors/hkdash/internal/sensors"
	"github.com/egregors/hkdash/internal/simulator"
	"github.com/egregors/hkdash/internal/toggle"
	"github.com/egregors/hkdash/log"
)

const (
	temperatureKey = "current_temperature"
	humidityKey    = "current_humidity"

	shutdownTimeout = 5 * time.Second
	notifyTimeout   = 10 * time.Second
)

type SensorStatus int

const (
	OFFLINE SensorStatus = iota
	ONLINE
)

type HapServer interface {
	SetCurrentTemperature(t float64)
	SetCurrentHumidity(h float64)
	SetDeviceOn(id string, on bool)
	OnRemoteUpdate(fn func(id string, on bool))

	ListenAndServe(ctx context.Context) error
}

type Metrics interface {
	Gauge(key string, val float64)
	Avg(key string, dur time.Duration) []metrics.Value
	Series(key string, dur time.Duration) []metrics.Value
}

type Publisher interface {
	PublishReading(r sensors.Reading) error
	PublishDevice(id, name string, on bool) error
}

type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

type Opts struct {
	Addr     string
	Climate  simulator.ClimateSensor
	Interval time.Duration
	Lang     string
	Labels   toggle.Labels
	Devices  []toggle.Device

	HapSrv    HapServer
	Metrics   Metrics
	Prom      *metrics.Prom
	Publisher Publisher
	Notifier  Notifier

	// TaskOpts tune the sensor task, used by tests.
	TaskOpts []schedule.Option
}

type Server struct {
	addr    string
	lang    string
	webSrv  *http.Server
	hkSrv   HapServer
	metrics Metrics
	prom    *metrics.Prom
	pub     Publisher
	notify  Notifier

	board   *display.Board
	devices *toggle.Registry
	sim     *simulator.Simulator

	sensorFailing atomic.Bool

	statusMu     sync.RWMutex
	sensorStatus SensorStatus
	sensorErr    error
	startTime    time.Time
}

func New(opts Opts) (*Server, error) {
	if opts.HapSrv == nil || opts.Metrics == nil || opts.Publisher == nil || opts.Notifier == nil {
		return nil, errors.New("HAP server, metrics, publisher and notifier are required")
	}
	if opts.Labels == (toggle.Labels{}) {
		opts.Labels = toggle.English
	}
	if len(opts.Devices) == 0 {
		opts.Devices = toggle.DefaultDevices("en")
	}

	s := &Server{
		addr:      opts.Addr,
		lang:      opts.Lang,
		hkSrv:     opts.HapSrv,
		metrics:   opts.Metrics,
		prom:      opts.Prom,
		pub:       opts.Publisher,
		notify:    opts.Notifier,
		board:     display.NewDashboard(),
		startTime: time.Now(),
	}

	devices, err := toggle.Setup(s.board, opts.Devices,
		toggle.WithLabels(opts.Labels),
		toggle.WithOnChange(s.onDeviceChange),
	)
	if err != nil {
		return nil, fmt.Errorf("can't set up device toggles: %w", err)
	}
	s.devices = devices

	s.sim = simulator.New(simulator.Opts{
		Sensor:      opts.Climate,
		Temperature: s.board.MustGet(display.TemperatureID),
		Humidity:    s.board.MustGet(display.HumidityID),
		Interval:    opts.Interval,
		TaskOpts:    opts.TaskOpts,
	})
	s.sim.Subscribe(s.onReading)
	s.sim.OnError(s.onSensorError)

	s.hkSrv.OnRemoteUpdate(s.onRemoteUpdate)

	if s.prom != nil {
		s.devices.Each(func(d toggle.Device, _ *toggle.Controller) {
			s.prom.InitDevice(d.ID)
		})
	}

	return s, nil
}

func (s *Server) Board() *display.Board     { return s.board }
func (s *Server) Devices() *toggle.Registry { return s.devices }
func (s *Server) Sim() *simulator.Simulator { return s.sim }

// Handler builds the web handler: dashboard page, stream, REST API and metrics.
func (s *Server) Handler() (http.Handler, error) {
	deps := api.Deps{
		Board:   s.board,
		Devices: s.devices,
		Sensor:  s.sim,
		Lang:    s.lang,
		Uptime:  func() time.Duration { return time.Since(s.startTime) },
		Text:    s.textPage,
	}
	if s.prom != nil {
		deps.Metrics = s.prom.Handler()
		deps.Clients = s.prom
	}

	return api.NewRouter(deps)
}

func (s *Server) Run(ctx context.Context) error {
	s.startTime = time.Now()

	handler, err := s.Handler()
	if err != nil {
		return err
	}

	if err := s.sim.Start(ctx); err != nil {
		return fmt.Errorf("can't start sensor simulator: %w", err)
	}
	defer s.sim.Stop()

	s.webSrv = &http.Server{
		Addr:              s.addr,
		Handler:           handler,
		ReadHeaderTimeout: 1 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// go web server
	g.Go(func() error {
		log.Info.Printf("start web server on http://localhost%s", s.addr)
		if err := s.webSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return s.webSrv.Shutdown(shutdownCtx)
	})
	// go hap server
	g.Go(func() error {
		log.Info.Println("start HAP server")
		return s.hkSrv.ListenAndServe(ctx)
	})

	return g.Wait()
}

func (s *Server) onReading(r sensors.Reading) {
	if s.sensorFailing.CompareAndSwap(true, false) {
		s.sendNotification("🇭🇰 Sensor OK", "Sensor is back online")
	}

	s.metrics.Gauge(temperatureKey, r.Temperature)
	s.metrics.Gauge(humidityKey, float64(r.Humidity))
	if s.prom != nil {
		s.prom.ObserveReading(r.Temperature, r.Humidity)
	}

	s.hkSrv.SetCurrentTemperature(r.Temperature)
	s.hkSrv.SetCurrentHumidity(float64(r.Humidity))

	if err := s.pub.PublishReading(r); err != nil {
		log.Erro.Printf("can't publish reading: %s", err.Error())
	}
}

// onSensorError alerts once per outage; the next good reading clears it.
func (s *Server) onSensorError(err error) {
	if s.sensorFailing.CompareAndSwap(false, true) {
		s.sendNotification("🇭🇰 Sensor Error", fmt.Sprintf("Sensor error occurred: %s", err.Error()))
	}
}

func (s *Server) onDeviceChange(id, name string, on bool) {
	if s.prom != nil {
		s.prom.ObserveDevice(id, on)
	}
	s.hkSrv.SetDeviceOn(id, on)

	if err := s.pub.PublishDevice(id, name, on); err != nil {
		log.Erro.Printf("can't publish %s state: %s", id, err.Error())
	}

	state := "off"
	if on {
		state = "on"
	}
	s.sendNotification(name, fmt.Sprintf("%s turned %s", name, state))
}

func (s *Server) sendNotification(title, message string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.notify.Notify(ctx, title, message); err != nil {
			log.Erro.Printf("can't send notification: %s", err.Error())
		}
	}()
}

// onRemoteUpdate applies a HomeKit write as if the button was pressed.
func (s *Server) onRemoteUpdate(id string, on bool) {
	c, err := s.devices.Get(id)
	if err != nil {
		log.Warn.Printf("HomeKit update for %s: %s", id, err.Error())
		return
	}

	c.Set(on)
}
