package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hkdash"

// Prom exposes the dashboard state as Prometheus metrics on its own registry.
type Prom struct {
	reg *prometheus.Registry

	temperature   prometheus.Gauge
	humidity      prometheus.Gauge
	sensorUpdates prometheus.Counter
	deviceOn      *prometheus.GaugeVec
	deviceToggles *prometheus.CounterVec
	wsClients     prometheus.Gauge
}

func NewProm() *Prom {
	p := &Prom{
		reg: prometheus.NewRegistry(),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature_celsius",
			Help:      "Latest simulated temperature.",
		}),
		humidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "humidity_percent",
			Help:      "Latest simulated relative humidity.",
		}),
		sensorUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_updates_total",
			Help:      "Total sensor updates written to the dashboard.",
		}),
		deviceOn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_on",
			Help:      "Device state (1 on, 0 off).",
		}, []string{"device"}),
		deviceToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_toggles_total",
			Help:      "Total device state changes by resulting state.",
		}, []string{"device", "state"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected dashboard websocket clients.",
		}),
	}

	p.reg.MustRegister(
		p.temperature,
		p.humidity,
		p.sensorUpdates,
		p.deviceOn,
		p.deviceToggles,
		p.wsClients,
		collectors.NewGoCollector(),
	)

	return p
}

func (p *Prom) ObserveReading(temperature float64, humidity int) {
	p.temperature.Set(temperature)
	p.humidity.Set(float64(humidity))
	p.sensorUpdates.Inc()
}

func (p *Prom) ObserveDevice(device string, on bool) {
	state := "off"
	v := 0.0
	if on {
		state, v = "on", 1
	}

	p.deviceOn.WithLabelValues(device).Set(v)
	p.deviceToggles.WithLabelValues(device, state).Inc()
}

// InitDevice exports an off gauge for a device that was never toggled.
func (p *Prom) InitDevice(device string) {
	p.deviceOn.WithLabelValues(device).Set(0)
}

func (p *Prom) ClientConnected()    { p.wsClients.Inc() }
func (p *Prom) ClientDisconnected() { p.wsClients.Dec() }

func (p *Prom) Registry() *prometheus.Registry { return p.reg }

func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{Registry: p.reg})
}
