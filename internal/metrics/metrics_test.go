package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestInMemAvgHourly(t *testing.T) {
	c := &clock{t: time.Date(2024, 11, 6, 14, 10, 0, 0, time.UTC)}
	m := New(WithClock(c.now))
	defer m.Close()

	m.Gauge("t", 20)
	c.t = c.t.Add(10 * time.Minute)
	m.Gauge("t", 22)
	c.t = c.t.Add(time.Hour)
	m.Gauge("t", 25)

	avg := m.Avg("t", 24*time.Hour)
	require.Len(t, avg, 2)
	assert.Equal(t, time.Date(2024, 11, 6, 14, 0, 0, 0, time.UTC), avg[0].T)
	assert.InDelta(t, 21.0, avg[0].V, 1e-9)
	assert.InDelta(t, 25.0, avg[1].V, 1e-9)

	assert.Nil(t, m.Avg("missing", time.Hour))
}

func TestInMemSeriesWindow(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := New(WithClock(c.now))
	defer m.Close()

	m.Gauge("h", 50)
	c.t = c.t.Add(2 * time.Hour)
	m.Gauge("h", 60)

	s := m.Series("h", time.Hour)
	require.Len(t, s, 1)
	assert.Equal(t, 60.0, s[0].V)
}

func TestInMemCleanup(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := New(WithClock(c.now), WithRetention(time.Minute))
	defer m.Close()

	m.Gauge("t", 1)
	c.t = c.t.Add(2 * time.Minute)
	m.Gauge("t", 2)
	m.cleanup()

	s := m.Series("t", time.Hour)
	require.Len(t, s, 1)
	assert.Equal(t, 2.0, s[0].V)
}

func TestPromObserve(t *testing.T) {
	p := NewProm()

	p.ObserveReading(22.3, 61)
	p.ObserveReading(21.0, 55)
	p.InitDevice("fan")
	p.ObserveDevice("light", true)
	p.ObserveDevice("light", false)
	p.ObserveDevice("light", true)

	assert.Equal(t, 21.0, testutil.ToFloat64(p.temperature))
	assert.Equal(t, 55.0, testutil.ToFloat64(p.humidity))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.sensorUpdates))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.deviceOn.WithLabelValues("light")))
	assert.Equal(t, 0.0, testutil.ToFloat64(p.deviceOn.WithLabelValues("fan")))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.deviceToggles.WithLabelValues("light", "on")))
}

func TestPromRegistry(t *testing.T) {
	p := NewProm()
	p.InitDevice("light")
	p.InitDevice("fan")
	p.ClientConnected()

	n, err := testutil.GatherAndCount(p.Registry(), "hkdash_device_on", "hkdash_websocket_clients")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	p.ClientDisconnected()
	assert.Equal(t, 0.0, testutil.ToFloat64(p.wsClients))
}

func TestPromHandler(t *testing.T) {
	p := NewProm()
	p.ObserveReading(23.4, 66)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(body, "hkdash_temperature_celsius 23.4"), body)
	assert.Contains(t, body, "hkdash_humidity_percent 66")
}
