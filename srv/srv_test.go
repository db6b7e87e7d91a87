package srv

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egregors/hkdash/internal/display"
	"github.com/egregors/hkdash/internal/metrics"
	"github.com/egregors/hkdash/internal/schedule"
	"github.com/egregors/hkdash/internal/sensors"
	"github.com/egregors/hkdash/internal/toggle"
)

type fakeHap struct {
	mu      sync.Mutex
	t, h    float64
	devices map[string]bool
	remote  func(id string, on bool)
}

func (f *fakeHap) SetCurrentTemperature(t float64) { f.mu.Lock(); f.t = t; f.mu.Unlock() }
func (f *fakeHap) SetCurrentHumidity(h float64)    { f.mu.Lock(); f.h = h; f.mu.Unlock() }

func (f *fakeHap) SetDeviceOn(id string, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.devices == nil {
		f.devices = map[string]bool{}
	}
	f.devices[id] = on
}

func (f *fakeHap) OnRemoteUpdate(fn func(id string, on bool)) { f.remote = fn }

func (f *fakeHap) ListenAndServe(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (f *fakeHap) device(id string) (on, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	on, ok = f.devices[id]
	return on, ok
}

type fakePub struct {
	mu       sync.Mutex
	readings []sensors.Reading
	devices  []string
}

func (f *fakePub) PublishReading(r sensors.Reading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readings = append(f.readings, r)
	return nil
}

func (f *fakePub) PublishDevice(id, _ string, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	state := "off"
	if on {
		state = "on"
	}
	f.devices = append(f.devices, id+":"+state)
	return nil
}

type fakeNotifier struct {
	msgs chan string
}

func (f *fakeNotifier) Notify(_ context.Context, _, message string) error {
	f.msgs <- message
	return nil
}

type idleTicker struct{}

func (idleTicker) C() <-chan time.Time { return nil }
func (idleTicker) Stop()               {}

type fixture struct {
	srv    *Server
	hap    *fakeHap
	pub    *fakePub
	notify *fakeNotifier
	inmem  *metrics.InMem
}

type flakySensor struct {
	*sensors.Random
	fail atomic.Bool
}

func (f *flakySensor) CurrentTemperature() (float64, error) {
	if f.fail.Load() {
		return 0, errors.New("i2c timeout")
	}
	return f.Random.CurrentTemperature()
}

func newFixture(t *testing.T, mods ...func(o *Opts)) *fixture {
	t.Helper()

	f := &fixture{
		hap:    &fakeHap{},
		pub:    &fakePub{},
		notify: &fakeNotifier{msgs: make(chan string, 8)},
		inmem:  metrics.New(),
	}
	t.Cleanup(f.inmem.Close)

	opts := Opts{
		Climate:   sensors.NewRandom(sensors.WithSeed(7)),
		HapSrv:    f.hap,
		Metrics:   f.inmem,
		Prom:      metrics.NewProm(),
		Publisher: f.pub,
		Notifier:  f.notify,
		TaskOpts: []schedule.Option{
			schedule.WithTicker(func(time.Duration) schedule.Ticker { return idleTicker{} }),
		},
	}
	for _, mod := range mods {
		mod(&opts)
	}

	s, err := New(opts)
	require.NoError(t, err)
	f.srv = s

	return f
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Opts{})
	assert.Error(t, err)
}

func TestReadingFansOut(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.srv.Sim().UpdateSensorData())
	r, ok := f.srv.Sim().Last()
	require.True(t, ok)

	f.hap.mu.Lock()
	assert.Equal(t, r.Temperature, f.hap.t)
	assert.Equal(t, float64(r.Humidity), f.hap.h)
	f.hap.mu.Unlock()

	assert.Len(t, f.inmem.Series(temperatureKey, time.Hour), 1)
	assert.Len(t, f.inmem.Series(humidityKey, time.Hour), 1)
	assert.Len(t, f.pub.readings, 1)
	assert.Equal(t, r.TemperatureText(), f.srv.Board().MustGet(display.TemperatureID).Text())
}

func TestDeviceChangeFansOut(t *testing.T) {
	f := newFixture(t)

	c, err := f.srv.Devices().Get("light")
	require.NoError(t, err)
	c.Click()

	on, ok := f.hap.device("light")
	assert.True(t, ok)
	assert.True(t, on)
	assert.Equal(t, []string{"light:on"}, f.pub.devices)

	select {
	case msg := <-f.notify.msgs:
		assert.Equal(t, "Living room light turned on", msg)
	case <-time.After(time.Second):
		t.Fatal("no notification")
	}
}

func TestSharedDeviceNamesKeepIDs(t *testing.T) {
	f := newFixture(t, func(o *Opts) {
		o.Devices = []toggle.Device{
			{ID: "light", Name: "Lamp", ButtonID: display.LightButtonID, StatusID: display.LightStatusID},
			{ID: "fan", Name: "Lamp", ButtonID: display.FanButtonID, StatusID: display.FanStatusID},
		}
	})

	f.srv.Board().MustGet(display.FanButtonID).Click()

	assert.Equal(t, []string{"fan:on"}, f.pub.devices)
	on, ok := f.hap.device("fan")
	assert.True(t, ok)
	assert.True(t, on)
	_, ok = f.hap.device("light")
	assert.False(t, ok)
}

func (f *fixture) nextNotification(t *testing.T) string {
	t.Helper()
	select {
	case msg := <-f.notify.msgs:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no notification")
		return ""
	}
}

func TestSensorOutageNotifiesOnce(t *testing.T) {
	sensor := &flakySensor{Random: sensors.NewRandom(sensors.WithSeed(3))}
	f := newFixture(t, func(o *Opts) { o.Climate = sensor })

	sensor.fail.Store(true)
	for i := 0; i < 3; i++ {
		require.Error(t, f.srv.Sim().UpdateSensorData())
	}
	assert.Equal(t, "Sensor error occurred: i2c timeout", f.nextNotification(t))

	sensor.fail.Store(false)
	require.NoError(t, f.srv.Sim().UpdateSensorData())
	require.NoError(t, f.srv.Sim().UpdateSensorData())
	assert.Equal(t, "Sensor is back online", f.nextNotification(t))

	select {
	case msg := <-f.notify.msgs:
		t.Fatalf("unexpected notification %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRemoteUpdateSetsDevice(t *testing.T) {
	f := newFixture(t)
	require.NotNil(t, f.hap.remote)

	f.hap.remote("fan", true)
	c, err := f.srv.Devices().Get("fan")
	require.NoError(t, err)
	assert.True(t, c.IsOn())
	assert.Equal(t, "On", f.srv.Board().MustGet(display.FanStatusID).Text())

	// same value again is not a click
	f.hap.remote("fan", true)
	assert.Equal(t, []string{"fan:on"}, f.pub.devices)

	// unknown ids are ignored
	f.hap.remote("garage", true)
}

func TestRun(t *testing.T) {
	f := newFixture(t)
	f.srv.addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.srv.Run(ctx) }()

	require.Eventually(t, f.srv.Sim().Running, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.False(t, f.srv.Sim().Running())
}

func TestTextPage(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.srv.Sim().Start(context.Background()))
	t.Cleanup(f.srv.Sim().Stop)

	c, err := f.srv.Devices().Get("fan")
	require.NoError(t, err)
	c.Click()

	page := f.srv.textPage()
	assert.True(t, strings.HasPrefix(page, "Sensor: 🟢 Online (uptime: 0m)\n"), page)
	assert.Contains(t, page, "Temp ")
	assert.Contains(t, page, "Fan: on\n")
	assert.Contains(t, page, "Living room light: off\n")
	assert.Contains(t, page, "|  Hour           |")
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Minute, "(uptime: 30m)"},
		{65 * time.Minute, "(uptime: 1h 5m)"},
		{25*time.Hour + 30*time.Minute, "(uptime: 1d 1h 30m)"},
	}

	for _, tt := range tests {
		server := &Server{startTime: time.Now().Add(-tt.ago)}
		assert.Equal(t, tt.want, server.formatUptime())
	}
}

func TestTitleWithUptime(t *testing.T) {
	server := &Server{
		sensorStatus: ONLINE,
		startTime:    time.Now().Add(-45 * time.Minute),
	}

	assert.Equal(t, "Sensor: 🟢 Online (uptime: 45m)\n", server.title())
}

func TestTitleOfflineWithUptime(t *testing.T) {
	server := &Server{
		sensorStatus: OFFLINE,
		sensorErr:    errors.New("test error"),
		startTime:    time.Now().Add(-2*time.Hour - 15*time.Minute),
	}

	assert.Equal(t, "Sensor: 🔴 Offline (uptime: 2h 15m)\nError: test error\n", server.title())
}

func TestRenderHourlyAvgTable(t *testing.T) {
	empty := renderHourlyAvgTable(nil, nil)
	assert.Equal(t, 4, strings.Count(empty, "\n"))

	h := time.Date(2024, 11, 6, 15, 0, 0, 0, time.UTC)
	table := renderHourlyAvgTable(
		[]metrics.Value{{T: h, V: 22}, {T: h.Add(time.Hour), V: 23.5}},
		[]metrics.Value{{T: h, V: 60}, {T: h.Add(time.Hour), V: 61}},
	)

	assert.Contains(t, table, "| 2024-11-06 15h  |       ~  22.00 |          60.00 |\n")
	assert.Contains(t, table, "| 2024-11-06 16h  |       ^  23.50 |          61.00 |\n")
}

func TestLabelsDefault(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, toggle.English.TurnOn, f.srv.Board().MustGet(display.LightButtonID).Text())
}
