package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egregors/hkdash/internal/sensors"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

// pendingToken never completes.
type pendingToken struct{ doneToken }

func (pendingToken) Wait() bool                     { return false }
func (pendingToken) WaitTimeout(time.Duration) bool { return false }
func (pendingToken) Done() <-chan struct{}          { return make(chan struct{}) }

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeClient struct {
	paho.Client
	connect      paho.Token
	err          error
	msgs         []published
	disconnected bool
}

func (f *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) paho.Token {
	f.msgs = append(f.msgs, published{topic: topic, retained: retained, payload: payload.([]byte)})
	return doneToken{err: f.err}
}

func (f *fakeClient) Connect() paho.Token { return f.connect }

func (f *fakeClient) Disconnect(uint) { f.disconnected = true }

func TestPublishReading(t *testing.T) {
	c := &fakeClient{}
	p := NewPublisher(c, "hkdash")
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, p.PublishReading(sensors.Reading{Temperature: 22.3, Humidity: 61, At: at}))

	require.Len(t, c.msgs, 1)
	assert.Equal(t, "hkdash/sensors", c.msgs[0].topic)
	assert.False(t, c.msgs[0].retained)

	var msg SensorMsg
	require.NoError(t, json.Unmarshal(c.msgs[0].payload, &msg))
	assert.Equal(t, SensorMsg{Temperature: 22.3, Humidity: 61, Timestamp: at}, msg)
}

func TestPublishDeviceIsRetained(t *testing.T) {
	c := &fakeClient{}
	p := NewPublisher(c, "home")

	require.NoError(t, p.PublishDevice("fan", "Fan", true))

	require.Len(t, c.msgs, 1)
	assert.Equal(t, "home/devices/fan", c.msgs[0].topic)
	assert.True(t, c.msgs[0].retained)
	assert.Contains(t, string(c.msgs[0].payload), `"on":true`)
}

func TestPublishError(t *testing.T) {
	c := &fakeClient{err: errors.New("not connected")}
	p := NewPublisher(c, "home")

	err := p.PublishDevice("light", "Lamp", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "home/devices/light")
}

func TestClose(t *testing.T) {
	c := &fakeClient{}
	NewPublisher(c, "home").Close()

	assert.True(t, c.disconnected)
}

func TestConnect(t *testing.T) {
	cfg := Config{Broker: "tcp://broker:1883", Topic: "home"}

	p, err := connect(&fakeClient{connect: doneToken{}}, cfg, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "home/sensors", p.SensorTopic())

	_, err = connect(&fakeClient{connect: doneToken{err: errors.New("refused")}}, cfg, time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")

	_, err = connect(&fakeClient{connect: pendingToken{}}, cfg, time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}
