package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/egregors/hkdash/internal/sensors"
	"github.com/egregors/hkdash/log"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	disconnectWait = 250 // ms
)

type Config struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string
	Topic    string // prefix, readings go to <Topic>/sensors
}

// SensorMsg is the JSON payload of a sensor reading.
type SensorMsg struct {
	Temperature float64   `json:"temperatureC"`
	Humidity    int       `json:"humidityPct"`
	Timestamp   time.Time `json:"timestamp"`
}

// DeviceMsg is the JSON payload of a device state change.
type DeviceMsg struct {
	Device    string    `json:"device"`
	Name      string    `json:"name"`
	On        bool      `json:"on"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher pushes dashboard telemetry to an MQTT broker.
type Publisher struct {
	client paho.Client
	topic  string
	qos    byte
}

// Connect dials the broker. The client reconnects on its own after that.
func Connect(cfg Config) (*Publisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn.Printf("mqtt connection lost: %s", err.Error())
		}).
		SetOnConnectHandler(func(paho.Client) {
			log.Info.Printf("mqtt connected to %s", cfg.Broker)
		})

	return connect(paho.NewClient(opts), cfg, connectTimeout)
}

func connect(c paho.Client, cfg Config, timeout time.Duration) (*Publisher, error) {
	token := c.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("can't connect to mqtt broker %s: timed out after %s", cfg.Broker, timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("can't connect to mqtt broker %s: %w", cfg.Broker, err)
	}

	return NewPublisher(c, cfg.Topic), nil
}

// NewPublisher wraps an already configured client.
func NewPublisher(c paho.Client, topic string) *Publisher {
	return &Publisher{client: c, topic: topic}
}

func (p *Publisher) SensorTopic() string { return p.topic + "/sensors" }

func (p *Publisher) DeviceTopic(id string) string { return p.topic + "/devices/" + id }

func (p *Publisher) PublishReading(r sensors.Reading) error {
	return p.publish(p.SensorTopic(), false, SensorMsg{
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Timestamp:   r.At,
	})
}

// PublishDevice sends a retained state message so new subscribers see the current state.
func (p *Publisher) PublishDevice(id, name string, on bool) error {
	return p.publish(p.DeviceTopic(id), true, DeviceMsg{
		Device:    id,
		Name:      name,
		On:        on,
		Timestamp: time.Now(),
	})
}

func (p *Publisher) Close() {
	p.client.Disconnect(disconnectWait)
}

func (p *Publisher) publish(topic string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("can't marshal %s payload: %w", topic, err)
	}

	token := p.client.Publish(topic, p.qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("can't publish to %s: %w", topic, err)
	}

	return nil
}

type Noop struct{}

func (Noop) PublishReading(sensors.Reading) error      { return nil }
func (Noop) PublishDevice(string, string, bool) error { return nil }
func (Noop) Close()                                   {}
