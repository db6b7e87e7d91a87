package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

const envPrefix = "HKDASH_"

type Config struct {
	WebAddr        string
	SensorInterval time.Duration
	Lang           string
	Debug          bool
	NoColor        bool

	HomeKit    bool
	HomeKitPin string
	HomeKitDB  string

	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string

	NtfyURL string

	MetricsRetention time.Duration
}

func Default() Config {
	return Config{
		WebAddr:          ":8080",
		SensorInterval:   5 * time.Second,
		Lang:             "en",
		HomeKitPin:       "11112222",
		HomeKitDB:        "./db",
		MQTTTopic:        "hkdash",
		MQTTClientID:     "hkdash",
		MetricsRetention: 24 * time.Hour,
	}
}

// Load parses args on top of defaults. Every flag can also be set by an
// HKDASH_<NAME> env var (dashes become underscores); flags win over env.
func Load(args []string) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("hkdash", flag.ContinueOnError)
	fs.StringVar(&cfg.WebAddr, "web-addr", cfg.WebAddr, "web dashboard listen address")
	fs.DurationVar(&cfg.SensorInterval, "sensor-interval", cfg.SensorInterval, "sensor update interval")
	fs.StringVar(&cfg.Lang, "lang", cfg.Lang, "label language: en or zh-TW")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logs")
	fs.BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "plain log prefixes, e.g. when logs go to a file")
	fs.BoolVar(&cfg.HomeKit, "homekit", cfg.HomeKit, "expose devices over HomeKit")
	fs.StringVar(&cfg.HomeKitPin, "homekit-pin", cfg.HomeKitPin, "HomeKit pairing PIN (8 digits)")
	fs.StringVar(&cfg.HomeKitDB, "homekit-db", cfg.HomeKitDB, "HomeKit pairing store directory")
	fs.StringVar(&cfg.MQTTBroker, "mqtt-broker", cfg.MQTTBroker, "MQTT broker URL, empty disables publishing")
	fs.StringVar(&cfg.MQTTTopic, "mqtt-topic", cfg.MQTTTopic, "MQTT topic prefix")
	fs.StringVar(&cfg.MQTTClientID, "mqtt-client-id", cfg.MQTTClientID, "MQTT client id")
	fs.StringVar(&cfg.NtfyURL, "ntfy-url", cfg.NtfyURL, "ntfy topic URL for toggle notifications, empty disables")
	fs.DurationVar(&cfg.MetricsRetention, "metrics-retention", cfg.MetricsRetention, "in-memory metrics retention")

	var envErr error
	fs.VisitAll(func(f *flag.Flag) {
		if v, ok := os.LookupEnv(envName(f.Name)); ok {
			if err := f.Value.Set(v); err != nil && envErr == nil {
				envErr = fmt.Errorf("bad %s: %w", envName(f.Name), err)
			}
		}
	})
	if envErr != nil {
		return Config{}, envErr
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error

	if c.SensorInterval <= 0 {
		errs = append(errs, errors.New("sensor interval must be positive"))
	}
	if c.HomeKit {
		if _, err := strconv.Atoi(c.HomeKitPin); err != nil || len(c.HomeKitPin) != 8 {
			errs = append(errs, errors.New("HomeKit PIN must be 8 digits"))
		}
	}
	if c.MQTTBroker != "" && c.MQTTTopic == "" {
		errs = append(errs, errors.New("MQTT topic is required with a broker"))
	}

	return errors.Join(errs...)
}

func envName(flagName string) string {
	b := []byte(flagName)
	for i, c := range b {
		switch {
		case c == '-':
			b[i] = '_'
		case c >= 'a' && c <= 'z':
			b[i] = c - 'a' + 'A'
		}
	}

	return envPrefix + string(b)
}
