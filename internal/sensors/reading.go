package sensors

import (
	"fmt"
	"time"
)

// Reading is the current climate value. Only the latest one is kept.
type Reading struct {
	Temperature float64   `json:"temperature"`
	Humidity    int       `json:"humidity"`
	At          time.Time `json:"at"`
}

func (r Reading) TemperatureText() string {
	return FormatTemperature(r.Temperature)
}

func (r Reading) HumidityText() string {
	return FormatHumidity(r.Humidity)
}

func FormatTemperature(t float64) string {
	return fmt.Sprintf("%.1f°C", t)
}

func FormatHumidity(h int) string {
	return fmt.Sprintf("%d%%", h)
}
