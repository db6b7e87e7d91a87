package api

import (
	"time"

	"github.com/egregors/hkdash/internal/display"
	"github.com/egregors/hkdash/internal/sensors"
	"github.com/egregors/hkdash/internal/toggle"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Sensor    string    `json:"sensor"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

type SensorResponse struct {
	sensors.Reading
	TemperatureText string `json:"temperature_text"`
	HumidityText    string `json:"humidity_text"`
}

type DevicesResponse struct {
	Devices []toggle.State `json:"devices"`
}

type ElementsResponse struct {
	Elements []display.Snapshot `json:"elements"`
}

// StreamMsg is a server to client websocket frame.
type StreamMsg struct {
	Type    string            `json:"type"` // "element" or "error"
	Element *display.Snapshot `json:"element,omitempty"`
	Error   string            `json:"error,omitempty"`
}
