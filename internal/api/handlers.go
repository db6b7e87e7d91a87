package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/egregors/hkdash/internal/display"
	"github.com/egregors/hkdash/internal/sensors"
	"github.com/egregors/hkdash/internal/toggle"
)

// Sensor is the part of the sensor simulator the API drives.
type Sensor interface {
	UpdateSensorData() error
	Last() (sensors.Reading, bool)
	Running() bool
	Err() error
}

// ClientGauge counts connected stream clients.
type ClientGauge interface {
	ClientConnected()
	ClientDisconnected()
}

type Handlers struct {
	board   *display.Board
	devices *toggle.Registry
	sensor  Sensor
	parser  *CommandParser
	clients ClientGauge
	uptime  func() time.Duration
	text    func() string
}

func (h *Handlers) Health(c *gin.Context) {
	sensorStatus, status, code := "online", "healthy", http.StatusOK
	if !h.sensor.Running() || h.sensor.Err() != nil {
		sensorStatus, status, code = "offline", "degraded", http.StatusServiceUnavailable
	}

	c.JSON(code, HealthResponse{
		Status:    status,
		Sensor:    sensorStatus,
		Uptime:    h.uptime().Truncate(time.Second).String(),
		Timestamp: time.Now(),
	})
}

func (h *Handlers) ListElements(c *gin.Context) {
	c.JSON(http.StatusOK, ElementsResponse{Elements: h.board.Snapshot()})
}

func (h *Handlers) GetElement(c *gin.Context) {
	el, err := h.board.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, el.Snapshot())
}

func (h *Handlers) ClickElement(c *gin.Context) {
	if err := h.Exec(Command{Type: CmdClick, Target: c.Param("id")}); err != nil {
		h.fail(c, err)
		return
	}

	el, _ := h.board.Get(c.Param("id"))
	c.JSON(http.StatusOK, el.Snapshot())
}

func (h *Handlers) GetSensors(c *gin.Context) {
	r, ok := h.sensor.Last()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "no_data",
			Message: "No sensor reading yet",
		})
		return
	}

	c.JSON(http.StatusOK, sensorResponse(r))
}

func (h *Handlers) RefreshSensors(c *gin.Context) {
	if err := h.Exec(Command{Type: CmdRefresh}); err != nil {
		h.fail(c, err)
		return
	}

	r, _ := h.sensor.Last()
	c.JSON(http.StatusOK, sensorResponse(r))
}

func (h *Handlers) ListDevices(c *gin.Context) {
	c.JSON(http.StatusOK, DevicesResponse{Devices: h.devices.States()})
}

func (h *Handlers) ToggleDevice(c *gin.Context) {
	ctrl, err := h.devices.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	ctrl.Click()
	h.deviceState(c, c.Param("id"))
}

func (h *Handlers) ResetDevice(c *gin.Context) {
	if err := h.Exec(Command{Type: CmdReset, Target: c.Param("id")}); err != nil {
		h.fail(c, err)
		return
	}

	h.deviceState(c, c.Param("id"))
}

// PostCommand handles POST /commands with a schema-validated body.
func (h *Handlers) PostCommand(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 4<<10))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: "Invalid request body"})
		return
	}

	cmd, err := h.parser.Parse(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: err.Error()})
		return
	}

	if err := h.Exec(cmd); err != nil {
		h.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handlers) Text(c *gin.Context) {
	c.String(http.StatusOK, h.text())
}

func (h *Handlers) deviceState(c *gin.Context, id string) {
	for _, s := range h.devices.States() {
		if s.ID == id {
			c.JSON(http.StatusOK, s)
			return
		}
	}

	c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Device not found"})
}

func (h *Handlers) fail(c *gin.Context, err error) {
	switch {
	case isNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: err.Error()})
	case errors.Is(err, ErrNotClickable):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "not_clickable", Message: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: err.Error()})
	}
}

func sensorResponse(r sensors.Reading) SensorResponse {
	return SensorResponse{
		Reading:         r,
		TemperatureText: r.TemperatureText(),
		HumidityText:    r.HumidityText(),
	}
}
