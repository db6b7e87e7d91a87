package api

import (
	_ "embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/egregors/hkdash/internal/display"
	"github.com/egregors/hkdash/internal/toggle"
)

//go:embed web/index.html
var indexHTML string

var indexTmpl = template.Must(template.New("index").Parse(indexHTML))

// page holds what the dashboard template renders besides the live elements.
type page struct {
	Lang        string
	Temperature string
	Humidity    string
	Names       map[string]string // button element id -> device name
}

func newPage(lang string, devices *toggle.Registry) page {
	p := page{Lang: "en", Temperature: "Temperature", Humidity: "Humidity", Names: map[string]string{}}
	if toggle.LabelsFor(lang) == toggle.TraditionalChinese {
		p = page{Lang: "zh-TW", Temperature: "溫度", Humidity: "濕度", Names: p.Names}
	}

	devices.Each(func(d toggle.Device, _ *toggle.Controller) {
		p.Names[d.ButtonID] = d.Name
	})

	return p
}

type Deps struct {
	Board   *display.Board
	Devices *toggle.Registry
	Sensor  Sensor

	// Lang selects the page language, English by default.
	Lang string

	// optional
	Metrics http.Handler
	Clients ClientGauge
	Uptime  func() time.Duration
	Text    func() string
}

// NewRouter builds the gin engine serving the page, the stream and the REST API.
func NewRouter(d Deps) (*gin.Engine, error) {
	if d.Board == nil || d.Devices == nil || d.Sensor == nil {
		return nil, errors.New("board, devices and sensor are required")
	}

	parser, err := NewCommandParser()
	if err != nil {
		return nil, err
	}

	h := &Handlers{
		board:   d.Board,
		devices: d.Devices,
		sensor:  d.Sensor,
		parser:  parser,
		clients: d.Clients,
		uptime:  d.Uptime,
		text:    d.Text,
	}
	if h.uptime == nil {
		start := time.Now()
		h.uptime = func() time.Duration { return time.Since(start) }
	}
	if h.text == nil {
		h.text = func() string { return "" }
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	SetupMiddleware(engine)
	engine.SetHTMLTemplate(indexTmpl)

	index := newPage(d.Lang, d.Devices)
	engine.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index", index)
	})
	engine.GET("/text", h.Text)
	engine.GET("/ws", h.Stream)
	engine.GET("/health", h.Health)
	if d.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(d.Metrics))
	}

	v1 := engine.Group("/api/v1")
	{
		v1.GET("/health", h.Health)
		v1.POST("/commands", h.PostCommand)

		elements := v1.Group("/elements")
		{
			elements.GET("", h.ListElements)
			elements.GET("/:id", h.GetElement)
			elements.POST("/:id/click", h.ClickElement)
		}

		sensors := v1.Group("/sensors")
		{
			sensors.GET("", h.GetSensors)
			sensors.POST("/refresh", h.RefreshSensors)
		}

		devices := v1.Group("/devices")
		{
			devices.GET("", h.ListDevices)
			devices.POST("/:id/toggle", h.ToggleDevice)
			devices.POST("/:id/reset", h.ResetDevice)
		}
	}

	return engine, nil
}
