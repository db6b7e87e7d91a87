package srv

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/egregors/hkdash/internal/metrics"
	"github.com/egregors/hkdash/internal/textplot"
	"github.com/egregors/hkdash/internal/toggle"
)

const (
	plotRows   = 4
	plotWindow = time.Hour
	tableRange = 24 * time.Hour
)

// textPage is the plain text dashboard served on /text.
func (s *Server) textPage() string {
	s.syncStatus()

	var b strings.Builder
	b.WriteString(s.title())
	b.WriteString("\n")

	if r, ok := s.sim.Last(); ok {
		_, _ = fmt.Fprintf(&b, "Temp %0.1f °C\nHumi %d %%\n\n", r.Temperature, r.Humidity)
	}

	s.devices.Each(func(_ toggle.Device, c *toggle.Controller) {
		state := "off"
		if c.IsOn() {
			state = "on"
		}
		_, _ = fmt.Fprintf(&b, "%s: %s\n", c.Name(), state)
	})
	b.WriteString("\n")

	temp := s.metrics.Avg(temperatureKey, tableRange)
	humi := s.metrics.Avg(humidityKey, tableRange)
	b.WriteString(renderHourlyAvgTable(temp, humi))

	series := s.metrics.Series(temperatureKey, plotWindow)
	if len(series) > 0 {
		data := make([]float64, 0, len(series))
		for _, v := range series {
			data = append(data, v.V)
		}
		b.WriteString("\n")
		b.WriteString(textplot.Plot(plotRows, data))
		b.WriteString("\n")
	}

	return b.String()
}

func (s *Server) syncStatus() {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	_, ok := s.sim.Last()
	s.sensorErr = s.sim.Err()
	s.sensorStatus = OFFLINE
	if ok && s.sensorErr == nil && s.sim.Running() {
		s.sensorStatus = ONLINE
	}
}

func (s *Server) title() string {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()

	if s.sensorStatus == ONLINE {
		return fmt.Sprintf("Sensor: 🟢 Online %s\n", s.formatUptime())
	}

	t := fmt.Sprintf("Sensor: 🔴 Offline %s\n", s.formatUptime())
	if s.sensorErr != nil {
		t += fmt.Sprintf("Error: %s\n", s.sensorErr.Error())
	}

	return t
}

func (s *Server) formatUptime() string {
	up := time.Since(s.startTime)
	days := int(up.Hours()) / 24
	hours := int(up.Hours()) % 24
	minutes := int(up.Minutes()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("(uptime: %dd %dh %dm)", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("(uptime: %dh %dm)", hours, minutes)
	default:
		return fmt.Sprintf("(uptime: %dm)", minutes)
	}
}

func renderHourlyAvgTable(hourlyAverageT, hourlyAverageH []metrics.Value) string {
	var builder strings.Builder
	builder.WriteString("+-----------------+----------------+----------------+\n")
	builder.WriteString("|  Hour           |       T        |        H       |\n")
	builder.WriteString("+-----------------+----------------+----------------+\n")

	merge := make(map[time.Time][]float64)
	collect := func(vals []metrics.Value, col int) {
		for _, v := range vals {
			if _, ok := merge[v.T]; !ok {
				merge[v.T] = make([]float64, 2)
			}
			merge[v.T][col] = v.V
		}
	}
	collect(hourlyAverageT, 0)
	collect(hourlyAverageH, 1)

	hours := make([]time.Time, 0, len(merge))
	for h := range merge {
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool { return hours[i].Before(hours[j]) })

	up, down, same := "^", "v", "~"
	var prevT float64
	for i, hour := range hours {
		val := merge[hour]
		if i == 0 {
			prevT = val[0]
		}

		var progMark string
		switch {
		case val[0] > prevT:
			progMark = up
		case val[0] < prevT:
			progMark = down
		default:
			progMark = same
		}

		// 2024-11-06 15h
		timeMark := hour.Format("2006-01-02 15") + "h"
		builder.WriteString(fmt.Sprintf("| %-15s | %7s%7.2f | %14.2f |\n", timeMark, progMark, val[0], val[1]))
		prevT = val[0]
	}

	builder.WriteString("+-----------------+----------------+----------------+\n")

	return builder.String()
}
