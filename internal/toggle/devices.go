package toggle

import (
	"errors"
	"fmt"
	"sort"

	"github.com/egregors/hkdash/internal/display"
)

var ErrUnknownDevice = errors.New("unknown device")

// Device describes a simulated device and the page elements bound to it.
type Device struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ButtonID string `json:"button_id"`
	StatusID string `json:"status_id"`
}

// DefaultDevices are the lamp and the fan of the dashboard page.
func DefaultDevices(lang string) []Device {
	lamp, fan := "Living room light", "Fan"
	if LabelsFor(lang) == TraditionalChinese {
		lamp, fan = "客廳燈", "風扇"
	}

	return []Device{
		{ID: "light", Name: lamp, ButtonID: display.LightButtonID, StatusID: display.LightStatusID},
		{ID: "fan", Name: fan, ButtonID: display.FanButtonID, StatusID: display.FanStatusID},
	}
}

// Registry keeps one controller per device ID.
type Registry struct {
	devices     map[string]Device
	controllers map[string]*Controller
}

// Setup binds a controller for every device to its board elements.
func Setup(board *display.Board, devices []Device, opts ...Option) (*Registry, error) {
	r := &Registry{
		devices:     make(map[string]Device, len(devices)),
		controllers: make(map[string]*Controller, len(devices)),
	}

	for _, d := range devices {
		if _, dup := r.devices[d.ID]; dup {
			return nil, fmt.Errorf("duplicate device id %q", d.ID)
		}

		btn, err := board.Get(d.ButtonID)
		if err != nil {
			return nil, fmt.Errorf("device %s button: %w", d.ID, err)
		}
		status, err := board.Get(d.StatusID)
		if err != nil {
			return nil, fmt.Errorf("device %s status: %w", d.ID, err)
		}

		r.devices[d.ID] = d
		r.controllers[d.ID] = SetupDeviceToggle(btn, status, d.Name, append(opts[:len(opts):len(opts)], WithID(d.ID))...)
	}

	return r, nil
}

func (r *Registry) Get(id string) (*Controller, error) {
	c, ok := r.controllers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, id)
	}

	return c, nil
}

// State is a device with its current state.
type State struct {
	Device
	On bool `json:"on"`
}

func (r *Registry) States() []State {
	out := make([]State, 0, len(r.devices))
	for id, d := range r.devices {
		out = append(out, State{Device: d, On: r.controllers[id].IsOn()})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// Each calls fn for every controller, ordered by device ID.
func (r *Registry) Each(fn func(d Device, c *Controller)) {
	ids := make([]string, 0, len(r.devices))
	for id := range r.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		fn(r.devices[id], r.controllers[id])
	}
}
