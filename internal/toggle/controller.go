package toggle

import (
	"sync"

	"github.com/egregors/hkdash/internal/display"
	"github.com/egregors/hkdash/log"
)

// ChangeFn is called after every state change with the new state.
type ChangeFn func(id, name string, on bool)

type Option func(c *Controller)

func WithLabels(l Labels) Option {
	return func(c *Controller) {
		c.labels = l
	}
}

// WithLogger sets the sink for "<name> <on|off> state" lines.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

// WithID sets the device ID passed to change listeners; it defaults to the name.
func WithID(id string) Option {
	return func(c *Controller) {
		c.id = id
	}
}

func WithOnChange(fn ChangeFn) Option {
	return func(c *Controller) {
		c.onChange = append(c.onChange, fn)
	}
}

// Controller owns the on/off state of one simulated device
// and keeps its button and status targets in sync with it.
type Controller struct {
	id     string
	name   string
	button display.Button
	status display.Texter
	labels Labels
	log    *log.Logger

	mu       sync.Mutex
	isOn     bool
	onChange []ChangeFn

	// seq orders transitions with their notifications
	seq sync.Mutex
}

// SetupDeviceToggle binds a click listener to button that flips the device state.
// The targets are rendered in the initial off state right away.
func SetupDeviceToggle(button display.Button, status display.Texter, name string, opts ...Option) *Controller {
	c := &Controller{
		id:     name,
		name:   name,
		button: button,
		status: status,
		labels: English,
		log:    log.Info,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.mu.Lock()
	c.render()
	c.mu.Unlock()

	button.OnClick(c.toggle)

	return c
}

func (c *Controller) ID() string   { return c.id }
func (c *Controller) Name() string { return c.name }

func (c *Controller) IsOn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.isOn
}

// Click behaves like a user pressing the button.
func (c *Controller) Click() {
	c.button.Click()
}

// Set drives the device to the wanted state. It flips the state, as a click
// would, only when the state differs.
func (c *Controller) Set(on bool) {
	c.toggleIf(func(isOn bool) bool { return isOn != on })
}

// Reset returns the device to the initial off state without logging a toggle.
func (c *Controller) Reset() {
	c.seq.Lock()
	defer c.seq.Unlock()

	c.mu.Lock()
	wasOn := c.isOn
	c.isOn = false
	c.render()
	listeners := c.onChange
	c.mu.Unlock()

	if wasOn {
		for _, fn := range listeners {
			fn(c.id, c.name, false)
		}
	}
}

// OnChange adds a listener for state changes.
func (c *Controller) OnChange(fn ChangeFn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onChange = append(c.onChange, fn)
}

func (c *Controller) toggle() {
	c.toggleIf(func(bool) bool { return true })
}

// toggleIf flips the state when cond holds for the current one. The check and
// the flip happen under one lock.
func (c *Controller) toggleIf(cond func(isOn bool) bool) {
	c.seq.Lock()
	defer c.seq.Unlock()

	c.mu.Lock()
	if !cond(c.isOn) {
		c.mu.Unlock()
		return
	}
	c.isOn = !c.isOn
	on := c.isOn
	c.render()
	c.log.Print(c.labels.logLine(c.name, on))
	listeners := c.onChange
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(c.id, c.name, on)
	}
}

// render must be called with mu held.
func (c *Controller) render() {
	if c.isOn {
		c.button.SetText(c.labels.TurnOff)
		c.button.RemoveClass(OffClass)
		c.status.SetText(c.labels.On)

		return
	}

	c.button.SetText(c.labels.TurnOn)
	c.button.AddClass(OffClass)
	c.status.SetText(c.labels.Off)
}
