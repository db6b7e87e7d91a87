package display

import (
	"errors"
	"sort"
	"sync"
)

var ErrNotFound = errors.New("display target not found")

// Texter is a target whose text can be set.
type Texter interface {
	SetText(text string)
	Text() string
}

// Clicker is a target that accepts click listeners.
type Clicker interface {
	OnClick(fn func())
	Click()
}

// Classer is a target carrying a set of visual classes.
type Classer interface {
	AddClass(name string)
	RemoveClass(name string)
	HasClass(name string) bool
}

// Button is everything a toggle button needs.
type Button interface {
	Texter
	Clicker
	Classer
}

// Snapshot is the rendered state of one element.
type Snapshot struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Classes []string `json:"classes"`
}

// Element is an in-memory display target. It implements Texter, Clicker and Classer.
type Element struct {
	id string

	mu       sync.RWMutex
	text     string
	classes  map[string]struct{}
	handlers []func()

	notify func(Snapshot)
}

func NewElement(id string) *Element {
	return &Element{
		id:      id,
		classes: make(map[string]struct{}),
	}
}

func (e *Element) ID() string { return e.id }

func (e *Element) SetText(text string) {
	e.mu.Lock()
	changed := e.text != text
	e.text = text
	e.mu.Unlock()

	if changed {
		e.changed()
	}
}

func (e *Element) Text() string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.text
}

func (e *Element) AddClass(name string) {
	e.mu.Lock()
	_, had := e.classes[name]
	e.classes[name] = struct{}{}
	e.mu.Unlock()

	if !had {
		e.changed()
	}
}

func (e *Element) RemoveClass(name string) {
	e.mu.Lock()
	_, had := e.classes[name]
	delete(e.classes, name)
	e.mu.Unlock()

	if had {
		e.changed()
	}
}

func (e *Element) HasClass(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	_, ok := e.classes[name]

	return ok
}

func (e *Element) OnClick(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.handlers = append(e.handlers, fn)
}

// Click runs every registered listener in registration order.
// Listeners run outside the element lock, so they are free to mutate the element.
func (e *Element) Click() {
	e.mu.RLock()
	handlers := make([]func(), len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	for _, fn := range handlers {
		fn()
	}
}

func (e *Element) Clickable() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.handlers) > 0
}

func (e *Element) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	classes := make([]string, 0, len(e.classes))
	for c := range e.classes {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	return Snapshot{ID: e.id, Text: e.text, Classes: classes}
}

func (e *Element) changed() {
	if e.notify != nil {
		e.notify(e.Snapshot())
	}
}
