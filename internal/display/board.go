package display

import (
	"fmt"
	"sort"
	"sync"
)

// Element IDs of the dashboard page.
const (
	TemperatureID = "temperature"
	HumidityID    = "humidity"

	LightButtonID = "light-toggle-btn"
	LightStatusID = "light-status"
	FanButtonID   = "fan-toggle-btn"
	FanStatusID   = "fan-status"
)

// Board is a set of elements addressed by ID, the server side of the dashboard page.
// Every element change is fanned out to subscribers.
type Board struct {
	mu       sync.RWMutex
	elements map[string]*Element

	subsMu sync.RWMutex
	subs   map[int]chan Snapshot
	nextID int
}

func NewBoard(ids ...string) *Board {
	b := &Board{
		elements: make(map[string]*Element),
		subs:     make(map[int]chan Snapshot),
	}

	for _, id := range ids {
		b.Add(id)
	}

	return b
}

// NewDashboard makes a board with every element of the default page.
func NewDashboard() *Board {
	return NewBoard(
		TemperatureID, HumidityID,
		LightButtonID, LightStatusID,
		FanButtonID, FanStatusID,
	)
}

// Add registers a new element, or returns the existing one with the same ID.
func (b *Board) Add(id string) *Element {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.elements[id]; ok {
		return e
	}

	e := NewElement(id)
	e.notify = b.publish
	b.elements[id] = e

	return e
}

func (b *Board) Get(id string) (*Element, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.elements[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	return e, nil
}

// MustGet is Get for wiring code: a missing element is a programming error.
func (b *Board) MustGet(id string) *Element {
	e, err := b.Get(id)
	if err != nil {
		panic(err)
	}

	return e
}

func (b *Board) Snapshot() []Snapshot {
	b.mu.RLock()
	ids := make([]string, 0, len(b.elements))
	for id := range b.elements {
		ids = append(ids, id)
	}
	b.mu.RUnlock()

	sort.Strings(ids)

	out := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.MustGet(id).Snapshot())
	}

	return out
}

// Subscribe returns a channel of element changes and a cancel func.
// Slow subscribers drop updates instead of blocking the writer.
func (b *Board) Subscribe(buf int) (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, buf)

	b.subsMu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.subsMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.subsMu.Lock()
			delete(b.subs, id)
			b.subsMu.Unlock()
			close(ch)
		})
	}

	return ch, cancel
}

func (b *Board) publish(s Snapshot) {
	b.subsMu.RLock()
	defer b.subsMu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- s:
		default:
		}
	}
}
