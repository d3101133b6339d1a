// Package input normalizes pointer, multi-touch, keyboard and MIDI input into
// press/move/release events on instrument cells.
package input

import (
	"strings"
	"sync"

	"go-sonify/mapper"
	"go-sonify/voice"

	"go.uber.org/zap"
)

// Phase of a gesture.
type Phase int

const (
	PhasePress Phase = iota
	PhaseMove
	PhaseRelease
)

// Source is the device family an event came from.
type Source int

const (
	SourcePointer Source = iota
	SourceTouch
	SourceKeyboard
	SourceMIDI
)

// Point is a position in sensor space, normalized to [0, 1] on both axes
// with y pointing down.
type Point struct {
	X, Y float64
}

// Event is the canonical input event.
type Event struct {
	ID       voice.ID
	Source   Source
	Phase    Phase
	Pos      Point
	Cell     int
	Velocity float64
}

// Touch is one contact of a multi-touch update.
type Touch struct {
	ID  int
	Pos Point
}

// Layout resolves positions and frequencies to cells.
type Layout interface {
	CellAt(p Point) (int, bool)
	CellForFrequency(freq float64) (int, bool)
	NumCells() int
	// KeyCells is how many cells, from 0, the key row may press.
	KeyCells() int
}

// Sink receives canonical events. Calls are serialized.
type Sink interface {
	Press(e Event)
	Move(e Event)
	Release(e Event)
	// ShiftOctave reports whether it released every voice; layouts without
	// octaves return false and keep their gestures.
	ShiftOctave(delta int) bool
}

// DefaultKeys is the computer keyboard row mapped onto consecutive cells.
const DefaultKeys = "AWSEDFTGYHUJKOLP;"

// Router tracks which cell each live gesture is on and turns raw device
// input into Sink calls.
type Router struct {
	mu     sync.Mutex
	layout Layout
	sink   Sink
	keys   string
	active map[voice.ID]Event
	closed bool
	log    *zap.Logger
}

type Option func(*Router)

func WithLogger(log *zap.Logger) Option {
	return func(r *Router) {
		if log != nil {
			r.log = log.Named("input")
		}
	}
}

// WithKeys replaces the computer keyboard key row.
func WithKeys(keys string) Option {
	return func(r *Router) {
		r.keys = strings.ToUpper(keys)
	}
}

func NewRouter(layout Layout, sink Sink, opts ...Option) *Router {
	r := &Router{
		layout: layout,
		sink:   sink,
		keys:   DefaultKeys,
		active: make(map[voice.ID]Event),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Active returns the number of live gestures.
func (r *Router) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// Reset forgets every live gesture without emitting releases.
func (r *Router) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.active)
}

// Close detaches the router; later input is ignored.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	clear(r.active)
}

func (r *Router) press(e Event) {
	if _, ok := r.active[e.ID]; ok {
		return
	}
	e.Phase = PhasePress
	r.active[e.ID] = e
	r.sink.Press(e)
}

func (r *Router) release(id voice.ID) {
	prev, ok := r.active[id]
	if !ok {
		return
	}
	delete(r.active, id)
	prev.Phase = PhaseRelease
	r.sink.Release(prev)
}

// move follows a positional gesture. Crossing into another cell releases the
// old one and presses the new one; leaving every cell releases.
func (r *Router) move(id voice.ID, src Source, p Point, startIfNew bool) {
	cell, ok := r.layout.CellAt(p)
	prev, live := r.active[id]
	switch {
	case !live:
		if startIfNew && ok {
			r.press(Event{ID: id, Source: src, Pos: p, Cell: cell, Velocity: 1})
		}
	case !ok:
		r.release(id)
	case cell != prev.Cell:
		r.release(id)
		r.press(Event{ID: id, Source: src, Pos: p, Cell: cell, Velocity: prev.Velocity})
	default:
		prev.Pos = p
		prev.Phase = PhaseMove
		r.active[id] = prev
		r.sink.Move(prev)
	}
}

// PointerDown starts the pointer gesture.
func (r *Router) PointerDown(p Point) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	cell, ok := r.layout.CellAt(p)
	if !ok {
		return
	}
	r.press(Event{ID: voice.Pointer(), Source: SourcePointer, Pos: p, Cell: cell, Velocity: 1})
}

// PointerMove follows the pointer. With the primary button held, entering a
// cell starts a gesture.
func (r *Router) PointerMove(p Point, held bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if _, live := r.active[voice.Pointer()]; !live && !held {
		return
	}
	r.move(voice.Pointer(), SourcePointer, p, held)
}

// PointerUp ends the pointer gesture. Also use it when the pointer leaves
// the surface.
func (r *Router) PointerUp() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.release(voice.Pointer())
}

// TouchStart begins a gesture per new contact.
func (r *Router) TouchStart(touches []Touch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	for _, t := range touches {
		cell, ok := r.layout.CellAt(t.Pos)
		if !ok {
			continue
		}
		r.press(Event{ID: voice.Touch(t.ID), Source: SourceTouch, Pos: t.Pos, Cell: cell, Velocity: 1})
	}
}

// TouchMove diffs each contact's cell against the one it was on.
func (r *Router) TouchMove(touches []Touch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	for _, t := range touches {
		r.move(voice.Touch(t.ID), SourceTouch, t.Pos, true)
	}
}

// TouchEnd releases the listed contacts.
func (r *Router) TouchEnd(touches []Touch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	for _, t := range touches {
		r.release(voice.Touch(t.ID))
	}
}

func normalizeKey(key string) string {
	switch key {
	case "ArrowUp":
		return "up"
	case "ArrowDown":
		return "down"
	}
	if len(key) == 1 {
		return strings.ToUpper(key)
	}
	return key
}

// KeyDown presses the cell mapped to key. Repeats of a held key are
// ignored. "up" and "down" shift the octave.
func (r *Router) KeyDown(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	key = normalizeKey(key)
	switch key {
	case "up", "down":
		delta := 1
		if key == "down" {
			delta = -1
		}
		if r.sink.ShiftOctave(delta) {
			// every voice was released; gestures on the old layout are gone
			clear(r.active)
		}
		return
	}

	idx := strings.Index(r.keys, key)
	if len(key) != 1 || idx < 0 || idx >= r.layout.KeyCells() {
		return
	}
	r.press(Event{ID: voice.Key(idx), Source: SourceKeyboard, Cell: idx, Velocity: 1})
}

// KeyUp releases the cell mapped to key.
func (r *Router) KeyUp(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	key = normalizeKey(key)
	idx := strings.Index(r.keys, key)
	if len(key) != 1 || idx < 0 {
		return
	}
	r.release(voice.Key(idx))
}

// MIDIMessage handles a channel voice message. Note on with velocity 0 is a
// note off; everything else is ignored.
func (r *Router) MIDIMessage(status, note, velocity uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	id := voice.Note(note)
	switch status & 0xF0 {
	case 0x90:
		if velocity == 0 {
			r.release(id)
			return
		}
		cell, ok := r.layout.CellForFrequency(mapper.Note(note).Frequency())
		if !ok {
			r.log.Debug("note outside layout", zap.Uint8("note", note))
			return
		}
		r.press(Event{ID: id, Source: SourceMIDI, Cell: cell, Velocity: float64(velocity) / 127})
	case 0x80:
		r.release(id)
	}
}
