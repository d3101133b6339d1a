package input

import (
	"math"
	"testing"

	"go-sonify/mapper"
	"go-sonify/voice"
)

// stripLayout splits the x axis into n equal cells; cell i also answers to
// the frequency of note 60+i. The key row reaches every cell unless noKeys.
type stripLayout struct {
	n      int
	noKeys bool
}

func (l stripLayout) CellAt(p Point) (int, bool) {
	if p.X < 0 || p.X >= 1 || p.Y < 0 || p.Y >= 1 {
		return 0, false
	}
	return int(p.X * float64(l.n)), true
}

func (l stripLayout) CellForFrequency(freq float64) (int, bool) {
	for i := 0; i < l.n; i++ {
		if math.Abs(mapper.Note(60+i).Frequency()-freq) < 1e-6 {
			return i, true
		}
	}
	return 0, false
}

func (l stripLayout) NumCells() int { return l.n }

func (l stripLayout) KeyCells() int {
	if l.noKeys {
		return 0
	}
	return l.n
}

type logSink struct {
	events []Event
	shifts []int
	fixed  bool // no octaves to shift
}

func (s *logSink) Press(e Event)   { s.events = append(s.events, e) }
func (s *logSink) Move(e Event)    { s.events = append(s.events, e) }
func (s *logSink) Release(e Event) { s.events = append(s.events, e) }

func (s *logSink) ShiftOctave(delta int) bool {
	s.shifts = append(s.shifts, delta)
	return !s.fixed
}

func (s *logSink) phases() []Phase {
	var out []Phase
	for _, e := range s.events {
		out = append(out, e.Phase)
	}
	return out
}

func newRouter(n int) (*Router, *logSink) {
	sink := &logSink{}
	return NewRouter(stripLayout{n: n}, sink), sink
}

func equalPhases(a, b []Phase) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPointerGesture(t *testing.T) {
	r, sink := newRouter(4)

	r.PointerDown(Point{0.1, 0.5})
	r.PointerMove(Point{0.2, 0.5}, true) // same cell
	r.PointerMove(Point{0.6, 0.5}, true) // crosses into cell 2
	r.PointerUp()

	want := []Phase{PhasePress, PhaseMove, PhaseRelease, PhasePress, PhaseRelease}
	if got := sink.phases(); !equalPhases(got, want) {
		t.Fatalf("phases = %v, want %v", got, want)
	}
	if sink.events[2].Cell != 0 || sink.events[3].Cell != 2 {
		t.Fatalf("release cell %d press cell %d", sink.events[2].Cell, sink.events[3].Cell)
	}
	if r.Active() != 0 {
		t.Fatalf("gesture left active")
	}
}

func TestPointerHoverWithoutButton(t *testing.T) {
	r, sink := newRouter(4)
	r.PointerMove(Point{0.3, 0.3}, false)
	if len(sink.events) != 0 {
		t.Fatalf("hover produced %d events", len(sink.events))
	}
	r.PointerMove(Point{0.3, 0.3}, true)
	if len(sink.events) != 1 || sink.events[0].Phase != PhasePress {
		t.Fatalf("dragging into a cell should press, got %+v", sink.events)
	}
}

func TestPointerLeavesSurface(t *testing.T) {
	r, sink := newRouter(4)
	r.PointerDown(Point{0.1, 0.1})
	r.PointerMove(Point{1.5, 0.1}, true)
	want := []Phase{PhasePress, PhaseRelease}
	if got := sink.phases(); !equalPhases(got, want) {
		t.Fatalf("phases = %v, want %v", got, want)
	}
}

func TestReleaseWithoutPressIsNoop(t *testing.T) {
	r, sink := newRouter(4)
	r.PointerUp()
	r.TouchEnd([]Touch{{ID: 3}})
	r.KeyUp("a")
	r.MIDIMessage(0x80, 60, 0)
	if len(sink.events) != 0 {
		t.Fatalf("got %d events", len(sink.events))
	}
}

func TestTouchesAreIndependent(t *testing.T) {
	r, sink := newRouter(4)
	r.TouchStart([]Touch{{ID: 0, Pos: Point{0.1, 0.5}}, {ID: 1, Pos: Point{0.9, 0.5}}})
	r.TouchMove([]Touch{{ID: 1, Pos: Point{0.6, 0.5}}})
	r.TouchEnd([]Touch{{ID: 0}})

	// press 0, press 1, release 1 (cell 3), press 1 (cell 2), release 0
	if len(sink.events) != 5 {
		t.Fatalf("events = %d, want 5", len(sink.events))
	}
	last := sink.events[4]
	if last.ID != voice.Touch(0) || last.Phase != PhaseRelease {
		t.Fatalf("last event = %+v", last)
	}
	if r.Active() != 1 {
		t.Fatalf("active = %d, want 1", r.Active())
	}
}

func TestKeyRepeatIgnored(t *testing.T) {
	r, sink := newRouter(12)
	r.KeyDown("a")
	r.KeyDown("a")
	r.KeyDown("A")
	r.KeyUp("a")
	want := []Phase{PhasePress, PhaseRelease}
	if got := sink.phases(); !equalPhases(got, want) {
		t.Fatalf("phases = %v, want %v", got, want)
	}
	if sink.events[0].Cell != 0 {
		t.Fatalf("A mapped to cell %d", sink.events[0].Cell)
	}
}

func TestKeyBeyondLayoutIgnored(t *testing.T) {
	r, sink := newRouter(3)
	r.KeyDown("D") // index 4
	r.KeyDown("z")
	if len(sink.events) != 0 {
		t.Fatalf("got %+v", sink.events)
	}
}

func TestOctaveKeys(t *testing.T) {
	r, sink := newRouter(12)
	r.KeyDown("s")
	r.KeyDown("up")
	r.KeyDown("ArrowDown")
	if len(sink.shifts) != 2 || sink.shifts[0] != 1 || sink.shifts[1] != -1 {
		t.Fatalf("shifts = %v", sink.shifts)
	}
	if r.Active() != 0 {
		t.Fatalf("octave shift left %d gestures", r.Active())
	}
	// the key can sound again after the shift
	r.KeyDown("s")
	if n := len(sink.events); n != 2 {
		t.Fatalf("events = %d, want 2", n)
	}
}

func TestOctaveKeysKeepGesturesWithoutOctaves(t *testing.T) {
	sink := &logSink{fixed: true}
	r := NewRouter(stripLayout{n: 4, noKeys: true}, sink)

	r.PointerDown(Point{0.1, 0.5})
	r.TouchStart([]Touch{{ID: 3, Pos: Point{0.9, 0.5}}})
	r.KeyDown("up")
	if r.Active() != 2 {
		t.Fatalf("octave key dropped gestures: active = %d", r.Active())
	}

	r.PointerUp()
	r.TouchEnd([]Touch{{ID: 3}})
	want := []Phase{PhasePress, PhasePress, PhaseRelease, PhaseRelease}
	if got := sink.phases(); !equalPhases(got, want) {
		t.Fatalf("phases = %v, want %v", got, want)
	}
}

func TestKeyRowNeedsKeyCells(t *testing.T) {
	sink := &logSink{}
	r := NewRouter(stripLayout{n: 16, noKeys: true}, sink)
	r.KeyDown("a")
	r.KeyUp("a")
	if len(sink.events) != 0 {
		t.Fatalf("key row pressed %+v", sink.events)
	}
}

func TestMIDINoteOnOff(t *testing.T) {
	r, sink := newRouter(12)
	r.MIDIMessage(0x90, 62, 127)
	r.MIDIMessage(0x91, 62, 0)
	if len(sink.events) != 2 {
		t.Fatalf("events = %d", len(sink.events))
	}
	on := sink.events[0]
	if on.Cell != 2 || on.Velocity != 1 || on.Source != SourceMIDI {
		t.Fatalf("on = %+v", on)
	}
	if sink.events[1].Phase != PhaseRelease {
		t.Fatalf("velocity 0 note on did not release")
	}
}

func TestMIDIOutsideLayoutIgnored(t *testing.T) {
	r, sink := newRouter(12)
	r.MIDIMessage(0x90, 30, 100)
	r.MIDIMessage(0xB0, 1, 64)
	if len(sink.events) != 0 {
		t.Fatalf("got %+v", sink.events)
	}
}

func TestClosedRouterIgnoresInput(t *testing.T) {
	r, sink := newRouter(4)
	r.Close()
	r.PointerDown(Point{0.1, 0.1})
	r.KeyDown("a")
	r.MIDIMessage(0x90, 60, 100)
	if len(sink.events) != 0 {
		t.Fatalf("closed router emitted %d events", len(sink.events))
	}
}
