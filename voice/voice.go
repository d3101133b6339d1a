package voice

import "fmt"

// Kind says which input family an identifier belongs to.
type Kind uint8

const (
	KindPointer Kind = iota
	KindTouch
	KindKey
	KindNote
	KindRegion
)

var kindNames = [...]string{"pointer", "touch", "key", "note", "region"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ID names whatever owns a voice: a touch, a key, a MIDI note, a sampled
// region. It is comparable and cheap to build on every event.
type ID struct {
	Kind Kind
	N    int
}

func (id ID) String() string {
	return fmt.Sprintf("%s:%d", id.Kind, id.N)
}

func Pointer() ID     { return ID{Kind: KindPointer} }
func Touch(n int) ID  { return ID{Kind: KindTouch, N: n} }
func Key(n int) ID    { return ID{Kind: KindKey, N: n} }
func Note(n uint8) ID { return ID{Kind: KindNote, N: int(n)} }
func Region(n int) ID { return ID{Kind: KindRegion, N: n} }

// Params describe a note to start.
type Params struct {
	// Cell is the visual cell lit by this voice, -1 for none.
	Cell       int
	Pitch      float64 // Hz
	Volume     float64 // dB
	Modulation float64 // Hz
	Velocity   float64 // 0..1
}

// Voice is one slot of the pool.
type Voice struct {
	Slot  int
	ID    ID
	Bound bool
	Params

	// trigger sequence, larger is more recent
	triggered uint64
}
