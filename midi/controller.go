package midi

// ControllerType identifies the kind of controller
type ControllerType int

const (
	ControllerUnknown ControllerType = iota
	ControllerLaunchpad
	ControllerKeyboard
)

func (t ControllerType) String() string {
	switch t {
	case ControllerLaunchpad:
		return "launchpad"
	case ControllerKeyboard:
		return "keyboard"
	}
	return "unknown"
}

// GridSize is the side of the Launchpad main pad grid.
const GridSize = 8

// PadEvent is sent when a pad/button is pressed or released on a grid
// controller
type PadEvent struct {
	Row, Col int
	Velocity uint8
	Pressed  bool
}

// NoteEvent is a note on or note off from a keyboard
type NoteEvent struct {
	Status   uint8 // NoteOn or NoteOff
	Note     uint8
	Velocity uint8
	Channel  uint8
}

// LEDUpdate sets one pad color
type LEDUpdate struct {
	Row, Col int
	Color    [3]uint8
	Channel  uint8
}

// Controller is the interface for MIDI input devices
type Controller interface {
	ID() string
	Type() ControllerType

	// Input events from the controller
	PadEvents() <-chan PadEvent   // For grid controllers (Launchpad)
	NoteEvents() <-chan NoteEvent // For keyboards

	// Output to the controller
	SetLEDBatch(updates []LEDUpdate) error

	// Lifecycle
	Close() error
}

// Channel modes for LEDUpdate
const (
	ChannelStatic uint8 = 0 // solid color
	ChannelFlash  uint8 = 1 // flashing A/B alternating
	ChannelPulse  uint8 = 2 // pulsing (fades)
)
