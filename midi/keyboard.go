package midi

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"go.uber.org/zap"
)

// KeyboardController handles a standard MIDI keyboard
type KeyboardController struct {
	id       string
	inPort   drivers.In
	stopFunc func()
	log      *zap.Logger
	once     sync.Once

	padChan  chan PadEvent
	noteChan chan NoteEvent
}

// NewKeyboardController creates a keyboard controller (input only)
func NewKeyboardController(id string, inPort drivers.In, log *zap.Logger) (*KeyboardController, error) {
	if log == nil {
		log = zap.NewNop()
	}
	kb := &KeyboardController{
		id:       id,
		inPort:   inPort,
		log:      log.Named("keyboard").With(zap.String("port", id)),
		padChan:  make(chan PadEvent, 32),
		noteChan: make(chan NoteEvent, 32),
	}

	// Open input
	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, kb.handle)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		kb.stopFunc = stop
	}

	return kb, nil
}

func (kb *KeyboardController) handle(msg gomidi.Message, timestampms int32) {
	var channel, note, velocity uint8
	var evt NoteEvent
	switch {
	case msg.GetNoteStart(&channel, &note, &velocity):
		evt = NoteEvent{Status: NoteOn, Note: note, Velocity: velocity, Channel: channel}
	case msg.GetNoteEnd(&channel, &note):
		evt = NoteEvent{Status: NoteOff, Note: note, Channel: channel}
	default:
		return
	}
	if !send(kb.noteChan, evt) {
		kb.log.Warn("note channel full, dropping event", zap.Uint8("note", note))
	}
}

func (kb *KeyboardController) ID() string {
	return kb.id
}

func (kb *KeyboardController) Type() ControllerType {
	return ControllerKeyboard
}

func (kb *KeyboardController) PadEvents() <-chan PadEvent {
	return kb.padChan // Keyboards don't have pads
}

func (kb *KeyboardController) NoteEvents() <-chan NoteEvent {
	return kb.noteChan
}

// SetLEDBatch is a no-op for keyboards
func (kb *KeyboardController) SetLEDBatch(updates []LEDUpdate) error {
	return nil
}

func (kb *KeyboardController) Close() error {
	kb.once.Do(func() {
		if kb.stopFunc != nil {
			kb.stopFunc()
		}
		close(kb.padChan)
		close(kb.noteChan)
	})
	return nil
}
