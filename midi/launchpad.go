package midi

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lucasb-eyer/go-colorful"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"go.uber.org/zap"
)

// LaunchpadController handles a Novation Launchpad X
type LaunchpadController struct {
	id       string
	outPort  drivers.Out
	inPort   drivers.In
	send     func(msg gomidi.Message) error
	stopFunc func()
	log      *zap.Logger
	sent     atomic.Uint64
	once     sync.Once

	padChan  chan PadEvent
	noteChan chan NoteEvent
}

// NewLaunchpadController creates and configures a Launchpad
func NewLaunchpadController(id string, inPort drivers.In, outPort drivers.Out, log *zap.Logger) (*LaunchpadController, error) {
	if log == nil {
		log = zap.NewNop()
	}
	lp := &LaunchpadController{
		id:       id,
		inPort:   inPort,
		outPort:  outPort,
		log:      log.Named("launchpad").With(zap.String("port", id)),
		padChan:  make(chan PadEvent, 64),
		noteChan: make(chan NoteEvent, 32),
	}

	// Open output
	if outPort != nil {
		send, err := gomidi.SendTo(outPort)
		if err != nil {
			return nil, fmt.Errorf("open output: %w", err)
		}
		lp.send = send

		// Send SysEx to switch to Programmer mode
		// F0 00 20 29 02 0C 00 7F F7
		lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x00, 0x7F}))

		// Set brightness to maximum (0-127)
		// F0 00 20 29 02 0C 08 <brightness> F7
		lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x08, 0x7F}))

		// Enable external LED feedback
		// F0 00 20 29 02 0C 0A 01 01 F7
		lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x0A, 0x01, 0x01}))
	}

	// Open input
	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, lp.handle)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		lp.stopFunc = stop
	}

	return lp, nil
}

// handle turns pad notes and top-row CCs into press/release events.
func (lp *LaunchpadController) handle(msg gomidi.Message, timestampms int32) {
	var channel, note, velocity uint8
	var cc, value uint8

	var evt PadEvent
	switch {
	case msg.GetNoteStart(&channel, &note, &velocity):
		row, col := noteToRowCol(note)
		if row < 0 {
			return
		}
		evt = PadEvent{Row: row, Col: col, Velocity: velocity, Pressed: true}
	case msg.GetNoteEnd(&channel, &note):
		row, col := noteToRowCol(note)
		if row < 0 {
			return
		}
		evt = PadEvent{Row: row, Col: col}
	case msg.GetControlChange(&channel, &cc, &value):
		// Top row buttons CC 91-98
		row, col := ccToRowCol(cc)
		if row < 0 {
			return
		}
		evt = PadEvent{Row: row, Col: col, Velocity: value, Pressed: value > 0}
	default:
		return
	}

	if !send(lp.padChan, evt) {
		lp.log.Warn("pad channel full, dropping event", zap.Int("row", evt.Row), zap.Int("col", evt.Col))
	}
}

func (lp *LaunchpadController) ID() string {
	return lp.id
}

func (lp *LaunchpadController) Type() ControllerType {
	return ControllerLaunchpad
}

func (lp *LaunchpadController) PadEvents() <-chan PadEvent {
	return lp.padChan
}

func (lp *LaunchpadController) NoteEvents() <-chan NoteEvent {
	return lp.noteChan // Launchpad doesn't send note events in the keyboard sense
}

// SetLEDBatch sends multiple LED updates using individual NoteOn messages
func (lp *LaunchpadController) SetLEDBatch(updates []LEDUpdate) error {
	if lp.send == nil || len(updates) == 0 {
		return nil
	}

	var firstErr error
	for _, u := range updates {
		note := rowColToNote(u.Row, u.Col)
		color := MapRGBToLaunchpad(u.Color)
		if err := lp.send(gomidi.NoteOn(u.Channel, note, color)); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	count := lp.sent.Add(uint64(len(updates)))
	if count%100 < uint64(len(updates)) {
		lp.log.Debug("led batch", zap.Uint64("count", count), zap.Int("batch", len(updates)))
	}
	return firstErr
}

// Launchpad X palette entries used for nearest-color mapping.
var launchpadPalette = []struct {
	velocity uint8
	color    colorful.Color
}{
	{0, rgb(0, 0, 0)},         // off
	{5, rgb(255, 0, 0)},       // red
	{6, rgb(255, 80, 80)},     // bright red
	{7, rgb(180, 60, 60)},     // dim red
	{9, rgb(255, 100, 0)},     // orange
	{11, rgb(180, 80, 40)},    // dim orange
	{13, rgb(255, 200, 0)},    // yellow
	{17, rgb(0, 180, 0)},      // green
	{19, rgb(0, 100, 0)},      // dim green
	{21, rgb(0, 255, 0)},      // bright green
	{37, rgb(0, 200, 200)},    // cyan
	{43, rgb(40, 60, 120)},    // dim blue
	{45, rgb(0, 100, 255)},    // blue
	{47, rgb(80, 150, 255)},   // bright blue
	{49, rgb(150, 0, 200)},    // purple
	{53, rgb(255, 80, 180)},   // pink
	{78, rgb(100, 100, 255)},  // light blue
	{84, rgb(255, 150, 50)},   // bright orange
	{87, rgb(150, 255, 100)},  // lime
	{97, rgb(180, 180, 60)},   // dim yellow
	{103, rgb(51, 51, 51)},    // dark grey
	{119, rgb(255, 255, 255)}, // white
}

func rgb(r, g, b uint8) colorful.Color {
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

// MapRGBToLaunchpad finds the perceptually nearest palette velocity.
func MapRGBToLaunchpad(c [3]uint8) uint8 {
	target := rgb(c[0], c[1], c[2])
	best := launchpadPalette[0].velocity
	bestDist := target.DistanceLab(launchpadPalette[0].color)
	for _, p := range launchpadPalette[1:] {
		if d := target.DistanceLab(p.color); d < bestDist {
			bestDist = d
			best = p.velocity
		}
	}
	return best
}

func (lp *LaunchpadController) Close() error {
	lp.once.Do(func() {
		// Clear all LEDs on close via batch
		if lp.send != nil {
			var updates []LEDUpdate
			for row := 0; row < 9; row++ {
				for col := 0; col < 9; col++ {
					if row == 8 && col == 8 {
						continue // no LED at 8,8
					}
					updates = append(updates, LEDUpdate{Row: row, Col: col})
				}
			}
			lp.SetLEDBatch(updates)
		}
		if lp.stopFunc != nil {
			lp.stopFunc()
		}
		close(lp.padChan)
		close(lp.noteChan)
	})
	return nil
}

// Launchpad X note mapping
// 8x8 Grid:  Row 0 (bottom) = notes 11-18, Row 7 = notes 81-88
// Side col:  Col 8 (right side scene buttons) = notes 19, 29, 39, 49, 59, 69, 79, 89
// Top row:   Row 8 (top control row) = CC 91-98 (handled via CC messages)

func rowColToNote(row, col int) uint8 {
	// Top row uses CC, but for LED control we use notes 91-98
	if row == 8 {
		return uint8(91 + col)
	}
	return uint8((row+1)*10 + col + 1)
}

func noteToRowCol(note uint8) (row, col int) {
	// Top row notes (91-98)
	if note >= 91 && note <= 98 {
		return 8, int(note - 91)
	}
	row = int(note/10) - 1
	col = int(note%10) - 1
	// Accept 8x8 grid (rows 0-7, cols 0-7) plus side column (col 8)
	if row < 0 || row > 7 || col < 0 || col > 8 {
		return -1, -1
	}
	return row, col
}

// ccToRowCol converts CC messages to row/col (for top row buttons)
func ccToRowCol(cc uint8) (row, col int) {
	if cc >= 91 && cc <= 98 {
		return 8, int(cc - 91)
	}
	return -1, -1
}
