package visual

import (
	"fmt"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

const (
	SOF0        = 0xAA
	SOF1        = 0x55
	CmdSetStrip = 0x20
	CmdClear    = 0x21

	// MaxStripLEDs keeps LEN within one byte: 1 cmd + 1 seq + 3 per LED.
	MaxStripLEDs = 84
)

// StripFrame is the full color state of an LED strip.
type StripFrame struct {
	Seq    byte
	Colors [][3]uint8
}

// Encode builds the on-wire representation:
//
//	[SOF0][SOF1][LEN][CMD][Seq][R G B]...[CKS]
//
// LEN counts CMD and payload; CKS is the XOR of LEN, CMD and payload.
func (f *StripFrame) Encode() []byte {
	payload := make([]byte, 0, 1+3*len(f.Colors))
	payload = append(payload, f.Seq)
	for _, c := range f.Colors {
		payload = append(payload, c[0], c[1], c[2])
	}
	return encode(CmdSetStrip, payload)
}

func encode(cmd byte, payload []byte) []byte {
	length := byte(len(payload) + 1) // +1 for CMD byte
	cks := length ^ cmd
	for _, b := range payload {
		cks ^= b
	}
	out := []byte{SOF0, SOF1, length, cmd}
	out = append(out, payload...)
	out = append(out, cks)
	return out
}

// SerialDisplay mirrors the surface on an LED strip driven by a
// microcontroller on a serial port. Each LED shows the brightest cell in its
// horizontal band.
type SerialDisplay struct {
	mu   sync.Mutex
	port serial.Port
	leds int
	rest colorful.Color
	seq  byte
	last []byte
	log  *zap.Logger
}

// OpenSerialDisplay opens name at baud for a strip of leds LEDs.
func OpenSerialDisplay(name string, baud, leds int, rest colorful.Color, log *zap.Logger) (*SerialDisplay, error) {
	if leds < 1 || leds > MaxStripLEDs {
		return nil, fmt.Errorf("strip length %d not in [1, %d]", leds, MaxStripLEDs)
	}
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("serial")
	log.Info("port opened", zap.String("device", name), zap.Int("baud", baud))
	return &SerialDisplay{port: p, leds: leds, rest: rest, log: log}, nil
}

// StripColors reduces cells to one color per LED.
func StripColors(cells []Cell, leds int, rest colorful.Color) [][3]uint8 {
	grid := Downsample(cells, leds, 1, rest)
	out := make([][3]uint8, leds)
	for i, c := range grid[0] {
		r, g, b := c.Clamped().RGB255()
		out[i] = [3]uint8{r, g, b}
	}
	return out
}

func (d *SerialDisplay) Draw(cells []Cell) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	colors := StripColors(cells, d.leds, d.rest)
	frame := StripFrame{Seq: d.seq, Colors: colors}
	data := frame.Encode()
	// skip identical payloads; the seq byte is excluded from the comparison
	if d.last != nil && string(data[5:len(data)-1]) == string(d.last[5:len(d.last)-1]) {
		return nil
	}
	if _, err := d.port.Write(data); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	d.seq++
	d.last = data
	return nil
}

// Close blanks the strip and closes the port.
func (d *SerialDisplay) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log.Info("closing port")
	if _, err := d.port.Write(encode(CmdClear, nil)); err != nil {
		d.log.Warn("clear failed", zap.Error(err))
	}
	return d.port.Close()
}
