package visual

import (
	"go-sonify/midi"

	"github.com/lucasb-eyer/go-colorful"
)

// LEDSink accepts batched pad color updates.
type LEDSink interface {
	SetLEDBatch(updates []midi.LEDUpdate) error
}

// LaunchpadDisplay mirrors the surface on an 8x8 pad grid, sending only pads
// whose color changed.
type LaunchpadDisplay struct {
	leds LEDSink
	rest colorful.Color
	prev map[[2]int][3]uint8
}

func NewLaunchpadDisplay(leds LEDSink, rest colorful.Color) *LaunchpadDisplay {
	return &LaunchpadDisplay{
		leds: leds,
		rest: rest,
		prev: make(map[[2]int][3]uint8),
	}
}

func (d *LaunchpadDisplay) Draw(cells []Cell) error {
	grid := Downsample(cells, midi.GridSize, midi.GridSize, d.rest)

	var updates []midi.LEDUpdate
	for y, line := range grid {
		// pad row 0 is the bottom row
		row := midi.GridSize - 1 - y
		for col, c := range line {
			r, g, b := c.Clamped().RGB255()
			rgb := [3]uint8{r, g, b}
			key := [2]int{row, col}
			if prev, ok := d.prev[key]; ok && prev == rgb {
				continue
			}
			d.prev[key] = rgb
			updates = append(updates, midi.LEDUpdate{Row: row, Col: col, Color: rgb})
		}
	}
	if len(updates) == 0 {
		return nil
	}
	return d.leds.SetLEDBatch(updates)
}

// Clear turns every pad off and forgets the diff state.
func (d *LaunchpadDisplay) Clear() error {
	var updates []midi.LEDUpdate
	for row := 0; row < midi.GridSize; row++ {
		for col := 0; col < midi.GridSize; col++ {
			updates = append(updates, midi.LEDUpdate{Row: row, Col: col})
		}
	}
	d.prev = make(map[[2]int][3]uint8)
	return d.leds.SetLEDBatch(updates)
}
