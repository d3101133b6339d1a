package instrument

import (
	"go-sonify/effects"
	"go-sonify/input"
	"go-sonify/midi"
	"go-sonify/visual"

	"go.uber.org/zap"
)

// padTouchBase keeps pad touch ids clear of platform touch ids.
const padTouchBase = 1 << 16

// top row buttons of a Launchpad
const (
	topRow     = midi.GridSize
	topOctUp   = 0
	topOctDown = 1
	topFirstFX = 4
	padSideCol = midi.GridSize
)

// Attach starts feeding a controller's input into the instrument. Launchpad
// pads act as touches and their LEDs mirror the surface; keyboards play by
// note. Input stops when the controller's channels close or on Destruct.
func (i *Instrument) Attach(c midi.Controller) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.destructed {
		return
	}
	log := i.log.With(zap.String("controller", c.ID()))

	switch c.Type() {
	case midi.ControllerLaunchpad:
		if _, ok := i.pads[c.ID()]; ok {
			return
		}
		pad := visual.NewLaunchpadDisplay(c, i.surface.Rest())
		i.pads[c.ID()] = pad
		i.render.Add(pad)
		i.wg.Add(1)
		go i.pumpPads(c)
	case midi.ControllerKeyboard:
		i.wg.Add(1)
		go i.pumpNotes(c)
	default:
		log.Debug("controller ignored")
		return
	}
	log.Info("controller attached", zap.Stringer("type", c.Type()))
}

// Detach stops mirroring to a controller that went away.
func (i *Instrument) Detach(id string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if pad, ok := i.pads[id]; ok {
		i.render.Remove(pad)
		delete(i.pads, id)
	}
}

// padPoint is the surface position of a pad center; pad row 0 is the bottom.
func padPoint(row, col int) input.Point {
	return input.Point{
		X: (float64(col) + 0.5) / midi.GridSize,
		Y: 1 - (float64(row)+0.5)/midi.GridSize,
	}
}

func (i *Instrument) pumpPads(c midi.Controller) {
	defer i.wg.Done()
	events := c.PadEvents()
	for {
		select {
		case <-i.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			i.handlePad(ev)
		}
	}
}

func (i *Instrument) handlePad(ev midi.PadEvent) {
	if ev.Row == topRow {
		if ev.Pressed {
			i.handleTopRow(ev.Col)
		}
		return
	}
	if ev.Col >= padSideCol {
		return
	}
	t := []input.Touch{{ID: padTouchBase + ev.Row*midi.GridSize + ev.Col, Pos: padPoint(ev.Row, ev.Col)}}
	if ev.Pressed {
		i.input.TouchStart(t)
	} else {
		i.input.TouchEnd(t)
	}
}

func (i *Instrument) handleTopRow(col int) {
	switch {
	case col == topOctUp:
		i.input.KeyDown("up")
	case col == topOctDown:
		i.input.KeyDown("down")
	case col >= topFirstFX && col < topFirstFX+len(effects.Kinds()):
		k := effects.Kinds()[col-topFirstFX]
		on := i.ToggleEffect(k)
		i.log.Info("effect toggled", zap.Stringer("effect", k), zap.Bool("enabled", on))
	}
}

func (i *Instrument) pumpNotes(c midi.Controller) {
	defer i.wg.Done()
	events := c.NoteEvents()
	for {
		select {
		case <-i.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			i.input.MIDIMessage(ev.Status|ev.Channel, ev.Note, ev.Velocity)
		}
	}
}
