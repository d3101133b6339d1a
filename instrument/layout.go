package instrument

import (
	"math"
	"sync"

	"go-sonify/input"
	"go-sonify/mapper"
	"go-sonify/visual"

	"github.com/lucasb-eyer/go-colorful"
)

// Layout places the cells of an instrument on the surface and names the
// pitch and hue each one plays.
type Layout interface {
	input.Layout
	Frequency(cell int) float64
	Hue(cell int) float64
	Rest() colorful.Color
	Place(r visual.Renderer)
}

const (
	MaxOctave = 8

	blackKeyWidth  = 0.65
	blackKeyHeight = 0.45
)

// semitone offsets of the white keys in an octave
var whiteSemitones = [7]int{0, 2, 4, 5, 7, 9, 11}

type keyShape struct {
	x, w, h float64
	black   bool
}

// Keyboard is a piano of Octaves octaves. Cell i plays MIDI note
// 12*(base+1)+i, so base octave 4 starts on middle C.
type Keyboard struct {
	mu      sync.RWMutex
	octaves int
	base    int
	keys    []keyShape
}

func NewKeyboard(octaves, base int) *Keyboard {
	octaves = max(1, min(MaxOctave, octaves))
	k := &Keyboard{octaves: octaves}
	k.base = k.clampBase(base)

	white := 1 / float64(7*octaves)
	whites := 0
	for i := 0; i < 12*octaves; i++ {
		semi := i % 12
		if isWhite(semi) {
			k.keys = append(k.keys, keyShape{x: float64(whites) * white, w: white, h: 1})
			whites++
			continue
		}
		// black keys straddle the boundary after the previous white key
		bw := white * blackKeyWidth
		k.keys = append(k.keys, keyShape{x: float64(whites)*white - bw/2, w: bw, h: blackKeyHeight, black: true})
	}
	return k
}

func isWhite(semi int) bool {
	for _, s := range whiteSemitones {
		if s == semi {
			return true
		}
	}
	return false
}

func (k *Keyboard) clampBase(base int) int {
	return max(0, min(MaxOctave-k.octaves, base))
}

func (k *Keyboard) NumCells() int {
	return len(k.keys)
}

// KeyCells lets the key row play every key.
func (k *Keyboard) KeyCells() int {
	return len(k.keys)
}

func (k *Keyboard) Octaves() int {
	return k.octaves
}

// Base returns the current base octave.
func (k *Keyboard) Base() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.base
}

// ShiftOctave moves the base octave by delta within range and reports
// whether it moved.
func (k *Keyboard) ShiftOctave(delta int) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	next := k.clampBase(k.base + delta)
	if next == k.base {
		return false
	}
	k.base = next
	return true
}

// Note returns the MIDI note of cell.
func (k *Keyboard) Note(cell int) mapper.Note {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return mapper.Note(12*(k.base+1) + cell)
}

func (k *Keyboard) Frequency(cell int) float64 {
	return k.Note(cell).Frequency()
}

func (k *Keyboard) Hue(cell int) float64 {
	return mapper.PitchClassHue(k.Frequency(cell))
}

func (k *Keyboard) Rest() colorful.Color {
	return visual.KeyRest
}

// CellAt finds the key under p. Black keys sit on top of white keys.
func (k *Keyboard) CellAt(p input.Point) (int, bool) {
	if p.X < 0 || p.X >= 1 || p.Y < 0 || p.Y >= 1 {
		return 0, false
	}
	for i, s := range k.keys {
		if s.black && p.Y < s.h && p.X >= s.x && p.X < s.x+s.w {
			return i, true
		}
	}
	for i, s := range k.keys {
		if !s.black && p.X >= s.x && p.X < s.x+s.w {
			return i, true
		}
	}
	return 0, false
}

// CellForFrequency matches freq against the current key frequencies.
func (k *Keyboard) CellForFrequency(freq float64) (int, bool) {
	for i := range k.keys {
		if math.Abs(k.Frequency(i)-freq) < 1e-6 {
			return i, true
		}
	}
	return 0, false
}

// IsBlack reports whether cell is a black key.
func (k *Keyboard) IsBlack(cell int) bool {
	return cell >= 0 && cell < len(k.keys) && k.keys[cell].black
}

func (k *Keyboard) Place(r visual.Renderer) {
	for i, s := range k.keys {
		r.SetCellTransform(i, visual.Vec{X: s.x + s.w/2, Y: s.h / 2}, visual.Vec{X: s.w, Y: s.h})
	}
}

// Grid is the theremin touch surface. Row 0 is the bottom row; both axes
// raise the pitch.
type Grid struct {
	Cols, Rows int
}

func NewGrid(cols, rows int) Grid {
	return Grid{Cols: max(1, cols), Rows: max(1, rows)}
}

func (g Grid) NumCells() int {
	return g.Cols * g.Rows
}

// KeyCells is zero: the grid is played by position only.
func (g Grid) KeyCells() int {
	return 0
}

func (g Grid) cell(col, row int) int {
	return row*g.Cols + col
}

func (g Grid) coords(cell int) (col, row int) {
	return cell % g.Cols, cell / g.Cols
}

func (g Grid) CellAt(p input.Point) (int, bool) {
	if p.X < 0 || p.X >= 1 || p.Y < 0 || p.Y >= 1 {
		return 0, false
	}
	col := min(g.Cols-1, int(p.X*float64(g.Cols)))
	row := g.Rows - 1 - min(g.Rows-1, int(p.Y*float64(g.Rows)))
	return g.cell(col, row), true
}

// CellForFrequency is unsupported: many cells share a frequency.
func (g Grid) CellForFrequency(float64) (int, bool) {
	return 0, false
}

func (g Grid) Frequency(cell int) float64 {
	col, row := g.coords(cell)
	return mapper.GridFrequency(col, row, g.Cols, g.Rows)
}

func (g Grid) Hue(cell int) float64 {
	return mapper.FrequencyToHue(g.Frequency(cell), mapper.GridMinFrequency, mapper.GridMinFrequency+mapper.GridSpan)
}

func (g Grid) Rest() colorful.Color {
	return visual.Black
}

func (g Grid) Place(r visual.Renderer) {
	w, h := 1/float64(g.Cols), 1/float64(g.Rows)
	for cell := 0; cell < g.NumCells(); cell++ {
		col, row := g.coords(cell)
		pos := visual.Vec{X: (float64(col) + 0.5) * w, Y: 1 - (float64(row)+0.5)*h}
		r.SetCellTransform(cell, pos, visual.Vec{X: w, Y: h})
	}
}

// regions is the camera layout: the sampler owns every cell and pointer
// input lands nowhere.
type regions int

func (n regions) NumCells() int                        { return int(n) }
func (n regions) KeyCells() int                        { return 0 }
func (n regions) CellAt(input.Point) (int, bool)       { return 0, false }
func (n regions) CellForFrequency(float64) (int, bool) { return 0, false }
func (n regions) Frequency(int) float64                { return 0 }
func (n regions) Hue(int) float64                      { return 0 }
func (n regions) Rest() colorful.Color                 { return visual.Black }
func (n regions) Place(visual.Renderer)                {}
