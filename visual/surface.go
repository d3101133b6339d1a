// Package visual holds the committed per-cell visual state and pushes it to
// displays on a fixed render tick.
package visual

import (
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// Vec is a point or scale in normalized render space: x right, y down,
// both in [0, 1] for on-surface positions.
type Vec struct {
	X, Y float64
}

// Cell is the drawable state of one cell.
type Cell struct {
	Pos   Vec
	Scale Vec
	Color colorful.Color
}

// Renderer is the write side of visual feedback. Calls are fire-and-forget
// and may come from any goroutine.
type Renderer interface {
	SetCellTransform(cell int, pos, scale Vec)
	SetCellColor(cell int, c colorful.Color)
}

// Surface is the in-memory Renderer. Writes land in the committed state;
// readers take snapshots on the render tick.
type Surface struct {
	mu      sync.RWMutex
	cells   []Cell
	rest    colorful.Color
	version uint64
}

func NewSurface(n int, rest colorful.Color) *Surface {
	s := &Surface{rest: rest}
	s.Reset(n)
	return s
}

// Reset resizes the surface to n cells, all at rest with unit scale.
func (s *Surface) Reset(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cells = make([]Cell, max(0, n))
	for i := range s.cells {
		s.cells[i] = Cell{Scale: Vec{1, 1}, Color: s.rest}
	}
	s.version++
}

func (s *Surface) Rest() colorful.Color {
	return s.rest
}

func (s *Surface) SetCellTransform(cell int, pos, scale Vec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cell < 0 || cell >= len(s.cells) {
		return
	}
	c := &s.cells[cell]
	if c.Pos == pos && c.Scale == scale {
		return
	}
	c.Pos = pos
	c.Scale = scale
	s.version++
}

func (s *Surface) SetCellColor(cell int, col colorful.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cell < 0 || cell >= len(s.cells) {
		return
	}
	if s.cells[cell].Color == col {
		return
	}
	s.cells[cell].Color = col
	s.version++
}

// Color returns the committed color of cell.
func (s *Surface) Color(cell int) (colorful.Color, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cell < 0 || cell >= len(s.cells) {
		return colorful.Color{}, false
	}
	return s.cells[cell].Color, true
}

// Version increments on every change.
func (s *Surface) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot copies the cells into dst (reallocating if needed) and returns it
// with the version it reflects.
func (s *Surface) Snapshot(dst []Cell) ([]Cell, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dst = append(dst[:0], s.cells...)
	return dst, s.version
}

// Downsample bins cells by position onto a cols x rows grid, keeping the
// brightest color per bin. Empty bins get rest.
func Downsample(cells []Cell, cols, rows int, rest colorful.Color) [][]colorful.Color {
	grid := make([][]colorful.Color, rows)
	filled := make([][]bool, rows)
	for r := range grid {
		grid[r] = make([]colorful.Color, cols)
		filled[r] = make([]bool, cols)
		for c := range grid[r] {
			grid[r][c] = rest
		}
	}
	if cols < 1 || rows < 1 {
		return grid
	}
	for _, cell := range cells {
		col := bin(cell.Pos.X, cols)
		row := bin(cell.Pos.Y, rows)
		if !filled[row][col] || brightness(cell.Color) > brightness(grid[row][col]) {
			grid[row][col] = cell.Color
			filled[row][col] = true
		}
	}
	return grid
}

func bin(v float64, n int) int {
	return max(0, min(n-1, int(v*float64(n))))
}
