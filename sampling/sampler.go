package sampling

import "math"

// Sample is the color read from one region on one tick. X and Y are the
// region center, normalized to [0, 1].
type Sample struct {
	Region  int
	R, G, B float64
	X, Y    float64
}

// Sampler partitions a frame into regions and reads one triple from each.
type Sampler interface {
	Regions() int
	// Sample appends one Sample per region to dst.
	Sample(f *Frame, dst []Sample) []Sample
}

// PointGrid reads single pixels on a centered square lattice.
type PointGrid struct {
	Points int
	// Mirror flips both axes, for front-facing cameras.
	Mirror bool
}

func (g PointGrid) Regions() int {
	return g.Points
}

// lattice returns the pixel centers of the grid over a w x h frame.
func (g PointGrid) lattice(w, h int) (size int, startX, startY, stepX, stepY float64) {
	size = int(math.Ceil(math.Sqrt(float64(g.Points))))
	stepX = float64(w) / float64(size+1)
	stepY = float64(h) / float64(size+1)
	startX = (float64(w) - stepX*float64(size-1)) / 2
	startY = (float64(h) - stepY*float64(size-1)) / 2
	return
}

func (g PointGrid) Sample(f *Frame, dst []Sample) []Sample {
	if f.empty() || g.Points < 1 {
		return dst
	}
	size, startX, startY, stepX, stepY := g.lattice(f.Width, f.Height)
	for i := 0; i < g.Points; i++ {
		x := startX + float64(i%size)*stepX
		y := startY + float64(i/size)*stepY
		px := clampInt(int(x), f.Width)
		py := clampInt(int(y), f.Height)
		if g.Mirror {
			px = f.Width - 1 - px
			py = f.Height - 1 - py
		}
		r, gg, b := f.At(px, py)
		dst = append(dst, Sample{
			Region: i,
			R:      float64(r),
			G:      float64(gg),
			B:      float64(b),
			X:      x / float64(f.Width),
			Y:      y / float64(f.Height),
		})
	}
	return dst
}

// BlockAverage averages every pixel of each block of a Cols x Rows
// partition. Regions are numbered row by row.
type BlockAverage struct {
	Cols, Rows int
	// Count limits the regions sampled when the grid has spare blocks.
	Count int
}

// NewBlockGrid partitions into n blocks on a near-square grid.
func NewBlockGrid(n int) BlockAverage {
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols
	return BlockAverage{Cols: cols, Rows: rows, Count: n}
}

// NewStrip partitions into n full-height columns.
func NewStrip(n int) BlockAverage {
	return BlockAverage{Cols: n, Rows: 1}
}

func (a BlockAverage) Regions() int {
	if a.Count > 0 && a.Count < a.Cols*a.Rows {
		return a.Count
	}
	return a.Cols * a.Rows
}

func (a BlockAverage) Sample(f *Frame, dst []Sample) []Sample {
	if f.empty() || a.Cols < 1 || a.Rows < 1 {
		return dst
	}
	for i := 0; i < a.Regions(); i++ {
		col, row := i%a.Cols, i/a.Cols
		x0, x1 := span(col, a.Cols, f.Width)
		y0, y1 := span(row, a.Rows, f.Height)

		var sr, sg, sb float64
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				r, g, b := f.At(x, y)
				sr += float64(r)
				sg += float64(g)
				sb += float64(b)
			}
		}
		n := float64(max(1, (x1-x0)*(y1-y0)))
		dst = append(dst, Sample{
			Region: i,
			R:      sr / n,
			G:      sg / n,
			B:      sb / n,
			X:      (float64(x0+x1) / 2) / float64(f.Width),
			Y:      (float64(y0+y1) / 2) / float64(f.Height),
		})
	}
	return dst
}

// span returns the pixel range of part i of n over length, never empty.
func span(i, n, length int) (lo, hi int) {
	lo = i * length / n
	hi = (i + 1) * length / n
	if hi <= lo {
		hi = min(length, lo+1)
		lo = hi - 1
	}
	return lo, hi
}

func clampInt(v, n int) int {
	return max(0, min(n-1, v))
}
