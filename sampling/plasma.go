package sampling

import (
	"math"
	"sync"
	"time"
)

// PlasmaSource renders an animated plasma through a palette. It stands in
// for a camera.
type PlasmaSource struct {
	mu     sync.Mutex
	frame  *Frame
	lookup func(float64) [3]uint8
	start  time.Time
	now    func() time.Time
}

// NewPlasmaSource returns a w x h source; lookup maps [0, 1] to a color.
func NewPlasmaSource(w, h int, lookup func(float64) [3]uint8) *PlasmaSource {
	return &PlasmaSource{
		frame:  NewFrame(w, h),
		lookup: lookup,
		start:  time.Now(),
		now:    time.Now,
	}
}

func (p *PlasmaSource) TryGetFrame() (*Frame, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.frame.empty() {
		return nil, false
	}
	t := p.now().Sub(p.start).Seconds()
	p.render(t)
	return p.frame, true
}

func (p *PlasmaSource) render(t float64) {
	f := p.frame
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			fx, fy := float64(x), float64(y)
			v := math.Sin(fx*0.11+t) +
				math.Sin(fy*0.13-t*1.3) +
				math.Sin((fx+fy)*0.07+t*0.7) +
				math.Sin(math.Hypot(fx-float64(f.Width)/2, fy-float64(f.Height)/2)*0.15-t)
			c := p.lookup((v + 4) / 8)
			f.Set(x, y, c[0], c[1], c[2])
		}
	}
}
