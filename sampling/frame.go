package sampling

import (
	"image"
	"image/draw"
	"sync"
)

// Frame is an RGBA pixel grid, 4 bytes per pixel, rows top to bottom.
type Frame struct {
	Width, Height int
	Pix           []uint8
}

func NewFrame(w, h int) *Frame {
	return &Frame{Width: w, Height: h, Pix: make([]uint8, 4*w*h)}
}

// At returns the channels of pixel (x, y), which must be in bounds.
func (f *Frame) At(x, y int) (r, g, b uint8) {
	i := 4 * (y*f.Width + x)
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

func (f *Frame) Set(x, y int, r, g, b uint8) {
	i := 4 * (y*f.Width + x)
	f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3] = r, g, b, 255
}

func (f *Frame) empty() bool {
	return f == nil || f.Width <= 0 || f.Height <= 0 || len(f.Pix) < 4*f.Width*f.Height
}

// FrameFromImage copies img into a Frame.
func FrameFromImage(img image.Image) *Frame {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return &Frame{Width: b.Dx(), Height: b.Dy(), Pix: rgba.Pix}
}

// FrameSource hands out the most recent frame. ok is false until a frame
// is available.
type FrameSource interface {
	TryGetFrame() (f *Frame, ok bool)
}

// LatestSource holds the last frame pushed by a producer such as a capture
// goroutine.
type LatestSource struct {
	mu    sync.RWMutex
	frame *Frame
}

func (s *LatestSource) Push(f *Frame) {
	s.mu.Lock()
	s.frame = f
	s.mu.Unlock()
}

func (s *LatestSource) TryGetFrame() (*Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.frame.empty() {
		return nil, false
	}
	return s.frame, true
}
