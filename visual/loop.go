package visual

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultFPS = 30

// Display draws a committed surface snapshot.
type Display interface {
	Draw(cells []Cell) error
}

// Loop flushes the surface to every display at a fixed rate, skipping ticks
// where nothing changed.
type Loop struct {
	surface *Surface
	fps     int
	log     *zap.Logger

	mu       sync.Mutex
	displays []Display
	drawn    uint64
	buf      []Cell
}

type LoopOption func(*Loop)

func WithFPS(fps int) LoopOption {
	return func(l *Loop) {
		if fps > 0 {
			l.fps = fps
		}
	}
}

func WithLoopLogger(log *zap.Logger) LoopOption {
	return func(l *Loop) {
		if log != nil {
			l.log = log.Named("render")
		}
	}
}

func NewLoop(s *Surface, opts ...LoopOption) *Loop {
	l := &Loop{surface: s, fps: DefaultFPS, log: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Add attaches a display; it is drawn in full on the next tick.
func (l *Loop) Add(d Display) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.displays = append(l.displays, d)
	l.drawn = 0
}

// Remove detaches a display.
func (l *Loop) Remove(d Display) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, x := range l.displays {
		if x == d {
			l.displays = append(l.displays[:i], l.displays[i+1:]...)
			return
		}
	}
}

// Run ticks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(l.fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Flush()
		}
	}
}

// Flush draws if the surface changed since the last draw and reports
// whether it did.
func (l *Loop) Flush() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.surface.Version() == l.drawn {
		return false
	}
	var version uint64
	l.buf, version = l.surface.Snapshot(l.buf)
	for _, d := range l.displays {
		l.draw(d)
	}
	l.drawn = version
	return true
}

func (l *Loop) draw(d Display) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("display panicked", zap.String("panic", fmt.Sprint(r)))
		}
	}()
	if err := d.Draw(l.buf); err != nil {
		l.log.Warn("draw failed", zap.Error(err))
	}
}
