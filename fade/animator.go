// Package fade runs short per-cell color fades back to a resting color.
package fade

import (
	"sync"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"
)

const (
	DefaultDuration = 200 * time.Millisecond
	DefaultStep     = 20 * time.Millisecond
)

// ColorSetter receives interpolated colors.
type ColorSetter interface {
	SetCellColor(cell int, c colorful.Color)
}

type task struct {
	stop chan struct{}
}

// Animator owns at most one fade per cell. Starting a fade on a cell cancels
// the one already running there, and once Cancel returns the cancelled fade
// writes nothing more.
type Animator struct {
	mu       sync.Mutex
	tasks    map[int]*task
	out      ColorSetter
	rest     colorful.Color
	duration time.Duration
	step     time.Duration
	closed   bool
	wg       sync.WaitGroup
	log      *zap.Logger
}

type Option func(*Animator)

func WithTiming(duration, step time.Duration) Option {
	return func(a *Animator) {
		if duration > 0 && step > 0 {
			a.duration = duration
			a.step = step
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(a *Animator) {
		if log != nil {
			a.log = log.Named("fade")
		}
	}
}

func New(out ColorSetter, rest colorful.Color, opts ...Option) *Animator {
	a := &Animator{
		tasks:    make(map[int]*task),
		out:      out,
		rest:     rest,
		duration: DefaultDuration,
		step:     DefaultStep,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start fades cell from the given color to rest.
func (a *Animator) Start(cell int, from colorful.Color) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.cancelLocked(cell)

	t := &task{stop: make(chan struct{})}
	a.tasks[cell] = t
	a.wg.Add(1)
	go a.run(cell, t, from)
}

func (a *Animator) run(cell int, t *task, from colorful.Color) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.step)
	defer ticker.Stop()

	var elapsed time.Duration
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			elapsed += a.step
			factor := min(1, float64(elapsed)/float64(a.duration))
			if !a.write(cell, t, from.BlendRgb(a.rest, factor), factor >= 1) {
				return
			}
			if factor >= 1 {
				return
			}
		}
	}
}

// write applies one step if t is still the live task for cell.
func (a *Animator) write(cell int, t *task, c colorful.Color, last bool) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.tasks[cell] != t {
		return false
	}
	a.out.SetCellColor(cell, c)
	if last {
		delete(a.tasks, cell)
	}
	return true
}

// Cancel stops the fade on cell, leaving its color where it was. It reports
// whether a fade was running.
func (a *Animator) Cancel(cell int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancelLocked(cell)
}

func (a *Animator) cancelLocked(cell int) bool {
	t, ok := a.tasks[cell]
	if !ok {
		return false
	}
	close(t.stop)
	delete(a.tasks, cell)
	return true
}

// Pending returns the number of running fades.
func (a *Animator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.tasks)
}

// Close cancels every fade, waits for them to exit and refuses new ones.
func (a *Animator) Close() {
	a.mu.Lock()
	a.closed = true
	n := len(a.tasks)
	for cell := range a.tasks {
		a.cancelLocked(cell)
	}
	a.mu.Unlock()

	a.wg.Wait()
	if n > 0 {
		a.log.Debug("cancelled pending fades", zap.Int("count", n))
	}
}
