// Package sampling reads a frame source on a tempo-driven tick, reduces each
// frame to one color triple per region and hands the result to its sinks.
package sampling

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go-sonify/debug"

	"go.uber.org/zap"
)

const (
	MinTempo     = 20
	MaxTempo     = 300
	DefaultTempo = 120
)

// Sink consumes one tick's samples. The slice is only valid during the
// call and must not be modified.
type Sink interface {
	Consume(tick uint64, samples []Sample)
}

// Interval is the length of one quarter note at bpm.
func Interval(bpm int) time.Duration {
	return time.Minute / time.Duration(ClampTempo(bpm))
}

func ClampTempo(bpm int) int {
	return max(MinTempo, min(MaxTempo, bpm))
}

type Loop struct {
	source  FrameSource
	sampler Sampler
	sinks   []Sink
	log     *zap.Logger
	tickLog *zap.Logger

	mu       sync.Mutex
	buf      []Sample
	ticks    uint64
	notReady uint64

	bpm     atomic.Int64
	retempo chan struct{}
}

type Option func(*Loop)

func WithLogger(log *zap.Logger) Option {
	return func(l *Loop) {
		if log != nil {
			l.log = log.Named("sampling")
		}
	}
}

func WithTempo(bpm int) Option {
	return func(l *Loop) {
		l.bpm.Store(int64(ClampTempo(bpm)))
	}
}

func NewLoop(source FrameSource, sampler Sampler, sinks []Sink, opts ...Option) *Loop {
	l := &Loop{
		source:  source,
		sampler: sampler,
		sinks:   sinks,
		log:     zap.NewNop(),
		retempo: make(chan struct{}, 1),
	}
	l.bpm.Store(DefaultTempo)
	for _, opt := range opts {
		opt(l)
	}
	l.tickLog = debug.Sampled(l.log, 100)
	return l
}

// SetTempo changes the tick rate of a running loop and returns the clamped
// tempo.
func (l *Loop) SetTempo(bpm int) int {
	bpm = ClampTempo(bpm)
	l.bpm.Store(int64(bpm))
	select {
	case l.retempo <- struct{}{}:
	default:
	}
	return bpm
}

func (l *Loop) Tempo() int {
	return int(l.bpm.Load())
}

// Ticks returns how many ticks produced samples.
func (l *Loop) Ticks() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ticks
}

// Tick runs one sampling pass. It returns false when no frame was ready.
func (l *Loop) Tick() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, ok := l.source.TryGetFrame()
	if !ok {
		l.notReady++
		l.tickLog.Debug("frame not ready", zap.Uint64("count", l.notReady))
		return false
	}

	l.buf = l.sampler.Sample(f, l.buf[:0])
	l.ticks++
	for _, s := range l.sinks {
		l.consume(s)
	}
	return true
}

func (l *Loop) consume(s Sink) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("sink panicked", zap.Uint64("tick", l.ticks), zap.String("panic", fmt.Sprint(r)))
		}
	}()
	s.Consume(l.ticks, l.buf)
}

// Run ticks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(Interval(l.Tempo()))
	defer ticker.Stop()

	l.log.Info("sampling started", zap.Int("bpm", l.Tempo()), zap.Int("regions", l.sampler.Regions()))
	for {
		select {
		case <-ctx.Done():
			l.log.Info("sampling stopped", zap.Uint64("ticks", l.Ticks()))
			return
		case <-l.retempo:
			ticker.Reset(Interval(l.Tempo()))
		case <-ticker.C:
			l.Tick()
		}
	}
}
