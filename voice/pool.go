// Package voice owns the fixed set of sound-producing slots and binds them to
// input identifiers.
package voice

import (
	"errors"
	"fmt"
	"sync"

	"go-sonify/engine"
	"go-sonify/failure"

	"go.uber.org/zap"
)

var (
	ErrNoFreeVoice = errors.New("no free voice")
	ErrClosed      = errors.New("voice pool closed")
	ErrPoolSize    = errors.New("voice pool size must be positive")
)

// Mode selects how slots are chosen.
type Mode int

const (
	// Dedicated gives each identifier its own slot and refuses new ones
	// when every slot is taken.
	Dedicated Mode = iota
	// Shared prefers slot N % size and steals the least recently
	// triggered voice when nothing is free.
	Shared
)

func (m Mode) String() string {
	if m == Shared {
		return "shared"
	}
	return "dedicated"
}

// Listener observes voice transitions. It is called with the pool locked and
// must not call back into the pool.
type Listener interface {
	VoiceStarted(v Voice)
	VoiceUpdated(v Voice)
	VoiceReleased(v Voice)
}

// Pool binds identifiers to a fixed number of engine slots. Every operation
// is atomic with respect to the others.
type Pool struct {
	mu        sync.Mutex
	mode      Mode
	voices    []Voice
	bound     map[ID]int
	engine    engine.Engine
	listener  Listener
	log       *zap.Logger
	seq       uint64
	exhausted bool
	closed    bool
}

type Option func(*Pool)

func WithLogger(log *zap.Logger) Option {
	return func(p *Pool) {
		if log != nil {
			p.log = log.Named("pool")
		}
	}
}

func WithListener(l Listener) Option {
	return func(p *Pool) {
		p.listener = l
	}
}

// NewPool returns a pool of size slots driving eng.
func NewPool(size int, mode Mode, eng engine.Engine, opts ...Option) (*Pool, error) {
	if size < 1 {
		return nil, failure.Configuration(fmt.Errorf("%w: %d", ErrPoolSize, size), "invalid voice pool")
	}
	p := &Pool{
		mode:   mode,
		voices: make([]Voice, size),
		bound:  make(map[ID]int, size),
		engine: eng,
		log:    zap.NewNop(),
	}
	for i := range p.voices {
		p.voices[i].Slot = i
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Pool) Size() int {
	return len(p.voices)
}

func (p *Pool) Mode() Mode {
	return p.mode
}

// Allocate binds id to a slot and starts the note. An id that is already
// bound keeps its slot and is not retriggered.
func (p *Pool) Allocate(id ID, params Params) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return -1, ErrClosed
	}
	if slot, ok := p.bound[id]; ok {
		return slot, nil
	}

	slot := p.pickSlot(id)
	if slot < 0 {
		if !p.exhausted {
			p.exhausted = true
			p.log.Error("voice pool exhausted; more simultaneous inputs than voices",
				zap.Int("size", len(p.voices)), zap.Stringer("id", id))
		}
		return -1, failure.Configuration(ErrNoFreeVoice, "voice pool exhausted")
	}

	v := &p.voices[slot]
	if v.Bound {
		p.log.Debug("steal", zap.Int("slot", slot), zap.Stringer("from", v.ID), zap.Stringer("to", id))
		p.releaseLocked(slot)
	}

	p.seq++
	*v = Voice{Slot: slot, ID: id, Bound: true, Params: params, triggered: p.seq}
	p.bound[id] = slot

	p.engine.SetParameter(slot, engine.ParamVolume, params.Volume)
	p.engine.SetParameter(slot, engine.ParamModulation, params.Modulation)
	p.engine.Attack(slot, params.Pitch, params.Velocity)

	if p.listener != nil {
		p.listener.VoiceStarted(*v)
	}
	return slot, nil
}

func (p *Pool) pickSlot(id ID) int {
	n := len(p.voices)
	if p.mode == Dedicated {
		for i := range p.voices {
			if !p.voices[i].Bound {
				return i
			}
		}
		return -1
	}

	preferred := ((id.N % n) + n) % n
	if !p.voices[preferred].Bound {
		return preferred
	}
	for i := range p.voices {
		if !p.voices[i].Bound {
			return i
		}
	}

	oldest := 0
	for i := 1; i < n; i++ {
		if p.voices[i].triggered < p.voices[oldest].triggered {
			oldest = i
		}
	}
	return oldest
}

// Update changes volume and modulation of a bound voice without
// retriggering it. Unbound ids are ignored.
func (p *Pool) Update(id ID, volume, modulation float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	slot, ok := p.bound[id]
	if !ok {
		return false
	}
	v := &p.voices[slot]
	v.Volume = volume
	v.Modulation = modulation
	p.engine.SetParameter(slot, engine.ParamVolume, volume)
	p.engine.SetParameter(slot, engine.ParamModulation, modulation)

	if p.listener != nil {
		p.listener.VoiceUpdated(*v)
	}
	return true
}

// Release stops the voice bound to id. Releasing an unbound id is a no-op.
func (p *Pool) Release(id ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	slot, ok := p.bound[id]
	if !ok {
		return false
	}
	p.releaseLocked(slot)
	return true
}

func (p *Pool) releaseLocked(slot int) {
	v := &p.voices[slot]
	p.engine.Release(slot)
	delete(p.bound, v.ID)
	released := *v
	v.Bound = false
	if p.listener != nil {
		p.listener.VoiceReleased(released)
	}
}

// ReleaseAll stops every bound voice and returns how many there were.
func (p *Pool) ReleaseAll() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.releaseAllLocked()
}

func (p *Pool) releaseAllLocked() int {
	n := 0
	for slot := range p.voices {
		if p.voices[slot].Bound {
			p.releaseLocked(slot)
			n++
		}
	}
	return n
}

// Close releases every voice and rejects further allocations.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseAllLocked()
	p.closed = true
}

// Lookup returns the voice bound to id.
func (p *Pool) Lookup(id ID) (Voice, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	slot, ok := p.bound[id]
	if !ok {
		return Voice{}, false
	}
	return p.voices[slot], true
}

// Active returns the number of bound voices.
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.bound)
}
