// Package effects keeps the effect chain in sync with a desired
// enabled/parameter state, issuing connects and disconnects only on edges.
package effects

import (
	"sync"

	"go-sonify/engine"

	"go.uber.org/zap"
)

// Stage is the current state of one effect.
type Stage struct {
	Kind      Kind
	Enabled   bool
	Connected bool
	Params    Params
}

type Router struct {
	mu     sync.Mutex
	stages [numKinds]Stage
	engine engine.Engine
	log    *zap.Logger
	warned bool
}

type Option func(*Router)

func WithLogger(log *zap.Logger) Option {
	return func(r *Router) {
		if log != nil {
			r.log = log.Named("effects")
		}
	}
}

func NewRouter(eng engine.Engine, opts ...Option) *Router {
	r := &Router{engine: eng, log: zap.NewNop()}
	for _, k := range Kinds() {
		r.stages[k] = Stage{Kind: k, Params: DefaultParams(k)}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply brings every listed stage to its desired state.
func (r *Router) Apply(settings []Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range settings {
		r.applyLocked(s)
	}
}

// Set applies a single stage.
func (r *Router) Set(s Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyLocked(s)
}

func (r *Router) applyLocked(s Settings) {
	if s.Kind < 0 || s.Kind >= numKinds {
		r.log.Warn("unknown effect", zap.Int("kind", int(s.Kind)))
		return
	}
	st := &r.stages[s.Kind]
	name := s.Kind.String()

	// parameters are applied whether or not the stage is enabled
	st.Params = s.Params
	r.forwardParams(s.Kind, s.Params)

	if s.Enabled && !st.Connected {
		r.engine.Connect(name)
		st.Connected = true
		r.log.Debug("connect", zap.String("stage", name))
	} else if !s.Enabled && st.Connected {
		r.engine.Disconnect(name)
		st.Connected = false
		r.log.Debug("disconnect", zap.String("stage", name))
	}
	st.Enabled = s.Enabled
}

func (r *Router) forwardParams(k Kind, p Params) {
	patcher, ok := r.engine.(engine.Patcher)
	if !ok {
		if !r.warned {
			r.warned = true
			r.log.Warn("engine does not take effect parameters")
		}
		return
	}
	for _, prm := range k.parameters(p) {
		patcher.SetStageParameter(k.String(), prm.name, prm.value)
	}
}

// Toggle flips the enabled state of k and returns the new state.
func (r *Router) Toggle(k Kind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if k < 0 || k >= numKinds {
		return false
	}
	st := r.stages[k]
	r.applyLocked(Settings{Kind: k, Enabled: !st.Enabled, Params: st.Params})
	return r.stages[k].Enabled
}

// Stages returns a copy of every stage in chain order.
func (r *Router) Stages() []Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Stage, numKinds)
	copy(out, r.stages[:])
	return out
}

// DisconnectAll detaches every connected stage.
func (r *Router) DisconnectAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.stages {
		st := &r.stages[k]
		if st.Connected {
			r.engine.Disconnect(st.Kind.String())
			st.Connected = false
		}
		st.Enabled = false
	}
}
