package instrument

import (
	"context"
	"slices"
	"sync"

	"go-sonify/config"
	"go-sonify/midi"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Builder constructs an instrument from a config.
type Builder func(cfg *config.Config) (*Instrument, error)

// Host owns the running instrument and swaps it on mode changes. Controllers
// attached to the host follow every swap.
type Host struct {
	mu          sync.Mutex
	ctx         context.Context
	build       Builder
	current     *Instrument
	controllers map[string]midi.Controller
	log         *zap.Logger
	closed      bool
}

func NewHost(build Builder, log *zap.Logger) *Host {
	if log == nil {
		log = zap.NewNop()
	}
	return &Host{
		ctx:         context.Background(),
		build:       build,
		controllers: make(map[string]midi.Controller),
		log:         log.Named("host"),
	}
}

// Start builds and starts the first instrument. Instruments started later
// share ctx.
func (h *Host) Start(ctx context.Context, cfg *config.Config) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ctx = ctx
	inst, err := h.build(cfg)
	if err != nil {
		return err
	}
	h.install(inst)
	return nil
}

// install starts inst and attaches the known controllers. Caller holds mu.
func (h *Host) install(inst *Instrument) {
	h.current = inst
	inst.Start(h.ctx)
	for _, c := range h.controllers {
		inst.Attach(c)
	}
}

// Current returns the running instrument, nil before Start.
func (h *Host) Current() *Instrument {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// SwitchMode destructs the current instrument and builds one for mode,
// carrying over runtime settings. If the new one cannot be built the old
// mode is rebuilt and the error returned.
func (h *Host) SwitchMode(mode string) (*Instrument, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || h.current == nil {
		return h.current, nil
	}
	if h.current.Mode() == mode {
		return h.current, nil
	}

	prev := h.current.Config()
	if err := h.current.Destruct(); err != nil {
		h.log.Warn("teardown", zap.Error(err))
	}
	h.current = nil

	next := prev
	next.Mode = mode
	inst, err := h.build(&next)
	if err != nil {
		h.log.Error("mode switch failed", zap.String("mode", mode), zap.Error(err))
		back, rerr := h.build(&prev)
		if rerr != nil {
			return nil, multierr.Append(err, rerr)
		}
		h.install(back)
		return back, err
	}
	h.log.Info("mode switched", zap.String("from", prev.Mode), zap.String("to", mode))
	h.install(inst)
	return inst, nil
}

// NextMode switches to the mode after the current one.
func (h *Host) NextMode() (*Instrument, error) {
	cur := h.Current()
	if cur == nil {
		return nil, nil
	}
	modes := config.Modes()
	idx := slices.Index(modes, cur.Mode())
	return h.SwitchMode(modes[(idx+1)%len(modes)])
}

// Attach hands a controller to the current and every later instrument.
// Ports saved with autoConnect off are skipped.
func (h *Host) Attach(c midi.Controller) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current != nil {
		if cfg := h.current.Config(); !cfg.AutoConnect(c.ID()) {
			h.log.Info("controller skipped", zap.String("port", c.ID()))
			return
		}
	}
	h.controllers[c.ID()] = c
	if h.current != nil {
		h.current.Attach(c)
	}
}

// Detach forgets a controller.
func (h *Host) Detach(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.controllers, id)
	if h.current != nil {
		h.current.Detach(id)
	}
}

// Close destructs the current instrument.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if h.current == nil {
		return nil
	}
	return h.current.Destruct()
}
