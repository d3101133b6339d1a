// Package instrument assembles the voice pool, effects, input routing,
// sampling and visual feedback into one playable instrument per mode.
package instrument

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-sonify/config"
	"go-sonify/effects"
	"go-sonify/engine"
	"go-sonify/fade"
	"go-sonify/failure"
	"go-sonify/input"
	"go-sonify/mapper"
	"go-sonify/sampling"
	"go-sonify/visual"
	"go-sonify/voice"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultBaseOctave puts the first key on middle C.
const DefaultBaseOctave = 4

// Instrument is one mode's worth of state. Nothing in it is shared with
// other instruments; tear it down with Destruct.
type Instrument struct {
	mode   string
	cfg    config.Config
	log    *zap.Logger
	engine engine.Engine

	mapper   *mapper.Mapper
	layout   Layout
	keyboard *Keyboard
	surface  *visual.Surface
	render   *visual.Loop
	fade     *fade.Animator
	pool     *voice.Pool
	effects  *effects.Router
	input    *input.Router
	sampler  *sampling.Loop

	source     sampling.FrameSource
	displays   []visual.Display
	fadeDur    time.Duration
	fadeStep   time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	synth      engine.SynthKind
	pads       map[string]*visual.LaunchpadDisplay
	litMu      sync.Mutex
	lit        map[int]int // bound voices per cell
	started    bool
	destructed bool
	noPatcher  bool
}

type Option func(*Instrument)

func WithLogger(log *zap.Logger) Option {
	return func(i *Instrument) {
		if log != nil {
			i.log = log
		}
	}
}

// WithFrameSource sets the camera mode frame source.
func WithFrameSource(src sampling.FrameSource) Option {
	return func(i *Instrument) {
		i.source = src
	}
}

// WithDisplay adds a display drawn by the render loop.
func WithDisplay(d visual.Display) Option {
	return func(i *Instrument) {
		i.displays = append(i.displays, d)
	}
}

// WithFadeTiming overrides the release fade.
func WithFadeTiming(duration, step time.Duration) Option {
	return func(i *Instrument) {
		i.fadeDur, i.fadeStep = duration, step
	}
}

// New builds the instrument for cfg.Mode driving eng. Loops do not run until
// Start.
func New(cfg *config.Config, eng engine.Engine, opts ...Option) (*Instrument, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	i := &Instrument{
		mode:     cfg.Mode,
		cfg:      *cfg,
		engine:   eng,
		log:      zap.NewNop(),
		fadeDur:  fade.DefaultDuration,
		fadeStep: fade.DefaultStep,
		pads:     make(map[string]*visual.LaunchpadDisplay),
		lit:      make(map[int]int),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.log = i.log.With(zap.String("mode", i.mode))
	i.ctx, i.cancel = context.WithCancel(context.Background())

	curve, _ := cfg.Curve()
	m, err := mapper.New(cfg.ScaleLength, mapper.WithVolumeCurve(curve))
	if err != nil {
		return nil, failure.Configuration(err, "scale")
	}
	i.mapper = m

	poolMode := voice.Shared
	switch cfg.Mode {
	case config.ModeKeyboard:
		i.keyboard = NewKeyboard(cfg.Octaves, DefaultBaseOctave)
		i.layout = i.keyboard
	case config.ModeTheremin:
		if cfg.Voices < cfg.Theremin.MaxTouches {
			return nil, failure.Configuration(nil, fmt.Sprintf(
				"theremin needs a voice per touch: %d voices for %d touches", cfg.Voices, cfg.Theremin.MaxTouches))
		}
		i.layout = NewGrid(cfg.Theremin.Columns, cfg.Theremin.Rows)
		poolMode = voice.Dedicated
	case config.ModeCamera:
		i.layout = regions(cfg.Sampling.Regions)
	}

	rest := i.layout.Rest()
	i.surface = visual.NewSurface(i.layout.NumCells(), rest)
	i.layout.Place(i.surface)
	i.fade = fade.New(i.surface, rest, fade.WithTiming(i.fadeDur, i.fadeStep), fade.WithLogger(i.log))

	i.pool, err = voice.NewPool(cfg.Voices, poolMode, eng, voice.WithLogger(i.log), voice.WithListener(i))
	if err != nil {
		return nil, err
	}

	i.input = input.NewRouter(i.layout, i, input.WithLogger(i.log))

	i.effects = effects.NewRouter(eng, effects.WithLogger(i.log))
	i.effects.Apply(cfg.EffectSettings())
	i.patch(cfg)

	if cfg.Mode == config.ModeCamera {
		i.sampler = i.newSampler(cfg)
	}

	i.render = visual.NewLoop(i.surface, visual.WithFPS(cfg.UI.FPS), visual.WithLoopLogger(i.log))
	for _, d := range i.displays {
		i.render.Add(d)
	}

	i.log.Info("instrument ready",
		zap.Int("cells", i.layout.NumCells()),
		zap.Int("voices", cfg.Voices),
		zap.Stringer("pool", poolMode))
	return i, nil
}

func (i *Instrument) newSampler(cfg *config.Config) *sampling.Loop {
	var s sampling.Sampler
	switch cfg.Sampling.Layout {
	case config.LayoutBlocks:
		s = sampling.NewBlockGrid(cfg.Sampling.Regions)
	case config.LayoutStrip:
		s = sampling.NewStrip(cfg.Sampling.Regions)
	default:
		s = sampling.PointGrid{Points: cfg.Sampling.Regions, Mirror: cfg.Sampling.Mirror}
	}

	src := i.source
	if src == nil {
		// no camera: stay silent until one is attached
		i.log.Warn("no frame source", zap.Error(failure.Unavailable(nil, "camera")))
		src = &sampling.LatestSource{}
	}

	sinks := []sampling.Sink{
		sampling.NewVoiceDriver(i.pool, i.mapper, cfg.Sampling.Retrigger, i.log),
		sampling.NewVisualDriver(i.surface),
	}
	return sampling.NewLoop(src, s, sinks, sampling.WithLogger(i.log), sampling.WithTempo(cfg.Tempo))
}

// patch applies the synth settings of cfg to a patchable engine.
func (i *Instrument) patch(cfg *config.Config) {
	i.SetSynthKind(cfg.SynthKind)
	i.SetOscillator(cfg.Oscillator)
	i.SetEnvelope(cfg.Envelope)
	i.SetFilter(cfg.Filter)
}

func (i *Instrument) Mode() string {
	return i.mode
}

// Config returns the settings the instrument was built with, updated with
// runtime changes.
func (i *Instrument) Config() config.Config {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.cfg
}

func (i *Instrument) Layout() Layout {
	return i.layout
}

// Keyboard returns the piano layout, nil outside keyboard mode.
func (i *Instrument) Keyboard() *Keyboard {
	return i.keyboard
}

func (i *Instrument) Surface() *visual.Surface {
	return i.surface
}

func (i *Instrument) Input() *input.Router {
	return i.input
}

func (i *Instrument) Pool() *voice.Pool {
	return i.pool
}

// Start runs the render loop and, in camera mode, the sampling loop until
// ctx is cancelled or the instrument is destructed.
func (i *Instrument) Start(ctx context.Context) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.started || i.destructed {
		return
	}
	i.started = true
	context.AfterFunc(ctx, i.cancel)

	i.goLoop(i.render.Run)
	if i.sampler != nil {
		i.goLoop(i.sampler.Run)
	}
}

func (i *Instrument) goLoop(run func(context.Context)) {
	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		run(i.ctx)
	}()
}

// Destruct tears the instrument down: voices, effect stages, fades, loops
// and device subscriptions, in that order. It is safe to call more than
// once; only the first call does anything.
func (i *Instrument) Destruct() error {
	i.mu.Lock()
	if i.destructed {
		i.mu.Unlock()
		return nil
	}
	i.destructed = true
	i.mu.Unlock()

	// Close releases every voice and keeps the loops from allocating new
	// ones while they wind down.
	i.pool.Close()
	i.effects.DisconnectAll()
	i.fade.Close()

	i.cancel()
	i.wg.Wait()

	var err error
	i.mu.Lock()
	for id, pad := range i.pads {
		if cerr := pad.Clear(); cerr != nil {
			err = multierr.Append(err, failure.Unavailable(cerr, "clear "+id))
		}
	}
	clear(i.pads)
	i.mu.Unlock()

	i.input.Close()
	i.log.Info("instrument destructed", zap.Error(err))
	return err
}

// VoiceStarted lights the voice's cell. Sampled regions color themselves.
func (i *Instrument) VoiceStarted(v voice.Voice) {
	if v.ID.Kind == voice.KindRegion {
		return
	}
	i.litMu.Lock()
	i.lit[v.Cell]++
	i.litMu.Unlock()
	i.fade.Cancel(v.Cell)
	i.surface.SetCellColor(v.Cell, visual.Hue(i.layout.Hue(v.Cell)))
}

func (i *Instrument) VoiceUpdated(voice.Voice) {}

// VoiceReleased fades the voice's cell back to rest once no other voice
// holds it.
func (i *Instrument) VoiceReleased(v voice.Voice) {
	if v.ID.Kind == voice.KindRegion {
		return
	}
	i.litMu.Lock()
	i.lit[v.Cell]--
	left := i.lit[v.Cell]
	if left <= 0 {
		delete(i.lit, v.Cell)
	}
	i.litMu.Unlock()
	if left > 0 {
		return
	}
	if from, ok := i.surface.Color(v.Cell); ok {
		i.fade.Start(v.Cell, from)
	}
}

// params turns a gesture into voice parameters: velocity sets the level and,
// for positional sources, height on the surface sets the modulation rate.
func (i *Instrument) params(e input.Event) voice.Params {
	mod := mapper.MinModulation
	if e.Source == input.SourcePointer || e.Source == input.SourceTouch {
		mod = i.mapper.MapModulation((1 - e.Pos.Y) * mapper.MaxValue)
	}
	return voice.Params{
		Cell:       e.Cell,
		Pitch:      i.layout.Frequency(e.Cell),
		Volume:     mapper.MinVolumeDB * (1 - e.Velocity),
		Modulation: mod,
		Velocity:   e.Velocity,
	}
}

func (i *Instrument) Press(e input.Event) {
	if _, err := i.pool.Allocate(e.ID, i.params(e)); err != nil {
		i.log.Debug("press dropped", zap.Stringer("id", e.ID), zap.Error(dropped(err)))
	}
}

// dropped classifies a failed allocation. A pool too small for its mode is
// already a configuration error; anything else is input arriving at a bad
// time.
func dropped(err error) error {
	if failure.Is(err, failure.KindConfiguration) {
		return err
	}
	return failure.Transient(err, "press dropped")
}

func (i *Instrument) Move(e input.Event) {
	p := i.params(e)
	i.pool.Update(e.ID, p.Volume, p.Modulation)
}

func (i *Instrument) Release(e input.Event) {
	i.pool.Release(e.ID)
}

// ShiftOctave moves the keyboard, releasing every sounding note first. Other
// layouts have no octaves and keep their voices.
func (i *Instrument) ShiftOctave(delta int) bool {
	if i.keyboard == nil {
		return false
	}
	i.pool.ReleaseAll()
	if i.keyboard.ShiftOctave(delta) {
		i.log.Debug("octave", zap.Int("base", i.keyboard.Base()))
	}
	return true
}

func (i *Instrument) patcher() (engine.Patcher, bool) {
	p, ok := i.engine.(engine.Patcher)
	if !ok {
		i.mu.Lock()
		if !i.noPatcher {
			i.noPatcher = true
			i.log.Warn("engine cannot be re-patched; synth settings ignored")
		}
		i.mu.Unlock()
	}
	return p, ok
}

// SetSynthKind switches the voice type. Unknown names fall back to the
// default kind with a warning. Every voice is released first.
func (i *Instrument) SetSynthKind(name string) engine.SynthKind {
	kind, ok := engine.ParseSynthKind(name)
	if !ok {
		i.log.Warn("unknown synth kind, using default", zap.String("kind", name))
	}

	i.pool.ReleaseAll()
	i.input.Reset()

	i.mu.Lock()
	i.synth = kind
	i.cfg.SynthKind = kind.String()
	i.mu.Unlock()

	if p, ok := i.patcher(); ok {
		p.SetSynthKind(kind)
	}
	return kind
}

// NextSynthKind cycles to the next synth kind.
func (i *Instrument) NextSynthKind() engine.SynthKind {
	kinds := engine.SynthKinds()
	next := kinds[(int(i.SynthKind())+1)%len(kinds)]
	return i.SetSynthKind(next.String())
}

func (i *Instrument) SynthKind() engine.SynthKind {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.synth
}

func (i *Instrument) SetOscillator(shape string) {
	i.mu.Lock()
	i.cfg.Oscillator = shape
	i.mu.Unlock()
	if p, ok := i.patcher(); ok {
		p.SetOscillator(shape)
	}
}

func (i *Instrument) SetEnvelope(env engine.Envelope) {
	i.mu.Lock()
	i.cfg.Envelope = env
	i.mu.Unlock()
	if p, ok := i.patcher(); ok {
		p.SetEnvelope(env)
	}
}

func (i *Instrument) SetFilter(f engine.Filter) {
	i.mu.Lock()
	i.cfg.Filter = f
	i.mu.Unlock()
	if p, ok := i.patcher(); ok {
		p.SetFilter(f)
	}
}

// SetTempo changes the sampling tempo and returns the clamped value.
func (i *Instrument) SetTempo(bpm int) int {
	bpm = sampling.ClampTempo(bpm)
	if i.sampler != nil {
		i.sampler.SetTempo(bpm)
	}
	i.mu.Lock()
	i.cfg.Tempo = bpm
	i.mu.Unlock()
	return bpm
}

func (i *Instrument) Tempo() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.cfg.Tempo
}

// ToggleEffect flips stage k and returns whether it is now enabled.
func (i *Instrument) ToggleEffect(k effects.Kind) bool {
	on := i.effects.Toggle(k)
	i.mu.Lock()
	i.cfg.Effects = i.effectConfigs()
	i.mu.Unlock()
	return on
}

// ApplyEffects brings the effect chain to settings.
func (i *Instrument) ApplyEffects(settings []effects.Settings) {
	i.effects.Apply(settings)
	i.mu.Lock()
	i.cfg.Effects = i.effectConfigs()
	i.mu.Unlock()
}

func (i *Instrument) Effects() []effects.Stage {
	return i.effects.Stages()
}

func (i *Instrument) effectConfigs() []config.EffectConfig {
	var out []config.EffectConfig
	for _, st := range i.effects.Stages() {
		out = append(out, config.EffectConfig{Kind: st.Kind.String(), Enabled: st.Enabled, Params: st.Params})
	}
	return out
}
