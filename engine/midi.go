package engine

import (
	"math"
	"sync"

	"go-sonify/mapper"

	gomidi "gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"
)

// Controller numbers used by the MIDI engine.
const (
	CCModulation     = 1
	CCVolume         = 7
	CCSoundVariation = 70
	CCResonance      = 71
	CCRelease        = 72
	CCAttack         = 73
	CCCutoff         = 74
	CCDecay          = 75
	CCReverbSend     = 91
	CCChorusSend     = 93
	CCDistortion     = 94
	CCDelaySend      = 95
)

// Stage names map to effect send controllers.
var stageCC = map[string]uint8{
	"reverb":     CCReverbSend,
	"chorus":     CCChorusSend,
	"distortion": CCDistortion,
	"delay":      CCDelaySend,
}

// Stage parameter that scales the send level when connected.
var stageLevelParam = map[string]string{
	"reverb":     "decay",
	"chorus":     "depth",
	"distortion": "amount",
	"delay":      "feedback",
}

var synthPrograms = map[SynthKind]uint8{
	SynthDefault:  80, // square lead
	SynthAM:       81, // saw lead
	SynthFM:       5,  // electric piano 2
	SynthMono:     38, // synth bass 1
	SynthDuo:      62, // synth brass 1
	SynthPluck:    25, // steel guitar
	SynthMembrane: 116,
	SynthMetal:    14, // tubular bells
}

// BendRange is the pitch bend range in semitones the receiver must be set to.
const BendRange = 2.0

type midiVoice struct {
	note     uint8
	sounding bool
}

// MIDI drives an external synthesizer. Each voice slot gets its own channel,
// starting at the base channel, so per-voice volume and modulation map to
// channel controllers and pitch bend carries off-grid frequencies.
type MIDI struct {
	mu        sync.Mutex
	send      func(gomidi.Message) error
	base      uint8
	voices    []midiVoice
	levels    map[string]uint8
	connected map[string]bool
	log       *zap.Logger
}

type MIDIOption func(*MIDI)

func WithMIDILogger(log *zap.Logger) MIDIOption {
	return func(e *MIDI) {
		if log != nil {
			e.log = log.Named("engine")
		}
	}
}

// NewMIDI returns an engine for voices slots sending through send. base is a
// zero-based MIDI channel.
func NewMIDI(send func(gomidi.Message) error, base uint8, voices int, opts ...MIDIOption) *MIDI {
	if voices < 1 {
		voices = 1
	}
	e := &MIDI{
		send:      send,
		base:      base & 0x0F,
		voices:    make([]midiVoice, voices),
		levels:    make(map[string]uint8),
		connected: make(map[string]bool),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *MIDI) channel(slot int) uint8 {
	return uint8((int(e.base) + slot) % 16)
}

func (e *MIDI) emit(msg gomidi.Message) {
	if e.send == nil {
		return
	}
	if err := e.send(msg); err != nil {
		e.log.Warn("send failed", zap.Stringer("msg", msg), zap.Error(err))
	}
}

func (e *MIDI) valid(slot int) bool {
	if slot < 0 || slot >= len(e.voices) {
		e.log.Warn("slot out of range", zap.Int("slot", slot))
		return false
	}
	return true
}

// bendValue converts a semitone offset into a 14-bit signed bend.
func bendValue(semitones float64) int16 {
	v := math.Round(semitones / BendRange * 8191)
	return int16(max(-8192, min(8191, v)))
}

func (e *MIDI) Attack(slot int, pitch, velocity float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.valid(slot) {
		return
	}
	ch := e.channel(slot)
	v := &e.voices[slot]
	if v.sounding {
		e.emit(gomidi.NoteOff(ch, v.note))
	}

	note, offset := mapper.NoteForFrequency(pitch)
	vel := uint8(max(1, min(127, math.Round(velocity*127))))

	e.emit(gomidi.Pitchbend(ch, bendValue(offset)))
	e.emit(gomidi.NoteOn(ch, uint8(note), vel))
	v.note = uint8(note)
	v.sounding = true
}

func (e *MIDI) Release(slot int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.valid(slot) {
		return
	}
	v := &e.voices[slot]
	if !v.sounding {
		return
	}
	e.emit(gomidi.NoteOff(e.channel(slot), v.note))
	v.sounding = false
}

// VolumeCC maps decibels onto the 0..127 volume controller with a
// 40*log10 curve.
func VolumeCC(db float64) uint8 {
	v := 127 * math.Pow(10, db/40)
	return uint8(max(0, min(127, math.Round(v))))
}

// ModulationCC maps 0.5..10 Hz onto the modulation wheel.
func ModulationCC(hz float64) uint8 {
	frac := (hz - mapper.MinModulation) / (mapper.MaxModulation - mapper.MinModulation)
	return uint8(max(0, min(127, math.Round(frac*127))))
}

func (e *MIDI) SetParameter(slot int, name string, value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.valid(slot) {
		return
	}
	ch := e.channel(slot)
	switch name {
	case ParamVolume:
		e.emit(gomidi.ControlChange(ch, CCVolume, VolumeCC(value)))
	case ParamModulation:
		e.emit(gomidi.ControlChange(ch, CCModulation, ModulationCC(value)))
	default:
		e.log.Debug("unknown parameter", zap.String("name", name))
	}
}

// all sends one message per voice channel.
func (e *MIDI) all(build func(ch uint8) gomidi.Message) {
	for slot := range e.voices {
		e.emit(build(e.channel(slot)))
	}
}

func (e *MIDI) level(stage string) uint8 {
	if lvl, ok := e.levels[stage]; ok {
		return lvl
	}
	return 127
}

func (e *MIDI) Connect(stage string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cc, ok := stageCC[stage]
	if !ok {
		e.log.Warn("unknown stage", zap.String("stage", stage))
		return
	}
	e.connected[stage] = true
	lvl := e.level(stage)
	e.all(func(ch uint8) gomidi.Message { return gomidi.ControlChange(ch, cc, lvl) })
}

func (e *MIDI) Disconnect(stage string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cc, ok := stageCC[stage]
	if !ok {
		e.log.Warn("unknown stage", zap.String("stage", stage))
		return
	}
	e.connected[stage] = false
	e.all(func(ch uint8) gomidi.Message { return gomidi.ControlChange(ch, cc, 0) })
}

func unitCC(v float64) uint8 {
	return uint8(max(0, min(127, math.Round(v*127))))
}

// SetStageParameter stores the send level for a stage and resends it while
// connected.
func (e *MIDI) SetStageParameter(stage, name string, value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if stageLevelParam[stage] != name {
		return
	}
	if stage == "reverb" {
		// decay seconds, 10 s is a full send
		value /= 10
	}
	lvl := unitCC(value)
	e.levels[stage] = lvl
	if e.connected[stage] {
		cc := stageCC[stage]
		e.all(func(ch uint8) gomidi.Message { return gomidi.ControlChange(ch, cc, lvl) })
	}
}

func (e *MIDI) SetSynthKind(kind SynthKind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	prog, ok := synthPrograms[kind]
	if !ok {
		prog = synthPrograms[SynthDefault]
	}
	e.all(func(ch uint8) gomidi.Message { return gomidi.ProgramChange(ch, prog) })
}

func (e *MIDI) SetOscillator(shape string) {
	e.log.Debug("oscillator shape has no MIDI mapping", zap.String("shape", shape))
}

// seconds maps 0..10 s onto a controller value with a square-root curve so
// short times keep resolution.
func seconds(s float64) uint8 {
	return unitCC(math.Sqrt(max(0, s) / 10))
}

func (e *MIDI) SetEnvelope(env Envelope) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.all(func(ch uint8) gomidi.Message { return gomidi.ControlChange(ch, CCAttack, seconds(env.Attack)) })
	e.all(func(ch uint8) gomidi.Message { return gomidi.ControlChange(ch, CCDecay, seconds(env.Decay)) })
	e.all(func(ch uint8) gomidi.Message { return gomidi.ControlChange(ch, CCSoundVariation, unitCC(env.Sustain)) })
	e.all(func(ch uint8) gomidi.Message { return gomidi.ControlChange(ch, CCRelease, seconds(env.Release)) })
}

// CutoffCC maps 20..20000 Hz logarithmically onto the cutoff controller.
func CutoffCC(hz float64) uint8 {
	hz = max(20, min(20000, hz))
	return unitCC(math.Log10(hz/20) / 3)
}

func (e *MIDI) SetFilter(f Filter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cutoff := CutoffCC(f.Frequency)
	e.all(func(ch uint8) gomidi.Message { return gomidi.ControlChange(ch, CCCutoff, cutoff) })
}

// Close silences every sounding voice.
func (e *MIDI) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for slot := range e.voices {
		v := &e.voices[slot]
		if v.sounding {
			e.emit(gomidi.NoteOff(e.channel(slot), v.note))
			v.sounding = false
		}
	}
	return nil
}
