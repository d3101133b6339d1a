// Package engine defines the command surface the instrument drives and
// provides implementations for it.
package engine

import "strings"

// Parameter names understood by SetParameter.
const (
	ParamVolume     = "volume"
	ParamModulation = "modulationFrequency"
)

// Engine receives per-voice commands. Implementations must be safe for
// concurrent use and must not block; failures are theirs to log.
type Engine interface {
	Attack(slot int, pitch, velocity float64)
	Release(slot int)
	SetParameter(slot int, name string, value float64)
	Connect(stage string)
	Disconnect(stage string)
}

// Patcher is implemented by engines that can be re-patched at runtime.
type Patcher interface {
	SetSynthKind(kind SynthKind)
	SetOscillator(shape string)
	SetEnvelope(env Envelope)
	SetFilter(f Filter)
	SetStageParameter(stage, name string, value float64)
}

// SynthKind is the closed set of voice types.
type SynthKind int

const (
	SynthDefault SynthKind = iota
	SynthAM
	SynthFM
	SynthMono
	SynthDuo
	SynthPluck
	SynthMembrane
	SynthMetal
)

var synthNames = []string{"default", "am", "fm", "mono", "duo", "pluck", "membrane", "metal"}

func (k SynthKind) String() string {
	if k < 0 || int(k) >= len(synthNames) {
		return "unknown"
	}
	return synthNames[k]
}

// SynthKinds lists every kind in order.
func SynthKinds() []SynthKind {
	kinds := make([]SynthKind, len(synthNames))
	for i := range kinds {
		kinds[i] = SynthKind(i)
	}
	return kinds
}

// ParseSynthKind is case-insensitive; "synth" is an alias of default.
func ParseSynthKind(s string) (SynthKind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "synth" {
		return SynthDefault, true
	}
	for i, name := range synthNames {
		if name == s {
			return SynthKind(i), true
		}
	}
	return SynthDefault, false
}

// Envelope times are seconds, Sustain is a level in [0, 1].
type Envelope struct {
	Attack  float64 `json:"attack"`
	Decay   float64 `json:"decay"`
	Sustain float64 `json:"sustain"`
	Release float64 `json:"release"`
}

func DefaultEnvelope() Envelope {
	return Envelope{Attack: 0.005, Decay: 0.1, Sustain: 0.3, Release: 1}
}

type Filter struct {
	Frequency float64 `json:"frequency"`
	Type      string  `json:"type"`
	Rolloff   int     `json:"rolloff"`
}

func DefaultFilter() Filter {
	return Filter{Frequency: 20000, Type: "lowpass", Rolloff: -12}
}

// Oscillator shapes.
var Oscillators = []string{"sine", "square", "sawtooth", "triangle"}
