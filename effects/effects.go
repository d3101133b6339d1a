package effects

import "strings"

// Kind is one of the fixed effect stages.
type Kind int

const (
	Distortion Kind = iota
	Delay
	Reverb
	Chorus
	numKinds
)

var kindNames = [numKinds]string{"distortion", "delay", "reverb", "chorus"}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return "unknown"
	}
	return kindNames[k]
}

// Kinds lists the stages in chain order.
func Kinds() []Kind {
	return []Kind{Distortion, Delay, Reverb, Chorus}
}

// ParseKind is case-insensitive.
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// Params is the union of every stage's parameters; each kind reads only its
// own fields.
type Params struct {
	Amount    float64 `json:"amount,omitempty"`    // distortion, 0..1
	DelayTime float64 `json:"delayTime,omitempty"` // delay seconds, chorus milliseconds
	Feedback  float64 `json:"feedback,omitempty"`  // delay, 0..1
	Decay     float64 `json:"decay,omitempty"`     // reverb seconds
	Frequency float64 `json:"frequency,omitempty"` // chorus Hz
	Depth     float64 `json:"depth,omitempty"`     // chorus, 0..1
}

// DefaultParams returns the starting parameters of k.
func DefaultParams(k Kind) Params {
	switch k {
	case Distortion:
		return Params{Amount: 0.3}
	case Delay:
		return Params{DelayTime: 0.3, Feedback: 0.4}
	case Reverb:
		return Params{Decay: 1.5}
	case Chorus:
		return Params{Frequency: 2, DelayTime: 3, Depth: 0.7}
	}
	return Params{}
}

type param struct {
	name  string
	value float64
}

func unit(v float64) float64 {
	return max(0, min(1, v))
}

func positive(v float64) float64 {
	return max(0, v)
}

// parameters returns the named, clamped values k cares about.
func (k Kind) parameters(p Params) []param {
	switch k {
	case Distortion:
		return []param{{"amount", unit(p.Amount)}}
	case Delay:
		return []param{{"delayTime", positive(p.DelayTime)}, {"feedback", min(unit(p.Feedback), 0.99)}}
	case Reverb:
		return []param{{"decay", max(0.001, p.Decay)}}
	case Chorus:
		return []param{{"frequency", positive(p.Frequency)}, {"delayTime", positive(p.DelayTime)}, {"depth", unit(p.Depth)}}
	}
	return nil
}

// Settings is the desired state of one stage.
type Settings struct {
	Kind    Kind
	Enabled bool
	Params  Params
}

// Defaults returns every stage disabled with default parameters.
func Defaults() []Settings {
	var out []Settings
	for _, k := range Kinds() {
		out = append(out, Settings{Kind: k, Params: DefaultParams(k)})
	}
	return out
}
