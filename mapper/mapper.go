// Package mapper turns raw sensor channel values (0..255) into musical
// parameters. Everything here is pure and allocation-free so it can run on
// every sampling tick.
package mapper

import (
	"errors"
	"math"
)

var ErrScaleLength = errors.New("scale length out of range")

const (
	// MaxValue is the top of the channel value domain.
	MaxValue = 255.0

	MinVolumeDB = -12.0

	MinModulation = 0.5
	MaxModulation = 10.0
)

// VolumeCurve selects the direction of the volume mapping.
type VolumeCurve int

const (
	// VolumeFalling maps 0 to 0 dB and 255 to -12 dB.
	VolumeFalling VolumeCurve = iota
	// VolumeRising maps 0 to -12 dB and 255 to 0 dB.
	VolumeRising
)

// Mapper holds the configured scale.
type Mapper struct {
	scale Scale
	curve VolumeCurve
}

type Option func(*Mapper)

// WithVolumeCurve picks the volume direction. Default is VolumeFalling.
func WithVolumeCurve(c VolumeCurve) Option {
	return func(m *Mapper) {
		m.curve = c
	}
}

// New returns a Mapper over a scale of the given length.
func New(scaleLength int, opts ...Option) (*Mapper, error) {
	scale, err := NewScale(scaleLength)
	if err != nil {
		return nil, err
	}
	m := &Mapper{scale: scale}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Scale returns the active scale.
func (m *Mapper) Scale() Scale {
	return m.scale
}

func clampValue(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return max(0, min(MaxValue, v))
}

// PitchIndex maps v onto an index of the scale. Out-of-range input clamps
// to the ends.
func (m *Mapper) PitchIndex(v float64) int {
	n := len(m.scale)
	idx := int(math.Floor(clampValue(v) / MaxValue * float64(n)))
	return max(0, min(n-1, idx))
}

// QuantizePitch maps v onto a note of the scale.
func (m *Mapper) QuantizePitch(v float64) Note {
	return m.scale[m.PitchIndex(v)]
}

// MapVolume maps v linearly onto [-12, 0] dB.
func (m *Mapper) MapVolume(v float64) float64 {
	frac := clampValue(v) / MaxValue
	if m.curve == VolumeRising {
		return MinVolumeDB * (1 - frac)
	}
	return frac * MinVolumeDB
}

// MapModulation maps v linearly onto [0.5, 10] Hz.
func (m *Mapper) MapModulation(v float64) float64 {
	return clampValue(v)/MaxValue*(MaxModulation-MinModulation) + MinModulation
}

// FrequencyToHue maps freq within [minF, maxF] onto a hue in [0, 360).
func FrequencyToHue(freq, minF, maxF float64) float64 {
	if maxF <= minF {
		return 0
	}
	h := math.Mod((freq-minF)/(maxF-minF)*360, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// PitchClassHue gives every octave of a pitch class the same hue.
func PitchClassHue(freq float64) float64 {
	if freq <= 0 {
		return 0
	}
	frac := math.Mod(math.Log2(freq), 1)
	if frac < 0 {
		frac++
	}
	return frac * 360
}

const (
	GridMinFrequency = 100.0
	GridSpan         = 1000.0
)

// GridFrequency is the pitch of cell (x, y) on a cols x rows touch grid: the
// mean of the two axis frequencies, each spanning 100..1100 Hz.
func GridFrequency(x, y, cols, rows int) float64 {
	if cols < 1 || rows < 1 {
		return GridMinFrequency
	}
	fx := float64(x)/float64(cols)*GridSpan + GridMinFrequency
	fy := float64(y)/float64(rows)*GridSpan + GridMinFrequency
	return (fx + fy) / 2
}
