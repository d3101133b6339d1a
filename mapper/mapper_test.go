package mapper

import (
	"errors"
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestQuantizePitchStaysInScale(t *testing.T) {
	for length := 1; length <= len(Reference); length++ {
		m, err := New(length)
		if err != nil {
			t.Fatalf("New(%d): %v", length, err)
		}
		for v := -10; v <= 300; v++ {
			idx := m.PitchIndex(float64(v))
			if idx < 0 || idx >= length {
				t.Fatalf("length %d value %d: index %d out of range", length, v, idx)
			}
			if m.QuantizePitch(float64(v)) != Reference[idx] {
				t.Fatalf("length %d value %d: pitch not scale[%d]", length, v, idx)
			}
		}
	}
}

func TestPitchIndexEdges(t *testing.T) {
	m, _ := New(8)
	tests := []struct {
		v    float64
		want int
	}{
		{0, 0},
		{255, 7},
		{256, 7},
		{-1, 0},
		{math.NaN(), 0},
		{127, 3},
		{128, 4},
	}
	for _, tt := range tests {
		if got := m.PitchIndex(tt.v); got != tt.want {
			t.Errorf("PitchIndex(%v) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestNewRejectsBadLength(t *testing.T) {
	for _, n := range []int{0, -1, 17} {
		if _, err := New(n); !errors.Is(err, ErrScaleLength) {
			t.Errorf("New(%d) err = %v, want ErrScaleLength", n, err)
		}
	}
}

func TestMapVolume(t *testing.T) {
	falling, _ := New(8)
	if got := falling.MapVolume(0); !approx(got, 0) {
		t.Errorf("falling volume(0) = %v, want 0", got)
	}
	if got := falling.MapVolume(255); !approx(got, -12) {
		t.Errorf("falling volume(255) = %v, want -12", got)
	}

	rising, _ := New(8, WithVolumeCurve(VolumeRising))
	if got := rising.MapVolume(0); !approx(got, -12) {
		t.Errorf("rising volume(0) = %v, want -12", got)
	}
	if got := rising.MapVolume(255); !approx(got, 0) {
		t.Errorf("rising volume(255) = %v, want 0", got)
	}
	prev := rising.MapVolume(0)
	for v := 1; v <= 255; v++ {
		cur := rising.MapVolume(float64(v))
		if cur < prev {
			t.Fatalf("rising volume decreased at %d", v)
		}
		prev = cur
	}
}

func TestMapModulation(t *testing.T) {
	m, _ := New(8)
	if got := m.MapModulation(0); !approx(got, 0.5) {
		t.Errorf("modulation(0) = %v", got)
	}
	if got := m.MapModulation(255); !approx(got, 10) {
		t.Errorf("modulation(255) = %v", got)
	}
	if got := m.MapModulation(128); math.Abs(got-5.27) > 0.01 {
		t.Errorf("modulation(128) = %v, want ~5.27", got)
	}
}

// One sampled region with r=255 g=0 b=128 on an 8-note scale.
func TestRegionScenario(t *testing.T) {
	m, _ := New(8)
	if got := m.QuantizePitch(255); got != Reference[7] {
		t.Errorf("pitch = %s, want %s", got.Name(), Reference[7].Name())
	}
	if got := m.MapVolume(0); !approx(got, 0) {
		t.Errorf("volume = %v dB, want 0", got)
	}
	if got := m.MapModulation(128); math.Abs(got-5.27) > 0.01 {
		t.Errorf("modulation = %v, want ~5.27", got)
	}
}

func TestFrequencyToHue(t *testing.T) {
	tests := []struct {
		f, want float64
	}{
		{100, 0},
		{600, 180},
		{1100, 0},
		{50, 342},
	}
	for _, tt := range tests {
		got := FrequencyToHue(tt.f, 100, 1100)
		if !approx(got, tt.want) {
			t.Errorf("FrequencyToHue(%v) = %v, want %v", tt.f, got, tt.want)
		}
		if got < 0 || got >= 360 {
			t.Errorf("hue %v out of [0, 360)", got)
		}
	}
	if FrequencyToHue(500, 100, 100) != 0 {
		t.Errorf("empty range should map to 0")
	}
}

func TestPitchClassHueOctaveInvariant(t *testing.T) {
	a := PitchClassHue(Note(60).Frequency())
	b := PitchClassHue(Note(72).Frequency())
	if math.Abs(a-b) > 1e-6 {
		t.Fatalf("C4 hue %v != C5 hue %v", a, b)
	}
}

func TestGridFrequency(t *testing.T) {
	if got := GridFrequency(0, 0, 128, 128); !approx(got, 100) {
		t.Errorf("origin = %v, want 100", got)
	}
	if got := GridFrequency(64, 64, 128, 128); !approx(got, 600) {
		t.Errorf("center = %v, want 600", got)
	}
}

func TestNoteForFrequency(t *testing.T) {
	n, off := NoteForFrequency(440)
	if n != 69 || !approx(off, 0) {
		t.Fatalf("440 Hz -> %d %+v", n, off)
	}
	n, off = NoteForFrequency(Note(60).Frequency() * math.Pow(2, 0.25/12))
	if n != 60 || math.Abs(off-0.25) > 1e-9 {
		t.Fatalf("quarter tone above C4 -> %d %+v", n, off)
	}
	if Note(60).Name() != "C4" {
		t.Fatalf("Name(60) = %s", Note(60).Name())
	}
}
