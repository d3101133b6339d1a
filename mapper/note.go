package mapper

import (
	"fmt"
	"math"
)

// Note is a MIDI note number.
type Note uint8

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Frequency returns the equal-tempered frequency in Hz (A4 = 440).
func (n Note) Frequency() float64 {
	return 440 * math.Pow(2, (float64(n)-69)/12)
}

// Name returns scientific pitch notation, e.g. "C4".
func (n Note) Name() string {
	return fmt.Sprintf("%s%d", noteNames[n%12], int(n)/12-1)
}

// NoteForFrequency returns the nearest note to freq and the remaining offset
// in semitones, in [-0.5, 0.5].
func NoteForFrequency(freq float64) (Note, float64) {
	if freq <= 0 {
		return 0, 0
	}
	exact := 69 + 12*math.Log2(freq/440)
	nearest := math.Round(exact)
	nearest = max(0, min(127, nearest))
	return Note(nearest), exact - nearest
}

// Reference is the fixed pitch table every scale is a prefix of.
var Reference = [16]Note{
	60, 62, 64, 65, 67, 69, 71, // C4 D4 E4 F4 G4 A4 B4
	72, 74, 76, 77, 79, 81, 83, // C5 .. B5
	84, 86, // C6 D6
}

// Scale is an ordered prefix of Reference.
type Scale []Note

// NewScale returns the first length entries of Reference.
func NewScale(length int) (Scale, error) {
	if length < 1 || length > len(Reference) {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrScaleLength, length, len(Reference))
	}
	s := make(Scale, length)
	copy(s, Reference[:length])
	return s, nil
}
