package midi

import (
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
)

func TestNoteMappingRoundTrip(t *testing.T) {
	for row := 0; row < GridSize; row++ {
		for col := 0; col < GridSize; col++ {
			r, c := noteToRowCol(rowColToNote(row, col))
			if r != row || c != col {
				t.Fatalf("(%d,%d) -> (%d,%d)", row, col, r, c)
			}
		}
	}
	if r, _ := noteToRowCol(5); r != -1 {
		t.Fatalf("note 5 mapped to row %d", r)
	}
}

func TestMapRGBToLaunchpad(t *testing.T) {
	tests := []struct {
		rgb  [3]uint8
		want uint8
	}{
		{[3]uint8{0, 0, 0}, 0},
		{[3]uint8{255, 0, 0}, 5},
		{[3]uint8{255, 255, 255}, 119},
		{[3]uint8{0, 250, 0}, 21},
	}
	for _, tt := range tests {
		if got := MapRGBToLaunchpad(tt.rgb); got != tt.want {
			t.Errorf("MapRGBToLaunchpad(%v) = %d, want %d", tt.rgb, got, tt.want)
		}
	}
}

func TestLaunchpadPressAndRelease(t *testing.T) {
	lp, err := NewLaunchpadController("test", nil, nil, nil)
	if err != nil {
		t.Fatalf("NewLaunchpadController: %v", err)
	}
	defer lp.Close()

	lp.handle(gomidi.NoteOn(0, 11, 100), 0)
	lp.handle(gomidi.NoteOn(0, 11, 0), 0)

	press := <-lp.PadEvents()
	release := <-lp.PadEvents()
	if !press.Pressed || press.Row != 0 || press.Col != 0 {
		t.Fatalf("press = %+v", press)
	}
	if release.Pressed || release.Row != 0 || release.Col != 0 {
		t.Fatalf("release = %+v", release)
	}
}

func TestKeyboardForwardsNoteOff(t *testing.T) {
	kb, err := NewKeyboardController("test", nil, nil)
	if err != nil {
		t.Fatalf("NewKeyboardController: %v", err)
	}
	defer kb.Close()

	kb.handle(gomidi.NoteOn(2, 60, 90), 0)
	kb.handle(gomidi.NoteOff(2, 60), 0)
	kb.handle(gomidi.ControlChange(2, 1, 64), 0)

	on := <-kb.NoteEvents()
	off := <-kb.NoteEvents()
	if on.Status != NoteOn || on.Note != 60 || on.Velocity != 90 || on.Channel != 2 {
		t.Fatalf("on = %+v", on)
	}
	if off.Status != NoteOff || off.Note != 60 {
		t.Fatalf("off = %+v", off)
	}
	select {
	case evt := <-kb.NoteEvents():
		t.Fatalf("unexpected event %+v", evt)
	default:
	}
}

func TestCloseTwice(t *testing.T) {
	kb, _ := NewKeyboardController("test", nil, nil)
	kb.Close()
	kb.Close()
}

func TestClassify(t *testing.T) {
	dm := NewDeviceManager()
	tests := []struct {
		name string
		want ControllerType
	}{
		{"Launchpad X LPX MIDI", ControllerLaunchpad},
		{"Launchpad X LPX DAW", ControllerUnknown},
		{"Midi Through Port-0", ControllerUnknown},
		{"Arturia KeyStep 37", ControllerKeyboard},
	}
	for _, tt := range tests {
		if got := dm.classify(tt.name); got != tt.want {
			t.Errorf("classify(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}

	noKeys := NewDeviceManager(WithKeyboards(false))
	if got := noKeys.classify("Arturia KeyStep 37"); got != ControllerUnknown {
		t.Errorf("keyboard detected with keyboards disabled")
	}
}
