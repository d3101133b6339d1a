package config

import (
	"os"
	"path/filepath"
	"testing"

	"go-sonify/effects"
	"go-sonify/failure"
	"go-sonify/mapper"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"mode", func(c *Config) { c.Mode = "organ" }},
		{"tempo low", func(c *Config) { c.Tempo = 5 }},
		{"tempo high", func(c *Config) { c.Tempo = 1000 }},
		{"voices", func(c *Config) { c.Voices = 0 }},
		{"scale short", func(c *Config) { c.ScaleLength = 0 }},
		{"scale long", func(c *Config) { c.ScaleLength = 17 }},
		{"octaves", func(c *Config) { c.Octaves = 9 }},
		{"curve", func(c *Config) { c.VolumeCurve = "sideways" }},
		{"effect", func(c *Config) { c.Effects = append(c.Effects, EffectConfig{Kind: "flanger"}) }},
		{"layout", func(c *Config) { c.Sampling.Layout = "hex" }},
		{"regions", func(c *Config) { c.Sampling.Regions = 0 }},
		{"theremin grid", func(c *Config) { c.Theremin.Rows = 0 }},
		{"touches", func(c *Config) { c.Theremin.MaxTouches = 0 }},
		{"channel", func(c *Config) { c.MIDI.Channel = 17 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			if err == nil {
				t.Fatalf("Validate accepted bad %s", tt.name)
			}
			if !failure.Is(err, failure.KindConfiguration) {
				t.Fatalf("error not tagged as configuration: %v", err)
			}
		})
	}
}

func TestUnknownSynthKindIsValid(t *testing.T) {
	c := DefaultConfig()
	c.SynthKind = "theremin-o-matic"
	if err := c.Validate(); err != nil {
		t.Fatalf("unknown synth kind rejected: %v", err)
	}
}

func TestLoadFileMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != ModeKeyboard || cfg.Tempo != 120 {
		t.Fatalf("got %+v", cfg)
	}
}

func TestLoadFileMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"mode": "camera", "effects": [{"kind": "reverb", "enabled": true, "params": {"decay": 3}}]}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != ModeCamera || cfg.Voices != 16 {
		t.Fatalf("mode=%s voices=%d", cfg.Mode, cfg.Voices)
	}
	fx := cfg.EffectSettings()
	if len(fx) != 1 || fx[0].Kind != effects.Reverb || !fx[0].Enabled || fx[0].Params.Decay != 3 {
		t.Fatalf("effects = %+v", fx)
	}
	if fx[0].Params.Amount != 0 {
		t.Fatalf("stale default leaked into effect params: %+v", fx[0].Params)
	}
}

func TestLoadFileBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte("{"), 0644)
	_, err := LoadFile(path)
	if !failure.Is(err, failure.KindConfiguration) {
		t.Fatalf("err = %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	c := DefaultConfig()
	c.Mode = ModeTheremin
	c.Serial.Port = "/dev/ttyUSB0"
	if err := c.Save(); err != nil {
		t.Fatal(err)
	}
	got, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.Mode != ModeTheremin || got.Serial.Port != "/dev/ttyUSB0" {
		t.Fatalf("got %+v", got)
	}
}

func TestCurve(t *testing.T) {
	c := DefaultConfig()
	c.VolumeCurve = "Rising"
	if curve, ok := c.Curve(); !ok || curve != mapper.VolumeRising {
		t.Fatalf("Curve = %v %v", curve, ok)
	}
}

func TestControllers(t *testing.T) {
	c := DefaultConfig()
	c.AddController(ControllerConfig{PortName: "Launchpad X LPX MIDI", Type: ControllerLaunchpadX})
	if len(c.Controllers) != 1 || c.AutoConnect("Launchpad X LPX MIDI") {
		t.Fatalf("AddController did not replace: %+v", c.Controllers)
	}
	if !c.AutoConnect("Some Keyboard") {
		t.Fatalf("unknown port should auto-connect")
	}
	if c.FindController("missing") != nil {
		t.Fatalf("found missing controller")
	}
}
