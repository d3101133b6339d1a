package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go-sonify/effects"
	"go-sonify/engine"
	"go-sonify/failure"
	"go-sonify/mapper"
	"go-sonify/sampling"
)

// Instrument modes.
const (
	ModeKeyboard = "keyboard"
	ModeTheremin = "theremin"
	ModeCamera   = "camera"
)

// Modes lists the instrument modes in switching order.
func Modes() []string {
	return []string{ModeKeyboard, ModeTheremin, ModeCamera}
}

// Sampling layouts for camera mode.
const (
	LayoutGrid   = "grid"
	LayoutBlocks = "blocks"
	LayoutStrip  = "strip"
)

// ControllerType identifies the kind of controller
type ControllerType string

const (
	ControllerLaunchpadX    ControllerType = "launchpad-x"
	ControllerLaunchpadMini ControllerType = "launchpad-mini"
	ControllerLaunchpadPro  ControllerType = "launchpad-pro"
	ControllerKeyboard      ControllerType = "keyboard"
)

// ControllerConfig defines a saved controller configuration
type ControllerConfig struct {
	PortName     string         `json:"portName"`
	Type         ControllerType `json:"type"`
	AutoConnect  bool           `json:"autoConnect"`
	InputChannel int            `json:"inputChannel,omitempty"` // for keyboards
}

// EffectConfig is the saved state of one effect stage
type EffectConfig struct {
	Kind    string         `json:"kind"`
	Enabled bool           `json:"enabled"`
	Params  effects.Params `json:"params"`
}

// SamplingConfig drives camera mode
type SamplingConfig struct {
	Layout    string `json:"layout"`
	Regions   int    `json:"regions"`
	Mirror    bool   `json:"mirror"`
	Retrigger bool   `json:"retrigger"`
	// Source size of the built-in plasma when no camera is attached
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ThereminConfig sizes the touch grid
type ThereminConfig struct {
	Columns    int `json:"columns"`
	Rows       int `json:"rows"`
	MaxTouches int `json:"maxTouches"`
}

// MIDIConfig selects ports by case-insensitive substring
type MIDIConfig struct {
	Output    string   `json:"output,omitempty"`
	Channel   int      `json:"channel"` // first channel, 1-16
	Excluded  []string `json:"excluded,omitempty"`
	Keyboards bool     `json:"keyboards"`
}

// SerialConfig enables the LED strip mirror
type SerialConfig struct {
	Port string `json:"port,omitempty"`
	Baud int    `json:"baud,omitempty"`
	LEDs int    `json:"leds,omitempty"`
}

// LogConfig controls the debug log file
type LogConfig struct {
	Path    string `json:"path,omitempty"`
	Verbose bool   `json:"verbose,omitempty"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	FPS     int    `json:"fps,omitempty"`
	Palette string `json:"palette,omitempty"` // GIMP .gpl file, empty for the built-in plasma
}

// Config is the main configuration structure
type Config struct {
	Mode        string             `json:"mode"`
	Tempo       int                `json:"tempo"`
	Voices      int                `json:"voices"`
	ScaleLength int                `json:"scaleLength"`
	Octaves     int                `json:"octaves"`
	SynthKind   string             `json:"synthKind"`
	Oscillator  string             `json:"oscillator"`
	VolumeCurve string             `json:"volumeCurve,omitempty"` // "falling" or "rising"
	Envelope    engine.Envelope    `json:"envelope"`
	Filter      engine.Filter      `json:"filter"`
	Effects     []EffectConfig     `json:"effects"`
	Sampling    SamplingConfig     `json:"sampling"`
	Theremin    ThereminConfig     `json:"theremin"`
	MIDI        MIDIConfig         `json:"midi"`
	Controllers []ControllerConfig `json:"controllers,omitempty"`
	Serial      SerialConfig       `json:"serial,omitempty"`
	Log         LogConfig          `json:"log,omitempty"`
	UI          UIConfig           `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	var fx []EffectConfig
	for _, s := range effects.Defaults() {
		fx = append(fx, EffectConfig{Kind: s.Kind.String(), Enabled: s.Enabled, Params: s.Params})
	}
	return &Config{
		Mode:        ModeKeyboard,
		Tempo:       sampling.DefaultTempo,
		Voices:      16,
		ScaleLength: 12,
		Octaves:     2,
		SynthKind:   engine.SynthDefault.String(),
		Oscillator:  "sine",
		VolumeCurve: "falling",
		Envelope:    engine.DefaultEnvelope(),
		Filter:      engine.DefaultFilter(),
		Effects:     fx,
		Sampling: SamplingConfig{
			Layout:    LayoutGrid,
			Regions:   16,
			Mirror:    true,
			Retrigger: true,
			Width:     64,
			Height:    48,
		},
		Theremin: ThereminConfig{
			Columns:    128,
			Rows:       128,
			MaxTouches: 10,
		},
		MIDI: MIDIConfig{
			Channel:   1,
			Keyboards: true,
		},
		Serial: SerialConfig{
			Baud: 115200,
			LEDs: 60,
		},
		Controllers: []ControllerConfig{
			{
				PortName:    "Launchpad X LPX MIDI",
				Type:        ControllerLaunchpadX,
				AutoConnect: true,
			},
		},
		UI: UIConfig{
			FPS: 30,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-sonify"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default path, or returns defaults if not
// found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path over the defaults, so a partial file
// only overrides what it names. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, failure.Unavailable(err, "read config")
	}

	// slices are replaced wholesale, not merged element by element
	fx, ctrls := cfg.Effects, cfg.Controllers
	cfg.Effects, cfg.Controllers = nil, nil
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, failure.Configuration(err, fmt.Sprintf("parse %s", path))
	}
	if cfg.Effects == nil {
		cfg.Effects = fx
	}
	if cfg.Controllers == nil {
		cfg.Controllers = ctrls
	}
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path, creating its directory.
func (c *Config) SaveFile(path string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func invalid(field string, format string, args ...any) error {
	return failure.Configuration(nil, fmt.Sprintf("%s: %s", field, fmt.Sprintf(format, args...)))
}

// Validate checks every recognized option. An unknown synth kind is not an
// error; the instrument falls back to the default and warns.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeKeyboard, ModeTheremin, ModeCamera:
	default:
		return invalid("mode", "unknown mode %q", c.Mode)
	}
	if c.Tempo < sampling.MinTempo || c.Tempo > sampling.MaxTempo {
		return invalid("tempo", "%d not in [%d, %d]", c.Tempo, sampling.MinTempo, sampling.MaxTempo)
	}
	if c.Voices < 1 {
		return invalid("voices", "must be positive, got %d", c.Voices)
	}
	if c.ScaleLength < 1 || c.ScaleLength > len(mapper.Reference) {
		return invalid("scaleLength", "%d not in [1, %d]", c.ScaleLength, len(mapper.Reference))
	}
	if c.Octaves < 1 || c.Octaves > 8 {
		return invalid("octaves", "%d not in [1, 8]", c.Octaves)
	}
	if _, ok := c.Curve(); !ok {
		return invalid("volumeCurve", "unknown curve %q", c.VolumeCurve)
	}
	for _, e := range c.Effects {
		if _, ok := effects.ParseKind(e.Kind); !ok {
			return invalid("effects", "unknown effect %q", e.Kind)
		}
	}
	switch c.Sampling.Layout {
	case LayoutGrid, LayoutBlocks, LayoutStrip:
	default:
		return invalid("sampling.layout", "unknown layout %q", c.Sampling.Layout)
	}
	if c.Sampling.Regions < 1 {
		return invalid("sampling.regions", "must be positive, got %d", c.Sampling.Regions)
	}
	if c.Theremin.Columns < 1 || c.Theremin.Rows < 1 {
		return invalid("theremin", "grid %dx%d", c.Theremin.Columns, c.Theremin.Rows)
	}
	if c.Theremin.MaxTouches < 1 {
		return invalid("theremin.maxTouches", "must be positive, got %d", c.Theremin.MaxTouches)
	}
	if c.MIDI.Channel < 1 || c.MIDI.Channel > 16 {
		return invalid("midi.channel", "%d not in [1, 16]", c.MIDI.Channel)
	}
	return nil
}

// Curve returns the configured volume curve.
func (c *Config) Curve() (mapper.VolumeCurve, bool) {
	switch strings.ToLower(c.VolumeCurve) {
	case "", "falling":
		return mapper.VolumeFalling, true
	case "rising":
		return mapper.VolumeRising, true
	}
	return mapper.VolumeFalling, false
}

// EffectSettings converts the saved effects into router settings, skipping
// unknown kinds.
func (c *Config) EffectSettings() []effects.Settings {
	var out []effects.Settings
	for _, e := range c.Effects {
		k, ok := effects.ParseKind(e.Kind)
		if !ok {
			continue
		}
		out = append(out, effects.Settings{Kind: k, Enabled: e.Enabled, Params: e.Params})
	}
	return out
}

// FindController finds a controller config by port name
func (c *Config) FindController(portName string) *ControllerConfig {
	for i := range c.Controllers {
		if c.Controllers[i].PortName == portName {
			return &c.Controllers[i]
		}
	}
	return nil
}

// AddController adds or updates a controller config
func (c *Config) AddController(ctrl ControllerConfig) {
	for i := range c.Controllers {
		if c.Controllers[i].PortName == ctrl.PortName {
			c.Controllers[i] = ctrl
			return
		}
	}
	c.Controllers = append(c.Controllers, ctrl)
}

// AutoConnect reports whether a controller on portName should be attached.
// Ports without a saved entry are attached.
func (c *Config) AutoConnect(portName string) bool {
	if ctrl := c.FindController(portName); ctrl != nil {
		return ctrl.AutoConnect
	}
	return true
}
