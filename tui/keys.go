package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	OctaveUp   key.Binding
	OctaveDown key.Binding
	Effect     [4]key.Binding
	Synth      key.Binding
	Oscillator key.Binding
	TempoUp    key.Binding
	TempoDown  key.Binding
	Mode       key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		OctaveUp:   key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "octave up")),
		OctaveDown: key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "octave down")),
		Effect: [4]key.Binding{
			key.NewBinding(key.WithKeys("f1", "1"), key.WithHelp("1", "distortion")),
			key.NewBinding(key.WithKeys("f2", "2"), key.WithHelp("2", "delay")),
			key.NewBinding(key.WithKeys("f3", "3"), key.WithHelp("3", "reverb")),
			key.NewBinding(key.WithKeys("f4", "4"), key.WithHelp("4", "chorus")),
		},
		Synth:      key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "synth")),
		Oscillator: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "oscillator")),
		TempoUp:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "tempo")),
		TempoDown:  key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "tempo")),
		Mode:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "mode")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Mode, k.Synth, k.TempoUp, k.TempoDown, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.OctaveUp, k.OctaveDown, k.Mode},
		{k.Effect[0], k.Effect[1], k.Effect[2], k.Effect[3]},
		{k.Synth, k.Oscillator, k.TempoUp, k.TempoDown},
		{k.Help, k.Quit},
	}
}
