package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"go-sonify/config"
	"go-sonify/engine"
	"go-sonify/instrument"
	"go-sonify/theme"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	host := instrument.NewHost(func(cfg *config.Config) (*instrument.Instrument, error) {
		return instrument.New(cfg, engine.NewLog(nil), instrument.WithFadeTiming(10*time.Millisecond, 2*time.Millisecond))
	}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	if err := host.Start(ctx, config.DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		host.Close()
		cancel()
	})
	return NewModel(host, nil, nil, theme.New(theme.Plasma()), nil)
}

func press(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestHeldKeyReleasesAfterTimeout(t *testing.T) {
	m := newTestModel(t)
	pool := m.Host.Current().Pool()

	m = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	m = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	if pool.Active() != 1 {
		t.Fatalf("active = %d after key press", pool.Active())
	}

	m = press(m, holdTickMsg(time.Now()))
	if pool.Active() != 1 {
		t.Fatalf("key released while repeating")
	}
	m = press(m, holdTickMsg(time.Now().Add(holdTimeout+time.Millisecond)))
	if pool.Active() != 0 {
		t.Fatalf("active = %d after hold timeout", pool.Active())
	}
}

func TestMousePlaysField(t *testing.T) {
	m := newTestModel(t)
	pool := m.Host.Current().Pool()

	m = press(m, tea.MouseMsg{X: 0, Y: fieldTop + 7, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if pool.Active() != 1 {
		t.Fatalf("active = %d after click", pool.Active())
	}
	m = press(m, tea.MouseMsg{X: 0, Y: fieldTop + 7, Action: tea.MouseActionRelease})
	if pool.Active() != 0 {
		t.Fatalf("active = %d after release", pool.Active())
	}

	// clicks on the header do nothing
	press(m, tea.MouseMsg{X: 0, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if pool.Active() != 0 {
		t.Fatalf("header click played a note")
	}
}

func TestModeAndEffectKeys(t *testing.T) {
	m := newTestModel(t)

	m = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'1'}})
	if st := m.Host.Current().Effects()[0]; !st.Enabled {
		t.Fatalf("distortion not toggled on")
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyTab})
	if got := m.Host.Current().Mode(); got != config.ModeTheremin {
		t.Fatalf("mode = %s", got)
	}
	if !strings.Contains(m.View(), config.ModeTheremin) {
		t.Fatalf("view does not show mode:\n%s", m.View())
	}
}

func TestNextOscillator(t *testing.T) {
	if got := nextOscillator("sine"); got != "square" {
		t.Fatalf("next(sine) = %s", got)
	}
	if got := nextOscillator("triangle"); got != "sine" {
		t.Fatalf("next(triangle) = %s", got)
	}
	if got := nextOscillator("bogus"); got != "sine" {
		t.Fatalf("next(bogus) = %s", got)
	}
}
