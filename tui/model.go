package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"

	"go-sonify/config"
	"go-sonify/effects"
	"go-sonify/engine"
	"go-sonify/input"
	"go-sonify/instrument"
	"go-sonify/midi"
	"go-sonify/theme"
	"go-sonify/visual"
	"go-sonify/widgets"
)

// Terminals report key presses but not releases; a note key counts as held
// while its auto-repeat keeps arriving.
const (
	holdTimeout = 600 * time.Millisecond
	holdPoll    = 50 * time.Millisecond
)

const (
	fieldTop     = 2 // header and a blank line
	defaultWidth = 64
	maxWidth     = 96
	tempoStep    = 5
)

type Model struct {
	Host      *instrument.Host
	DeviceMgr *midi.DeviceManager
	Theme     *theme.Theme
	Notifier  *visual.Notifier

	keys     keyMap
	help     help.Model
	held     map[string]time.Time
	width    int
	status   string
	quitting bool
	log      *zap.Logger
}

type UpdateMsg struct{}

type DeviceEventMsg midi.DeviceEvent

type holdTickMsg time.Time

// NewModel builds the front end. deviceMgr and notifier may be nil.
func NewModel(host *instrument.Host, deviceMgr *midi.DeviceManager, notifier *visual.Notifier, th *theme.Theme, log *zap.Logger) Model {
	if log == nil {
		log = zap.NewNop()
	}
	h := help.New()
	h.Styles.ShortKey = lipgloss.NewStyle().Foreground(th.Accent())
	h.Styles.ShortDesc = lipgloss.NewStyle().Foreground(th.Muted())
	h.Styles.FullKey = h.Styles.ShortKey
	h.Styles.FullDesc = h.Styles.ShortDesc
	return Model{
		Host:      host,
		DeviceMgr: deviceMgr,
		Theme:     th,
		Notifier:  notifier,
		keys:      defaultKeyMap(),
		help:      h,
		held:      make(map[string]time.Time),
		width:     defaultWidth,
		log:       log.Named("tui"),
	}
}

func ListenForUpdates(n *visual.Notifier) tea.Cmd {
	if n == nil {
		return nil
	}
	return func() tea.Msg {
		<-n.C()
		return UpdateMsg{}
	}
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	if deviceMgr == nil {
		return nil
	}
	return func() tea.Msg {
		event := <-deviceMgr.Events()
		return DeviceEventMsg(event)
	}
}

func pollHeld() tea.Cmd {
	return tea.Tick(holdPoll, func(t time.Time) tea.Msg {
		return holdTickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenForUpdates(m.Notifier),
		ListenForDevices(m.DeviceMgr),
		pollHeld(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	inst := m.Host.Current()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tea.KeyMsg:
		return m.handleKey(inst, msg)

	case tea.MouseMsg:
		if inst != nil {
			m.handleMouse(inst, msg)
		}

	case holdTickMsg:
		now := time.Time(msg)
		for k, last := range m.held {
			if now.Sub(last) >= holdTimeout {
				delete(m.held, k)
				if inst != nil {
					inst.Input().KeyUp(k)
				}
			}
		}
		return m, pollHeld()

	case UpdateMsg:
		return m, ListenForUpdates(m.Notifier)

	case DeviceEventMsg:
		event := midi.DeviceEvent(msg)
		switch event.Type {
		case midi.DeviceConnected:
			m.Host.Attach(event.Controller)
			m.status = fmt.Sprintf("%s connected", event.Controller.ID())
		case midi.DeviceDisconnected:
			m.Host.Detach(event.ID)
			m.status = fmt.Sprintf("%s disconnected", event.ID)
		}
		return m, ListenForDevices(m.DeviceMgr)
	}

	return m, nil
}

func (m Model) handleKey(inst *instrument.Instrument, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	if key.Matches(msg, m.keys.Help) {
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	if inst == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.OctaveUp), key.Matches(msg, m.keys.OctaveDown):
		clear(m.held)
		inst.Input().KeyDown(msg.String())

	case key.Matches(msg, m.keys.Synth):
		m.status = "synth " + inst.NextSynthKind().String()

	case key.Matches(msg, m.keys.Oscillator):
		next := nextOscillator(inst.Config().Oscillator)
		inst.SetOscillator(next)
		m.status = "oscillator " + next

	case key.Matches(msg, m.keys.TempoUp):
		inst.SetTempo(inst.Tempo() + tempoStep)

	case key.Matches(msg, m.keys.TempoDown):
		inst.SetTempo(inst.Tempo() - tempoStep)

	case key.Matches(msg, m.keys.Mode):
		clear(m.held)
		next, err := m.Host.NextMode()
		if err != nil {
			m.log.Warn("mode switch", zap.Error(err))
			m.status = err.Error()
		} else if next != nil {
			m.status = next.Mode() + " mode"
		}

	default:
		for i, b := range m.keys.Effect {
			if key.Matches(msg, b) {
				k := effects.Kinds()[i]
				on := inst.ToggleEffect(k)
				m.status = fmt.Sprintf("%s %s", k, onOff(on))
				return m, nil
			}
		}
		if k := msg.String(); len(k) == 1 {
			if _, down := m.held[k]; !down {
				inst.Input().KeyDown(k)
			}
			m.held[k] = time.Now()
		}
	}
	return m, nil
}

func (m Model) handleMouse(inst *instrument.Instrument, msg tea.MouseMsg) {
	w, h := m.fieldSize(inst.Mode())
	p := input.Point{
		X: (float64(msg.X) + 0.5) / float64(w),
		Y: (float64(msg.Y-fieldTop) + 0.5) / float64(h),
	}
	inside := p.X >= 0 && p.X < 1 && p.Y >= 0 && p.Y < 1
	router := inst.Input()

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft && inside {
			router.PointerDown(p)
		}
	case tea.MouseActionMotion:
		if !inside {
			router.PointerUp()
			return
		}
		router.PointerMove(p, msg.Button == tea.MouseButtonLeft)
	case tea.MouseActionRelease:
		router.PointerUp()
	}
}

// fieldSize is the character size of the playing field for mode.
func (m Model) fieldSize(mode string) (w, h int) {
	w = min(max(m.width, 16), maxWidth)
	switch mode {
	case config.ModeKeyboard:
		return w, 8
	case config.ModeTheremin:
		return w, 16
	default:
		return w, 12
	}
}

func nextOscillator(cur string) string {
	for i, o := range engine.Oscillators {
		if o == cur {
			return engine.Oscillators[(i+1)%len(engine.Oscillators)]
		}
	}
	return engine.Oscillators[0]
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	inst := m.Host.Current()
	if inst == nil {
		return "\n  no instrument\n"
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())

	cfg := inst.Config()
	title := fmt.Sprintf("go-sonify  %s  %3dbpm  %s/%s", inst.Mode(), inst.Tempo(), inst.SynthKind(), cfg.Oscillator)
	if kb := inst.Keyboard(); kb != nil {
		title += fmt.Sprintf("  oct:%d", kb.Base())
	}
	header := headerStyle.Render(title)

	var out strings.Builder
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(m.renderField(inst))
	out.WriteString("\n\n")

	var toggles []string
	for _, st := range inst.Effects() {
		toggles = append(toggles, widgets.RenderToggle(m.Theme, st.Kind.String(), st.Enabled))
	}
	out.WriteString(strings.Join(toggles, "  "))
	out.WriteString("\n")
	if m.status != "" {
		out.WriteString(dimStyle.Render(m.status))
	}
	out.WriteString("\n")
	out.WriteString(m.help.View(m.keys))

	return out.String()
}

func (m Model) renderField(inst *instrument.Instrument) string {
	w, h := m.fieldSize(inst.Mode())
	surface := inst.Surface()
	cells, _ := surface.Snapshot(nil)

	if inst.Mode() == config.ModeCamera {
		grid := visual.Downsample(cells, w/2, h, surface.Rest())
		return widgets.RenderGrid(grid, m.Theme.Symbols.Cell)
	}

	layout := inst.Layout()
	kb := inst.Keyboard()
	keys := kb != nil
	sym := m.Theme.Symbols.Cell
	if keys {
		sym = m.Theme.Symbols.WhiteKey
	}
	bg := m.Theme.RGB(theme.RoleBG)
	blackRest := colorful.Color{R: float64(bg[0]) / 255, G: float64(bg[1]) / 255, B: float64(bg[2]) / 255}
	step := 1 / float64(w)
	return widgets.RenderField(w, h, sym, func(x, y float64) (colorful.Color, bool) {
		cell, ok := layout.CellAt(input.Point{X: x, Y: y})
		if !ok || cell >= len(cells) {
			return colorful.Color{}, false
		}
		// leave a gap at the left edge of every key
		if keys && x > step {
			if left, ok := layout.CellAt(input.Point{X: x - step, Y: y}); ok && left != cell {
				return colorful.Color{}, false
			}
		}
		c := cells[cell].Color
		if keys && kb.IsBlack(cell) && c == surface.Rest() {
			c = blackRest
		}
		return c, true
	})
}
