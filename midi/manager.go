package midi

import (
	"context"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
	"go.uber.org/zap"
)

// DeviceEvent is emitted when controllers connect/disconnect
type DeviceEvent struct {
	Type       DeviceEventType
	Controller Controller
	ID         string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

// DefaultExcluded are input ports that are never treated as keyboards.
var DefaultExcluded = []string{"midi through", "rtmidi", "iac", "virtual"}

// DeviceManager handles hot-plug detection of MIDI controllers
type DeviceManager struct {
	controllers map[string]Controller
	mu          sync.RWMutex
	events      chan DeviceEvent
	pollRate    time.Duration
	scanTimeout time.Duration
	keyboards   bool
	excluded    []string
	log         *zap.Logger
}

type Option func(*DeviceManager)

func WithLogger(log *zap.Logger) Option {
	return func(dm *DeviceManager) {
		if log != nil {
			dm.log = log.Named("midi")
		}
	}
}

// WithKeyboards enables detection of plain MIDI inputs as keyboards.
func WithKeyboards(enabled bool) Option {
	return func(dm *DeviceManager) {
		dm.keyboards = enabled
	}
}

// WithExcluded replaces the list of substrings that disqualify a port from
// being a keyboard.
func WithExcluded(patterns []string) Option {
	return func(dm *DeviceManager) {
		dm.excluded = nil
		for _, p := range patterns {
			dm.excluded = append(dm.excluded, strings.ToLower(p))
		}
	}
}

// NewDeviceManager creates a new device manager
func NewDeviceManager(opts ...Option) *DeviceManager {
	dm := &DeviceManager{
		controllers: make(map[string]Controller),
		events:      make(chan DeviceEvent, 16),
		pollRate:    time.Second,
		scanTimeout: 3 * time.Second,
		keyboards:   true,
		excluded:    DefaultExcluded,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(dm)
	}
	return dm
}

// Events returns a channel of device connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Controllers returns a snapshot of connected controllers
func (dm *DeviceManager) Controllers() map[string]Controller {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	out := make(map[string]Controller, len(dm.controllers))
	for k, v := range dm.controllers {
		out[k] = v
	}
	return out
}

// GetLaunchpad returns the first connected Launchpad (or nil)
func (dm *DeviceManager) GetLaunchpad() Controller {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	for _, c := range dm.controllers {
		if c.Type() == ControllerLaunchpad {
			return c
		}
	}
	return nil
}

// Run starts the polling loop (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	// Initial scan
	dm.scan()

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan()
		}
	}
}

func (dm *DeviceManager) scan() {
	// Get current MIDI ports with timeout (CoreMIDI can hang)
	type portsResult struct {
		inPorts  []drivers.In
		outPorts []drivers.Out
	}

	ch := make(chan portsResult, 1)
	go func() {
		inPorts := gomidi.GetInPorts()
		outPorts := gomidi.GetOutPorts()
		ch <- portsResult{inPorts: inPorts, outPorts: outPorts}
	}()

	var inPorts []drivers.In
	var outPorts []drivers.Out

	select {
	case result := <-ch:
		inPorts = result.inPorts
		outPorts = result.outPorts
	case <-time.After(dm.scanTimeout):
		// CoreMIDI is hung - skip this scan
		// User needs to run: sudo killall coreaudiod midiserver
		dm.log.Warn("port scan timed out")
		return
	}

	seenIDs := make(map[string]bool)

	for i, inPort := range inPorts {
		id := inPort.String()
		kind := dm.classify(id)
		if kind == ControllerUnknown {
			continue
		}
		seenIDs[id] = true

		dm.mu.RLock()
		_, exists := dm.controllers[id]
		dm.mu.RUnlock()
		if exists {
			continue
		}

		var ctrl Controller
		var err error
		switch kind {
		case ControllerLaunchpad:
			ctrl, err = NewLaunchpadController(id, inPorts[i], matchOutPort(id, outPorts), dm.log)
		case ControllerKeyboard:
			ctrl, err = NewKeyboardController(id, inPorts[i], dm.log)
		}
		if err != nil {
			dm.log.Warn("open controller failed", zap.String("port", id), zap.Error(err))
			continue
		}

		dm.mu.Lock()
		dm.controllers[id] = ctrl
		dm.mu.Unlock()

		dm.log.Info("controller connected", zap.String("port", id), zap.Stringer("type", kind))
		dm.events <- DeviceEvent{
			Type:       DeviceConnected,
			Controller: ctrl,
			ID:         id,
		}
	}

	// Check for disconnects
	dm.mu.Lock()
	var toRemove []string
	for id := range dm.controllers {
		if !seenIDs[id] {
			toRemove = append(toRemove, id)
		}
	}
	for _, id := range toRemove {
		c := dm.controllers[id]
		c.Close()
		delete(dm.controllers, id)
		dm.log.Info("controller disconnected", zap.String("port", id))
		dm.events <- DeviceEvent{
			Type:       DeviceDisconnected,
			Controller: c,
			ID:         id,
		}
	}
	dm.mu.Unlock()
}

// classify decides what an input port is from its name.
func (dm *DeviceManager) classify(name string) ControllerType {
	if isLaunchpad(name) {
		return ControllerLaunchpad
	}
	if !dm.keyboards {
		return ControllerUnknown
	}
	lower := strings.ToLower(name)
	// Launchpad DAW ports and the like
	if strings.Contains(lower, "launchpad") {
		return ControllerUnknown
	}
	for _, ex := range dm.excluded {
		if strings.Contains(lower, ex) {
			return ControllerUnknown
		}
	}
	return ControllerKeyboard
}

func matchOutPort(name string, outPorts []drivers.Out) drivers.Out {
	lower := strings.ToLower(name)
	for j, op := range outPorts {
		if strings.ToLower(op.String()) == lower {
			return outPorts[j]
		}
	}
	return nil
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, c := range dm.controllers {
		c.Close()
	}
	dm.controllers = make(map[string]Controller)
}

func isLaunchpad(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(name, "launchpad") && strings.Contains(name, "midi")
}
