package midi

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
)

var ErrPortNotFound = errors.New("midi port not found")

// Outputs lazily opens output ports by name and caches their senders.
type Outputs struct {
	mu      sync.RWMutex
	senders map[string]func(gomidi.Message) error
}

func NewOutputs() *Outputs {
	return &Outputs{senders: make(map[string]func(gomidi.Message) error)}
}

// Sender returns a sender for the first output port whose name contains
// pattern (case-insensitive), opening it on first use.
func (o *Outputs) Sender(pattern string) (func(gomidi.Message) error, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty port name", ErrPortNotFound)
	}

	o.mu.RLock()
	if sender, ok := o.senders[pattern]; ok {
		o.mu.RUnlock()
		return sender, nil
	}
	o.mu.RUnlock()

	o.mu.Lock()
	defer o.mu.Unlock()

	// Double-check after acquiring write lock
	if sender, ok := o.senders[pattern]; ok {
		return sender, nil
	}

	want := strings.ToLower(pattern)
	for _, port := range gomidi.GetOutPorts() {
		if strings.Contains(strings.ToLower(port.String()), want) {
			sender, err := gomidi.SendTo(port)
			if err != nil {
				return nil, fmt.Errorf("open %s: %w", port.String(), err)
			}
			o.senders[pattern] = sender
			return sender, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPortNotFound, pattern)
}

// PortNames lists input and output port names.
func PortNames() (ins, outs []string) {
	for _, p := range gomidi.GetInPorts() {
		ins = append(ins, p.String())
	}
	for _, p := range gomidi.GetOutPorts() {
		outs = append(outs, p.String())
	}
	return ins, outs
}

// Shutdown closes the MIDI driver.
func Shutdown() {
	gomidi.CloseDriver()
}
