package midi

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register rtmidi driver
)

var (
	// ErrDeviceNotFound is returned when no output port matches the selector
	ErrDeviceNotFound = errors.New("launchpad not found")
	// ErrAmbiguousDevice is returned when several ports match and none can be preferred
	ErrAmbiguousDevice = errors.New("more than one matching launchpad port")
	// ErrSendFailed wraps errors from writing to an open port
	ErrSendFailed = errors.New("midi send failed")
)

// DefaultPortPatterns match the Mini Mk3 port names on macOS/Linux ("Launchpad Mini MK3 ...")
// and Windows ("LPMiniMK3 MIDI")
var DefaultPortPatterns = []string{"Launchpad Mini MK3", "LPMiniMK3"}

var (
	// The Mk3 exposes a DAW and a MIDI interface; ALSA truncates them to "DA" and "MI"
	rxDAWPort  = regexp.MustCompile(`\bDAW?\b`)
	rxMIDIPort = regexp.MustCompile(`\bMI(DI)?\b`)
)

// Selector describes which output port to open
type Selector struct {
	Name     string   // exact port name, wins over Patterns
	Patterns []string // case-insensitive substrings, DefaultPortPatterns when empty
}

func (s Selector) matches(name string) bool {
	patterns := s.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPortPatterns
	}
	upper := strings.ToUpper(name)
	for _, p := range patterns {
		if p != "" && strings.Contains(upper, strings.ToUpper(p)) {
			return true
		}
	}
	return false
}

// SelectPort picks the index of the port to open from a list of output port names.
// The Mk3 enumerates two ports per device; LED control in programmer mode
// goes through the MIDI interface, so that one is preferred over the DAW one.
func SelectPort(names []string, sel Selector) (int, error) {
	if sel.Name != "" {
		for i, name := range names {
			if name == sel.Name {
				return i, nil
			}
		}
		return -1, fmt.Errorf("%w: no port named %q", ErrDeviceNotFound, sel.Name)
	}

	var candidates, midiPorts, nonDAW []int
	for i, name := range names {
		if !sel.matches(name) {
			continue
		}
		candidates = append(candidates, i)
		upper := strings.ToUpper(name)
		if rxDAWPort.MatchString(upper) {
			continue
		}
		nonDAW = append(nonDAW, i)
		if rxMIDIPort.MatchString(upper) {
			midiPorts = append(midiPorts, i)
		}
	}

	switch {
	case len(candidates) == 0:
		return -1, ErrDeviceNotFound
	case len(midiPorts) == 1:
		return midiPorts[0], nil
	case len(midiPorts) > 1:
		return -1, fmt.Errorf("%w: %d MIDI interfaces", ErrAmbiguousDevice, len(midiPorts))
	case len(nonDAW) == 1:
		return nonDAW[0], nil
	case len(candidates) == 1:
		return candidates[0], nil
	case len(candidates) == 2:
		// Unlabelled pair: the second port is the MIDI interface
		return candidates[1], nil
	}
	return -1, fmt.Errorf("%w: %d candidate ports", ErrAmbiguousDevice, len(candidates))
}

// Output is an open port messages can be sent to
type Output interface {
	Name() string
	Send(msg midi.Message) error
	Close() error
}

// Port is an Output backed by a gomidi driver port
type Port struct {
	out  drivers.Out
	send func(midi.Message) error
}

func (p *Port) Name() string { return p.out.String() }

// Send writes a message, wrapping failures with ErrSendFailed
func (p *Port) Send(msg midi.Message) error {
	if err := p.send(msg); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSendFailed, msg, err)
	}
	return nil
}

func (p *Port) Close() error {
	return p.out.Close()
}

// Manager handles MIDI device discovery and management
type Manager struct {
	mu sync.RWMutex
}

// NewManager creates a new MIDI manager
func NewManager() *Manager {
	return &Manager{}
}

// Close cleans up the MIDI driver
func (m *Manager) Close() {
	midi.CloseDriver()
}

// ListOutPorts returns the names of available MIDI output ports
func (m *Manager) ListOutPorts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	outs := midi.GetOutPorts()
	names := make([]string, 0, len(outs))
	for _, out := range outs {
		names = append(names, out.String())
	}
	return names
}

// Open finds the output port matching sel and opens it for sending
func (m *Manager) Open(sel Selector) (Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	outs := midi.GetOutPorts()
	names := make([]string, 0, len(outs))
	for _, out := range outs {
		names = append(names, out.String())
	}

	idx, err := SelectPort(names, sel)
	if err != nil {
		return nil, err
	}

	send, err := midi.SendTo(outs[idx])
	if err != nil {
		return nil, fmt.Errorf("failed to create sender for %s: %w", names[idx], err)
	}
	return &Port{out: outs[idx], send: send}, nil
}
