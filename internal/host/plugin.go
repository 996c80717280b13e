package host

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/PixPMusic/gnova/internal/gcode"
	"github.com/PixPMusic/gnova/internal/grid"
	"github.com/PixPMusic/gnova/internal/midi"
)

// Hooks are the lifecycle callbacks a print host invokes
type Hooks interface {
	OnStartup() error
	OnShutdown()
	OnPrinterStateChanged(state string)
	OnGCodeSent(line string)
}

// Renderer is the part of grid.Driver the plugin draws through
type Renderer interface {
	Connect() error
	Disconnect() error
	Render(res gcode.Result) error
	SetStatus(s grid.Status) error
}

// Line is one classified line, as reported to observers
type Line struct {
	Text   string       `json:"line"`
	Result gcode.Result `json:"result"`
	At     time.Time    `json:"at"`
}

// Observer is notified of every line the plugin classifies
type Observer interface {
	ObserveLine(line Line)
	ObserveStatus(status grid.Status)
}

// Plugin wires classification to the grid and implements Hooks.
// Drawing is serialized and observers are notified outside the lock.
// The plugin disables itself when no device can be opened at startup.
type Plugin struct {
	mu        sync.Mutex
	renderer  Renderer
	enabled   bool
	observers []Observer
	now       func() time.Time
}

var _ Hooks = &Plugin{}

// New creates a plugin drawing through r
func New(r Renderer) *Plugin {
	return &Plugin{renderer: r, now: time.Now}
}

// Observe registers o for line and status notifications
func (p *Plugin) Observe(o Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, o)
}

// Enabled reports whether the device was opened at startup
func (p *Plugin) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// OnStartup connects to the Launchpad. Device lookup failures are logged
// once and leave the plugin disabled; they are still returned so callers
// can report them.
func (p *Plugin) OnStartup() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	slog.Info("connecting to launchpad")
	if err := p.renderer.Connect(); err != nil {
		p.enabled = false
		if errors.Is(err, midi.ErrDeviceNotFound) || errors.Is(err, midi.ErrAmbiguousDevice) {
			slog.Error("cannot connect to launchpad, visualization disabled", "err", err)
		} else {
			slog.Error("launchpad setup failed, visualization disabled", "err", err)
		}
		return err
	}
	p.enabled = true
	return nil
}

// OnShutdown clears the grid and releases the device
func (p *Plugin) OnShutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled {
		return
	}
	slog.Info("disconnecting from launchpad")
	if err := p.renderer.Disconnect(); err != nil {
		slog.Warn("launchpad disconnect", "err", err)
	}
	p.enabled = false
}

// OnPrinterStateChanged shows the printer state on the status cell
func (p *Plugin) OnPrinterStateChanged(state string) {
	status := grid.ParseStatus(state)

	p.mu.Lock()
	observers := p.observersLocked()
	if p.enabled {
		if err := p.renderer.SetStatus(status); err != nil {
			slog.Debug("set status", "state", state, "err", err)
		}
	}
	p.mu.Unlock()

	for _, o := range observers {
		o.ObserveStatus(status)
	}
}

// OnGCodeSent classifies a line sent to the printer and flashes it
func (p *Plugin) OnGCodeSent(line string) {
	p.Send(line)
}

// Send is OnGCodeSent returning the classification it drew
func (p *Plugin) Send(line string) gcode.Result {
	res := gcode.Classify(line)
	if res.Kind == gcode.Ignored {
		return res
	}

	p.mu.Lock()
	l := Line{Text: line, Result: res, At: p.now()}
	observers := p.observersLocked()
	if p.enabled {
		if err := p.renderer.Render(res); err != nil {
			slog.Debug("render", "line", line, "err", err)
		}
	}
	p.mu.Unlock()

	// observers may block, e.g. on a slow event stream client
	for _, o := range observers {
		o.ObserveLine(l)
	}
	return res
}

func (p *Plugin) observersLocked() []Observer {
	return append([]Observer(nil), p.observers...)
}
