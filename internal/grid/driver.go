package grid

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PixPMusic/gnova/internal/gcode"
	"github.com/PixPMusic/gnova/internal/midi"
	gomidi "gitlab.com/gomidi/midi/v2"
)

// ErrNotConnected is returned by drawing operations while no port is open
var ErrNotConnected = errors.New("launchpad not connected")

const (
	// StatusCell shows the printer state, top-left of the grid
	StatusCell = midi.Cell(81)
	// UnknownCell blinks for lines with no recognized command, top-right of the grid
	UnknownCell = midi.Cell(88)
	// StatusController is the top row button switched off on shutdown
	StatusController uint8 = 91
)

// Status is what the status cell shows
type Status int

const (
	StatusIdle Status = iota // disconnected, error or unknown printer state
	StatusOperational
	StatusPrinting
)

// ParseStatus maps a printer state string to a Status
func ParseStatus(state string) Status {
	switch state {
	case "Operational":
		return StatusOperational
	case "Printing":
		return StatusPrinting
	}
	return StatusIdle
}

func (s Status) String() string {
	switch s {
	case StatusOperational:
		return "operational"
	case StatusPrinting:
		return "printing"
	}
	return "idle"
}

// Palette holds the colors the driver draws with
type Palette struct {
	Flash       midi.Color
	Unknown     midi.Color
	Idle        midi.Color
	Operational midi.Color
	Printing    midi.Color
}

// DefaultPalette is dim white flashes, blue unknown blinks and a red/yellow/green status
var DefaultPalette = Palette{
	Flash:       midi.ColorDim,
	Unknown:     midi.ColorBlue,
	Idle:        midi.ColorRed,
	Operational: midi.ColorYellow,
	Printing:    midi.ColorGreen,
}

func (p Palette) status(s Status) midi.Color {
	switch s {
	case StatusOperational:
		return p.Operational
	case StatusPrinting:
		return p.Printing
	}
	return p.Idle
}

// Opener opens the output port the driver draws on
type Opener func() (midi.Output, error)

// Options configure a Driver
type Options struct {
	Device  midi.Device
	Palette Palette
	// Step is how long each column of a flash is held before the next one lights
	Step time.Duration
	// Sleep is used for flash timing, time.Sleep when nil
	Sleep func(time.Duration)
}

// DefaultStep sweeps a full row in 80ms
const DefaultStep = 10 * time.Millisecond

// Driver renders classification results on the Launchpad grid.
// It owns the port from Connect until Disconnect.
type Driver struct {
	open    Opener
	device  midi.Device
	palette Palette
	step    time.Duration
	sleep   func(time.Duration)

	out midi.Output
	// frame is what the driver last wrote to each cell and controller;
	// the device is write-only so flashes restore from here
	frame       map[midi.Cell]midi.Color
	controllers map[uint8]uint8
}

// NewDriver creates a disconnected driver
func NewDriver(open Opener, opts Options) *Driver {
	d := &Driver{
		open:    open,
		device:  opts.Device,
		palette: opts.Palette,
		step:    opts.Step,
		sleep:   opts.Sleep,
	}
	if d.device == nil {
		d.device = midi.GetDevice(midi.DeviceTypeColorful)
	}
	if d.palette == (Palette{}) {
		d.palette = DefaultPalette
	}
	if d.step <= 0 {
		d.step = DefaultStep
	}
	if d.sleep == nil {
		d.sleep = time.Sleep
	}
	d.resetFrame()
	return d
}

func (d *Driver) resetFrame() {
	d.frame = make(map[midi.Cell]midi.Color)
	d.controllers = make(map[uint8]uint8)
}

// Connected reports whether a port is open
func (d *Driver) Connected() bool { return d.out != nil }

// PortName returns the name of the open port, or "" when disconnected
func (d *Driver) PortName() string {
	if d.out == nil {
		return ""
	}
	return d.out.Name()
}

func (d *Driver) send(msg gomidi.Message) error {
	return d.out.Send(msg)
}

// Connect opens the port, switches the device to programmer mode,
// clears it and shows the idle status.
func (d *Driver) Connect() error {
	if d.out != nil {
		return nil
	}
	out, err := d.open()
	if err != nil {
		return err
	}
	d.out = out
	d.resetFrame()

	if err := d.setup(); err != nil {
		// a half initialised device is released so Connect can be retried
		if cerr := out.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close %s: %w", out.Name(), cerr))
		}
		d.out = nil
		d.resetFrame()
		return err
	}
	slog.Info("launchpad connected", "port", out.Name())
	return nil
}

func (d *Driver) setup() error {
	if err := d.device.SetProgrammerMode(d.send, true); err != nil {
		return err
	}
	if err := d.ClearAll(); err != nil {
		return err
	}
	return d.Idle()
}

// Disconnect clears the device, turns the status controller off, leaves
// programmer mode and closes the port. The port is released even when
// one of the messages fails.
func (d *Driver) Disconnect() error {
	if d.out == nil {
		return ErrNotConnected
	}
	err := errors.Join(
		d.ClearAll(),
		d.setIndicator(StatusController, 0),
		d.device.SetProgrammerMode(d.send, false),
	)
	name := d.out.Name()
	if cerr := d.out.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("failed to close %s: %w", name, cerr))
	}
	d.out = nil
	d.resetFrame()
	slog.Info("launchpad disconnected", "port", name)
	return err
}

func (d *Driver) setCell(cell midi.Cell, color midi.Color) error {
	if err := d.device.SetCell(d.send, cell, color); err != nil {
		return err
	}
	if color == midi.ColorOff {
		delete(d.frame, cell)
	} else {
		d.frame[cell] = color
	}
	return nil
}

func (d *Driver) setIndicator(controller, value uint8) error {
	if err := d.device.SetIndicator(d.send, controller, value); err != nil {
		return err
	}
	if value == 0 {
		delete(d.controllers, controller)
	} else {
		d.controllers[controller] = value
	}
	return nil
}

// ClearAll turns off every grid cell and every indicator controller
func (d *Driver) ClearAll() error {
	if d.out == nil {
		return ErrNotConnected
	}
	for row := 1; row <= 8; row++ {
		for col := 1; col <= 8; col++ {
			if err := d.setCell(midi.CellAt(row, col), midi.ColorOff); err != nil {
				return err
			}
		}
	}
	for _, group := range [][]uint8{midi.TopRow, midi.RightColumn} {
		for _, cc := range group {
			if err := d.setIndicator(cc, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

// Idle shows the idle status
func (d *Driver) Idle() error {
	return d.SetStatus(StatusIdle)
}

// SetStatus lights the status cell for s
func (d *Driver) SetStatus(s Status) error {
	if d.out == nil {
		return ErrNotConnected
	}
	return d.setCell(StatusCell, d.palette.status(s))
}

// SetConnected shows the operational status when the host is connected
// to the printer and the idle status otherwise
func (d *Driver) SetConnected(connected bool) error {
	if connected {
		return d.SetStatus(StatusOperational)
	}
	return d.SetStatus(StatusIdle)
}

// Render flashes a classification result. Recognized lines sweep the
// category row left to right, lighting the columns of the set vector
// slots, then restore them. Unknown lines blink UnknownCell. Ignored
// lines draw nothing.
func (d *Driver) Render(res gcode.Result) error {
	switch res.Kind {
	case gcode.Ignored:
		return nil
	case gcode.Unknown:
		if d.out == nil {
			return ErrNotConnected
		}
		return d.flash([]midi.Cell{UnknownCell}, d.palette.Unknown, d.step)
	}

	if d.out == nil {
		return ErrNotConnected
	}
	row := res.Category.Row()
	if row == 0 {
		return nil
	}
	cells := make([]midi.Cell, 0, gcode.VectorSize)
	for _, col := range res.Vector.Columns() {
		cells = append(cells, midi.CellAt(row, col))
	}
	return d.sweep(cells)
}

// sweep lights cells one column step at a time and then restores them
func (d *Driver) sweep(cells []midi.Cell) error {
	prior := d.snapshot(cells)
	lit := 0
	for col := 1; col <= gcode.VectorSize; col++ {
		if lit < len(cells) && cells[lit].Col() == col {
			if err := d.setCell(cells[lit], d.palette.Flash); err != nil {
				return err
			}
			lit++
		}
		d.pause(d.step)
	}
	return d.restore(cells, prior)
}

func (d *Driver) flash(cells []midi.Cell, color midi.Color, hold time.Duration) error {
	prior := d.snapshot(cells)
	for _, c := range cells {
		if err := d.setCell(c, color); err != nil {
			return err
		}
	}
	d.pause(hold)
	return d.restore(cells, prior)
}

func (d *Driver) pause(dur time.Duration) {
	if dur > 0 {
		d.sleep(dur)
	}
}

func (d *Driver) snapshot(cells []midi.Cell) []midi.Color {
	prior := make([]midi.Color, len(cells))
	for i, c := range cells {
		prior[i] = d.frame[c]
	}
	return prior
}

func (d *Driver) restore(cells []midi.Cell, prior []midi.Color) error {
	for i, c := range cells {
		if err := d.setCell(c, prior[i]); err != nil {
			return err
		}
	}
	return nil
}

// Frame returns a copy of the lit cells as last written by the driver
func (d *Driver) Frame() map[midi.Cell]midi.Color {
	frame := make(map[midi.Cell]midi.Color, len(d.frame))
	for c, color := range d.frame {
		frame[c] = color
	}
	return frame
}
