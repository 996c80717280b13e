package midi

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
)

// ColorfulDevice implements Device for Launchpad Mini Mk3
type ColorfulDevice struct{}

func (d *ColorfulDevice) SetProgrammerMode(send func(midi.Message) error, enabled bool) error {
	// SysEx for programmer/live mode: 00 20 29 02 0D 0E <mode>, 1 = programmer, 0 = live
	mode := byte(0x00)
	if enabled {
		mode = 0x01
	}
	sysexContent := []byte{0x00, 0x20, 0x29, 0x02, 0x0D, 0x0E, mode}
	if err := send(midi.SysEx(sysexContent)); err != nil {
		return fmt.Errorf("failed to send programmer mode message: %w", err)
	}
	return nil
}

func (d *ColorfulDevice) SetCell(send func(midi.Message) error, cell Cell, color Color) error {
	// Programmer mode: channel 1 (0 here) is static color, note = LED index, velocity = palette index
	return send(midi.NoteOn(0, uint8(cell), uint8(color)&0x7F))
}

func (d *ColorfulDevice) SetIndicator(send func(midi.Message) error, controller uint8, value uint8) error {
	// Top row and right column buttons are addressed by CC in programmer mode
	return send(midi.ControlChange(0, controller, value&0x7F))
}
