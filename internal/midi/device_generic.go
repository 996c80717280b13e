package midi

import "gitlab.com/gomidi/midi/v2"

// GenericDevice implements Device for plain MIDI receivers.
// Cells are sent as notes and indicators as CCs on channel 0, without any
// mode switching, which is enough to watch the stream in a MIDI monitor.
type GenericDevice struct{}

func (d *GenericDevice) SetProgrammerMode(send func(midi.Message) error, enabled bool) error {
	return nil
}

func (d *GenericDevice) SetCell(send func(midi.Message) error, cell Cell, color Color) error {
	return send(midi.NoteOn(0, uint8(cell), uint8(color)&0x7F))
}

func (d *GenericDevice) SetIndicator(send func(midi.Message) error, controller uint8, value uint8) error {
	return send(midi.ControlChange(0, controller, value&0x7F))
}
