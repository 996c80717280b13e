package midi

import "gitlab.com/gomidi/midi/v2"

// Device translates grid operations into the messages a specific controller understands
type Device interface {
	// SetProgrammerMode switches the device in or out of the mode where
	// the host owns every LED
	SetProgrammerMode(send func(midi.Message) error, enabled bool) error

	// SetCell lights a grid pad with a palette color, ColorOff turns it off
	SetCell(send func(midi.Message) error, cell Cell, color Color) error

	// SetIndicator drives one of the controller-addressed buttons around the grid
	SetIndicator(send func(midi.Message) error, controller uint8, value uint8) error
}
