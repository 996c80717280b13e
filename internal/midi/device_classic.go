package midi

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
)

// ClassicDevice implements Device for Launchpad S
type ClassicDevice struct{}

// PadColor represents an RGB color for a pad
type PadColor struct {
	R, G, B uint8 // 0-127 for each channel
}

// classicPalette approximates the Mini Mk3 palette entries gnova uses
var classicPalette = map[Color]PadColor{
	ColorDim:    {R: 40, G: 40},
	ColorRed:    {R: 127},
	ColorYellow: {R: 127, G: 127},
	ColorGreen:  {G: 127},
	ColorBlue:   {B: 127},
}

func (d *ClassicDevice) SetProgrammerMode(send func(midi.Message) error, enabled bool) error {
	// Launchpad S - reset to default state
	// Send reset: B0 00 00 (CC 0 value 0)
	if err := send(midi.ControlChange(0, 0, 0)); err != nil {
		return fmt.Errorf("failed to reset Launchpad S: %w", err)
	}
	return nil
}

func (d *ClassicDevice) SetCell(send func(midi.Message) error, cell Cell, color Color) error {
	if !cell.InGrid() {
		return nil
	}
	// Launchpad S rows count from the top and are offset by 16:
	// top row = notes 0-7, bottom row = notes 112-119
	noteNum := uint8((8-cell.Row())*16 + cell.Col() - 1)
	return send(midi.NoteOn(0, noteNum, d.velocity(color)))
}

func (d *ClassicDevice) SetIndicator(send func(midi.Message) error, controller uint8, value uint8) error {
	switch {
	case controller >= 91 && controller <= 98:
		// Top row: Control Change 104 + col
		return send(midi.ControlChange(0, 104+controller-91, d.velocity(Color(value))))
	case controller%10 == 9 && controller >= 19 && controller <= 89:
		// Right column: note 8 of each row
		row := int(controller / 10)
		return send(midi.NoteOn(0, uint8((8-row)*16+8), d.velocity(Color(value))))
	}
	// The Launchpad S has no ninth top row button
	return nil
}

// velocity converts a palette color to the Launchpad S velocity format:
// bits 5-4 green, bits 3-2 copy/clear flags, bits 1-0 red
func (d *ClassicDevice) velocity(c Color) uint8 {
	if c == ColorOff {
		return 0x0C // flags only, no color = off
	}
	color, ok := classicPalette[c]
	if !ok {
		color = PadColor{R: 127, G: 127}
	}

	// Blue adds mostly to green, a little to red for brightness
	effectiveR := int(color.R) + int(color.B)/4
	effectiveG := int(color.G) + (int(color.B)*3)/4

	if effectiveR > 127 {
		effectiveR = 127
	}
	if effectiveG > 127 {
		effectiveG = 127
	}

	redLevel := d.colorTo4Level(uint8(effectiveR))
	greenLevel := d.colorTo4Level(uint8(effectiveG))

	return (greenLevel << 4) | 0x0C | redLevel
}

func (d *ClassicDevice) colorTo4Level(value uint8) uint8 {
	if value < 32 {
		return 0
	} else if value < 64 {
		return 1
	} else if value < 96 {
		return 2
	}
	return 3
}
