package midi

// DeviceType represents the type of device
type DeviceType string

const (
	DeviceTypeClassic  DeviceType = "classic"  // Launchpad S - note layout offset by 16 per row
	DeviceTypeColorful DeviceType = "colorful" // Launchpad Mini Mk3 - requires SysEx
	DeviceTypeGeneric  DeviceType = "generic"  // Plain notes and CCs, e.g. a software monitor
)

// Known reports whether t names one of the device implementations
func (t DeviceType) Known() bool {
	switch t {
	case DeviceTypeClassic, DeviceTypeColorful, DeviceTypeGeneric:
		return true
	}
	return false
}

// Cell is a pad address in Launchpad programmer-mode numbering:
// row*10 + col, bottom-left is 11, top-right of the 8x8 grid is 88.
type Cell uint8

// CellAt returns the cell for a 1-based row (bottom = 1) and column (left = 1)
func CellAt(row, col int) Cell {
	return Cell(row*10 + col)
}

func (c Cell) Row() int { return int(c) / 10 }
func (c Cell) Col() int { return int(c) % 10 }

// InGrid reports whether the cell is one of the 64 main pads
func (c Cell) InGrid() bool {
	return c.Row() >= 1 && c.Row() <= 8 && c.Col() >= 1 && c.Col() <= 8
}

// Color is a Launchpad palette index (0-127), 0 is off
type Color uint8

const (
	ColorOff    Color = 0
	ColorDim    Color = 1
	ColorRed    Color = 5
	ColorYellow Color = 13
	ColorGreen  Color = 21
	ColorBlue   Color = 41
)

// Indicator controllers around the grid
var (
	// TopRow holds the CC numbers of the top row buttons (91-99)
	TopRow = controllerRange(91, 99, 1)
	// RightColumn holds the CC numbers of the right column buttons (19, 29 ... 89)
	RightColumn = controllerRange(19, 89, 10)
)

func controllerRange(from, to, step int) []uint8 {
	var ccs []uint8
	for cc := from; cc <= to; cc += step {
		ccs = append(ccs, uint8(cc))
	}
	return ccs
}
