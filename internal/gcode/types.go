package gcode

// Category is the command family a G-code line belongs to
type Category int

const (
	Unrecognized Category = iota
	RapidMove
	LinearMove
	ArcClockwise
	ArcCounterClockwise
	SetPosition
	TemperatureQuery
	SDMount
)

var categoryNames = map[Category]string{
	Unrecognized:        "unrecognized",
	RapidMove:           "rapid_move",
	LinearMove:          "linear_move",
	ArcClockwise:        "arc_cw",
	ArcCounterClockwise: "arc_ccw",
	SetPosition:         "set_position",
	TemperatureQuery:    "temperature_query",
	SDMount:             "sd_mount",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unrecognized"
}

// MarshalText lets categories appear by name in JSON
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Row returns the grid row (1-8) the category is drawn on, or 0 for
// categories without a row.
func (c Category) Row() int {
	switch c {
	case RapidMove:
		return 7
	case LinearMove:
		return 6
	case ArcClockwise:
		return 5
	case ArcCounterClockwise:
		return 4
	case SetPosition:
		return 3
	case TemperatureQuery, SDMount:
		return 1
	}
	return 0
}

// Param is a parameter letter the classifier looks for
type Param byte

const (
	ParamX Param = 'X'
	ParamY Param = 'Y'
	ParamZ Param = 'Z'
	ParamI Param = 'I'
	ParamE Param = 'E'
	ParamF Param = 'F'
	ParamS Param = 'S'
)

// ParseParam reports whether the first character of a token is a known
// parameter letter.
func ParseParam(token string) (Param, bool) {
	if token == "" {
		return 0, false
	}
	switch p := Param(token[0]); p {
	case ParamX, ParamY, ParamZ, ParamI, ParamE, ParamF, ParamS:
		return p, true
	}
	return 0, false
}

func (p Param) String() string { return string(rune(p)) }

// VectorSize is the number of columns in a grid row
const VectorSize = 8

// Vector holds one presence flag per grid column. Slot 7 is never set.
type Vector [VectorSize]bool

// Columns returns the 1-based column numbers of the set slots
func (v Vector) Columns() []int {
	var cols []int
	for i, on := range v {
		if on {
			cols = append(cols, i+1)
		}
	}
	return cols
}

// Kind tells how a line was classified
type Kind int

const (
	Ignored Kind = iota
	Recognized
	Unknown
)

func (k Kind) String() string {
	switch k {
	case Recognized:
		return "recognized"
	case Unknown:
		return "unrecognized"
	}
	return "ignored"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Result is the outcome of classifying one line
type Result struct {
	Kind     Kind     `json:"kind"`
	Category Category `json:"category"`
	Vector   Vector   `json:"vector"`
}
