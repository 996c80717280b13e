package gcode

import "strings"

// commandTokens maps the exact command words to their category
var commandTokens = map[string]Category{
	"G0":   RapidMove,
	"G1":   LinearMove,
	"G2":   ArcClockwise,
	"G3":   ArcCounterClockwise,
	"G92":  SetPosition,
	"M105": TemperatureQuery,
	"M21":  SDMount,
}

// priority is the order in which commands win when a line names several
var priority = []Category{
	RapidMove,
	LinearMove,
	ArcClockwise,
	ArcCounterClockwise,
	SetPosition,
	TemperatureQuery,
	SDMount,
}

// categoryParams lists the letters drawn for each category, by column
var categoryParams = map[Category][]Param{
	RapidMove:           {ParamX, ParamY, ParamZ, ParamE, ParamF, ParamS},
	LinearMove:          {ParamX, ParamY, ParamZ, ParamE, ParamF, ParamS},
	ArcClockwise:        {ParamX, ParamY, ParamI, ParamE, ParamF},
	ArcCounterClockwise: {ParamX, ParamY, ParamI, ParamE, ParamF},
	SetPosition:         {ParamX, ParamY, ParamZ, ParamE},
}

// Scan accumulates what a single pass over a line has seen
type Scan struct {
	Commands map[Category]bool
	Params   map[Param]bool

	// scanning is set once a command taking parameters has been seen;
	// later words are only checked for parameter letters.
	scanning bool
}

func takesParams(c Category) bool {
	_, ok := categoryParams[c]
	return ok
}

// Word feeds one whitespace-separated word into the scan. It returns
// false when the rest of the line must be skipped.
func (s *Scan) Word(word string) bool {
	switch {
	case strings.HasPrefix(word, ";"):
		return false
	case strings.HasPrefix(word, "N"):
		return true
	}

	if s.scanning {
		if p, ok := ParseParam(word); ok {
			if s.Params == nil {
				s.Params = make(map[Param]bool)
			}
			s.Params[p] = true
		}
		return true
	}

	if c, ok := commandTokens[word]; ok {
		if s.Commands == nil {
			s.Commands = make(map[Category]bool)
		}
		s.Commands[c] = true
		s.scanning = takesParams(c)
	}
	return true
}

// Resolve picks the winning category and builds its column vector
func (s Scan) Resolve() Result {
	for _, c := range priority {
		if !s.Commands[c] {
			continue
		}
		res := Result{Kind: Recognized, Category: c}
		switch c {
		case TemperatureQuery:
			res.Vector[0] = true
		case SDMount:
			res.Vector[1] = true
		default:
			for i, p := range categoryParams[c] {
				res.Vector[i] = s.Params[p]
			}
		}
		return res
	}
	return Result{Kind: Unknown, Category: Unrecognized}
}

// IsIgnored reports whether a trimmed line carries no command at all:
// blank lines, block deletes, program markers and comment lines.
func IsIgnored(line string) bool {
	if line == "" {
		return true
	}
	switch line[0] {
	case '/', '%', ';':
		return true
	}
	return false
}

// Classify parses one line of G-code. Values are never parsed or
// validated; malformed input comes back as Ignored or Unknown.
func Classify(line string) Result {
	line = strings.TrimSpace(line)
	if IsIgnored(line) {
		return Result{Kind: Ignored}
	}

	var s Scan
	for _, word := range strings.Fields(line) {
		if !s.Word(word) {
			break
		}
	}
	return s.Resolve()
}
