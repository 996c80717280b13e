package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"
)

// LineHandler receives G-code lines as they would be sent to a printer
type LineHandler interface {
	OnGCodeSent(line string)
}

// Replay feeds every line of r to h until r is exhausted or ctx is done.
// Pace, when non-zero, is waited between lines on top of whatever time
// h spends drawing. It returns the number of lines delivered.
func Replay(ctx context.Context, r io.Reader, h LineHandler, pace time.Duration) (int, error) {
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		h.OnGCodeSent(scanner.Text())
		n++

		if pace > 0 {
			select {
			case <-ctx.Done():
				return n, ctx.Err()
			case <-time.After(pace):
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return n, err
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("read gcode: %w", err)
	}
	return n, nil
}
