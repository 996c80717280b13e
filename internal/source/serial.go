package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/tarm/serial"
)

// Serial taps a serial port carrying newline terminated G-code, such as
// one side of a tee on the printer link
type Serial struct {
	Name string
	Baud int

	// open is serial.OpenPort unless replaced in tests
	open func(*serial.Config) (io.ReadWriteCloser, error)
}

func (s *Serial) openPort() (io.ReadWriteCloser, error) {
	open := s.open
	if open == nil {
		open = func(c *serial.Config) (io.ReadWriteCloser, error) {
			return serial.OpenPort(c)
		}
	}
	return open(&serial.Config{Name: s.Name, Baud: s.Baud})
}

// Run reads lines from the port into h until ctx is done or the port fails
func (s *Serial) Run(ctx context.Context, h LineHandler) error {
	port, err := s.openPort()
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", s.Name, err)
	}
	slog.Info("reading gcode from serial port", "port", s.Name, "baud", s.Baud)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		port.Close()
	}()

	n, err := Replay(ctx, port, h, 0)
	slog.Info("serial port closed", "port", s.Name, "lines", n)
	return err
}
