package source

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarm/serial"
)

const sample = `; generated by a slicer
G92 E0
G1 Z0.2 F3000
G1 X10 Y10 E1.5

M105
`

type collector struct {
	lines  []string
	cancel context.CancelFunc
	stopAt int
}

func (c *collector) OnGCodeSent(line string) {
	c.lines = append(c.lines, line)
	if c.cancel != nil && len(c.lines) == c.stopAt {
		c.cancel()
	}
}

func TestReplay(t *testing.T) {
	var c collector
	n, err := Replay(context.Background(), strings.NewReader(sample), &c, 0)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, []string{
		"; generated by a slicer",
		"G92 E0",
		"G1 Z0.2 F3000",
		"G1 X10 Y10 E1.5",
		"",
		"M105",
	}, c.lines)
}

func TestReplay_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := collector{cancel: cancel, stopAt: 2}

	n, err := Replay(ctx, strings.NewReader(sample), &c, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, n)
}

func TestReplay_CancelDuringPace(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := collector{cancel: cancel, stopAt: 1}

	start := time.Now()
	n, err := Replay(ctx, strings.NewReader(sample), &c, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, n)
	assert.Less(t, time.Since(start), time.Minute)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("cable pulled") }

func TestReplay_ReadError(t *testing.T) {
	var c collector
	_, err := Replay(context.Background(), failingReader{}, &c, 0)
	assert.ErrorContains(t, err, "cable pulled")
}

type fakeSerialPort struct {
	io.Reader
	closed atomic.Bool
}

func (p *fakeSerialPort) Write(b []byte) (int, error) { return len(b), nil }
func (p *fakeSerialPort) Close() error {
	p.closed.Store(true)
	return nil
}

func TestSerial_Run(t *testing.T) {
	port := &fakeSerialPort{Reader: strings.NewReader("G28\r\nG1 X1\r\n")}
	var got *serial.Config
	s := &Serial{
		Name: "/dev/ttyUSB0",
		Baud: 250000,
		open: func(c *serial.Config) (io.ReadWriteCloser, error) {
			got = c
			return port, nil
		},
	}

	var c collector
	require.NoError(t, s.Run(context.Background(), &c))

	assert.Equal(t, &serial.Config{Name: "/dev/ttyUSB0", Baud: 250000}, got)
	assert.Equal(t, []string{"G28", "G1 X1"}, c.lines)
	assert.Eventually(t, func() bool { return port.closed.Load() }, time.Second, 10*time.Millisecond)
}

func TestSerial_OpenError(t *testing.T) {
	s := &Serial{
		Name: "/dev/ttyACM9",
		open: func(*serial.Config) (io.ReadWriteCloser, error) {
			return nil, errors.New("no such file or directory")
		},
	}
	err := s.Run(context.Background(), &collector{})
	assert.ErrorContains(t, err, "/dev/ttyACM9")
}
