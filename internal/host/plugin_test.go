package host

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/PixPMusic/gnova/internal/gcode"
	"github.com/PixPMusic/gnova/internal/grid"
	"github.com/PixPMusic/gnova/internal/midi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	connectErr  error
	renderErr   error
	connects    int
	disconnects int
	rendered    []gcode.Result
	statuses    []grid.Status
}

func (r *fakeRenderer) Connect() error {
	r.connects++
	return r.connectErr
}

func (r *fakeRenderer) Disconnect() error {
	r.disconnects++
	return nil
}

func (r *fakeRenderer) Render(res gcode.Result) error {
	r.rendered = append(r.rendered, res)
	return r.renderErr
}

func (r *fakeRenderer) SetStatus(s grid.Status) error {
	r.statuses = append(r.statuses, s)
	return nil
}

type recordingObserver struct {
	lines    []Line
	statuses []grid.Status
}

func (o *recordingObserver) ObserveLine(l Line) { o.lines = append(o.lines, l) }
func (o *recordingObserver) ObserveStatus(s grid.Status) { o.statuses = append(o.statuses, s) }

func TestPlugin_Lifecycle(t *testing.T) {
	r := &fakeRenderer{}
	p := New(r)

	require.NoError(t, p.OnStartup())
	assert.True(t, p.Enabled())

	p.OnGCodeSent("G1 X10 Y10")
	p.OnGCodeSent("; just a comment")
	p.OnGCodeSent("T1")
	p.OnPrinterStateChanged("Printing")
	p.OnPrinterStateChanged("Operational")
	p.OnPrinterStateChanged("Offline")

	require.Len(t, r.rendered, 2)
	assert.Equal(t, gcode.LinearMove, r.rendered[0].Category)
	assert.Equal(t, gcode.Unknown, r.rendered[1].Kind)
	assert.Equal(t, []grid.Status{grid.StatusPrinting, grid.StatusOperational, grid.StatusIdle}, r.statuses)

	p.OnShutdown()
	assert.Equal(t, 1, r.disconnects)
	assert.False(t, p.Enabled())

	p.OnShutdown()
	assert.Equal(t, 1, r.disconnects)
}

func TestPlugin_DisabledWithoutDevice(t *testing.T) {
	r := &fakeRenderer{connectErr: fmt.Errorf("open: %w", midi.ErrDeviceNotFound)}
	p := New(r)

	err := p.OnStartup()
	assert.ErrorIs(t, err, midi.ErrDeviceNotFound)
	assert.False(t, p.Enabled())

	p.OnGCodeSent("G0 X1")
	p.OnPrinterStateChanged("Printing")
	p.OnShutdown()

	assert.Empty(t, r.rendered)
	assert.Empty(t, r.statuses)
	assert.Zero(t, r.disconnects)
}

func TestPlugin_RenderErrorsSwallowed(t *testing.T) {
	r := &fakeRenderer{renderErr: errors.Join(midi.ErrSendFailed, errors.New("unplugged"))}
	p := New(r)
	require.NoError(t, p.OnStartup())

	assert.NotPanics(t, func() { p.OnGCodeSent("G1 X1") })
	assert.Len(t, r.rendered, 1)
}

func TestPlugin_Observers(t *testing.T) {
	r := &fakeRenderer{connectErr: midi.ErrAmbiguousDevice}
	p := New(r)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return at }

	var o recordingObserver
	p.Observe(&o)
	_ = p.OnStartup()

	p.OnGCodeSent("M105")
	p.OnGCodeSent("")
	p.OnPrinterStateChanged("Printing")

	// observers see lines even while the device is missing
	require.Len(t, o.lines, 1)
	assert.Equal(t, Line{Text: "M105", Result: gcode.Classify("M105"), At: at}, o.lines[0])
	assert.Equal(t, []grid.Status{grid.StatusPrinting}, o.statuses)
}

type blockingObserver struct {
	entered chan struct{}
	release chan struct{}
}

func (o *blockingObserver) ObserveLine(Line) {
	o.entered <- struct{}{}
	<-o.release
}

func (o *blockingObserver) ObserveStatus(grid.Status) {}

func TestPlugin_SlowObserverDoesNotHoldHooks(t *testing.T) {
	r := &fakeRenderer{}
	p := New(r)
	require.NoError(t, p.OnStartup())

	o := &blockingObserver{entered: make(chan struct{}), release: make(chan struct{})}
	p.Observe(o)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.OnGCodeSent("G1 X1")
	}()
	<-o.entered

	done := make(chan bool)
	go func() { done <- p.Enabled() }()
	select {
	case enabled := <-done:
		assert.True(t, enabled)
	case <-time.After(2 * time.Second):
		t.Fatal("plugin lock held while notifying observers")
	}

	close(o.release)
	wg.Wait()
	assert.Len(t, r.rendered, 1)
}

func TestPlugin_SendReturnsResult(t *testing.T) {
	r := &fakeRenderer{}
	p := New(r)
	require.NoError(t, p.OnStartup())

	res := p.Send("G92 X0 E0")
	assert.Equal(t, gcode.SetPosition, res.Category)
	assert.Equal(t, gcode.Vector{true, false, false, true}, res.Vector)
	require.Len(t, r.rendered, 1)
	assert.Equal(t, res, r.rendered[0])

	assert.Equal(t, gcode.Ignored, p.Send("; comment").Kind)
	assert.Len(t, r.rendered, 1)
}
