package midi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
)

func TestSelectPort(t *testing.T) {
	tests := []struct {
		name  string
		ports []string
		sel   Selector
		want  int
		err   error
	}{
		{
			name:  "alsa pair prefers MIDI interface",
			ports: []string{"Midi Through:Midi Through Port-0 14:0", "Launchpad Mini MK3:Launchpad Mini MK3 LPMiniMK3 DA 20:0", "Launchpad Mini MK3:Launchpad Mini MK3 LPMiniMK3 MI 20:1"},
			want:  2,
		},
		{
			name:  "mac pair listed MIDI first",
			ports: []string{"Launchpad Mini MK3 LPMiniMK3 MIDI Out", "Launchpad Mini MK3 LPMiniMK3 DAW Out"},
			want:  0,
		},
		{
			name:  "windows names",
			ports: []string{"Microsoft GS Wavetable Synth", "LPMiniMK3 MIDI", "MIDIOUT2 (LPMiniMK3 DAW)"},
			want:  1,
		},
		{
			name:  "unlabelled pair picks second",
			ports: []string{"Launchpad Mini MK3 1", "Launchpad Mini MK3 2"},
			want:  1,
		},
		{
			name:  "single port",
			ports: []string{"IAC Bus 1", "Launchpad Mini MK3"},
			want:  1,
		},
		{
			name:  "exact name",
			ports: []string{"IAC Bus 1", "IAC Bus 2"},
			sel:   Selector{Name: "IAC Bus 2"},
			want:  1,
		},
		{
			name:  "custom pattern",
			ports: []string{"IAC Bus 1", "loopMIDI Port"},
			sel:   Selector{Patterns: []string{"loopmidi"}},
			want:  1,
		},
		{
			name:  "nothing connected",
			ports: []string{"Midi Through:Midi Through Port-0 14:0"},
			err:   ErrDeviceNotFound,
		},
		{
			name:  "exact name missing",
			ports: []string{"Launchpad Mini MK3 LPMiniMK3 MIDI Out"},
			sel:   Selector{Name: "IAC Bus 1"},
			err:   ErrDeviceNotFound,
		},
		{
			name: "two devices",
			ports: []string{
				"Launchpad Mini MK3 LPMiniMK3 DAW Out", "Launchpad Mini MK3 LPMiniMK3 MIDI Out",
				"Launchpad Mini MK3 #2 LPMiniMK3 DAW Out", "Launchpad Mini MK3 #2 LPMiniMK3 MIDI Out",
			},
			err: ErrAmbiguousDevice,
		},
		{
			name:  "three unlabelled",
			ports: []string{"LPMiniMK3 a", "LPMiniMK3 b", "LPMiniMK3 c"},
			err:   ErrAmbiguousDevice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := SelectPort(tt.ports, tt.sel)
			if tt.err != nil {
				assert.True(t, errors.Is(err, tt.err), "got %v", err)
				assert.Equal(t, -1, idx)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, idx)
		})
	}
}

type recorder struct {
	msgs []midi.Message
}

func (r *recorder) send(msg midi.Message) error {
	r.msgs = append(r.msgs, msg)
	return nil
}

func TestColorfulDevice(t *testing.T) {
	var rec recorder
	d := &ColorfulDevice{}

	require.NoError(t, d.SetProgrammerMode(rec.send, true))
	require.NoError(t, d.SetCell(rec.send, CellAt(7, 2), ColorGreen))
	require.NoError(t, d.SetIndicator(rec.send, 91, 0))
	require.NoError(t, d.SetProgrammerMode(rec.send, false))

	assert.Equal(t, []midi.Message{
		midi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0D, 0x0E, 0x01}),
		midi.NoteOn(0, 72, 21),
		midi.ControlChange(0, 91, 0),
		midi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0D, 0x0E, 0x00}),
	}, rec.msgs)
}

func TestColorfulDevice_SendError(t *testing.T) {
	boom := errors.New("boom")
	err := (&ColorfulDevice{}).SetProgrammerMode(func(midi.Message) error { return boom }, true)
	assert.ErrorIs(t, err, boom)
}

func TestClassicDevice(t *testing.T) {
	var rec recorder
	d := &ClassicDevice{}

	require.NoError(t, d.SetCell(rec.send, CellAt(8, 1), ColorRed))
	require.NoError(t, d.SetCell(rec.send, CellAt(1, 8), ColorOff))
	require.NoError(t, d.SetIndicator(rec.send, 92, uint8(ColorGreen)))
	require.NoError(t, d.SetIndicator(rec.send, 19, uint8(ColorYellow)))
	require.NoError(t, d.SetIndicator(rec.send, 99, uint8(ColorGreen)))

	assert.Equal(t, []midi.Message{
		midi.NoteOn(0, 0, 0x0F),
		midi.NoteOn(0, 119, 0x0C),
		midi.ControlChange(0, 105, 0x3C),
		midi.NoteOn(0, 120, 0x3F),
	}, rec.msgs)
}

func TestGenericDevice(t *testing.T) {
	var rec recorder
	d := &GenericDevice{}

	require.NoError(t, d.SetProgrammerMode(rec.send, true))
	require.NoError(t, d.SetCell(rec.send, 11, ColorBlue))
	require.NoError(t, d.SetIndicator(rec.send, 19, 0))

	assert.Equal(t, []midi.Message{
		midi.NoteOn(0, 11, 41),
		midi.ControlChange(0, 19, 0),
	}, rec.msgs)
}

func TestGetDevice(t *testing.T) {
	assert.IsType(t, &ClassicDevice{}, GetDevice(DeviceTypeClassic))
	assert.IsType(t, &ColorfulDevice{}, GetDevice(DeviceTypeColorful))
	assert.IsType(t, &GenericDevice{}, GetDevice(DeviceTypeGeneric))
	assert.IsType(t, &ColorfulDevice{}, GetDevice(""))
}

func TestCell(t *testing.T) {
	c := CellAt(3, 5)
	assert.Equal(t, Cell(35), c)
	assert.Equal(t, 3, c.Row())
	assert.Equal(t, 5, c.Col())
	assert.True(t, c.InGrid())
	assert.False(t, Cell(19).InGrid())
	assert.False(t, Cell(91).InGrid())
}

func TestIndicatorRanges(t *testing.T) {
	assert.Equal(t, []uint8{91, 92, 93, 94, 95, 96, 97, 98, 99}, TopRow)
	assert.Equal(t, []uint8{19, 29, 39, 49, 59, 69, 79, 89}, RightColumn)
}
