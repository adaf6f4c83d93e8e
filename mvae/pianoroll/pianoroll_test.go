package pianoroll

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// roll builds a pianoroll from per-step active pitch lists
func roll(beatRes int, steps ...[]int) *Pianoroll {
	p := &Pianoroll{Active: make([][NumPitches]bool, len(steps)), BeatResolution: beatRes}
	for t, keys := range steps {
		for _, k := range keys {
			p.Active[t][k] = true
		}
	}
	return p
}

func TestMetrics(t *testing.T) {
	p := roll(2,
		[]int{60, 64, 67}, []int{60},
		nil, nil,
		[]int{72}, []int{72, 48},
	)

	assert.Equal(t, 5, p.NPitchesUsed())
	assert.Equal(t, 3, p.NPitchClassesUsed()) // C, E, G
	assert.InDelta(t, 1.0/3, p.EmptyBeatRate(), 1e-9)
	assert.InDelta(t, 4.0/6, p.PolyphonicRate(0), 1e-9)
	assert.InDelta(t, 2.0/6, p.PolyphonicRate(1), 1e-9)
	assert.InDelta(t, 1.0/6, p.PolyphonicRate(2), 1e-9)
	assert.Equal(t, 0.0, p.PolyphonicRate(3))
}

func TestEmptyBeatRatePadsPartialBeat(t *testing.T) {
	p := roll(4, []int{60}, nil, nil, nil, nil)
	assert.InDelta(t, 0.5, p.EmptyBeatRate(), 1e-9)
}

func writeSMF(t *testing.T, build func(tr *smf.Track)) []byte {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(96)
	var tr smf.Track
	build(&tr)
	tr.Close(0)
	require.NoError(t, s.Add(tr))

	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadQuantizesNotes(t *testing.T) {
	data := writeSMF(t, func(tr *smf.Track) {
		// C-major triad for one beat, then a rest beat, then a half-beat E
		tr.Add(0, midi.NoteOn(0, 60, 100))
		tr.Add(0, midi.NoteOn(0, 64, 100))
		tr.Add(0, midi.NoteOn(0, 67, 100))
		tr.Add(96, midi.NoteOff(0, 60))
		tr.Add(0, midi.NoteOff(0, 64))
		tr.Add(0, midi.NoteOff(0, 67))
		tr.Add(96, midi.NoteOn(0, 76, 90))
		tr.Add(48, midi.NoteOff(0, 76))
	})

	p, err := Read(bytes.NewReader(data), 4)
	require.NoError(t, err)
	assert.Equal(t, 10, p.Len())
	assert.True(t, p.Active[0][60])
	assert.True(t, p.Active[3][67])
	assert.False(t, p.Active[4][60])
	assert.True(t, p.Active[8][76])
	assert.True(t, p.Active[9][76])

	assert.Equal(t, 4, p.NPitchesUsed())
	assert.InDelta(t, 1.0/3, p.EmptyBeatRate(), 1e-9)
	assert.InDelta(t, 4.0/10, p.PolyphonicRate(2), 1e-9)
}

func TestReadClosesDanglingNotes(t *testing.T) {
	data := writeSMF(t, func(tr *smf.Track) {
		tr.Add(0, midi.NoteOn(1, 50, 100))
		tr.Add(192, midi.NoteOn(1, 52, 0)) // velocity 0 is a note off for 52, which never started
	})

	p, err := Read(bytes.NewReader(data), 4)
	require.NoError(t, err)
	assert.Equal(t, 8, p.Len())
	assert.True(t, p.Active[7][50])
	assert.False(t, p.Active[0][52])
}

func TestReadErrors(t *testing.T) {
	empty := writeSMF(t, func(tr *smf.Track) {})
	_, err := Read(bytes.NewReader(empty), 24)
	assert.Equal(t, ErrEmpty, err)

	_, err = Read(bytes.NewReader([]byte("not a midi file")), 24)
	assert.Error(t, err)

	fs := afero.NewMemMapFs()
	_, err = ReadFile(fs, "/missing.mid", 24)
	assert.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "/bad.mid", []byte{0x4d, 0x54}, 0644))
	_, err = ReadFile(fs, "/bad.mid", 24)
	assert.Error(t, err)
}
