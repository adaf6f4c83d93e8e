package pianoroll

import (
	"io"
	"math"

	"github.com/spf13/afero"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/kiteco/musicvae/kite-golib/errors"
	"github.com/kiteco/musicvae/kite-golib/fileutil"
)

// NumPitches is the size of the MIDI pitch range
const NumPitches = 128

// ErrEmpty is returned for files without any sounding note
var ErrEmpty = errors.New("pianoroll is empty")

// Pianoroll is a binary time-by-pitch activation matrix, merged over all tracks and
// channels, at BeatResolution time steps per quarter-note beat
type Pianoroll struct {
	Active         [][NumPitches]bool
	BeatResolution int
}

// Len is the number of time steps
func (p *Pianoroll) Len() int {
	return len(p.Active)
}

// ReadFile parses the MIDI file at path on fs; see FromSMF
func ReadFile(fs afero.Fs, path string, beatResolution int) (*Pianoroll, error) {
	f, err := fileutil.NewReader(fs, path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := Read(f, beatResolution)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading pianoroll from %s", path)
	}
	return p, nil
}

// Read parses a standard MIDI file from r; see FromSMF
func Read(r io.Reader, beatResolution int) (*Pianoroll, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid MIDI data")
	}
	return FromSMF(s, beatResolution)
}

type noteKey struct {
	channel uint8
	key     uint8
}

type span struct {
	key        uint8
	start, end int
}

// FromSMF quantizes every note of s onto the time grid. A note shorter than one time
// step still occupies one step; a note left sounding at the end of its track ends there.
func FromSMF(s *smf.SMF, beatResolution int) (*Pianoroll, error) {
	if beatResolution <= 0 {
		return nil, errors.Errorf("beat resolution must be positive, got %d", beatResolution)
	}
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok || uint16(mt) == 0 {
		return nil, errors.Errorf("unsupported time format %v", s.TimeFormat)
	}
	ticksPerBeat := float64(uint16(mt))
	quantize := func(tick int64) int {
		return int(math.Round(float64(tick) * float64(beatResolution) / ticksPerBeat))
	}

	var spans []span
	var length int
	add := func(key uint8, startTick, endTick int64) {
		start, end := quantize(startTick), quantize(endTick)
		if end <= start {
			end = start + 1
		}
		spans = append(spans, span{key: key, start: start, end: end})
		if end > length {
			length = end
		}
	}

	for _, track := range s.Tracks {
		var tick int64
		open := make(map[noteKey]int64)
		for _, ev := range track {
			tick += int64(ev.Delta)
			msg := midi.Message(ev.Message)

			var ch, key, vel uint8
			switch {
			case msg.GetNoteStart(&ch, &key, &vel):
				k := noteKey{channel: ch, key: key}
				if start, sounding := open[k]; sounding {
					add(key, start, tick)
				}
				open[k] = tick
			case msg.GetNoteEnd(&ch, &key):
				k := noteKey{channel: ch, key: key}
				if start, sounding := open[k]; sounding {
					add(key, start, tick)
					delete(open, k)
				}
			}
		}
		for k, start := range open {
			add(k.key, start, tick)
		}
	}

	if len(spans) == 0 {
		return nil, ErrEmpty
	}

	p := &Pianoroll{
		Active:         make([][NumPitches]bool, length),
		BeatResolution: beatResolution,
	}
	for _, sp := range spans {
		for t := sp.start; t < sp.end; t++ {
			p.Active[t][sp.key] = true
		}
	}
	return p, nil
}
