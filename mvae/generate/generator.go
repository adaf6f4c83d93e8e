package generate

import (
	"sort"

	"github.com/spf13/afero"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/kiteco/musicvae/kite-golib/errors"
	"github.com/kiteco/musicvae/kite-golib/fileutil"
	"github.com/kiteco/musicvae/mvae/noteseq"
)

// Defaults for the fields of Options
const (
	DefaultStepsPerBeat = 4
	DefaultTicksPerBeat = 960
	DefaultVelocity     = 80
	DefaultTempo        = 120
)

// Sampler is the part of model.Model the generator needs
type Sampler interface {
	Sample(genre, n int) ([]noteseq.Segment, error)
}

// Options control how tokens are decoded into MIDI
type Options struct {
	// PitchMin and PitchMax bound the representable pitch range; pitch token i maps to
	// PitchMin+i and tokens past PitchMax are rests
	PitchMin int
	PitchMax int

	StepsPerBeat int
	TicksPerBeat int
	Velocity     int
	Tempo        float64
}

// DefaultOptions returns Options with every timing default filled in for the pitch range
func DefaultOptions(pitchMin, pitchMax int) Options {
	return Options{
		PitchMin:     pitchMin,
		PitchMax:     pitchMax,
		StepsPerBeat: DefaultStepsPerBeat,
		TicksPerBeat: DefaultTicksPerBeat,
		Velocity:     DefaultVelocity,
		Tempo:        DefaultTempo,
	}
}

// Generator turns model samples into MIDI files
type Generator struct {
	sampler Sampler
	opts    Options
}

// New validates opts and returns a Generator drawing from sampler
func New(sampler Sampler, opts Options) (*Generator, error) {
	switch {
	case opts.PitchMin < 0 || opts.PitchMax > 127 || opts.PitchMin > opts.PitchMax:
		return nil, errors.Errorf("invalid pitch range [%d, %d]", opts.PitchMin, opts.PitchMax)
	case opts.StepsPerBeat <= 0 || opts.TicksPerBeat <= 0 || opts.TicksPerBeat%opts.StepsPerBeat != 0:
		return nil, errors.Errorf("%d ticks per beat cannot be split into %d steps", opts.TicksPerBeat, opts.StepsPerBeat)
	case opts.TicksPerBeat > 0x7fff:
		return nil, errors.Errorf("%d ticks per beat does not fit a MIDI header", opts.TicksPerBeat)
	case opts.Velocity <= 0 || opts.Velocity > 127:
		return nil, errors.Errorf("invalid velocity %d", opts.Velocity)
	case opts.Tempo <= 0:
		return nil, errors.Errorf("invalid tempo %v", opts.Tempo)
	}
	return &Generator{sampler: sampler, opts: opts}, nil
}

// Generate draws n samples for genre and decodes each into a MIDI file
func (g *Generator) Generate(genre, n int) ([]*smf.SMF, error) {
	segs, err := g.sampler.Sample(genre, n)
	if err != nil {
		return nil, errors.Wrapf(err, "error sampling genre %d", genre)
	}
	out := make([]*smf.SMF, 0, len(segs))
	for i, seg := range segs {
		s, err := g.Decode(seg)
		if err != nil {
			return nil, errors.Wrapf(err, "error decoding sample %d of genre %d", i, genre)
		}
		out = append(out, s)
	}
	return out, nil
}

type note struct {
	key        uint8
	start, end int
}

type event struct {
	tick int
	on   bool
	key  uint8
}

// Decode converts one segment into a single-track MIDI file. Component 0 is the pitch
// token, component 1 (if any) the duration in steps minus one, and component 2 (if any)
// the number of steps to advance before the next onset; without it the next onset
// follows the end of the current note.
func (g *Generator) Decode(seg noteseq.Segment) (*smf.SMF, error) {
	ticksPerStep := g.opts.TicksPerBeat / g.opts.StepsPerBeat
	rest := g.opts.PitchMax - g.opts.PitchMin

	var notes []note
	last := make(map[uint8]int)
	var t int
	for i, step := range seg {
		if len(step) == 0 {
			return nil, errors.Errorf("step %d has no tokens", i)
		}
		dur := 1
		if len(step) > 1 {
			dur = step[1] + 1
		}
		advance := dur
		if len(step) > 2 {
			advance = step[2]
		}
		if dur <= 0 || advance < 0 {
			return nil, errors.Errorf("step %d: invalid timing tokens %v", i, step)
		}

		if tok := step[0]; tok >= 0 && tok <= rest {
			key := uint8(g.opts.PitchMin + tok)
			// a re-struck pitch cuts the previous note short
			if j, ok := last[key]; ok && notes[j].end > t {
				notes[j].end = t
			}
			last[key] = len(notes)
			notes = append(notes, note{key: key, start: t, end: t + dur})
		} else if tok < 0 {
			return nil, errors.Errorf("step %d: negative pitch token %d", i, tok)
		}
		t += advance
	}

	var events []event
	for _, n := range notes {
		if n.end <= n.start {
			continue
		}
		events = append(events,
			event{tick: n.start * ticksPerStep, on: true, key: n.key},
			event{tick: n.end * ticksPerStep, on: false, key: n.key},
		)
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return !events[i].on && events[j].on
	})

	var tr smf.Track
	tr.Add(0, smf.MetaMeter(4, 4))
	tr.Add(0, smf.MetaTempo(g.opts.Tempo))
	var prev int
	for _, ev := range events {
		delta := uint32(ev.tick - prev)
		prev = ev.tick
		if ev.on {
			tr.Add(delta, midi.NoteOn(0, ev.key, uint8(g.opts.Velocity)))
		} else {
			tr.Add(delta, midi.NoteOff(0, ev.key))
		}
	}
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(g.opts.TicksPerBeat)
	if err := s.Add(tr); err != nil {
		return nil, errors.Wrapf(err, "error adding track")
	}
	return s, nil
}

// WriteFile writes s to path on fs
func WriteFile(fs afero.Fs, path string, s *smf.SMF) (err error) {
	f, err := fileutil.NewBufferedWriter(fs, path)
	if err != nil {
		return err
	}
	defer errors.Defer(&err, f.Close)

	if _, err := s.WriteTo(f); err != nil {
		return errors.Wrapf(err, "error writing %s", path)
	}
	return nil
}
