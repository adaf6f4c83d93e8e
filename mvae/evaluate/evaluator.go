package evaluate

import (
	"fmt"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/sbwhitecap/tqdm"
	"github.com/sbwhitecap/tqdm/iterators"
	"github.com/spf13/afero"
	"gitlab.com/gomidi/midi/v2/smf"
	"go.uber.org/zap"

	"github.com/kiteco/musicvae/kite-golib/errors"
	"github.com/kiteco/musicvae/kite-golib/fileutil"
	"github.com/kiteco/musicvae/kite-golib/kitelog"
	"github.com/kiteco/musicvae/mvae/generate"
	"github.com/kiteco/musicvae/mvae/model"
)

// StatsFile is the name of the per-epoch stats table
const StatsFile = "stats.csv"

// Generator produces MIDI samples for a genre
type Generator interface {
	Generate(genre, n int) ([]*smf.SMF, error)
}

// Options configure an Evaluator
type Options struct {
	// Root is the run directory; samples go to Root/samples/epoch-N
	Root string
	// Every is the epoch cadence; other epochs are skipped
	Every int
	// Samples is the number of samples generated per genre
	Samples int
	// Genres is the number of genre labels
	Genres int
	// BeatResolution is the pianoroll time steps per beat used for metrics
	BeatResolution int
	// Progress shows a progress bar over genres
	Progress bool
}

// Evaluator generates samples at the end of selected epochs and writes per-genre
// musicological statistics next to them
type Evaluator struct {
	fs   afero.Fs
	gen  Generator
	opts Options
	log  *zap.SugaredLogger
}

// New validates opts; a nil log uses kitelog.Basic
func New(fs afero.Fs, gen Generator, opts Options, log *zap.SugaredLogger) (*Evaluator, error) {
	switch {
	case opts.Every <= 0:
		return nil, errors.Errorf("evaluation cadence must be positive, got %d", opts.Every)
	case opts.Samples <= 0:
		return nil, errors.Errorf("samples per genre must be positive, got %d", opts.Samples)
	case opts.Genres <= 0:
		return nil, errors.Errorf("number of genres must be positive, got %d", opts.Genres)
	case opts.BeatResolution <= 0:
		return nil, errors.Errorf("beat resolution must be positive, got %d", opts.BeatResolution)
	}
	return &Evaluator{fs: fs, gen: gen, opts: opts, log: kitelog.OrBasic(log)}, nil
}

// Dir is the output directory for epoch
func (e *Evaluator) Dir(epoch int) string {
	return filepath.Join(e.opts.Root, "samples", fmt.Sprintf("epoch-%d", epoch))
}

// SamplePath is the MIDI file of sample i of genre in epoch
func (e *Evaluator) SamplePath(epoch, genre, i int) string {
	return filepath.Join(e.Dir(epoch), fmt.Sprintf("genre-%d-%d.mid", genre, i))
}

// Due reports whether epoch is evaluated
func (e *Evaluator) Due(epoch int) bool {
	return epoch%e.opts.Every == 0
}

// OnEpochBegin does nothing
func (e *Evaluator) OnEpochBegin(epoch int) error {
	return nil
}

// OnEpochEnd runs Evaluate when the epoch is due
func (e *Evaluator) OnEpochEnd(epoch int, logs model.Logs) error {
	_, err := e.Evaluate(epoch)
	return err
}

// Evaluate writes samples and stats.csv for epoch, returning the table rows. It does
// nothing and returns nil rows when the epoch is not due. Samples that cannot be
// measured are skipped; generation, directory and write failures are returned.
func (e *Evaluator) Evaluate(epoch int) ([]Row, error) {
	if !e.Due(epoch) {
		return nil, nil
	}

	dir := e.Dir(epoch)
	if err := e.fs.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "error creating %s", dir)
	}

	rows := make([]Row, e.opts.Genres)
	var runErr error
	evalGenre := func(genre int) bool {
		row, err := e.evaluateGenre(epoch, genre)
		if err != nil {
			runErr = err
			return true
		}
		rows[genre] = row
		return false
	}

	if e.opts.Progress {
		err := tqdm.With(iterators.Interval(0, e.opts.Genres), fmt.Sprintf("epoch %d samples", epoch), func(v interface{}) (brk bool) {
			return evalGenre(v.(int))
		})
		if err != nil && runErr == nil {
			runErr = err
		}
	} else {
		for genre := 0; genre < e.opts.Genres; genre++ {
			if evalGenre(genre) {
				break
			}
		}
	}
	if runErr != nil {
		return nil, runErr
	}

	if err := e.writeStats(filepath.Join(dir, StatsFile), rows); err != nil {
		return nil, err
	}
	e.log.Infow("wrote sample statistics", "epoch", epoch, "dir", dir, "genres", len(rows))
	return rows, nil
}

func (e *Evaluator) evaluateGenre(epoch, genre int) (Row, error) {
	midis, err := e.gen.Generate(genre, e.opts.Samples)
	if err != nil {
		return Row{}, errors.Wrapf(err, "error generating samples for genre %d", genre)
	}

	var merged Metrics
	var measured int
	for i, s := range midis {
		path := e.SamplePath(epoch, genre, i)
		if err := generate.WriteFile(e.fs, path, s); err != nil {
			return Row{}, err
		}

		m, err := MeasureFile(e.fs, path, e.opts.BeatResolution)
		if err != nil {
			e.log.Debugw("skipping unmeasurable sample", "path", path, "error", err)
			continue
		}
		merged = Merge(merged, m)
		measured++
	}

	if measured == 0 {
		e.log.Warnw("no sample could be measured", "epoch", epoch, "genre", genre, "samples", len(midis))
	}
	return NewRow(genre, measured, merged), nil
}

func (e *Evaluator) writeStats(path string, rows []Row) (err error) {
	f, err := fileutil.NewBufferedWriter(e.fs, path)
	if err != nil {
		return err
	}
	defer errors.Defer(&err, f.Close)

	if err := gocsv.Marshal(&rows, f); err != nil {
		return errors.Wrapf(err, "error writing %s", path)
	}
	return nil
}
