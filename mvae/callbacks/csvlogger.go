package callbacks

import (
	"encoding/csv"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/spf13/afero"

	"github.com/kiteco/musicvae/kite-golib/errors"
	"github.com/kiteco/musicvae/kite-golib/fileutil"
	"github.com/kiteco/musicvae/mvae/model"
)

// Missing is written for a column with no value in an epoch's logs
const Missing = "NA"

// CSVLogger appends one row per epoch to a CSV file. The columns are "epoch" followed
// by the sorted log keys of the first epoch it sees; the header is only written when
// the file is empty, so reruns append under the existing header.
type CSVLogger struct {
	fs   afero.Fs
	path string
	keys []string
}

// NewCSVLogger returns a logger appending to path on fs
func NewCSVLogger(fs afero.Fs, path string) *CSVLogger {
	return &CSVLogger{fs: fs, path: path}
}

// OnEpochBegin does nothing
func (c *CSVLogger) OnEpochBegin(epoch int) error {
	return nil
}

// OnEpochEnd appends the row for epoch
func (c *CSVLogger) OnEpochEnd(epoch int, logs model.Logs) (err error) {
	if c.keys == nil {
		c.keys = logs.Keys()
	}

	f, nonEmpty, err := fileutil.NewAppendWriter(c.fs, c.path)
	if err != nil {
		return err
	}
	defer errors.Defer(&err, f.Close)

	w := gocsv.NewSafeCSVWriter(csv.NewWriter(f))
	if !nonEmpty {
		if err := w.Write(append([]string{"epoch"}, c.keys...)); err != nil {
			return errors.Wrapf(err, "error writing header to %s", c.path)
		}
	}

	row := []string{strconv.Itoa(epoch)}
	for _, k := range c.keys {
		v, ok := logs[k]
		if !ok {
			row = append(row, Missing)
			continue
		}
		row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
	}
	if err := w.Write(row); err != nil {
		return errors.Wrapf(err, "error writing epoch %d to %s", epoch, c.path)
	}

	w.Flush()
	return errors.WrapfOrNil(w.Error(), "error flushing %s", c.path)
}
