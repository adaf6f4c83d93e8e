package dataset

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/kiteco/musicvae/kite-golib/errors"
	"github.com/kiteco/musicvae/kite-golib/serialization"
	"github.com/kiteco/musicvae/mvae/noteseq"
)

// Load reads one persisted segment collection; the format follows the file extension,
// e.g. jazz-raw.gob.gz
func Load(fs afero.Fs, path string) ([]noteseq.Segment, error) {
	var segments []noteseq.Segment
	if err := serialization.Decode(fs, path, &segments); err != nil {
		return nil, errors.Wrapf(err, "error loading dataset")
	}
	return segments, nil
}

// LoadAll loads every path in order
func LoadAll(fs afero.Fs, paths []string) ([][]noteseq.Segment, error) {
	var all [][]noteseq.Segment
	for _, p := range paths {
		segs, err := Load(fs, p)
		if err != nil {
			return nil, err
		}
		all = append(all, segs)
	}
	return all, nil
}

// Name derives a display name from a dataset path: data/jazz-raw.gob.gz -> jazz
func Name(path string) string {
	name := filepath.Base(path)
	if i := strings.Index(name, "."); i > 0 {
		name = name[:i]
	}
	return strings.TrimSuffix(name, "-raw")
}

// Report writes one `name train test` line per dataset
func Report(w io.Writer, paths []string, train, test [][]noteseq.Segment) {
	fmt.Fprintln(w, "train length - test length")
	for i, p := range paths {
		if i >= len(train) || i >= len(test) {
			break
		}
		fmt.Fprintf(w, "%s %s %s\n", Name(p), humanize.Comma(int64(len(train[i]))), humanize.Comma(int64(len(test[i]))))
	}
}
