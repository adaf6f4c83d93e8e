package fileutil

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/kiteco/musicvae/kite-golib/errors"
)

// NewReader opens path on fs for reading
func NewReader(fs afero.Fs, path string) (afero.File, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening %s", path)
	}
	return f, nil
}

// NewBufferedWriter creates (or truncates) path on fs for writing, creating parent
// directories as needed.
func NewBufferedWriter(fs afero.Fs, path string) (afero.File, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, "error creating directory for %s", path)
	}
	f, err := fs.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error creating %s", path)
	}
	return f, nil
}

// NewAppendWriter opens path on fs for appending, creating it and its parent directories
// as needed. The returned bool reports whether the file already had content.
func NewAppendWriter(fs afero.Fs, path string) (afero.File, bool, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, false, errors.Wrapf(err, "error creating directory for %s", path)
	}
	var nonEmpty bool
	if fi, err := fs.Stat(path); err == nil {
		nonEmpty = fi.Size() > 0
	}
	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, false, errors.Wrapf(err, "error opening %s for append", path)
	}
	return f, nonEmpty, nil
}

// Exists reports whether path exists on fs
func Exists(fs afero.Fs, path string) (bool, error) {
	return afero.Exists(fs, path)
}

// CopyFile copies src to dst on fs, truncating dst
func CopyFile(fs afero.Fs, src, dst string) (err error) {
	r, err := NewReader(fs, src)
	if err != nil {
		return err
	}
	defer r.Close()

	w, err := NewBufferedWriter(fs, dst)
	if err != nil {
		return err
	}
	defer errors.Defer(&err, w.Close)

	if _, err := io.Copy(w, r); err != nil {
		return errors.Wrapf(err, "error copying %s to %s", src, dst)
	}
	return nil
}
