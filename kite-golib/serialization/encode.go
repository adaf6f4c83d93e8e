package serialization

import (
	"compress/gzip"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/spf13/afero"
	yaml "gopkg.in/yaml.v2"

	"github.com/kiteco/musicvae/kite-golib/errors"
	"github.com/kiteco/musicvae/kite-golib/fileutil"
)

// Encode writes the object to the path on fs, using the format specified by the file
// extension, which can be .json (or .jsonl), .gob, .yml, or .yaml. The path may additionally have
// a .gz or .sz suffix, in which case the stream will be gzip or snappy compressed.
func Encode(fs afero.Fs, path string, obj interface{}) (err error) {
	enc, err := NewEncoder(fs, path)
	if err != nil {
		return err
	}
	defer errors.Defer(&err, enc.Close)
	return enc.Encode(obj)
}

// Encoder is an interface that matches gob.Encoder, json.Encoder, and yaml.Encoder
type Encoder interface {
	// Encode adds an item to the stream
	Encode(interface{}) error
}

// EncodeCloser is an encoder that can also close its underlying stream
type EncodeCloser struct {
	encoder Encoder
	closers []io.Closer
}

// Encode writes an object to the underlying stream
func (e *EncodeCloser) Encode(x interface{}) error {
	return e.encoder.Encode(x)
}

// Close flushes and closes the underlying streams, innermost first
func (e *EncodeCloser) Close() error {
	var closeErr error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil && closeErr == nil {
			closeErr = err
		}
	}
	return closeErr
}

// NewEncoder creates the specified path on fs and returns an encoder that writes in the
// format specified by the file extension; see Encode.
func NewEncoder(fs afero.Fs, path string) (*EncodeCloser, error) {
	f, err := fileutil.NewBufferedWriter(fs, path)
	if err != nil {
		return nil, err
	}
	enc, err := newEncoderFor(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return enc, nil
}

// NewStreamEncoder wraps w in an encoder chosen by the extension of path. Closing the
// encoder does not close w.
func NewStreamEncoder(w io.Writer, path string) (*EncodeCloser, error) {
	enc, err := newEncoderFor(nopWriteCloser{w}, path)
	if err != nil {
		return nil, err
	}
	return enc, nil
}

func newEncoderFor(w io.WriteCloser, path string) (*EncodeCloser, error) {
	inpath := path
	closers := []io.Closer{w}

	var out io.Writer = w
	switch {
	case strings.HasSuffix(path, ".gz"):
		path = strings.TrimSuffix(path, ".gz")
		gz := gzip.NewWriter(out)
		closers = append(closers, gz)
		out = gz
	case strings.HasSuffix(path, ".sz"):
		path = strings.TrimSuffix(path, ".sz")
		sz := snappy.NewBufferedWriter(out)
		closers = append(closers, sz)
		out = sz
	}

	var e Encoder
	switch {
	case strings.HasSuffix(path, ".json"), strings.HasSuffix(path, ".jsonl"):
		e = json.NewEncoder(out)
	case strings.HasSuffix(path, ".gob"):
		e = gob.NewEncoder(out)
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		ye := yaml.NewEncoder(out)
		closers = append(closers, ye)
		e = ye
	default:
		return nil, fmt.Errorf("could not find encoder for %s", inpath)
	}

	return &EncodeCloser{
		encoder: e,
		closers: closers,
	}, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
