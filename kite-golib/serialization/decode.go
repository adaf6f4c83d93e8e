package serialization

import (
	"compress/gzip"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/golang/snappy"
	"github.com/spf13/afero"
	yaml "gopkg.in/yaml.v2"

	"github.com/kiteco/musicvae/kite-golib/fileutil"
)

// Decoder is an interface that matches gob.Decoder, json.Decoder, and yaml.Decoder
type Decoder interface {
	// Decode extracts an object from the stream
	Decode(interface{}) error
}

// ErrStop is a special value returned from handlers to cease processing
var ErrStop = errors.New("stop processing requested")

// decodeWith with extracts objects from the given decoder and passes them to the handler
func decodeWith(d Decoder, elemType reflect.Type, handler func(interface{}) error) error {
	for {
		elem := reflect.New(elemType).Interface()
		err := d.Decode(elem)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		err = handler(elem)
		if err == ErrStop {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Decode loads objects from a file on fs. If the path ends with .gz or .sz then the
// contents will be decompressed. The encoding is then determined by the remaining file
// extension, which can be .json, .gob, .yml or .yaml.
//
// The handler is either a pointer, which receives the first object in the stream, or a
// function taking a pointer, which is called once per object:
//
//	var segments []noteseq.Segment
//	err := serialization.Decode(fs, "/data/jazz.gob.gz", &segments)
func Decode(fs afero.Fs, path string, handler interface{}) error {
	r, err := fileutil.NewReader(fs, path)
	if err != nil {
		return fmt.Errorf("error loading %s: %v", path, err)
	}
	defer r.Close()
	return DecodeAs(r, path, handler)
}

// DecodeAs is like Decode but reads from r, using path only to determine the
// compression and encoding.
func DecodeAs(r io.Reader, path string, handler interface{}) error {
	inpath := path
	switch {
	case strings.HasSuffix(path, ".gz"):
		path = strings.TrimSuffix(path, ".gz")
		rd, err := gzip.NewReader(r)
		if err != nil {
			return fmt.Errorf("error loading %s: %v", inpath, err)
		}
		defer rd.Close()
		r = rd
	case strings.HasSuffix(path, ".sz"):
		path = strings.TrimSuffix(path, ".sz")
		r = snappy.NewReader(r)
	}

	var d Decoder
	switch {
	case strings.HasSuffix(path, ".json"), strings.HasSuffix(path, ".jsonl"):
		d = json.NewDecoder(r)
	case strings.HasSuffix(path, ".gob"):
		d = gob.NewDecoder(r)
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		d = yaml.NewDecoder(r)
	default:
		return fmt.Errorf("could not find decoder for %s", inpath)
	}

	f := reflect.ValueOf(handler)
	if f.Kind() == reflect.Ptr {
		if err := d.Decode(handler); err != nil {
			return fmt.Errorf("error decoding %s: %v", inpath, err)
		}
		return nil
	}
	if f.Kind() != reflect.Func {
		panic("expected a function or a pointer as last parameter")
	}

	funcType := f.Type()
	if funcType.NumIn() != 1 {
		panic("expected a function with one input parameter")
	}
	if funcType.NumOut() > 1 {
		panic("expected a function with zero or one output parameter")
	}
	ptrType := funcType.In(0)
	if ptrType.Kind() != reflect.Ptr {
		panic("expected function parameter to be a pointer")
	}
	elemType := ptrType.Elem()

	err := decodeWith(d, elemType, func(x interface{}) error {
		ret := f.Call([]reflect.Value{reflect.ValueOf(x)})
		if len(ret) == 0 || ret[0].IsNil() {
			return nil
		}
		return ret[0].Interface().(error)
	})
	if err != nil {
		return fmt.Errorf("error decoding %s: %v", inpath, err)
	}
	return nil
}
