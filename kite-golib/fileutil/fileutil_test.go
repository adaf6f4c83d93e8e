package fileutil

import (
	"io/ioutil"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReader(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/foo", []byte("foo"), 0644))

	f, err := NewReader(fs, "/data/foo")
	require.NoError(t, err)
	defer f.Close()

	g, err := NewReader(fs, "/data/bar")
	assert.Error(t, err)
	assert.Nil(t, g)
}

func TestNewBufferedWriterCreatesDirs(t *testing.T) {
	fs := afero.NewMemMapFs()

	w, err := NewBufferedWriter(fs, "/out/a/b/c.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	buf, err := afero.ReadFile(fs, "/out/a/b/c.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))
}

func TestNewAppendWriter(t *testing.T) {
	fs := afero.NewMemMapFs()

	w, nonEmpty, err := NewAppendWriter(fs, "/out/log.csv")
	require.NoError(t, err)
	assert.False(t, nonEmpty)
	w.Write([]byte("a\n"))
	require.NoError(t, w.Close())

	w, nonEmpty, err = NewAppendWriter(fs, "/out/log.csv")
	require.NoError(t, err)
	assert.True(t, nonEmpty)
	w.Write([]byte("b\n"))
	require.NoError(t, w.Close())

	f, err := fs.Open("/out/log.csv")
	require.NoError(t, err)
	buf, err := ioutil.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(buf))
}

func TestCopyFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/train.conf", []byte("epochs 3\n"), 0644))

	require.NoError(t, CopyFile(fs, "/train.conf", "/run/train.conf"))
	ok, err := Exists(fs, "/run/train.conf")
	require.NoError(t, err)
	assert.True(t, ok)

	buf, err := afero.ReadFile(fs, "/run/train.conf")
	require.NoError(t, err)
	assert.Equal(t, "epochs 3\n", string(buf))

	assert.Error(t, CopyFile(fs, "/missing", "/run/missing"))
}
