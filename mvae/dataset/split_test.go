package dataset

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiteco/musicvae/kite-golib/errors"
	"github.com/kiteco/musicvae/kite-golib/serialization"
	"github.com/kiteco/musicvae/mvae/config"
	"github.com/kiteco/musicvae/mvae/noteseq"
)

// collection returns n distinct one-step segments; the token identifies the segment
func collection(n int) []noteseq.Segment {
	segs := make([]noteseq.Segment, n)
	for i := range segs {
		segs[i] = noteseq.Segment{{i}}
	}
	return segs
}

func ids(segs []noteseq.Segment) []int {
	var out []int
	for _, s := range segs {
		out = append(out, s[0][0])
	}
	return out
}

func TestSizes(t *testing.T) {
	train, test := Sizes(100, 1, 1)
	assert.Equal(t, 90, train)
	assert.Equal(t, 10, test)

	train, test = Sizes(100, 0.5, 1)
	assert.Equal(t, 47, train)
	assert.Equal(t, 5, test)

	train, test = Sizes(100, 0.8, 1)
	assert.Equal(t, 73, train)
	assert.Equal(t, 8, test)

	train, test = Sizes(3, 1, 1)
	assert.Equal(t, 2, train)
	assert.Equal(t, 1, test)

	train, test = Sizes(0, 1, 1)
	assert.Equal(t, 0, train)
	assert.Equal(t, 0, test)
}

func TestSplitDisjointAndBounded(t *testing.T) {
	for _, n := range []int{1, 2, 7, 10, 101, 1000} {
		for _, pcts := range [][2]float64{{1, 1}, {0.5, 1}, {1, 0.3}, {0.8, 0.9}} {
			segs := collection(n)
			train, test, err := Split(segs, pcts[0], pcts[1], 42)
			require.NoError(t, err)
			assert.True(t, len(train)+len(test) <= n)

			seen := map[int]bool{}
			for _, id := range append(ids(train), ids(test)...) {
				assert.False(t, seen[id], "segment %d appears twice", id)
				seen[id] = true
			}
		}
	}
}

func TestSplitIsReproducible(t *testing.T) {
	segs := collection(250)
	train1, test1, err := Split(segs, 0.8, 0.5, 42)
	require.NoError(t, err)
	train2, test2, err := Split(segs, 0.8, 0.5, 42)
	require.NoError(t, err)

	assert.Equal(t, ids(train1), ids(train2))
	assert.Equal(t, ids(test1), ids(test2))

	train3, _, err := Split(segs, 0.8, 0.5, 7)
	require.NoError(t, err)
	assert.NotEqual(t, ids(train1), ids(train3))
}

func TestSplitRejectsBadFractions(t *testing.T) {
	_, _, err := Split(collection(10), 0, 1, 42)
	assert.Error(t, err)
	_, _, err = Split(collection(10), 1, 1.5, 42)
	assert.Error(t, err)
}

func TestSplitAll(t *testing.T) {
	cols := [][]noteseq.Segment{collection(100), collection(50)}

	train, test, err := SplitAll(cols, 1, []float64{1, 0.5}, 2, 42)
	require.NoError(t, err)
	require.Len(t, train, 2)
	assert.Len(t, train[0], 90)
	assert.Len(t, test[0], 10)
	assert.Len(t, train[1], 22)
	assert.Len(t, test[1], 3)

	train, _, err = SplitAll(cols, 1, nil, 2, 42)
	require.NoError(t, err)
	assert.Len(t, train[1], 45)

	_, _, err = SplitAll(cols, 1, []float64{1, 1}, 3, 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrCatDim))

	_, _, err = SplitAll(cols, 1, []float64{1}, 2, 42)
	assert.Error(t, err)
}

func TestLoadAndReport(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, serialization.Encode(fs, "/data/jazz-raw.gob.gz", collection(1200)))
	require.NoError(t, serialization.Encode(fs, "/data/pop-raw.json", collection(20)))

	paths := []string{"/data/jazz-raw.gob.gz", "/data/pop-raw.json"}
	cols, err := LoadAll(fs, paths)
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Len(t, cols[0], 1200)
	assert.Equal(t, noteseq.Segment{{19}}, cols[1][19])

	train, test, err := SplitAll(cols, 1, nil, 2, 42)
	require.NoError(t, err)

	var buf bytes.Buffer
	Report(&buf, paths, train, test)
	assert.Equal(t, "train length - test length\njazz 1,080 120\npop 18 2\n", buf.String())

	_, err = LoadAll(fs, []string{"/data/missing.gob"})
	assert.Error(t, err)
}

func TestName(t *testing.T) {
	assert.Equal(t, "jazz", Name("data/segments/jazz-raw.gob.gz"))
	assert.Equal(t, "nmd", Name("nmd.json"))
	assert.Equal(t, "folk", Name("folk"))
}
