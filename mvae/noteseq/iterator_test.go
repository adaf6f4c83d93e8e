package noteseq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func segment(tokens ...int) Segment {
	var s Segment
	for _, t := range tokens {
		s = append(s, Step{t, 0})
	}
	return s
}

func TestSegmentValidate(t *testing.T) {
	xDepth := []int{4, 2}
	assert.NoError(t, segment(0, 1, 3).Validate(xDepth))
	assert.Error(t, segment(4).Validate(xDepth))
	assert.Error(t, Segment{}.Validate(xDepth))
	assert.Error(t, Segment{{1}}.Validate(xDepth))
	assert.Error(t, Segment{{1, -1}}.Validate(xDepth))
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load([][]Segment{{segment(0)}, {segment(9)}}, []int{4, 2}, 2, 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "genre 1 segment 0")

	_, err = Load(nil, []int{4}, 0, 42)
	assert.Error(t, err)
}

func TestBatches(t *testing.T) {
	segs := [][]Segment{
		{segment(0), segment(1), segment(2)},
		{segment(3), segment(0)},
	}
	d, err := Load(segs, []int{4, 2}, 2, 42)
	require.NoError(t, err)

	assert.Equal(t, 5, d.Len())
	assert.Equal(t, 2, d.NumGenres())
	assert.Equal(t, 3, d.GenreLen(0))
	assert.Equal(t, 3, d.NumBatches())

	batches := d.Batches(0)
	require.Len(t, batches, 3)
	assert.Len(t, batches[2], 1)

	genres := map[int]int{}
	for _, b := range batches {
		for _, ex := range b {
			genres[ex.Genre]++
		}
	}
	assert.Equal(t, map[int]int{0: 3, 1: 2}, genres)

	assert.Equal(t, batches, d.Batches(0), "same epoch, same order")
}
