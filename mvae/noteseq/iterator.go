package noteseq

import (
	"math/rand"

	"github.com/kiteco/musicvae/kite-golib/errors"
)

// Example is a segment with its genre label
type Example struct {
	Genre   int
	Segment Segment
}

// Batch is a group of examples fed to the model together
type Batch []Example

// Dataset turns per-genre segment collections into batches
type Dataset struct {
	xDepth    []int
	batchSize int
	seed      int64
	examples  []Example
	perGenre  []int
}

// Load validates the per-genre collections against xDepth; segments[g] holds the
// segments of genre g.
func Load(segments [][]Segment, xDepth []int, batchSize int, seed int64) (*Dataset, error) {
	if batchSize <= 0 {
		return nil, errors.Errorf("batch size must be positive, got %d", batchSize)
	}
	d := &Dataset{
		xDepth:    append([]int(nil), xDepth...),
		batchSize: batchSize,
		seed:      seed,
		perGenre:  make([]int, len(segments)),
	}
	for g, segs := range segments {
		for i, s := range segs {
			if err := s.Validate(xDepth); err != nil {
				return nil, errors.Wrapf(err, "genre %d segment %d", g, i)
			}
			d.examples = append(d.examples, Example{Genre: g, Segment: s})
		}
		d.perGenre[g] = len(segs)
	}
	return d, nil
}

// XDepth returns the token depth of each step component
func (d *Dataset) XDepth() []int {
	return d.xDepth
}

// NumGenres is the number of label classes
func (d *Dataset) NumGenres() int {
	return len(d.perGenre)
}

// Len is the total number of examples
func (d *Dataset) Len() int {
	return len(d.examples)
}

// GenreLen is the number of examples of genre g
func (d *Dataset) GenreLen(g int) int {
	return d.perGenre[g]
}

// NumBatches is the number of batches per epoch
func (d *Dataset) NumBatches() int {
	return (len(d.examples) + d.batchSize - 1) / d.batchSize
}

// Batches returns the batches for the given epoch. The order is shuffled, and the same
// epoch always yields the same order.
func (d *Dataset) Batches(epoch int) []Batch {
	r := rand.New(rand.NewSource(d.seed + int64(epoch)))
	order := r.Perm(len(d.examples))

	batches := make([]Batch, 0, d.NumBatches())
	for start := 0; start < len(order); start += d.batchSize {
		end := start + d.batchSize
		if end > len(order) {
			end = len(order)
		}
		batch := make(Batch, 0, end-start)
		for _, idx := range order[start:end] {
			batch = append(batch, d.examples[idx])
		}
		batches = append(batches, batch)
	}
	return batches
}
