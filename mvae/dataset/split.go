package dataset

import (
	"math"
	"math/rand"

	"github.com/kiteco/musicvae/kite-golib/errors"
	"github.com/kiteco/musicvae/mvae/config"
	"github.com/kiteco/musicvae/mvae/noteseq"
)

// sizeEpsilon absorbs float noise such as 0.1*0.8*100 = 8.000000000000002
const sizeEpsilon = 1e-9

// Fractions returns the test and train fractions of a collection retained for the
// given master and keep percentages.
func Fractions(masterPct, keepPct float64) (test, train float64) {
	testSize := 0.1 * masterPct
	trainSize := (1 - testSize) * masterPct
	return testSize * keepPct, trainSize * keepPct
}

// Sizes returns how many of n segments go to train and test
func Sizes(n int, masterPct, keepPct float64) (train, test int) {
	testFrac, trainFrac := Fractions(masterPct, keepPct)
	test = int(math.Ceil(testFrac*float64(n) - sizeEpsilon))
	train = int(math.Floor(trainFrac*float64(n) + sizeEpsilon))
	if test > n {
		test = n
	}
	if train+test > n {
		train = n - test
	}
	if train < 0 {
		train = 0
	}
	return train, test
}

// Split partitions segments into disjoint train and test subsets. A permutation drawn
// from seed places the first test-size indices in test and the following train-size
// indices in train, so identical inputs always give identical partitions.
func Split(segments []noteseq.Segment, masterPct, keepPct float64, seed int64) (train, test []noteseq.Segment, err error) {
	if masterPct <= 0 || masterPct > 1 {
		return nil, nil, errors.Errorf("master_pct %v must be in (0, 1]", masterPct)
	}
	if keepPct <= 0 || keepPct > 1 {
		return nil, nil, errors.Errorf("keep_pct %v must be in (0, 1]", keepPct)
	}

	nTrain, nTest := Sizes(len(segments), masterPct, keepPct)

	r := rand.New(rand.NewSource(seed))
	perm := r.Perm(len(segments))

	test = make([]noteseq.Segment, 0, nTest)
	for _, idx := range perm[:nTest] {
		test = append(test, segments[idx])
	}
	train = make([]noteseq.Segment, 0, nTrain)
	for _, idx := range perm[nTest : nTest+nTrain] {
		train = append(train, segments[idx])
	}
	return train, test, nil
}

// SplitAll splits every collection with its keep percentage. catDim must equal the
// number of collections. A nil keepPcts keeps everything.
func SplitAll(collections [][]noteseq.Segment, masterPct float64, keepPcts []float64, catDim int, seed int64) (train, test [][]noteseq.Segment, err error) {
	if catDim != len(collections) {
		return nil, nil, errors.Wrapf(config.ErrCatDim, "%d = cat_dim != number of different datasets = %d", catDim, len(collections))
	}
	if keepPcts != nil && len(keepPcts) != len(collections) {
		return nil, nil, errors.Errorf("%d keep_pct values for %d datasets", len(keepPcts), len(collections))
	}

	for i, segs := range collections {
		keep := 1.0
		if keepPcts != nil {
			keep = keepPcts[i]
		}
		tr, te, err := Split(segs, masterPct, keep, seed)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "dataset %d", i)
		}
		train = append(train, tr)
		test = append(test, te)
	}
	return train, test, nil
}
