package markov

import (
	"github.com/kiteco/musicvae/kite-golib/errors"
	"github.com/kiteco/musicvae/mvae/noteseq"
)

// Weights are the raw observation counts of the model
type Weights struct {
	XDepth []int
	CatDim int
	SeqLen int

	// Initial[genre][component][token]
	Initial [][][]float64
	// Transition[genre][component][prev][next]
	Transition [][][][]float64
}

func newWeights(xDepth []int, catDim int) Weights {
	w := Weights{
		XDepth:     append([]int(nil), xDepth...),
		CatDim:     catDim,
		Initial:    make([][][]float64, catDim),
		Transition: make([][][][]float64, catDim),
	}
	for g := 0; g < catDim; g++ {
		w.Initial[g] = make([][]float64, len(xDepth))
		w.Transition[g] = make([][][]float64, len(xDepth))
		for c, d := range xDepth {
			w.Initial[g][c] = make([]float64, d)
			w.Transition[g][c] = make([][]float64, d)
			for p := range w.Transition[g][c] {
				w.Transition[g][c][p] = make([]float64, d)
			}
		}
	}
	return w
}

func (w *Weights) observe(ex noteseq.Example) {
	if len(ex.Segment) > w.SeqLen {
		w.SeqLen = len(ex.Segment)
	}
	for s, step := range ex.Segment {
		for c, tok := range step {
			if s == 0 {
				w.Initial[ex.Genre][c][tok]++
				continue
			}
			w.Transition[ex.Genre][c][ex.Segment[s-1][c]][tok]++
		}
	}
}

func (w Weights) check(xDepth []int, catDim int) error {
	if w.CatDim != catDim || len(w.Initial) != catDim || len(w.Transition) != catDim {
		return errors.Errorf("weights have %d genres, expected %d", w.CatDim, catDim)
	}
	if len(w.XDepth) != len(xDepth) {
		return errors.Errorf("weights have %d components, expected %d", len(w.XDepth), len(xDepth))
	}
	for c, d := range xDepth {
		if w.XDepth[c] != d {
			return errors.Errorf("component %d has depth %d, expected %d", c, w.XDepth[c], d)
		}
	}
	for g := 0; g < catDim; g++ {
		if len(w.Initial[g]) != len(xDepth) || len(w.Transition[g]) != len(xDepth) {
			return errors.Errorf("genre %d: malformed tables", g)
		}
		for c, d := range xDepth {
			if len(w.Initial[g][c]) != d || len(w.Transition[g][c]) != d {
				return errors.Errorf("genre %d component %d: malformed tables", g, c)
			}
		}
	}
	return nil
}
