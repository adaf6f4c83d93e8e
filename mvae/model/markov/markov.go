// Package markov is a genre-conditioned Markov baseline for model.Model. Each step
// component is a first-order chain over its own tokens, with one chain per genre.
package markov

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"

	"github.com/spf13/afero"

	"github.com/kiteco/musicvae/kite-golib/errors"
	"github.com/kiteco/musicvae/kite-golib/serialization"
	"github.com/kiteco/musicvae/mvae/model"
	"github.com/kiteco/musicvae/mvae/noteseq"
)

// smoothing is the additive (Laplace) pseudo-count for every transition
const smoothing = 1.0

// WeightsExt is appended to paths passed to SaveWeights and LoadWeights
const WeightsExt = ".gob.sz"

// Model implements model.Model
type Model struct {
	params  model.Params
	fs      afero.Fs
	weights Weights
	rng     *rand.Rand
	tracker tracker
}

var _ model.Model = (*Model)(nil)

// New builds an untrained model; weights are persisted on fs
func New(params model.Params, fs afero.Fs) (*Model, error) {
	if len(params.XDepth) == 0 {
		return nil, errors.Errorf("x_depth must have at least one component")
	}
	if params.CatDim <= 0 {
		return nil, errors.Errorf("cat_dim must be positive, got %d", params.CatDim)
	}
	return &Model{
		params:  params,
		fs:      fs,
		weights: newWeights(params.XDepth, params.CatDim),
		rng:     rand.New(rand.NewSource(params.Seed)),
	}, nil
}

// XDepth implements model.Model
func (m *Model) XDepth() []int {
	return m.params.XDepth
}

// ResetTrackers implements model.Model
func (m *Model) ResetTrackers() {
	m.tracker = tracker{}
}

// TrainEpoch implements model.Model. Each batch is scored before it is counted, so the
// reported loss is an online estimate.
func (m *Model) TrainEpoch(ctx context.Context, data *noteseq.Dataset, epoch int) (model.Logs, error) {
	if err := m.checkData(data); err != nil {
		return nil, err
	}
	for _, batch := range data.Batches(epoch) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, ex := range batch {
			m.score(&m.tracker, ex)
		}
		for _, ex := range batch {
			m.weights.observe(ex)
		}
	}
	return m.tracker.logs(), nil
}

// Evaluate implements model.Model
func (m *Model) Evaluate(ctx context.Context, data *noteseq.Dataset) (model.Logs, error) {
	if err := m.checkData(data); err != nil {
		return nil, err
	}
	var t tracker
	for _, batch := range data.Batches(0) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, ex := range batch {
			m.score(&t, ex)
		}
	}
	return t.logs(), nil
}

// Sample implements model.Model
func (m *Model) Sample(genre, n int) ([]noteseq.Segment, error) {
	if genre < 0 || genre >= m.params.CatDim {
		return nil, errors.Errorf("genre %d out of range [0, %d)", genre, m.params.CatDim)
	}
	if m.weights.SeqLen == 0 {
		return nil, errors.Errorf("model has not been trained")
	}

	samples := make([]noteseq.Segment, 0, n)
	for i := 0; i < n; i++ {
		seg := make(noteseq.Segment, m.weights.SeqLen)
		for s := range seg {
			step := make(noteseq.Step, len(m.params.XDepth))
			for c := range step {
				var counts []float64
				if s == 0 {
					counts = m.weights.Initial[genre][c]
				} else {
					counts = m.weights.Transition[genre][c][seg[s-1][c]]
				}
				step[c] = draw(m.rng, counts)
			}
			seg[s] = step
		}
		samples = append(samples, seg)
	}
	return samples, nil
}

// SaveWeights implements model.Model; the file is path + WeightsExt
func (m *Model) SaveWeights(path string) error {
	return errors.WrapfOrNil(serialization.Encode(m.fs, path+WeightsExt, m.weights), "error saving weights")
}

// LoadWeights implements model.Model
func (m *Model) LoadWeights(path string) error {
	var w Weights
	if err := serialization.Decode(m.fs, path+WeightsExt, &w); err != nil {
		return errors.Wrapf(err, "error loading weights")
	}
	if err := w.check(m.params.XDepth, m.params.CatDim); err != nil {
		return errors.Wrapf(err, "incompatible weights in %s", path)
	}
	m.weights = w
	return nil
}

// Summary implements model.Model
func (m *Model) Summary(w io.Writer) error {
	p := m.params
	var total int
	fmt.Fprintf(w, "Model: markov (genres=%d)\n", p.CatDim)
	fmt.Fprintf(w, "%-12s %-8s %s\n", "component", "depth", "params")
	for c, d := range p.XDepth {
		n := p.CatDim * (d + d*d)
		total += n
		fmt.Fprintf(w, "%-12d %-8d %d\n", c, d, n)
	}
	fmt.Fprintf(w, "Total params: %d\n", total)
	fmt.Fprintf(w, "Ignored hyperparameters: rnn_type=%s enc_rnn_dim=%d dec_rnn_dim=%d cont_dim=%d style_embed_dim=%d attention=%d kl_reg=%v kl_anneal=%d\n",
		p.RNNType, p.EncRNNDim, p.DecRNNDim, p.ContDim, p.StyleEmbedDim, p.Attention, p.KLReg, p.KLAnneal)
	_, err := fmt.Fprintf(w, "Sequence length: %d\n", m.weights.SeqLen)
	return err
}

func (m *Model) checkData(data *noteseq.Dataset) error {
	if data.NumGenres() > m.params.CatDim {
		return errors.Errorf("data has %d genres, model has %d", data.NumGenres(), m.params.CatDim)
	}
	xd := data.XDepth()
	if len(xd) != len(m.params.XDepth) {
		return errors.Errorf("data has %d components, model has %d", len(xd), len(m.params.XDepth))
	}
	for i := range xd {
		if xd[i] != m.params.XDepth[i] {
			return errors.Errorf("component %d: data depth %d, model depth %d", i, xd[i], m.params.XDepth[i])
		}
	}
	return nil
}

// score adds the negative log likelihood of ex and the arg-max pitch accuracy to t
func (m *Model) score(t *tracker, ex noteseq.Example) {
	for s, step := range ex.Segment {
		for c, tok := range step {
			var counts []float64
			if s == 0 {
				counts = m.weights.Initial[ex.Genre][c]
			} else {
				counts = m.weights.Transition[ex.Genre][c][ex.Segment[s-1][c]]
			}
			t.nll -= math.Log(prob(counts, tok))
			t.tokens++
			if c == 0 {
				t.pitchSteps++
				if argmax(counts) == tok {
					t.pitchHits++
				}
			}
		}
	}
}

type tracker struct {
	nll        float64
	tokens     int
	pitchHits  int
	pitchSteps int
}

func (t tracker) logs() model.Logs {
	logs := model.Logs{"loss": math.NaN(), "p_acc": math.NaN()}
	if t.tokens > 0 {
		logs["loss"] = t.nll / float64(t.tokens)
	}
	if t.pitchSteps > 0 {
		logs["p_acc"] = float64(t.pitchHits) / float64(t.pitchSteps)
	}
	return logs
}

func prob(counts []float64, tok int) float64 {
	var total float64
	for _, c := range counts {
		total += c
	}
	return (counts[tok] + smoothing) / (total + smoothing*float64(len(counts)))
}

func argmax(counts []float64) int {
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return best
}

// draw samples a token from the smoothed distribution over counts
func draw(r *rand.Rand, counts []float64) int {
	var total float64
	for _, c := range counts {
		total += c + smoothing
	}
	x := r.Float64() * total
	for i, c := range counts {
		x -= c + smoothing
		if x < 0 {
			return i
		}
	}
	return len(counts) - 1
}
