package model

import (
	"context"
	"io"
	"sort"

	"github.com/kiteco/musicvae/mvae/config"
	"github.com/kiteco/musicvae/mvae/noteseq"
)

// Logs maps metric names (loss, p_acc, val_loss, ...) to their values for one epoch
type Logs map[string]float64

// Keys returns the metric names in sorted order
func (l Logs) Keys() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WithPrefix returns a copy of l with every key prefixed
func (l Logs) WithPrefix(prefix string) Logs {
	out := make(Logs, len(l))
	for k, v := range l {
		out[prefix+k] = v
	}
	return out
}

// Params are the hyperparameters a model is constructed with
type Params struct {
	XDepth        []int
	CatDim        int
	EncRNNDim     int
	EncDropout    float64
	DecRNNDim     int
	DecDropout    float64
	ContDim       int
	MuForce       float64
	TGumbel       float64
	StyleEmbedDim int
	KLReg         float64
	KLAnneal      int
	RNNType       string
	Attention     int
	LearningRate  float64
	Seed          int64
}

// ParamsFromConfig copies the model hyperparameters out of a training configuration
func ParamsFromConfig(c config.Config) Params {
	return Params{
		XDepth:        append([]int(nil), c.XDepth...),
		CatDim:        c.CatDim,
		EncRNNDim:     c.EncRNNDim,
		EncDropout:    c.EncDropout,
		DecRNNDim:     c.DecRNNDim,
		DecDropout:    c.DecDropout,
		ContDim:       c.ContDim,
		MuForce:       c.MuForce,
		TGumbel:       c.TGumbel,
		StyleEmbedDim: c.StyleEmbedDim,
		KLReg:         c.KLReg,
		KLAnneal:      c.KLAnneal,
		RNNType:       c.RNNType,
		Attention:     c.Attention,
		LearningRate:  c.LearningRate,
		Seed:          c.Seed,
	}
}

// Model is a genre-conditioned generative sequence model
type Model interface {
	// XDepth is the token depth of each step component
	XDepth() []int

	// ResetTrackers clears running metrics; called at the start of each epoch
	ResetTrackers()

	// TrainEpoch runs one pass over data. Implementations must check ctx between batches
	// and return ctx.Err() once it is done, leaving the weights of the last completed
	// batch in place.
	TrainEpoch(ctx context.Context, data *noteseq.Dataset, epoch int) (Logs, error)

	// Evaluate scores data without updating weights
	Evaluate(ctx context.Context, data *noteseq.Dataset) (Logs, error)

	// Sample decodes n segments conditioned on genre
	Sample(genre, n int) ([]noteseq.Segment, error)

	SaveWeights(path string) error
	LoadWeights(path string) error

	// Summary writes a human readable description of the model structure
	Summary(w io.Writer) error
}
