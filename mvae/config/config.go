package config

import (
	"strconv"
	"strings"

	"github.com/kiteco/musicvae/kite-golib/errors"
)

// ErrCatDim is reported when cat_dim does not match the number of datasets
var ErrCatDim = errors.New("cat_dim must equal the number of datasets")

// Config is the validated, typed training configuration
type Config struct {
	XDepth    []int     `yaml:"x_depth"`
	KeepPcts  []float64 `yaml:"keep_pct"`
	MasterPct float64   `yaml:"master_pct"`
	Datasets  []string  `yaml:"dataset"`
	CatDim    int       `yaml:"cat_dim"`
	BatchSize int       `yaml:"batch_size"`

	EncRNNDim     int     `yaml:"enc_rnn_dim"`
	EncDropout    float64 `yaml:"enc_dropout"`
	DecRNNDim     int     `yaml:"dec_rnn_dim"`
	DecDropout    float64 `yaml:"dec_dropout"`
	ContDim       int     `yaml:"cont_dim"`
	MuForce       float64 `yaml:"mu_force"`
	TGumbel       float64 `yaml:"t_gumbel"`
	StyleEmbedDim int     `yaml:"style_embed_dim"`
	KLReg         float64 `yaml:"kl_reg"`
	KLAnneal      int     `yaml:"kl_anneal"`
	RNNType       string  `yaml:"rnn_type"`
	Attention     int     `yaml:"attention"`
	LearningRate  float64 `yaml:"learning_rate"`

	Epochs   int    `yaml:"epochs"`
	SavePath string `yaml:"save_path"`
	Seed     int64  `yaml:"seed"`
	Monitor  string `yaml:"monitor"`
	Confirm  bool   `yaml:"confirm"`

	EvalEvery      int `yaml:"eval_every"`
	EvalSamples    int `yaml:"eval_samples"`
	PitchMin       int `yaml:"pitch_min"`
	PitchMax       int `yaml:"pitch_max"`
	BeatResolution int `yaml:"beat_resolution"`
}

// Defaults for optional keys
const (
	DefaultRNNType        = "lstm"
	DefaultEvalEvery      = 40
	DefaultEvalSamples    = 50
	DefaultPitchMin       = 21
	DefaultPitchMax       = 108
	DefaultBeatResolution = 24
	DefaultLearningRate   = 5e-4
	DefaultSeed           = 42
	DefaultMonitor        = "val_p_acc"
)

// New coerces and validates raw options. Every missing or malformed key is reported in
// the returned error, not just the first.
func New(raw Raw) (Config, error) {
	c := coercer{raw: raw}

	cfg := Config{
		XDepth:    c.ints("x_depth"),
		KeepPcts:  c.floats("keep_pct"),
		MasterPct: c.float("master_pct"),
		Datasets:  c.strings("dataset"),
		CatDim:    c.int("cat_dim"),
		BatchSize: c.int("batch_size"),

		EncRNNDim:     c.int("enc_rnn_dim"),
		EncDropout:    c.float("enc_dropout"),
		DecRNNDim:     c.int("dec_rnn_dim"),
		DecDropout:    c.float("dec_dropout"),
		ContDim:       c.int("cont_dim"),
		MuForce:       c.float("mu_force"),
		TGumbel:       c.float("t_gumbel"),
		StyleEmbedDim: c.int("style_embed_dim"),
		KLReg:         c.float("kl_reg"),
		KLAnneal:      c.int("kl_anneal"),
		RNNType:       c.stringOr("rnn_type", DefaultRNNType),
		Attention:     c.intOr("attention", 0),
		LearningRate:  c.floatOr("learning_rate", DefaultLearningRate),

		Epochs:   c.int("epochs"),
		SavePath: c.string("save_path"),
		Seed:     int64(c.intOr("seed", DefaultSeed)),
		Monitor:  c.stringOr("monitor", DefaultMonitor),
		Confirm:  c.boolOr("confirm", true),

		EvalEvery:      c.intOr("eval_every", DefaultEvalEvery),
		EvalSamples:    c.intOr("eval_samples", DefaultEvalSamples),
		PitchMin:       c.intOr("pitch_min", DefaultPitchMin),
		PitchMax:       c.intOr("pitch_max", DefaultPitchMax),
		BeatResolution: c.intOr("beat_resolution", DefaultBeatResolution),
	}

	if c.errs != nil {
		return Config{}, c.errs
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field constraints
func (c Config) Validate() error {
	var errs errors.Errors
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = errors.Append(errs, errors.Errorf(format, args...))
		}
	}

	check(len(c.XDepth) > 0, "x_depth: at least one component is required")
	for i, d := range c.XDepth {
		check(d > 0, "x_depth: component %d has depth %d, must be positive", i, d)
	}
	check(len(c.Datasets) > 0, "dataset: at least one path is required")
	check(len(c.KeepPcts) == len(c.Datasets), "keep_pct: %d values for %d datasets", len(c.KeepPcts), len(c.Datasets))
	for i, p := range c.KeepPcts {
		check(p > 0 && p <= 1, "keep_pct: value %d is %v, must be in (0, 1]", i, p)
	}
	check(c.MasterPct > 0 && c.MasterPct <= 1, "master_pct: %v must be in (0, 1]", c.MasterPct)
	if c.CatDim != len(c.Datasets) {
		errs = errors.Append(errs, errors.Wrapf(ErrCatDim, "%d = cat_dim != number of different datasets = %d", c.CatDim, len(c.Datasets)))
	}

	for _, f := range []struct {
		name string
		val  int
	}{
		{"batch_size", c.BatchSize},
		{"enc_rnn_dim", c.EncRNNDim},
		{"dec_rnn_dim", c.DecRNNDim},
		{"cont_dim", c.ContDim},
		{"style_embed_dim", c.StyleEmbedDim},
		{"epochs", c.Epochs},
		{"eval_every", c.EvalEvery},
		{"eval_samples", c.EvalSamples},
		{"beat_resolution", c.BeatResolution},
	} {
		check(f.val > 0, "%s: %d must be positive", f.name, f.val)
	}
	check(c.KLAnneal >= 0, "kl_anneal: %d must not be negative", c.KLAnneal)
	check(c.Attention >= 0, "attention: %d must not be negative", c.Attention)
	check(c.EncDropout >= 0 && c.EncDropout < 1, "enc_dropout: %v must be in [0, 1)", c.EncDropout)
	check(c.DecDropout >= 0 && c.DecDropout < 1, "dec_dropout: %v must be in [0, 1)", c.DecDropout)
	check(c.LearningRate > 0, "learning_rate: %v must be positive", c.LearningRate)
	check(c.RNNType == "lstm" || c.RNNType == "gru", "rnn_type: %q must be lstm or gru", c.RNNType)
	check(c.SavePath != "", "save_path: must not be empty")
	check(c.Monitor != "", "monitor: must not be empty")
	check(c.PitchMin >= 0 && c.PitchMin <= c.PitchMax && c.PitchMax <= 127,
		"pitch_min/pitch_max: [%d, %d] must satisfy 0 <= pitch_min <= pitch_max <= 127", c.PitchMin, c.PitchMax)

	return errors.OrNil(errs)
}

// coercer converts raw values, collecting every failure instead of stopping at the first
type coercer struct {
	raw  Raw
	errs errors.Errors
}

func (c *coercer) fail(err error) {
	c.errs = errors.Append(c.errs, err)
}

func (c *coercer) lookup(key string, required bool) (string, bool) {
	v, ok := c.raw[key]
	if !ok && required {
		c.fail(errors.Errorf("%s: required key is missing", key))
	}
	return v, ok
}

func (c *coercer) string(key string) string {
	v, _ := c.lookup(key, true)
	return v
}

func (c *coercer) stringOr(key, def string) string {
	if v, ok := c.lookup(key, false); ok {
		return v
	}
	return def
}

func (c *coercer) strings(key string) []string {
	v, _ := c.lookup(key, true)
	return strings.Fields(v)
}

func (c *coercer) parseInt(key, v string) int {
	i, err := strconv.Atoi(v)
	if err != nil {
		c.fail(errors.Errorf("%s: %q is not an integer", key, v))
	}
	return i
}

func (c *coercer) parseFloat(key, v string) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.fail(errors.Errorf("%s: %q is not a number", key, v))
	}
	return f
}

func (c *coercer) int(key string) int {
	if v, ok := c.lookup(key, true); ok {
		return c.parseInt(key, v)
	}
	return 0
}

func (c *coercer) intOr(key string, def int) int {
	if v, ok := c.lookup(key, false); ok {
		return c.parseInt(key, v)
	}
	return def
}

func (c *coercer) float(key string) float64 {
	if v, ok := c.lookup(key, true); ok {
		return c.parseFloat(key, v)
	}
	return 0
}

func (c *coercer) floatOr(key string, def float64) float64 {
	if v, ok := c.lookup(key, false); ok {
		return c.parseFloat(key, v)
	}
	return def
}

func (c *coercer) boolOr(key string, def bool) bool {
	v, ok := c.lookup(key, false)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		c.fail(errors.Errorf("%s: %q is not a boolean", key, v))
	}
	return b
}

func (c *coercer) ints(key string) []int {
	var out []int
	for _, f := range c.strings(key) {
		out = append(out, c.parseInt(key, f))
	}
	return out
}

func (c *coercer) floats(key string) []float64 {
	var out []float64
	for _, f := range c.strings(key) {
		out = append(out, c.parseFloat(key, f))
	}
	return out
}
