package callbacks

import (
	"fmt"
	"math"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kiteco/musicvae/kite-golib/errors"
	"github.com/kiteco/musicvae/kite-golib/kitelog"
	"github.com/kiteco/musicvae/mvae/model"
)

// WeightsSaver persists model weights
type WeightsSaver interface {
	SaveWeights(path string) error
}

// Checkpoint saves weights whenever the monitored log value reaches a new maximum.
// Files are named weights.NN in dir, where NN is the one-based epoch number.
type Checkpoint struct {
	model   WeightsSaver
	dir     string
	monitor string
	best    float64
	log     *zap.SugaredLogger

	// Last is the path of the most recently saved checkpoint, empty if none
	Last string
}

// NewCheckpoint monitors the given log key; a nil log uses kitelog.Basic
func NewCheckpoint(m WeightsSaver, dir, monitor string, log *zap.SugaredLogger) *Checkpoint {
	return &Checkpoint{
		model:   m,
		dir:     dir,
		monitor: monitor,
		best:    math.Inf(-1),
		log:     kitelog.OrBasic(log),
	}
}

// Path is the checkpoint file for epoch
func (c *Checkpoint) Path(epoch int) string {
	return filepath.Join(c.dir, fmt.Sprintf("weights.%02d", epoch+1))
}

// Best is the best monitored value seen so far
func (c *Checkpoint) Best() float64 {
	return c.best
}

// OnEpochBegin does nothing
func (c *Checkpoint) OnEpochBegin(epoch int) error {
	return nil
}

// OnEpochEnd saves weights if logs improve on the best monitored value
func (c *Checkpoint) OnEpochEnd(epoch int, logs model.Logs) error {
	current, ok := logs[c.monitor]
	if !ok {
		c.log.Warnw("can save best model only with monitored metric available, skipping", "monitor", c.monitor, "available", logs.Keys())
		return nil
	}
	if math.IsNaN(current) || current <= c.best {
		c.log.Infow("monitored metric did not improve", "epoch", epoch, "monitor", c.monitor, "value", current, "best", c.best)
		return nil
	}

	path := c.Path(epoch)
	if err := c.model.SaveWeights(path); err != nil {
		return errors.Wrapf(err, "error saving checkpoint for epoch %d", epoch)
	}
	c.log.Infow("monitored metric improved, saved checkpoint", "epoch", epoch, "monitor", c.monitor, "from", c.best, "to", current, "path", path)
	c.best = current
	c.Last = path
	return nil
}
