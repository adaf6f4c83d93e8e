package train

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kiteco/musicvae/kite-golib/errors"
	"github.com/kiteco/musicvae/kite-golib/kitelog"
	"github.com/kiteco/musicvae/mvae/model"
	"github.com/kiteco/musicvae/mvae/noteseq"
)

// Callback is notified around every training epoch. Epochs are zero-based.
type Callback interface {
	OnEpochBegin(epoch int) error
	OnEpochEnd(epoch int, logs model.Logs) error
}

// ResetTrackers clears the model's running metrics at the start of each epoch
type ResetTrackers struct {
	Model model.Model
}

// OnEpochBegin resets the trackers
func (r ResetTrackers) OnEpochBegin(epoch int) error {
	r.Model.ResetTrackers()
	return nil
}

// OnEpochEnd does nothing
func (r ResetTrackers) OnEpochEnd(epoch int, logs model.Logs) error {
	return nil
}

// Options for Fit
type Options struct {
	Epochs    int
	Callbacks []Callback
	Log       *zap.SugaredLogger
}

// Fit trains m on train for opts.Epochs epochs, scoring val after each. The logs passed
// to OnEpochEnd hold the training metrics plus the validation metrics under a val_ prefix.
// Fit returns ctx.Err() as soon as it sees ctx is done; an interrupted epoch does not
// reach the callbacks.
func Fit(ctx context.Context, m model.Model, train, val *noteseq.Dataset, opts Options) error {
	log := kitelog.OrBasic(opts.Log)
	if opts.Epochs < 0 {
		return errors.Errorf("number of epochs must be non-negative, got %d", opts.Epochs)
	}

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()

		for _, cb := range opts.Callbacks {
			if err := cb.OnEpochBegin(epoch); err != nil {
				return errors.Wrapf(err, "epoch %d: callback failed at epoch begin", epoch)
			}
		}

		logs, err := m.TrainEpoch(ctx, train, epoch)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrapf(err, "epoch %d: training failed", epoch)
		}
		if logs == nil {
			logs = make(model.Logs)
		}

		if val != nil && val.Len() > 0 {
			valLogs, err := m.Evaluate(ctx, val)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.Wrapf(err, "epoch %d: validation failed", epoch)
			}
			for k, v := range valLogs.WithPrefix("val_") {
				logs[k] = v
			}
		}

		log.Infow("epoch done", "epoch", epoch+1, "of", opts.Epochs, "duration", time.Since(start).String(), "logs", logs)

		for _, cb := range opts.Callbacks {
			if err := cb.OnEpochEnd(epoch, logs); err != nil {
				return errors.Wrapf(err, "epoch %d: callback failed at epoch end", epoch)
			}
		}
	}
	return nil
}

// Shutdown saves the final weights of a live model, on interrupt or after the last epoch
type Shutdown struct {
	Model interface{ SaveWeights(path string) error }
	Path  string
	Log   *zap.SugaredLogger
}

// Run saves the weights to Path
func (s Shutdown) Run() error {
	if err := s.Model.SaveWeights(s.Path); err != nil {
		return errors.Wrapf(err, "error saving final weights")
	}
	kitelog.OrBasic(s.Log).Infow("saved final weights", "path", s.Path)
	return nil
}
