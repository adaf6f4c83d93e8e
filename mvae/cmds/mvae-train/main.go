package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	arg "github.com/alexflint/go-arg"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/kiteco/musicvae/kite-golib/envutil"
	"github.com/kiteco/musicvae/kite-golib/errors"
	"github.com/kiteco/musicvae/kite-golib/fileutil"
	"github.com/kiteco/musicvae/kite-golib/kitelog"
	"github.com/kiteco/musicvae/kite-golib/serialization"
	"github.com/kiteco/musicvae/mvae/callbacks"
	"github.com/kiteco/musicvae/mvae/config"
	"github.com/kiteco/musicvae/mvae/dataset"
	"github.com/kiteco/musicvae/mvae/evaluate"
	"github.com/kiteco/musicvae/mvae/generate"
	"github.com/kiteco/musicvae/mvae/model"
	"github.com/kiteco/musicvae/mvae/model/markov"
	"github.com/kiteco/musicvae/mvae/noteseq"
	"github.com/kiteco/musicvae/mvae/train"
)

func main() {
	args := struct {
		Config string `arg:"positional" help:"training configuration file"`
	}{
		Config: "train.conf",
	}
	arg.MustParse(&args)

	if err := envutil.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	kitelog.SetLevel(kitelog.ParseLevel(envutil.GetenvDefault("LOG_LEVEL", "info")))
	log := kitelog.Basic
	defer log.Sync()

	fs := afero.NewOsFs()
	conf, err := loadConfig(fs, args.Config)
	if err != nil {
		log.Errorw("invalid configuration", "path", args.Config, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = run(ctx, fs, args.Config, conf, log)
	stop()
	if err != nil {
		log.Errorw("training failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig(fs afero.Fs, path string) (config.Config, error) {
	raw, err := config.Load(fs, path)
	if err != nil {
		return config.Config{}, err
	}
	return config.New(raw)
}

type runDirs struct {
	root string
}

func (d runDirs) path(elems ...string) string {
	return filepath.Join(append([]string{d.root}, elems...)...)
}

// run trains until the last epoch or until ctx is done. Once training has started,
// cancelling ctx saves the final weights and returns nil; before that it aborts the run.
func run(ctx context.Context, fs afero.Fs, confPath string, conf config.Config, log *zap.SugaredLogger) error {
	collections, err := dataset.LoadAll(fs, conf.Datasets)
	if err != nil {
		return err
	}
	trainSegs, testSegs, err := dataset.SplitAll(collections, conf.MasterPct, conf.KeepPcts, conf.CatDim, conf.Seed)
	if err != nil {
		return err
	}
	dataset.Report(os.Stdout, conf.Datasets, trainSegs, testSegs)

	if conf.Confirm {
		if err := waitForEnter(ctx, os.Stdin); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "interrupted before training")
	}

	trainData, err := noteseq.Load(trainSegs, conf.XDepth, conf.BatchSize, conf.Seed)
	if err != nil {
		return errors.Wrapf(err, "error building training iterator")
	}
	testData, err := noteseq.Load(testSegs, conf.XDepth, conf.BatchSize, conf.Seed)
	if err != nil {
		return errors.Wrapf(err, "error building validation iterator")
	}

	m, err := markov.New(model.ParamsFromConfig(conf), fs)
	if err != nil {
		return err
	}

	dirs := runDirs{root: conf.SavePath}
	appending, err := fileutil.Exists(fs, dirs.path("log.csv"))
	if err != nil {
		return errors.Wrapf(err, "error checking for a previous training log")
	}
	if appending {
		log.Infow("appending to existing training log", "path", dirs.path("log.csv"))
	}
	if err := writeRunFiles(fs, dirs, confPath, conf, m); err != nil {
		return err
	}

	gen, err := generate.New(m, generate.DefaultOptions(conf.PitchMin, conf.PitchMax))
	if err != nil {
		return err
	}
	eval, err := evaluate.New(fs, gen, evaluate.Options{
		Root:           conf.SavePath,
		Every:          conf.EvalEvery,
		Samples:        conf.EvalSamples,
		Genres:         conf.CatDim,
		BeatResolution: conf.BeatResolution,
		Progress:       true,
	}, log)
	if err != nil {
		return err
	}

	events := callbacks.NewEvents(fs, dirs.path("events"), log)
	log.Infow("starting training", "run_id", events.RunID(), "epochs", conf.Epochs,
		"train", trainData.Len(), "test", testData.Len(), "save_path", conf.SavePath)

	shutdown := train.Shutdown{Model: m, Path: dirs.path("weights", "weights-final"), Log: log}

	err = train.Fit(ctx, m, trainData, testData, train.Options{
		Epochs: conf.Epochs,
		Callbacks: []train.Callback{
			train.ResetTrackers{Model: m},
			callbacks.NewCSVLogger(fs, dirs.path("log.csv")),
			callbacks.NewCheckpoint(m, dirs.path("weights"), conf.Monitor, log),
			events,
			eval,
		},
		Log: log,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if ctx.Err() != nil {
		log.Warnw("interrupted, saving final weights")
	}
	return shutdown.Run()
}

// waitForEnter blocks until a line is read from r or ctx is done
func waitForEnter(ctx context.Context, r io.Reader) error {
	fmt.Print("press Enter to start training")
	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(r).ReadString('\n')
		done <- err
	}()

	select {
	case err := <-done:
		return errors.WrapfOrNil(err, "error waiting for confirmation")
	case <-ctx.Done():
		fmt.Println()
		return errors.Wrapf(ctx.Err(), "interrupted before training")
	}
}

func writeRunFiles(fs afero.Fs, dirs runDirs, confPath string, conf config.Config, m model.Model) (err error) {
	if err := fs.MkdirAll(dirs.root, 0755); err != nil {
		return errors.Wrapf(err, "error creating %s", dirs.root)
	}
	if err := fileutil.CopyFile(fs, confPath, dirs.path("train.conf")); err != nil {
		return err
	}
	if err := serialization.Encode(fs, dirs.path("config.yaml"), conf); err != nil {
		return errors.Wrapf(err, "error writing resolved configuration")
	}

	f, err := fileutil.NewBufferedWriter(fs, dirs.path("model.txt"))
	if err != nil {
		return err
	}
	defer errors.Defer(&err, f.Close)
	return errors.WrapfOrNil(m.Summary(f), "error writing model summary")
}
