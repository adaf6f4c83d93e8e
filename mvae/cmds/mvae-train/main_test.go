package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiteco/musicvae/kite-golib/errors"
	"github.com/kiteco/musicvae/kite-golib/kitelog"
	"github.com/kiteco/musicvae/kite-golib/serialization"
	"github.com/kiteco/musicvae/mvae/config"
	"github.com/kiteco/musicvae/mvae/noteseq"
)

func writeDataset(t *testing.T, fs afero.Fs, path string, genre int) {
	var segs []noteseq.Segment
	for i := 0; i < 20; i++ {
		seg := make(noteseq.Segment, 6)
		for s := range seg {
			p := (s + i) % 5
			if genre == 1 {
				p = 4 - p
			}
			seg[s] = noteseq.Step{p, s % 2}
		}
		segs = append(segs, seg)
	}
	require.NoError(t, serialization.Encode(fs, path, segs))
}

func testConfig() config.Config {
	return config.Config{
		XDepth:         []int{5, 2},
		KeepPcts:       []float64{1, 1},
		MasterPct:      1,
		Datasets:       []string{"/data/a-raw.gob", "/data/b-raw.gob"},
		CatDim:         2,
		BatchSize:      4,
		RNNType:        "lstm",
		LearningRate:   config.DefaultLearningRate,
		Epochs:         2,
		SavePath:       "/run",
		Seed:           1,
		Monitor:        "val_p_acc",
		EvalEvery:      1,
		EvalSamples:    2,
		PitchMin:       60,
		PitchMax:       64,
		BeatResolution: 4,
	}
}

func TestRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeDataset(t, fs, "/data/a-raw.gob", 0)
	writeDataset(t, fs, "/data/b-raw.gob", 1)
	require.NoError(t, afero.WriteFile(fs, "/work/train.conf", []byte("epochs 2\n"), 0644))

	require.NoError(t, run(context.Background(), fs, "/work/train.conf", testConfig(), kitelog.Basic))

	for _, p := range []string{
		"train.conf",
		"config.yaml",
		"model.txt",
		"log.csv",
		"weights/weights.01.gob.sz",
		"weights/weights-final.gob.sz",
		"samples/epoch-0/stats.csv",
		"samples/epoch-1/genre-1-1.mid",
		"samples/epoch-1/stats.csv",
		"events/events.jsonl",
	} {
		exists, err := afero.Exists(fs, filepath.Join("/run", p))
		require.NoError(t, err)
		assert.True(t, exists, p)
	}

	var resolved config.Config
	require.NoError(t, serialization.Decode(fs, "/run/config.yaml", &resolved))
	assert.Equal(t, testConfig(), resolved)
}

func TestRunCatDimMismatch(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeDataset(t, fs, "/data/a-raw.gob", 0)
	writeDataset(t, fs, "/data/b-raw.gob", 1)

	conf := testConfig()
	conf.CatDim = 3
	err := run(context.Background(), fs, "/work/train.conf", conf, kitelog.Basic)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrCatDim))

	exists, err := afero.DirExists(fs, "/run")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(afero.NewMemMapFs(), "/nope/train.conf")
	assert.Error(t, err)
}

// cancelOnOpen cancels a run the first time a file with the given base name is opened
// for writing, and optionally fails that open
type cancelOnOpen struct {
	afero.Fs
	name   string
	cancel context.CancelFunc
	err    error
}

func (c cancelOnOpen) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if filepath.Base(name) == c.name {
		c.cancel()
		if c.err != nil {
			return nil, c.err
		}
	}
	return c.Fs.OpenFile(name, flag, perm)
}

func interruptibleRun(t *testing.T, openErr error) (afero.Fs, context.Context, context.CancelFunc) {
	mem := afero.NewMemMapFs()
	writeDataset(t, mem, "/data/a-raw.gob", 0)
	writeDataset(t, mem, "/data/b-raw.gob", 1)
	require.NoError(t, afero.WriteFile(mem, "/work/train.conf", []byte("epochs 1000\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	return cancelOnOpen{Fs: mem, name: "log.csv", cancel: cancel, err: openErr}, ctx, cancel
}

func TestRunInterruptSavesFinalWeights(t *testing.T) {
	fs, ctx, cancel := interruptibleRun(t, nil)
	defer cancel()

	conf := testConfig()
	conf.Epochs = 1000
	require.NoError(t, run(ctx, fs, "/work/train.conf", conf, kitelog.Basic))

	exists, err := afero.Exists(fs, "/run/weights/weights-final.gob.sz")
	require.NoError(t, err)
	assert.True(t, exists)

	// the interrupt lands during the first epoch's callbacks, so only that epoch is logged
	logCSV, err := afero.ReadFile(fs, "/run/log.csv")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(logCSV)), "\n"), 2)

	exists, err = afero.DirExists(fs, "/run/samples/epoch-1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRunCallbackErrorDuringInterrupt(t *testing.T) {
	fs, ctx, cancel := interruptibleRun(t, errors.New("disk full"))
	defer cancel()

	conf := testConfig()
	conf.Epochs = 1000
	err := run(ctx, fs, "/work/train.conf", conf, kitelog.Basic)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	exists, err := afero.Exists(fs, "/run/weights/weights-final.gob.sz")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRunInterruptedBeforeTraining(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeDataset(t, fs, "/data/a-raw.gob", 0)
	writeDataset(t, fs, "/data/b-raw.gob", 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := run(ctx, fs, "/work/train.conf", testConfig(), kitelog.Basic)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	exists, err := afero.DirExists(fs, "/run")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWaitForEnter(t *testing.T) {
	require.NoError(t, waitForEnter(context.Background(), strings.NewReader("\n")))
	assert.Error(t, waitForEnter(context.Background(), strings.NewReader("")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, w := io.Pipe()
	defer w.Close()
	err := waitForEnter(ctx, r)
	assert.True(t, errors.Is(err, context.Canceled))
}
