package callbacks

import (
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	chart "github.com/wcharczuk/go-chart"
	"go.uber.org/zap"

	"github.com/kiteco/musicvae/kite-golib/errors"
	"github.com/kiteco/musicvae/kite-golib/fileutil"
	"github.com/kiteco/musicvae/kite-golib/kitelog"
	"github.com/kiteco/musicvae/kite-golib/serialization"
	"github.com/kiteco/musicvae/mvae/model"
)

// EventsFile is the name of the epoch event trace inside the events directory
const EventsFile = "events.jsonl"

const valPrefix = "val_"

// Event is one line of the event trace
type Event struct {
	RunID string     `json:"run_id"`
	Epoch int        `json:"epoch"`
	Time  time.Time  `json:"time"`
	Logs  model.Logs `json:"logs"`
}

type point struct {
	epoch int
	value float64
}

// Events appends an Event per epoch to dir/events.jsonl and redraws a training curve
// per metric as dir/<metric>.png, with the val_ metric on the same chart.
type Events struct {
	fs      afero.Fs
	dir     string
	runID   string
	history map[string][]point
	log     *zap.SugaredLogger
	now     func() time.Time
}

// NewEvents starts a new run with a fresh run id; a nil log uses kitelog.Basic
func NewEvents(fs afero.Fs, dir string, log *zap.SugaredLogger) *Events {
	return &Events{
		fs:      fs,
		dir:     dir,
		runID:   uuid.New().String(),
		history: make(map[string][]point),
		log:     kitelog.OrBasic(log),
		now:     time.Now,
	}
}

// RunID identifies the events of this run in a trace shared across runs
func (e *Events) RunID() string {
	return e.runID
}

// PlotPath is the chart file for metric
func (e *Events) PlotPath(metric string) string {
	return filepath.Join(e.dir, metric+".png")
}

// OnEpochBegin does nothing
func (e *Events) OnEpochBegin(epoch int) error {
	return nil
}

// OnEpochEnd records logs for epoch and redraws the charts. Failing to draw a chart is
// logged, not returned.
func (e *Events) OnEpochEnd(epoch int, logs model.Logs) error {
	if err := e.append(Event{RunID: e.runID, Epoch: epoch, Time: e.now(), Logs: finite(logs)}); err != nil {
		return err
	}

	for k, v := range logs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		e.history[k] = append(e.history[k], point{epoch: epoch, value: v})
	}

	for metric := range e.history {
		if strings.HasPrefix(metric, valPrefix) {
			if _, ok := e.history[strings.TrimPrefix(metric, valPrefix)]; ok {
				continue
			}
		}
		if err := e.plot(metric); err != nil {
			e.log.Debugw("could not draw training curve", "metric", metric, "error", err)
		}
	}
	return nil
}

func (e *Events) append(ev Event) (err error) {
	path := filepath.Join(e.dir, EventsFile)
	f, _, err := fileutil.NewAppendWriter(e.fs, path)
	if err != nil {
		return err
	}
	defer errors.Defer(&err, f.Close)

	enc, err := serialization.NewStreamEncoder(f, path)
	if err != nil {
		return err
	}
	defer errors.Defer(&err, enc.Close)

	return errors.WrapfOrNil(enc.Encode(ev), "error writing event for epoch %d", ev.Epoch)
}

func (e *Events) plot(metric string) (err error) {
	names := []string{metric}
	if !strings.HasPrefix(metric, valPrefix) {
		names = append(names, valPrefix+metric)
	}

	var series []chart.Series
	for i, name := range names {
		pts := e.history[name]
		if len(pts) < 2 {
			continue
		}
		s := chart.ContinuousSeries{
			Name: name,
			Style: chart.Style{
				Show:        true,
				StrokeColor: chart.GetAlternateColor(i),
			},
		}
		for _, p := range pts {
			s.XValues = append(s.XValues, float64(p.epoch))
			s.YValues = append(s.YValues, p.value)
		}
		series = append(series, s)
	}
	if len(series) == 0 {
		return nil
	}

	graph := chart.Chart{
		Title:      metric,
		TitleStyle: chart.StyleShow(),
		XAxis: chart.XAxis{
			Name:      "epoch",
			NameStyle: chart.StyleShow(),
			Style:     chart.StyleShow(),
		},
		YAxis: chart.YAxis{
			Name:      metric,
			NameStyle: chart.StyleShow(),
			Style:     chart.StyleShow(),
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	path := e.PlotPath(metric)
	f, err := fileutil.NewBufferedWriter(e.fs, path)
	if err != nil {
		return err
	}
	defer errors.Defer(&err, f.Close)

	return errors.WrapfOrNil(graph.Render(chart.PNG, f), "error rendering %s", path)
}

// finite drops values JSON cannot represent
func finite(logs model.Logs) model.Logs {
	out := make(model.Logs, len(logs))
	for k, v := range logs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[k] = v
	}
	return out
}
