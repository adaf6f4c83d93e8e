package evaluate

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"github.com/spf13/afero"

	"github.com/kiteco/musicvae/mvae/pianoroll"
)

// Metric names, in stats table order
const (
	Pitches      = "pitches"
	PitchClasses = "pitch_classes"
	EmptyBeats   = "empty_beats"
)

// PolyphonyThresholds are the thresholds for which polyphonic rates are measured
var PolyphonyThresholds = []int{1, 2, 3, 4}

// Polyphony names the polyphonic rate metric for threshold
func Polyphony(threshold int) string {
	return fmt.Sprintf("polyphony_%d", threshold)
}

// Metrics maps a metric name to one value per measured sample
type Metrics map[string][]float64

// Merge concatenates same-named lists in argument order. Keys missing from some inputs
// are fine; inputs are never modified.
func Merge(dicts ...Metrics) Metrics {
	out := make(Metrics)
	for _, d := range dicts {
		for k, vals := range d {
			out[k] = append(out[k], vals...)
		}
	}
	return out
}

// Measure computes every metric of one pianoroll
func Measure(p *pianoroll.Pianoroll) Metrics {
	m := Metrics{
		Pitches:      {float64(p.NPitchesUsed())},
		PitchClasses: {float64(p.NPitchClassesUsed())},
		EmptyBeats:   {p.EmptyBeatRate()},
	}
	for _, t := range PolyphonyThresholds {
		m[Polyphony(t)] = []float64{p.PolyphonicRate(t)}
	}
	return m
}

// MeasureFile parses the MIDI file at path and measures it. A file that cannot be
// parsed into a non-empty pianoroll returns an error and no metrics.
func MeasureFile(fs afero.Fs, path string, beatResolution int) (Metrics, error) {
	p, err := pianoroll.ReadFile(fs, path, beatResolution)
	if err != nil {
		return nil, err
	}
	return Measure(p), nil
}

// Summary is the mean and population standard deviation of a metric
type Summary struct {
	Mean float64
	Std  float64
}

// Summarize reduces values; both fields are NaN when values is empty
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{Mean: math.NaN(), Std: math.NaN()}
	}
	mean, err := stats.Mean(values)
	if err != nil {
		mean = math.NaN()
	}
	std, err := stats.StandardDeviationPopulation(values)
	if err != nil {
		std = math.NaN()
	}
	return Summary{Mean: mean, Std: std}
}
