package evaluate

// Row is one genre's line in stats.csv
type Row struct {
	Genre    int `csv:"genre"`
	Measured int `csv:"measured"`

	PitchesMean      float64 `csv:"pitches_mean"`
	PitchesStd       float64 `csv:"pitches_std"`
	PitchClassesMean float64 `csv:"pitch_classes_mean"`
	PitchClassesStd  float64 `csv:"pitch_classes_std"`
	EmptyBeatsMean   float64 `csv:"empty_beats_mean"`
	EmptyBeatsStd    float64 `csv:"empty_beats_std"`
	Polyphony1Mean   float64 `csv:"polyphony_1_mean"`
	Polyphony1Std    float64 `csv:"polyphony_1_std"`
	Polyphony2Mean   float64 `csv:"polyphony_2_mean"`
	Polyphony2Std    float64 `csv:"polyphony_2_std"`
	Polyphony3Mean   float64 `csv:"polyphony_3_mean"`
	Polyphony3Std    float64 `csv:"polyphony_3_std"`
	Polyphony4Mean   float64 `csv:"polyphony_4_mean"`
	Polyphony4Std    float64 `csv:"polyphony_4_std"`
}

// NewRow summarizes the merged metrics of one genre
func NewRow(genre, measured int, m Metrics) Row {
	pitches := Summarize(m[Pitches])
	classes := Summarize(m[PitchClasses])
	empty := Summarize(m[EmptyBeats])
	poly := make([]Summary, len(PolyphonyThresholds))
	for i, t := range PolyphonyThresholds {
		poly[i] = Summarize(m[Polyphony(t)])
	}

	return Row{
		Genre:    genre,
		Measured: measured,

		PitchesMean:      pitches.Mean,
		PitchesStd:       pitches.Std,
		PitchClassesMean: classes.Mean,
		PitchClassesStd:  classes.Std,
		EmptyBeatsMean:   empty.Mean,
		EmptyBeatsStd:    empty.Std,
		Polyphony1Mean:   poly[0].Mean,
		Polyphony1Std:    poly[0].Std,
		Polyphony2Mean:   poly[1].Mean,
		Polyphony2Std:    poly[1].Std,
		Polyphony3Mean:   poly[2].Mean,
		Polyphony3Std:    poly[2].Std,
		Polyphony4Mean:   poly[3].Mean,
		Polyphony4Std:    poly[3].Std,
	}
}
