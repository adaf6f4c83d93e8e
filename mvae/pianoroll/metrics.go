package pianoroll

// NPitchesUsed is the number of distinct pitches active at any time step
func (p *Pianoroll) NPitchesUsed() int {
	var used [NumPitches]bool
	for _, row := range p.Active {
		for k, on := range row {
			if on {
				used[k] = true
			}
		}
	}
	var n int
	for _, u := range used {
		if u {
			n++
		}
	}
	return n
}

// NPitchClassesUsed is the number of distinct pitch classes (pitch mod 12) active at any time step
func (p *Pianoroll) NPitchClassesUsed() int {
	var used [12]bool
	for _, row := range p.Active {
		for k, on := range row {
			if on {
				used[k%12] = true
			}
		}
	}
	var n int
	for _, u := range used {
		if u {
			n++
		}
	}
	return n
}

// EmptyBeatRate is the fraction of beats in which no note is active. A trailing partial
// beat counts as a beat, padded with silence.
func (p *Pianoroll) EmptyBeatRate() float64 {
	if len(p.Active) == 0 || p.BeatResolution <= 0 {
		return 0
	}
	beats := (len(p.Active) + p.BeatResolution - 1) / p.BeatResolution
	var empty int
	for b := 0; b < beats; b++ {
		start := b * p.BeatResolution
		end := start + p.BeatResolution
		if end > len(p.Active) {
			end = len(p.Active)
		}
		if !anyActive(p.Active[start:end]) {
			empty++
		}
	}
	return float64(empty) / float64(beats)
}

// PolyphonicRate is the fraction of time steps with more than threshold active pitches
func (p *Pianoroll) PolyphonicRate(threshold int) float64 {
	if len(p.Active) == 0 {
		return 0
	}
	var poly int
	for _, row := range p.Active {
		var n int
		for _, on := range row {
			if on {
				n++
			}
		}
		if n > threshold {
			poly++
		}
	}
	return float64(poly) / float64(len(p.Active))
}

func anyActive(rows [][NumPitches]bool) bool {
	for _, row := range rows {
		for _, on := range row {
			if on {
				return true
			}
		}
	}
	return false
}
