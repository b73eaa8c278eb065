package tracker

import "math"

const (
	palClock     = 7093789.2  // MOD: Amiga PAL vertical retrace clock
	s3mClock     = 14317056.0 // S3M/IT (non-linear): period<->freq conversion clock
	xmAmigaClock = 14317456.0 // XM Amiga-period mode clock
	xmLinearC5   = 8363.0     // XM linear mode reference rate at N=61 (C-5)
)

// amigaPeriodC0 is the analytic Amiga period for pitch 0 (our internal C-0)
// such that periodMOD(24) == 428 (C-2) and periodMOD(12) == 856 (C-1, first
// entry of the classic 36-period table).
const amigaPeriodC0 = 1712.0

// periodMOD converts an absolute MOD pitch (semitones above our internal
// C-0) to an Amiga period, the inverse of the log-domain derivation libxmp's
// periodToPlayerNote used in the other direction.
func periodMOD(pitch int) float64 {
	return amigaPeriodC0 / math.Exp2(float64(pitch)/12.0)
}

// periodToPitch converts a raw Amiga period value, as stored in a MOD
// file's pattern data, to the absolute pitch number periodMOD/periodFromPitch
// expect, inverting periodMOD. Re-based from libxmp's octave*12+note indexing
// to periodMOD's pitch-0-at-amigaPeriodC0 convention.
func periodToPitch(period int) int {
	return int(math.Round(12.0 * math.Log2(amigaPeriodC0/float64(period))))
}

// freqFromMODPeriod is the MOD period->frequency formula, finetune already
// folded into period by the caller. Exposed standalone so a period can be
// round-tripped through it independent of note quantization.
func freqFromMODPeriod(period float64) float64 {
	return palClock / (2 * period)
}

// freqFromMODFreqToPeriod rounds a frequency back to the nearest integer
// Amiga period.
func freqFromMODFreqToPeriod(freq float64) int {
	return int(math.Round(palClock / (2 * freq)))
}

// freqC5 is the shared S3M/IT note->frequency formula: freq = C5*2^((pitch-60)/12)
// where pitch 60 is C-5 (S3M packs 12*octave+semitone; IT notes 0..119 are
// already in this form).
func freqC5(pitch, c5speed int) float64 {
	return float64(c5speed) * math.Exp2(float64(pitch-60)/12.0)
}

// xmAmigaPeriodTable is the 12-entry Amiga period table for XM Amiga-mode
// (non-linear) frequency slides, indexed by semitone within the octave.
var xmAmigaPeriodTable = [12]float64{1712, 1616, 1524, 1440, 1356, 1280, 1208, 1140, 1076, 1016, 960, 907}

// periodXMAmiga computes the interpolated, octave-shifted Amiga period used
// by periodFromPitch and by the per-tick portamento/vibrato math for XM
// Amiga tracks.
func periodXMAmiga(pitch, finetune int) float64 {
	oct := pitch / 12
	semi := pitch % 12
	if semi < 0 {
		semi += 12
		oct--
	}

	var period float64
	if finetune < 0 {
		prevIdx, octAdj := semi-1, 1.0
		if prevIdx < 0 {
			prevIdx = 11
			octAdj = 2.0
		}
		p1, p2 := xmAmigaPeriodTable[semi], xmAmigaPeriodTable[prevIdx]*octAdj
		frac := float64(-finetune) / 128.0
		period = p1 + (p2-p1)*frac
	} else {
		nextIdx, octAdj := semi+1, 1.0
		if nextIdx > 11 {
			nextIdx = 0
			octAdj = 0.5
		}
		p1, p2 := xmAmigaPeriodTable[semi], xmAmigaPeriodTable[nextIdx]*octAdj
		frac := float64(finetune) / 128.0
		period = p1 + (p2-p1)*frac
	}

	shift := oct - 5
	switch {
	case shift > 0:
		period /= float64(int64(1) << uint(shift))
	case shift < 0:
		period *= float64(int64(1) << uint(-shift))
	}
	return period
}

// linearPeriodConst is FT2's period/frequency scale factor: 12 semitones *
// 16 * 4 = 768 units per octave. linearPeriodC5 is the period value at our
// internal C-5 (pitch 60), derived so hzFromPeriod(linearPeriodC5) ==
// xmLinearC5. Shared by XM-linear and, per this module's simplification
// (see DESIGN.md), IT-linear mode.
const linearPeriodConst = 768.0
const linearPeriodC5 = 0.0

// periodFromPitch computes a track's initial period in its format-native
// units at the moment a note triggers, so that subsequent portamento/
// vibrato steps can work in one additive domain regardless of format (see
// track.go and effects.go). pitch is the absolute, already relnote-adjusted
// note (see model.go pitch* sentinels never reach here).
func periodFromPitch(song *Song, pitch, finetune, c5speed int) float64 {
	switch song.Type {
	case FormatMOD:
		return periodMOD(pitch) / math.Exp2(float64(finetune)/96.0)
	case FormatXM:
		if song.Linear {
			return linearPeriodC5 - float64(pitch-60)*64 - float64(finetune)/2
		}
		return periodXMAmiga(pitch, finetune)
	case FormatIT:
		if song.Linear {
			return linearPeriodC5 - float64(pitch-60)*64
		}
		return s3mClock / freqC5(pitch, c5speed)
	default: // FormatS3M
		return s3mClock / freqC5(pitch, c5speed)
	}
}

// hzFromPeriod is the inverse of periodFromPitch's unit choice: it converts
// a track's live period value back to a playback rate in Hz.
func hzFromPeriod(song *Song, period float64) float64 {
	switch song.Type {
	case FormatMOD:
		return freqFromMODPeriod(period)
	case FormatXM:
		if song.Linear {
			return xmLinearC5 * math.Exp2((linearPeriodC5-period)/linearPeriodConst)
		}
		return xmAmigaClock / period
	case FormatIT:
		if song.Linear {
			return xmLinearC5 * math.Exp2((linearPeriodC5-period)/linearPeriodConst)
		}
		return s3mClock / period
	default:
		return s3mClock / period
	}
}

// isLinearPeriod reports whether song's period domain is the additive
// pseudo-unit one periodFromPitch computes for XM-linear/IT-linear (period
// decreases by 64 per semitone of pitch), as opposed to the period-is-
// proportional-to-1/freq domain every other format/mode uses.
func isLinearPeriod(song *Song) bool {
	return (song.Type == FormatXM || song.Type == FormatIT) && song.Linear
}

// periodStepMultiplier is the per-tick portamento/fine-slide granularity
// multiplier for param: 1 for the period tables (MOD, XM-Amiga), 4 for the
// finer S3M/IT/XM-linear period scales.
func periodStepMultiplier(song *Song) float64 {
	if song.Type == FormatMOD {
		return 1
	}
	if song.Type == FormatXM && !song.Linear {
		return 1
	}
	return 4
}

// sineTable is the shared 64-entry vibrato/tremolo waveform:
// sin_table[i] = round(127*sin(2*pi*i/64)).
var sineTable = func() [64]int {
	var t [64]int
	for i := range t {
		t[i] = int(math.Round(127 * math.Sin(2*math.Pi*float64(i)/64.0)))
	}
	return t
}()
