package tracker

import "testing"

// TestStepArpeggioLinearDomainIsSubtractive covers arpeggio on an XM-linear
// (and IT-linear) track: period there is the additive pseudo-unit quantity
// periodFromPitch computes (64 units/semitone, decreasing with pitch), so a
// semitone shift must subtract 64*semis rather than divide by the MOD-style
// 1/freq ratio. At basePeriod 0 the old ratio-based transform produced zero
// pitch change for any semis value.
func TestStepArpeggioLinearDomainIsSubtractive(t *testing.T) {
	song := newTestSong(FormatXM, 1, 1, row(emptyCell))
	song.Linear = true
	seq := newSequencer(song)
	tr := &seq.tracks[0]
	tr.basePeriod = 0

	seq.stepArpeggio(tr, 0x37, 1) // tick%3==1 -> hi nibble, 3 semitones
	if want := -64.0 * 3; tr.period != want {
		t.Errorf("period = %v, want %v (3 semitones down in linear period units)", tr.period, want)
	}

	seq.stepArpeggio(tr, 0x37, 2) // tick%3==2 -> lo nibble, 7 semitones
	if want := -64.0 * 7; tr.period != want {
		t.Errorf("period = %v, want %v (7 semitones down in linear period units)", tr.period, want)
	}

	seq.stepArpeggio(tr, 0x37, 0) // tick%3==0 -> base note, no shift
	if tr.period != tr.basePeriod {
		t.Errorf("period = %v, want basePeriod %v on the base tick", tr.period, tr.basePeriod)
	}
}

// TestStepArpeggioNonLinearDomainUsesRatio covers every other format/mode,
// where period is proportional to 1/freq: the ratio-based transform this
// module used everywhere before the fix above still applies there.
func TestStepArpeggioNonLinearDomainUsesRatio(t *testing.T) {
	song := newTestSong(FormatMOD, 1, 1, row(emptyCell))
	seq := newSequencer(song)
	tr := &seq.tracks[0]
	tr.basePeriod = 428 // C-2

	seq.stepArpeggio(tr, 0xC0, 1) // 12 semitones up -> period halves
	if got, want := tr.period, 214.0; got < want-0.01 || got > want+0.01 {
		t.Errorf("period = %v, want ~%v (one octave up halves period)", got, want)
	}
}

// TestStepVibratoAmplitudeMatchesDepthOver128 checks the literal
// sin_table[vp]*depth/128 formula, independent of format: MOD, S3M, XM-Amiga
// and IT (non-linear, as newTestSong builds them) must all see the same
// period offset for the same depth/phase (no extra periodStepMultiplier
// scaling).
func TestStepVibratoAmplitudeMatchesDepthOver128(t *testing.T) {
	for _, format := range []Format{FormatMOD, FormatS3M, FormatXM, FormatIT} {
		song := newTestSong(format, 1, 1, row(emptyCell))
		seq := newSequencer(song)
		tr := &seq.tracks[0]
		tr.basePeriod = 1000
		tr.vibratoPos = 16 // sineTable[16] == 127, the waveform's peak
		tr.vibratoDepth = 0
		tr.vibratoSpeed = 0

		seq.stepVibrato(tr, 0x0F) // depth nibble 15, no speed change

		want := tr.basePeriod + float64(sineTable[16]*15)/128.0
		if tr.period != want {
			t.Errorf("%v: period = %v, want %v (127*15/128 offset)", format, tr.period, want)
		}
	}
}
