package tracker

import (
	"math"
	"testing"
)

// TestMODPeriodFrequencyRoundTrip checks period -> frequency ->
// period must round-trip exactly for every legal Amiga period.
func TestMODPeriodFrequencyRoundTrip(t *testing.T) {
	for p := 113; p <= 856; p++ {
		freq := freqFromMODPeriod(float64(p))
		got := freqFromMODFreqToPeriod(freq)
		if got != p {
			t.Errorf("period %d: round trip gave %d (freq %.4f)", p, got, freq)
		}
	}
}

// TestMODPeriodToPitchRoundTrip checks periodToPitch inverts periodMOD for
// whole-semitone pitches, since the MOD loader depends on that inverse to
// turn a raw file period back into the pitch periodFromPitch expects.
func TestMODPeriodToPitchRoundTrip(t *testing.T) {
	cases := []struct {
		pitch  int
		period int
	}{
		{12, 856}, // C-1, first entry of the classic 36-period table
		{24, 428}, // C-2
		{36, 214},
	}
	for _, c := range cases {
		if got := int(math.Round(periodMOD(c.pitch))); got != c.period {
			t.Errorf("periodMOD(%d) = %d, want %d", c.pitch, got, c.period)
		}
		if got := periodToPitch(c.period); got != c.pitch {
			t.Errorf("periodToPitch(%d) = %d, want %d", c.period, got, c.pitch)
		}
	}
}

// TestXMLinearOctaveRatio checks that for XM linear-mode notes with
// ft=0, rn=0, freq(n)/freq(n-12) == 2 within 1e-9, checked through the real
// periodFromPitch/hzFromPeriod path the sequencer actually uses.
func TestXMLinearOctaveRatio(t *testing.T) {
	song := &Song{Type: FormatXM, Linear: true}
	for _, n := range []int{36, 48, 60, 72, 84} {
		hi := hzFromPeriod(song, periodFromPitch(song, n, 0, 0))
		lo := hzFromPeriod(song, periodFromPitch(song, n-12, 0, 0))
		ratio := hi / lo
		if math.Abs(ratio-2.0) > 1e-9 {
			t.Errorf("freq(%d)/freq(%d) = %.12f, want 2", n, n-12, ratio)
		}
	}
}

// TestXMLinearC5RelNote covers a C-5 note with relnote
// +12 plays at 16726 Hz (within 1 Hz) — exactly one octave above XM's
// reference C-5 rate of 8363 Hz.
func TestXMLinearC5RelNote(t *testing.T) {
	song := &Song{Type: FormatXM, Linear: true}
	hz := hzFromPeriod(song, periodFromPitch(song, 60+12, 0, 0))
	if math.Abs(hz-16726) > 1 {
		t.Errorf("got %.4f Hz, want ~16726 Hz", hz)
	}
}

// TestS3MC5SpeedOctave checks the shared S3M/IT freqC5 formula against its
// defining property: one octave up doubles frequency.
func TestS3MC5SpeedOctave(t *testing.T) {
	song := &Song{Type: FormatS3M}
	hi := hzFromPeriod(song, periodFromPitch(song, 72, 0, 8363))
	lo := hzFromPeriod(song, periodFromPitch(song, 60, 0, 8363))
	if math.Abs(hi/lo-2.0) > 1e-9 {
		t.Errorf("ratio = %.12f, want 2", hi/lo)
	}
	if math.Abs(hi-16726) > 1 {
		t.Errorf("C-6 at C5Speed 8363: got %.4f Hz, want ~16726 Hz", hi)
	}
}

func TestPeriodStepMultiplier(t *testing.T) {
	cases := []struct {
		song *Song
		want float64
	}{
		{&Song{Type: FormatMOD}, 1},
		{&Song{Type: FormatXM, Linear: false}, 1},
		{&Song{Type: FormatXM, Linear: true}, 4},
		{&Song{Type: FormatS3M}, 4},
		{&Song{Type: FormatIT, Linear: false}, 4},
		{&Song{Type: FormatIT, Linear: true}, 4},
	}
	for _, c := range cases {
		if got := periodStepMultiplier(c.song); got != c.want {
			t.Errorf("periodStepMultiplier(%s, linear=%v) = %v, want %v", c.song.Type, c.song.Linear, got, c.want)
		}
	}
}

func TestSineTableShape(t *testing.T) {
	if sineTable[0] != 0 {
		t.Errorf("sineTable[0] = %d, want 0", sineTable[0])
	}
	if sineTable[16] != 127 {
		t.Errorf("sineTable[16] = %d, want 127 (peak at quarter period)", sineTable[16])
	}
	if sineTable[48] != -127 {
		t.Errorf("sineTable[48] = %d, want -127 (trough at three-quarter period)", sineTable[48])
	}
}
