package tracker

// track is the per-channel runtime state the sequencer advances tick by
// tick: sample index, period/porta state, volume/pan/finetune, sample
// position, and the currently-ticking effect, shared across all four
// formats.
//
// period holds pitch in one format-native unit (see period.go's
// periodFromPitch/hzFromPeriod) regardless of whether the format's native
// math is period-based (MOD, XM-Amiga) or frequency-based (S3M/IT,
// XM-linear): all of them turn out to admit the same additive-step
// arithmetic in their own period domain, so portamento and vibrato
// (sequencer.go's step functions) need only one code path; arpeggio's
// semitone shift branches on isLinearPeriod. hz is the derived playback rate the
// mixer actually reads, recomputed whenever period changes.
type track struct {
	sampleIdx int // index into Song.Samples, 0 = off (index 0 is the reserved empty sample)
	samplePos float64
	volume    int // 0..64
	pan       int // 0..255
	fineTune  int

	period     float64 // active period, format-native units (post-vibrato)
	basePeriod float64 // pre-vibrato baseline / portamento source
	hz         float64 // playback rate in Hz, derived from period by updateHz
	lastPitch  int     // most recently triggered absolute note, -1 if none (XM/IT instrument-only rows)

	portaTarget float64
	portaSpeed  float64

	vibratoPos   int
	vibratoDepth int
	vibratoSpeed int

	tremoloPos   int
	tremoloDepth int
	tremoloSpeed int

	retrigCounter int
	tremorOn      bool
	tremorCounter int

	effect        byte
	param         byte
	effectCounter int

	delayedCell *cell // pending ED x/SD x delayed note, nil if none scheduled

	keyedOff bool
}

// off silences the track without clearing its configured volume/pan.
func (t *track) off() {
	t.sampleIdx = 0
}

func (t *track) isOn() bool {
	return t.sampleIdx > 0
}
