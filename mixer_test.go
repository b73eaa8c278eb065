package tracker

import "testing"

func newMixerTestSequencer(t *testing.T) *sequencer {
	t.Helper()
	song := newTestSong(FormatMOD, 1, 1, row(emptyCell))
	return newSequencer(song)
}

// TestMixChannelsClipsToUnitRange checks mixed output never
// leaves [-1, 1] even when several loud, center-panned tracks sum past it.
func TestMixChannelsClipsToUnitRange(t *testing.T) {
	song := newTestSong(FormatMOD, 1, 1, row(emptyCell))
	song.Samples[1].Data = make([]float32, 100)
	for i := range song.Samples[1].Data {
		song.Samples[1].Data[i] = 10 // deliberately overdriven, well past unity
	}
	song.Samples[1].LoopLen = 100

	seq := newSequencer(song)
	tr := &seq.tracks[0]
	tr.sampleIdx = 1
	tr.volume = 64
	tr.pan = 128
	tr.hz = 44100
	tr.samplePos = 0

	out := make([]float32, 20*2)
	seq.mixChannels(out, 20, 0, 44100, 0)

	sawClip := false
	for i, v := range out {
		if v > 1 || v < -1 {
			t.Errorf("out[%d] = %v, outside [-1,1]", i, v)
		}
		if v == 1 || v == -1 {
			sawClip = true
		}
	}
	if !sawClip {
		t.Errorf("expected the overdriven input to actually hit the clip boundary")
	}
}

// TestMixChannelsNonLoopingGatesOffAtEnd checks a non-looping
// track's sample position never advances past its data length; the channel
// gates off instead.
func TestMixChannelsNonLoopingGatesOffAtEnd(t *testing.T) {
	seq := newMixerTestSequencer(t)
	song := seq.song
	song.Samples[1].Data = make([]float32, 10)
	song.Samples[1].LoopLen = 0

	tr := &seq.tracks[0]
	tr.sampleIdx = 1
	tr.volume = 64
	tr.pan = 128
	tr.hz = 44100
	tr.samplePos = 0

	out := make([]float32, 50*2)
	seq.mixChannels(out, 50, 0, 44100, 0)

	if tr.isOn() {
		t.Errorf("expected track to gate off once its 10-frame sample ran out")
	}
}

// TestMixChannelsLoopingStaysWithinLoopBounds covers the looping
// case: a looping track's position is folded back into [LoopStart,
// LoopStart+LoopLen) rather than running off the end of Data.
func TestMixChannelsLoopingStaysWithinLoopBounds(t *testing.T) {
	seq := newMixerTestSequencer(t)
	song := seq.song
	song.Samples[1].Data = make([]float32, 10)
	song.Samples[1].LoopStart = 4
	song.Samples[1].LoopLen = 4 // loop region [4,8)

	tr := &seq.tracks[0]
	tr.sampleIdx = 1
	tr.volume = 64
	tr.pan = 128
	tr.hz = 44100
	tr.samplePos = 0

	out := make([]float32, 1000*2)
	seq.mixChannels(out, 1000, 0, 44100, 0)

	if !tr.isOn() {
		t.Errorf("looping track should stay on indefinitely")
	}
	if tr.samplePos < 4 || tr.samplePos >= 8 {
		t.Errorf("samplePos = %v, want within loop bounds [4,8)", tr.samplePos)
	}
}

// TestMixChannelsRejectsShortOrOutOfRangeLoop covers the literal boundary
// case from the loop-length rule: LL=1 and LL=2 never count as a loop, and a
// loop region that runs past the end of Data is likewise ignored — in both
// cases the track gates off at the end of Data instead of looping forever.
func TestMixChannelsRejectsShortOrOutOfRangeLoop(t *testing.T) {
	cases := []struct {
		name      string
		loopStart int
		loopLen   int
	}{
		{"LoopLen=1", 0, 1},
		{"LoopLen=2", 0, 2},
		{"out-of-range", 8, 4}, // LoopStart+LoopLen=12 > len(data)=10
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			seq := newMixerTestSequencer(t)
			song := seq.song
			song.Samples[1].Data = make([]float32, 10)
			song.Samples[1].LoopStart = c.loopStart
			song.Samples[1].LoopLen = c.loopLen

			tr := &seq.tracks[0]
			tr.sampleIdx = 1
			tr.volume = 64
			tr.pan = 128
			tr.hz = 44100
			tr.samplePos = 0

			out := make([]float32, 50*2)
			seq.mixChannels(out, 50, 0, 44100, 0)

			if tr.isOn() {
				t.Errorf("%s: expected track to gate off rather than loop forever", c.name)
			}
		})
	}
}

// TestMixChannelsAppliesGlobalVolume checks that s.globalVolume (set by the
// S3M/IT Vxx/Wxy effects) actually attenuates mixer output instead of being
// dead state.
func TestMixChannelsAppliesGlobalVolume(t *testing.T) {
	song := newTestSong(FormatIT, 1, 1, row(emptyCell))
	song.Samples[1].Data = make([]float32, 100)
	for i := range song.Samples[1].Data {
		song.Samples[1].Data[i] = 1
	}
	song.Samples[1].LoopLen = 100

	full := newSequencer(song)
	full.globalVolume = 64
	trFull := &full.tracks[0]
	trFull.sampleIdx, trFull.volume, trFull.pan, trFull.hz = 1, 64, 128, 44100
	outFull := make([]float32, 10*2)
	full.mixChannels(outFull, 10, 0, 44100, 0)

	half := newSequencer(song)
	half.globalVolume = 32
	trHalf := &half.tracks[0]
	trHalf.sampleIdx, trHalf.volume, trHalf.pan, trHalf.hz = 1, 64, 128, 44100
	outHalf := make([]float32, 10*2)
	half.mixChannels(outHalf, 10, 0, 44100, 0)

	for i := range outFull {
		if outFull[i] == 0 {
			continue
		}
		got, want := outHalf[i], outFull[i]/2
		if got < want-1e-4 || got > want+1e-4 {
			t.Errorf("out[%d] with globalVolume=32 = %v, want half of globalVolume=64's %v", i, got, outFull[i])
		}
	}
}

func TestMixChannelsRespectsMuteMask(t *testing.T) {
	seq := newMixerTestSequencer(t)
	song := seq.song
	song.Samples[1].Data = make([]float32, 100)
	for i := range song.Samples[1].Data {
		song.Samples[1].Data[i] = 1
	}
	song.Samples[1].LoopLen = 100

	tr := &seq.tracks[0]
	tr.sampleIdx = 1
	tr.volume = 64
	tr.pan = 128
	tr.hz = 44100

	out := make([]float32, 10*2)
	seq.mixChannels(out, 10, 0, 44100, 1) // mute bit 0 set

	for i, v := range out {
		if v != 0 {
			t.Errorf("out[%d] = %v, want 0 with channel 0 muted", i, v)
		}
	}
}

func TestPanTableEndpointsAndCenter(t *testing.T) {
	if l, r := panTable[0][0], panTable[0][1]; l != 1 || r != 0 {
		t.Errorf("panTable[0] = (%v,%v), want (1,0) (hard left)", l, r)
	}
	if l, r := panTable[255][0], panTable[255][1]; r != 1 || l > 1e-6 {
		t.Errorf("panTable[255] = (%v,%v), want (~0,1) (hard right)", l, r)
	}
	mid := panTable[128]
	// equal-power center: both channels attenuated but equal, summed power == 1
	if diff := mid[0] - mid[1]; diff > 0.02 || diff < -0.02 {
		t.Errorf("panTable[128] = %v, want L==R at center", mid)
	}
}
