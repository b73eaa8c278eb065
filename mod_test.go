package tracker

import (
	"math"
	"testing"
)

func TestLoadMODChannelTagsAndOrders(t *testing.T) {
	data := make([]byte, 1084)
	copy(data[1080:1084], []byte("4CHN"))
	data[0] = 'T' // title byte, irrelevant to the tag scan

	ch, n, ok := modChannelsAndSampleCount(data)
	if !ok || ch != 4 || n != 31 {
		t.Errorf("modChannelsAndSampleCount(4CHN) = (%d,%d,%v), want (4,31,true)", ch, n, ok)
	}

	cases := map[string]int{
		"M.K.": 4, "M!K!": 4, "FLT4": 4,
		"2CHN": 2, "6CHN": 6, "8CHN": 8, "FLT8": 8,
		"16CH": 16, "32CH": 32,
	}
	for tag, want := range cases {
		d := make([]byte, 1084)
		copy(d[1080:1084], []byte(tag))
		if ch, _, ok := modChannelsAndSampleCount(d); !ok || ch != want {
			t.Errorf("tag %q: got (%d,%v), want (%d,true)", tag, ch, ok, want)
		}
	}

	untagged := make([]byte, 1084)
	copy(untagged[1080:1084], []byte("XXXX"))
	if ch, n, ok := modChannelsAndSampleCount(untagged); ok {
		t.Errorf("unrecognized tag should report hasTag=false, got ch=%d n=%d", ch, n)
	}
}

func TestConvertMODEffectDirectMapping(t *testing.T) {
	// effects.go's constants were chosen as "MOD nibble + 1" for 0x0-0xD.
	for raw := byte(0); raw <= 0x0D; raw++ {
		eff, param := convertMODEffect(raw, 0x42)
		if eff != raw+1 {
			t.Errorf("convertMODEffect(0x%X) effect = %d, want %d", raw, eff, raw+1)
		}
		if param != 0x42 {
			t.Errorf("convertMODEffect(0x%X) param = 0x%X, want 0x42", raw, param)
		}
	}
}

func TestConvertMODEffectExtended(t *testing.T) {
	cases := []struct {
		param      byte
		wantEffect byte
		wantParam  byte
	}{
		{0x16, effectFinePortaUp, 0x6},
		{0x23, effectFinePortaDown, 0x3},
		{0x62, effectPatternLoop, 0x2},
		{0x94, effectRetrigVolSlide, 0x4},
		{0xA5, effectFineVolSlideUp, 0x5},
		{0xB5, effectFineVolSlideDown, 0x5},
		{0xC0, effectNoteCut, 0x0},
		{0xD3, effectNoteDelay, 0x3},
		{0xE2, effectPatternDelay, 0x2},
		{0x00, effectNone, 0}, // E0: set filter, unmodeled
	}
	for _, c := range cases {
		eff, param := convertMODEffect(0xE, c.param)
		if eff != c.wantEffect || param != c.wantParam {
			t.Errorf("convertMODEffect(0xE, 0x%02X) = (%d,%d), want (%d,%d)", c.param, eff, param, c.wantEffect, c.wantParam)
		}
	}
}

func TestConvertMODEffectSpeedTempoSplit(t *testing.T) {
	if eff, param := convertMODEffect(0xF, 0x1F); eff != effectSetSpeed || param != 0x1F {
		t.Errorf("F1F = (%d,%d), want (effectSetSpeed,0x1F)", eff, param)
	}
	if eff, param := convertMODEffect(0xF, 0x7D); eff != effectSetTempo || param != 0x7D {
		t.Errorf("F7D = (%d,%d), want (effectSetTempo,0x7D)", eff, param)
	}
}

// TestMODNoteTriggerAndSampleEnd covers a C-2 note
// (period 428) on a 64-frame unlooped ramp sample gates the channel off once
// the sample runs out, leaving a positive-RMS lead over the frames it
// actually sounded.
func TestMODNoteTriggerAndSampleEnd(t *testing.T) {
	pitch := periodToPitch(428)
	song := newTestSong(FormatMOD, 2, 1, row(
		note(pitch, 1, effectNone, 0),
		emptyCell,
	))
	song.Samples[1].Data = make([]float32, 64)
	for i := range song.Samples[1].Data {
		song.Samples[1].Data[i] = -1 + 2*float32(i)/63
	}
	song.Samples[1].LoopLen = 0

	seq := newSequencer(song)
	seq.advanceTick() // processes row 0, triggers the note
	for i := range seq.tracks {
		seq.updateHz(&seq.tracks[i])
	}

	if !seq.tracks[0].isOn() {
		t.Fatalf("expected channel 0 to be triggered")
	}

	out := make([]float32, 2000*2)
	seq.mixChannels(out, 2000, 0, 44100, 0)

	if seq.tracks[0].isOn() {
		t.Errorf("expected channel 0 to be gated off after its 64-frame sample ran out")
	}

	var sumSq float64
	for i := 0; i < len(out); i += 2 {
		sumSq += float64(out[i]) * float64(out[i])
	}
	rms := math.Sqrt(sumSq / float64(len(out)/2))
	if rms <= 0 {
		t.Errorf("expected positive left-channel RMS, got %v", rms)
	}
}

func TestMODPatternLoopE6(t *testing.T) {
	// E60 at row 4 sets the loop start, E62 at row 8
	// requests two more passes, so rows 4..8 play three times total before
	// the sequencer proceeds past row 8.
	rows := make([]cell, 9*2)
	pat := pattern{rows: 9, channels: 2, cells: rows}
	for r := 0; r < 9; r++ {
		*pat.at(r, 0) = emptyCell
		*pat.at(r, 1) = emptyCell
	}
	e60, p60 := convertMODEffect(0xE, 0x60)
	*pat.at(4, 0) = cell{Pitch: pitchNone, Volume: noNoteVolume, Effect: e60, Param: p60}
	e62, p62 := convertMODEffect(0xE, 0x62)
	*pat.at(8, 0) = cell{Pitch: pitchNone, Volume: noNoteVolume, Effect: e62, Param: p62}

	song := newTestSong(FormatMOD, 2, 9, rows)
	song.patterns = []pattern{pat}
	seq := newSequencer(song)

	visits := map[int]int{}
	for !seq.ended && len(visits) < 100 {
		visits[seq.row]++
		if visits[seq.row] > 10 {
			break
		}
		advanceToNextRow(seq)
	}

	if visits[4] != 3 || visits[8] != 3 {
		t.Errorf("expected rows 4 and 8 each visited 3 times, got visits=%v", visits)
	}
}
