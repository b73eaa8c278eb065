package tracker

// Shared effect byte space. Every loader (mod.go, s3m.go, xm.go, it.go)
// translates its own native effect encoding into these constants so
// sequencer.go can dispatch off one table instead of four, avoiding a
// separate effect dispatcher per format.
const (
	effectNone = 0

	effectArpeggio         = 1
	effectPortaUp          = 2
	effectPortaDown        = 3
	effectPortaToNote      = 4
	effectVibrato          = 5
	effectPortaVolSlide    = 6 // tone porta + volume slide combined (MOD 5, S3M 0xC-ish via 7+A)
	effectVibVolSlide      = 7 // vibrato + volume slide combined (MOD 6)
	effectTremolo          = 8
	effectSetPanning       = 9
	effectSampleOffset     = 10
	effectVolumeSlide      = 11
	effectPositionJump     = 12
	effectSetVolume        = 13
	effectPatternBreak     = 14
	effectSetSpeed         = 15
	effectSetTempo         = 16
	effectFinePortaUp      = 17
	effectFinePortaDown    = 18
	effectFineVolSlideUp   = 19
	effectFineVolSlideDown = 20
	effectNoteCut          = 21
	effectNoteDelay        = 22
	effectPatternLoop      = 23
	effectPatternDelay     = 24
	effectRetrigVolSlide   = 25
	effectTremor           = 26
	effectFineVibrato      = 27
	effectSetGlobalVolume  = 28
	effectGlobalVolSlide   = 29
	effectJumpToPattern    = 30 // S3M alias of effectPositionJump kept distinct for convertS3MEffect's 1:1 mapping
	effectKeyOff           = 31
	effectSetEnvPos        = 32 // accepted, no-op: no envelope engine (Non-goal)
	effectPanSlide         = 33
	effectExtraFinePorta   = 34
)

// applyRowEffect handles the "on the row this note triggers" half of an
// effect (speed/tempo changes, position jump, pattern break, volume set,
// sample offset, note cut/delay scheduling, retrigger reset, one-shot fine
// slides). The remainder (per-tick slides) is applyTickEffect below.
func (s *sequencer) applyRowEffect(t *track, effect, param byte) {
	switch effect {
	case effectFineVolSlideUp, effectFineVolSlideDown, effectFinePortaUp, effectFinePortaDown, effectExtraFinePorta:
		s.applyTickEffect(t, effect, param, 0)
	case effectSetSpeed:
		if param > 0 {
			s.speed = int(param)
		}
	case effectSetTempo:
		if param >= 0x20 {
			s.setTempo(int(param))
		}
	case effectPositionJump, effectJumpToPattern:
		s.jumpOrder = int(param)
		s.jumpPending = true
	case effectPatternBreak:
		s.breakRow = int(param>>4)*10 + int(param&0xF)
		s.breakPending = true
	case effectPatternLoop:
		s.applyPatternLoop(int(param))
	case effectPatternDelay:
		s.patternDelay = int(param)
	case effectSetVolume:
		v := int(param)
		if v > 64 {
			v = 64
		}
		t.volume = v
	case effectSetPanning:
		t.pan = int(param) * 255 / 64
		if t.pan > 255 {
			t.pan = 255
		}
	case effectSetGlobalVolume:
		v := int(param)
		if v > 64 {
			v = 64
		}
		s.globalVolume = v
	case effectSampleOffset:
		off := float64(param) * 256
		if off < float64(len(s.sampleData(t))) {
			t.samplePos = off
		}
	case effectNoteCut:
		if param == 0 {
			t.volume = 0
		}
	case effectRetrigVolSlide:
		if param&0xF != 0 {
			t.retrigCounter = int(param & 0xF)
		}
	case effectTremor:
		t.tremorCounter = 0
	case effectKeyOff:
		t.keyedOff = true
		t.volume = 0
	}
}

// applyTickEffect handles the per-tick continuation of an effect on the
// ticks after the row's first: portamento, vibrato, volume slides, tremor,
// retrigger. The one-shot fine slides act only when tick is 0, which is how
// applyRowEffect calls them on the row's first tick.
func (s *sequencer) applyTickEffect(t *track, effect, param byte, tick int) {
	t.effectCounter++

	switch effect {
	case effectPortaUp:
		s.stepPortaUp(t, param)
	case effectPortaDown:
		s.stepPortaDown(t, param)
	case effectPortaToNote:
		s.stepPortaToNote(t, param)
	case effectPortaVolSlide:
		s.stepPortaToNote(t, 0)
		volumeSlide(t, param)
	case effectVibrato:
		s.stepVibrato(t, param)
	case effectVibVolSlide:
		s.stepVibrato(t, 0)
		volumeSlide(t, param)
	case effectFineVibrato:
		s.stepVibrato(t, param)
	case effectTremolo:
		s.stepTremolo(t, param)
	case effectVolumeSlide:
		volumeSlide(t, param)
	case effectFineVolSlideUp:
		if tick == 0 {
			fineVolSlide(t, param, true)
		}
	case effectFineVolSlideDown:
		if tick == 0 {
			fineVolSlide(t, param, false)
		}
	case effectFinePortaUp:
		if tick == 0 {
			s.addPeriodSteps(t, -float64(param)*periodStepMultiplier(s.song))
		}
	case effectFinePortaDown:
		if tick == 0 {
			s.addPeriodSteps(t, float64(param)*periodStepMultiplier(s.song))
		}
	case effectExtraFinePorta:
		if tick == 0 {
			if param>>4 == 1 {
				s.addPeriodSteps(t, -float64(param&0xF))
			} else {
				s.addPeriodSteps(t, float64(param&0xF))
			}
		}
	case effectArpeggio:
		s.stepArpeggio(t, param, tick)
	case effectRetrigVolSlide:
		s.stepRetrig(t, param)
	case effectTremor:
		s.stepTremor(t, param)
	case effectGlobalVolSlide:
		gv := s.globalVolume
		hi, lo := int(param>>4), int(param&0xF)
		if hi > 0 {
			gv += hi
		} else {
			gv -= lo
		}
		if gv > 64 {
			gv = 64
		}
		if gv < 0 {
			gv = 0
		}
		s.globalVolume = gv
	case effectPanSlide:
		hi, lo := int(param>>4), int(param&0xF)
		p := t.pan
		if hi > 0 {
			p += hi * 4
		} else {
			p -= lo * 4
		}
		if p > 255 {
			p = 255
		}
		if p < 0 {
			p = 0
		}
		t.pan = p
	case effectNoteCut:
		if t.effectCounter == int(param) {
			t.volume = 0
		}
	case effectNoteDelay:
		if t.effectCounter == int(param) && t.delayedCell != nil {
			s.triggerCell(t, t.delayedCell)
			t.delayedCell = nil
		}
	}
}

// volumeSlide is the shared Dxy handler: xy>0 raises volume by x, x==0
// lowers it by y.
func volumeSlide(t *track, param byte) {
	hi, lo := int(param>>4), int(param&0xF)
	if hi > 0 {
		t.volume += hi
	} else {
		t.volume -= lo
	}
	if t.volume > 64 {
		t.volume = 64
	}
	if t.volume < 0 {
		t.volume = 0
	}
}

func fineVolSlide(t *track, param byte, up bool) {
	amt := int(param & 0xF)
	if up {
		t.volume += amt
	} else {
		t.volume -= amt
	}
	if t.volume > 64 {
		t.volume = 64
	}
	if t.volume < 0 {
		t.volume = 0
	}
}
