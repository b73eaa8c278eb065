package tracker

import "math"

const rowsPerPattern = 64

// sequencer drives one Song tick by tick: row advancement, effect dispatch,
// and per-channel track state. The audio output side lives in
// player.go/pipeline.go; dispatch across all four formats runs through the
// single shared effect table in effects.go that every loader translates into.
type sequencer struct {
	song *Song

	speed int
	tempo int

	tick       int
	row        int
	order      int
	orderTable []int // song.Orders, possibly rewritten by a position jump

	globalVolume int

	jumpOrder   int
	jumpPending bool

	breakRow     int
	breakPending bool

	loopPending bool

	patternDelay int

	loopStartRow int // player-level pattern loop (not per-channel)
	loopCount    int

	ended bool

	tracks []track
}

func newSequencer(song *Song) *sequencer {
	s := &sequencer{
		song:         song,
		speed:        song.Speed,
		tempo:        song.Tempo,
		globalVolume: 64,
		orderTable:   song.Orders,
		loopStartRow: -1,
		tracks:       make([]track, song.Channels),
	}
	for i := range s.tracks {
		t := &s.tracks[i]
		t.pan = 128
		t.lastPitch = -1
		if i < len(song.Pan) {
			t.pan = song.Pan[i]
		}
	}
	return s
}

func (s *sequencer) restart() {
	*s = *newSequencer(s.song)
}

func (s *sequencer) setTempo(tempo int) {
	if tempo < 32 {
		tempo = 32
	}
	s.tempo = tempo
}

// samplesPerTick returns how many output frames this tick lasts at the
// given sample rate: (freq<<1 + freq>>1)/tempo, i.e. freq*2.5/tempo.
func (s *sequencer) samplesPerTick(sampleRate int) int {
	return int((int64(sampleRate)<<1 + int64(sampleRate)>>1) / int64(s.tempo))
}

func (s *sequencer) sampleData(t *track) []float32 {
	if t.sampleIdx <= 0 || t.sampleIdx >= len(s.song.Samples) {
		return nil
	}
	return s.song.Samples[t.sampleIdx].Data
}

// advanceTick runs one tick of the song: either a full row (speed ticks
// elapsed) or a mid-row tick-effect pass. Returns false when called after the
// song has already ended (last order's last row passed, not looping); the
// call that reaches the end still returns true.
func (s *sequencer) advanceTick() bool {
	if s.ended {
		return false
	}

	s.tick--
	if s.tick > 0 {
		for i := range s.tracks {
			t := &s.tracks[i]
			s.applyTickEffect(t, t.effect, t.param, s.speed-s.tick)
			s.updateHz(t)
		}
		return true
	}

	s.tick = s.speed
	s.processRow()
	s.advancePosition()
	return true
}

func (s *sequencer) processRow() {
	if s.order < 0 || s.order >= len(s.orderTable) {
		s.ended = true
		return
	}
	patIdx := s.orderTable[s.order]
	if patIdx < 0 || patIdx >= len(s.song.patterns) {
		return
	}
	pat := &s.song.patterns[patIdx]
	if s.row >= pat.rows {
		return
	}

	for ch := 0; ch < s.song.Channels && ch < pat.channels; ch++ {
		t := &s.tracks[ch]
		c := pat.at(s.row, ch)
		t.effectCounter = 0
		t.delayedCell = nil

		if c.Effect == effectNoteDelay && c.Param != 0 {
			cp := *c
			t.delayedCell = &cp
			t.effect, t.param = c.Effect, c.Param
			continue
		}

		s.triggerCell(t, c)
		s.applyRowEffect(t, c.Effect, c.Param)
		s.updateHz(t)
	}
}

// triggerCell applies the non-effect part of a pattern cell: if there's an
// instrument/sample number, reset the volume; if there's a note, restart the
// sample.
//
// For XM/IT, c.Sample is an instrument number rather than a concrete
// sample index; resolveMappedSample translates it (plus the cell's note,
// or the track's last-played note for instrument-only rows) through
// Song.NoteSampleMap first.
func (s *sequencer) triggerCell(t *track, c *cell) {
	t.effect, t.param = c.Effect, c.Param

	sampleIdx := c.Sample
	if s.song.NoteSampleMap != nil {
		sampleIdx = s.resolveMappedSample(c, t)
	}

	if sampleIdx > 0 && sampleIdx < len(s.song.Samples) {
		smp := &s.song.Samples[sampleIdx]
		t.volume = smp.Volume
		if c.Pitch == pitchNone {
			// instrument-only row: retrigger volume/pan without moving the
			// sample position (original_source/MBMP-0.8.0.py), per SPEC_FULL §4.6.
			t.sampleIdx = sampleIdx
			t.pan = smp.Pan
			t.keyedOff = false
		}
	}

	if c.Volume != noNoteVolume {
		applyVolumeColumn(s.song.Type, t, c.Volume)
	}

	switch c.Pitch {
	case pitchNone:
		return
	case pitchCut:
		t.volume = 0
		return
	case pitchOff:
		t.keyedOff = true
		t.volume = 0
		return
	}

	t.lastPitch = c.Pitch

	finetune, c5speed, absPitch := 0, 8363, c.Pitch
	if sampleIdx > 0 && sampleIdx < len(s.song.Samples) {
		smp := &s.song.Samples[sampleIdx]
		finetune = smp.FineTune
		if smp.C5Speed > 0 {
			c5speed = smp.C5Speed
		}
		absPitch = c.Pitch + smp.RelativeNote
	}
	t.fineTune = finetune

	period := periodFromPitch(s.song, absPitch, finetune, c5speed)
	t.basePeriod = period
	t.portaTarget = period

	holdForPorta := t.effect == effectPortaToNote || t.effect == effectPortaVolSlide
	if !holdForPorta {
		t.period = period
		t.samplePos = 0
		t.keyedOff = false
		if sampleIdx > 0 && sampleIdx < len(s.song.Samples) {
			t.sampleIdx = sampleIdx
			t.pan = s.song.Samples[sampleIdx].Pan
		}
	}
}

// resolveMappedSample translates an XM/IT instrument number + note into a
// concrete Song.Samples index via Song.NoteSampleMap.
func (s *sequencer) resolveMappedSample(c *cell, t *track) int {
	if c.Sample <= 0 || c.Sample > len(s.song.NoteSampleMap) {
		return t.sampleIdx
	}
	keymap := s.song.NoteSampleMap[c.Sample-1]
	note := c.Pitch
	if note < 0 || note >= len(keymap) {
		note = t.lastPitch
	}
	if note < 0 || note >= len(keymap) {
		return t.sampleIdx
	}
	return keymap[note]
}

// applyVolumeColumn interprets the pattern's volume-column byte, whose
// range and meaning vary by format (S3M/IT: 0..64 plain volume; XM: 0x10..
// 0x50 volume, 0x60+ a packed mini-effect).
func applyVolumeColumn(format Format, t *track, vol int) {
	if format != FormatXM {
		if vol > 64 {
			vol = 64
		}
		t.volume = vol
		return
	}
	switch {
	case vol >= 0x10 && vol <= 0x50:
		t.volume = vol - 0x10
	case vol >= 0x60 && vol <= 0x6F:
		t.volume -= vol - 0x60
	case vol >= 0x70 && vol <= 0x7F:
		t.volume += vol - 0x70
	case vol >= 0x80 && vol <= 0x8F:
		t.pan = (vol - 0x80) * 17
	case vol >= 0xC0 && vol <= 0xCF:
		t.pan = (vol - 0xC0) * 17
	}
	if t.volume > 64 {
		t.volume = 64
	}
	if t.volume < 0 {
		t.volume = 0
	}
}

func (s *sequencer) advancePosition() {
	if s.patternDelay > 0 {
		s.patternDelay--
		return
	}

	switch {
	case s.loopPending:
		s.row = s.loopStartRow
		s.loopPending = false
	case s.breakPending:
		s.row = s.breakRow
		s.order++
		s.breakPending = false
		s.loopStartRow = -1
	case s.jumpPending:
		s.order = s.jumpOrder
		s.row = 0
		s.jumpPending = false
		s.loopStartRow = -1
	default:
		s.row++
		patIdx := -1
		if s.order >= 0 && s.order < len(s.orderTable) {
			patIdx = s.orderTable[s.order]
		}
		rows := rowsPerPattern
		if patIdx >= 0 && patIdx < len(s.song.patterns) {
			rows = s.song.patterns[patIdx].rows
		}
		if s.row >= rows {
			s.row = 0
			s.order++
			s.loopStartRow = -1
		}
	}

	if s.order >= len(s.orderTable) {
		s.ended = true
	}
}

// applyPatternLoop implements SBx/E6x pattern loop at the player level
// (shared across the row, not per channel).
func (s *sequencer) applyPatternLoop(count int) {
	if count == 0 {
		s.loopStartRow = s.row
		return
	}
	if s.loopCount == 0 {
		s.loopCount = count
	} else {
		s.loopCount--
	}
	if s.loopCount > 0 {
		s.loopPending = true
	} else {
		s.loopStartRow = -1
	}
}

func (s *sequencer) addPeriodSteps(t *track, delta float64) {
	t.period += delta
	if t.period < 1 {
		t.period = 1
	}
}

func (s *sequencer) stepPortaUp(t *track, param byte) {
	s.addPeriodSteps(t, -float64(param)*periodStepMultiplier(s.song))
}

func (s *sequencer) stepPortaDown(t *track, param byte) {
	s.addPeriodSteps(t, float64(param)*periodStepMultiplier(s.song))
}

func (s *sequencer) stepPortaToNote(t *track, param byte) {
	if param > 0 {
		t.portaSpeed = float64(param) * periodStepMultiplier(s.song)
	}
	if t.period < t.portaTarget {
		t.period += t.portaSpeed
		if t.period > t.portaTarget {
			t.period = t.portaTarget
		}
	} else if t.period > t.portaTarget {
		t.period -= t.portaSpeed
		if t.period < t.portaTarget {
			t.period = t.portaTarget
		}
	}
	t.basePeriod = t.period
}

func (s *sequencer) stepVibrato(t *track, param byte) {
	if param&0xF0 != 0 {
		t.vibratoSpeed = int(param >> 4)
	}
	if param&0x0F != 0 {
		t.vibratoDepth = int(param & 0xF)
	}
	depth := t.vibratoDepth
	wave := sineTable[t.vibratoPos&63]
	offset := float64(wave*depth) / 128.0
	t.period = t.basePeriod + offset
	t.vibratoPos += t.vibratoSpeed
}

func (s *sequencer) stepTremolo(t *track, param byte) {
	if param&0xF0 != 0 {
		t.tremoloSpeed = int(param >> 4)
	}
	if param&0x0F != 0 {
		t.tremoloDepth = int(param & 0xF)
	}
	wave := sineTable[t.tremoloPos&63]
	offset := wave * t.tremoloDepth / 64
	v := t.volume + offset
	if v > 64 {
		v = 64
	}
	if v < 0 {
		v = 0
	}
	t.volume = v
	t.tremoloPos += t.tremoloSpeed
}

func (s *sequencer) stepArpeggio(t *track, param byte, tick int) {
	var semis int
	switch tick % 3 {
	case 0:
		semis = 0
	case 1:
		semis = int(param >> 4)
	case 2:
		semis = int(param & 0xF)
	}
	if semis == 0 {
		t.period = t.basePeriod
		return
	}
	if isLinearPeriod(s.song) {
		// Linear period is additive (64 units/semitone, decreasing with
		// pitch), so a semitone shift is a plain subtraction rather than
		// the period-is-1/freq ratio below.
		t.period = t.basePeriod - 64*float64(semis)
		return
	}
	// Every other format/mode's period is proportional to 1/freq, so a
	// semitone shift divides period by the same ratio it would multiply
	// frequency by.
	t.period = t.basePeriod / math.Exp2(float64(semis)/12.0)
}

func (s *sequencer) stepRetrig(t *track, param byte) {
	interval := int(param & 0xF)
	if interval == 0 {
		return
	}
	t.retrigCounter--
	if t.retrigCounter <= 0 {
		t.retrigCounter = interval
		t.samplePos = 0
		switch param >> 4 {
		case 1:
			t.volume--
		case 2:
			t.volume -= 2
		case 3:
			t.volume -= 4
		case 4:
			t.volume -= 8
		case 5:
			t.volume -= 16
		case 6:
			t.volume = t.volume * 2 / 3
		case 7:
			t.volume /= 2
		case 9:
			t.volume++
		case 0xA:
			t.volume += 2
		case 0xB:
			t.volume += 4
		case 0xC:
			t.volume += 8
		case 0xD:
			t.volume += 16
		case 0xE:
			t.volume = t.volume * 3 / 2
		case 0xF:
			t.volume *= 2
		}
		if t.volume > 64 {
			t.volume = 64
		}
		if t.volume < 0 {
			t.volume = 0
		}
	}
}

func (s *sequencer) stepTremor(t *track, param byte) {
	onTicks, offTicks := int(param>>4)+1, int(param&0xF)+1
	cycle := onTicks + offTicks
	pos := t.tremorCounter % cycle
	t.tremorCounter++
	if pos < onTicks {
		t.tremorOn = true
	} else {
		t.tremorOn = false
	}
}

func (s *sequencer) updateHz(t *track) {
	if t.period <= 0 {
		t.hz = 0
		return
	}
	t.hz = hzFromPeriod(s.song, t.period)
}
