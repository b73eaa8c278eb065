package tracker

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
)

// IT effect letters (1=A..26=Z in the file, matching the S3M convention
// this module already maps through convertS3MEffect's style).
const (
	itfxSetSpeed       = 1  // A
	itfxPositionJump    = 2  // B
	itfxPatternBreak   = 3  // C
	itfxVolumeSlide    = 4  // D
	itfxPortaDown      = 5  // E
	itfxPortaUp        = 6  // F
	itfxTonePortamento = 7  // G
	itfxVibrato        = 8  // H
	itfxTremor         = 9  // I
	itfxArpeggio       = 10 // J
	itfxVibVolSlide    = 11 // K
	itfxPortaVolSlide  = 12 // L
	itfxChannelVolume  = 13 // M (no-op: no per-channel master volume concept kept here)
	itfxChanVolSlide   = 14 // N (folded into volume slide)
	itfxSampleOffset   = 15 // O
	itfxPanSlide       = 16 // P
	itfxRetrigger      = 17 // Q
	itfxTremolo        = 18 // R
	itfxSpecial        = 19 // S
	itfxSetTempo       = 20 // T
	itfxFineVibrato    = 21 // U
	itfxSetGlobalVol   = 22 // V
	itfxGlobalVolSlide = 23 // W
	itfxSetPanning     = 24 // X
)

// LoadIT decodes an Impulse Tracker module. Header, instrument and sample
// block shapes grounded on other_examples/9974f49a_mukunda--modlib__itmod.go
// (IMPM/IMPI/IMPS layout, parapointer tables, envelope-skip approach); the
// mask-memory packed pattern decoder is not present in that reference (it
// stops at raw pattern bytes) and is implemented here from the Impulse
// Tracker format's own description, using the same bytes.Reader idiom as
// mod.go and s3m.go.
func LoadIT(data []byte) (*Song, error) {
	if len(data) < 4 || string(data[0:4]) != "IMPM" {
		return nil, ErrInvalidIT
	}

	r := bytes.NewReader(data)
	r.Seek(4, io.SeekStart)

	titleBytes := make([]byte, 26)
	r.Read(titleBytes)

	var hdr struct {
		_                uint16 // pattern row highlight
		OrderCount       uint16
		InstrumentCount  uint16
		SampleCount      uint16
		PatternCount     uint16
		Cwtv             uint16
		Cmwt             uint16
		Flags            uint16
		Special          uint16
		GlobalVolume     byte
		MixingVolume     byte
		InitialSpeed     byte
		InitialTempo     byte
		Sep              byte
		PWD              byte
		MessageLength    uint16
		MessageOffset    uint32
		_                uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}

	chanPan := make([]byte, 64)
	r.Read(chanPan)
	chanVol := make([]byte, 64)
	r.Read(chanVol)

	song := &Song{
		Type:   FormatIT,
		Title:  strings.TrimRight(string(titleBytes), "\x00"),
		Speed:  int(hdr.InitialSpeed),
		Tempo:  int(hdr.InitialTempo),
		Linear: hdr.Flags&0x8 != 0, // bit 3: linear slides
	}
	if song.Speed == 0 {
		song.Speed = 6
	}
	if song.Tempo == 0 {
		song.Tempo = 125
	}

	channels := 0
	for i := 0; i < 64; i++ {
		if chanPan[i] != 0xFF {
			channels = i + 1
		}
	}
	if channels == 0 {
		channels = 4
	}
	song.Channels = channels

	song.Pan = make([]int, channels)
	for i := 0; i < channels; i++ {
		p := chanPan[i] & 0x7F
		if p > 64 {
			p = 32
		}
		song.Pan[i] = int(p) * 255 / 64
	}

	orders := make([]byte, hdr.OrderCount)
	r.Read(orders)
	song.Orders = make([]int, 0, len(orders))
	for _, o := range orders {
		if o >= 254 {
			continue
		}
		song.Orders = append(song.Orders, int(o))
	}

	instrTable := make([]uint32, hdr.InstrumentCount)
	binary.Read(r, binary.LittleEndian, instrTable)
	sampleTable := make([]uint32, hdr.SampleCount)
	binary.Read(r, binary.LittleEndian, sampleTable)
	patternTable := make([]uint32, hdr.PatternCount)
	binary.Read(r, binary.LittleEndian, patternTable)

	song.Samples = []Sample{{}} // index 0 reserved
	for i := 0; i < int(hdr.SampleCount); i++ {
		r.Seek(int64(sampleTable[i]), io.SeekStart)
		smp, err := readITSample(r)
		if err != nil {
			return nil, err
		}
		song.Samples = append(song.Samples, *smp)
	}

	instUsesNoteMap := hdr.InstrumentCount > 0
	if instUsesNoteMap {
		song.NoteSampleMap = make([][]int, hdr.InstrumentCount)
		for i := 0; i < int(hdr.InstrumentCount); i++ {
			r.Seek(int64(instrTable[i]), io.SeekStart)
			keymap, err := readITInstrument(r)
			if err != nil {
				return nil, err
			}
			song.NoteSampleMap[i] = keymap
		}
	}

	song.patterns = make([]pattern, hdr.PatternCount)
	for i := 0; i < int(hdr.PatternCount); i++ {
		if patternTable[i] == 0 {
			song.patterns[i] = emptyITPattern(64, channels)
			continue
		}
		r.Seek(int64(patternTable[i]), io.SeekStart)
		pat, err := readITPattern(r, channels)
		if err != nil {
			return nil, err
		}
		song.patterns[i] = pat
	}

	return song, nil
}

func readITSample(r *bytes.Reader) (*Sample, error) {
	var hdr struct {
		Magic       [4]byte
		DOSName     [12]byte
		_           byte
		GlobalVol   byte
		Flags       byte
		Volume      byte
		Name        [26]byte
		Convert     byte
		DefaultPan  byte
		Length      uint32
		LoopStart   uint32
		LoopEnd     uint32
		C5Speed     uint32
		SustainStart uint32
		SustainEnd  uint32
		SamplePtr   uint32
		VibSpeed    byte
		VibDepth    byte
		VibRate     byte
		VibForm     byte
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}

	hasSample := hdr.Flags&1 != 0
	bits16 := hdr.Flags&2 != 0
	compressed := hdr.Flags&8 != 0
	loop := hdr.Flags&16 != 0

	vol := int(hdr.Volume)
	if gvl := int(hdr.GlobalVol); gvl < 64 {
		vol = vol * gvl / 64
	}
	if vol > 64 {
		vol = 64
	}

	smp := &Sample{
		Name:      strings.TrimRight(string(hdr.Name[:]), "\x00"),
		Volume:    vol,
		Pan:       int(hdr.DefaultPan&0x7F) * 255 / 64,
		C5Speed:   int(hdr.C5Speed),
		LoopStart: int(hdr.LoopStart),
	}
	if loop {
		smp.LoopLen = int(hdr.LoopEnd) - int(hdr.LoopStart)
	}

	if !hasSample || compressed || hdr.Length == 0 {
		// Compressed samples are not decoded; leave silent.
		return smp, nil
	}

	smp.Data = make([]float32, int(hdr.Length))
	r.Seek(int64(hdr.SamplePtr), io.SeekStart)
	unsignedOffset := hdr.Convert&1 == 0
	if bits16 {
		for i := range smp.Data {
			var v uint16
			if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
				return nil, err
			}
			s := int32(v)
			if unsignedOffset {
				s -= 32768
			} else if s >= 32768 {
				s -= 65536
			}
			smp.Data[i] = float32(s) / 32768.0
		}
	} else {
		raw := make([]byte, len(smp.Data))
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, err
		}
		for i, b := range raw {
			s := int32(b)
			if unsignedOffset {
				s -= 128
			} else if s >= 128 {
				s -= 256
			}
			smp.Data[i] = float32(s) / 128.0
		}
	}

	return smp, nil
}

// readITInstrument reads one IMPI instrument block and returns its
// 120-entry note->sample keymap (NotemapEntry.Sample is 1-based into
// Song.Samples already, so no offset translation is needed here, unlike
// XM's per-instrument-local sample numbering).
func readITInstrument(r *bytes.Reader) ([]int, error) {
	var fixed struct {
		Magic                [4]byte
		DOSFilename          [12]byte
		_                    byte
		NewNoteAction        byte
		DuplicateCheckType   byte
		DuplicateCheckAction byte
		Fadeout              uint16
		PPS                  byte
		PPC                  byte
		GlobalVolume         byte
		DefaultPan           byte
		RandomVolume         byte
		RandomPanning        byte
		TrackerVersion       uint16
		NumSamples           byte
		_                    byte
		Name                 [26]byte
		InitialFilterCutoff  byte
		InitialFilterResonance byte
		MidiChannel          byte
		MidiProgram          byte
		MidiBank             uint16
	}
	if err := binary.Read(r, binary.LittleEndian, &fixed); err != nil {
		return nil, err
	}

	keymap := make([]int, 120)
	for i := 0; i < 120; i++ {
		var entry struct{ Note, Sample byte }
		if err := binary.Read(r, binary.LittleEndian, &entry); err != nil {
			return nil, err
		}
		keymap[i] = int(entry.Sample)
	}
	// Volume/panning/pitch envelopes follow; skip them (Non-goals: no
	// envelope engine), same declared-layout-skip idiom as xm.go.
	for e := 0; e < 3; e++ {
		if err := skipITEnvelope(r); err != nil {
			return nil, err
		}
	}

	return keymap, nil
}

func skipITEnvelope(r *bytes.Reader) error {
	var flags, length, loopStart, loopEnd, sustainStart, sustainEnd byte
	binary.Read(r, binary.LittleEndian, &flags)
	binary.Read(r, binary.LittleEndian, &length)
	binary.Read(r, binary.LittleEndian, &loopStart)
	binary.Read(r, binary.LittleEndian, &loopEnd)
	binary.Read(r, binary.LittleEndian, &sustainStart)
	binary.Read(r, binary.LittleEndian, &sustainEnd)
	// 25 nodes of (y byte, x uint16) plus one trailing reserved byte.
	_, err := r.Seek(25*3+1, io.SeekCurrent)
	return err
}

// emptyITPattern allocates a pattern with every cell defaulted to "no note",
// as every channel in an unvisited (row, channel) pair should read. Both IT
// pattern sources need this: a declared-empty pattern slot, and the sparse
// mask-memory decode below, which (like s3m.go's packed rows) only ever
// visits cells the byte stream actually encodes.
func emptyITPattern(rows, channels int) pattern {
	pat := newPattern(rows, channels)
	for i := range pat.cells {
		pat.cells[i].Pitch = pitchNone
		pat.cells[i].Volume = noNoteVolume
	}
	return pat
}

// readITPattern decodes one packed IT pattern using the format's
// mask-memory row encoding: each channel byte's top bit signals a new mask
// byte follows; the mask's low nibble selects which of note/instrument/
// volume/command are present this cell, its high nibble which were simply
// repeated from the channel's last cell.
func readITPattern(r *bytes.Reader, channels int) (pattern, error) {
	var dataLength, numRows uint16
	binary.Read(r, binary.LittleEndian, &dataLength)
	binary.Read(r, binary.LittleEndian, &numRows)
	r.Seek(4, io.SeekCurrent) // reserved

	packed := make([]byte, dataLength)
	if _, err := io.ReadFull(r, packed); err != nil {
		return pattern{}, err
	}

	rows := int(numRows)
	if rows == 0 {
		rows = 64
	}
	pat := emptyITPattern(rows, channels)

	lastMask := make([]byte, 64)
	lastNote := make([]byte, 64)
	lastInstr := make([]byte, 64)
	lastVolPan := make([]byte, 64)
	lastCmd := make([]byte, 64)
	lastCmdVal := make([]byte, 64)

	pos, row := 0, 0
	for row < rows && pos < len(packed) {
		b := packed[pos]
		pos++
		if b == 0 {
			row++
			continue
		}

		chn := int((b - 1) & 63)
		var mask byte
		if b&0x80 != 0 {
			if pos >= len(packed) {
				break
			}
			mask = packed[pos]
			pos++
			lastMask[chn] = mask
		} else {
			mask = lastMask[chn]
		}

		var c *cell
		if chn < channels {
			c = pat.at(row, chn)
		}

		if mask&1 != 0 {
			lastNote[chn] = packed[pos]
			pos++
			if c != nil {
				setITNote(c, lastNote[chn])
			}
		} else if mask&0x10 != 0 && c != nil {
			setITNote(c, lastNote[chn])
		} else if c != nil {
			c.Pitch = pitchNone
		}

		if mask&2 != 0 {
			lastInstr[chn] = packed[pos]
			pos++
			if c != nil {
				c.Sample = int(lastInstr[chn])
			}
		} else if mask&0x20 != 0 && c != nil {
			c.Sample = int(lastInstr[chn])
		}

		if mask&4 != 0 {
			lastVolPan[chn] = packed[pos]
			pos++
			if c != nil {
				setITVolPan(c, lastVolPan[chn])
			}
		} else if mask&0x40 != 0 && c != nil {
			setITVolPan(c, lastVolPan[chn])
		} else if c != nil {
			c.Volume = noNoteVolume
		}

		if mask&8 != 0 {
			lastCmd[chn] = packed[pos]
			lastCmdVal[chn] = packed[pos+1]
			pos += 2
			if c != nil {
				c.Effect, c.Param = convertITEffect(lastCmd[chn], lastCmdVal[chn])
			}
		} else if mask&0x80 != 0 && c != nil {
			c.Effect, c.Param = convertITEffect(lastCmd[chn], lastCmdVal[chn])
		}
	}

	return pat, nil
}

func setITNote(c *cell, note byte) {
	switch {
	case note == 255:
		c.Pitch = pitchOff
	case note == 254:
		c.Pitch = pitchCut
	case note > 119:
		c.Pitch = pitchNone
	default:
		c.Pitch = int(note)
	}
}

func setITVolPan(c *cell, vp byte) {
	switch {
	case vp <= 64:
		c.Volume = int(vp)
	default:
		c.Volume = noNoteVolume
	}
}

func convertITEffect(cmd, param byte) (byte, byte) {
	switch cmd {
	case itfxSetSpeed:
		return effectSetSpeed, param
	case itfxPositionJump:
		return effectPositionJump, param
	case itfxPatternBreak:
		return effectPatternBreak, param
	case itfxVolumeSlide, itfxChanVolSlide:
		return effectVolumeSlide, param
	case itfxPortaDown:
		switch param >> 4 {
		case 0xF: // EFx: extra-fine, one-shot, 1/4 the EEx unit
			return effectExtraFinePorta, 0x20 | (param & 0xF)
		case 0xE: // EEx: fine, one-shot
			return effectFinePortaDown, param & 0xF
		default:
			return effectPortaDown, param
		}
	case itfxPortaUp:
		switch param >> 4 {
		case 0xF: // FFx: extra-fine, one-shot, 1/4 the FEx unit
			return effectExtraFinePorta, 0x10 | (param & 0xF)
		case 0xE: // FEx: fine, one-shot
			return effectFinePortaUp, param & 0xF
		default:
			return effectPortaUp, param
		}
	case itfxTonePortamento:
		return effectPortaToNote, param
	case itfxVibrato:
		return effectVibrato, param
	case itfxTremor:
		return effectTremor, param
	case itfxArpeggio:
		return effectArpeggio, param
	case itfxVibVolSlide:
		return effectVibVolSlide, param
	case itfxPortaVolSlide:
		return effectPortaVolSlide, param
	case itfxSampleOffset:
		return effectSampleOffset, param
	case itfxPanSlide:
		return effectPanSlide, param
	case itfxRetrigger:
		return effectRetrigVolSlide, param
	case itfxTremolo:
		return effectTremolo, param
	case itfxSetTempo:
		return effectSetTempo, param
	case itfxFineVibrato:
		return effectFineVibrato, param
	case itfxSetGlobalVol:
		return effectSetGlobalVolume, param
	case itfxGlobalVolSlide:
		return effectGlobalVolSlide, param
	case itfxSetPanning:
		return effectSetPanning, param
	case itfxSpecial:
		switch param >> 4 {
		case 0xB:
			return effectPatternLoop, param & 0xF
		case 0xC:
			return effectNoteCut, param & 0xF
		case 0xD:
			return effectNoteDelay, param & 0xF
		case 0xE:
			return effectPatternDelay, param & 0xF
		case 0x8:
			return effectKeyOff, 0
		}
	}
	return effectNone, param
}
