package tracker

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
)

// XM effect letters (0..35, base-36 in trackers' own UI, raw byte value in
// the file).
const (
	xmfxArpeggio        = 0x00
	xmfxPortaUp         = 0x01
	xmfxPortaDown       = 0x02
	xmfxPortaToNote     = 0x03
	xmfxVibrato         = 0x04
	xmfxPortaVolSlide    = 0x05
	xmfxVibVolSlide     = 0x06
	xmfxTremolo         = 0x07
	xmfxSetPanning      = 0x08
	xmfxSampleOffset    = 0x09
	xmfxVolumeSlide     = 0x0A
	xmfxPositionJump    = 0x0B
	xmfxSetVolume       = 0x0C
	xmfxPatternBreak    = 0x0D
	xmfxExtended        = 0x0E
	xmfxSetTempo        = 0x0F // also BPM, split by param value
	xmfxSetGlobalVol    = 0x10
	xmfxGlobalVolSlide  = 0x11
	xmfxKeyOff          = 0x14
	xmfxPanSlide        = 0x19
	xmfxRetrig          = 0x1B
	xmfxTremor          = 0x1D
	xmfxExtraFinePorta  = 0x21
)

// LoadXM decodes a FastTracker 2 module. Grounded on the header/pattern
// shapes of other_examples/b82b2bc8_peakle-xm__stream.go and on the de
// facto XM file format, using the same manual bytes.Reader/encoding/binary
// idiom as mod.go and s3m.go rather than that repo's struct-tag-driven
// style. Envelope/vibrato-on-instrument data is read (via each block's own
// declared size, the same "trust the parapointer" idiom s3m.go uses for its
// instrument/pattern offsets) but not interpreted: no envelope engine.
func LoadXM(data []byte) (*Song, error) {
	if len(data) < 60 || string(data[0:17]) != "Extended Module: " {
		return nil, ErrInvalidXM
	}

	r := bytes.NewReader(data)
	r.Seek(17, io.SeekStart)

	name := make([]byte, 20)
	r.Read(name)
	r.Seek(1, io.SeekCurrent) // 0x1A marker
	trackerName := make([]byte, 20)
	r.Read(trackerName)

	var version uint16
	binary.Read(r, binary.LittleEndian, &version)

	var hdr struct {
		HeaderSize     uint32
		SongLength     uint16
		RestartPos     uint16
		NumChannels    uint16
		NumPatterns    uint16
		NumInstruments uint16
		Flags          uint16
		DefaultTempo   uint16
		DefaultBPM     uint16
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}
	orderTable := make([]byte, 256)
	r.Read(orderTable)

	song := &Song{
		Type:     FormatXM,
		Title:    strings.TrimRight(string(name), "\x00"),
		Channels: int(hdr.NumChannels),
		Speed:    int(hdr.DefaultTempo),
		Tempo:    int(hdr.DefaultBPM),
		Linear:   hdr.Flags&1 == 1,
	}
	if song.Speed == 0 {
		song.Speed = 6
	}
	if song.Tempo == 0 {
		song.Tempo = 125
	}

	song.Orders = make([]int, 0, hdr.SongLength)
	for i := 0; i < int(hdr.SongLength) && i < 256; i++ {
		if orderTable[i] >= 254 {
			continue
		}
		song.Orders = append(song.Orders, int(orderTable[i]))
	}

	song.patterns = make([]pattern, hdr.NumPatterns)
	for i := 0; i < int(hdr.NumPatterns); i++ {
		pat, err := readXMPattern(r, song.Channels)
		if err != nil {
			return nil, err
		}
		song.patterns[i] = pat
	}

	song.Samples = []Sample{{}} // index 0 reserved
	song.NoteSampleMap = make([][]int, hdr.NumInstruments)

	for i := 0; i < int(hdr.NumInstruments); i++ {
		if err := readXMInstrument(r, song, i); err != nil {
			return nil, err
		}
	}

	song.Pan = make([]int, song.Channels)
	for i := range song.Pan {
		song.Pan[i] = 128
	}

	return song, nil
}

func readXMPattern(r *bytes.Reader, channels int) (pattern, error) {
	var hdr struct {
		HeaderLength uint32
		PackingType  byte
		NumRows      uint16
		DataSize     uint16
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return pattern{}, err
	}
	// HeaderLength (9 on every known XM) may exceed the struct we read;
	// seek to the declared end rather than assume.
	if extra := int64(hdr.HeaderLength) - 9; extra > 0 {
		r.Seek(extra, io.SeekCurrent)
	}

	rows := int(hdr.NumRows)
	if rows == 0 {
		rows = 64
	}
	pat := newPattern(rows, channels)
	for i := range pat.cells {
		pat.cells[i].Pitch = pitchNone
		pat.cells[i].Volume = noNoteVolume
	}

	if hdr.DataSize == 0 {
		return pat, nil
	}

	packed := make([]byte, hdr.DataSize)
	if _, err := io.ReadFull(r, packed); err != nil {
		return pattern{}, err
	}

	pos := 0
	for row := 0; row < rows; row++ {
		for ch := 0; ch < channels; ch++ {
			if pos >= len(packed) {
				break
			}
			c := pat.at(row, ch)
			c.Pitch = pitchNone
			c.Volume = noNoteVolume

			b := packed[pos]
			var note, instr, vol, fx, fxParam byte
			if b&0x80 != 0 {
				pos++
				if b&0x01 != 0 {
					note = packed[pos]
					pos++
				}
				if b&0x02 != 0 {
					instr = packed[pos]
					pos++
				}
				if b&0x04 != 0 {
					vol = packed[pos]
					pos++
				}
				if b&0x08 != 0 {
					fx = packed[pos]
					pos++
				}
				if b&0x10 != 0 {
					fxParam = packed[pos]
					pos++
				}
			} else {
				note = b
				instr = packed[pos+1]
				vol = packed[pos+2]
				fx = packed[pos+3]
				fxParam = packed[pos+4]
				pos += 5
			}

			switch {
			case note == 0:
				// no note
			case note == 97:
				c.Pitch = pitchOff
			default:
				c.Pitch = int(note) - 1
			}
			c.Sample = int(instr)
			if vol != 0 {
				c.Volume = int(vol)
			}
			c.Effect, c.Param = convertXMEffect(fx, fxParam)
		}
	}

	return pat, nil
}

// readXMInstrument reads one instrument block (header, per-note sample
// keymap, envelope data it doesn't interpret, every sample's header, then
// every sample's PCM data in order) and records instIdx's keymap in
// song.NoteSampleMap.
func readXMInstrument(r *bytes.Reader, song *Song, instIdx int) error {
	start, _ := r.Seek(0, io.SeekCurrent)

	var instSize uint32
	if err := binary.Read(r, binary.LittleEndian, &instSize); err != nil {
		return err
	}
	var name [22]byte
	r.Read(name[:])
	var instType byte
	binary.Read(r, binary.LittleEndian, &instType)
	var numSamples uint16
	binary.Read(r, binary.LittleEndian, &numSamples)

	keymap := make([]int, 96)
	song.NoteSampleMap[instIdx] = keymap

	if numSamples > 0 {
		var sampleHeaderSize uint32
		binary.Read(r, binary.LittleEndian, &sampleHeaderSize)

		var noteMap [96]byte
		r.Read(noteMap[:])

		// Envelope points, loop/sustain markers, vibrato settings, fadeout
		// and reserved bytes fill the rest of the instrument header, whose
		// declared length is instSize; skip to its end, no envelope engine
		// (Non-goals). The sample headers start there.
		r.Seek(start+int64(instSize), io.SeekStart)

		baseIdx := len(song.Samples)
		for i := 0; i < 96; i++ {
			keymap[i] = baseIdx + int(noteMap[i])
		}

		sampleHeaders := make([]Sample, numSamples)
		sixteenBit := make([]bool, numSamples)
		for i := 0; i < int(numSamples); i++ {
			smp, wide, err := readXMSampleHeader(r)
			if err != nil {
				return err
			}
			sampleHeaders[i] = *smp
			sixteenBit[i] = wide
		}
		for i := range sampleHeaders {
			if err := readXMDeltaPCM(r, &sampleHeaders[i], sixteenBit[i]); err != nil {
				return err
			}
			song.Samples = append(song.Samples, sampleHeaders[i])
		}
	}

	// Defensive: some writers pad the instrument block past what the fixed
	// fields above account for; honor the declared size if it's longer.
	consumed, _ := r.Seek(0, io.SeekCurrent)
	if declared := start + int64(instSize); declared > consumed {
		r.Seek(declared, io.SeekStart)
	}
	return nil
}

// readXMSampleHeader reads one sample header. The returned bool reports
// whether the sample is 16-bit (Type bit 4), which readXMDeltaPCM needs
// later to know how many bytes to consume per frame.
func readXMSampleHeader(r *bytes.Reader) (*Sample, bool, error) {
	var data struct {
		Length       uint32
		LoopStart    uint32
		LoopLength   uint32
		Volume       byte
		FineTune     int8
		Type         byte
		Panning      byte
		RelativeNote int8
		_            byte
		Name         [22]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &data); err != nil {
		return nil, false, err
	}

	wide := data.Type&0x10 != 0
	frames := int(data.Length)
	loopStart := int(data.LoopStart)
	loopLen := 0
	if data.Type&0x3 != 0 {
		loopLen = int(data.LoopLength)
	}
	if wide {
		frames /= 2
		loopStart /= 2
		loopLen /= 2
	}

	smp := &Sample{
		Name:         strings.TrimRight(string(data.Name[:]), "\x00"),
		Volume:       int(data.Volume),
		Pan:          int(data.Panning),
		FineTune:     int(data.FineTune),
		RelativeNote: int(data.RelativeNote),
		LoopStart:    loopStart,
		LoopLen:      loopLen,
		Data:         make([]float32, frames),
	}
	return smp, wide, nil
}

// readXMDeltaPCM reads delta-encoded signed PCM (8- or 16-bit) into an
// already-sized Sample.Data.
func readXMDeltaPCM(r *bytes.Reader, smp *Sample, sixteenBit bool) error {
	n := len(smp.Data)
	if n == 0 {
		return nil
	}
	if sixteenBit {
		old := int16(0)
		for i := 0; i < n; i++ {
			var d int16
			if err := binary.Read(r, binary.LittleEndian, &d); err != nil {
				return err
			}
			old += d
			smp.Data[i] = float32(old) / 32768.0
		}
		return nil
	}
	old := int8(0)
	for i := 0; i < n; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		old += int8(b)
		smp.Data[i] = float32(old) / 128.0
	}
	return nil
}

func convertXMEffect(fx, param byte) (byte, byte) {
	switch fx {
	case xmfxArpeggio:
		return effectArpeggio, param
	case xmfxPortaUp:
		return effectPortaUp, param
	case xmfxPortaDown:
		return effectPortaDown, param
	case xmfxPortaToNote:
		return effectPortaToNote, param
	case xmfxVibrato:
		return effectVibrato, param
	case xmfxPortaVolSlide:
		return effectPortaVolSlide, param
	case xmfxVibVolSlide:
		return effectVibVolSlide, param
	case xmfxTremolo:
		return effectTremolo, param
	case xmfxSetPanning:
		// effectSetPanning's shared handler expects a 0..64 value (S3M/IT's
		// native panning range) and rescales to 0..255 itself; XM's 8xx is
		// already a full 0..255 byte, so rescale down before handing it off.
		return effectSetPanning, byte(int(param) * 64 / 255)
	case xmfxSampleOffset:
		return effectSampleOffset, param
	case xmfxVolumeSlide:
		return effectVolumeSlide, param
	case xmfxPositionJump:
		return effectPositionJump, param
	case xmfxSetVolume:
		return effectSetVolume, param
	case xmfxPatternBreak:
		return effectPatternBreak, param
	case xmfxSetGlobalVol:
		return effectSetGlobalVolume, param
	case xmfxGlobalVolSlide:
		return effectGlobalVolSlide, param
	case xmfxKeyOff:
		return effectKeyOff, param
	case xmfxPanSlide:
		return effectPanSlide, param
	case xmfxRetrig:
		return effectRetrigVolSlide, param
	case xmfxTremor:
		return effectTremor, param
	case xmfxExtraFinePorta:
		return effectExtraFinePorta, param
	case xmfxSetTempo:
		if param >= 0x20 {
			return effectSetTempo, param
		}
		return effectSetSpeed, param
	case xmfxExtended:
		switch param >> 4 {
		case 0x1:
			return effectFinePortaUp, param & 0xF
		case 0x2:
			return effectFinePortaDown, param & 0xF
		case 0x6:
			return effectPatternLoop, param & 0xF
		case 0x9:
			return effectRetrigVolSlide, param & 0xF
		case 0xA:
			return effectFineVolSlideUp, param & 0xF
		case 0xB:
			return effectFineVolSlideDown, param & 0xF
		case 0xC:
			return effectNoteCut, param & 0xF
		case 0xD:
			return effectNoteDelay, param & 0xF
		case 0xE:
			return effectPatternDelay, param & 0xF
		}
	}
	return effectNone, param
}
