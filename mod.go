package tracker

import (
	"bytes"
	"encoding/binary"
	"strings"
)

const modRowsPerPattern = 64

// LoadMOD decodes a ProTracker-family MOD file.
func LoadMOD(data []byte) (*Song, error) {
	if len(data) < 1084 {
		return nil, ErrUnrecognizedMOD
	}

	channels, nSamples, hasTag := modChannelsAndSampleCount(data)
	if !hasTag {
		nSamples = 15
		channels = 4
	}

	song := &Song{
		Type:     FormatMOD,
		Speed:    6,
		Tempo:    125,
		Channels: channels,
		Samples:  make([]Sample, nSamples+1), // index 0 reserved
	}

	r := bytes.NewReader(data)
	title := make([]byte, 20)
	r.Read(title)
	song.Title = strings.TrimRight(string(title), "\x00")

	for i := 1; i <= nSamples; i++ {
		smp, err := readMODSampleHeader(r)
		if err != nil {
			return nil, err
		}
		song.Samples[i] = *smp
	}

	var ordHdr struct {
		NumOrders uint8
		_         uint8
		OrderData [128]byte
	}
	if err := binary.Read(r, binary.BigEndian, &ordHdr); err != nil {
		return nil, err
	}
	numOrders := int(ordHdr.NumOrders)
	if numOrders > 128 {
		numOrders = 128
	}

	maxPattern := 0
	for i := 0; i < 128; i++ {
		if int(ordHdr.OrderData[i]) > maxPattern {
			maxPattern = int(ordHdr.OrderData[i])
		}
	}
	numPatterns := maxPattern + 1

	song.Orders = make([]int, 0, numOrders)
	for i := 0; i < numOrders; i++ {
		if ordHdr.OrderData[i] >= 254 {
			continue
		}
		song.Orders = append(song.Orders, int(ordHdr.OrderData[i]))
	}

	if hasTag {
		tag := make([]byte, 4)
		r.Read(tag) // modChannelsAndSampleCount only peeked at it; skip over it here
	}

	song.patterns = make([]pattern, numPatterns)
	scratch := make([]byte, modRowsPerPattern*channels*4)
	for p := 0; p < numPatterns; p++ {
		pat := newPattern(modRowsPerPattern, channels)
		n, _ := r.Read(scratch)
		for n < len(scratch) {
			scratch[n] = 0
			n++
		}
		for row := 0; row < modRowsPerPattern; row++ {
			for ch := 0; ch < channels; ch++ {
				off := (row*channels + ch) * 4
				b := scratch[off : off+4]
				sampNum := int(b[0]&0xF0) | int(b[2]>>4)
				period := int(b[0]&0x0F)<<8 | int(b[1])
				c := pat.at(row, ch)
				c.Sample = sampNum
				if period > 0 {
					c.Pitch = periodToPitch(period)
				} else {
					c.Pitch = pitchNone
				}
				c.Volume = noNoteVolume
				c.Effect, c.Param = convertMODEffect(b[2]&0x0F, b[3])
			}
		}
		song.patterns[p] = pat
	}

	for i := 1; i <= nSamples; i++ {
		n := len(song.Samples[i].Data)
		if n == 0 {
			continue
		}
		raw := make([]int8, n)
		avail := r.Len()
		toRead := n
		if toRead > avail {
			toRead = avail
		}
		binary.Read(r, binary.LittleEndian, raw[:toRead])
		for j := 0; j < toRead; j++ {
			song.Samples[i].Data[j] = float32(raw[j]) / 128.0
		}
		for j := toRead; j < n; j++ {
			song.Samples[i].Data[j] = 0
		}
	}

	song.Pan = make([]int, channels)
	for i := 0; i < channels; i++ {
		switch i & 3 {
		case 0, 3:
			song.Pan[i] = 0
		default:
			song.Pan[i] = 255
		}
	}

	return song, nil
}

// modChannelsAndSampleCount peeks the signature at offset 1080 (valid only
// when the file carries 31 sample headers) to decide the channel count.
// hasTag is false for the old 15-sample format, which carries no signature
// at all; the caller then assumes 4 channels.
func modChannelsAndSampleCount(data []byte) (channels, nSamples int, hasTag bool) {
	tag := data[1080:1084]
	if ch, ok := parseMODTag(tag); ok {
		return ch, 31, true
	}
	return 4, 15, false
}

func parseMODTag(tag []byte) (int, bool) {
	switch string(tag) {
	case "M.K.", "M!K!", "FLT4":
		return 4, true
	case "2CHN":
		return 2, true
	case "4CHN":
		return 4, true
	case "6CHN":
		return 6, true
	case "8CHN", "FLT8":
		return 8, true
	}
	isDigit := func(b byte) bool { return b >= '0' && b <= '9' }
	// NNCH: two decimal digits followed by "CH"
	if tag[2] == 'C' && tag[3] == 'H' && isDigit(tag[0]) && isDigit(tag[1]) {
		return int(tag[0]-'0')*10 + int(tag[1]-'0'), true
	}
	// NCHN: one decimal digit followed by "CHN"
	if isDigit(tag[0]) && tag[1] == 'C' && tag[2] == 'H' && tag[3] == 'N' {
		return int(tag[0] - '0'), true
	}
	return 0, false
}

// convertMODEffect maps a MOD pattern cell's raw effect nibble (0x0-0xF) and
// param onto the shared effects.go constants sequencer.go dispatches
// against. effects.go's 1..0xD constants are deliberately numbered one past
// their MOD nibble (effectArpeggio=1 for raw 0, effectPatternBreak=14 for
// raw 0xD, ...) so most of this is a plain +1; only the 0xE extended-effect
// family and 0xF's param-dependent speed/tempo split need real dispatch.
func convertMODEffect(effect, param byte) (byte, byte) {
	switch effect {
	case 0xE:
		sub, subParam := param>>4, param&0xF
		switch sub {
		case 0x1:
			return effectFinePortaUp, subParam
		case 0x2:
			return effectFinePortaDown, subParam
		case 0x6:
			return effectPatternLoop, subParam
		case 0x8:
			return effectSetPanning, byte(int(subParam) * 64 / 15)
		case 0x9:
			return effectRetrigVolSlide, subParam
		case 0xA:
			return effectFineVolSlideUp, subParam
		case 0xB:
			return effectFineVolSlideDown, subParam
		case 0xC:
			return effectNoteCut, subParam
		case 0xD:
			return effectNoteDelay, subParam
		case 0xE:
			return effectPatternDelay, subParam
		default:
			// E0 (filter), E3 (glissando), E4 (vibrato waveform), E5 (set
			// finetune), E7 (tremolo waveform), EF (invert loop): no engine
			// models these (Non-goal), accepted as no-ops.
			return effectNone, 0
		}
	case 0xF:
		if param < 0x20 {
			return effectSetSpeed, param
		}
		return effectSetTempo, param
	default:
		return effect + 1, param
	}
}

func readMODSampleHeader(r *bytes.Reader) (*Sample, error) {
	var data struct {
		Name      [22]byte
		Length    uint16
		FineTune  uint8
		Volume    uint8
		LoopStart uint16
		LoopLen   uint16
	}
	if err := binary.Read(r, binary.BigEndian, &data); err != nil {
		return nil, err
	}

	ft := int(data.FineTune & 0x0F)
	if ft > 7 {
		ft -= 16
	}

	smp := &Sample{
		Name:      strings.TrimRight(string(data.Name[:]), "\x00"),
		Volume:    int(data.Volume),
		Pan:       128,
		FineTune:  ft,
		LoopStart: int(data.LoopStart) * 2,
		LoopLen:   int(data.LoopLen) * 2,
	}
	if smp.LoopLen <= 2 {
		smp.LoopLen = 0
	}
	if smp.LoopStart+smp.LoopLen > int(data.Length)*2 {
		dx := smp.LoopStart + smp.LoopLen - int(data.Length)*2
		smp.LoopStart -= dx
		if smp.LoopStart < 0 {
			smp.LoopStart = 0
		}
	}
	smp.Data = make([]float32, int(data.Length)*2)

	return smp, nil
}
