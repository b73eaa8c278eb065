package tracker

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// S3M effect letters (A..Z map to 1..26 in the packed pattern byte).
const (
	s3mfxSetSpeed       = 0x01
	s3mfxPatternJump    = 0x02
	s3mfxPatternBreak   = 0x03
	s3mfxVolumeSlide    = 0x04
	s3mfxPortaDown      = 0x05
	s3mfxPortaUp        = 0x06
	s3mfxTonePortamento = 0x07
	s3mfxVibrato        = 0x08
	s3mfxTremor         = 0x09
	s3mfxArpeggio       = 0x0A
	s3mfxVibVolSlide    = 0x0B
	s3mfxPortaVolSlide  = 0x0C
	s3mfxSetSampleOff   = 0x0F
	s3mfxRetrigVolSlide = 0x11
	s3mfxTremolo        = 0x12
	s3mfxSpecial        = 0x13
	s3mfxSetTempo       = 0x14
	s3mfxFineVibrato    = 0x15
	s3mfxSetGlobalVol   = 0x16
)

// LoadS3M decodes a Scream Tracker 3 module.
func LoadS3M(data []byte) (*Song, error) {
	if len(data) < 48 || string(data[44:48]) != "SCRM" {
		return nil, ErrInvalidS3M
	}

	song := &Song{Type: FormatS3M}
	buf := bytes.NewReader(data)

	titleBytes := make([]byte, 28)
	if _, err := buf.Read(titleBytes); err != nil {
		return nil, err
	}
	song.Title = strings.TrimRight(string(titleBytes), "\x00")

	var header struct {
		Pad             byte
		Filetype        byte
		_               uint16
		OrderCount      uint16
		NumInstruments  uint16
		NumPatterns     uint16
		Flags           uint16
		Tracker         uint16
		SampleFormat    uint16
		_               [4]byte // 'SCRM'
		Volume          uint8
		Speed           uint8
		Tempo           uint8
		MastVolume      uint8
		_               uint8
		Panning         uint8
		_               [8]byte
		_               [2]byte
		ChannelSettings [32]byte
	}
	if err := binary.Read(buf, binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	song.Speed = int(header.Speed)
	song.Tempo = int(header.Tempo)

	nc := 0
	for ; nc < 32; nc++ {
		if header.ChannelSettings[nc] == 255 {
			break
		}
	}
	song.Channels = nc

	orders := make([]byte, header.OrderCount)
	if _, err := buf.Read(orders); err != nil {
		return nil, err
	}
	song.Orders = make([]int, 0, len(orders))
	for _, pat := range orders {
		if pat == 255 {
			break
		}
		if pat >= 254 {
			continue
		}
		song.Orders = append(song.Orders, int(pat))
	}

	paras := make([]uint16, int(header.NumInstruments)+int(header.NumPatterns))
	if err := binary.Read(buf, binary.LittleEndian, paras); err != nil {
		return nil, err
	}

	song.Samples = make([]Sample, int(header.NumInstruments)+1) // index 0 reserved
	for i := 0; i < int(header.NumInstruments); i++ {
		if _, err := buf.Seek(int64(paras[i])*16, io.SeekStart); err != nil {
			return nil, err
		}
		var instHeader struct {
			Type         byte
			Filename     [12]byte
			MemSegHi     byte
			MemSegLo     uint16
			SampleLength uint32
			LoopBegin    uint32
			LoopEnd      uint32
			Volume       byte
			_            byte
			Packing      byte
			Flags        byte
			C2Speed      uint32
			_            [12]byte
			Name         [28]byte
			Scrs         [4]byte
		}
		if err := binary.Read(buf, binary.LittleEndian, &instHeader); err != nil {
			return nil, err
		}
		if instHeader.Type > 1 {
			continue // non-sample instrument type (e.g. adlib); leave empty
		}
		if instHeader.Flags&4 == 4 {
			return nil, fmt.Errorf("tracker: 16-bit S3M samples not supported: %w", ErrInvalidS3M)
		}

		length := int(instHeader.SampleLength)
		loopLen := 0
		if instHeader.Flags&1 == 1 && int(instHeader.LoopEnd) > int(instHeader.LoopBegin) {
			loopLen = int(instHeader.LoopEnd) - int(instHeader.LoopBegin)
		}
		sample := Sample{
			Name:      strings.TrimRight(string(instHeader.Name[:]), "\x00"),
			Volume:    int(instHeader.Volume),
			Pan:       128,
			C5Speed:   int(instHeader.C2Speed),
			LoopStart: int(instHeader.LoopBegin),
			LoopLen:   loopLen,
			Data:      make([]float32, length),
		}

		if length > 0 {
			dataOffset := (uint(instHeader.MemSegHi)<<16 | uint(instHeader.MemSegLo)) * 16
			if _, err := buf.Seek(int64(dataOffset), io.SeekStart); err != nil {
				return nil, err
			}
			raw := make([]byte, length)
			if _, err := io.ReadFull(buf, raw); err != nil {
				return nil, err
			}
			unsigned := instHeader.Flags&4 == 0 && instHeader.Packing == 0
			for j, b := range raw {
				var s int8
				if unsigned {
					s = int8(b ^ 128)
				} else {
					s = int8(b)
				}
				sample.Data[j] = float32(s) / 128.0
			}
		}

		song.Samples[i+1] = sample
	}

	song.patterns = make([]pattern, header.NumPatterns)
	for i := 0; i < int(header.NumPatterns); i++ {
		if _, err := buf.Seek(int64(paras[int(header.NumInstruments)+i])*16, io.SeekStart); err != nil {
			return nil, err
		}

		var packedLen uint16
		if err := binary.Read(buf, binary.LittleEndian, &packedLen); err != nil {
			return nil, err
		}
		if packedLen >= 2 {
			packedLen -= 2
		}

		pat := newPattern(64, song.Channels)
		for i := range pat.cells {
			pat.cells[i].Pitch = pitchNone
			pat.cells[i].Volume = noNoteVolume
		}

		row := 0
		for packedLen > 0 && row < 64 {
			b, err := buf.ReadByte()
			if err != nil {
				return nil, err
			}
			packedLen--
			if b == 0 {
				row++
				continue
			}

			chn := int(b & 31)
			if chn >= song.Channels {
				skip := []int64{0, 2, 1, 3, 2, 4, 3, 5}[b>>5]
				buf.Seek(skip, io.SeekCurrent)
				packedLen -= uint16(skip)
				continue
			}

			c := pat.at(row, chn)
			c.Pitch = pitchNone
			c.Volume = noNoteVolume

			if b&32 == 32 {
				noter, _ := buf.ReadByte()
				instr, _ := buf.ReadByte()
				packedLen -= 2
				switch {
				case noter == 255:
					// instrument-only cell: no new pitch; the sequencer resets
				// volume/pan from the instrument without restarting the sample
				case noter == 254:
					c.Pitch = pitchOff
				default:
					c.Pitch = 12*int(noter>>4) + int(noter&0xF)
				}
				c.Sample = int(instr)
			}

			if b&64 == 64 {
				vol, _ := buf.ReadByte()
				packedLen--
				c.Volume = int(vol)
			}

			if b&128 == 128 {
				efct, _ := buf.ReadByte()
				parm, _ := buf.ReadByte()
				packedLen -= 2
				c.Effect, c.Param = convertS3MEffect(efct, parm)
			}
		}

		song.patterns[i] = pat
	}

	song.Pan = make([]int, song.Channels)
	for i := 0; i < song.Channels; i++ {
		if header.Panning == 252 {
			song.Pan[i] = 128
			continue
		}
		switch i & 3 {
		case 0, 3:
			song.Pan[i] = 0
		default:
			song.Pan[i] = 255
		}
	}

	return song, nil
}

// convertS3MEffect maps an S3M packed effect letter/param pair onto this
// module's shared effect byte space (effects.go).
func convertS3MEffect(efc, parm byte) (effect byte, param byte) {
	effect, param = efc, parm

	switch efc {
	case s3mfxSetSpeed:
		effect = effectSetSpeed
	case s3mfxPatternJump:
		effect = effectJumpToPattern
	case s3mfxPatternBreak:
		effect = effectPatternBreak
	case s3mfxPortaDown:
		switch parm >> 4 {
		case 0xF: // EFx: extra-fine, one-shot, 1/4 the EEx unit
			effect, param = effectExtraFinePorta, 0x20|(parm&0xF)
		case 0xE: // EEx: fine, one-shot
			effect, param = effectFinePortaDown, parm&0xF
		default:
			effect = effectPortaDown
		}
	case s3mfxPortaUp:
		switch parm >> 4 {
		case 0xF: // FFx: extra-fine, one-shot, 1/4 the FEx unit
			effect, param = effectExtraFinePorta, 0x10|(parm&0xF)
		case 0xE: // FEx: fine, one-shot
			effect, param = effectFinePortaUp, parm&0xF
		default:
			effect = effectPortaUp
		}
	case s3mfxTonePortamento:
		effect = effectPortaToNote
	case s3mfxVibrato:
		effect = effectVibrato
	case s3mfxTremor:
		effect = effectTremor
	case s3mfxArpeggio:
		effect = effectArpeggio
	case s3mfxVibVolSlide:
		effect = effectVibVolSlide
	case s3mfxPortaVolSlide:
		effect = effectPortaVolSlide
	case s3mfxVolumeSlide:
		effect = effectVolumeSlide
	case s3mfxSetSampleOff:
		effect = effectSampleOffset
	case s3mfxRetrigVolSlide:
		effect = effectRetrigVolSlide
	case s3mfxTremolo:
		effect = effectTremolo
	case s3mfxSetTempo:
		effect = effectSetTempo
	case s3mfxFineVibrato:
		effect = effectFineVibrato
	case s3mfxSetGlobalVol:
		effect = effectSetGlobalVolume
	case s3mfxSpecial:
		switch parm >> 4 {
		case 0xB:
			effect, param = effectPatternLoop, parm&0xF
		case 0x8:
			effect, param = effectSetPanning, parm&0xF
		case 0xC:
			effect, param = effectNoteCut, parm&0xF
		case 0xD:
			effect, param = effectNoteDelay, parm&0xF
		default:
			effect, param = effectNone, 0
		}
	default:
		effect = effectNone
	}

	return
}
