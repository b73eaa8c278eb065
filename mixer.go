package tracker

import "math"

// panTableSize is the precomputed equal-power pan table's resolution
// (pan 0..255, 128 = center).
const panTableSize = 256

var panTable [panTableSize][2]float32

func init() {
	for i := 0; i < panTableSize; i++ {
		frac := float64(i) / float64(panTableSize-1)
		// Equal-power law: L=cos(frac*pi/2), R=sin(frac*pi/2).
		panTable[i][0] = float32(math.Cos(frac * math.Pi / 2))
		panTable[i][1] = float32(math.Sin(frac * math.Pi / 2))
	}
}

// mixChannels renders nFrames stereo frames starting at out[offset*2] by
// summing every active track's interpolated, looped sample playback,
// applying equal-power panning and a bus attenuation scaled to channel
// count and to the song's global volume (S3M/IT Vxx/Wxy), then
// hard-clipping. Accumulates directly into a float32 buffer rather than a
// fixed-point int16 buffer.
func (s *sequencer) mixChannels(out []float32, nFrames, offset int, sampleRate int, mute uint) {
	for i := offset * 2; i < (offset+nFrames)*2; i++ {
		out[i] = 0
	}

	busAtten := float32(1.0)
	if nc := len(s.tracks) / 4; nc > 1 {
		busAtten = 1.0 / float32(nc)
	}
	busAtten *= float32(s.globalVolume) / 64.0

	for ci := range s.tracks {
		t := &s.tracks[ci]
		if !t.isOn() || t.volume == 0 || t.hz <= 0 {
			continue
		}
		if mute&(1<<uint(ci)) != 0 {
			continue
		}
		if t.tremorCounter > 0 && !t.tremorOn {
			continue
		}

		data := s.sampleData(t)
		if len(data) == 0 {
			continue
		}
		smp := &s.song.Samples[t.sampleIdx]

		step := t.hz / float64(sampleRate)
		pan := t.pan
		if pan < 0 {
			pan = 0
		}
		if pan > 255 {
			pan = 255
		}
		lvol := panTable[pan][0] * float32(t.volume) / 64.0
		rvol := panTable[pan][1] * float32(t.volume) / 64.0

		pos := t.samplePos
		for off := offset * 2; off < (offset+nFrames)*2; off += 2 {
			i0 := int(pos)
			if i0 >= len(data) {
				break
			}
			i1 := i0 + 1
			if i1 >= len(data) {
				i1 = len(data) - 1
			}
			frac := float32(pos - float64(i0))
			samp := data[i0] + (data[i1]-data[i0])*frac

			out[off+0] += samp * lvol * busAtten
			out[off+1] += samp * rvol * busAtten

			pos += step
			loopEnd := smp.LoopStart + smp.LoopLen
			if smp.LoopLen > 2 && loopEnd <= len(data) {
				for pos >= float64(loopEnd) {
					pos -= float64(smp.LoopLen)
				}
			} else if pos >= float64(len(data)) {
				t.off()
				break
			}
		}
		t.samplePos = pos
	}

	for i := offset * 2; i < (offset+nFrames)*2; i++ {
		if out[i] > 1 {
			out[i] = 1
		} else if out[i] < -1 {
			out[i] = -1
		}
	}
}
