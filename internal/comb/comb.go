// Package comb implements a simple comb-filter reverb, applied as an
// optional post-mix send on the real-time pipeline's output blocks (see
// cmd/internal/config.ReverbFromFlag and cmd/play's -reverb flag).
package comb

// Reverber is satisfied by both CombAdd and a caller-supplied pass-through,
// letting cmd/internal/config.ReverbFromFlag return either behind one
// interface.
type Reverber interface {
	InputSamples(in []float32) int
	GetAudio(out []float32) int
}

var _ Reverber = &CombAdd{}

// Comb models a simple Comb filter reverb module. At construction time it
// takes a block of sample data and applies reverb to it. It cannot be fed
// any more sample data after this.
type Comb struct {
	delayOffset int
	readPos     int
	audio       []float32
}

func NewComb(in []float32, decay float32, delayMs, sampleRate int) *Comb {
	c := &Comb{
		delayOffset: (delayMs * sampleRate) / 1000,
		audio:       make([]float32, len(in)),
	}

	copy(c.audio, in)
	for i := 0; i < len(in)/2-c.delayOffset; i++ {
		c.audio[(i+c.delayOffset)*2+0] += c.audio[i*2+0] * decay
		c.audio[(i+c.delayOffset)*2+1] += c.audio[i*2+1] * decay
	}

	return c
}

func (c *Comb) GetAudio(out []float32) int {
	n := len(out)
	if c.readPos+n > len(c.audio) {
		n = len(c.audio) - c.readPos
	}
	copy(out, c.audio[c.readPos:c.readPos+n])
	c.readPos += n
	return n
}

// CombAdd is a Comb filter that can be fed audio data incrementally. It does
// not discard used samples and has no upper bound on memory used.
type CombAdd struct {
	Comb
	writePos int
	decay    float32
}

// NewCombAdd's initialSize is in sample pairs.
func NewCombAdd(initialSize int, decay float32, delayMs, sampleRate int) *CombAdd {
	return &CombAdd{
		Comb: Comb{
			delayOffset: (delayMs * sampleRate) / 1000,
			audio:       make([]float32, 0, initialSize*2),
		},
		decay: decay,
	}
}

// InputSamples feeds the CombAdd filter with new sample data. Once enough
// samples have accumulated the filter starts applying reverb to audio data.
// The exact number of samples needed is determined by delay and sample
// rate. InputSamples returns the number of samples still required before
// reverb can be applied. The function takes a copy of the provided audio
// data.
func (c *CombAdd) InputSamples(in []float32) int {
	c.audio = append(c.audio, in...)
	if len(c.audio) > c.delayOffset*2 {
		ns := len(c.audio) - (c.delayOffset*2 + c.writePos)
		for i := 0; i < ns; i++ {
			c.audio[i+c.delayOffset*2+c.writePos] += c.audio[i+c.writePos] * c.decay
		}
		c.writePos += ns
	}
	rem := c.delayOffset*2 - len(c.audio)
	if rem < 0 {
		rem = 0
	}
	return rem
}

// GetAudio puts processed audio data into the out slice, returning the
// number of samples put into out.
func (c *CombAdd) GetAudio(out []float32) int {
	wanted := len(out)
	have := len(c.audio) - c.readPos
	if wanted > have {
		wanted = have
	}
	if wanted > 0 {
		copy(out, c.audio[c.readPos:c.readPos+wanted])
		c.readPos += wanted
	}
	return wanted
}
