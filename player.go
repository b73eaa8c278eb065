package tracker

import (
	"sync"
)

// Mode is the playback state reported by Status.
type Mode int

const (
	ModePlaying Mode = iota
	ModePaused
	ModeEnded
)

func (m Mode) String() string {
	switch m {
	case ModePlaying:
		return "play"
	case ModePaused:
		return "paused"
	default:
		return "ended"
	}
}

// Status is the read-only position/state snapshot the control thread polls
// for display.
type Status struct {
	Mode    Mode
	Order   int
	Pattern int
	Row     int
	Speed   int
	Tempo   int
}

// Player drives a Song tick by tick and mixes it to float audio, either
// synchronously via GenerateAudio (used by cmd/render and tests) or through
// the background pipeline started by Start and consumed via Callback.
// Splits responsibility into a thin control surface (this file) over
// sequencer.go's tagged state machine and track.go's per-channel runtime
// state; the Song is passed by reference into the mixer rather than each
// track holding its own handle.
type Player struct {
	song       *Song
	sampleRate int

	mu            sync.Mutex // guards everything the producer (C2) mutates and the control thread (C1) reads
	seq           *sequencer
	tickSamplePos int
	paused        bool

	Mute uint

	queue    *blockQueue
	stop     chan struct{}
	wg       sync.WaitGroup
	running  bool
	startMu  sync.Mutex // serializes Start/Stop/Restart against each other (distinct from mu, which is per-tick state)
}

// NewPlayer constructs a Player positioned at order 0, row 0, with the
// song's declared initial speed and tempo.
func NewPlayer(song *Song, sampleRate int) *Player {
	return &Player{
		song:       song,
		sampleRate: sampleRate,
		seq:        newSequencer(song),
		queue:      newBlockQueue(blockQueueCapacity, BlockFrames),
	}
}

// GenerateAudio synchronously renders len(out)/2 stereo frames into out,
// bypassing the background pipeline. Used by cmd/render (which has no
// real-time deadline to meet) and by tests that need deterministic,
// un-threaded output.
func (p *Player) GenerateAudio(out []float32) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	frames := len(out) / 2
	p.genBlock(out, frames)
	return frames
}

// genBlock repeatedly mixes the chunk remaining in the current tick,
// advances the tick clock, and — on a tick boundary — advances the
// sequencer (which may advance rows/orders). Caller must hold p.mu.
func (p *Player) genBlock(out []float32, nFrames int) {
	pos := 0
	for pos < nFrames {
		if p.seq.ended {
			for i := pos * 2; i < nFrames*2; i++ {
				out[i] = 0
			}
			return
		}

		spt := p.seq.samplesPerTick(p.sampleRate)
		if spt <= 0 {
			spt = 1
		}
		remain := spt - p.tickSamplePos
		chunk := nFrames - pos
		if remain < chunk {
			chunk = remain
		}

		p.seq.mixChannels(out, chunk, pos, p.sampleRate, p.Mute)
		pos += chunk
		p.tickSamplePos += chunk

		if p.tickSamplePos >= spt {
			p.seq.advanceTick()
			p.tickSamplePos = 0
		}
	}
}

// Start begins background playback: the producer goroutine starts filling
// the bounded block queue that Callback drains. Safe to call again after
// Stop. No audio device is modeled directly by this library, so Start
// always returns nil; a call while already running does nothing.
func (p *Player) Start() error {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	if p.running {
		return nil
	}
	p.stop = make(chan struct{})
	p.running = true
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runProducer(p.stop)
	}()
	return nil
}

// Stop halts the producer and releases the block queue. Safe to call
// repeatedly.
func (p *Player) Stop() {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	if !p.running {
		return
	}
	close(p.stop)
	p.wg.Wait()
	p.running = false
	p.queue.drain()
}

// TogglePause flips the paused flag; both the producer and Callback emit
// silence while paused.
func (p *Player) TogglePause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = !p.paused
}

// Restart resets sequencer and track state to order 0, row 0, default
// speed/BPM, drains the queue, and resumes if playback was running — all
// serialized against Start/Stop.
func (p *Player) Restart() {
	p.startMu.Lock()
	wasRunning := p.running
	if wasRunning {
		close(p.stop)
		p.wg.Wait()
		p.running = false
	}
	p.startMu.Unlock()

	p.mu.Lock()
	p.seq.restart()
	p.tickSamplePos = 0
	p.paused = false
	p.mu.Unlock()

	p.queue.drain()

	if wasRunning {
		p.Start()
	}
}

// Callback is the audio-device-thread consumer: it dequeues at most one
// block non-blocking and copies as many frames as fit into out, zero-filling
// the remainder on underflow. While paused it writes silence and leaves the
// queue untouched.
func (p *Player) Callback(out []float32) {
	p.mu.Lock()
	paused := p.paused
	p.mu.Unlock()
	if paused {
		for i := range out {
			out[i] = 0
		}
		return
	}
	block, ok := p.queue.tryPop()
	if !ok {
		for i := range out {
			out[i] = 0
		}
		return
	}
	n := copy(out, block)
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
}

// Status reports a read-only snapshot of the player's current position for
// the UI/control thread.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	mode := ModePlaying
	if p.seq.ended {
		mode = ModeEnded
	} else if p.paused {
		mode = ModePaused
	}

	pattern := -1
	if p.seq.order < len(p.seq.orderTable) {
		pattern = p.seq.orderTable[p.seq.order]
	}

	return Status{
		Mode:    mode,
		Order:   p.seq.order,
		Pattern: pattern,
		Row:     p.seq.row,
		Speed:   p.seq.speed,
		Tempo:   p.seq.tempo,
	}
}
