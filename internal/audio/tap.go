package audio

import (
	"sync"

	"github.com/gopxl/beep/v2"
)

// Tap re-frames the chunks the output device pulls into fixed 20ms frames of
// interleaved int16 PCM for monitoring. It is fed from the audio callback, so
// a full frame channel drops frames instead of blocking.
type Tap struct {
	frameCh chan []int16

	mu      sync.RWMutex
	format  beep.Format
	pending []int16
	dropped int
}

// NewTap creates an unconfigured tap. Configure must be called with the
// stream format before the first Write.
func NewTap() *Tap {
	return &Tap{
		frameCh: make(chan []int16, 100),
	}
}

// Frames returns the channel of outgoing PCM frames (20ms each).
func (t *Tap) Frames() <-chan []int16 {
	return t.frameCh
}

// Configure sets the format of the chunks that will be written. Formats
// wider than stereo are reported, and framed, as stereo.
func (t *Tap) Configure(format beep.Format) {
	format.NumChannels = Channels(format)
	t.mu.Lock()
	t.format = format
	t.pending = t.pending[:0]
	t.mu.Unlock()
}

// Format returns the configured format. The zero Format means the tap has
// not seen an audio file yet.
func (t *Tap) Format() beep.Format {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.format
}

// Dropped returns how many frames were discarded because nobody drained
// the channel in time.
func (t *Tap) Dropped() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dropped
}

// Write converts a chunk and emits every complete frame.
func (t *Tap) Write(samples [][2]float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	size := FrameSamples(t.format)
	if size == 0 {
		return
	}
	t.pending = append(t.pending, ToInt16(samples, t.format.NumChannels)...)
	for len(t.pending) >= size {
		frame := make([]int16, size)
		copy(frame, t.pending[:size])
		t.pending = t.pending[size:]

		select {
		case t.frameCh <- frame:
		default:
			t.dropped++
		}
	}
	// Reclaim the consumed prefix.
	t.pending = append(t.pending[:0], t.pending...)
}
