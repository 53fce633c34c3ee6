package audio

import (
	"sync/atomic"

	"github.com/gopxl/beep/v2"
)

// Looper streams a seekable source forever. When a read comes back short the
// partial chunk is discarded, the source is rewound to its first frame and
// the chunk is read again from there. A source shorter than one chunk is
// padded with silence, so every chunk handed out is full.
type Looper struct {
	src beep.StreamSeeker
	tap func(samples [][2]float64)

	wraps atomic.Int64
	err   error
}

// NewLooper wraps src. tap, when non-nil, sees every chunk after it is filled
// and must not block.
func NewLooper(src beep.StreamSeeker, tap func(samples [][2]float64)) *Looper {
	return &Looper{src: src, tap: tap}
}

// Stream implements beep.Streamer.
func (l *Looper) Stream(samples [][2]float64) (n int, ok bool) {
	if l.err != nil {
		return 0, false
	}
	n, _ = l.src.Stream(samples)
	if n < len(samples) {
		if err := l.src.Seek(0); err != nil {
			l.err = err
			return 0, false
		}
		l.wraps.Add(1)
		n, _ = l.src.Stream(samples)
		clear(samples[n:])
	}
	if l.tap != nil {
		l.tap(samples)
	}
	return len(samples), true
}

// Err implements beep.Streamer.
func (l *Looper) Err() error {
	if l.err != nil {
		return l.err
	}
	return l.src.Err()
}

// Wraps returns how many times the source has been rewound.
func (l *Looper) Wraps() int64 {
	return l.wraps.Load()
}
