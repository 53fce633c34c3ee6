package video

import (
	"context"
	"time"
)

// Pacer holds a loop to a fixed frame rate with a time.Ticker. Time spent
// reading and converting a frame is absorbed by the tick period. The ticker
// buffers a single tick and drops the rest, so a loop that falls behind
// sends one frame straight away and then waits for the next tick; there is
// no catch-up burst.
type Pacer struct {
	interval time.Duration
	ticker   *time.Ticker
}

// NewPacer creates a pacer for fps frames per second.
func NewPacer(fps float64) *Pacer {
	interval := time.Second / 30
	if fps > 0 {
		if d := time.Duration(float64(time.Second) / fps); d > 0 {
			interval = d
		}
	}
	return &Pacer{
		interval: interval,
		ticker:   time.NewTicker(interval),
	}
}

// Interval returns the frame period.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Wait blocks until the next scheduled frame time or ctx is cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ticker.C:
		return nil
	}
}

// Stop releases the ticker.
func (p *Pacer) Stop() {
	p.ticker.Stop()
}
