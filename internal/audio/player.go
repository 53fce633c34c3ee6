package audio

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"

	"github.com/satindergrewal/loopcam/internal/journal"
)

// Output is an audio device that plays a streamer. Play starts s, blocks
// until ctx is cancelled and stops s before returning.
type Output interface {
	Play(ctx context.Context, s beep.Streamer, format beep.Format) error
}

// resampleQuality is beep's interpolation window for rate conversion.
const resampleQuality = 4

// SpeakerOutput plays through the system's default output device. Route it
// to a virtual microphone (PulseAudio null sink, BlackHole, VB-Cable) to
// feed conferencing apps.
//
// The device can only be opened once per process, so it is opened at the
// first file's sample rate and kept open. Later files at another rate are
// resampled to it.
type SpeakerOutput struct {
	buffer time.Duration

	mu   sync.Mutex
	rate beep.SampleRate // 0 until the device is open

	init  func(rate beep.SampleRate, bufferSize int) error
	play  func(s ...beep.Streamer)
	clear func()
}

// NewSpeakerOutput creates an output with the given device buffer length.
func NewSpeakerOutput(buffer time.Duration) *SpeakerOutput {
	if buffer <= 0 {
		buffer = 50 * time.Millisecond
	}
	return &SpeakerOutput{
		buffer: buffer,
		init:   speaker.Init,
		play:   speaker.Play,
		clear:  speaker.Clear,
	}
}

// open initialises the device on first use. A failed attempt is retried on
// the next call.
func (o *SpeakerOutput) open(format beep.Format) (beep.SampleRate, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.rate != 0 {
		return o.rate, nil
	}
	if err := o.init(format.SampleRate, format.SampleRate.N(o.buffer)); err != nil {
		return 0, fmt.Errorf("init audio output: %w", err)
	}
	o.rate = format.SampleRate
	return o.rate, nil
}

// Play implements Output.
func (o *SpeakerOutput) Play(ctx context.Context, s beep.Streamer, format beep.Format) error {
	rate, err := o.open(format)
	if err != nil {
		return err
	}
	if format.SampleRate != rate {
		s = beep.Resample(resampleQuality, format.SampleRate, rate, s)
	}

	o.play(s)
	<-ctx.Done()
	o.clear()
	return nil
}

// Player loops a WAV file to an Output.
type Player struct {
	out Output
	log *journal.Journal
	tap *Tap

	looper atomic.Pointer[Looper]
}

// NewPlayer creates a player writing to out.
func NewPlayer(out Output, log *journal.Journal) *Player {
	return &Player{out: out, log: log}
}

// SetTap mirrors every played chunk into t. Call before PlayLoop.
func (p *Player) SetTap(t *Tap) {
	p.tap = t
}

// Wraps returns how many times the current file has been rewound.
func (p *Player) Wraps() int64 {
	if l := p.looper.Load(); l != nil {
		return l.Wraps()
	}
	return 0
}

// PlayLoop opens audioPath and plays it in a loop until ctx is cancelled.
// The device callback runs on the audio subsystem's goroutine and only ever
// touches this call's file handle.
func (p *Player) PlayLoop(ctx context.Context, audioPath string) error {
	src, format, err := open(audioPath)
	if err != nil {
		p.log.Log("❌ Error: Audio file not found.")
		return err
	}
	defer src.Close()

	var tapFn func([][2]float64)
	if p.tap != nil {
		p.tap.Configure(format)
		defer p.tap.Configure(beep.Format{})
		tapFn = p.tap.Write
	}
	l := NewLooper(src, tapFn)
	p.looper.Store(l)

	if err := p.out.Play(ctx, l, format); err != nil {
		p.log.Logf("❌ Error: Audio output failed: %v", err)
		return err
	}
	return nil
}

func open(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("%w: %v", ErrFileNotFound, err)
	}
	s, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("%w: %s: %v", ErrFileNotFound, path, err)
	}
	if s.Len() == 0 {
		s.Close()
		return nil, beep.Format{}, fmt.Errorf("%w: %s: no samples", ErrFileNotFound, path)
	}
	return s, format, nil
}
