// Package video loops a video file into a virtual camera.
package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/satindergrewal/loopcam/internal/journal"
	"github.com/satindergrewal/loopcam/internal/media"
	"github.com/satindergrewal/loopcam/internal/vcam"
)

// ErrOpen is returned when the selected file cannot be opened as video.
var ErrOpen = errors.New("failed to open video")

// errEmpty means a source hit end-of-stream twice without producing a frame.
var errEmpty = errors.New("video has no frames")

// Sink is the virtual camera a frame loop writes to.
type Sink interface {
	Write(frame []byte) error
	Device() string
	Format() vcam.PixelFormat
	Close() error
}

// AudioExtractor derives, and if needed produces, the audio file for a video.
type AudioExtractor interface {
	Extract(ctx context.Context, videoPath string) (string, error)
}

// AudioPlayer loops an audio file until ctx is cancelled.
type AudioPlayer interface {
	PlayLoop(ctx context.Context, audioPath string) error
}

// Config holds the streamer's fixed settings.
type Config struct {
	FFmpegPath       string
	FFprobePath      string
	FallbackFPS      float64
	Device           string
	PixelFormat      vcam.PixelFormat
	ProgressInterval time.Duration
}

// Status is a point-in-time view of a streaming session.
type Status struct {
	Active  bool      `json:"active"`
	Path    string    `json:"path"`
	Audio   string    `json:"audio_path"`
	Device  string    `json:"device"`
	Width   int       `json:"width"`
	Height  int       `json:"height"`
	FPS     float64   `json:"fps"`
	Frames  int64     `json:"frames"`
	Wraps   int64     `json:"wraps"`
	Started time.Time `json:"started"`
	Uptime  float64   `json:"uptime"` // seconds
}

type (
	sourceOpener func(ctx context.Context, path string) (Source, media.Info, error)
	sinkOpener   func(info media.Info) (Sink, error)
)

// Streamer runs a video loop and an audio loop side by side.
//
// The two loops are deliberately not synchronized: each owns its own file
// handle and read position, wraps independently and shares no clock with
// the other, so over a long session audio and video drift apart.
type Streamer struct {
	cfg       Config
	log       *journal.Journal
	extractor AudioExtractor
	player    AudioPlayer

	openSource sourceOpener
	openSink   sinkOpener

	frames atomic.Int64
	wraps  atomic.Int64

	mu     sync.RWMutex
	status Status
}

// NewStreamer creates a streamer decoding with FFmpeg and writing to the
// v4l2loopback device named in cfg.
func NewStreamer(cfg Config, log *journal.Journal, extractor AudioExtractor, player AudioPlayer) *Streamer {
	s := &Streamer{
		cfg:       cfg,
		log:       log,
		extractor: extractor,
		player:    player,
	}
	s.openSource = s.openFFmpeg
	s.openSink = s.openV4L2
	return s
}

func (s *Streamer) openFFmpeg(ctx context.Context, path string) (Source, media.Info, error) {
	info, err := media.Probe(ctx, s.cfg.FFprobePath, path, s.cfg.FallbackFPS)
	if err != nil {
		return nil, media.Info{}, err
	}
	d, err := NewDecoder(ctx, s.cfg.FFmpegPath, path, info)
	if err != nil {
		return nil, media.Info{}, err
	}
	return d, info, nil
}

func (s *Streamer) openV4L2(info media.Info) (Sink, error) {
	return vcam.Open(s.cfg.Device, info.Width, info.Height, info.FPS, s.cfg.PixelFormat)
}

// Status returns the current session state.
func (s *Streamer) Status() Status {
	s.mu.RLock()
	st := s.status
	s.mu.RUnlock()
	st.Frames = s.frames.Load()
	st.Wraps = s.wraps.Load()
	if st.Active {
		st.Uptime = time.Since(st.Started).Seconds()
	}
	return st
}

// StreamLoop streams videoPath to the virtual camera and its extracted audio
// to the audio output until ctx is cancelled, which is the only way it ends
// normally; it then returns ctx.Err(). Open failures are logged and
// returned before any device is claimed.
func (s *Streamer) StreamLoop(ctx context.Context, videoPath string) error {
	src, info, err := s.openSource(ctx, videoPath)
	if err != nil {
		s.log.Log("❌ Error: Failed to open video.")
		return fmt.Errorf("%w: %s: %v", ErrOpen, videoPath, err)
	}
	defer src.Close()

	audioPath, err := s.extractor.Extract(ctx, videoPath)
	if err != nil {
		return err
	}

	s.log.Logf("📹 Starting virtual camera with resolution %dx%d @ %g FPS", info.Width, info.Height, info.FPS)
	sink, err := s.openSink(info)
	if err != nil {
		s.log.Logf("❌ Error: Failed to open virtual camera: %v", err)
		return fmt.Errorf("open virtual camera: %w", err)
	}
	defer sink.Close()
	s.log.Logf("✅ Virtual Camera Active: %s", sink.Device())
	s.log.Log("🎤 Virtual Mic Active")

	s.begin(videoPath, audioPath, sink.Device(), info)
	defer s.end()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Audio failures are already logged; video carries on without it.
		s.player.PlayLoop(gctx, audioPath)
		return nil
	})
	g.Go(func() error {
		return s.loop(gctx, src, sink, info)
	})
	return g.Wait()
}

func (s *Streamer) begin(videoPath, audioPath, device string, info media.Info) {
	s.frames.Store(0)
	s.wraps.Store(0)
	s.mu.Lock()
	s.status = Status{
		Active:  true,
		Path:    videoPath,
		Audio:   audioPath,
		Device:  device,
		Width:   info.Width,
		Height:  info.Height,
		FPS:     info.FPS,
		Started: time.Now(),
	}
	s.mu.Unlock()
}

func (s *Streamer) end() {
	s.mu.Lock()
	s.status.Active = false
	s.mu.Unlock()
}

// loop reads, converts, submits and paces frames until ctx is cancelled.
func (s *Streamer) loop(ctx context.Context, src Source, sink Sink, info media.Info) error {
	pacer := NewPacer(info.FPS)
	defer pacer.Stop()

	format := sink.Format()
	out := make([]byte, format.FrameSize(info.Width, info.Height))
	interval := s.cfg.ProgressInterval
	last := time.Now()
	sinceWrap := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := src.ReadFrame()
		if errors.Is(err, io.EOF) {
			if sinceWrap == 0 && s.wraps.Load() > 0 {
				s.log.Log("❌ Error: Video has no frames.")
				return errEmpty
			}
			if err := src.Rewind(); err != nil {
				s.log.Logf("❌ Error: Failed to rewind video: %v", err)
				return fmt.Errorf("rewind: %w", err)
			}
			s.wraps.Add(1)
			sinceWrap = 0
			continue
		}
		if err != nil {
			s.log.Logf("❌ Error: Failed to read frame: %v", err)
			return fmt.Errorf("read frame: %w", err)
		}
		sinceWrap++

		Convert(out, frame, format)
		if err := sink.Write(out); err != nil {
			s.log.Logf("❌ Error: Failed to send frame: %v", err)
			return fmt.Errorf("send frame: %w", err)
		}
		s.frames.Add(1)

		if err := pacer.Wait(ctx); err != nil {
			return err
		}

		if interval > 0 {
			if now := time.Now(); now.Sub(last) >= interval {
				s.log.Logf("⏱️ %g seconds passed...", interval.Seconds())
				last = now
			}
		}
	}
}
