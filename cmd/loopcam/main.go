package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/satindergrewal/loopcam/internal/audio"
	"github.com/satindergrewal/loopcam/internal/config"
	"github.com/satindergrewal/loopcam/internal/journal"
	"github.com/satindergrewal/loopcam/internal/media"
	"github.com/satindergrewal/loopcam/internal/session"
	"github.com/satindergrewal/loopcam/internal/stream"
	"github.com/satindergrewal/loopcam/internal/vcam"
	"github.com/satindergrewal/loopcam/internal/video"
)

func main() {
	cfg := config.Load()

	pixfmt, err := vcam.ParsePixelFormat(cfg.PixelFormat)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	j := journal.New(cfg.LogFile)

	player := audio.NewPlayer(audio.NewSpeakerOutput(cfg.AudioBuffer), j)
	streamer := video.NewStreamer(video.Config{
		FFmpegPath:       cfg.FFmpegPath,
		FFprobePath:      cfg.FFprobePath,
		FallbackFPS:      cfg.FallbackFPS,
		Device:           cfg.VideoDevice,
		PixelFormat:      pixfmt,
		ProgressInterval: cfg.ProgressInterval,
	}, j, media.NewExtractor(cfg.FFmpegPath, cfg.AudioExt, j), player)

	g, gctx := errgroup.WithContext(ctx)

	// Monitor (optional -- listen in on the looped audio, watch counters)
	if cfg.MonitorPort > 0 {
		tap := audio.NewTap()
		player.SetTap(tap)

		broadcaster := stream.NewBroadcaster()
		go broadcaster.Run(gctx, tap.Frames())

		monitor := stream.NewMonitor(broadcaster, tap.Format, func() any {
			return streamer.Status()
		}, cfg.FFmpegPath)
		g.Go(func() error {
			// A dead monitor must not take the menu down with it.
			if err := monitor.ListenAndServe(gctx, cfg.MonitorPort); err != nil {
				log.Printf("%v", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer cancel()
		return session.NewController(os.Stdin, os.Stdout, j, streamer).Run(gctx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("loopcam: %v", err)
	}
}
