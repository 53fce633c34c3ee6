package media

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/satindergrewal/loopcam/internal/journal"
)

// AudioPath derives the extracted audio path for a video by replacing its
// extension with ext. A path without an extension gets ext appended.
func AudioPath(videoPath, ext string) string {
	base := filepath.Base(videoPath)
	if i := strings.LastIndex(base, "."); i > 0 {
		return videoPath[:len(videoPath)-len(base)+i] + ext
	}
	return videoPath + ext
}

// RunFunc runs an external command to completion. Output is discarded.
type RunFunc func(ctx context.Context, name string, args ...string) error

func runDiscard(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	// nil Stdout/Stderr go to the null device
	return cmd.Run()
}

// Extractor produces a standalone audio file next to a video using FFmpeg.
type Extractor struct {
	ffmpeg string
	ext    string
	log    *journal.Journal
	run    RunFunc
}

// NewExtractor creates an extractor invoking the given ffmpeg binary.
func NewExtractor(ffmpeg, ext string, log *journal.Journal) *Extractor {
	return &Extractor{ffmpeg: ffmpeg, ext: ext, log: log, run: runDiscard}
}

// Extract returns the derived audio path, running FFmpeg first when that
// file does not exist yet. Surround tracks are downmixed to stereo, the most
// the output device plays. The transcoder's exit status is not checked: a
// missing output surfaces when the player tries to open it. The only error
// returned is context cancellation.
func (e *Extractor) Extract(ctx context.Context, videoPath string) (string, error) {
	audioPath := AudioPath(videoPath, e.ext)
	if _, err := os.Stat(audioPath); err == nil {
		return audioPath, nil
	}

	e.log.Log("🔄 Extracting audio from video...")
	_ = e.run(ctx, e.ffmpeg,
		"-i", videoPath,
		"-q:a", "0",
		"-map", "a",
		"-ac", "2",
		audioPath,
		"-y",
	)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return audioPath, nil
}
