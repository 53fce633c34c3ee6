// Package media wraps the FFmpeg command-line tools: stream probing and
// audio extraction.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// ErrNoVideoStream is returned when a container has no usable video stream.
var ErrNoVideoStream = errors.New("no video stream")

// Info describes the first video stream of a container.
type Info struct {
	Width  int
	Height int
	FPS    float64
}

// FrameSize returns the size in bytes of one packed 24-bit frame.
func (i Info) FrameSize() int {
	return i.Width * i.Height * 3
}

type probeOutput struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
		Tags         struct {
			Rotate string `json:"rotate"`
		} `json:"tags"`
		SideData []struct {
			Rotation float64 `json:"rotation"`
		} `json:"side_data_list"`
	} `json:"streams"`
}

// Probe runs ffprobe on path and returns the geometry and frame rate of its
// first video stream. The geometry is the displayed one: FFmpeg applies the
// stream's rotation while decoding, so quarter turns swap width and height. fallbackFPS is used when the container carries no
// usable rate.
func Probe(ctx context.Context, ffprobe, path string, fallbackFPS float64) (Info, error) {
	cmd := exec.CommandContext(ctx, ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,avg_frame_rate,r_frame_rate:stream_tags=rotate:stream_side_data=rotation",
		"-of", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbe(out, fallbackFPS)
}

func parseProbe(data []byte, fallbackFPS float64) (Info, error) {
	var po probeOutput
	if err := json.Unmarshal(data, &po); err != nil {
		return Info{}, fmt.Errorf("decode ffprobe output: %w", err)
	}
	if len(po.Streams) == 0 {
		return Info{}, ErrNoVideoStream
	}
	s := po.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return Info{}, fmt.Errorf("%w: invalid size %dx%d", ErrNoVideoStream, s.Width, s.Height)
	}

	fps := ParseRate(s.AvgFrameRate)
	if fps <= 0 {
		fps = ParseRate(s.RFrameRate)
	}
	if fps <= 0 {
		fps = fallbackFPS
	}

	rotation := 0.0
	if r, err := strconv.ParseFloat(s.Tags.Rotate, 64); err == nil {
		rotation = r
	}
	for _, sd := range s.SideData {
		if sd.Rotation != 0 {
			rotation = sd.Rotation
		}
	}
	w, h := s.Width, s.Height
	if quarterTurn(rotation) {
		w, h = h, w
	}
	return Info{Width: w, Height: h, FPS: fps}, nil
}

// quarterTurn reports whether a rotation in degrees is an odd multiple of 90.
func quarterTurn(deg float64) bool {
	turns := int(math.Round(deg / 90))
	return turns%2 != 0
}

// ParseRate evaluates an FFmpeg rate such as "30000/1001" or "25".
// It returns 0 for anything it cannot interpret.
func ParseRate(s string) float64 {
	num, den, found := strings.Cut(strings.TrimSpace(s), "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
