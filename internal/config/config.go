package config

import (
	"os"
	"strconv"
	"time"
)

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Operator log
	LogFile string

	// External tools
	FFmpegPath  string
	FFprobePath string
	AudioExt    string // extension of the extracted audio file, with leading dot

	// Virtual camera
	VideoDevice string // v4l2loopback output node
	PixelFormat string // rgb24 or yuyv
	FallbackFPS float64

	// Playback
	ProgressInterval time.Duration // wall-clock time between progress notices
	AudioBuffer      time.Duration // output device buffer length

	// Monitor (0 disables)
	MonitorPort int
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		LogFile: envStr("LOOPCAM_LOG_FILE", "log.txt"),

		FFmpegPath:  envStr("LOOPCAM_FFMPEG", "ffmpeg"),
		FFprobePath: envStr("LOOPCAM_FFPROBE", "ffprobe"),
		AudioExt:    normalizeExt(envStr("LOOPCAM_AUDIO_EXT", ".wav")),

		VideoDevice: envStr("LOOPCAM_VIDEO_DEVICE", "/dev/video10"),
		PixelFormat: envStr("LOOPCAM_PIXEL_FORMAT", "rgb24"),
		FallbackFPS: envFloat("LOOPCAM_FALLBACK_FPS", 30),

		ProgressInterval: time.Duration(envInt("LOOPCAM_PROGRESS_INTERVAL", 10)) * time.Second,
		AudioBuffer:      time.Duration(envInt("LOOPCAM_AUDIO_BUFFER_MS", 50)) * time.Millisecond,

		MonitorPort: envInt("LOOPCAM_MONITOR_PORT", 0),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func normalizeExt(ext string) string {
	if ext != "" && ext[0] != '.' {
		return "." + ext
	}
	return ext
}
