package audio

import (
	"errors"
	"time"

	"github.com/gopxl/beep/v2"
)

// ErrFileNotFound is returned when the audio file is missing or is not
// parseable PCM.
var ErrFileNotFound = errors.New("audio file not found")

// FrameDuration is the monitor frame length.
const FrameDuration = 20 * time.Millisecond

// FrameSize returns samples per channel in one monitor frame at the given rate.
func FrameSize(rate beep.SampleRate) int {
	return rate.N(FrameDuration)
}

// Channels returns how many channels survive decoding. beep carries at most
// two per sample, so anything wider comes out as front left and right.
func Channels(format beep.Format) int {
	return min(format.NumChannels, 2)
}

// FrameSamples returns interleaved samples in one monitor frame.
func FrameSamples(format beep.Format) int {
	return FrameSize(format.SampleRate) * Channels(format)
}
