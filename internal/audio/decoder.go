package audio

import (
	"encoding/binary"
	"math"
)

// ToInt16 converts beep's float samples into signed 16-bit samples
// interleaved by channel count. Mono takes the left channel; anything above
// two channels is not representable in a beep frame and is clamped to two.
func ToInt16(samples [][2]float64, channels int) []int16 {
	if channels < 1 {
		channels = 1
	}
	if channels > 2 {
		channels = 2
	}
	out := make([]int16, 0, len(samples)*channels)
	for _, s := range samples {
		for c := 0; c < channels; c++ {
			out = append(out, floatToInt16(s[c]))
		}
	}
	return out
}

func floatToInt16(v float64) int16 {
	// Clip to int16 range
	v = math.Round(v * 32767)
	if v > 32767 {
		v = 32767
	} else if v < -32768 {
		v = -32768
	}
	return int16(v)
}

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}
