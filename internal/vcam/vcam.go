// Package vcam feeds frames to a virtual camera device.
//
// On Linux the device is a v4l2loopback node opened for output: the writer
// sets the format once and then writes whole frames with write(2). Any
// application reading the node sees it as a regular webcam.
package vcam

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported is returned on platforms without a virtual camera backend.
var ErrUnsupported = errors.New("virtual camera not supported on this platform")

// PixelFormat is the frame layout the device is configured with.
type PixelFormat string

const (
	RGB24 PixelFormat = "rgb24" // packed R,G,B
	YUYV  PixelFormat = "yuyv"  // packed 4:2:2 Y0,U,Y1,V
)

// ParsePixelFormat accepts "rgb24" or "yuyv" in any case.
func ParsePixelFormat(s string) (PixelFormat, error) {
	switch PixelFormat(strings.ToLower(strings.TrimSpace(s))) {
	case RGB24:
		return RGB24, nil
	case YUYV:
		return YUYV, nil
	}
	return "", fmt.Errorf("unknown pixel format %q (want rgb24 or yuyv)", s)
}

// BytesPerLine returns the stride of one row.
func (f PixelFormat) BytesPerLine(width int) int {
	switch f {
	case YUYV:
		return ((width + 1) &^ 1) * 2
	default:
		return width * 3
	}
}

// FrameSize returns the size in bytes of one frame.
func (f PixelFormat) FrameSize(width, height int) int {
	return f.BytesPerLine(width) * height
}

func fourcc(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

// FourCC returns the V4L2 pixel format code.
func (f PixelFormat) FourCC() uint32 {
	switch f {
	case YUYV:
		return fourcc('Y', 'U', 'Y', 'V')
	default:
		return fourcc('R', 'G', 'B', '3')
	}
}
