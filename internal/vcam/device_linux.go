//go:build linux

package vcam

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	bufTypeVideoOutput = 2
	fieldNone          = 1
	colorspaceSRGB     = 8

	iocWrite = 1
	iocRead  = 2
)

// struct v4l2_pix_format
type v4l2PixFormat struct {
	Width        uint32
	Height       uint32
	PixelFormat  uint32
	Field        uint32
	BytesPerLine uint32
	SizeImage    uint32
	Colorspace   uint32
	Priv         uint32
	Flags        uint32
	YcbcrEnc     uint32
	Quantization uint32
	XferFunc     uint32
}

// struct v4l2_format. The union holds pointers (v4l2_window), so on 64-bit
// kernels it starts 8-byte aligned.
type v4l2Format struct {
	Type uint32
	_    [unsafe.Sizeof(uintptr(0)) - 4]byte
	Pix  v4l2PixFormat
	_    [200 - unsafe.Sizeof(v4l2PixFormat{})]byte
}

// struct v4l2_outputparm
type v4l2OutputParm struct {
	Capability   uint32
	OutputMode   uint32
	TimePerFrame struct {
		Numerator   uint32
		Denominator uint32
	}
	ExtendedMode uint32
	WriteBuffers uint32
	Reserved     [4]uint32
}

// struct v4l2_streamparm
type v4l2StreamParm struct {
	Type   uint32
	Output v4l2OutputParm
	_      [200 - unsafe.Sizeof(v4l2OutputParm{})]byte
}

func iowr(nr, size uintptr) uintptr {
	return (iocRead|iocWrite)<<30 | size<<16 | uintptr('V')<<8 | nr
}

var (
	vidiocSFmt  = iowr(5, unsafe.Sizeof(v4l2Format{}))
	vidiocSParm = iowr(22, unsafe.Sizeof(v4l2StreamParm{}))
)

func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// Device is an open v4l2loopback output node.
type Device struct {
	path      string
	format    PixelFormat
	width     int
	height    int
	frameSize int

	mu sync.Mutex
	fd int
}

// Open claims the v4l2loopback node at path and configures it for frames of
// the given geometry, rate and pixel format. The configuration is fixed
// until Close.
func Open(path string, width, height int, fps float64, format PixelFormat) (*Device, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	frameSize := format.FrameSize(width, height)
	f := v4l2Format{Type: bufTypeVideoOutput}
	f.Pix = v4l2PixFormat{
		Width:        uint32(width),
		Height:       uint32(height),
		PixelFormat:  format.FourCC(),
		Field:        fieldNone,
		BytesPerLine: uint32(format.BytesPerLine(width)),
		SizeImage:    uint32(frameSize),
		Colorspace:   colorspaceSRGB,
	}
	if err := ioctl(fd, vidiocSFmt, unsafe.Pointer(&f)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set format on %s (is it a v4l2loopback device?): %w", path, err)
	}

	if fps > 0 {
		p := v4l2StreamParm{Type: bufTypeVideoOutput}
		p.Output.TimePerFrame.Numerator = 1000
		p.Output.TimePerFrame.Denominator = uint32(math.Round(fps * 1000))
		if err := ioctl(fd, vidiocSParm, unsafe.Pointer(&p)); err != nil {
			// Older v4l2loopback builds reject S_PARM; frames still flow.
			log.Printf("vcam: set frame rate on %s: %v", path, err)
		}
	}

	return &Device{
		path:      path,
		format:    format,
		width:     width,
		height:    height,
		frameSize: frameSize,
		fd:        fd,
	}, nil
}

// Device returns the node path.
func (d *Device) Device() string {
	return d.path
}

// Format returns the configured pixel format.
func (d *Device) Format() PixelFormat {
	return d.format
}

// Write submits one frame. frame must be exactly one frame long.
func (d *Device) Write(frame []byte) error {
	if len(frame) != d.frameSize {
		return fmt.Errorf("frame is %d bytes, device expects %d", len(frame), d.frameSize)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return errors.New("device closed")
	}
	for len(frame) > 0 {
		n, err := unix.Write(d.fd, frame)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("write %s: %w", d.path, err)
		}
		frame = frame[n:]
	}
	return nil
}

// Close releases the node.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}
