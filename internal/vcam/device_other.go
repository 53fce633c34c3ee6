//go:build !linux

package vcam

// Device is unavailable on this platform.
type Device struct{}

// Open always fails with ErrUnsupported.
func Open(path string, width, height int, fps float64, format PixelFormat) (*Device, error) {
	return nil, ErrUnsupported
}

func (d *Device) Device() string       { return "" }
func (d *Device) Format() PixelFormat  { return "" }
func (d *Device) Write(_ []byte) error { return ErrUnsupported }
func (d *Device) Close() error         { return nil }
