package video

import "github.com/satindergrewal/loopcam/internal/vcam"

// Convert rewrites a BGR frame into dst in the device's pixel format. dst
// must be format.FrameSize(f.Width, f.Height) bytes.
func Convert(dst []byte, f Frame, format vcam.PixelFormat) {
	switch format {
	case vcam.YUYV:
		bgrToYUYV(dst, f)
	default:
		bgrToRGB(dst, f.Data)
	}
}

func bgrToRGB(dst, src []byte) {
	for i := 0; i+2 < len(src); i += 3 {
		dst[i] = src[i+2]
		dst[i+1] = src[i+1]
		dst[i+2] = src[i]
	}
}

// BT.601 limited range, integer approximation.
func yuv(r, g, b int) (y, u, v int) {
	y = ((66*r+129*g+25*b+128)>>8 + 16)
	u = ((-38*r-74*g+112*b+128)>>8 + 128)
	v = ((112*r-94*g-18*b+128)>>8 + 128)
	return
}

func bgrToYUYV(dst []byte, f Frame) {
	stride := vcam.YUYV.BytesPerLine(f.Width)
	for row := 0; row < f.Height; row++ {
		in := f.Data[row*f.Width*3 : (row+1)*f.Width*3]
		out := dst[row*stride : (row+1)*stride]
		for x := 0; x < f.Width; x += 2 {
			x1 := x + 1
			if x1 >= f.Width {
				x1 = x // odd width: repeat the last pixel
			}
			y0, u0, v0 := yuv(int(in[x*3+2]), int(in[x*3+1]), int(in[x*3]))
			y1, u1, v1 := yuv(int(in[x1*3+2]), int(in[x1*3+1]), int(in[x1*3]))
			o := x * 2
			out[o] = byte(y0)
			out[o+1] = byte((u0 + u1 + 1) / 2)
			out[o+2] = byte(y1)
			out[o+3] = byte((v0 + v1 + 1) / 2)
		}
	}
}
