package video

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"

	"github.com/satindergrewal/loopcam/internal/media"
)

// Frame is one decoded picture in packed BGR order, the order FFmpeg's
// bgr24 (and OpenCV) hand out.
type Frame struct {
	Width  int
	Height int
	Data   []byte
}

// Source yields frames in presentation order. ReadFrame returns io.EOF past
// the last frame; Rewind moves the read position back to frame 0.
type Source interface {
	ReadFrame() (Frame, error)
	Rewind() error
	Close() error
}

// frameReader cuts a raw bgr24 byte stream into frames. A trailing partial
// frame counts as end of stream.
type frameReader struct {
	r      *bufio.Reader
	width  int
	height int
	buf    []byte
}

func newFrameReader(r io.Reader, info media.Info) *frameReader {
	size := info.FrameSize()
	return &frameReader{
		r:      bufio.NewReaderSize(r, size),
		width:  info.Width,
		height: info.Height,
		buf:    make([]byte, size),
	}
}

// ReadFrame returns a frame backed by the reader's buffer; it is valid until
// the next call.
func (fr *frameReader) ReadFrame() (Frame, error) {
	if _, err := io.ReadFull(fr.r, fr.buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.EOF
		}
		return Frame{}, err
	}
	return Frame{Width: fr.width, Height: fr.height, Data: fr.buf}, nil
}

// Decoder decodes a video file with an FFmpeg subprocess writing raw bgr24
// frames to a pipe. Rewinding restarts the subprocess at the beginning.
type Decoder struct {
	ctx    context.Context
	ffmpeg string
	path   string
	info   media.Info

	cmd    *exec.Cmd
	stdout io.ReadCloser
	frames *frameReader
}

// NewDecoder starts decoding path. info must come from media.Probe.
func NewDecoder(ctx context.Context, ffmpeg, path string, info media.Info) (*Decoder, error) {
	d := &Decoder{ctx: ctx, ffmpeg: ffmpeg, path: path, info: info}
	if err := d.start(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Decoder) start() error {
	cmd := exec.CommandContext(d.ctx, d.ffmpeg,
		"-v", "error",
		"-i", d.path,
		"-map", "0:v:0",
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg decode %s: %w", d.path, err)
	}
	d.cmd = cmd
	d.stdout = stdout
	d.frames = newFrameReader(stdout, d.info)
	return nil
}

func (d *Decoder) stop() {
	if d.cmd == nil {
		return
	}
	d.stdout.Close()
	if d.cmd.Process != nil {
		d.cmd.Process.Kill()
	}
	// Killed or finished; the exit status carries nothing useful here.
	if err := d.cmd.Wait(); err != nil && d.ctx.Err() == nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			log.Printf("video: ffmpeg wait: %v", err)
		}
	}
	d.cmd = nil
}

// ReadFrame implements Source.
func (d *Decoder) ReadFrame() (Frame, error) {
	if d.cmd == nil {
		return Frame{}, errors.New("decoder closed")
	}
	return d.frames.ReadFrame()
}

// Rewind implements Source.
func (d *Decoder) Rewind() error {
	d.stop()
	return d.start()
}

// Close implements Source.
func (d *Decoder) Close() error {
	d.stop()
	return nil
}
