package stream

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/satindergrewal/loopcam/internal/audio"
)

// passthroughEncoder writes an "ffmpeg" that copies PCM from stdin to stdout
// and records its arguments.
func passthroughEncoder(t *testing.T) (bin, argsFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	dir := t.TempDir()
	bin = filepath.Join(dir, "ffmpeg")
	argsFile = filepath.Join(dir, "args.txt")
	script := "#!/bin/sh\necho \"$@\" > " + argsFile + "\nexec cat\n"
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return bin, argsFile
}

func TestTapThroughHTTPStream(t *testing.T) {
	bin, argsFile := passthroughEncoder(t)

	tap := audio.NewTap()
	// 5.1 source: the monitor only ever carries the front pair.
	tap.Configure(beep.Format{SampleRate: 1000, NumChannels: 6, Precision: 2})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := NewBroadcaster()
	go b.Run(ctx, tap.Frames())

	srv := httptest.NewServer(NewHTTPHandler(b, tap.Format, bin))
	defer srv.Close()

	// Headers go out with the first encoded bytes, so request in the
	// background and feed the tap once the listener is subscribed.
	type result struct {
		resp *http.Response
		err  error
	}
	respCh := make(chan result, 1)
	go func() {
		resp, err := http.Get(srv.URL)
		respCh <- result{resp, err}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for b.ListenerCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("HTTP listener never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// 20 frames at 1 kHz is exactly one 20ms monitor frame.
	chunk := make([][2]float64, 20)
	for i := range chunk {
		chunk[i] = [2]float64{0.5, -0.5}
	}
	tap.Write(chunk)

	var r result
	select {
	case r = <-respCh:
	case <-time.After(2 * time.Second):
		t.Fatal("no response after tapping a frame")
	}
	if r.err != nil {
		t.Fatalf("GET: %v", r.err)
	}
	resp := r.resp
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("Content-Type = %q", ct)
	}

	want := audio.SamplesToBytes(audio.ToInt16(chunk, 2))
	got := make([]byte, len(want))
	if _, err := io.ReadFull(resp.Body, got); err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("streamed bytes differ from tapped PCM\ngot  %v\nwant %v", got[:8], want[:8])
	}

	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(args), "-ar 1000 -ac 2") {
		t.Errorf("encoder args %q, want 1000 Hz stereo input", args)
	}
}
