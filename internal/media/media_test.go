package media

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/satindergrewal/loopcam/internal/journal"
)

// --- AudioPath ---

func TestAudioPath(t *testing.T) {
	tests := []struct {
		video string
		want  string
	}{
		{"clip.mp4", "clip.wav"},
		{"/videos/meeting.mov", "/videos/meeting.wav"},
		{"/videos/my.holiday.mkv", "/videos/my.holiday.wav"},
		{"/videos.d/noext", "/videos.d/noext.wav"},
		{"/videos/.hidden", "/videos/.hidden.wav"},
		{"relative/dir/a.MP4", "relative/dir/a.wav"},
	}
	for _, tt := range tests {
		if got := AudioPath(tt.video, ".wav"); got != tt.want {
			t.Errorf("AudioPath(%q) = %q, want %q", tt.video, got, tt.want)
		}
	}
}

// --- ParseRate ---

func TestParseRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"25", 25},
		{"30000/1001", 30000.0 / 1001.0},
		{"0/0", 0},
		{"", 0},
		{"abc", 0},
		{"30/x", 0},
	}
	for _, tt := range tests {
		got := ParseRate(tt.in)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ParseRate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// --- parseProbe ---

func TestParseProbe(t *testing.T) {
	data := []byte(`{"streams":[{"width":1280,"height":720,"avg_frame_rate":"30/1","r_frame_rate":"60/1"}]}`)
	info, err := parseProbe(data, 30)
	if err != nil {
		t.Fatalf("parseProbe: %v", err)
	}
	if info.Width != 1280 || info.Height != 720 || info.FPS != 30 {
		t.Errorf("info = %+v, want 1280x720@30", info)
	}
	if info.FrameSize() != 1280*720*3 {
		t.Errorf("FrameSize = %d, want %d", info.FrameSize(), 1280*720*3)
	}
}

func TestParseProbeRotation(t *testing.T) {
	tests := []struct {
		name string
		json string
		w, h int
	}{
		{"display matrix", `{"streams":[{"width":1920,"height":1080,"avg_frame_rate":"30/1","side_data_list":[{"side_data_type":"Display Matrix","rotation":-90}]}]}`, 1080, 1920},
		{"rotate tag", `{"streams":[{"width":1920,"height":1080,"avg_frame_rate":"30/1","tags":{"rotate":"270"}}]}`, 1080, 1920},
		{"upside down", `{"streams":[{"width":1920,"height":1080,"avg_frame_rate":"30/1","side_data_list":[{"rotation":180}]}]}`, 1920, 1080},
		{"unrelated side data", `{"streams":[{"width":1920,"height":1080,"avg_frame_rate":"30/1","side_data_list":[{"side_data_type":"CPB properties"}]}]}`, 1920, 1080},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := parseProbe([]byte(tt.json), 30)
			if err != nil {
				t.Fatalf("parseProbe: %v", err)
			}
			if info.Width != tt.w || info.Height != tt.h {
				t.Errorf("geometry = %dx%d, want %dx%d", info.Width, info.Height, tt.w, tt.h)
			}
		})
	}
}

func TestParseProbeRateFallbacks(t *testing.T) {
	data := []byte(`{"streams":[{"width":640,"height":480,"avg_frame_rate":"0/0","r_frame_rate":"25/1"}]}`)
	info, err := parseProbe(data, 30)
	if err != nil {
		t.Fatalf("parseProbe: %v", err)
	}
	if info.FPS != 25 {
		t.Errorf("FPS = %v, want r_frame_rate fallback 25", info.FPS)
	}

	data = []byte(`{"streams":[{"width":640,"height":480,"avg_frame_rate":"0/0","r_frame_rate":"0/0"}]}`)
	info, err = parseProbe(data, 24)
	if err != nil {
		t.Fatalf("parseProbe: %v", err)
	}
	if info.FPS != 24 {
		t.Errorf("FPS = %v, want configured fallback 24", info.FPS)
	}
}

func TestParseProbeNoVideo(t *testing.T) {
	for _, data := range []string{
		`{"streams":[]}`,
		`{}`,
		`{"streams":[{"width":0,"height":0}]}`,
	} {
		if _, err := parseProbe([]byte(data), 30); !errors.Is(err, ErrNoVideoStream) {
			t.Errorf("parseProbe(%s) err = %v, want ErrNoVideoStream", data, err)
		}
	}
}

func TestParseProbeGarbage(t *testing.T) {
	if _, err := parseProbe([]byte("not json"), 30); err == nil {
		t.Error("expected decode error")
	}
}

// --- Extractor ---

type recordedRun struct {
	name string
	args []string
}

func newTestExtractor(t *testing.T, runErr error, create bool) (*Extractor, *[]recordedRun, *bytes.Buffer) {
	t.Helper()
	j := journal.New(filepath.Join(t.TempDir(), "log.txt"))
	var echo bytes.Buffer
	j.SetEcho(&echo)

	var runs []recordedRun
	e := NewExtractor("ffmpeg", ".wav", j)
	e.run = func(ctx context.Context, name string, args ...string) error {
		runs = append(runs, recordedRun{name: name, args: args})
		if create {
			// output path precedes the trailing -y
			os.WriteFile(args[len(args)-2], []byte("RIFF"), 0o644)
		}
		return runErr
	}
	return e, &runs, &echo
}

func TestExtractSkipsExisting(t *testing.T) {
	e, runs, echo := newTestExtractor(t, nil, false)
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	audio := filepath.Join(dir, "clip.wav")
	os.WriteFile(audio, []byte("RIFF"), 0o644)

	got, err := e.Extract(context.Background(), video)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != audio {
		t.Errorf("Extract = %q, want %q", got, audio)
	}
	if len(*runs) != 0 {
		t.Errorf("ffmpeg ran %d times for existing audio, want 0", len(*runs))
	}
	if echo.Len() != 0 {
		t.Errorf("unexpected log output %q", echo.String())
	}
}

func TestExtractRunsFFmpeg(t *testing.T) {
	e, runs, echo := newTestExtractor(t, nil, true)
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	audio := filepath.Join(dir, "clip.wav")

	got, err := e.Extract(context.Background(), video)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != audio {
		t.Errorf("Extract = %q, want %q", got, audio)
	}
	if len(*runs) != 1 {
		t.Fatalf("ffmpeg ran %d times, want 1", len(*runs))
	}
	r := (*runs)[0]
	want := []string{"-i", video, "-q:a", "0", "-map", "a", "-ac", "2", audio, "-y"}
	if r.name != "ffmpeg" || strings.Join(r.args, " ") != strings.Join(want, " ") {
		t.Errorf("ran %s %v, want ffmpeg %v", r.name, r.args, want)
	}
	if !strings.Contains(echo.String(), "Extracting audio") {
		t.Errorf("missing extraction notice, log = %q", echo.String())
	}

	// Second call finds the file and does not run again.
	e.Extract(context.Background(), video)
	if len(*runs) != 1 {
		t.Errorf("ffmpeg ran again for existing output")
	}
}

func TestExtractIgnoresTranscoderFailure(t *testing.T) {
	e, _, _ := newTestExtractor(t, errors.New("exit status 1"), false)
	video := filepath.Join(t.TempDir(), "silent.mp4")

	got, err := e.Extract(context.Background(), video)
	if err != nil {
		t.Fatalf("transcoder failure should not be an error, got %v", err)
	}
	if got != AudioPath(video, ".wav") {
		t.Errorf("Extract = %q, want derived path", got)
	}
}

func TestExtractCancelled(t *testing.T) {
	e, _, _ := newTestExtractor(t, context.Canceled, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Extract(ctx, filepath.Join(t.TempDir(), "a.mp4")); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
