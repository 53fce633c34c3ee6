// Package session drives loopcam's interactive text menu.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/satindergrewal/loopcam/internal/journal"
)

var (
	// ErrNoVideoSelected is returned when streaming is requested before a
	// video was chosen.
	ErrNoVideoSelected = errors.New("no video selected")
	// ErrInvalidPath is returned when the chosen path does not exist.
	ErrInvalidPath = errors.New("video file not found")
)

const menu = "\n1. Choose video\n2. Start live stream\n3. Clear log\n4. Exit\n"

// Streamer runs a streaming session until ctx is cancelled.
type Streamer interface {
	StreamLoop(ctx context.Context, videoPath string) error
}

// State is what the controller remembers between menu iterations.
type State struct {
	VideoPath string
}

// Selected reports whether a video has been chosen.
func (s State) Selected() bool {
	return s.VideoPath != ""
}

// Controller reads menu choices from in and writes prompts to out.
type Controller struct {
	in       io.Reader
	out      io.Writer
	log      *journal.Journal
	streamer Streamer

	state State

	lines    chan string
	done     chan struct{}
	readOnce sync.Once
}

// NewController creates a controller. Menu prompts go to out; operator
// messages go through log.
func NewController(in io.Reader, out io.Writer, log *journal.Journal, streamer Streamer) *Controller {
	return &Controller{
		in:       in,
		out:      out,
		log:      log,
		streamer: streamer,
		lines:    make(chan string),
		done:     make(chan struct{}),
	}
}

// State returns the current session state.
func (c *Controller) State() State {
	return c.state
}

// Run shows the menu until the operator exits, stdin closes or ctx is
// cancelled (interrupt). All three end with the farewell message and a nil
// error.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)

	for {
		fmt.Fprint(c.out, menu)
		choice, err := c.prompt(ctx, "Enter choice: ")
		if err != nil {
			c.farewell(true)
			return nil
		}

		switch strings.TrimSpace(choice) {
		case "1":
			path, err := c.prompt(ctx, "Enter video path: ")
			if err != nil {
				c.farewell(true)
				return nil
			}
			c.Select(path)
		case "2":
			c.Start(ctx)
			if ctx.Err() != nil {
				c.farewell(true)
				return nil
			}
		case "3":
			if err := c.ClearLog(); err != nil {
				fmt.Fprintf(c.out, "❌ Error: %v\n", err)
			}
		case "4":
			c.farewell(false)
			return nil
		default:
			fmt.Fprintln(c.out, "❌ Invalid choice, try again.")
		}
	}
}

// Select stores path as the current video if it exists on disk. Otherwise
// the state is left untouched.
func (c *Controller) Select(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		c.log.Log("❌ Error: Video file not found.")
		return ErrInvalidPath
	}
	if _, err := os.Stat(path); err != nil {
		c.log.Log("❌ Error: Video file not found.")
		return fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}
	c.state.VideoPath = path
	c.log.Logf("🎬 Video selected: %s", path)
	return nil
}

// Start streams the selected video until ctx is cancelled or the session
// fails.
func (c *Controller) Start(ctx context.Context) error {
	if !c.state.Selected() {
		c.log.Log("⚠️ Please choose a video first!")
		return ErrNoVideoSelected
	}
	return c.streamer.StreamLoop(ctx, c.state.VideoPath)
}

// ClearLog empties the log file.
func (c *Controller) ClearLog() error {
	if err := c.log.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "\n🧹 Log cleared!")
	return nil
}

func (c *Controller) farewell(interrupted bool) {
	if interrupted {
		fmt.Fprintln(c.out)
	}
	fmt.Fprintln(c.out, "👋 Exiting...")
}

// prompt writes label and waits for one line of input.
func (c *Controller) prompt(ctx context.Context, label string) (string, error) {
	c.readOnce.Do(func() { go c.readLines() })
	fmt.Fprint(c.out, label)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
}

// readLines feeds stdin lines to prompt so a blocked read never holds up
// an interrupt.
func (c *Controller) readLines() {
	defer close(c.lines)
	sc := bufio.NewScanner(c.in)
	for sc.Scan() {
		select {
		case c.lines <- sc.Text():
		case <-c.done:
			return
		}
	}
}
