// Package journal writes operator-facing messages to an append-only log file
// and echoes them to the terminal.
package journal

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Journal is an append-only text log. Each message becomes one line in the
// file and one line on the echo writer.
type Journal struct {
	path string
	echo io.Writer

	mu sync.Mutex
}

// New creates a journal writing to path and echoing to os.Stdout.
func New(path string) *Journal {
	return &Journal{path: path, echo: os.Stdout}
}

// SetEcho replaces the writer messages are echoed to.
func (j *Journal) SetEcho(w io.Writer) {
	j.mu.Lock()
	j.echo = w
	j.mu.Unlock()
}

// Path returns the log file path.
func (j *Journal) Path() string {
	return j.path
}

// Log appends msg to the log file and echoes it. A file error is returned
// after the echo has been written.
func (j *Journal) Log(msg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	fmt.Fprintln(j.echo, msg)

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	if _, err := f.WriteString(msg + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("write log: %w", err)
	}
	return f.Close()
}

// Logf formats and logs a message.
func (j *Journal) Logf(format string, args ...any) error {
	return j.Log(fmt.Sprintf(format, args...))
}

// Clear truncates the log file, creating it when missing.
func (j *Journal) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("clear log: %w", err)
	}
	return f.Close()
}
