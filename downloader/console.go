package downloader

import (
	"io"
	"os"
	"sync"
)

// clearLine returns the cursor to column 0 and erases the line
const clearLine = "\r\x1b[K"

// Console serializes progress bar redraws and log lines onto one terminal.
// Bars redraw in place without a trailing newline, so a log line arriving
// while a bar is on screen first erases it; the next redraw restores it.
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	dirty bool
}

// NewConsole wraps out (stderr when nil)
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stderr
	}
	return &Console{out: out}
}

// Write is the bar side of the console
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.out.Write(p)
	if n > 0 {
		c.dirty = p[n-1] != '\n'
	}
	return n, err
}

// LogWriter returns the writer log output should go through
func (c *Console) LogWriter() io.Writer {
	return consoleLog{c}
}

type consoleLog struct {
	c *Console
}

func (l consoleLog) Write(p []byte) (int, error) {
	l.c.mu.Lock()
	defer l.c.mu.Unlock()

	if l.c.dirty {
		if _, err := io.WriteString(l.c.out, clearLine); err != nil {
			return 0, err
		}
		l.c.dirty = false
	}
	return l.c.out.Write(p)
}
