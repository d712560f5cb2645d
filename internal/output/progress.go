package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// writerIsTTY returns true if the given writer exposes an Fd() method
// (e.g. *os.File) and that fd is a terminal. Falls back to false for
// plain io.Writer values such as *bytes.Buffer.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

// Download renders the catalog download as a byte-counting progress bar.
// Its Start method satisfies aur.ProgressFunc.
type Download struct {
	mu          sync.Mutex
	writer      io.Writer
	description string
	bar         *progressbar.ProgressBar
	force       bool // render on non-TTY writers (tests)
}

// NewDownload creates a download progress display writing to w.
func NewDownload(w io.Writer, description string) *Download {
	return &Download{writer: w, description: description}
}

// Start begins a bar for a body of total bytes (-1 when unknown) and
// returns the writer the body should be teed into. On a non-TTY writer it
// returns nil so no progress is drawn.
func (d *Download) Start(total int64) io.Writer {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.force && !writerIsTTY(d.writer) {
		return nil
	}

	d.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(d.writer),
		progressbar.OptionSetDescription(d.description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSpinnerType(10),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	// Draw the description before the first throttled update.
	_ = d.bar.RenderBlank()
	return d.bar
}

// Finish completes the bar if one was started.
func (d *Download) Finish() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.bar != nil {
		_ = d.bar.Finish()
		d.bar = nil
	}
}

// Spinner displays an animated spinner with a message and the elapsed
// time, e.g. "|  Loading catalog (3s)".
type Spinner struct {
	mu      sync.Mutex
	writer  io.Writer
	message string
	frames  []string
	started time.Time
	running bool
	done    chan struct{}
	stopped chan struct{}
}

// NewSpinner creates a spinner writing to stdout.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		writer:  os.Stdout,
		message: message,
		frames:  []string{"|", "/", "-", "\\"},
	}
}

// SetWriter sets the output writer (useful for testing).
func (s *Spinner) SetWriter(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer = w
}

// Start begins the animation. On a non-TTY writer the message is printed
// once and nothing is animated.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.started = time.Now()

	if !writerIsTTY(s.writer) {
		fmt.Fprintf(s.writer, "%s...\n", s.message)
		return
	}

	s.done = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.animate(s.done, s.stopped)
}

func (s *Spinner) animate(done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.mu.Lock()
			fmt.Fprintf(s.writer, "\r%s  %s", s.frames[i%len(s.frames)], s.line())
			s.mu.Unlock()
		}
	}
}

// line must be called with the lock held.
func (s *Spinner) line() string {
	return fmt.Sprintf("%s (%ds)", s.message, int(time.Since(s.started).Seconds()))
}

// UpdateMessage replaces the message while the spinner runs.
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	done, stopped := s.done, s.stopped
	s.done, s.stopped = nil, nil
	s.mu.Unlock()

	if done == nil {
		return
	}
	close(done)
	<-stopped

	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.writer, "\r%s\r", strings.Repeat(" ", len(s.line())+4))
}

// StopWithMessage stops the spinner and prints a final message.
func (s *Spinner) StopWithMessage(message string) {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.writer, message)
}
