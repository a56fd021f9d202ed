// Package spinner shows progress on stderr while a blocking call runs.
package spinner

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// WaitingMessages rotate while a completion is in flight.
var WaitingMessages = []string{
	"consultando a watsonx...",
	"pensando...",
	"redactando respuesta...",
}

// ScrapingMessages rotate while issue pages download.
var ScrapingMessages = []string{
	"descargando issues...",
	"recorriendo la búsqueda...",
}

var (
	frameColor   = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
)

// Spinner animates on a terminal and stays silent otherwise.
type Spinner struct {
	out         io.Writer
	animate     bool
	messages    []string
	frames      []string
	interval    time.Duration
	msgInterval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a spinner on stderr.
func New(messages []string) *Spinner {
	return NewWriter(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), messages)
}

// NewWriter creates a spinner on out. Without animate, Start is a no-op and
// the Stop helpers print plain result lines.
func NewWriter(out io.Writer, animate bool, messages []string) *Spinner {
	if len(messages) == 0 {
		messages = WaitingMessages
	}
	return &Spinner{
		out:         out,
		animate:     animate,
		messages:    messages,
		frames:      []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		interval:    80 * time.Millisecond,
		msgInterval: 2 * time.Second,
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	if !s.animate {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.run(s.stopCh, s.doneCh)
}

func (s *Spinner) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	fmt.Fprint(s.out, "\033[?25l")
	frame, msg := 0, 0
	lastMsgChange := time.Now()
	for {
		select {
		case <-stop:
			fmt.Fprint(s.out, "\r\033[K\033[?25h")
			return
		case <-ticker.C:
			if time.Since(lastMsgChange) >= s.msgInterval {
				msg = (msg + 1) % len(s.messages)
				lastMsgChange = time.Now()
			}
			frame = (frame + 1) % len(s.frames)
			fmt.Fprintf(s.out, "\r\033[K%s %s", frameColor.Sprint(s.frames[frame]), s.messages[msg])
		}
	}
}

// Stop clears the spinner line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stop)
	<-done
}

// StopWithSuccess stops and prints msg with a check mark.
func (s *Spinner) StopWithSuccess(msg string) {
	s.Stop()
	fmt.Fprintf(s.out, "%s %s\n", successColor.Sprint("✓"), msg)
}

// StopWithError stops and prints msg with a cross.
func (s *Spinner) StopWithError(msg string) {
	s.Stop()
	fmt.Fprintf(s.out, "%s %s\n", errorColor.Sprint("✗"), msg)
}
