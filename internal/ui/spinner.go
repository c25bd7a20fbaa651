package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Braille scan frames.
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

const spinnerInterval = 80 * time.Millisecond

// Spinner animates a label on one line until Success or Fail settles it.
type Spinner struct {
	w     io.Writer
	label string

	mu    sync.Mutex
	start time.Time
	stop  chan struct{}
	done  chan struct{}
}

// NewSpinner creates a spinner writing to w.
func NewSpinner(w io.Writer, label string) *Spinner {
	return &Spinner{w: w, label: label}
}

// Start begins the animation. Calling it twice is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.start = time.Now()
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.animate(s.stop, s.done)
}

func (s *Spinner) animate(stop, done chan struct{}) {
	defer close(done)
	frame := lipgloss.NewStyle().Foreground(ColorSecondary)
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		s.mu.Lock()
		fmt.Fprintf(s.w, "\r%s %s", frame.Render(spinnerFrames[i%len(spinnerFrames)]), s.label)
		s.mu.Unlock()

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// Success settles the line with a check mark and the elapsed time.
func (s *Spinner) Success(msg string) {
	s.settle(lipgloss.NewStyle().Foreground(ColorSuccess).Render(SymbolSuccess), msg)
}

// Fail settles the line with a cross.
func (s *Spinner) Fail(msg string) {
	s.settle(lipgloss.NewStyle().Foreground(ColorError).Render(SymbolFail), msg)
}

func (s *Spinner) settle(symbol, msg string) {
	s.mu.Lock()
	stop, done, start := s.stop, s.done, s.start
	s.stop = nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	if msg == "" {
		msg = s.label
	}

	elapsed := ""
	if !start.IsZero() {
		elapsed = lipgloss.NewStyle().Foreground(ColorMuted).
			Render(fmt.Sprintf(" (%.1fs)", time.Since(start).Seconds()))
	}
	fmt.Fprintf(s.w, "\r\033[K%s %s%s\n", symbol, msg, elapsed)
}
