package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/doeshing/nlsh/internal/ports"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows "<frame> label (Ns)" on one line while a provider call is
// in flight. It is a no-op unless w is a terminal.
type Spinner struct {
	w       io.Writer
	tty     bool
	tick    time.Duration
	frame   lipgloss.Style
	elapsed lipgloss.Style

	mu   sync.Mutex
	done chan struct{}
	wg   sync.WaitGroup
}

func NewSpinner(w io.Writer) *Spinner {
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Spinner{
		w:       w,
		tty:     tty,
		tick:    80 * time.Millisecond,
		frame:   lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		elapsed: lipgloss.NewStyle().Faint(true),
	}
}

// Start is ignored while a previous Start is still active.
func (s *Spinner) Start(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tty || s.done != nil {
		return
	}
	done := make(chan struct{})
	s.done = done
	s.wg.Add(1)
	go s.loop(label, done)
}

func (s *Spinner) loop(label string, done <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	started := time.Now()
	for i := 0; ; i++ {
		secs := int(time.Since(started).Seconds())
		fmt.Fprintf(s.w, "\r%s %s %s", s.frame.Render(spinnerFrames[i%len(spinnerFrames)]), label,
			s.elapsed.Render(fmt.Sprintf("(%ds)", secs)))
		select {
		case <-done:
			fmt.Fprint(s.w, "\r\033[K")
			return
		case <-ticker.C:
		}
	}
}

// Stop clears the line and waits for the animation goroutine to exit.
func (s *Spinner) Stop() {
	s.mu.Lock()
	done := s.done
	s.done = nil
	s.mu.Unlock()
	if done == nil {
		return
	}
	close(done)
	s.wg.Wait()
}

var _ ports.StatusIndicator = (*Spinner)(nil)
