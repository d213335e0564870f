// Package progress provides terminal feedback for batch calculation runs:
// an in-place bar on interactive terminals, structured log lines otherwise.
package progress

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// Mode selects how progress is rendered.
type Mode string

const (
	ModeAuto  Mode = "auto"  // bar on a TTY, plain log lines otherwise
	ModePlain Mode = "plain" // periodic log lines
	ModeJSON  Mode = "json"  // structured log events only
)

// ParseMode maps a CLI flag value onto a Mode, defaulting to auto.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModePlain:
		return ModePlain
	case ModeJSON:
		return ModeJSON
	default:
		return ModeAuto
	}
}

// Indicator tracks completion of a fixed number of units.
type Indicator struct {
	mu         sync.Mutex
	name       string
	total      int
	current    int
	start      time.Time
	lastRender time.Time
	useBar     bool
}

// New creates an indicator for total units under the given mode.
func New(name string, total int, mode Mode) *Indicator {
	useBar := mode == ModeAuto && term.IsTerminal(int(os.Stderr.Fd()))
	return &Indicator{
		name:   name,
		total:  total,
		start:  time.Now(),
		useBar: useBar,
	}
}

// Increment records one completed unit and re-renders if due.
func (p *Indicator) Increment() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current++
	if p.useBar {
		p.renderBar()
		return
	}
	// Log at most once a second to keep non-TTY output readable.
	if time.Since(p.lastRender) >= time.Second || p.current == p.total {
		p.lastRender = time.Now()
		log.Info().
			Str("task", p.name).
			Int("done", p.current).
			Int("total", p.total).
			Msg("Progress")
	}
}

// Finish renders the final state and reports elapsed time.
func (p *Indicator) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.useBar {
		p.renderBar()
		fmt.Fprintln(os.Stderr)
	}
	log.Info().
		Str("task", p.name).
		Int("done", p.current).
		Int("total", p.total).
		Dur("elapsed", time.Since(p.start)).
		Msg("Completed")
}

func (p *Indicator) renderBar() {
	const width = 30
	filled := 0
	if p.total > 0 {
		filled = p.current * width / p.total
	}
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("=", filled) + strings.Repeat("-", width-filled)
	fmt.Fprintf(os.Stderr, "\r%s [%s] %d/%d", p.name, bar, p.current, p.total)
}
