package output

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/wesleyorama2/vuload/internal/performance/engine"
)

// LiveSource returns the current state of a run, or false before it starts.
type LiveSource func() (engine.Live, bool)

// ProgressOptions configures a Progress printer.
type ProgressOptions struct {
	Interval time.Duration
	Quiet    bool
	// ForceTTY redraws a single line even if the writer is not a terminal
	ForceTTY bool
}

// Progress prints a live status line while a run is in progress. On a
// terminal the line is redrawn in place; otherwise one line is printed per
// interval.
type Progress struct {
	w        io.Writer
	interval time.Duration
	tty      bool
	quiet    bool

	mu      sync.Mutex
	lastLen int
}

// NewProgress creates a progress printer writing to w.
func NewProgress(w io.Writer, opts ProgressOptions) *Progress {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	return &Progress{
		w:        w,
		interval: opts.Interval,
		tty:      opts.ForceTTY || IsTerminal(w),
		quiet:    opts.Quiet,
	}
}

// Run prints updates from source until ctx is done.
func (p *Progress) Run(ctx context.Context, source LiveSource) {
	if p.quiet {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.Finish()
			return
		case <-ticker.C:
			if live, ok := source(); ok {
				p.Print(live)
			}
		}
	}
}

// Print writes one update.
func (p *Progress) Print(l engine.Live) {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := Render(l)
	if !p.tty {
		fmt.Fprintln(p.w, line)
		return
	}

	pad := ""
	if n := p.lastLen - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprint(p.w, "\r"+line+pad)
	p.lastLen = len(line)
}

// Finish terminates a redrawn line.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tty && p.lastLen > 0 {
		fmt.Fprintln(p.w)
		p.lastLen = 0
	}
}

// Render formats a status line.
func Render(l engine.Live) string {
	return fmt.Sprintf("[%s] %-6s %3.0f%% | VUs: %d | Reqs: %s | Iters: %s | Failed: %s | Checks: %.2f%%",
		formatDuration(l.Elapsed),
		l.Phase,
		l.Progress*100,
		l.ActiveVUs,
		formatNumber(l.Requests),
		formatNumber(l.Iterations),
		formatNumber(l.Failed),
		l.CheckPassRate*100)
}
