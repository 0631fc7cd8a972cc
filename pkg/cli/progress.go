package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"mercator-hq/auditor/pkg/outcome"
	"mercator-hq/auditor/pkg/policy"
)

// ProgressReporter reports progress for long-running operations.
type ProgressReporter interface {
	Start(total int64)
	Update(current int64)
	Finish()
	Error(err error)
}

// RuleProgress renders a progress bar advanced by policy output callbacks.
// It satisfies runner.Progress.
type RuleProgress struct {
	mu      sync.Mutex
	total   int64
	current int64
	failed  int64
	last    string
	started time.Time
	writer  io.Writer
}

// NewProgressReporter creates a reporter that writes to w. If w is nil, it
// defaults to os.Stderr.
func NewProgressReporter(w io.Writer) *RuleProgress {
	if w == nil {
		w = os.Stderr
	}
	return &RuleProgress{writer: w}
}

// IsTerminal reports whether w is an interactive terminal. Progress bars
// are only drawn on terminals.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Start initializes the progress reporter with the total number of rules.
func (p *RuleProgress) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.current = 0
	p.failed = 0
	p.last = ""
	p.started = time.Now()

	p.render()
}

// Update sets the number of finished rules.
func (p *RuleProgress) Update(current int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = current
	p.render()
}

// Rule advances the bar by one finished rule. It has the signature of a
// policy.Callback.
func (p *RuleProgress) Rule(msg *policy.RuleMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current++
	if msg.Outcome == outcome.Fail || msg.Outcome == outcome.Error {
		p.failed++
	}
	p.last = msg.RuleID
	p.render()
	return nil
}

// Finish marks the progress as complete.
func (p *RuleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.last = ""
	p.render()
	fmt.Fprintln(p.writer)
}

// Error reports an error during progress.
func (p *RuleProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.writer, "\n✗ Error: %v\n", err)
}

func (p *RuleProgress) render() {
	if p.total == 0 {
		return
	}

	current := min(p.current, p.total)
	percent := float64(current) / float64(p.total) * 100
	barWidth := 30
	filled := int(float64(barWidth) * percent / 100)

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	rate := 0.0
	if elapsed := time.Since(p.started).Seconds(); elapsed > 0 {
		rate = float64(current) / elapsed
	}

	// \033[K clears the remainder of a longer previous line.
	fmt.Fprintf(p.writer, "\rRules: [%s] %.1f%% (%d/%d, %d failing) %.1f rules/s %s\033[K",
		bar, percent, current, p.total, p.failed, rate, p.last)
}
