package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/wesleyorama2/vuload/internal/performance/engine"
	"github.com/wesleyorama2/vuload/internal/performance/metrics"
)

const (
	rule      = "━"
	ruleWidth = 56
	passIcon  = "✓"
	failIcon  = "✗"
)

// palette defines the colors used for the text summary.
type palette struct {
	rule    *color.Color
	title   *color.Color
	value   *color.Color
	dim     *color.Color
	success *color.Color
	warn    *color.Color
	failure *color.Color
	latency *color.Color
}

func newPalette(enabled bool) *palette {
	p := &palette{
		rule:    color.New(color.FgCyan),
		title:   color.New(color.Bold),
		value:   color.New(color.FgCyan),
		dim:     color.New(color.Faint),
		success: color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		failure: color.New(color.FgRed),
		latency: color.New(color.FgBlue),
	}
	for _, c := range []*color.Color{p.rule, p.title, p.value, p.dim, p.success, p.warn, p.failure, p.latency} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// rateColor picks green, yellow or red for a success rate.
func (p *palette) rateColor(rate float64) *color.Color {
	switch {
	case rate >= 0.99:
		return p.success
	case rate >= 0.95:
		return p.warn
	default:
		return p.failure
	}
}

// TextReporter prints the human-readable end-of-run summary.
type TextReporter struct {
	w      io.Writer
	colors *palette
	quiet  bool
}

// NewTextReporter creates a text reporter. Colors are used only when w is a
// terminal and opts.NoColor is unset.
func NewTextReporter(w io.Writer, opts Options) *TextReporter {
	useColors := !opts.NoColor && IsTerminal(w) && supportsColors()
	return &TextReporter{
		w:      w,
		colors: newPalette(useColors),
		quiet:  opts.Quiet,
	}
}

// Print writes the summary.
func (r *TextReporter) Print(s *engine.Summary) {
	c := r.colors

	if r.quiet {
		if s.Passed {
			r.writeln(c.success.Sprint("PASSED"))
		} else {
			r.writeln(c.failure.Sprint("FAILED"))
		}
		return
	}

	line := strings.Repeat(rule, ruleWidth)
	status := c.success.Sprint("Completed " + passIcon)
	if !s.Passed {
		status = c.failure.Sprint("Failed " + failIcon)
	} else if s.Error != "" {
		status = c.warn.Sprint("Interrupted")
	}

	r.writeln("")
	r.writeln(c.rule.Sprint(line))
	r.writef("%s - %s\n", c.title.Sprint(s.Name), status)
	r.writeln(c.rule.Sprint(line))
	r.writeln("")

	r.writef("Run ID:        %s\n", c.dim.Sprint(s.RunID))
	r.writef("Target:        %s\n", c.value.Sprint(s.BaseURL))
	r.writef("VUs:           %s\n", c.value.Sprint(s.VUs))
	r.writef("Duration:      %s %s\n",
		c.value.Sprint(formatDuration(s.Duration)),
		c.dim.Sprintf("(configured %s)", formatDuration(s.Configured)))
	if s.Error != "" {
		r.writef("Interrupted:   %s\n", c.warn.Sprint(s.Error))
	}
	r.writeln("")

	r.printSetup(s)
	r.printChecks(s)
	r.printCounters(s.Metrics)
	r.printLatency(s.Metrics)
	r.printThresholds(s.Thresholds)
}

func (r *TextReporter) printSetup(s *engine.Summary) {
	c := r.colors
	total := s.Setup.Seeded + s.Setup.Failed

	seeded := c.success.Sprintf("%d/%d", s.Setup.Seeded, total)
	if s.Setup.Failed > 0 {
		seeded = c.warn.Sprintf("%d/%d", s.Setup.Seeded, total)
	}
	r.writef("Setup:         %s users seeded in %s\n", seeded, formatDuration(s.Setup.Duration))
	for _, u := range s.Setup.Users {
		if u.OK() {
			continue
		}
		r.writef("  %s %s: %s\n", c.failure.Sprint(failIcon), u.Name, u.Error)
	}
	r.writeln("")
}

func (r *TextReporter) printChecks(s *engine.Summary) {
	c := r.colors
	if len(s.Checks) == 0 {
		return
	}

	width := 0
	for _, res := range s.Checks {
		if len(res.Name) > width {
			width = len(res.Name)
		}
	}

	r.writeln(c.title.Sprint("Checks:"))
	for _, res := range s.Checks {
		icon := c.success.Sprint(passIcon)
		if res.Fails > 0 {
			icon = c.failure.Sprint(failIcon)
		}
		r.writef("  %s %-*s  %s passed  %s failed  (%s)\n",
			icon, width, res.Name,
			formatNumber(res.Passes),
			formatNumber(res.Fails),
			c.rateColor(res.Rate()).Sprintf("%.2f%%", res.Rate()*100))
	}
	r.writef("  %s\n", c.dim.Sprintf("overall pass rate %.2f%%", s.CheckPassRate*100))
	r.writeln("")
}

func (r *TextReporter) printCounters(m *metrics.Snapshot) {
	c := r.colors
	if m == nil {
		return
	}

	successRate := 1.0 - m.ErrorRate
	r.writef("Requests:      %s %s\n",
		c.value.Sprint(formatNumber(m.TotalRequests)),
		c.dim.Sprintf("(%.1f/s)", m.RPS))
	r.writef("Failed:        %s %s\n",
		c.rateColor(successRate).Sprint(formatNumber(m.FailedRequests)),
		c.rateColor(successRate).Sprintf("(%.2f%%)", m.ErrorRate*100))
	r.writef("Iterations:    %s\n", c.value.Sprint(formatNumber(m.Iterations)))
	r.writef("Data received: %s\n", c.value.Sprint(formatBytes(m.TotalBytes)))
	r.writeln("")
}

func (r *TextReporter) printLatency(m *metrics.Snapshot) {
	c := r.colors
	if m == nil {
		return
	}

	r.writeln(c.title.Sprint("Latency Distribution:"))
	r.latencyRow("Min", m.Latency.Min)
	r.latencyRow("Avg", m.Latency.Mean)
	r.latencyRow("P50", m.Latency.P50)
	r.latencyRow("P90", m.Latency.P90)
	r.latencyRow("P95", m.Latency.P95)
	r.latencyRow("P99", m.Latency.P99)
	r.latencyRow("Max", m.Latency.Max)
	r.writeln("")

	if m.Iterations > 0 {
		r.writef("%s avg=%s p95=%s max=%s\n",
			c.title.Sprint("Iteration Duration:"),
			formatDurationShort(m.IterationDuration.Mean),
			formatDurationShort(m.IterationDuration.P95),
			formatDurationShort(m.IterationDuration.Max))
		r.writeln("")
	}
}

func (r *TextReporter) latencyRow(label string, d time.Duration) {
	r.writef("  %-4s       %s\n", label+":", r.colors.latency.Sprint(formatDurationShort(d)))
}

func (r *TextReporter) printThresholds(results []engine.ThresholdResult) {
	c := r.colors
	if len(results) == 0 {
		return
	}

	r.writeln(c.title.Sprint("Thresholds:"))
	for _, t := range results {
		icon := c.success.Sprint(passIcon)
		if !t.Passed {
			icon = c.failure.Sprint(failIcon)
		}
		actual := t.Value
		if actual == "" {
			actual = "n/a"
		}
		r.writef("  %s %s %s (actual: %s)\n", icon, t.Metric, t.Expression, actual)
		if !t.Passed && t.Message != "" {
			r.writef("      %s\n", c.dim.Sprint(t.Message))
		}
	}
	r.writeln("")
}

func (r *TextReporter) writeln(s string) {
	fmt.Fprintln(r.w, s)
}

func (r *TextReporter) writef(format string, args ...interface{}) {
	fmt.Fprintf(r.w, format, args...)
}
