package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/devicelab-dev/contacts-runner/pkg/core"
	"github.com/devicelab-dev/contacts-runner/pkg/suite"
)

var (
	colorPrimary = lipgloss.Color("63")
	colorSuccess = lipgloss.Color("78")
	colorWarning = lipgloss.Color("214")
	colorError   = lipgloss.Color("196")
	colorSubtle  = lipgloss.Color("241")

	titleStyle   = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	passStyle    = lipgloss.NewStyle().Foreground(colorSuccess)
	skipStyle    = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	dimStyle     = lipgloss.NewStyle().Foreground(colorSubtle)
	boldStyle    = lipgloss.NewStyle().Bold(true)
	summaryStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorSubtle).
			Padding(0, 1)
)

// disableColors strips all styling, for NO_COLOR and --no-color.
func disableColors() {
	for _, s := range []*lipgloss.Style{&titleStyle, &passStyle, &skipStyle, &errorStyle, &dimStyle, &boldStyle} {
		*s = lipgloss.NewStyle()
	}
	summaryStyle = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).Padding(0, 1)
}

// progress prints live scenario progress. Callbacks may arrive from
// several workers at once.
type progress struct {
	w     io.Writer
	total int

	mu      sync.Mutex
	started int
}

func (p *progress) onTestStart(owner string, sc suite.Scenario) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started++
	fmt.Fprintf(p.w, "  %s %s %s\n",
		titleStyle.Render(fmt.Sprintf("[%d/%d]", p.started, p.total)),
		boldStyle.Render(sc.FullName()),
		dimStyle.Render("("+owner+")"))
}

func (p *progress) onTestEnd(res core.TestResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	name := res.Class + "." + res.Name
	dur := dimStyle.Render(formatDuration(res.Duration))
	switch {
	case res.Status == core.StatusPassed:
		fmt.Fprintf(p.w, "    %s %s %s\n", passStyle.Render("✓"), name, dur)
	case res.Status == core.StatusSkipped:
		fmt.Fprintf(p.w, "    %s %s %s\n", skipStyle.Render("-"), name, dur)
	default:
		fmt.Fprintf(p.w, "    %s %s %s\n", errorStyle.Render("✗"), name, dur)
		if res.Error != "" {
			fmt.Fprintf(p.w, "      %s %s\n", dimStyle.Render("╰─"), firstLine(res.Error))
		}
	}
}

// printSummary prints the per-test table and totals.
func printSummary(w io.Writer, res *suite.Result) {
	var b strings.Builder
	fmt.Fprintf(&b, "%-52s %-8s %10s\n", "Test", "Status", "Duration")
	b.WriteString(strings.Repeat("─", 72) + "\n")
	for _, t := range res.Tests {
		name := t.Class + "." + t.Name
		if len(name) > 52 {
			name = name[:49] + "..."
		}
		fmt.Fprintf(&b, "%-52s %s %10s\n", name, statusLabel(t.Status), formatDuration(t.Duration))
	}
	b.WriteString(strings.Repeat("─", 72) + "\n")

	totals := fmt.Sprintf("%d passed", res.Passed)
	if res.Failed > 0 {
		totals += ", " + errorStyle.Render(fmt.Sprintf("%d failed", res.Failed))
	}
	if res.Skipped > 0 {
		totals += ", " + skipStyle.Render(fmt.Sprintf("%d skipped", res.Skipped))
	}
	fmt.Fprintf(&b, "%s  %s of %d in %s",
		boldStyle.Render("TOTAL"), totals, res.Total, formatDuration(res.Duration))

	fmt.Fprintln(w)
	fmt.Fprintln(w, summaryStyle.Render(b.String()))
	if res.ReportPath != "" {
		fmt.Fprintf(w, "  Report: %s\n", res.ReportPath)
	}
}

func statusLabel(s core.TestStatus) string {
	label := fmt.Sprintf("%-8s", strings.ToUpper(s.String()))
	switch {
	case s == core.StatusPassed:
		return passStyle.Render(label)
	case s == core.StatusSkipped:
		return skipStyle.Render(label)
	case s.IsFailure():
		return errorStyle.Render(label)
	default:
		return label
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

// formatDuration shows milliseconds below one second, seconds below a
// minute, and minutes with seconds otherwise.
func formatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm %ds", mins, secs)
}
