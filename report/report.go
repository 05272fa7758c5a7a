// Package report formats benchmark results and comparisons into tables
// and an optional terminal bar chart.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/weiihann/benchoor/compare"
	"github.com/weiihann/benchoor/harness"
)

// Summary writes a markdown table of one run's results.
func Summary(w io.Writer, set *harness.ResultSet) error {
	results := set.Ordered()
	if len(results) == 0 {
		return fmt.Errorf("no results to report")
	}

	fmt.Fprintf(w, "## Benchmark Results (%s)\n", set.RuntimeVersion)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "| Task | Mode | Status | Reps | Mean | Median "+
		"| Stddev | RSS Delta | GC |")
	fmt.Fprintln(w, "|------|------|--------|------|------|--------"+
		"|--------|-----------|----|")

	for _, r := range results {
		if !r.Available() {
			fmt.Fprintf(w, "| %s | %s | %s | %d | - | - | - | - | - |\n",
				r.Name, r.Mode, r.Status, r.Count,
			)

			continue
		}

		fmt.Fprintf(w, "| %s | %s | %s | %d | %s | %s | %s | %s | %s |\n",
			r.Name,
			r.Mode,
			r.Status,
			r.Count,
			formatSeconds(r.Duration.Mean),
			formatSeconds(r.Duration.Median),
			formatSeconds(r.Duration.Stddev),
			formatSignedBytes(r.MeanRSSDelta),
			formatCounts(r.GCCounts),
		)
	}

	return nil
}

// Comparison writes the comparison table. Missing or unavailable sides
// show as n/a, never as a numeric value.
func Comparison(
	w io.Writer,
	labelA, labelB string,
	rows []compare.Row,
) error {
	if len(rows) == 0 {
		return fmt.Errorf("no comparison rows to report")
	}

	fmt.Fprintf(w, "## Comparison: %s vs %s\n", labelA, labelB)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "| Task | A | B | Improvement | Band |")
	fmt.Fprintln(w, "|------|---|---|-------------|------|")

	for _, row := range rows {
		fmt.Fprintf(w, "| %s | %s | %s | %s | %s |\n",
			row.Name,
			formatOptSeconds(row.DurationA),
			formatOptSeconds(row.DurationB),
			formatOptPercent(row.Improvement),
			row.Band,
		)
	}

	return nil
}

var (
	gainStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	lossStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// ChartAvailable reports whether stdout can carry the bar chart. When it
// cannot, callers skip the chart; the tabular report is always produced.
func ChartAvailable() bool {
	fd := os.Stdout.Fd()

	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Chart renders a horizontal bar per comparable task, scaled to the
// largest improvement magnitude. Positive bars mean B is faster.
func Chart(w io.Writer, rows []compare.Row) {
	const maxWidth = 40

	var maxAbs float64

	nameWidth := 0

	for _, row := range rows {
		if row.Improvement == nil {
			continue
		}

		abs := *row.Improvement
		if abs < 0 {
			abs = -abs
		}

		if abs > maxAbs {
			maxAbs = abs
		}

		if len(row.Name) > nameWidth {
			nameWidth = len(row.Name)
		}
	}

	if maxAbs == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Improvement (%) - positive means B is faster")

	for _, row := range rows {
		if row.Improvement == nil {
			fmt.Fprintf(w, "%-*s  n/a\n", nameWidth, row.Name)

			continue
		}

		pct := *row.Improvement

		abs := pct
		style := gainStyle

		if pct < 0 {
			abs = -pct
			style = lossStyle
		}

		width := int(abs / maxAbs * maxWidth)
		if width == 0 && abs > 0 {
			width = 1
		}

		bar := style.Render(repeatRune('█', width))

		fmt.Fprintf(w, "%-*s  %s %.2f%%\n", nameWidth, row.Name, bar, pct)
	}
}

func repeatRune(r rune, n int) string {
	runes := make([]rune, n)
	for i := range runes {
		runes[i] = r
	}

	return string(runes)
}

func formatSeconds(sec float64) string {
	switch {
	case sec < 0.001:
		return fmt.Sprintf("%.0fµs", sec*1e6)
	case sec < 1:
		return fmt.Sprintf("%.2fms", sec*1e3)
	default:
		return fmt.Sprintf("%.3fs", sec)
	}
}

func formatOptSeconds(sec *float64) string {
	if sec == nil {
		return "n/a"
	}

	return fmt.Sprintf("%.4fs", *sec)
}

func formatOptPercent(pct *float64) string {
	if pct == nil {
		return "n/a"
	}

	return fmt.Sprintf("%+.2f%%", *pct)
}

func formatSignedBytes(b int64) string {
	sign := ""

	if b < 0 {
		sign = "-"
		b = -b
	}

	units := []string{"B", "KB", "MB", "GB"}
	size := float64(b)
	unit := 0

	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}

	return fmt.Sprintf("%s%.1f %s", sign, size, units[unit])
}

func formatCounts(counts []int64) string {
	if len(counts) == 0 {
		return "-"
	}

	out := ""
	for i, c := range counts {
		if i > 0 {
			out += "/"
		}
		out += fmt.Sprintf("%d", c)
	}

	return out
}
