// ABOUTME: Reports over packing results: allocation listing, efficiency, and strategy comparison
// ABOUTME: Rendered with lipgloss for terminals; plain text when output is not a TTY

package report

import (
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/hawson/pve-balance/internal/models"
	"github.com/hawson/pve-balance/internal/packing"
	"github.com/hawson/pve-balance/internal/tui/styles"
	"github.com/hawson/pve-balance/internal/tui/widgets"
)

// PackedSummary is the one-line outcome of a packing run.
func PackedSummary(r *packing.Result) string {
	return fmt.Sprintf("Packed %d/%d workloads (%.0f%%)", r.Placed, r.Total(), r.PlacedPercent())
}

// Allocation lists each host with the workloads placed on it, then any
// workloads left unplaced.
func Allocation(w io.Writer, r *packing.Result) {
	fmt.Fprintln(w, styles.Title.Render(fmt.Sprintf("Strategy: %s", r.Strategy)))

	for _, h := range r.Hosts {
		fmt.Fprintf(w, "%s (%d)\n", styles.ValueStyle.Render(h.Name), len(h.Allocated))

		placed := slices.Clone(h.Allocated)
		slices.SortFunc(placed, models.CompareWorkloads)
		for _, wl := range placed {
			fmt.Fprintf(w, "  %-25s %2dc %5.1fG\n", wl.Name, wl.MaxCPU, wl.MaxMemoryGiB())
		}
	}

	if len(r.UnplacedWorkloads) > 0 {
		fmt.Fprintln(w, styles.StatusWarning.Render("Unplaced"))
		unplaced := slices.Clone(r.UnplacedWorkloads)
		slices.SortFunc(unplaced, models.CompareWorkloads)
		for _, wl := range unplaced {
			fmt.Fprintf(w, "  %-25s %2dc %5.1fG\n", wl.Name, wl.MaxCPU, wl.MaxMemoryGiB())
		}
	}

	fmt.Fprintln(w, summaryStyle(r).Render(PackedSummary(r)))
}

// summaryStyle warns once any workload is unplaced and turns critical at 10%.
func summaryStyle(r *packing.Result) lipgloss.Style {
	if r.Total() == 0 {
		return styles.StatusOK
	}
	unplaced := 100 * float64(r.Unplaced) / float64(r.Total())
	return styles.ForPercent(unplaced, math.SmallestNonzeroFloat64, 10)
}

// Efficiency prints a bar per host showing consumed versus headroom capacity.
func Efficiency(w io.Writer, s packing.Summary) {
	config := widgets.DefaultProgressBarConfig()
	config.Width = 30

	for _, he := range s.Hosts {
		fmt.Fprintf(w, "%-25s %s  raw %.3f  (%d)\n",
			he.Host,
			widgets.ProgressBarWithLabel(100*he.FreeEfficiency, config),
			he.Efficiency,
			he.Workloads,
		)
	}
	fmt.Fprintf(w, "Mean efficiency over %d used hosts: %.3f (free %.3f)\n",
		s.HostsUsed, s.MeanEfficiency, s.MeanFreeEfficiency)
}

// Comparison renders one table row per strategy.
func Comparison(w io.Writer, summaries []packing.Summary) {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, ComparisonRow(s))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.Muted)).
		Headers(ComparisonHeaders()...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.TableHeader
			}
			return styles.TableCell
		})

	fmt.Fprintln(w, t.String())
}

// ComparisonHeaders names the comparison columns.
func ComparisonHeaders() []string {
	return []string{"STRATEGY", "PLACED", "UNPLACED", "PLACED %", "HOSTS USED", "MEAN EFF", "MEAN FREE EFF"}
}

// ComparisonRow formats one summary for the comparison table.
func ComparisonRow(s packing.Summary) []string {
	return []string{
		string(s.Strategy),
		fmt.Sprintf("%d", s.Placed),
		fmt.Sprintf("%d", s.Unplaced),
		fmt.Sprintf("%.0f%%", s.PlacedPercent),
		fmt.Sprintf("%d", s.HostsUsed),
		fmt.Sprintf("%.3f", s.MeanEfficiency),
		fmt.Sprintf("%.3f", s.MeanFreeEfficiency),
	}
}
