// ABOUTME: Line-oriented host and workload listings with scores
// ABOUTME: Each table writer prints its header once, before its first row

package report

import (
	"fmt"
	"io"

	"github.com/hawson/pve-balance/internal/models"
	"github.com/hawson/pve-balance/internal/tui/styles"
)

// HostTable prints one line per host.
type HostTable struct {
	w             io.Writer
	scorer        models.Scorer
	headerWritten bool
}

// NewHostTable creates a host table writing to w.
func NewHostTable(w io.Writer, scorer models.Scorer) *HostTable {
	return &HostTable{w: w, scorer: scorer}
}

// Row writes h, preceded by the header on first use.
func (t *HostTable) Row(h *models.Host) {
	if !t.headerWritten {
		fmt.Fprintln(t.w, styles.TableHeader.UnsetPadding().Render(
			fmt.Sprintf("%-25s %-14s %-10s %s", "HOST", "CPU", "MEMORY", "SCORE = CPU + MEM + BIAS")))
		t.headerWritten = true
	}

	var memPerc float64
	if h.MaxMemoryBytes > 0 {
		memPerc = 100 * float64(h.MemoryUsedBytes) / float64(h.MaxMemoryBytes)
	}

	line := fmt.Sprintf("%-25s %4.1f/%2d(%3.0f%%) %3.0fG(%3.0f%%) %s",
		h.Name,
		h.CPUUtilization*float64(h.MaxCPU), h.MaxCPU, 100*h.CPUUtilization,
		h.MaxMemoryGiB(), memPerc,
		t.scorer.Host(h, true).Full(),
	)
	if h.Status != models.HostOnline {
		line = styles.Dim.Render(line)
	}
	fmt.Fprintln(t.w, line)
}

// WorkloadTable prints one line per workload. Non-running workloads are
// marked with an asterisk.
type WorkloadTable struct {
	w             io.Writer
	scorer        models.Scorer
	headerWritten bool
}

// NewWorkloadTable creates a workload table writing to w.
func NewWorkloadTable(w io.Writer, scorer models.Scorer) *WorkloadTable {
	return &WorkloadTable{w: w, scorer: scorer}
}

// Row writes wl, preceded by the header on first use.
func (t *WorkloadTable) Row(wl *models.Workload) {
	if !t.headerWritten {
		fmt.Fprintln(t.w, styles.TableHeader.UnsetPadding().Render(
			fmt.Sprintf("%6s %-25s %-12s %-10s %5s %s", "VMID", "NAME", "CPU", "NODE", "MEM", "SCORE = CPU + MEM + BIAS")))
		t.headerWritten = true
	}

	state := " "
	if wl.Status != models.WorkloadRunning {
		state = "*"
	}

	line := fmt.Sprintf("%6d %-24s%s %3.1f/%2d(%3.0f%%) %-10s %4.0fG %s",
		wl.ID, wl.Name, state,
		wl.CPUUtilization*float64(wl.MaxCPU), wl.MaxCPU, 100*wl.CPUUtilization,
		wl.OriginHost,
		wl.MaxMemoryGiB(),
		t.scorer.Workload(wl, true).Full(),
	)
	if wl.Status != models.WorkloadRunning {
		line = styles.Dim.Render(line)
	}
	fmt.Fprintln(t.w, line)
}
