package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/hawson/pve-balance/internal/models"
	"github.com/hawson/pve-balance/internal/packing"
	"github.com/hawson/pve-balance/internal/tui/styles"
)

func host(t *testing.T, name, status string, cpu int, memGiB int64, util float64, usedGiB int64) *models.Host {
	t.Helper()
	h, err := models.NewHost(models.MakeHostRecord(name, status, cpu, memGiB*models.GiB, util, usedGiB*models.GiB), models.DefaultReservation(), 0)
	if err != nil {
		t.Fatalf("NewHost failed: %v", err)
	}
	return h
}

func workload(t *testing.T, id int, name, status string, cpu int, memGiB int64) *models.Workload {
	t.Helper()
	w, err := models.NewWorkload(models.MakeWorkloadRecord(id, name, status, "pve1", cpu, memGiB*models.GiB, 0.5, models.GiB), 0)
	if err != nil {
		t.Fatalf("NewWorkload failed: %v", err)
	}
	return w
}

func TestHostTable_HeaderOnce(t *testing.T) {
	var buf bytes.Buffer
	table := NewHostTable(&buf, models.NewScorer(models.DefaultWeights()))

	table.Row(host(t, "pve1", "online", 8, 64, 0.25, 16))
	table.Row(host(t, "pve2", "offline", 8, 64, 0, 0))

	out := ansi.Strip(buf.String())
	if n := strings.Count(out, "HOST"); n != 1 {
		t.Errorf("Expected header once, got %d times:\n%s", n, out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[1], "pve1") || !strings.Contains(lines[1], " 0.500 = 0.250 + 0.250 + 0.0") {
		t.Errorf("Expected pve1 row with full score, got %q", lines[1])
	}

	second := NewHostTable(&buf, models.NewScorer(models.DefaultWeights()))
	second.Row(host(t, "pve3", "online", 8, 64, 0, 0))
	if n := strings.Count(ansi.Strip(buf.String()), "HOST"); n != 2 {
		t.Errorf("Expected a new table to print its own header, got %d headers", n)
	}
}

func TestWorkloadTable_MarksStopped(t *testing.T) {
	var buf bytes.Buffer
	table := NewWorkloadTable(&buf, models.NewScorer(models.DefaultWeights()))

	table.Row(workload(t, 100, "web", "running", 2, 4))
	table.Row(workload(t, 101, "db", "stopped", 2, 4))

	lines := strings.Split(strings.TrimSpace(ansi.Strip(buf.String())), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(lines))
	}
	if strings.Contains(lines[1], "web*") {
		t.Errorf("Expected running workload unmarked, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "db") || !strings.Contains(lines[2], "*") {
		t.Errorf("Expected stopped workload marked, got %q", lines[2])
	}
}

func packedResult(t *testing.T) *packing.Result {
	t.Helper()
	h := host(t, "pve1", "online", 16, 64, 0, 0)
	h.Reset()
	h.Allocate(workload(t, 2, "zeta", "running", 2, 4), false)
	h.Allocate(workload(t, 1, "alpha", "running", 2, 4), false)

	return &packing.Result{
		Strategy:          packing.StrategySize,
		Hosts:             []*models.Host{h},
		Placed:            2,
		Unplaced:          1,
		UnplacedWorkloads: []*models.Workload{workload(t, 3, "huge", "running", 64, 4)},
	}
}

func TestPackedSummary(t *testing.T) {
	got := PackedSummary(packedResult(t))
	if got != "Packed 2/3 workloads (67%)" {
		t.Errorf("Expected 'Packed 2/3 workloads (67%%)', got %q", got)
	}
}

func TestAllocation(t *testing.T) {
	var buf bytes.Buffer
	Allocation(&buf, packedResult(t))
	out := ansi.Strip(buf.String())

	for _, want := range []string{"Strategy: size", "pve1 (2)", "Unplaced", "huge", "Packed 2/3"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "alpha") > strings.Index(out, "zeta") {
		t.Errorf("Expected workloads sorted by name:\n%s", out)
	}
}

func TestSummaryStyle(t *testing.T) {
	tests := []struct {
		name     string
		placed   int
		unplaced int
		want     lipgloss.Style
	}{
		{"empty", 0, 0, styles.StatusOK},
		{"all placed", 10, 0, styles.StatusOK},
		{"few unplaced", 95, 5, styles.StatusWarning},
		{"many unplaced", 2, 1, styles.StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &packing.Result{Placed: tt.placed, Unplaced: tt.unplaced}
			got := summaryStyle(r).GetForeground()
			if got != tt.want.GetForeground() {
				t.Errorf("Expected foreground %v, got %v", tt.want.GetForeground(), got)
			}
		})
	}
}

func TestEfficiency(t *testing.T) {
	var buf bytes.Buffer
	Efficiency(&buf, packing.Summarize(packedResult(t)))
	out := ansi.Strip(buf.String())

	if !strings.Contains(out, "pve1") || !strings.Contains(out, "1 used hosts") {
		t.Errorf("Unexpected efficiency output:\n%s", out)
	}
}

func TestComparison(t *testing.T) {
	r := packedResult(t)
	other := *r
	other.Strategy = packing.StrategyRoundRobin

	var buf bytes.Buffer
	Comparison(&buf, []packing.Summary{packing.Summarize(r), packing.Summarize(&other)})
	out := ansi.Strip(buf.String())

	for _, want := range []string{"STRATEGY", "size", "round-robin", "67%"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected table to contain %q:\n%s", want, out)
		}
	}
}

func TestComparisonRow(t *testing.T) {
	row := ComparisonRow(packing.Summary{Strategy: packing.StrategyNull, Placed: 3, PlacedPercent: 100, MeanEfficiency: 0.5})
	if len(row) != len(ComparisonHeaders()) {
		t.Fatalf("Expected %d columns, got %d", len(ComparisonHeaders()), len(row))
	}
	if row[0] != "null" || row[3] != "100%" || row[5] != "0.500" {
		t.Errorf("Unexpected row %v", row)
	}
}
