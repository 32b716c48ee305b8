package cmd

import (
	"path/filepath"
	"testing"

	"github.com/hawson/pve-balance/internal/models"
	"github.com/hawson/pve-balance/internal/snapshot"
)

// withSnapshot writes a two-host, three-VM snapshot, points --nodes/--vms at
// it, and isolates config from the caller's environment.
func withSnapshot(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"INVENTORY_SOURCE", "PVE_EXCLUDE", "HOST_BIAS", "WORKLOAD_BIAS",
		"MIN_FREE_MEMORY_FRACTION", "SCORE_WEIGHT_CPU", "SCORE_WEIGHT_MEMORY",
		"IMAGE_WIDTH", "IMAGE_HEIGHT", "MIN_FREE_CPU", "LOG_FORMAT",
		"CACHE_TTL", "RATE_LIMIT_PACK",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("LOG_LEVEL", "error")

	dir := t.TempDir()
	nodes := filepath.Join(dir, "nodes.json")
	vms := filepath.Join(dir, "vms.json")

	hosts := []models.HostRecord{
		models.MakeHostRecord("pve1", "online", 16, 64*models.GiB, 0.2, 16*models.GiB),
		models.MakeHostRecord("pve2", "online", 16, 64*models.GiB, 0.1, 8*models.GiB),
	}
	workloads := []models.WorkloadRecord{
		models.MakeWorkloadRecord(100, "web", "running", "pve1", 2, 4*models.GiB, 0.3, 2*models.GiB),
		models.MakeWorkloadRecord(101, "db", "running", "pve1", 4, 16*models.GiB, 0.5, 12*models.GiB),
		models.MakeWorkloadRecord(102, "build", "stopped", "pve2", 8, 8*models.GiB, 0, 0),
	}
	if err := snapshot.Save(nodes, hosts); err != nil {
		t.Fatalf("Save nodes failed: %v", err)
	}
	if err := snapshot.Save(vms, workloads); err != nil {
		t.Fatalf("Save vms failed: %v", err)
	}

	nodesFile, vmsFile = nodes, vms
	t.Cleanup(func() {
		nodesFile, vmsFile = "", ""
		jsonOutput = false
	})
}
