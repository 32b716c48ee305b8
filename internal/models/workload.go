// ABOUTME: Workload (VM) model with sizing, origin placement, and area metrics
// ABOUTME: Workloads are immutable once built; packing only references them

package models

import (
	"cmp"
	"fmt"

	"github.com/hawson/pve-balance/internal/vecmath"
)

// Workload is a virtual machine observed in a snapshot.
type Workload struct {
	ID              int            `json:"vmid"`
	Name            string         `json:"name"`
	Status          WorkloadStatus `json:"status"`
	OriginHost      string         `json:"origin_host"`
	MaxCPU          int            `json:"max_cpu"`
	MaxMemoryBytes  int64          `json:"max_memory_bytes"`
	CPUUtilization  float64        `json:"cpu_utilization"`
	MemoryUsedBytes int64          `json:"memory_used_bytes"`
	Bias            float64        `json:"bias"`
}

// NewWorkload builds a Workload from a validated record.
// A workload that is not running has its usage treated as zero.
func NewWorkload(rec WorkloadRecord, bias float64) (*Workload, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	w := &Workload{
		ID:             *rec.VMID,
		Name:           *rec.Name,
		Status:         ParseWorkloadStatus(*rec.Status),
		OriginHost:     *rec.Node,
		MaxCPU:         *rec.MaxCPU,
		MaxMemoryBytes: *rec.MaxMem,
		Bias:           bias,
	}
	if w.Status == WorkloadRunning {
		w.CPUUtilization = *rec.CPU
		w.MemoryUsedBytes = *rec.Mem
	}
	return w, nil
}

// BuildWorkloads converts records into workloads, applying per-name biases.
// The first invalid record aborts the build.
func BuildWorkloads(records []WorkloadRecord, biases map[string]float64) ([]*Workload, error) {
	workloads := make([]*Workload, 0, len(records))
	for i, rec := range records {
		w, err := NewWorkload(rec, biases[rec.DisplayName()])
		if err != nil {
			return nil, fmt.Errorf("workload record %d: %w", i, err)
		}
		workloads = append(workloads, w)
	}
	return workloads, nil
}

// MaxMemoryGiB returns the allocated memory in GiB.
func (w *Workload) MaxMemoryGiB() float64 {
	return BytesToGiB(w.MaxMemoryBytes)
}

// Vector returns the workload's footprint as (memory GiB, cores).
func (w *Workload) Vector() vecmath.Vector {
	return vecmath.Vector{w.MaxMemoryGiB(), float64(w.MaxCPU)}
}

// Area is memory GiB x cores using allocated maximums.
func (w *Workload) Area() float64 {
	return vecmath.Product(w.Vector())
}

// AreaPercent is the percentage of the workload's own area currently in use.
func (w *Workload) AreaPercent() float64 {
	if w.MaxMemoryBytes == 0 {
		return 0
	}
	memFrac := float64(w.MemoryUsedBytes) / float64(w.MaxMemoryBytes)
	return 100 * memFrac * w.CPUUtilization
}

// Clone returns an independent copy of the workload.
func (w *Workload) Clone() *Workload {
	c := *w
	return &c
}

func (w *Workload) String() string {
	return fmt.Sprintf("%s(%d)", w.Name, w.ID)
}

// CompareWorkloads orders workloads by (status, name, id) ascending.
// It is for deterministic display and sorting only, never packing priority.
func CompareWorkloads(a, b *Workload) int {
	return cmp.Or(
		cmp.Compare(a.Status, b.Status),
		cmp.Compare(a.Name, b.Name),
		cmp.Compare(a.ID, b.ID),
	)
}
