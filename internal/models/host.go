// ABOUTME: Host (hypervisor) model with capacity, headroom reservation, and allocation state
// ABOUTME: Allocate is the only mutator; packing works on clones, never the snapshot

package models

import (
	"cmp"
	"fmt"
	"math"

	"github.com/hawson/pve-balance/internal/vecmath"
)

// DefaultMinFreeMemoryFraction is the share of host memory held back as headroom.
const DefaultMinFreeMemoryFraction = 0.10

// DefaultMinFreeCPU is the number of cores held back as headroom.
const DefaultMinFreeCPU = 1

// Reservation is the headroom policy applied to every host in a snapshot.
type Reservation struct {
	MinFreeCPU            int     `json:"min_free_cpu"`
	MinFreeMemoryFraction float64 `json:"min_free_memory_fraction"`
}

// DefaultReservation returns the standard headroom policy.
func DefaultReservation() Reservation {
	return Reservation{
		MinFreeCPU:            DefaultMinFreeCPU,
		MinFreeMemoryFraction: DefaultMinFreeMemoryFraction,
	}
}

// Host is a hypervisor observed in a snapshot, plus the allocation state of
// the packing pass it currently belongs to.
type Host struct {
	Name            string     `json:"name"`
	Status          HostStatus `json:"status"`
	MaxCPU          int        `json:"max_cpu"`
	MaxMemoryBytes  int64      `json:"max_memory_bytes"`
	CPUUtilization  float64    `json:"cpu_utilization"`
	MemoryUsedBytes int64      `json:"memory_used_bytes"`
	Bias            float64    `json:"bias"`

	MinFreeCPU         int   `json:"min_free_cpu"`
	MinFreeMemoryBytes int64 `json:"min_free_memory_bytes"`

	FreeCPU         int         `json:"free_cpu"`
	FreeMemoryBytes int64       `json:"free_memory_bytes"`
	Allocated       []*Workload `json:"allocated"`
}

// NewHost builds a Host from a validated record.
// A host that is not online has its usage treated as zero.
func NewHost(rec HostRecord, res Reservation, bias float64) (*Host, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	h := &Host{
		Name:               *rec.Node,
		Status:             ParseHostStatus(*rec.Status),
		MaxCPU:             *rec.MaxCPU,
		MaxMemoryBytes:     *rec.MaxMem,
		Bias:               bias,
		MinFreeCPU:         res.MinFreeCPU,
		MinFreeMemoryBytes: int64(math.Round(float64(*rec.MaxMem) * res.MinFreeMemoryFraction)),
	}
	if h.Status == HostOnline {
		h.CPUUtilization = *rec.CPU
		h.MemoryUsedBytes = *rec.Mem
	}
	h.Reset()
	return h, nil
}

// BuildHosts converts records into hosts, applying the reservation policy
// and per-name biases. The first invalid record aborts the build.
func BuildHosts(records []HostRecord, res Reservation, biases map[string]float64) ([]*Host, error) {
	hosts := make([]*Host, 0, len(records))
	for i, rec := range records {
		h, err := NewHost(rec, res, biases[rec.Name()])
		if err != nil {
			return nil, fmt.Errorf("host record %d: %w", i, err)
		}
		hosts = append(hosts, h)
	}
	return hosts, nil
}

// Reset empties the allocation state so a new packing pass can begin.
func (h *Host) Reset() {
	h.FreeCPU = h.MaxCPU
	h.FreeMemoryBytes = h.MaxMemoryBytes
	h.Allocated = []*Workload{}
}

// Clone returns an independent copy of the host, including its current
// allocation list (the workloads themselves are shared, they are immutable).
func (h *Host) Clone() *Host {
	c := *h
	c.Allocated = make([]*Workload, len(h.Allocated))
	copy(c.Allocated, h.Allocated)
	return &c
}

// HasSpace reports whether w fits while leaving the reserved headroom free.
// The comparison is strict: a workload that would consume the headroom-adjusted
// capacity exactly is rejected.
func (h *Host) HasSpace(w *Workload) bool {
	return h.FreeMemoryBytes-h.MinFreeMemoryBytes > w.MaxMemoryBytes &&
		h.FreeCPU-h.MinFreeCPU > w.MaxCPU
}

// Allocate places w on the host if it fits (or unconditionally when force is
// set) and reports whether it was placed. A rejected allocation changes nothing.
func (h *Host) Allocate(w *Workload, force bool) bool {
	if !force && !h.HasSpace(w) {
		return false
	}
	h.FreeMemoryBytes -= w.MaxMemoryBytes
	h.FreeCPU -= w.MaxCPU
	h.Allocated = append(h.Allocated, w)
	return true
}

// MaxMemoryGiB returns the host memory capacity in GiB.
func (h *Host) MaxMemoryGiB() float64 {
	return BytesToGiB(h.MaxMemoryBytes)
}

// CapacityVector is the full capacity as (memory GiB, cores).
func (h *Host) CapacityVector() vecmath.Vector {
	return vecmath.Vector{h.MaxMemoryGiB(), float64(h.MaxCPU)}
}

// HeadroomCapacityVector is the capacity left after the reservation.
func (h *Host) HeadroomCapacityVector() vecmath.Vector {
	return vecmath.Vector{
		BytesToGiB(h.MaxMemoryBytes - h.MinFreeMemoryBytes),
		float64(h.MaxCPU - h.MinFreeCPU),
	}
}

// FreeVector is the unallocated capacity left after the reservation.
func (h *Host) FreeVector() vecmath.Vector {
	return vecmath.Vector{
		BytesToGiB(h.FreeMemoryBytes - h.MinFreeMemoryBytes),
		float64(h.FreeCPU - h.MinFreeCPU),
	}
}

// ConsumedVector is the sum of the allocated workloads' footprints.
func (h *Host) ConsumedVector() vecmath.Vector {
	sum := vecmath.Vector{0, 0}
	for _, w := range h.Allocated {
		sum = vecmath.Add(sum, w.Vector())
	}
	return sum
}

// Area is memory GiB x cores using capacity figures.
func (h *Host) Area() float64 {
	return vecmath.Product(h.CapacityVector())
}

// AreaPercent is the percentage of the host's area currently in use.
func (h *Host) AreaPercent() float64 {
	if h.MaxMemoryBytes == 0 {
		return 0
	}
	memFrac := float64(h.MemoryUsedBytes) / float64(h.MaxMemoryBytes)
	return 100 * memFrac * h.CPUUtilization
}

func (h *Host) String() string {
	return h.Name
}

// CompareHosts orders hosts by (status, name) ascending, for display.
func CompareHosts(a, b *Host) int {
	return cmp.Or(
		cmp.Compare(a.Status, b.Status),
		cmp.Compare(a.Name, b.Name),
	)
}
