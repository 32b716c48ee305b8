// ABOUTME: Weighted utilization scoring for hosts and workloads
// ABOUTME: Hosts score by how full they are, workloads by how large they are

package models

import "fmt"

// Weights scale each scoring term.
type Weights struct {
	CPU    float64 `json:"cpu"`
	Memory float64 `json:"memory"`
}

// DefaultWeights weighs CPU and memory equally.
func DefaultWeights() Weights {
	return Weights{CPU: 1.0, Memory: 1.0}
}

// Breakdown is a score split into its addends.
type Breakdown struct {
	CPU    float64 `json:"cpu"`
	Memory float64 `json:"memory"`
	Bias   float64 `json:"bias"`
}

// Total returns the sum of all addends.
func (b Breakdown) Total() float64 {
	return b.CPU + b.Memory + b.Bias
}

// Short formats just the total.
func (b Breakdown) Short() string {
	return fmt.Sprintf("%.3f", b.Total())
}

// Full formats the total followed by each addend.
func (b Breakdown) Full() string {
	return fmt.Sprintf("%6.3f = %5.3f + %5.3f + %3.1f", b.Total(), b.CPU, b.Memory, b.Bias)
}

// Scorer computes weighted scores. It holds no state besides its weights.
type Scorer struct {
	Weights Weights
}

// NewScorer creates a scorer with the given weights.
func NewScorer(w Weights) Scorer {
	return Scorer{Weights: w}
}

// Host scores a host by CPU utilization and memory fill ratio.
func (s Scorer) Host(h *Host, biased bool) Breakdown {
	b := Breakdown{CPU: h.CPUUtilization * s.Weights.CPU}
	if h.MaxMemoryBytes > 0 {
		b.Memory = float64(h.MemoryUsedBytes) / float64(h.MaxMemoryBytes) * s.Weights.Memory
	}
	if biased {
		b.Bias = h.Bias
	}
	return b
}

// Workload scores a VM by CPU utilization and allocated memory in GiB.
func (s Scorer) Workload(w *Workload, biased bool) Breakdown {
	b := Breakdown{
		CPU:    w.CPUUtilization * s.Weights.CPU,
		Memory: w.MaxMemoryGiB() * s.Weights.Memory,
	}
	if biased {
		b.Bias = w.Bias
	}
	return b
}
