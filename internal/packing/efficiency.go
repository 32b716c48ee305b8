// ABOUTME: Post-hoc efficiency of packed hosts measured as vector length ratios
// ABOUTME: Compares consumed (GiB, cores) against raw and headroom-adjusted capacity

package packing

import (
	"github.com/hawson/pve-balance/internal/models"
	"github.com/hawson/pve-balance/internal/vecmath"
)

// HostEfficiency describes how densely one packed host is used.
type HostEfficiency struct {
	Host           string         `json:"host"`
	Workloads      int            `json:"workloads"`
	Capacity       vecmath.Vector `json:"capacity"`
	Headroom       vecmath.Vector `json:"headroom_capacity"`
	Consumed       vecmath.Vector `json:"consumed"`
	Efficiency     float64        `json:"efficiency"`
	FreeEfficiency float64        `json:"free_efficiency"`
}

// Efficiency computes the efficiency of a packed host. It does not mutate h.
func Efficiency(h *models.Host) HostEfficiency {
	he := HostEfficiency{
		Host:      h.Name,
		Workloads: len(h.Allocated),
		Capacity:  h.CapacityVector(),
		Headroom:  h.HeadroomCapacityVector(),
		Consumed:  h.ConsumedVector(),
	}

	consumed := vecmath.Length(he.Consumed)
	if l := vecmath.Length(he.Capacity); l > 0 {
		he.Efficiency = consumed / l
	}
	if l := vecmath.Length(he.Headroom); l > 0 {
		he.FreeEfficiency = consumed / l
	}
	return he
}

// Summary aggregates a packing result for side-by-side comparison.
type Summary struct {
	Strategy           Strategy         `json:"strategy"`
	Placed             int              `json:"placed"`
	Unplaced           int              `json:"unplaced"`
	PlacedPercent      float64          `json:"placed_percent"`
	HostsUsed          int              `json:"hosts_used"`
	MeanEfficiency     float64          `json:"mean_efficiency"`
	MeanFreeEfficiency float64          `json:"mean_free_efficiency"`
	Hosts              []HostEfficiency `json:"hosts"`
}

// Summarize computes per-host efficiency and averages it over the hosts that
// received at least one workload.
func Summarize(r *Result) Summary {
	s := Summary{
		Strategy:      r.Strategy,
		Placed:        r.Placed,
		Unplaced:      r.Unplaced,
		PlacedPercent: r.PlacedPercent(),
		Hosts:         make([]HostEfficiency, 0, len(r.Hosts)),
	}

	var eff, freeEff float64
	for _, h := range r.Hosts {
		he := Efficiency(h)
		s.Hosts = append(s.Hosts, he)
		if he.Workloads == 0 {
			continue
		}
		s.HostsUsed++
		eff += he.Efficiency
		freeEff += he.FreeEfficiency
	}
	if s.HostsUsed > 0 {
		s.MeanEfficiency = eff / float64(s.HostsUsed)
		s.MeanFreeEfficiency = freeEff / float64(s.HostsUsed)
	}
	return s
}
