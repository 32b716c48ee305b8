package packing

import (
	"math"
	"testing"

	"github.com/hawson/pve-balance/internal/models"
)

func TestEfficiency(t *testing.T) {
	h := newHost(t, "a", 10, 100)
	h.Allocate(newWorkload(t, 1, "a", 3, 40), false)

	he := Efficiency(h)

	want := math.Sqrt(40*40+3*3) / math.Sqrt(100*100+10*10)
	if math.Abs(he.Efficiency-want) > 1e-9 {
		t.Errorf("Expected efficiency %v, got %v", want, he.Efficiency)
	}
	wantFree := math.Sqrt(40*40+3*3) / math.Sqrt(90*90+9*9)
	if math.Abs(he.FreeEfficiency-wantFree) > 1e-9 {
		t.Errorf("Expected free efficiency %v, got %v", wantFree, he.FreeEfficiency)
	}
	if he.Workloads != 1 {
		t.Errorf("Expected 1 workload, got %d", he.Workloads)
	}
	if len(h.Allocated) != 1 || h.FreeCPU != 7 {
		t.Errorf("Expected host unchanged, got %d allocated and %d free CPU", len(h.Allocated), h.FreeCPU)
	}
}

func TestEfficiency_ZeroCapacity(t *testing.T) {
	h := &models.Host{Name: "empty"}
	he := Efficiency(h)
	if he.Efficiency != 0 || he.FreeEfficiency != 0 {
		t.Errorf("Expected zero efficiency, got %v / %v", he.Efficiency, he.FreeEfficiency)
	}
}

func TestSummarize(t *testing.T) {
	used := newHost(t, "used", 10, 100)
	used.Allocate(newWorkload(t, 1, "used", 3, 40), false)
	idle := newHost(t, "idle", 10, 100)

	r := &Result{Strategy: StrategySize, Hosts: []*models.Host{used, idle}, Placed: 1, Unplaced: 1}
	s := Summarize(r)

	if s.HostsUsed != 1 {
		t.Errorf("Expected 1 host used, got %d", s.HostsUsed)
	}
	if len(s.Hosts) != 2 {
		t.Errorf("Expected 2 host entries, got %d", len(s.Hosts))
	}
	if s.MeanEfficiency != s.Hosts[0].Efficiency {
		t.Errorf("Expected mean %v, got %v", s.Hosts[0].Efficiency, s.MeanEfficiency)
	}
	if s.PlacedPercent != 50 {
		t.Errorf("Expected 50%% placed, got %v", s.PlacedPercent)
	}
}
