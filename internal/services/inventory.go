// ABOUTME: Inventory sources that produce host and workload records for packing
// ABOUTME: Defines the Inventory interface, name/vmid exclusions, and the auth sentinel

package services

import (
	"context"
	"errors"
	"strconv"

	"github.com/hawson/pve-balance/internal/models"
)

// ErrAuthentication is returned when the cluster API rejects credentials.
var ErrAuthentication = errors.New("authentication failed")

// Inventory lists the hosts and workloads of a cluster.
type Inventory interface {
	// Hosts returns one record per hypervisor.
	Hosts(ctx context.Context) ([]models.HostRecord, error)
	// Workloads returns workload records; host filters by node name when non-empty.
	Workloads(ctx context.Context, host string) ([]models.WorkloadRecord, error)
}

// Exclusions drops hosts by name and workloads by name or vmid.
type Exclusions struct {
	names map[string]bool
	vmids map[int]bool
}

// NewExclusions builds exclusions from a list of names. Entries that parse as
// integers also exclude workloads with that vmid.
func NewExclusions(entries []string) Exclusions {
	ex := Exclusions{names: make(map[string]bool), vmids: make(map[int]bool)}
	for _, e := range entries {
		ex.names[e] = true
		if id, err := strconv.Atoi(e); err == nil {
			ex.vmids[id] = true
		}
	}
	return ex
}

// Host reports whether the named host is excluded.
func (e Exclusions) Host(name string) bool {
	return e.names[name]
}

// Workload reports whether the record is excluded by name or vmid.
func (e Exclusions) Workload(rec models.WorkloadRecord) bool {
	if rec.Name != nil && e.names[*rec.Name] {
		return true
	}
	return rec.VMID != nil && e.vmids[*rec.VMID]
}

// FilterHosts returns the records that are not excluded.
func (e Exclusions) FilterHosts(records []models.HostRecord) []models.HostRecord {
	kept := make([]models.HostRecord, 0, len(records))
	for _, r := range records {
		if e.Host(r.Name()) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// FilterWorkloads returns the records that are not excluded, optionally
// restricted to one node.
func (e Exclusions) FilterWorkloads(records []models.WorkloadRecord, host string) []models.WorkloadRecord {
	kept := make([]models.WorkloadRecord, 0, len(records))
	for _, r := range records {
		if host != "" && (r.Node == nil || *r.Node != host) {
			continue
		}
		if e.Workload(r) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}
