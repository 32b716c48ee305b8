// ABOUTME: Turns inventory records into packable hosts and workloads
// ABOUTME: Applies the configured reservation policy and bias maps

package services

import (
	"context"
	"fmt"

	"github.com/hawson/pve-balance/internal/config"
	"github.com/hawson/pve-balance/internal/models"
)

// LoadModels fetches every host and workload from inv and builds the
// in-memory model.
func LoadModels(ctx context.Context, inv Inventory, cfg *config.Config) ([]*models.Host, []*models.Workload, error) {
	hostRecords, err := inv.Hosts(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching hosts: %w", err)
	}
	workloadRecords, err := inv.Workloads(ctx, "")
	if err != nil {
		return nil, nil, fmt.Errorf("fetching workloads: %w", err)
	}

	hosts, err := models.BuildHosts(hostRecords, cfg.Reservation(), cfg.HostBias)
	if err != nil {
		return nil, nil, err
	}
	workloads, err := models.BuildWorkloads(workloadRecords, cfg.WorkloadBias)
	if err != nil {
		return nil, nil, err
	}
	return hosts, workloads, nil
}
