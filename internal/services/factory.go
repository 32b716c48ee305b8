// ABOUTME: Builds the configured live inventory source
// ABOUTME: Chooses Proxmox or vSphere from config and wraps it with the cache

package services

import (
	"context"
	"fmt"

	"github.com/hawson/pve-balance/internal/config"
)

// NewInventory connects to the configured cluster API. The returned close
// function releases the connection and cache.
func NewInventory(ctx context.Context, cfg *config.Config) (*CachedInventory, func(), error) {
	switch cfg.InventorySource {
	case config.SourceVSphere:
		if !cfg.VSphereConfigured() {
			return nil, nil, fmt.Errorf("vSphere inventory requires VSPHERE_HOST, VSPHERE_USERNAME, VSPHERE_PASSWORD and VSPHERE_DATACENTER")
		}
		client := NewVSphereClient(VSphereCredentials{
			Host:       cfg.VSphereHost,
			Username:   cfg.VSphereUsername,
			Password:   cfg.VSpherePassword,
			Datacenter: cfg.VSphereDatacenter,
			Insecure:   cfg.VSphereInsecure,
			Exclude:    cfg.Exclude,
		})
		if err := client.Connect(ctx); err != nil {
			return nil, nil, err
		}
		inv := NewCachedInventory(client, cfg.CacheDuration())
		return inv, func() {
			inv.Close()
			_ = client.Disconnect(context.Background())
		}, nil

	default:
		if !cfg.ProxmoxConfigured() {
			return nil, nil, fmt.Errorf("live inventory requires PVE_HOST, PVE_USER and PVE_PASSWORD (or pass --nodes and --vms)")
		}
		client, err := NewProxmoxClient(ProxmoxCredentials{
			Host:     cfg.PVEHost,
			Username: cfg.PVEUser,
			Password: cfg.PVEPassword,
			CACert:   cfg.PVECACert,
			Insecure: cfg.PVEInsecure,
			AllProxy: cfg.PVEAllProxy,
			Exclude:  cfg.Exclude,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := client.Authenticate(ctx); err != nil {
			return nil, nil, err
		}
		inv := NewCachedInventory(client, cfg.CacheDuration())
		return inv, inv.Close, nil
	}
}
