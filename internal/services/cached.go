// ABOUTME: Caching decorator for inventory sources
// ABOUTME: Holds results for a TTL and collapses concurrent fetches with singleflight

package services

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hawson/pve-balance/internal/cache"
	"github.com/hawson/pve-balance/internal/models"
)

const hostsKey = "hosts"

// fetchTimeout bounds a shared upstream fetch, which no longer follows the
// cancellation of the caller that started it.
const fetchTimeout = 2 * time.Minute

// CachedInventory wraps an Inventory so repeated requests within the TTL are
// served from memory and concurrent misses share one upstream call.
type CachedInventory struct {
	inner     Inventory
	hosts     *cache.Cache[[]models.HostRecord]
	workloads *cache.Cache[[]models.WorkloadRecord]
	sfGroup   singleflight.Group
}

// NewCachedInventory wraps inner with a TTL cache. Call Close when done.
func NewCachedInventory(inner Inventory, ttl time.Duration) *CachedInventory {
	return &CachedInventory{
		inner:     inner,
		hosts:     cache.New[[]models.HostRecord](ttl),
		workloads: cache.New[[]models.WorkloadRecord](ttl),
	}
}

// Hosts returns cached host records, fetching them on a miss.
func (c *CachedInventory) Hosts(ctx context.Context) ([]models.HostRecord, error) {
	if records, ok := c.hosts.Get(hostsKey); ok {
		return records, nil
	}

	v, err, shared := c.sfGroup.Do(hostsKey, func() (interface{}, error) {
		fetchCtx, cancel := detached(ctx)
		defer cancel()
		records, err := c.inner.Hosts(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.hosts.Set(hostsKey, records)
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("Shared inventory fetch", "key", hostsKey)
	}
	return v.([]models.HostRecord), nil
}

// Workloads returns cached workload records for host ("" for all hosts),
// fetching them on a miss.
func (c *CachedInventory) Workloads(ctx context.Context, host string) ([]models.WorkloadRecord, error) {
	key := "workloads:" + host
	if records, ok := c.workloads.Get(key); ok {
		return records, nil
	}

	v, err, shared := c.sfGroup.Do(key, func() (interface{}, error) {
		fetchCtx, cancel := detached(ctx)
		defer cancel()
		records, err := c.inner.Workloads(fetchCtx, host)
		if err != nil {
			return nil, err
		}
		c.workloads.Set(key, records)
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("Shared inventory fetch", "key", key)
	}
	return v.([]models.WorkloadRecord), nil
}

// Invalidate drops every cached host and workload list.
func (c *CachedInventory) Invalidate() {
	c.hosts.Clear(hostsKey)
	c.workloads.Flush()
	slog.Debug("Inventory cache invalidated")
}

// detached keeps ctx values but not its cancellation, so coalesced callers
// do not fail when the first caller goes away.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
}

// Close stops the cache cleanup loops.
func (c *CachedInventory) Close() {
	c.hosts.Close()
	c.workloads.Close()
}
