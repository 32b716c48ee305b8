package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hawson/pve-balance/internal/models"
)

type countingInventory struct {
	hostCalls     atomic.Int32
	workloadCalls atomic.Int32
	delay         time.Duration
	err           error
}

func (c *countingInventory) Hosts(ctx context.Context) ([]models.HostRecord, error) {
	c.hostCalls.Add(1)
	time.Sleep(c.delay)
	if c.err != nil {
		return nil, c.err
	}
	return []models.HostRecord{models.MakeHostRecord("pve1", "online", 8, 64, 0, 0)}, nil
}

func (c *countingInventory) Workloads(ctx context.Context, host string) ([]models.WorkloadRecord, error) {
	c.workloadCalls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return []models.WorkloadRecord{models.MakeWorkloadRecord(100, "web", "running", "pve1", 2, 4, 0, 0)}, nil
}

func TestCachedInventory_CachesResults(t *testing.T) {
	inner := &countingInventory{}
	inv := NewCachedInventory(inner, time.Minute)
	defer inv.Close()

	for i := 0; i < 3; i++ {
		if _, err := inv.Hosts(context.Background()); err != nil {
			t.Fatalf("Hosts failed: %v", err)
		}
		if _, err := inv.Workloads(context.Background(), ""); err != nil {
			t.Fatalf("Workloads failed: %v", err)
		}
	}

	if n := inner.hostCalls.Load(); n != 1 {
		t.Errorf("Expected 1 host fetch, got %d", n)
	}
	if n := inner.workloadCalls.Load(); n != 1 {
		t.Errorf("Expected 1 workload fetch, got %d", n)
	}

	if _, err := inv.Workloads(context.Background(), "pve1"); err != nil {
		t.Fatalf("Workloads failed: %v", err)
	}
	if n := inner.workloadCalls.Load(); n != 2 {
		t.Errorf("Expected per-host key to miss, got %d fetches", n)
	}
}

func TestCachedInventory_Invalidate(t *testing.T) {
	inner := &countingInventory{}
	inv := NewCachedInventory(inner, time.Minute)
	defer inv.Close()

	_, _ = inv.Hosts(context.Background())
	inv.Invalidate()
	_, _ = inv.Hosts(context.Background())

	if n := inner.hostCalls.Load(); n != 2 {
		t.Errorf("Expected 2 host fetches after invalidate, got %d", n)
	}

	_, _ = inv.Workloads(context.Background(), "pve1")
	inv.Invalidate()
	_, _ = inv.Workloads(context.Background(), "pve1")
	if n := inner.workloadCalls.Load(); n != 2 {
		t.Errorf("Expected per-host workloads refetched after invalidate, got %d fetches", n)
	}
}

// blockingInventory holds Hosts until release is closed and then reports
// whether its context was cancelled meanwhile.
type blockingInventory struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingInventory) Hosts(ctx context.Context) ([]models.HostRecord, error) {
	b.calls.Add(1)
	close(b.started)
	<-b.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []models.HostRecord{models.MakeHostRecord("pve1", "online", 8, 64, 0, 0)}, nil
}

func (b *blockingInventory) Workloads(ctx context.Context, host string) ([]models.WorkloadRecord, error) {
	return nil, nil
}

func TestCachedInventory_FetchSurvivesCallerCancel(t *testing.T) {
	inner := &blockingInventory{started: make(chan struct{}), release: make(chan struct{})}
	inv := NewCachedInventory(inner, time.Minute)
	defer inv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := inv.Hosts(ctx)
		done <- err
	}()

	<-inner.started
	cancel()
	close(inner.release)

	if err := <-done; err != nil {
		t.Fatalf("Expected shared fetch to ignore caller cancel, got %v", err)
	}
	if _, err := inv.Hosts(context.Background()); err != nil {
		t.Fatalf("Hosts failed: %v", err)
	}
	if n := inner.calls.Load(); n != 1 {
		t.Errorf("Expected result to be cached after 1 fetch, got %d", n)
	}
}

func TestCachedInventory_ErrorsAreNotCached(t *testing.T) {
	inner := &countingInventory{err: ErrAuthentication}
	inv := NewCachedInventory(inner, time.Minute)
	defer inv.Close()

	for i := 0; i < 2; i++ {
		if _, err := inv.Hosts(context.Background()); !errors.Is(err, ErrAuthentication) {
			t.Errorf("Expected ErrAuthentication, got %v", err)
		}
	}
	if n := inner.hostCalls.Load(); n != 2 {
		t.Errorf("Expected 2 host fetches, got %d", n)
	}
}

func TestCachedInventory_CollapsesConcurrentFetches(t *testing.T) {
	inner := &countingInventory{delay: 100 * time.Millisecond}
	inv := NewCachedInventory(inner, time.Minute)
	defer inv.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := inv.Hosts(context.Background()); err != nil {
				t.Errorf("Hosts failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := inner.hostCalls.Load(); n != 1 {
		t.Errorf("Expected 1 upstream fetch, got %d", n)
	}
}
