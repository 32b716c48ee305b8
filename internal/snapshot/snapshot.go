// ABOUTME: Reads and writes inventory snapshots in the Proxmox {"data": [...]} envelope
// ABOUTME: Dumps live inventory to timestamped nodes-/vms- files for offline planning

package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hawson/pve-balance/internal/models"
	"github.com/hawson/pve-balance/internal/services"
)

// ErrEmptySnapshot is returned when a snapshot holds no records.
var ErrEmptySnapshot = errors.New("snapshot contains no records")

// TimestampLayout is the suffix format of dumped file names.
const TimestampLayout = "20060102-1504"

type envelope[T any] struct {
	Data []T `json:"data"`
}

func read[T any](r io.Reader) ([]T, error) {
	var env envelope[T]
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if len(env.Data) == 0 {
		return nil, ErrEmptySnapshot
	}
	return env.Data, nil
}

func load[T any](path string, decode func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	records, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("Snapshot loaded", "path", path, "records", len(records))
	return records, nil
}

// ReadHosts decodes host records from r.
func ReadHosts(r io.Reader) ([]models.HostRecord, error) {
	return read[models.HostRecord](r)
}

// ReadWorkloads decodes workload records from r.
func ReadWorkloads(r io.Reader) ([]models.WorkloadRecord, error) {
	return read[models.WorkloadRecord](r)
}

// LoadHosts reads a nodes snapshot file.
func LoadHosts(path string) ([]models.HostRecord, error) {
	return load(path, ReadHosts)
}

// LoadWorkloads reads a vms snapshot file.
func LoadWorkloads(path string) ([]models.WorkloadRecord, error) {
	return load(path, ReadWorkloads)
}

// Save writes records to path as an indented envelope. The file is written
// to a temporary name first and renamed into place.
func Save[T any](path string, records []T) error {
	data, err := json.MarshalIndent(envelope[T]{Data: records}, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// FileNames returns the nodes and vms file names for a dump taken at now.
func FileNames(now time.Time) (nodes, vms string) {
	stamp := now.Format(TimestampLayout)
	return "nodes-" + stamp + ".json", "vms-" + stamp + ".json"
}

// Dump fetches hosts and workloads from inv and writes them into dir.
// It returns the paths written.
func Dump(ctx context.Context, dir string, inv services.Inventory, now time.Time) (string, string, error) {
	hosts, err := inv.Hosts(ctx)
	if err != nil {
		return "", "", fmt.Errorf("fetching hosts: %w", err)
	}
	workloads, err := inv.Workloads(ctx, "")
	if err != nil {
		return "", "", fmt.Errorf("fetching workloads: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("creating dump directory: %w", err)
	}

	nodesName, vmsName := FileNames(now)
	nodesPath := filepath.Join(dir, nodesName)
	vmsPath := filepath.Join(dir, vmsName)

	if err := Save(nodesPath, hosts); err != nil {
		return "", "", err
	}
	if err := Save(vmsPath, workloads); err != nil {
		return "", "", err
	}

	slog.Info("Inventory dumped", "nodes", nodesPath, "hosts", len(hosts), "vms", vmsPath, "workloads", len(workloads))
	return nodesPath, vmsPath, nil
}

// FileInventory serves a pair of snapshot files as an Inventory.
type FileInventory struct {
	NodesPath string
	VMsPath   string
	Exclude   []string
}

// Hosts reads the nodes file on every call.
func (f FileInventory) Hosts(ctx context.Context) ([]models.HostRecord, error) {
	records, err := LoadHosts(f.NodesPath)
	if err != nil {
		return nil, err
	}
	return services.NewExclusions(f.Exclude).FilterHosts(records), nil
}

// Workloads reads the vms file, keeping only host's VMs unless host is "".
func (f FileInventory) Workloads(ctx context.Context, host string) ([]models.WorkloadRecord, error) {
	records, err := LoadWorkloads(f.VMsPath)
	if err != nil {
		return nil, err
	}
	return services.NewExclusions(f.Exclude).FilterWorkloads(records, host), nil
}
