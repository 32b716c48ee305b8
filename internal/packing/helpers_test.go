package packing

import (
	"io"
	"log/slog"
	"strconv"
	"testing"

	"github.com/hawson/pve-balance/internal/models"
)

func quietEngine(opts ...Option) *Engine {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(opts...)
}

func newHost(t *testing.T, name string, cpu int, memGiB int64) *models.Host {
	t.Helper()
	h, err := models.NewHost(
		models.MakeHostRecord(name, "online", cpu, memGiB*models.GiB, 0, 0),
		models.DefaultReservation(),
		0,
	)
	if err != nil {
		t.Fatalf("NewHost(%s) failed: %v", name, err)
	}
	return h
}

func newWorkload(t *testing.T, id int, origin string, cpu int, memGiB int64) *models.Workload {
	t.Helper()
	w, err := models.NewWorkload(
		models.MakeWorkloadRecord(id, "vm"+strconv.Itoa(id), "running", origin, cpu, memGiB*models.GiB, 0, 0),
		0,
	)
	if err != nil {
		t.Fatalf("NewWorkload(%d) failed: %v", id, err)
	}
	return w
}

// placement maps workload ID to the host it landed on.
func placement(r *Result) map[int]string {
	m := make(map[int]string)
	for _, h := range r.Hosts {
		for _, w := range h.Allocated {
			m[w.ID] = h.Name
		}
	}
	return m
}
