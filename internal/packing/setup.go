// ABOUTME: Shared packing setup: snapshot copies of hosts and workloads, then ordering
// ABOUTME: Hosts sort by descending area; workloads by a named metric or shuffled

package packing

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hawson/pve-balance/internal/models"
)

// ErrUnknownSortKey is returned when a workload sort key is not recognized.
var ErrUnknownSortKey = errors.New("unknown sort key")

// SortKey names the workload metric used to order placement attempts.
type SortKey string

const (
	SortByScore       SortKey = "score"
	SortByArea        SortKey = "area"
	SortByAreaPercent SortKey = "area_perc"
)

// SortKeys lists every valid sort key.
func SortKeys() []SortKey {
	return []SortKey{SortByScore, SortByArea, SortByAreaPercent}
}

// ParseSortKey validates a sort key name.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case SortByScore:
		return SortByScore, nil
	case SortByArea:
		return SortByArea, nil
	case SortByAreaPercent, "area-percent", "areapercent":
		return SortByAreaPercent, nil
	}
	return "", fmt.Errorf("%w: %q (valid: score, area, area_perc)", ErrUnknownSortKey, s)
}

// SetupOptions controls how workloads are ordered before packing.
type SetupOptions struct {
	Key        SortKey `json:"sort_key"`
	Descending bool    `json:"descending"`
	Randomize  bool    `json:"randomize"`
}

// DefaultSetupOptions orders workloads largest area first.
func DefaultSetupOptions() SetupOptions {
	return SetupOptions{Key: SortByArea, Descending: true}
}

// Setup copies hosts and workloads so a strategy never touches the caller's
// snapshot. Host copies are reset and sorted by descending area; workload
// copies are shuffled or sorted by the chosen metric.
func (e *Engine) Setup(hosts []*models.Host, workloads []*models.Workload, opts SetupOptions) ([]*models.Host, []*models.Workload, error) {
	metric, err := e.metric(opts.Key)
	if err != nil {
		return nil, nil, err
	}

	hostCopies := make([]*models.Host, len(hosts))
	for i, h := range hosts {
		c := h.Clone()
		c.Reset()
		hostCopies[i] = c
	}
	slices.SortStableFunc(hostCopies, func(a, b *models.Host) int {
		return cmp.Compare(b.Area(), a.Area())
	})

	workloadCopies := make([]*models.Workload, len(workloads))
	for i, w := range workloads {
		workloadCopies[i] = w.Clone()
	}

	if opts.Randomize {
		e.shuffleWorkloads(workloadCopies)
		return hostCopies, workloadCopies, nil
	}

	slices.SortStableFunc(workloadCopies, func(a, b *models.Workload) int {
		if opts.Descending {
			return cmp.Compare(metric(b), metric(a))
		}
		return cmp.Compare(metric(a), metric(b))
	})
	return hostCopies, workloadCopies, nil
}

func (e *Engine) metric(key SortKey) (func(*models.Workload) float64, error) {
	switch key {
	case SortByScore:
		return func(w *models.Workload) float64 { return e.scorer.Workload(w, true).Total() }, nil
	case SortByArea:
		return (*models.Workload).Area, nil
	case SortByAreaPercent:
		return (*models.Workload).AreaPercent, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSortKey, key)
}
