// ABOUTME: Placement strategies: first-fit by size, round-robin, vector similarity,
// ABOUTME: random baseline, and a null pass that reproduces the observed placement

package packing

import (
	"cmp"
	"slices"

	"github.com/hawson/pve-balance/internal/models"
	"github.com/hawson/pve-balance/internal/vecmath"
)

// PackBySize is first-fit-decreasing: each workload goes to the first host,
// in descending area order, that has space for it.
func (e *Engine) PackBySize(hosts []*models.Host, workloads []*models.Workload, opts SetupOptions) (*Result, error) {
	hs, ws, err := e.Setup(hosts, workloads, opts)
	if err != nil {
		return nil, err
	}

	place := func(w *models.Workload) bool {
		return e.tryHosts(w, hs)
	}
	return e.run(StrategySize, hs, ws, place, nil), nil
}

// PackBySizeRoundRobin uses the same workload order as PackBySize, but each
// placement attempt starts scanning one host further along than the last.
func (e *Engine) PackBySizeRoundRobin(hosts []*models.Host, workloads []*models.Workload, opts SetupOptions) (*Result, error) {
	hs, ws, err := e.Setup(hosts, workloads, opts)
	if err != nil {
		return nil, err
	}

	next := 0
	place := func(w *models.Workload) bool {
		n := len(hs)
		if n == 0 {
			return false
		}
		start := next
		next = (next + 1) % n

		rotated := make([]*models.Host, 0, n)
		rotated = append(rotated, hs[start:]...)
		rotated = append(rotated, hs[:start]...)
		return e.tryHosts(w, rotated)
	}
	return e.run(StrategyRoundRobin, hs, ws, place, nil), nil
}

// PackBySimilarity tries hosts in order of how closely the proportions of
// their headroom-adjusted free capacity match the workload's own proportions,
// compared as normalized (GiB, cores) vectors.
func (e *Engine) PackBySimilarity(hosts []*models.Host, workloads []*models.Workload, opts SetupOptions) (*Result, error) {
	hs, ws, err := e.Setup(hosts, workloads, opts)
	if err != nil {
		return nil, err
	}

	place := func(w *models.Workload) bool {
		wv := vecmath.Normalize(w.Vector())

		distance := make(map[*models.Host]float64, len(hs))
		for _, h := range hs {
			distance[h] = vecmath.Distance(wv, vecmath.Normalize(h.FreeVector()))
		}

		ranked := slices.Clone(hs)
		slices.SortStableFunc(ranked, func(a, b *models.Host) int {
			return cmp.Compare(distance[a], distance[b])
		})
		return e.tryHosts(w, ranked)
	}
	return e.run(StrategySimilarity, hs, ws, place, nil), nil
}

// PackRandomly shuffles the remaining workloads before each pass and the host
// order before each placement attempt. It is the baseline the other
// strategies are measured against.
func (e *Engine) PackRandomly(hosts []*models.Host, workloads []*models.Workload, opts SetupOptions) (*Result, error) {
	opts.Randomize = true
	hs, ws, err := e.Setup(hosts, workloads, opts)
	if err != nil {
		return nil, err
	}

	order := slices.Clone(hs)
	place := func(w *models.Workload) bool {
		e.shuffleHosts(order)
		return e.tryHosts(w, order)
	}
	return e.run(StrategyRandom, hs, ws, place, e.shuffleWorkloads), nil
}

// PackNull reassigns nothing: each workload is placed back on the host it was
// observed on, so the current layout can be reported like any other result.
// A workload whose origin host is absent, or whose placement would break the
// host's headroom, is counted as unplaced.
func (e *Engine) PackNull(hosts []*models.Host, workloads []*models.Workload, opts SetupOptions) (*Result, error) {
	hs, ws, err := e.Setup(hosts, workloads, opts)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*models.Host, len(hs))
	for _, h := range hs {
		byName[h.Name] = h
	}

	place := func(w *models.Workload) bool {
		h, ok := byName[w.OriginHost]
		if !ok {
			return false
		}
		return e.tryHosts(w, []*models.Host{h})
	}
	return e.run(StrategyNull, hs, ws, place, nil), nil
}
