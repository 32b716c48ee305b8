// ABOUTME: Packing engine that places workloads onto host copies under several strategies
// ABOUTME: Every strategy shares the fixed-point pass loop: stop when a pass places nothing

package packing

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/hawson/pve-balance/internal/models"
)

// ErrUnknownStrategy is returned when a strategy name is not recognized.
var ErrUnknownStrategy = errors.New("unknown packing strategy")

// Strategy names a placement algorithm.
type Strategy string

const (
	StrategySize       Strategy = "size"
	StrategyRoundRobin Strategy = "round-robin"
	StrategySimilarity Strategy = "similarity"
	StrategyRandom     Strategy = "random"
	StrategyNull       Strategy = "null"
)

// Strategies lists every strategy in comparison order.
func Strategies() []Strategy {
	return []Strategy{StrategyNull, StrategySize, StrategyRoundRobin, StrategySimilarity, StrategyRandom}
}

// ParseStrategy validates a strategy name. A few historical aliases are accepted.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "size", "ffd", "first-fit":
		return StrategySize, nil
	case "round-robin", "roundrobin", "rr":
		return StrategyRoundRobin, nil
	case "similarity", "dot-product", "dot":
		return StrategySimilarity, nil
	case "random":
		return StrategyRandom, nil
	case "null", "current", "none":
		return StrategyNull, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// Result is the outcome of one packing run. Hosts are private copies whose
// Allocated lists hold the new placement.
type Result struct {
	Strategy          Strategy           `json:"strategy"`
	Hosts             []*models.Host     `json:"hosts"`
	Placed            int                `json:"placed"`
	Unplaced          int                `json:"unplaced"`
	UnplacedWorkloads []*models.Workload `json:"unplaced_workloads"`
}

// Total returns the number of workloads the run considered.
func (r *Result) Total() int {
	return r.Placed + r.Unplaced
}

// PlacedPercent returns the share of workloads placed, 0-100.
func (r *Result) PlacedPercent() float64 {
	if r.Total() == 0 {
		return 0
	}
	return 100 * float64(r.Placed) / float64(r.Total())
}

// Engine runs packing strategies. It is not safe for concurrent use because
// it owns a single random source.
type Engine struct {
	scorer models.Scorer
	rng    *rand.Rand
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithScorer sets the scorer used by the "score" sort key.
func WithScorer(s models.Scorer) Option {
	return func(e *Engine) { e.scorer = s }
}

// WithSeed makes the random strategy reproducible.
func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithLogger sets the logger for placement messages.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine. Without WithSeed the random source is time-seeded.
func New(opts ...Option) *Engine {
	e := &Engine{
		scorer: models.NewScorer(models.DefaultWeights()),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		seed := uint64(time.Now().UnixNano())
		e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	return e
}

// Pack runs the named strategy over copies of hosts and workloads.
func (e *Engine) Pack(strategy Strategy, hosts []*models.Host, workloads []*models.Workload, opts SetupOptions) (*Result, error) {
	switch strategy {
	case StrategySize:
		return e.PackBySize(hosts, workloads, opts)
	case StrategyRoundRobin:
		return e.PackBySizeRoundRobin(hosts, workloads, opts)
	case StrategySimilarity:
		return e.PackBySimilarity(hosts, workloads, opts)
	case StrategyRandom:
		return e.PackRandomly(hosts, workloads, opts)
	case StrategyNull:
		return e.PackNull(hosts, workloads, opts)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
}

// Compare runs every strategy on the same snapshot.
func (e *Engine) Compare(hosts []*models.Host, workloads []*models.Workload, opts SetupOptions) ([]*Result, error) {
	results := make([]*Result, 0, len(Strategies()))
	for _, s := range Strategies() {
		r, err := e.Pack(s, hosts, workloads, opts)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", s, err)
		}
		results = append(results, r)
	}
	return results, nil
}

// placeFunc attempts to place one workload and reports success.
type placeFunc func(w *models.Workload) bool

// run repeats placement passes over the remaining workloads until a pass
// places nothing. beforePass, when set, may reorder the remaining list.
func (e *Engine) run(strategy Strategy, hosts []*models.Host, workloads []*models.Workload, place placeFunc, beforePass func([]*models.Workload)) *Result {
	log := e.logger.With("strategy", string(strategy))
	log.Info("Packing started", "hosts", len(hosts), "workloads", len(workloads))

	remaining := workloads
	placed := 0
	for pass := 1; len(remaining) > 0; pass++ {
		if beforePass != nil {
			beforePass(remaining)
		}

		left := make([]*models.Workload, 0, len(remaining))
		placedThisPass := 0
		for _, w := range remaining {
			if place(w) {
				placedThisPass++
				continue
			}
			log.Debug("Placement failed", "workload", w.String(), "pass", pass)
			left = append(left, w)
		}

		placed += placedThisPass
		remaining = left
		log.Debug("Pass complete", "pass", pass, "placed", placedThisPass, "remaining", len(remaining))
		if placedThisPass == 0 {
			break
		}
	}

	for _, w := range remaining {
		log.Warn("Workload could not be placed",
			"workload", w.String(),
			"max_cpu", w.MaxCPU,
			"max_memory_gib", w.MaxMemoryGiB(),
		)
	}
	if len(remaining) == 0 {
		log.Info("Packing complete, all workloads placed", "placed", placed)
	} else {
		log.Info("Packing complete", "placed", placed, "unplaced", len(remaining))
	}

	return &Result{
		Strategy:          strategy,
		Hosts:             hosts,
		Placed:            placed,
		Unplaced:          len(remaining),
		UnplacedWorkloads: remaining,
	}
}

// tryHosts allocates w to the first host in order that has space.
func (e *Engine) tryHosts(w *models.Workload, hosts []*models.Host) bool {
	for _, h := range hosts {
		if h.Allocate(w, false) {
			e.logger.Debug("Placed workload", "workload", w.String(), "host", h.Name)
			return true
		}
	}
	return false
}

func (e *Engine) shuffleWorkloads(ws []*models.Workload) {
	e.rng.Shuffle(len(ws), func(i, j int) { ws[i], ws[j] = ws[j], ws[i] })
}

func (e *Engine) shuffleHosts(hs []*models.Host) {
	e.rng.Shuffle(len(hs), func(i, j int) { hs[i], hs[j] = hs[j], hs[i] })
}
