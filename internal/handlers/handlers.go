// ABOUTME: HTTP handlers for the read-only packing API
// ABOUTME: Serves inventory, single-strategy packing, and strategy comparison as JSON

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hawson/pve-balance/internal/config"
	"github.com/hawson/pve-balance/internal/models"
	"github.com/hawson/pve-balance/internal/packing"
	"github.com/hawson/pve-balance/internal/services"
)

const inventoryTimeout = 30 * time.Second

// Handler serves the packing API over one inventory source.
type Handler struct {
	cfg *config.Config
	inv services.Inventory
}

// refresher is implemented by inventories that cache upstream results.
type refresher interface {
	Invalidate()
}

// NewHandler builds handlers over inv. Either argument may be nil for route
// inspection; data endpoints then answer 503.
func NewHandler(cfg *config.Config, inv services.Inventory) *Handler {
	return &Handler{cfg: cfg, inv: inv}
}

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    int    `json:"code"`
}

// InventoryResponse lists the raw records the API packs from.
type InventoryResponse struct {
	Hosts     []models.HostRecord     `json:"hosts"`
	Workloads []models.WorkloadRecord `json:"workloads"`
}

// HostPlacement names the workloads one host received.
type HostPlacement struct {
	Host      string   `json:"host"`
	Workloads []string `json:"workloads"`
}

// PackResponse is the outcome of one strategy run.
type PackResponse struct {
	Seed       uint64               `json:"seed"`
	Setup      packing.SetupOptions `json:"setup"`
	Summary    packing.Summary      `json:"summary"`
	Placements []HostPlacement      `json:"placements"`
	Unplaced   []string             `json:"unplaced"`
}

// CompareResponse holds one summary per strategy.
type CompareResponse struct {
	Seed       uint64               `json:"seed"`
	Setup      packing.SetupOptions `json:"setup"`
	Strategies []packing.Summary    `json:"strategies"`
}

// Inventory returns the host and workload records after exclusions.
// refresh=true drops cached records first.
func (h *Handler) Inventory(w http.ResponseWriter, r *http.Request) {
	refresh := false
	if v := r.URL.Query().Get("refresh"); v != "" {
		var err error
		if refresh, err = strconv.ParseBool(v); err != nil {
			h.writeError(w, "refresh must be true or false", http.StatusBadRequest)
			return
		}
	}
	if !h.requireInventory(w) {
		return
	}
	if c, ok := h.inv.(refresher); ok && refresh {
		c.Invalidate()
	}

	ctx, cancel := context.WithTimeout(r.Context(), inventoryTimeout)
	defer cancel()

	hosts, err := h.inv.Hosts(ctx)
	if err != nil {
		h.writeInventoryError(w, err)
		return
	}
	workloads, err := h.inv.Workloads(ctx, "")
	if err != nil {
		h.writeInventoryError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, InventoryResponse{Hosts: hosts, Workloads: workloads})
}

// Pack runs one strategy. Query: strategy, sort, ascending, seed.
func (h *Handler) Pack(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	strategy := packing.StrategySize
	if s := q.Get("strategy"); s != "" {
		var err error
		if strategy, err = packing.ParseStrategy(s); err != nil {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	setup, seed, err := parsePackQuery(r)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !h.requireInventory(w) {
		return
	}

	hosts, workloads, ok := h.loadModels(w, r)
	if !ok {
		return
	}

	result, err := h.engine(seed).Pack(strategy, hosts, workloads, setup)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, PackResponse{
		Seed:       seed,
		Setup:      setup,
		Summary:    packing.Summarize(result),
		Placements: placements(result),
		Unplaced:   workloadNames(result.UnplacedWorkloads),
	})
}

// Compare runs every strategy over the same inventory.
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	setup, seed, err := parsePackQuery(r)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !h.requireInventory(w) {
		return
	}

	hosts, workloads, ok := h.loadModels(w, r)
	if !ok {
		return
	}

	results, err := h.engine(seed).Compare(hosts, workloads, setup)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := CompareResponse{Seed: seed, Setup: setup, Strategies: make([]packing.Summary, 0, len(results))}
	for _, res := range results {
		resp.Strategies = append(resp.Strategies, packing.Summarize(res))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// parsePackQuery reads sort, ascending and seed. A missing seed is drawn
// from the clock and echoed in the response so runs can be repeated.
func parsePackQuery(r *http.Request) (packing.SetupOptions, uint64, error) {
	q := r.URL.Query()
	setup := packing.DefaultSetupOptions()

	if s := q.Get("sort"); s != "" {
		key, err := packing.ParseSortKey(s)
		if err != nil {
			return setup, 0, err
		}
		setup.Key = key
	}

	if s := q.Get("ascending"); s != "" {
		asc, err := strconv.ParseBool(s)
		if err != nil {
			return setup, 0, errors.New("ascending must be true or false")
		}
		setup.Descending = !asc
	}

	seed := uint64(time.Now().UnixNano())
	if s := q.Get("seed"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return setup, 0, errors.New("seed must be a non-negative integer")
		}
		seed = v
	}

	return setup, seed, nil
}

func (h *Handler) engine(seed uint64) *packing.Engine {
	return packing.New(
		packing.WithScorer(models.NewScorer(h.cfg.Weights())),
		packing.WithSeed(seed),
		packing.WithLogger(slog.Default()),
	)
}

func (h *Handler) loadModels(w http.ResponseWriter, r *http.Request) ([]*models.Host, []*models.Workload, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), inventoryTimeout)
	defer cancel()

	hosts, workloads, err := services.LoadModels(ctx, h.inv, h.cfg)
	if err != nil {
		h.writeInventoryError(w, err)
		return nil, nil, false
	}
	return hosts, workloads, true
}

func placements(r *packing.Result) []HostPlacement {
	out := make([]HostPlacement, 0, len(r.Hosts))
	for _, host := range r.Hosts {
		out = append(out, HostPlacement{Host: host.Name, Workloads: workloadNames(host.Allocated)})
	}
	return out
}

func workloadNames(ws []*models.Workload) []string {
	names := make([]string, 0, len(ws))
	for _, w := range ws {
		names = append(names, w.String())
	}
	return names
}

func (h *Handler) requireInventory(w http.ResponseWriter) bool {
	if h.inv == nil || h.cfg == nil {
		h.writeError(w, "Inventory not configured. Set PVE_HOST, PVE_USER and PVE_PASSWORD or INVENTORY_SOURCE=vsphere.", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (h *Handler) writeInventoryError(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrAuthentication) {
		slog.Error("Cluster API rejected credentials", "error", err)
		h.writeError(w, "Cluster API rejected credentials", http.StatusBadGateway)
		return
	}
	slog.Error("Inventory fetch failed", "error", err)
	h.writeErrorWithDetails(w, "Failed to retrieve inventory", err.Error(), http.StatusBadGateway)
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	h.writeErrorWithDetails(w, message, "", code)
}

func (h *Handler) writeErrorWithDetails(w http.ResponseWriter, message, details string, code int) {
	h.writeJSON(w, code, ErrorResponse{Error: message, Details: details, Code: code})
}
