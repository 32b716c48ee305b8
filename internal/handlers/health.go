// ABOUTME: HTTP handler for the health endpoint
// ABOUTME: Reports which inventory source is configured and the cache TTL

package handlers

import "net/http"

// Health returns API status and inventory configuration.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"inventory": "not_configured",
	}

	if h.cfg != nil {
		resp["source"] = h.cfg.InventorySource
		resp["cache_ttl_seconds"] = h.cfg.CacheTTL
	}
	if h.inv != nil {
		resp["inventory"] = "ok"
	}

	h.writeJSON(w, http.StatusOK, resp)
}
