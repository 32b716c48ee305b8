// ABOUTME: Declarative route table for API endpoints
// ABOUTME: Defines all routes with their HTTP methods and handlers

package handlers

import "net/http"

// Route defines an API endpoint with its HTTP method and handler.
type Route struct {
	Method      string           // HTTP method (GET, POST, etc.)
	Path        string           // URL path (e.g., "/api/v1/health")
	Handler     http.HandlerFunc // Handler function
	RateLimited bool             // runs packing; subject to RATE_LIMIT_PACK
}

// Routes returns all API routes for registration.
func (h *Handler) Routes() []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/api/v1/health", Handler: h.Health},
		{Method: http.MethodGet, Path: "/api/v1/inventory", Handler: h.Inventory},
		{Method: http.MethodGet, Path: "/api/v1/pack", Handler: h.Pack, RateLimited: true},
		{Method: http.MethodGet, Path: "/api/v1/compare", Handler: h.Compare, RateLimited: true},
	}
}
