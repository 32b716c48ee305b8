// ABOUTME: CORS middleware for browser clients of the read-only API
// ABOUTME: Answers preflight requests and exposes the request ID header

package middleware

import (
	"net/http"
	"slices"
	"strings"
)

const corsMaxAge = "600"

// CORS allows any origin to call the listed methods. Preflight requests are
// answered with 204 and never reach the handler.
func CORS(methods ...string) Middleware {
	allowed := strings.Join(append(slices.Clone(methods), http.MethodOptions), ", ")
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", "*")
			h.Set("Access-Control-Expose-Headers", requestIDHeader)

			if r.Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", allowed)
				h.Set("Access-Control-Allow-Headers", "Content-Type")
				h.Set("Access-Control-Max-Age", corsMaxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next(w, r)
		}
	}
}
