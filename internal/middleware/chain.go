// ABOUTME: Middleware type and the helper that stacks middleware around a handler
// ABOUTME: The first middleware passed to Chain sees the request first

package middleware

import (
	"net/http"
	"slices"
)

// Middleware wraps a handler with extra behaviour.
type Middleware func(http.HandlerFunc) http.HandlerFunc

// Chain wraps h so that mws[0] is outermost: Chain(h, LogRequest, Recover)
// is LogRequest(Recover(h)).
func Chain(h http.HandlerFunc, mws ...Middleware) http.HandlerFunc {
	for _, mw := range slices.Backward(mws) {
		h = mw(h)
	}
	return h
}
