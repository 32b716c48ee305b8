// ABOUTME: Serve command: exposes inventory and packing results over HTTP
// ABOUTME: Registers the handler route table behind logging and recovery middleware

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hawson/pve-balance/internal/handlers"
	"github.com/hawson/pve-balance/internal/middleware"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only packing API",
	Long: `Start an HTTP server with JSON endpoints:

  GET /api/v1/health
  GET /api/v1/inventory
  GET /api/v1/pack?strategy=&sort=&ascending=&seed=
  GET /api/v1/compare?sort=&ascending=&seed=`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runServe(ctx, os.Stderr, servePort)
		if exitCode != exitOK {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&servePort, "port", "", "Listen port (overrides PORT)")
}

// newMux registers every route behind the middleware chain. Method checks
// happen in middleware so a wrong method still gets a JSON body. A nil
// limiter leaves packing routes unlimited.
func newMux(h *handlers.Handler, limiter *middleware.RateLimiter) *http.ServeMux {
	mux := http.NewServeMux()
	for _, route := range h.Routes() {
		chain := []middleware.Middleware{
			middleware.LogRequest,
			middleware.Recover,
			middleware.CORS(route.Method),
			middleware.RequireMethod(route.Method),
		}
		if route.RateLimited {
			chain = append(chain, middleware.RateLimit(limiter))
		}
		mux.HandleFunc(route.Path, middleware.Chain(route.Handler, chain...))
	}
	return mux
}

// runServe serves until ctx is cancelled and returns the exit code
func runServe(ctx context.Context, errW io.Writer, port string) int {
	cfg, err := loadConfig()
	if err != nil {
		return reportError(errW, err)
	}
	if port == "" {
		port = cfg.Port
	}

	inv, closeInv, err := openInventory(ctx, cfg)
	if err != nil {
		return reportError(errW, err)
	}
	defer closeInv()

	var limiter *middleware.RateLimiter
	if cfg.RateLimitPack > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitPack, time.Minute)
	}

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           newMux(handlers.NewHandler(cfg, inv), limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", server.Addr, "source", cfg.InventorySource)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return reportError(errW, fmt.Errorf("server failed: %w", err))
		}
	case <-ctx.Done():
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return reportError(errW, err)
		}
	}
	return exitOK
}
