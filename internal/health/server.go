// Package health exposes the liveness and metrics HTTP surface every
// worker process serves alongside its consume loop.
package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// New builds the health/metrics router for stageName. metricsHandler is
// injected so this package never imports Prometheus directly — that stays
// internal/metrics' concern.
func New(stageName string, metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","stage":%q}`, stageName)
	})
	r.Handle("/metrics", metricsHandler)

	return r
}

// Serve starts an HTTP server on addr in the background and shuts it down
// cleanly when ctx is cancelled. Errors other than a clean shutdown are
// logged, not returned — a dead health endpoint should never take the
// consume loop down with it.
func Serve(ctx context.Context, addr string, handler http.Handler, lg zerolog.Logger) {
	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			lg.Warn().Err(err).Msg("health server shutdown error")
		}
	}()

	go func() {
		lg.Info().Str("addr", addr).Msg("health server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Error().Err(err).Msg("health server failed")
		}
	}()
}
