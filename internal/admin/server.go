// Package admin hosts the proxy's small HTTP control surface: Prometheus
// metrics exposition and a liveness endpoint. It is entirely separate
// from the proxy's data plane, which speaks raw HTTP/1.0 over accepted
// TCP connections and never goes through net/http.
package admin

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gocacheproxy/proxy/internal/cache"
	"github.com/gocacheproxy/proxy/internal/config"
	"github.com/gocacheproxy/proxy/internal/logging"
	"github.com/gocacheproxy/proxy/internal/metrics"
	"github.com/gocacheproxy/proxy/internal/middleware"
)

// Server hosts the admin HTTP endpoints behind the configured
// middleware chain, using dependency injection the same way the
// forwarding data plane's components are wired.
type Server struct {
	httpServer *http.Server
	middleware []middleware.Middleware
}

// NewServer builds the admin server using the metrics and logging
// middleware, serving /metrics and /healthz.
// Time Complexity: O(1) - fixed route and middleware set
// Space Complexity: O(1) - fixed handler storage
func NewServer(cfg config.ObservabilityConfig, m *metrics.Metrics, coord *cache.Coordinator, logger *logging.Logger) *Server {
	middlewares := []middleware.Middleware{
		middleware.NewMetrics(m),
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", healthHandler(coord))

	var handler http.Handler = mux
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i].Wrap(handler)
	}
	handler = logger.HTTPRequestLogger()(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:    cfg.AdminAddr,
			Handler: handler,
		},
		middleware: middlewares,
	}
}

// Start begins serving the admin surface until ctx is cancelled.
// Time Complexity: O(1) for startup, serves until context cancellation
// Space Complexity: O(1) for server state
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("admin HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown gracefully stops the admin server within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown admin HTTP server: %w", err)
	}
	return nil
}

// healthHandler reports liveness. It stays up as long as the process
// is accepting connections; cache size is reported as a diagnostic,
// not a health signal, since a full cache is normal operation.
func healthHandler(coord *cache.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok cache_bytes=%d\n", coord.TotalSize())
	}
}
