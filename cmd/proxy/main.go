package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gocacheproxy/proxy/internal/acceptor"
	"github.com/gocacheproxy/proxy/internal/admin"
	"github.com/gocacheproxy/proxy/internal/cache"
	"github.com/gocacheproxy/proxy/internal/config"
	"github.com/gocacheproxy/proxy/internal/forward"
	"github.com/gocacheproxy/proxy/internal/logging"
	"github.com/gocacheproxy/proxy/internal/metrics"
	"github.com/gocacheproxy/proxy/internal/middleware"
	"github.com/gocacheproxy/proxy/internal/tracing"
)

// main initializes and starts the caching forward proxy
// This function orchestrates the entire application lifecycle including:
// - Configuration loading and validation
// - Cache, forwarding engine, and acceptor wiring
// - Admin HTTP surface (metrics, health) startup
// - Signal handling for clean termination
// Time Complexity: O(1) - constant initialisation time
// Space Complexity: O(1) - fixed memory allocation
func main() {
	// Positional argument is the listen port, per the proxy's CLI
	// contract: argc != 2 (program name + one port argument) exits 1
	// with a usage message.
	var configPath = flag.String("config", "", "Path to configuration file (optional)")
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s <port>\n", os.Args[0])
		os.Exit(1)
	}
	port, err := strconv.Atoi(args[0])
	if err != nil || port <= 0 || port > 65535 {
		fmt.Fprintf(os.Stderr, "usage: %s <port>\n", os.Args[0])
		os.Exit(1)
	}

	if *configPath != "" {
		if err := config.LoadConfig(*configPath); err != nil {
			log.Fatal(err)
		}
	}
	cfg := config.GetInstance()
	cfg.Server.Port = port

	logger := logging.NewLogger(cfg.Tracing.ServiceName, logging.ParseLevel(cfg.Observability.LogLevel))
	bgCtx := context.Background()

	shutdownTracing, err := tracing.InitTracing(tracing.TracingConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: cfg.Tracing.ServiceVersion,
		Environment:    cfg.Tracing.Environment,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SamplingRatio:  cfg.Tracing.SamplingRatio,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(bgCtx, "failed to initialise tracing", err)
	}
	defer shutdownTracing()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics()
	}

	coordinator := cache.NewCoordinator()
	if m != nil {
		coordinator.OnHit = func(key string, size int) {
			m.IncCacheHit()
			logger.Debug(bgCtx, "cache hit", slog.String("key", key), slog.Int("size", size))
		}
		coordinator.OnMiss = func(key string) {
			m.IncCacheMiss()
			logger.Debug(bgCtx, "cache miss", slog.String("key", key))
		}
		coordinator.OnEvict = func(freed int) {
			m.IncCacheEviction(coordinator.TotalSize())
			logger.Debug(bgCtx, "cache evict", slog.Int("freed", freed), slog.Int("total_size", coordinator.TotalSize()))
		}
		coordinator.OnAdmit = func(key string, size int) {
			m.IncCacheAdmit(coordinator.TotalSize())
			logger.Debug(bgCtx, "cache admit", slog.String("key", key), slog.Int("size", size))
		}
		coordinator.OnDenied = func(key string, size int) {
			m.IncCacheDenied()
			logger.Debug(bgCtx, "cache admit denied", slog.String("key", key), slog.Int("size", size))
		}
	}

	engine := &forward.Engine{
		Coordinator: coordinator,
		Logger:      logger,
		Metrics:     m,
		DialTimeout: cfg.Server.DialTimeout,
	}

	var limiter *middleware.RateLimiter
	if cfg.Admission.Enabled {
		limiter = middleware.NewRateLimiter(cfg.Admission)
	}

	acc := &acceptor.Acceptor{
		Engine:    engine,
		Logger:    logger,
		Metrics:   m,
		Admission: limiter,
	}

	listenAddr := net.JoinHostPort("", strconv.Itoa(cfg.Server.Port))
	if err := acc.Listen(listenAddr); err != nil {
		logger.Fatal(bgCtx, "failed to bind proxy listener", err)
	}

	var adminServer *admin.Server
	if m != nil {
		adminServer = admin.NewServer(cfg.Observability, m, coordinator, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 2)

	go func() {
		log.Printf("Caching proxy listening on port %d", cfg.Server.Port)
		if err := acc.Serve(ctx); err != nil {
			errChan <- fmt.Errorf("acceptor stopped: %w", err)
		}
	}()

	if adminServer != nil {
		go func() {
			log.Printf("Admin server listening on %s", cfg.Observability.AdminAddr)
			if err := adminServer.Start(ctx); err != nil && err != context.Canceled {
				errChan <- fmt.Errorf("admin server stopped: %w", err)
			}
		}()
	}

	select {
	case <-sigChan:
		log.Println("Received termination signal, shutting down gracefully...")
	case err := <-errChan:
		log.Printf("Fatal error: %v", err)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if adminServer != nil {
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error during admin server shutdown: %v", err)
		}
	}
	if err := acc.Close(); err != nil {
		log.Printf("Error closing proxy listener: %v", err)
	}

	log.Println("Proxy server stopped")
}
