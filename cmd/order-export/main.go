// Command order-export serves order/line-item/shipment exports of the
// configured commerce platform stores as JSON and CSV.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/order-export/pkg/client"
	"github.com/Sternrassler/order-export/pkg/config"
	"github.com/Sternrassler/order-export/pkg/enrich"
	"github.com/Sternrassler/order-export/pkg/logging"
	"github.com/Sternrassler/order-export/pkg/pagination"
	"github.com/Sternrassler/order-export/pkg/reconcile"
	"github.com/Sternrassler/order-export/pkg/report"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logging.Setup(logging.Config{
		Level:   logging.ParseLevel(cfg.LogLevel),
		Pretty:  cfg.LogPretty,
		Output:  os.Stderr,
		Service: "order-export",
	})
	logger := logging.NewLogger("server")

	logger.Info().
		Str("environment", cfg.Environment).
		Str("platform_host", cfg.PlatformHost).
		Int("stores", len(cfg.Stores)).
		Int("concurrency", cfg.Concurrency).
		Int("page_size", cfg.PageSize).
		Msg("Configuration loaded")

	rdb := connectRedis(ctx, cfg.RedisURL, logger)
	if rdb != nil {
		defer rdb.Close()
	}

	platform, err := client.New(cfg.ClientConfig(rdb))
	if err != nil {
		return fmt.Errorf("creating platform client: %w", err)
	}
	fetcher := pagination.NewFetcher(platform, pagination.Config{PageSize: cfg.PageSize})
	enricher := enrich.New(platform, fetcher, cfg.Concurrency)
	assembler := report.NewAssembler(reconcile.New(cfg.ReconcileOptions()))
	exporter := report.NewExporter(cfg.Stores, fetcher, enricher, assembler)
	exporter.SetCachePurger(platform)

	srv := newServer(exporter, cfg.Stores, cfg.StaticDir)
	handler := logging.Chain(
		logging.Recovery(logger),
		logging.Middleware(logger),
	)(srv.routes())

	// Exports of large stores take minutes; the write timeout covers a run.
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("Server starting")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info().Msg("Server stopped")
	return nil
}

// connectRedis returns a client for the response cache, or nil when no URL
// is configured or redis is unreachable. Exports work without the cache.
func connectRedis(ctx context.Context, redisURL string, logger zerolog.Logger) *redis.Client {
	if redisURL == "" {
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		// Plain host:port
		opts = &redis.Options{Addr: redisURL}
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", opts.Addr).Msg("Redis unavailable - response cache disabled")
		rdb.Close()
		return nil
	}

	logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis - response cache enabled")
	return rdb
}
