package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/refurbtrack/refurb-tracker/internal/broker"
	"github.com/refurbtrack/refurb-tracker/internal/config"
	"github.com/refurbtrack/refurb-tracker/internal/db"
	"github.com/refurbtrack/refurb-tracker/internal/scraper"
	"github.com/refurbtrack/refurb-tracker/internal/service"
	"github.com/refurbtrack/refurb-tracker/internal/sink"
	"github.com/refurbtrack/refurb-tracker/internal/store"
	"github.com/refurbtrack/refurb-tracker/pkg/infra"
	"github.com/refurbtrack/refurb-tracker/pkg/metrics"
)

func main() {
	cfg := config.Load()
	logger := infra.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("🔎 Refurb tracker initializing...",
		"catalog", cfg.CatalogURL,
		"interval", cfg.ScrapeInterval,
	)

	// Snapshot store: Postgres when configured, JSON file otherwise
	var snapshots service.SnapshotStore
	targets := sink.Multi{sink.NewCSVSink(cfg.DataDir)}

	if cfg.DatabaseURL != "" {
		pg, err := db.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("FATAL: Postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer pg.Close()

		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("FATAL: schema setup failed", "error", err)
			os.Exit(1)
		}

		snapshots = pg
		targets = append(targets, pg)
		logger.Info("Postgres dual-write enabled")
	} else {
		snapshots = store.NewFileStore(cfg.SnapshotPath)
	}

	source := scraper.New(cfg, logger)

	go startObservabilityServer(cfg.MetricsPort, logger)

	runLoop(ctx, cfg, source, snapshots, targets, logger)
	logger.Info("✅ Tracker shut down cleanly")
}

// runLoop owns scheduling. Runs are strictly sequential: a new cycle only
// starts after the previous one finished, so snapshot reads and writes
// never overlap.
func runLoop(ctx context.Context, cfg *config.Config, source *scraper.Scraper, snapshots service.SnapshotStore, targets sink.Multi, logger *slog.Logger) {
	backoff := infra.NewBackoff(30*time.Second, 30*time.Minute, 2.0)
	opts := service.Options{
		AllowEmptyCatalog:     cfg.AllowEmptyCatalog,
		BootstrapOnStoreError: cfg.BootstrapOnStoreError,
	}

	var rabbit *broker.RabbitMQClient
	defer func() {
		if rabbit != nil {
			rabbit.Close()
		}
	}()

	for {
		// Lifecycle: keep the optional broker link alive across cycles
		if cfg.RabbitMQURL != "" && (rabbit == nil || !rabbit.IsHealthy()) {
			if rabbit != nil {
				rabbit.Close()
				metrics.BrokerReconnections.Inc()
			}
			newRabbit, err := broker.NewRabbitMQClient(cfg.RabbitMQURL, logger)
			if err != nil {
				// Events are best-effort; the run proceeds without them
				logger.Warn("RabbitMQ link failure, running without event publishing", "error", err)
				rabbit = nil
			} else {
				rabbit = newRabbit
			}
		}

		var publisher service.EventPublisher
		if rabbit != nil {
			publisher = rabbit
		}
		runner := service.NewRunner(source, snapshots, targets, publisher, opts, logger)

		if err := runner.Run(ctx); err != nil {
			wait := backoff.Next()
			logger.Error("Run failed", "retry_in", wait, "error", err)

			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return
			}
		}

		backoff.Reset()

		select {
		case <-time.After(cfg.ScrapeInterval):
			continue
		case <-ctx.Done():
			return
		}
	}
}

func startObservabilityServer(port string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("TRACKER ALIVE"))
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Info("📊 Observability server online", "url", "http://localhost:"+port+"/metrics")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Observability server failed", "error", err)
	}
}
