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
	"github.com/refurbtrack/refurb-tracker/internal/processor"
	"github.com/refurbtrack/refurb-tracker/pkg/infra"
	_ "github.com/refurbtrack/refurb-tracker/pkg/metrics"
)

func main() {
	cfg := config.Load()
	logger := infra.SetupLogger(cfg)
	slog.SetDefault(logger)

	if cfg.RabbitMQURL == "" {
		logger.Error("CRITICAL: RABBITMQ_URL is required for the notifier")
		os.Exit(1)
	}

	binding := os.Getenv("EVENT_BINDING")
	if binding == "" {
		binding = "catalog.#"
	}

	// Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("🔔 Notifier initializing...", "binding", binding)

	handler := processor.NewNotifyHandler(logger)

	go startObservabilityServer("9092", logger)

	connBackoff := infra.NewBackoff(1*time.Second, 60*time.Second, 2.0)

	for {
		select {
		case <-ctx.Done():
			logger.Info("🛑 Shutdown signal received")
			return
		default:
			consumer, err := broker.NewRabbitMQConsumer(cfg.RabbitMQURL, binding, handler, logger)
			if err != nil {
				wait := connBackoff.Next()
				logger.Error("RabbitMQ connection failed, retrying...",
					"wait_duration", wait,
					"error", err,
				)

				select {
				case <-ctx.Done():
					return
				case <-time.After(wait):
					continue
				}
			}

			connBackoff.Reset()
			logger.Info("✅ Connected to Broker. Watching for catalog changes...")

			if err := consumer.Listen(ctx); err != nil {
				logger.Error("⚠️ Consumer connection lost", "error", err)
			}

			consumer.Close()
		}
	}
}

func startObservabilityServer(port string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("NOTIFIER ALIVE"))
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
