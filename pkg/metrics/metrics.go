package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal tracks scrape-to-persist cycles by outcome
	// status: success, empty_catalog, scrape_error, store_error,
	// persist_error, replace_error, conflict
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_runs_total",
		Help: "Total number of catalog runs by outcome",
	}, []string{"status"})

	// RunDuration measures a full run: fetch, diff, persist, snapshot replace
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tracker_run_duration_seconds",
		Help:    "Duration of a full catalog run in seconds",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
	})

	// SnapshotSize tracks how many products the current snapshot holds
	// A sudden drop here is the first sign of a broken scrape
	SnapshotSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_snapshot_size",
		Help: "Number of products in the most recent catalog snapshot",
	})

	// ChangesDetected tracks diff output by category
	ChangesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_changes_detected_total",
		Help: "Total classified changes detected across runs",
	}, []string{"type"})

	// PagesScraped counts catalog category pages fetched per run
	PagesScraped = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tracker_pages_scraped",
		Help:    "Number of catalog pages fetched per run",
		Buckets: []float64{1, 2, 5, 10, 20, 50},
	})

	// HealthStatus provides a binary 0/1 signal for the tracker's health
	// 1 = last run completed, 0 = last run failed
	HealthStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_healthy",
		Help: "Current health of the tracker (1 for healthy, 0 for unhealthy)",
	})

	// BrokerReconnections counts how many times the publisher link was restored
	BrokerReconnections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_broker_reconnections_total",
		Help: "Total number of RabbitMQ reconnection attempts",
	})
)
