package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotifierEvents tracks change events received from the broker
	NotifierEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_events_total",
		Help: "Total change events handled by the notifier",
	}, []string{"status", "type"}) // status: handled, duplicate, malformed

	// NotifierLag measures the delay between event detection and delivery
	NotifierLag = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "notifier_event_lag_seconds",
		Help:    "Time between change detection and notifier delivery",
		Buckets: []float64{0.1, 0.5, 1, 5, 30, 120, 600},
	})
)
