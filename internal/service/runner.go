package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/refurbtrack/refurb-tracker/internal/diff"
	"github.com/refurbtrack/refurb-tracker/internal/models"
	"github.com/refurbtrack/refurb-tracker/internal/sink"
	"github.com/refurbtrack/refurb-tracker/pkg/metrics"
)

// CatalogSource supplies the fully materialized current catalog for one run
type CatalogSource interface {
	FetchCatalog(ctx context.Context) ([]models.ProductRecord, error)
}

// SnapshotStore owns the previous snapshot between runs
type SnapshotStore interface {
	LoadPrevious(ctx context.Context) (models.Snapshot, error)
	SaveCurrent(ctx context.Context, snap models.Snapshot) error
}

// EventPublisher forwards change events downstream after they are durable
type EventPublisher interface {
	PublishChange(ctx context.Context, ev models.ChangeEvent) error
	IsHealthy() bool
}

type Options struct {
	AllowEmptyCatalog     bool
	BootstrapOnStoreError bool
}

// Runner drives one scrape→diff→persist cycle to completion. Runs are
// strictly sequential: the caller's loop is the scheduler and must never
// overlap invocations.
type Runner struct {
	source    CatalogSource
	store     SnapshotStore
	sink      sink.Target
	publisher EventPublisher // nil when no broker is configured
	opts      Options
	logger    *slog.Logger
}

func NewRunner(source CatalogSource, store SnapshotStore, target sink.Target, publisher EventPublisher, opts Options, logger *slog.Logger) *Runner {
	return &Runner{
		source:    source,
		store:     store,
		sink:      target,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
	}
}

// Run executes one full cycle. Any returned error is terminal for the run:
// nothing is retried here, no diff is ever partially applied, and the
// stored previous snapshot is only replaced after every history row has
// been durably handed to the sink.
func (r *Runner) Run(ctx context.Context) (err error) {
	start := time.Now()
	status := "success"
	defer func() {
		metrics.RunDuration.Observe(time.Since(start).Seconds())
		metrics.RunsTotal.WithLabelValues(status).Inc()
		if err != nil {
			metrics.HealthStatus.Set(0)
		} else {
			metrics.HealthStatus.Set(1)
		}
	}()

	records, err := r.source.FetchCatalog(ctx)
	if err != nil {
		status = "scrape_error"
		return fmt.Errorf("catalog fetch failed: %w", err)
	}

	current, err := models.NewSnapshot(records)
	if err != nil {
		// Two records claiming one SKU means identity is ambiguous for the
		// whole run. Diffing against that would poison the history logs.
		status = "conflict"
		return fmt.Errorf("normalization conflict: %w", err)
	}

	previous, err := r.store.LoadPrevious(ctx)
	if err != nil {
		if errors.Is(err, models.ErrStoreUnavailable) && r.opts.BootstrapOnStoreError {
			r.logger.Warn("Previous snapshot unreadable, bootstrapping as first run per config", "error", err)
			previous = models.Snapshot{}
		} else {
			status = "store_error"
			return fmt.Errorf("load previous snapshot: %w", err)
		}
	}

	runTS := time.Now().UTC()
	events, err := diff.Diff(previous, current, runTS)
	if err != nil {
		if errors.Is(err, models.ErrEmptyCatalog) && r.opts.AllowEmptyCatalog {
			r.logger.Warn("Empty catalog accepted per config, recording mass disappearance",
				"previous_size", len(previous))
			events = diff.MassDisappearance(previous, runTS)
		} else {
			status = "empty_catalog"
			return fmt.Errorf("diff aborted: %w", err)
		}
	}

	metrics.SnapshotSize.Set(float64(len(current)))
	for _, ev := range events {
		metrics.ChangesDetected.WithLabelValues(string(ev.Type)).Inc()
	}

	priceRows, availabilityRows := diff.AppendHistory(events, runTS)

	// History first. If any of these fail the previous snapshot stays in
	// place, so the next run re-diffs against the same baseline and the
	// change set is recomputed instead of lost.
	if err := r.sink.AppendPriceHistory(ctx, priceRows); err != nil {
		status = "persist_error"
		return fmt.Errorf("append price history: %w", err)
	}
	if err := r.sink.AppendAvailabilityHistory(ctx, availabilityRows); err != nil {
		status = "persist_error"
		return fmt.Errorf("append availability history: %w", err)
	}
	if err := r.sink.SaveInventory(ctx, current); err != nil {
		status = "persist_error"
		return fmt.Errorf("save inventory: %w", err)
	}

	r.publishEvents(ctx, events)

	// Replacement happens exactly once per run, strictly after history
	// persistence. A failure here is still a failed run: swallowing it
	// would silently re-emit this diff forever.
	if err := r.store.SaveCurrent(ctx, current); err != nil {
		status = "replace_error"
		return fmt.Errorf("replace previous snapshot: %w", err)
	}

	r.logger.Info("Run complete",
		"products", len(current),
		"price_changes", len(priceRows),
		"availability_changes", len(availabilityRows),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// publishEvents is best-effort by design: events are already durable in the
// history logs, and the notifier tolerates gaps better than the run
// tolerates aborting after persistence.
func (r *Runner) publishEvents(ctx context.Context, events []models.ChangeEvent) {
	if r.publisher == nil || len(events) == 0 {
		return
	}
	if !r.publisher.IsHealthy() {
		r.logger.Warn("Broker offline, skipping event publication", "events", len(events))
		return
	}

	published := 0
	for _, ev := range events {
		if err := r.publisher.PublishChange(ctx, ev); err != nil {
			r.logger.Error("Failed to publish change event", "event_id", ev.EventID, "sku", ev.SKU, "error", err)
			continue
		}
		published++
	}
	r.logger.Debug("Published change events", "published", published, "total", len(events))
}
