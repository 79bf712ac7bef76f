package sink

import (
	"context"

	"github.com/refurbtrack/refurb-tracker/internal/models"
)

// Target is what the runner hands persisted output to. CSVSink and the
// Postgres store both satisfy it.
type Target interface {
	SaveInventory(ctx context.Context, snap models.Snapshot) error
	AppendPriceHistory(ctx context.Context, rows []models.HistoryRow) error
	AppendAvailabilityHistory(ctx context.Context, rows []models.HistoryRow) error
}

// Multi fans every write out to all targets in order and stops at the
// first failure. Dual-write (CSV plus Postgres) is all-or-nothing for the
// run: a half-persisted diff must not let snapshot replacement proceed.
type Multi []Target

func (m Multi) SaveInventory(ctx context.Context, snap models.Snapshot) error {
	for _, t := range m {
		if err := t.SaveInventory(ctx, snap); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) AppendPriceHistory(ctx context.Context, rows []models.HistoryRow) error {
	for _, t := range m {
		if err := t.AppendPriceHistory(ctx, rows); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) AppendAvailabilityHistory(ctx context.Context, rows []models.HistoryRow) error {
	for _, t := range m {
		if err := t.AppendAvailabilityHistory(ctx, rows); err != nil {
			return err
		}
	}
	return nil
}
