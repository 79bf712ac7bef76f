package diff

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/refurbtrack/refurb-tracker/internal/models"
)

// Diff compares the previous and current catalog snapshots and returns the
// classified change set. Both snapshots are read-only inputs.
//
// Events come out in a fixed order so identical inputs always produce
// byte-identical history: price changes first, then appearances, then
// disappearances, each group sorted by SKU ascending.
//
// Prices are compared in integer pence, so equality is exact and repeated
// runs over unchanged data emit nothing. Availability-only differences do
// not produce a price event.
//
// An empty previous snapshot is the defined bootstrap case: every current
// record appears. The inverse (a non-empty previous against an empty
// current) returns models.ErrEmptyCatalog instead of declaring the whole
// catalog delisted; the caller decides whether that is real (see the
// ALLOW_EMPTY_CATALOG config switch).
func Diff(previous, current models.Snapshot, now time.Time) ([]models.ChangeEvent, error) {
	if len(current) == 0 && len(previous) > 0 {
		return nil, models.ErrEmptyCatalog
	}

	var priceChanges, appeared, disappeared []models.ChangeEvent

	for sku, cur := range current {
		prev, existed := previous[sku]
		if !existed {
			appeared = append(appeared, models.ChangeEvent{
				EventID:   uuid.NewString(),
				Type:      models.ChangeAppeared,
				SKU:       sku,
				Record:    cur,
				Timestamp: now,
			})
			continue
		}
		if cur.PricePence != prev.PricePence {
			priceChanges = append(priceChanges, models.ChangeEvent{
				EventID:       uuid.NewString(),
				Type:          models.ChangePrice,
				SKU:           sku,
				Record:        cur,
				OldPricePence: prev.PricePence,
				NewPricePence: cur.PricePence,
				DeltaPence:    cur.PricePence - prev.PricePence,
				Timestamp:     now,
			})
		}
	}

	for sku, prev := range previous {
		if _, stillThere := current[sku]; !stillThere {
			disappeared = append(disappeared, models.ChangeEvent{
				EventID:   uuid.NewString(),
				Type:      models.ChangeDisappeared,
				SKU:       sku,
				Record:    prev,
				Timestamp: now,
			})
		}
	}

	sortBySKU(priceChanges)
	sortBySKU(appeared)
	sortBySKU(disappeared)

	events := make([]models.ChangeEvent, 0, len(priceChanges)+len(appeared)+len(disappeared))
	events = append(events, priceChanges...)
	events = append(events, appeared...)
	events = append(events, disappeared...)
	return events, nil
}

// MassDisappearance builds the change set for a deliberately accepted
// empty catalog: one Disappeared event per previous record, SKU ascending.
// Only the runner calls this, and only when ALLOW_EMPTY_CATALOG is set.
func MassDisappearance(previous models.Snapshot, now time.Time) []models.ChangeEvent {
	events := make([]models.ChangeEvent, 0, len(previous))
	for _, sku := range previous.Keys() {
		events = append(events, models.ChangeEvent{
			EventID:   uuid.NewString(),
			Type:      models.ChangeDisappeared,
			SKU:       sku,
			Record:    previous[sku],
			Timestamp: now,
		})
	}
	return events
}

func sortBySKU(events []models.ChangeEvent) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].SKU < events[j].SKU
	})
}
