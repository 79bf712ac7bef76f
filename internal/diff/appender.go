package diff

import (
	"time"

	"github.com/refurbtrack/refurb-tracker/internal/models"
)

// AppendHistory flattens a change set into the two append-only logs:
// price rows and availability rows. One row per event, detection order
// preserved within each log, nothing dropped or merged. The mapping is
// pure, so replaying the same change set yields identical rows. Dedup
// against already-persisted history is deliberately not done here; the
// runner guarantees one diff per scrape cycle.
func AppendHistory(events []models.ChangeEvent, runTS time.Time) (price, availability []models.HistoryRow) {
	for _, ev := range events {
		switch ev.Type {
		case models.ChangePrice:
			changeType := models.RowPriceIncrease
			if ev.DeltaPence < 0 {
				changeType = models.RowPriceDecrease
			}
			price = append(price, models.HistoryRow{
				Timestamp:    runTS,
				SKU:          ev.SKU,
				Name:         ev.Record.Name,
				ChangeType:   changeType,
				OldPrice:     ev.OldPricePence,
				NewPrice:     ev.NewPricePence,
				ChangeAmount: ev.DeltaPence,
				URL:          ev.Record.URL,
			})
		case models.ChangeAppeared:
			availability = append(availability, models.HistoryRow{
				Timestamp:    runTS,
				SKU:          ev.SKU,
				Name:         ev.Record.Name,
				ChangeType:   models.RowAppeared,
				CurrentPrice: ev.Record.PricePence,
				URL:          ev.Record.URL,
			})
		case models.ChangeDisappeared:
			availability = append(availability, models.HistoryRow{
				Timestamp:    runTS,
				SKU:          ev.SKU,
				Name:         ev.Record.Name,
				ChangeType:   models.RowDisappeared,
				CurrentPrice: ev.Record.PricePence,
				URL:          ev.Record.URL,
			})
		}
	}
	return price, availability
}
