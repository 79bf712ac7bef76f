package models

import "time"

// ChangeType classifies the outcome of comparing one SKU across two snapshots
type ChangeType string

const (
	ChangePrice       ChangeType = "PRICE_CHANGED"
	ChangeAppeared    ChangeType = "APPEARED"
	ChangeDisappeared ChangeType = "DISAPPEARED"
)

// ChangeEvent is one classified difference between two snapshots. It is
// produced only by the diff engine and consumed exactly once downstream,
// never re-derived.
//
// Record holds the current record for PRICE_CHANGED and APPEARED, and the
// last known record for DISAPPEARED (the current snapshot no longer has it).
type ChangeEvent struct {
	EventID       string        `json:"event_id"`
	Type          ChangeType    `json:"type"`
	SKU           string        `json:"sku"`
	Record        ProductRecord `json:"record"`
	OldPricePence int64         `json:"old_price_pence,omitempty"`
	NewPricePence int64         `json:"new_price_pence,omitempty"`
	DeltaPence    int64         `json:"delta_pence,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// HistoryRow is the flattened, append-only persistence form of a ChangeEvent.
// Column meaning follows the change type: price changes fill OldPrice/NewPrice/
// ChangeAmount, availability changes fill CurrentPrice.
type HistoryRow struct {
	Timestamp    time.Time `db:"recorded_at"`
	SKU          string    `db:"sku"`
	Name         string    `db:"name"`
	ChangeType   string    `db:"change_type"`
	OldPrice     int64     `db:"old_price_pence"`
	NewPrice     int64     `db:"new_price_pence"`
	ChangeAmount int64     `db:"change_pence"`
	CurrentPrice int64     `db:"current_price_pence"`
	URL          string    `db:"url"`
}

const (
	RowPriceIncrease = "PRICE_INCREASE"
	RowPriceDecrease = "PRICE_DECREASE"
	RowAppeared      = "APPEARED"
	RowDisappeared   = "DISAPPEARED"
)
