package models

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable means the previous snapshot exists but cannot be
	// read. It must never be conflated with a true first run: diffing a
	// fresh scrape against an accidentally-empty baseline would flood the
	// availability log with bogus APPEARED rows.
	ErrStoreUnavailable = errors.New("snapshot store unavailable")

	// ErrEmptyCatalog means the scrape returned zero records while the
	// previous snapshot was non-empty. Almost always a transient scrape
	// failure rather than a real mass delisting, so the run must abort
	// instead of logging the whole catalog as DISAPPEARED.
	ErrEmptyCatalog = errors.New("current catalog snapshot is empty")

	// ErrPersistFailed means history rows or the inventory view could not
	// be durably written. Snapshot replacement must not happen after it.
	ErrPersistFailed = errors.New("persist failed")
)

// ConflictError reports two input records resolving to the same SKU.
type ConflictError struct {
	SKU    string
	First  ProductRecord
	Second ProductRecord
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("duplicate sku %q: %q conflicts with %q", e.SKU, e.First.Name, e.Second.Name)
}
