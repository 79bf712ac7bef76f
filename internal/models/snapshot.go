package models

import "sort"

// Snapshot is the full catalog state at one point in time, keyed by SKU.
// Once built it is treated as read-only: diffing never mutates it, and a
// new run always produces a fresh Snapshot value.
type Snapshot map[string]ProductRecord

// NewSnapshot indexes normalized records by SKU. Two records resolving to
// the same SKU is a normalizer defect and makes the whole run ambiguous,
// so it fails with a ConflictError carrying both records.
func NewSnapshot(records []ProductRecord) (Snapshot, error) {
	snap := make(Snapshot, len(records))
	for _, rec := range records {
		if prev, exists := snap[rec.SKU]; exists {
			return nil, &ConflictError{SKU: rec.SKU, First: prev, Second: rec}
		}
		snap[rec.SKU] = rec
	}
	return snap, nil
}

// Keys returns the SKUs in ascending order.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Records returns the records in ascending SKU order.
func (s Snapshot) Records() []ProductRecord {
	records := make([]ProductRecord, 0, len(s))
	for _, k := range s.Keys() {
		records = append(records, s[k])
	}
	return records
}
