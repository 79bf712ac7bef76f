package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/refurbtrack/refurb-tracker/internal/models"
)

const timestampLayout = "2006-01-02 15:04:05"

var (
	inventoryHeader = []string{
		"sku", "name", "price_pence", "original_price_pence", "savings_pence",
		"chip", "memory", "storage", "url", "scraped_at",
	}
	priceHeader = []string{
		"timestamp", "sku", "name", "change_type",
		"old_price_pence", "new_price_pence", "change_pence", "url",
	}
	availabilityHeader = []string{
		"timestamp", "sku", "name", "change_type", "current_price_pence", "url",
	}
)

// CSVSink persists the three views as flat files under a data directory:
// current_inventory.csv is rewritten every run, the two history files are
// opened append-only and grow forever.
type CSVSink struct {
	dir string
}

func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{dir: dir}
}

// SaveInventory rewrites current_inventory.csv from the snapshot, in
// ascending SKU order so consecutive files diff cleanly.
func (s *CSVSink) SaveInventory(ctx context.Context, snap models.Snapshot) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("%w: create data dir: %v", models.ErrPersistFailed, err)
	}

	path := filepath.Join(s.dir, "current_inventory.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", models.ErrPersistFailed, path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(inventoryHeader); err != nil {
		return fmt.Errorf("%w: write inventory header: %v", models.ErrPersistFailed, err)
	}
	for _, rec := range snap.Records() {
		row := []string{
			rec.SKU,
			rec.Name,
			strconv.FormatInt(rec.PricePence, 10),
			strconv.FormatInt(rec.OriginalPricePence, 10),
			strconv.FormatInt(rec.SavingsPence(), 10),
			rec.Chip,
			rec.Memory,
			rec.Storage,
			rec.URL,
			rec.ScrapedAt.UTC().Format(timestampLayout),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("%w: write inventory row: %v", models.ErrPersistFailed, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: flush inventory: %v", models.ErrPersistFailed, err)
	}
	return nil
}

// AppendPriceHistory appends rows to price_history.csv.
func (s *CSVSink) AppendPriceHistory(ctx context.Context, rows []models.HistoryRow) error {
	return s.appendRows("price_history.csv", priceHeader, rows, func(row models.HistoryRow) []string {
		return []string{
			row.Timestamp.UTC().Format(timestampLayout),
			row.SKU,
			row.Name,
			row.ChangeType,
			strconv.FormatInt(row.OldPrice, 10),
			strconv.FormatInt(row.NewPrice, 10),
			strconv.FormatInt(row.ChangeAmount, 10),
			row.URL,
		}
	})
}

// AppendAvailabilityHistory appends rows to availability_history.csv.
func (s *CSVSink) AppendAvailabilityHistory(ctx context.Context, rows []models.HistoryRow) error {
	return s.appendRows("availability_history.csv", availabilityHeader, rows, func(row models.HistoryRow) []string {
		return []string{
			row.Timestamp.UTC().Format(timestampLayout),
			row.SKU,
			row.Name,
			row.ChangeType,
			strconv.FormatInt(row.CurrentPrice, 10),
			row.URL,
		}
	})
}

func (s *CSVSink) appendRows(name string, header []string, rows []models.HistoryRow, flatten func(models.HistoryRow) []string) error {
	if len(rows) == 0 {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("%w: create data dir: %v", models.ErrPersistFailed, err)
	}

	path := filepath.Join(s.dir, name)
	writeHeader := false
	if info, err := os.Stat(path); os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		writeHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", models.ErrPersistFailed, path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("%w: write %s header: %v", models.ErrPersistFailed, name, err)
		}
	}
	for _, row := range rows {
		if err := w.Write(flatten(row)); err != nil {
			return fmt.Errorf("%w: write %s row: %v", models.ErrPersistFailed, name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: flush %s: %v", models.ErrPersistFailed, name, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %v", models.ErrPersistFailed, name, err)
	}
	return nil
}
