package sink

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/refurbtrack/refurb-tracker/internal/models"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVSinkInventoryRewrite(t *testing.T) {
	dir := t.TempDir()
	s := NewCSVSink(dir)
	ctx := context.Background()

	snap, err := models.NewSnapshot([]models.ProductRecord{
		{SKU: "B", Name: "Mac mini", URL: "u2", PricePence: 5000, ScrapedAt: time.Now()},
		{SKU: "A", Name: "MacBook Air", URL: "u1", PricePence: 84900, OriginalPricePence: 104900, ScrapedAt: time.Now()},
	})
	require.NoError(t, err)
	require.NoError(t, s.SaveInventory(ctx, snap))

	rows := readCSV(t, filepath.Join(dir, "current_inventory.csv"))
	require.Len(t, rows, 3)
	require.Equal(t, inventoryHeader, rows[0])
	require.Equal(t, "A", rows[1][0])
	require.Equal(t, "20000", rows[1][4]) // savings
	require.Equal(t, "B", rows[2][0])

	// Second save replaces, never appends.
	smaller, err := models.NewSnapshot([]models.ProductRecord{
		{SKU: "C", Name: "iMac", URL: "u3", PricePence: 99900, ScrapedAt: time.Now()},
	})
	require.NoError(t, err)
	require.NoError(t, s.SaveInventory(ctx, smaller))

	rows = readCSV(t, filepath.Join(dir, "current_inventory.csv"))
	require.Len(t, rows, 2)
	require.Equal(t, "C", rows[1][0])
}

func TestCSVSinkHistoryAppendsAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	s := NewCSVSink(dir)
	ctx := context.Background()
	ts := time.Date(2026, 8, 27, 6, 0, 0, 0, time.UTC)

	run1 := []models.HistoryRow{{
		Timestamp: ts, SKU: "A", Name: "MacBook Air", ChangeType: models.RowPriceDecrease,
		OldPrice: 10000, NewPrice: 9000, ChangeAmount: -1000, URL: "u1",
	}}
	require.NoError(t, s.AppendPriceHistory(ctx, run1))

	run2 := []models.HistoryRow{{
		Timestamp: ts.Add(time.Hour), SKU: "A", Name: "MacBook Air", ChangeType: models.RowPriceIncrease,
		OldPrice: 9000, NewPrice: 9500, ChangeAmount: 500, URL: "u1",
	}}
	require.NoError(t, s.AppendPriceHistory(ctx, run2))

	rows := readCSV(t, filepath.Join(dir, "price_history.csv"))
	require.Len(t, rows, 3) // one header, two runs
	require.Equal(t, priceHeader, rows[0])
	require.Equal(t, "PRICE_DECREASE", rows[1][3])
	require.Equal(t, "-1000", rows[1][6])
	require.Equal(t, "PRICE_INCREASE", rows[2][3])
}

func TestCSVSinkAvailabilityLog(t *testing.T) {
	dir := t.TempDir()
	s := NewCSVSink(dir)
	ctx := context.Background()
	ts := time.Date(2026, 8, 27, 6, 0, 0, 0, time.UTC)

	rows := []models.HistoryRow{
		{Timestamp: ts, SKU: "C", Name: "iMac", ChangeType: models.RowAppeared, CurrentPrice: 3000, URL: "u3"},
		{Timestamp: ts, SKU: "B", Name: "Mac mini", ChangeType: models.RowDisappeared, CurrentPrice: 5000, URL: "u2"},
	}
	require.NoError(t, s.AppendAvailabilityHistory(ctx, rows))

	got := readCSV(t, filepath.Join(dir, "availability_history.csv"))
	require.Len(t, got, 3)
	require.Equal(t, availabilityHeader, got[0])
	// Detection order preserved: appeared before disappeared.
	require.Equal(t, "APPEARED", got[1][3])
	require.Equal(t, "DISAPPEARED", got[2][3])
}

func TestCSVSinkEmptyHistoryWritesNothing(t *testing.T) {
	dir := t.TempDir()
	s := NewCSVSink(dir)

	require.NoError(t, s.AppendPriceHistory(context.Background(), nil))
	_, err := os.Stat(filepath.Join(dir, "price_history.csv"))
	require.True(t, os.IsNotExist(err))
}
