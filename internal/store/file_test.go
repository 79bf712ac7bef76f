package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/refurbtrack/refurb-tracker/internal/models"
	"github.com/stretchr/testify/require"
)

func testRecord(sku string, pence int64) models.ProductRecord {
	return models.ProductRecord{
		SKU:        sku,
		Name:       "MacBook " + sku,
		URL:        "https://example.com/shop/product/" + sku,
		PricePence: pence,
		Available:  true,
		ScrapedAt:  time.Date(2026, 8, 27, 6, 0, 0, 0, time.UTC),
	}
}

func TestFileStoreFirstRun(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "snapshot.json"))

	snap, err := s.LoadPrevious(context.Background())
	require.NoError(t, err)
	require.Empty(t, snap)
}

func TestFileStoreRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	s := NewFileStore(path)

	saved, err := models.NewSnapshot([]models.ProductRecord{
		testRecord("B", 5000),
		testRecord("A", 10000),
	})
	require.NoError(t, err)
	require.NoError(t, s.SaveCurrent(context.Background(), saved))

	loaded, err := s.LoadPrevious(context.Background())
	require.NoError(t, err)
	require.Equal(t, saved, loaded)
}

func TestFileStoreReplace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	s := NewFileStore(path)

	first, err := models.NewSnapshot([]models.ProductRecord{testRecord("A", 10000)})
	require.NoError(t, err)
	require.NoError(t, s.SaveCurrent(context.Background(), first))

	second, err := models.NewSnapshot([]models.ProductRecord{testRecord("C", 3000)})
	require.NoError(t, err)
	require.NoError(t, s.SaveCurrent(context.Background(), second))

	loaded, err := s.LoadPrevious(context.Background())
	require.NoError(t, err)
	require.Equal(t, second, loaded)

	// No stray temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestFileStoreCorruptIsNotFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s := NewFileStore(path)
	_, err := s.LoadPrevious(context.Background())
	require.ErrorIs(t, err, models.ErrStoreUnavailable)
}

func TestFileStoreCreatesDataDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "snapshot.json")
	s := NewFileStore(path)

	snap, err := models.NewSnapshot([]models.ProductRecord{testRecord("A", 1)})
	require.NoError(t, err)
	require.NoError(t, s.SaveCurrent(context.Background(), snap))

	loaded, err := s.LoadPrevious(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
}
