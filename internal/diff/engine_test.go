package diff

import (
	"errors"
	"testing"
	"time"

	"github.com/refurbtrack/refurb-tracker/internal/models"
	"github.com/stretchr/testify/require"
)

func record(sku string, pence int64) models.ProductRecord {
	return models.ProductRecord{
		SKU:        sku,
		Name:       "MacBook " + sku,
		URL:        "https://example.com/shop/product/" + sku,
		PricePence: pence,
		Available:  true,
	}
}

func snapshot(t *testing.T, records ...models.ProductRecord) models.Snapshot {
	t.Helper()
	snap, err := models.NewSnapshot(records)
	require.NoError(t, err)
	return snap
}

func TestDiffBootstrap(t *testing.T) {
	now := time.Now()
	current := snapshot(t, record("B", 5000), record("A", 10000))

	events, err := Diff(models.Snapshot{}, current, now)
	require.NoError(t, err)
	require.Len(t, events, 2)

	for _, ev := range events {
		require.Equal(t, models.ChangeAppeared, ev.Type)
		require.NotEmpty(t, ev.EventID)
	}
	require.Equal(t, "A", events[0].SKU)
	require.Equal(t, "B", events[1].SKU)
}

func TestDiffEmptyCurrentGuard(t *testing.T) {
	previous := snapshot(t, record("A", 10000))

	events, err := Diff(previous, models.Snapshot{}, time.Now())
	require.ErrorIs(t, err, models.ErrEmptyCatalog)
	require.Empty(t, events)
}

func TestDiffEmptyBothIsQuiet(t *testing.T) {
	events, err := Diff(models.Snapshot{}, models.Snapshot{}, time.Now())
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestDiffPriceDelta(t *testing.T) {
	previous := snapshot(t, record("A", 10000))
	current := snapshot(t, record("A", 12000))

	events, err := Diff(previous, current, time.Now())
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	require.Equal(t, models.ChangePrice, ev.Type)
	require.Equal(t, int64(10000), ev.OldPricePence)
	require.Equal(t, int64(12000), ev.NewPricePence)
	require.Equal(t, int64(2000), ev.DeltaPence)
}

func TestDiffUnchangedEmitsNothing(t *testing.T) {
	previous := snapshot(t, record("A", 10000), record("B", 5000))
	current := snapshot(t, record("A", 10000), record("B", 5000))

	events, err := Diff(previous, current, time.Now())
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestDiffAvailabilityOnlyChangeIsNotAPriceEvent(t *testing.T) {
	prev := record("A", 10000)
	cur := prev
	cur.Available = false

	events, err := Diff(snapshot(t, prev), snapshot(t, cur), time.Now())
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestDiffExampleScenario(t *testing.T) {
	previous := snapshot(t, record("A", 10000), record("B", 5000))
	current := snapshot(t, record("A", 9000), record("C", 3000))

	events, err := Diff(previous, current, time.Now())
	require.NoError(t, err)
	require.Len(t, events, 3)

	require.Equal(t, models.ChangePrice, events[0].Type)
	require.Equal(t, "A", events[0].SKU)
	require.Equal(t, int64(-1000), events[0].DeltaPence)

	require.Equal(t, models.ChangeAppeared, events[1].Type)
	require.Equal(t, "C", events[1].SKU)
	require.Equal(t, int64(3000), events[1].Record.PricePence)

	require.Equal(t, models.ChangeDisappeared, events[2].Type)
	require.Equal(t, "B", events[2].SKU)
	require.Equal(t, int64(5000), events[2].Record.PricePence)
}

func TestDiffOrderingDeterminism(t *testing.T) {
	previous := snapshot(t,
		record("D", 100), record("B", 200), record("F", 300), record("A", 400))
	current := snapshot(t,
		record("D", 150), record("B", 200), record("E", 500), record("C", 600))

	want := func() []string {
		events, err := Diff(previous, current, time.Now())
		require.NoError(t, err)
		skus := make([]string, len(events))
		for i, ev := range events {
			skus[i] = string(ev.Type) + ":" + ev.SKU
		}
		return skus
	}

	first := want()
	require.Equal(t, []string{
		"PRICE_CHANGED:D",
		"APPEARED:C", "APPEARED:E",
		"DISAPPEARED:A", "DISAPPEARED:F",
	}, first)

	for i := 0; i < 10; i++ {
		require.Equal(t, first, want())
	}
}

func TestDiffCompleteness(t *testing.T) {
	previous := snapshot(t, record("A", 1), record("B", 2), record("C", 3))
	current := snapshot(t, record("B", 2), record("C", 9), record("D", 4))

	events, err := Diff(previous, current, time.Now())
	require.NoError(t, err)

	seen := map[string]int{}
	for _, ev := range events {
		seen[ev.SKU]++
	}
	// Every key in the union maps to at most one event; B is unchanged.
	require.Equal(t, map[string]int{"A": 1, "C": 1, "D": 1}, seen)
}

func TestSnapshotConflict(t *testing.T) {
	_, err := models.NewSnapshot([]models.ProductRecord{
		record("A", 100),
		record("A", 200),
	})
	require.Error(t, err)

	var conflict *models.ConflictError
	require.True(t, errors.As(err, &conflict))
	require.Equal(t, "A", conflict.SKU)
	require.Equal(t, int64(100), conflict.First.PricePence)
	require.Equal(t, int64(200), conflict.Second.PricePence)
}
