package diff

import (
	"testing"
	"time"

	"github.com/refurbtrack/refurb-tracker/internal/models"
	"github.com/stretchr/testify/require"
)

func TestAppendHistoryRouting(t *testing.T) {
	runTS := time.Date(2026, 8, 27, 6, 0, 0, 0, time.UTC)
	previous := snapshot(t, record("A", 10000), record("B", 5000))
	current := snapshot(t, record("A", 9000), record("C", 3000))

	events, err := Diff(previous, current, runTS)
	require.NoError(t, err)

	price, availability := AppendHistory(events, runTS)

	require.Len(t, price, 1)
	require.Equal(t, models.RowPriceDecrease, price[0].ChangeType)
	require.Equal(t, "A", price[0].SKU)
	require.Equal(t, int64(10000), price[0].OldPrice)
	require.Equal(t, int64(9000), price[0].NewPrice)
	require.Equal(t, int64(-1000), price[0].ChangeAmount)
	require.Equal(t, runTS, price[0].Timestamp)

	require.Len(t, availability, 2)
	require.Equal(t, models.RowAppeared, availability[0].ChangeType)
	require.Equal(t, "C", availability[0].SKU)
	require.Equal(t, int64(3000), availability[0].CurrentPrice)
	require.Equal(t, models.RowDisappeared, availability[1].ChangeType)
	require.Equal(t, "B", availability[1].SKU)
	require.Equal(t, int64(5000), availability[1].CurrentPrice)
}

func TestAppendHistoryPriceIncrease(t *testing.T) {
	events, err := Diff(snapshot(t, record("A", 100)), snapshot(t, record("A", 120)), time.Now())
	require.NoError(t, err)

	price, availability := AppendHistory(events, time.Now())
	require.Empty(t, availability)
	require.Len(t, price, 1)
	require.Equal(t, models.RowPriceIncrease, price[0].ChangeType)
	require.Equal(t, int64(20), price[0].ChangeAmount)
}

func TestAppendHistoryIdempotence(t *testing.T) {
	runTS := time.Date(2026, 8, 27, 6, 0, 0, 0, time.UTC)
	previous := snapshot(t, record("A", 10000), record("B", 5000), record("C", 100))
	current := snapshot(t, record("A", 9000), record("C", 250), record("D", 42))

	run := func() ([]models.HistoryRow, []models.HistoryRow) {
		events, err := Diff(previous, current, runTS)
		require.NoError(t, err)
		return AppendHistory(events, runTS)
	}

	price1, avail1 := run()
	price2, avail2 := run()
	require.Equal(t, price1, price2)
	require.Equal(t, avail1, avail2)
}

func TestAppendHistoryEmptyChangeSet(t *testing.T) {
	price, availability := AppendHistory(nil, time.Now())
	require.Empty(t, price)
	require.Empty(t, availability)
}
