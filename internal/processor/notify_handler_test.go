package processor

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/refurbtrack/refurb-tracker/internal/models"
	"github.com/stretchr/testify/require"
)

func event(id string) models.ChangeEvent {
	return models.ChangeEvent{
		EventID: id,
		Type:    models.ChangePrice,
		SKU:     "G1EJ3B/A",
		Record: models.ProductRecord{
			Name:       "MacBook Air",
			URL:        "https://example.com/shop/product/G1EJ3B/A/x",
			PricePence: 84900,
		},
		OldPricePence: 104900,
		NewPricePence: 84900,
		DeltaPence:    -20000,
		Timestamp:     time.Now(),
	}
}

func TestHandleEventIsIdempotentOnEventID(t *testing.T) {
	h := NewNotifyHandler(slog.Default())
	ctx := context.Background()

	require.NoError(t, h.HandleEvent(ctx, event("ev-1")))
	require.NoError(t, h.HandleEvent(ctx, event("ev-1"))) // redelivery
	require.NoError(t, h.HandleEvent(ctx, event("ev-2")))

	require.True(t, h.alreadySeen("ev-1"))
	require.True(t, h.alreadySeen("ev-2"))
	require.False(t, h.alreadySeen("ev-3"))
}

func TestSeenSetIsBounded(t *testing.T) {
	h := NewNotifyHandler(slog.Default())

	for i := 0; i < seenCapacity+10; i++ {
		h.alreadySeen(fmt.Sprintf("ev-%d", i))
	}
	require.LessOrEqual(t, len(h.seen), seenCapacity)
	require.LessOrEqual(t, len(h.order), seenCapacity)
}
