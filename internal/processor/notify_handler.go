package processor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/refurbtrack/refurb-tracker/internal/models"
	"github.com/refurbtrack/refurb-tracker/internal/scraper"
	"github.com/refurbtrack/refurb-tracker/pkg/metrics"
)

const seenCapacity = 4096

// NotifyHandler turns change events into human-readable notifications.
// Delivery from the broker is at-least-once, so the handler is idempotent
// on EventID: a redelivered event is acknowledged without re-notifying.
type NotifyHandler struct {
	logger *slog.Logger

	mu    sync.Mutex
	seen  map[string]bool
	order []string
}

func NewNotifyHandler(logger *slog.Logger) *NotifyHandler {
	return &NotifyHandler{
		logger: logger,
		seen:   make(map[string]bool, seenCapacity),
	}
}

// HandleEvent processes one change event. A nil return means the delivery
// can be acknowledged.
func (h *NotifyHandler) HandleEvent(ctx context.Context, ev models.ChangeEvent) error {
	if ev.EventID != "" && h.alreadySeen(ev.EventID) {
		metrics.NotifierEvents.WithLabelValues("duplicate", string(ev.Type)).Inc()
		h.logger.Debug("Duplicate event, skipping to ACK", "event_id", ev.EventID)
		return nil
	}

	if !ev.Timestamp.IsZero() {
		metrics.NotifierLag.Observe(time.Since(ev.Timestamp).Seconds())
	}

	l := h.logger.With("sku", ev.SKU, "url", ev.Record.URL)

	switch ev.Type {
	case models.ChangePrice:
		direction := "increased"
		if ev.DeltaPence < 0 {
			direction = "dropped"
		}
		l.Info("Price "+direction,
			"product", ev.Record.Name,
			"old", scraper.FormatPence(ev.OldPricePence),
			"new", scraper.FormatPence(ev.NewPricePence),
			"change", scraper.FormatPence(ev.DeltaPence),
		)
	case models.ChangeAppeared:
		l.Info("New product in stock",
			"product", ev.Record.Name,
			"price", scraper.FormatPence(ev.Record.PricePence),
		)
	case models.ChangeDisappeared:
		l.Info("Product gone",
			"product", ev.Record.Name,
			"last_price", scraper.FormatPence(ev.Record.PricePence),
		)
	default:
		l.Warn("Unknown change type", "type", ev.Type)
	}

	metrics.NotifierEvents.WithLabelValues("handled", string(ev.Type)).Inc()
	return nil
}

// alreadySeen records the ID and reports whether it was present. The seen
// set is bounded: oldest IDs fall out first once capacity is reached.
func (h *NotifyHandler) alreadySeen(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.seen[id] {
		return true
	}
	h.seen[id] = true
	h.order = append(h.order, id)
	if len(h.order) > seenCapacity {
		delete(h.seen, h.order[0])
		h.order = h.order[1:]
	}
	return false
}
