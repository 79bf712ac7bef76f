package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/refurbtrack/refurb-tracker/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

const Exchange = "catalog.topic"

// RabbitMQClient publishes change events to the catalog topic exchange.
// Routing keys are catalog.price.changed, catalog.availability.appeared
// and catalog.availability.disappeared, so consumers can bind to just the
// slice they care about (catalog.price.#, catalog.#, ...).
type RabbitMQClient struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	logger     *slog.Logger
	connClosed chan *amqp.Error
	chanClosed chan *amqp.Error
	closeOnce  sync.Once
	healthy    atomic.Bool
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewRabbitMQClient initializes a connection and a channel, enabling Publisher Confirms by default
func NewRabbitMQClient(url string, l *slog.Logger) (*RabbitMQClient, error) {
	c, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %v", err)
	}

	ch, err := c.Channel()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %v", err)
	}

	if err := ch.ExchangeDeclare(
		Exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		ch.Close()
		c.Close()
		return nil, fmt.Errorf("failed to declare topic exchange: %v", err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		c.Close()
		return nil, fmt.Errorf("failed to activate Publisher Confirms: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &RabbitMQClient{
		conn:       c,
		channel:    ch,
		logger:     l,
		connClosed: make(chan *amqp.Error, 1),
		chanClosed: make(chan *amqp.Error, 1),
		ctx:        ctx,
		cancel:     cancel,
	}

	client.healthy.Store(true)

	client.conn.NotifyClose(client.connClosed)
	client.channel.NotifyClose(client.chanClosed)

	go func() {
		select {
		case err := <-client.connClosed:
			client.healthy.Store(false)
			l.Warn("RabbitMQ connection closed", "error", err)
		case err := <-client.chanClosed:
			client.healthy.Store(false)
			l.Warn("RabbitMQ channel closed", "error", err)
		case <-client.ctx.Done():
			return
		}
	}()
	l.Info("Successfully connected to RabbitMQ and monitors established", "url", url)
	return client, nil
}

// RoutingKey maps a change type onto the exchange topology.
func RoutingKey(t models.ChangeType) string {
	switch t {
	case models.ChangePrice:
		return "catalog.price.changed"
	case models.ChangeAppeared:
		return "catalog.availability.appeared"
	case models.ChangeDisappeared:
		return "catalog.availability.disappeared"
	default:
		return "catalog.unknown." + strings.ToLower(string(t))
	}
}

// PublishChange sends one event and blocks until a confirmation (ACK/NACK) is received
func (r *RabbitMQClient) PublishChange(ctx context.Context, ev models.ChangeEvent) error {
	if !r.IsHealthy() {
		return fmt.Errorf("broker connection is closed")
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to serialize change event: %v", err)
	}

	routingKey := RoutingKey(ev.Type)
	l := r.logger.With(
		"event_id", ev.EventID,
		"routing_key", routingKey,
	)

	deferred, err := r.channel.PublishWithDeferredConfirmWithContext(
		ctx,
		Exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			Headers: amqp.Table{
				"event_id": ev.EventID,
				"sku":      ev.SKU,
			},
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		l.Error("failed to publish change event to exchange", "error", err)
		return fmt.Errorf("publish call failed: %v", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-deferred.Done():
		if !deferred.Acked() {
			return fmt.Errorf("RabbitMQ NACK received: event not persisted")
		}
		return nil
	case <-time.After(10 * time.Second):
		return fmt.Errorf("publisher confirm timeout")
	}
}

// Close gracefully shuts down the RabbitMQ resources
func (r *RabbitMQClient) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("Terminating RabbitMQ client")
		r.cancel()
		if r.channel != nil {
			r.channel.Close()
		}
		if r.conn != nil {
			r.conn.Close()
		}
	})
	return nil
}

// IsHealthy returns true if the connection and channel are active
func (r *RabbitMQClient) IsHealthy() bool {
	return r.healthy.Load()
}
