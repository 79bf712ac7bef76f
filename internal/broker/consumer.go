package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/refurbtrack/refurb-tracker/internal/models"
	"github.com/refurbtrack/refurb-tracker/internal/processor"
	"github.com/refurbtrack/refurb-tracker/pkg/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQConsumer feeds change events from the catalog exchange into the
// notify handler
type RabbitMQConsumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	handler *processor.NotifyHandler
	logger  *slog.Logger
	binding string
}

// NewRabbitMQConsumer initializes the consumer. binding selects the slice
// of events to watch, e.g. "catalog.#" for everything or
// "catalog.price.#" for price changes only.
func NewRabbitMQConsumer(url, binding string, handler *processor.NotifyHandler, logger *slog.Logger) (*RabbitMQConsumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %v", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %v", err)
	}

	// QoS: Prefetch 1 keeps notifications in detection order
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %v", err)
	}

	return &RabbitMQConsumer{
		conn:    conn,
		channel: ch,
		handler: handler,
		logger:  logger,
		binding: binding,
	}, nil
}

// Listen starts the consumption loop and handles the queue/exchange binding
func (c *RabbitMQConsumer) Listen(ctx context.Context) error {
	queueName := "catalog.notifications"

	q, err := c.channel.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %v", err)
	}

	if err := c.channel.QueueBind(q.Name, c.binding, Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %v", err)
	}

	msgs, err := c.channel.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %v", err)
	}

	c.logger.Info("Notifier is online and waiting for events", "queue", q.Name, "binding", c.binding)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			var ev models.ChangeEvent
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				c.logger.Error("Failed to unmarshal change event", "error", err)
				metrics.NotifierEvents.WithLabelValues("malformed", "unknown").Inc()
				d.Nack(false, false) // Drop malformed messages
				continue
			}

			if err := c.handler.HandleEvent(ctx, ev); err != nil {
				c.logger.Error("Handling failed, requeueing", "event_id", ev.EventID, "error", err)
				time.Sleep(5 * time.Second) // Throttling retries
				d.Nack(false, true)
				continue
			}

			if err := d.Ack(false); err != nil {
				c.logger.Error("Failed to Ack event", "event_id", ev.EventID, "error", err)
			}
		}
	}
}

// Close gracefully terminates RabbitMQ resources
func (c *RabbitMQConsumer) Close() {
	c.logger.Info("Shutting down RabbitMQ consumer")
	c.channel.Close()
	c.conn.Close()
}
