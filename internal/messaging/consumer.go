package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"naspac-portal/internal/domain"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EventHandler receives every session event seen by a consumer
type EventHandler func(ctx context.Context, event *domain.SessionEvent)

// SessionEventConsumer relays session events from the exchange to handler.
// Each portal instance binds its own transient queue.
type SessionEventConsumer struct {
	rmq        *RabbitMQ
	bindingKey string
	handler    EventHandler
}

// NewSessionEventConsumer consumes events matching bindingKey ("session.#" for all)
func NewSessionEventConsumer(rmq *RabbitMQ, bindingKey string, handler EventHandler) *SessionEventConsumer {
	return &SessionEventConsumer{
		rmq:        rmq,
		bindingKey: bindingKey,
		handler:    handler,
	}
}

func (c *SessionEventConsumer) Start(ctx context.Context) error {
	queue, err := c.rmq.channel.QueueDeclare(
		"",    // auto-generated name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare session events queue: %w", err)
	}

	if err := c.rmq.channel.QueueBind(
		queue.Name,      // queue name
		c.bindingKey,    // routing key
		SessionExchange, // exchange
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to bind session events queue: %w", err)
	}

	msgs, err := c.rmq.channel.Consume(
		queue.Name, // queue
		"",         // consumer
		true,       // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	slog.Info("started consuming session events",
		slog.String("queue", queue.Name),
		slog.String("binding_key", c.bindingKey))

	go func() {
		for {
			select {
			case <-ctx.Done():
				slog.Info("stopping session event consumer")
				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Warn("session event consumer channel closed")
					return
				}
				c.handle(ctx, msg)
			}
		}
	}()

	return nil
}

func (c *SessionEventConsumer) handle(ctx context.Context, msg amqp.Delivery) {
	var event domain.SessionEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		slog.Error("error unmarshaling session event",
			slog.String("error", err.Error()),
			slog.String("routing_key", msg.RoutingKey))
		return
	}
	if event.Type == "" || event.ClientID == "" {
		slog.Warn("ignoring incomplete session event",
			slog.String("routing_key", msg.RoutingKey))
		return
	}

	c.handler(ctx, &event)
}
