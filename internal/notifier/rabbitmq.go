package notifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQNotifier publishes confirmation events to a durable queue on the
// default exchange. Messages are persistent so they survive broker restarts.
type RabbitMQNotifier struct {
	ch *amqp.Channel
}

func NewRabbitMQNotifier(conn *amqp.Connection) (*RabbitMQNotifier, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	_, err = ch.QueueDeclare(BookingConfirmedQueue, true, false, false, false, nil)
	if err != nil {
		return nil, err
	}

	return &RabbitMQNotifier{ch: ch}, nil
}

func (n *RabbitMQNotifier) SendBookingConfirmation(ctx context.Context, confirmation BookingConfirmation) error {
	body, err := json.Marshal(confirmation)
	if err != nil {
		return err
	}

	return n.ch.PublishWithContext(
		ctx,
		"",
		BookingConfirmedQueue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

func (n *RabbitMQNotifier) Close() error {
	return n.ch.Close()
}

// Consume drains the confirmation queue, invoking handle per message. A
// handler error rejects the message back onto the queue for redelivery, so
// handlers must tolerate duplicates. Blocks until the channel closes.
func Consume(
	conn *amqp.Connection,
	logger *slog.Logger,
	handle func(ctx context.Context, confirmation BookingConfirmation) error) error {

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(BookingConfirmedQueue, true, false, false, false, nil)
	if err != nil {
		return err
	}

	deliveries, err := ch.Consume(BookingConfirmedQueue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for delivery := range deliveries {
		var confirmation BookingConfirmation

		if err := json.Unmarshal(delivery.Body, &confirmation); err != nil {
			logger.Error("dropping malformed confirmation message", "error", err)
			_ = delivery.Reject(false)
			continue
		}

		if err := handle(context.Background(), confirmation); err != nil {
			logger.Error("failed to handle confirmation", "booking_id", confirmation.BookingID, "error", err)
			_ = delivery.Nack(false, true)
			continue
		}

		_ = delivery.Ack(false)
	}

	return nil
}
