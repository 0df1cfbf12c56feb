package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rentrover/rentrover/services/bidding-service/internal/domain/bids"
)

// RabbitMQQueue implements bids.BidQueue on a durable RabbitMQ queue.
// Messages are pulled with basic.get so the consumer controls the pace.
type RabbitMQQueue struct {
	mu      sync.Mutex
	channel *amqp.Channel
	queue   string
}

// NewRabbitMQQueue declares the durable queue and puts the channel in
// confirm mode
func NewRabbitMQQueue(conn *amqp.Connection, queueName string) (*RabbitMQQueue, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	return &RabbitMQQueue{channel: ch, queue: queueName}, nil
}

// Close closes the channel
func (q *RabbitMQQueue) Close() error {
	return q.channel.Close()
}

// Publish sends a persistent message and waits for the broker to confirm it
func (q *RabbitMQQueue) Publish(ctx context.Context, body []byte) (string, error) {
	id := uuid.NewString()

	q.mu.Lock()
	confirm, err := q.channel.PublishWithDeferredConfirmWithContext(ctx,
		"",      // default exchange
		q.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    id,
			Body:         body,
		},
	)
	q.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed waiting for publish confirm: %w", err)
	}
	if !acked {
		return "", errors.New("broker rejected message")
	}
	return id, nil
}

// Receive fetches up to max messages without auto-ack
func (q *RabbitMQQueue) Receive(ctx context.Context, max int) ([]bids.QueueMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var msgs []bids.QueueMessage
	for len(msgs) < max {
		if err := ctx.Err(); err != nil {
			return msgs, err
		}

		d, ok, err := q.channel.Get(q.queue, false)
		if err != nil {
			return msgs, fmt.Errorf("failed to get message: %w", err)
		}
		if !ok {
			break
		}

		id := d.MessageId
		if id == "" {
			id = strconv.FormatUint(d.DeliveryTag, 10)
		}
		msgs = append(msgs, bids.QueueMessage{
			ID:      id,
			Body:    d.Body,
			Receipt: strconv.FormatUint(d.DeliveryTag, 10),
		})
	}
	return msgs, nil
}

// Delete acknowledges the delivery
func (q *RabbitMQQueue) Delete(ctx context.Context, msg bids.QueueMessage) error {
	tag, err := strconv.ParseUint(msg.Receipt, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid receipt %q: %w", msg.Receipt, err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.channel.Ack(tag, false); err != nil {
		return fmt.Errorf("failed to ack message %s: %w", msg.ID, err)
	}
	return nil
}

// Release returns the delivery to the queue for redelivery
func (q *RabbitMQQueue) Release(ctx context.Context, msg bids.QueueMessage) error {
	tag, err := strconv.ParseUint(msg.Receipt, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid receipt %q: %w", msg.Receipt, err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.channel.Nack(tag, false, true); err != nil {
		return fmt.Errorf("failed to nack message %s: %w", msg.ID, err)
	}
	return nil
}
