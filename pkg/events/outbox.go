package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rentrover/rentrover/pkg/database"
)

// OutboxStatus is the delivery state of an outbox row
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
)

// OutboxEvent is an integration event stored in the same transaction as the
// state change it describes.
type OutboxEvent struct {
	ID          uuid.UUID
	EventType   string
	Payload     []byte
	Status      OutboxStatus
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// NewOutboxEvent creates a pending event with a fresh id
func NewOutboxEvent(eventType string, payload []byte) *OutboxEvent {
	return &OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payload,
		Status:    OutboxStatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// OutboxRepository is the relay's view of the outbox table. ClaimPending must
// lock the rows it returns until tx ends.
type OutboxRepository interface {
	ClaimPending(ctx context.Context, tx pgx.Tx, limit int) ([]*OutboxEvent, error)
	MarkPublished(ctx context.Context, tx pgx.Tx, ids []uuid.UUID, at time.Time) error
}

// EventPublisher defines the interface for publishing events to a broker
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

// OutboxRelay polls the outbox for pending events and publishes them
type OutboxRelay struct {
	outboxRepo OutboxRepository
	publisher  EventPublisher
	txManager  database.TransactionManager
	batchSize  int
	interval   time.Duration
	exchange   string
	logger     *slog.Logger
}

// NewOutboxRelay creates a new outbox relay
func NewOutboxRelay(
	outboxRepo OutboxRepository,
	publisher EventPublisher,
	txManager database.TransactionManager,
	batchSize int,
	interval time.Duration,
	exchange string,
	logger *slog.Logger,
) *OutboxRelay {
	return &OutboxRelay{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		txManager:  txManager,
		batchSize:  batchSize,
		interval:   interval,
		exchange:   exchange,
		logger:     logger,
	}
}

// Run starts the polling loop. It returns nil once ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *OutboxRelay) tick(ctx context.Context) {
	published, err := r.ProcessBatch(ctx)
	if published > 0 {
		r.logger.Info("Published outbox events", "count", published, "exchange", r.exchange)
	}
	if err != nil {
		r.logger.Error("Error processing outbox batch", "error", err)
	}
}

// ProcessBatch publishes one batch of pending events in creation order. Rows
// are claimed with FOR UPDATE SKIP LOCKED so several relays can run side by
// side. Publishing stops at the first failure: the events sent before it are
// marked published and the rest stay pending for the next tick. It returns
// how many events were marked.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	var (
		sent       []uuid.UUID
		publishErr error
	)
	err := database.WithTransaction(ctx, r.txManager, func(tx pgx.Tx) error {
		events, err := r.outboxRepo.ClaimPending(ctx, tx, r.batchSize)
		if err != nil {
			return fmt.Errorf("failed to claim pending events: %w", err)
		}

		for _, event := range events {
			// Routing key is the event type
			if err := r.publisher.Publish(ctx, r.exchange, event.EventType, event.Payload); err != nil {
				publishErr = fmt.Errorf("failed to publish event %s: %w", event.ID, err)
				break
			}
			sent = append(sent, event.ID)
		}

		if len(sent) == 0 {
			return nil
		}
		if err := r.outboxRepo.MarkPublished(ctx, tx, sent, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to mark %d events published: %w", len(sent), err)
		}
		return nil
	})
	if err != nil {
		// Anything already sent goes out again on a later tick
		return 0, err
	}
	return len(sent), publishErr
}
