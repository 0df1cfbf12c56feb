package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"

	pkgdb "github.com/rentrover/rentrover/pkg/database"
	pkgevents "github.com/rentrover/rentrover/pkg/events"
	"github.com/rentrover/rentrover/services/bidding-service/internal/adapters/database"
)

// ProducerOptions configures the outbox relay
type ProducerOptions struct {
	Exchange    string
	BatchSize   int
	Interval    time.Duration
	LockTimeout time.Duration
}

// BidEventsProducer relays bid lifecycle events from the outbox to RabbitMQ
type BidEventsProducer struct {
	relay     *pkgevents.OutboxRelay
	publisher *pkgevents.RabbitMQPublisher
	outbox    *database.PostgresOutboxRepository
}

// NewBidEventsProducer creates a new producer
func NewBidEventsProducer(pool *pgxpool.Pool, conn *amqp.Connection, opts ProducerOptions, logger *slog.Logger) (*BidEventsProducer, error) {
	publisher, err := pkgevents.NewRabbitMQPublisher(conn, opts.Exchange)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}

	outbox := database.NewPostgresOutboxRepository(pool)
	relay := pkgevents.NewOutboxRelay(
		outbox,
		publisher,
		pkgdb.NewPostgresTransactionManager(pool, opts.LockTimeout),
		opts.BatchSize,
		opts.Interval,
		opts.Exchange,
		logger,
	)

	return &BidEventsProducer{
		relay:     relay,
		publisher: publisher,
		outbox:    outbox,
	}, nil
}

// Run starts the relay loop
func (p *BidEventsProducer) Run(ctx context.Context) error {
	return p.relay.Run(ctx)
}

// Backlog is the number of events still waiting to be published
func (p *BidEventsProducer) Backlog(ctx context.Context) (int, error) {
	return p.outbox.PendingCount(ctx)
}

// Close closes the publisher channel
func (p *BidEventsProducer) Close() error {
	return p.publisher.Close()
}
