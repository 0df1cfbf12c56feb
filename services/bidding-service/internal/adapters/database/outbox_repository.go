package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	pkgevents "github.com/rentrover/rentrover/pkg/events"
)

// PostgresOutboxRepository stores integration events next to the bid and
// booking rows they describe. It serves both the bids service (writes) and
// the relay (claims).
type PostgresOutboxRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresOutboxRepository creates a new PostgreSQL outbox repository
func NewPostgresOutboxRepository(pool *pgxpool.Pool) *PostgresOutboxRepository {
	return &PostgresOutboxRepository{pool: pool}
}

// SaveEvent adds an event to the caller's transaction
func (r *PostgresOutboxRepository) SaveEvent(ctx context.Context, tx pgx.Tx, event *pkgevents.OutboxEvent) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox_events (id, event_type, payload, status, created_at)
		VALUES ($1, $2, $3, 'pending', $4)
	`, event.ID, event.EventType, event.Payload, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event %s: %w", event.EventType, err)
	}
	return nil
}

// ClaimPending locks up to limit pending events, oldest first. Rows locked by
// another relay are skipped rather than waited for.
func (r *PostgresOutboxRepository) ClaimPending(ctx context.Context, tx pgx.Tx, limit int) ([]*pkgevents.OutboxEvent, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, event_type, payload, status, created_at, published_at
		FROM outbox_events
		WHERE status = 'pending'
		ORDER BY created_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim outbox events: %w", err)
	}

	claimed, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*pkgevents.OutboxEvent, error) {
		var e pkgevents.OutboxEvent
		err := row.Scan(&e.ID, &e.EventType, &e.Payload, &e.Status, &e.CreatedAt, &e.PublishedAt)
		return &e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan outbox events: %w", err)
	}
	return claimed, nil
}

// MarkPublished flags the given events as delivered to the broker
func (r *PostgresOutboxRepository) MarkPublished(ctx context.Context, tx pgx.Tx, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	tag, err := tx.Exec(ctx, `
		UPDATE outbox_events
		SET status = 'published', published_at = $2
		WHERE id = ANY($1) AND status = 'pending'
	`, ids, at)
	if err != nil {
		return fmt.Errorf("failed to mark outbox events published: %w", err)
	}
	if int(tag.RowsAffected()) != len(ids) {
		return fmt.Errorf("marked %d of %d outbox events published", tag.RowsAffected(), len(ids))
	}
	return nil
}

// PendingCount reports the relay backlog
func (r *PostgresOutboxRepository) PendingCount(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_events WHERE status = 'pending'`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pending outbox events: %w", err)
	}
	return n, nil
}
