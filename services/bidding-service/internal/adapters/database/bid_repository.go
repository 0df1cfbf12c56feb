package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentrover/rentrover/services/bidding-service/internal/domain/bids"
)

const bidColumns = `
	id, submission_id, vehicle_id, renter_id, owner_id,
	renter_snapshot, owner_snapshot, vehicle_snapshot,
	amount, start_date, end_date, trip_type, status, created_at, updated_at`

// PostgresBidRepository implements bids.BidRepository using pgx
type PostgresBidRepository struct {
	pool *pgxpool.Pool // Keep pool for read-only operations
}

// NewPostgresBidRepository creates a new PostgreSQL bid repository
func NewPostgresBidRepository(pool *pgxpool.Pool) *PostgresBidRepository {
	return &PostgresBidRepository{pool: pool}
}

func scanBid(row pgx.Row) (*bids.Bid, error) {
	var bid bids.Bid
	err := row.Scan(
		&bid.ID,
		&bid.SubmissionID,
		&bid.VehicleID,
		&bid.RenterID,
		&bid.OwnerID,
		&bid.Renter,
		&bid.Owner,
		&bid.Vehicle,
		&bid.Amount,
		&bid.StartDate,
		&bid.EndDate,
		&bid.TripType,
		&bid.Status,
		&bid.CreatedAt,
		&bid.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func collectBids(rows pgx.Rows) ([]*bids.Bid, error) {
	defer rows.Close()

	var result []*bids.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		result = append(result, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}
	return result, nil
}

// bidOrNotFound maps a missing row to bids.ErrBidNotFound
func bidOrNotFound(bid *bids.Bid, err error) (*bids.Bid, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, bids.ErrBidNotFound
		}
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}
	return bid, nil
}

// InsertPending stores a pending bid unless its submission id was seen before
func (r *PostgresBidRepository) InsertPending(ctx context.Context, tx pgx.Tx, bid *bids.Bid) (bool, error) {
	query := `
		INSERT INTO bids (
			id, submission_id, vehicle_id, renter_id, owner_id,
			renter_snapshot, owner_snapshot, vehicle_snapshot,
			amount, start_date, end_date, trip_type, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 'pending', $13, $14)
		ON CONFLICT (submission_id) DO NOTHING
	`
	tag, err := tx.Exec(ctx, query,
		bid.ID,
		bid.SubmissionID,
		bid.VehicleID,
		bid.RenterID,
		bid.OwnerID,
		bid.Renter,
		bid.Owner,
		bid.Vehicle,
		bid.Amount,
		bid.StartDate,
		bid.EndDate,
		string(bid.TripType),
		bid.CreatedAt,
		bid.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert bid: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByID retrieves a bid by its ID
func (r *PostgresBidRepository) GetByID(ctx context.Context, bidID uuid.UUID) (*bids.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE id = $1`
	return bidOrNotFound(scanBid(r.pool.QueryRow(ctx, query, bidID)))
}

// GetBySubmissionID retrieves the bid created from a submission
func (r *PostgresBidRepository) GetBySubmissionID(ctx context.Context, submissionID uuid.UUID) (*bids.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE submission_id = $1`
	return bidOrNotFound(scanBid(r.pool.QueryRow(ctx, query, submissionID)))
}

// GetPendingForOwner loads a pending bid on one of the owner's vehicles
func (r *PostgresBidRepository) GetPendingForOwner(ctx context.Context, tx pgx.Tx, bidID, ownerID uuid.UUID) (*bids.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE id = $1 AND owner_id = $2 AND status = 'pending'
	`
	return bidOrNotFound(scanBid(tx.QueryRow(ctx, query, bidID, ownerID)))
}

// AcceptPending moves a pending bid to accepted
func (r *PostgresBidRepository) AcceptPending(ctx context.Context, tx pgx.Tx, bidID, ownerID uuid.UUID) (*bids.Bid, error) {
	return r.transition(ctx, tx, bidID, ownerID, bids.BidStatusAccepted)
}

// RejectPending moves a pending bid to rejected
func (r *PostgresBidRepository) RejectPending(ctx context.Context, tx pgx.Tx, bidID, ownerID uuid.UUID) (*bids.Bid, error) {
	return r.transition(ctx, tx, bidID, ownerID, bids.BidStatusRejected)
}

// transition is a compare-and-set on status: it only matches pending rows,
// so a bid can leave pending exactly once.
func (r *PostgresBidRepository) transition(ctx context.Context, tx pgx.Tx, bidID, ownerID uuid.UUID, to bids.BidStatus) (*bids.Bid, error) {
	query := `
		UPDATE bids
		SET status = $3::bid_status, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2 AND status = 'pending'
		RETURNING ` + bidColumns
	return bidOrNotFound(scanBid(tx.QueryRow(ctx, query, bidID, ownerID, string(to))))
}

// ListPendingForVehicle returns the other pending bids on a vehicle, row-locked
func (r *PostgresBidRepository) ListPendingForVehicle(ctx context.Context, tx pgx.Tx, vehicleID, excludeID uuid.UUID) ([]*bids.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE vehicle_id = $1 AND status = 'pending' AND id <> $2
		ORDER BY created_at ASC
		FOR UPDATE
	`
	rows, err := tx.Query(ctx, query, vehicleID, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending bids: %w", err)
	}
	return collectBids(rows)
}

// RejectBids rejects the listed bids that are still pending
func (r *PostgresBidRepository) RejectBids(ctx context.Context, tx pgx.Tx, bidIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(bidIDs) == 0 {
		return nil, nil
	}

	query := `
		UPDATE bids
		SET status = 'rejected', updated_at = NOW()
		WHERE id = ANY($1) AND status = 'pending'
		RETURNING id
	`
	rows, err := tx.Query(ctx, query, bidIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to reject bids: %w", err)
	}

	changed, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to collect rejected bids: %w", err)
	}
	return changed, nil
}

// List returns one page of bids matching q
func (r *PostgresBidRepository) List(ctx context.Context, q bids.ListBidsQuery) ([]*bids.Bid, int, error) {
	where, args := bidFilters(q)

	var total int
	countQuery := `SELECT COUNT(*) FROM bids WHERE ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count bids: %w", err)
	}

	order := "DESC"
	if !q.SortDesc {
		order = "ASC"
	}
	// SortBy is whitelisted by the service
	query := fmt.Sprintf(`
		SELECT %s
		FROM bids
		WHERE %s
		ORDER BY %s %s, id
		LIMIT $%d OFFSET $%d
	`, bidColumns, where, q.SortBy, order, len(args)+1, len(args)+2)
	args = append(args, q.Limit, q.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query bids: %w", err)
	}
	result, err := collectBids(rows)
	if err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func bidFilters(q bids.ListBidsQuery) (string, []interface{}) {
	conds := []string{"start_date >= $1"}
	args := []interface{}{q.StartingFrom}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if q.OwnerID != uuid.Nil {
		add("owner_id = $%d", q.OwnerID)
	}
	if q.RenterID != uuid.Nil {
		add("renter_id = $%d", q.RenterID)
	}
	if q.Status != "" {
		add("status = $%d::bid_status", string(q.Status))
	}
	if q.VehicleName != "" {
		add("vehicle_snapshot->>'name' ILIKE $%d", "%"+escapeLike(q.VehicleName)+"%")
	}
	return strings.Join(conds, " AND "), args
}

// ListPendingStartingBetween returns pending bids on the owner's vehicle starting within [from, to]
func (r *PostgresBidRepository) ListPendingStartingBetween(ctx context.Context, ownerID, vehicleID uuid.UUID, from, to time.Time) ([]*bids.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE owner_id = $1 AND vehicle_id = $2 AND status = 'pending'
		  AND start_date BETWEEN $3 AND $4
		ORDER BY end_date ASC, amount DESC
	`
	rows, err := r.pool.Query(ctx, query, ownerID, vehicleID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query best bids: %w", err)
	}
	return collectBids(rows)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
