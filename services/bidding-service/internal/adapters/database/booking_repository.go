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

// ErrBookingNotFound is returned when no booking matches
var ErrBookingNotFound = errors.New("booking not found")

const bookingColumns = `
	id, bid_id, vehicle_id, renter_id, owner_id,
	renter_snapshot, owner_snapshot, vehicle_snapshot,
	amount, start_date, end_date, trip_type,
	payment_status, total_amount, distance_travelled, start_odometer, end_odometer,
	late_days, late_fee, created_at, updated_at`

// PostgresBookingRepository implements bids.BookingRepository using pgx
type PostgresBookingRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBookingRepository creates a new PostgreSQL booking repository
func NewPostgresBookingRepository(pool *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{pool: pool}
}

func scanBooking(row pgx.Row) (*bids.Booking, error) {
	var b bids.Booking
	err := row.Scan(
		&b.ID,
		&b.BidID,
		&b.VehicleID,
		&b.RenterID,
		&b.OwnerID,
		&b.Renter,
		&b.Owner,
		&b.Vehicle,
		&b.Amount,
		&b.StartDate,
		&b.EndDate,
		&b.TripType,
		&b.PaymentStatus,
		&b.TotalAmount,
		&b.DistanceTravelled,
		&b.StartOdometer,
		&b.EndOdometer,
		&b.LateDays,
		&b.LateFee,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// LockVehicle takes a transaction-scoped advisory lock keyed by vehicle id
func (r *PostgresBookingRepository) LockVehicle(ctx context.Context, tx pgx.Tx, vehicleID uuid.UUID) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, vehicleID.String())
	if err != nil {
		return fmt.Errorf("failed to acquire vehicle lock: %w", err)
	}
	return nil
}

// HasOverlap reports whether a booking of the vehicle shares a day with rng
func (r *PostgresBookingRepository) HasOverlap(ctx context.Context, tx pgx.Tx, vehicleID uuid.UUID, rng bids.DateRange) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE vehicle_id = $1 AND start_date <= $3 AND end_date >= $2
		)
	`
	var exists bool
	if err := tx.QueryRow(ctx, query, vehicleID, rng.Start, rng.End).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check booking overlap: %w", err)
	}
	return exists, nil
}

// Create stores a booking within a transaction
func (r *PostgresBookingRepository) Create(ctx context.Context, tx pgx.Tx, b *bids.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	_, err := tx.Exec(ctx, query,
		b.ID,
		b.BidID,
		b.VehicleID,
		b.RenterID,
		b.OwnerID,
		b.Renter,
		b.Owner,
		b.Vehicle,
		b.Amount,
		b.StartDate,
		b.EndDate,
		string(b.TripType),
		string(b.PaymentStatus),
		b.TotalAmount,
		b.DistanceTravelled,
		b.StartOdometer,
		b.EndOdometer,
		b.LateDays,
		b.LateFee,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

// GetByBidID retrieves the booking created from a bid
func (r *PostgresBookingRepository) GetByBidID(ctx context.Context, bidID uuid.UUID) (*bids.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE bid_id = $1`
	b, err := scanBooking(r.pool.QueryRow(ctx, query, bidID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// List returns one page of bookings matching q, newest first
func (r *PostgresBookingRepository) List(ctx context.Context, q bids.ListBookingsQuery) ([]*bids.Booking, int, error) {
	conds := []string{"TRUE"}
	var args []interface{}
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
	if q.VehicleID != uuid.Nil {
		add("vehicle_id = $%d", q.VehicleID)
	}
	if q.PaymentStatus != "" {
		add("payment_status = $%d", string(q.PaymentStatus))
	}
	if q.VehicleName != "" {
		add("vehicle_snapshot->>'name' ILIKE $%d", "%"+escapeLike(q.VehicleName)+"%")
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM bookings
		WHERE %s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d
	`, bookingColumns, where, len(args)+1, len(args)+2)
	args = append(args, q.Limit, q.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var result []*bids.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan booking: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating bookings: %w", err)
	}
	return result, total, nil
}

// ListRangesForVehicle returns the booked ranges of a vehicle that end on or after from
func (r *PostgresBookingRepository) ListRangesForVehicle(ctx context.Context, vehicleID uuid.UUID, from time.Time) ([]bids.DateRange, error) {
	query := `
		SELECT start_date, end_date
		FROM bookings
		WHERE vehicle_id = $1 AND end_date >= $2
		ORDER BY start_date
	`
	rows, err := r.pool.Query(ctx, query, vehicleID, from)
	if err != nil {
		return nil, fmt.Errorf("failed to query booked ranges: %w", err)
	}
	ranges, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (bids.DateRange, error) {
		var start, end time.Time
		if err := row.Scan(&start, &end); err != nil {
			return bids.DateRange{}, err
		}
		return bids.NewDateRange(start, end), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan booked ranges: %w", err)
	}
	return ranges, nil
}
