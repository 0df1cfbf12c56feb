package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentrover/rentrover/services/bidding-service/internal/domain/bids"
)

// PostgresVehicleRepository reads the vehicle catalog read model. It
// implements bids.VehicleCatalog.
type PostgresVehicleRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresVehicleRepository creates a new PostgreSQL vehicle repository
func NewPostgresVehicleRepository(pool *pgxpool.Pool) *PostgresVehicleRepository {
	return &PostgresVehicleRepository{pool: pool}
}

// FindActiveByID returns the vehicle unless it is missing or disabled
func (r *PostgresVehicleRepository) FindActiveByID(ctx context.Context, vehicleID uuid.UUID) (*bids.Vehicle, error) {
	query := `
		SELECT id, owner_id, owner_name, owner_email, owner_phone,
		       name, category, fuel_type, base_price, price_per_km, out_station_charges,
		       fine_percentage, travelled, city, image_url, features, number_plate, is_disabled
		FROM vehicles
		WHERE id = $1 AND is_disabled = FALSE
	`
	var v bids.Vehicle
	err := r.pool.QueryRow(ctx, query, vehicleID).Scan(
		&v.ID,
		&v.Owner.ID,
		&v.Owner.Name,
		&v.Owner.Email,
		&v.Owner.Phone,
		&v.Name,
		&v.Category,
		&v.FuelType,
		&v.BasePrice,
		&v.PricePerKm,
		&v.OutStationCharges,
		&v.FinePercentage,
		&v.Travelled,
		&v.City,
		&v.ImageURL,
		&v.Features,
		&v.NumberPlate,
		&v.IsDisabled,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, bids.ErrVehicleNotFound
		}
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}
	v.Owner.Role = "owner"
	return &v, nil
}

// Upsert writes a vehicle into the read model. Used by catalog sync and tests.
func (r *PostgresVehicleRepository) Upsert(ctx context.Context, v *bids.Vehicle) error {
	query := `
		INSERT INTO vehicles (
			id, owner_id, owner_name, owner_email, owner_phone,
			name, category, fuel_type, base_price, price_per_km, out_station_charges,
			fine_percentage, travelled, city, image_url, features, number_plate, is_disabled
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			owner_name = EXCLUDED.owner_name,
			owner_email = EXCLUDED.owner_email,
			owner_phone = EXCLUDED.owner_phone,
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			fuel_type = EXCLUDED.fuel_type,
			base_price = EXCLUDED.base_price,
			price_per_km = EXCLUDED.price_per_km,
			out_station_charges = EXCLUDED.out_station_charges,
			fine_percentage = EXCLUDED.fine_percentage,
			travelled = EXCLUDED.travelled,
			city = EXCLUDED.city,
			image_url = EXCLUDED.image_url,
			features = EXCLUDED.features,
			number_plate = EXCLUDED.number_plate,
			is_disabled = EXCLUDED.is_disabled,
			updated_at = NOW()
	`
	features := v.Features
	if features == nil {
		features = []string{}
	}
	_, err := r.pool.Exec(ctx, query,
		v.ID,
		v.Owner.ID,
		v.Owner.Name,
		v.Owner.Email,
		v.Owner.Phone,
		v.Name,
		v.Category,
		v.FuelType,
		v.BasePrice,
		v.PricePerKm,
		v.OutStationCharges,
		v.FinePercentage,
		v.Travelled,
		v.City,
		v.ImageURL,
		features,
		v.NumberPlate,
		v.IsDisabled,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert vehicle: %w", err)
	}
	return nil
}
