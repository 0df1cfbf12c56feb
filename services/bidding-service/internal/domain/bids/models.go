package bids

import (
	"time"

	"github.com/google/uuid"
)

// BidStatus is the lifecycle state of a bid. A bid leaves pending exactly once.
type BidStatus string

const (
	BidStatusPending  BidStatus = "pending"
	BidStatusAccepted BidStatus = "accepted"
	BidStatusRejected BidStatus = "rejected"
)

// Valid reports whether s is a known status
func (s BidStatus) Valid() bool {
	switch s {
	case BidStatusPending, BidStatusAccepted, BidStatusRejected:
		return true
	}
	return false
}

// TripType distinguishes local rentals from out-of-city trips
type TripType string

const (
	TripTypeInCity     TripType = "in_city"
	TripTypeOutStation TripType = "out_station"
)

// PaymentStatus tracks settlement of a booking
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// UserSnapshot is a copy of a user's contact details taken at submission time
type UserSnapshot struct {
	ID    uuid.UUID `json:"id" validate:"required"`
	Name  string    `json:"name" validate:"required"`
	Email string    `json:"email" validate:"required,email"`
	Phone string    `json:"phone,omitempty"`
	Role  string    `json:"role,omitempty"`
}

// VehicleSnapshot is a copy of the vehicle listing taken at submission time.
// Money fields are minor currency units.
type VehicleSnapshot struct {
	ID                uuid.UUID `json:"id" validate:"required"`
	Name              string    `json:"name" validate:"required"`
	Category          string    `json:"category,omitempty"`
	FuelType          string    `json:"fuel_type,omitempty"`
	BasePrice         int64     `json:"base_price"`
	PricePerKm        int64     `json:"price_per_km"`
	OutStationCharges int64     `json:"out_station_charges"`
	FinePercentage    int       `json:"fine_percentage"`
	Travelled         int64     `json:"travelled"`
	City              string    `json:"city,omitempty"`
	ImageURL          string    `json:"image_url,omitempty"`
	Features          []string  `json:"features,omitempty"`
	NumberPlate       string    `json:"number_plate,omitempty"`
}

// Vehicle is the catalog read model a bid is placed against
type Vehicle struct {
	VehicleSnapshot
	Owner      UserSnapshot
	IsDisabled bool
}

// Snapshot returns the denormalized copy stored on bids
func (v *Vehicle) Snapshot() VehicleSnapshot {
	return v.VehicleSnapshot.clone()
}

// clone copies the snapshot without sharing the features slice
func (s VehicleSnapshot) clone() VehicleSnapshot {
	if s.Features != nil {
		s.Features = append([]string(nil), s.Features...)
	}
	return s
}

// Bid is a renter's offer for a vehicle over an inclusive range of days
type Bid struct {
	ID           uuid.UUID
	SubmissionID uuid.UUID
	VehicleID    uuid.UUID
	RenterID     uuid.UUID
	OwnerID      uuid.UUID
	Renter       UserSnapshot
	Owner        UserSnapshot
	Vehicle      VehicleSnapshot
	Amount       int64
	StartDate    time.Time
	EndDate      time.Time
	TripType     TripType
	Status       BidStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Range returns the bid's inclusive date range
func (b *Bid) Range() DateRange {
	return DateRange{Start: Day(b.StartDate), End: Day(b.EndDate)}
}

// Booking is the confirmed reservation created from an accepted bid
type Booking struct {
	ID                uuid.UUID
	BidID             uuid.UUID
	VehicleID         uuid.UUID
	RenterID          uuid.UUID
	OwnerID           uuid.UUID
	Renter            UserSnapshot
	Owner             UserSnapshot
	Vehicle           VehicleSnapshot
	Amount            int64
	StartDate         time.Time
	EndDate           time.Time
	TripType          TripType
	PaymentStatus     PaymentStatus
	TotalAmount       int64
	DistanceTravelled int64
	StartOdometer     *int64
	EndOdometer       *int64
	LateDays          int
	LateFee           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewBookingFromBid copies the accepted bid into a booking with settlement
// fields at their defaults.
func NewBookingFromBid(bid *Bid, now time.Time) *Booking {
	return &Booking{
		ID:            uuid.New(),
		BidID:         bid.ID,
		VehicleID:     bid.VehicleID,
		RenterID:      bid.RenterID,
		OwnerID:       bid.OwnerID,
		Renter:        bid.Renter,
		Owner:         bid.Owner,
		Vehicle:       bid.Vehicle.clone(),
		Amount:        bid.Amount,
		StartDate:     Day(bid.StartDate),
		EndDate:       Day(bid.EndDate),
		TripType:      bid.TripType,
		PaymentStatus: PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
