package bids

import (
	"time"

	"github.com/google/uuid"
)

// BidView is the JSON shape of a bid on the API and push channel
type BidView struct {
	ID           uuid.UUID       `json:"id"`
	SubmissionID uuid.UUID       `json:"submission_id"`
	Vehicle      VehicleSnapshot `json:"vehicle"`
	Renter       UserSnapshot    `json:"renter"`
	Owner        UserSnapshot    `json:"owner"`
	Amount       int64           `json:"amount"`
	StartDate    string          `json:"start_date"`
	EndDate      string          `json:"end_date"`
	TripType     TripType        `json:"trip_type"`
	Status       BidStatus       `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func NewBidView(b *Bid) BidView {
	return BidView{
		ID:           b.ID,
		SubmissionID: b.SubmissionID,
		Vehicle:      b.Vehicle,
		Renter:       b.Renter,
		Owner:        b.Owner,
		Amount:       b.Amount,
		StartDate:    b.StartDate.Format(DateLayout),
		EndDate:      b.EndDate.Format(DateLayout),
		TripType:     b.TripType,
		Status:       b.Status,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func NewBidViews(bids []*Bid) []BidView {
	out := make([]BidView, 0, len(bids))
	for _, b := range bids {
		out = append(out, NewBidView(b))
	}
	return out
}

// BookingView is the JSON shape of a booking
type BookingView struct {
	ID                uuid.UUID       `json:"id"`
	BidID             uuid.UUID       `json:"bid_id"`
	Vehicle           VehicleSnapshot `json:"vehicle"`
	Renter            UserSnapshot    `json:"renter"`
	Owner             UserSnapshot    `json:"owner"`
	Amount            int64           `json:"amount"`
	StartDate         string          `json:"start_date"`
	EndDate           string          `json:"end_date"`
	TripType          TripType        `json:"trip_type"`
	PaymentStatus     PaymentStatus   `json:"payment_status"`
	TotalAmount       int64           `json:"total_amount"`
	DistanceTravelled int64           `json:"distance_travelled"`
	StartOdometer     *int64          `json:"start_odometer"`
	EndOdometer       *int64          `json:"end_odometer"`
	LateDays          int             `json:"late_days"`
	LateFee           int64           `json:"late_fee"`
	CreatedAt         time.Time       `json:"created_at"`
}

func NewBookingView(b *Booking) BookingView {
	return BookingView{
		ID:                b.ID,
		BidID:             b.BidID,
		Vehicle:           b.Vehicle,
		Renter:            b.Renter,
		Owner:             b.Owner,
		Amount:            b.Amount,
		StartDate:         b.StartDate.Format(DateLayout),
		EndDate:           b.EndDate.Format(DateLayout),
		TripType:          b.TripType,
		PaymentStatus:     b.PaymentStatus,
		TotalAmount:       b.TotalAmount,
		DistanceTravelled: b.DistanceTravelled,
		StartOdometer:     b.StartOdometer,
		EndOdometer:       b.EndOdometer,
		LateDays:          b.LateDays,
		LateFee:           b.LateFee,
		CreatedAt:         b.CreatedAt,
	}
}

func NewBookingViews(bookings []*Booking) []BookingView {
	out := make([]BookingView, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, NewBookingView(b))
	}
	return out
}
