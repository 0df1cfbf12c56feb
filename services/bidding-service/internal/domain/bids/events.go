package bids

import (
	"time"

	"github.com/google/uuid"
)

// Integration event types, used as routing keys by the outbox relay
const (
	EventTypeBidPlaced   = "bid.placed"
	EventTypeBidAccepted = "bid.accepted"
	EventTypeBidRejected = "bid.rejected"
)

type BidPlacedEvent struct {
	BidID        uuid.UUID `json:"bid_id"`
	SubmissionID uuid.UUID `json:"submission_id"`
	VehicleID    uuid.UUID `json:"vehicle_id"`
	RenterID     uuid.UUID `json:"renter_id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	Amount       int64     `json:"amount"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type BidAcceptedEvent struct {
	BidID          uuid.UUID   `json:"bid_id"`
	BookingID      uuid.UUID   `json:"booking_id"`
	VehicleID      uuid.UUID   `json:"vehicle_id"`
	RenterID       uuid.UUID   `json:"renter_id"`
	OwnerID        uuid.UUID   `json:"owner_id"`
	Amount         int64       `json:"amount"`
	StartDate      string      `json:"start_date"`
	EndDate        string      `json:"end_date"`
	RejectedBidIDs []uuid.UUID `json:"rejected_bid_ids"`
	OccurredAt     time.Time   `json:"occurred_at"`
}

type BidRejectedEvent struct {
	BidID      uuid.UUID `json:"bid_id"`
	VehicleID  uuid.UUID `json:"vehicle_id"`
	RenterID   uuid.UUID `json:"renter_id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newBidPlacedEvent(bid *Bid, now time.Time) BidPlacedEvent {
	return BidPlacedEvent{
		BidID:        bid.ID,
		SubmissionID: bid.SubmissionID,
		VehicleID:    bid.VehicleID,
		RenterID:     bid.RenterID,
		OwnerID:      bid.OwnerID,
		Amount:       bid.Amount,
		StartDate:    bid.StartDate.Format(DateLayout),
		EndDate:      bid.EndDate.Format(DateLayout),
		OccurredAt:   now,
	}
}
