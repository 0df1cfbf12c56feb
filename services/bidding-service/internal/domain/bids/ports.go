package bids

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rentrover/rentrover/pkg/events"
)

// BidRepository defines the interface for bid persistence
type BidRepository interface {
	// InsertPending stores a pending bid. created is false when a bid with the
	// same submission id already exists.
	InsertPending(ctx context.Context, tx pgx.Tx, bid *Bid) (created bool, err error)

	// GetByID retrieves a bid by its ID
	GetByID(ctx context.Context, bidID uuid.UUID) (*Bid, error)

	// GetBySubmissionID retrieves the bid materialized from a submission
	GetBySubmissionID(ctx context.Context, submissionID uuid.UUID) (*Bid, error)

	// GetPendingForOwner loads a pending bid on one of the owner's vehicles
	GetPendingForOwner(ctx context.Context, tx pgx.Tx, bidID, ownerID uuid.UUID) (*Bid, error)

	// AcceptPending moves the bid from pending to accepted. Returns
	// ErrBidNotFound when the bid is missing, not owned or no longer pending.
	AcceptPending(ctx context.Context, tx pgx.Tx, bidID, ownerID uuid.UUID) (*Bid, error)

	// RejectPending moves the bid from pending to rejected, same guards as AcceptPending
	RejectPending(ctx context.Context, tx pgx.Tx, bidID, ownerID uuid.UUID) (*Bid, error)

	// ListPendingForVehicle returns the other pending bids on a vehicle and
	// locks them until the transaction ends
	ListPendingForVehicle(ctx context.Context, tx pgx.Tx, vehicleID, excludeID uuid.UUID) ([]*Bid, error)

	// RejectBids rejects the given bids that are still pending and returns the ids it changed
	RejectBids(ctx context.Context, tx pgx.Tx, bidIDs []uuid.UUID) ([]uuid.UUID, error)

	// List returns one page of bids and the total match count
	List(ctx context.Context, q ListBidsQuery) ([]*Bid, int, error)

	// ListPendingStartingBetween returns pending bids on the owner's vehicle
	// starting within [from, to], earliest end date first
	ListPendingStartingBetween(ctx context.Context, ownerID, vehicleID uuid.UUID, from, to time.Time) ([]*Bid, error)
}

// BookingRepository defines the interface for booking persistence
type BookingRepository interface {
	// LockVehicle serializes acceptances on one vehicle until the transaction ends
	LockVehicle(ctx context.Context, tx pgx.Tx, vehicleID uuid.UUID) error

	// HasOverlap reports whether a booking of the vehicle overlaps r
	HasOverlap(ctx context.Context, tx pgx.Tx, vehicleID uuid.UUID, r DateRange) (bool, error)

	// Create stores a booking within a transaction
	Create(ctx context.Context, tx pgx.Tx, booking *Booking) error

	// GetByBidID retrieves the booking created from a bid
	GetByBidID(ctx context.Context, bidID uuid.UUID) (*Booking, error)

	// List returns one page of bookings and the total match count
	List(ctx context.Context, q ListBookingsQuery) ([]*Booking, int, error)

	// ListRangesForVehicle returns the date ranges of every booking of the
	// vehicle ending on or after from, earliest first
	ListRangesForVehicle(ctx context.Context, vehicleID uuid.UUID, from time.Time) ([]DateRange, error)
}

// VehicleCatalog resolves vehicles from the catalog read model
type VehicleCatalog interface {
	// FindActiveByID returns ErrVehicleNotFound when the vehicle is missing or disabled
	FindActiveByID(ctx context.Context, vehicleID uuid.UUID) (*Vehicle, error)
}

// OutboxRepository defines the interface for outbox event persistence
type OutboxRepository interface {
	SaveEvent(ctx context.Context, tx pgx.Tx, event *events.OutboxEvent) error
}

// QueueMessage is one delivery from the bid queue
type QueueMessage struct {
	ID      string
	Body    []byte
	Receipt string
}

// BidQueue is the durable hand-off between submission and ingestion.
// Delivery is at least once: a received message that is neither deleted nor
// released becomes visible again after the driver's redelivery delay.
type BidQueue interface {
	Publish(ctx context.Context, body []byte) (messageID string, err error)
	Receive(ctx context.Context, max int) ([]QueueMessage, error)
	Delete(ctx context.Context, msg QueueMessage) error
	Release(ctx context.Context, msg QueueMessage) error
}

// Notifier sends lifecycle emails. Failures never undo state changes.
type Notifier interface {
	NotifyBidSubmitted(ctx context.Context, bid *Bid) error
	NotifyBidAccepted(ctx context.Context, bid *Bid, booking *Booking) error
	NotifyBidRejected(ctx context.Context, bid *Bid) error
}

// PushEvent is a real-time message for a connected user
type PushEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const (
	PushBidReceived = "bid_received"
	PushNewBid      = "new_bid"
	PushBidAccepted = "bid_accepted"
	PushBidRejected = "bid_rejected"
)

// Pusher delivers real-time events to a user's open sessions. Delivery is
// best effort with no replay.
type Pusher interface {
	Publish(ctx context.Context, userID uuid.UUID, event PushEvent) error
}
