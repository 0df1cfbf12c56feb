package bids

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// SubmitBidCommand is a renter's request to bid on a vehicle
type SubmitBidCommand struct {
	// SubmissionID is an optional client idempotency key
	SubmissionID uuid.UUID    `json:"submission_id"`
	VehicleID    uuid.UUID    `json:"vehicle_id" validate:"required"`
	Renter       UserSnapshot `json:"renter"`
	Amount       int64        `json:"amount" validate:"gt=0"`
	StartDate    string       `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate      string       `json:"end_date" validate:"required,datetime=2006-01-02"`
	TripType     TripType     `json:"trip_type" validate:"required,oneof=in_city out_station"`
}

// SubmissionReceipt acknowledges that a bid was queued, not yet persisted
type SubmissionReceipt struct {
	SubmissionID uuid.UUID
	MessageID    string
}

func (s *Service) validateSubmit(cmd SubmitBidCommand) (DateRange, error) {
	if err := validateStruct(s.validate, cmd); err != nil {
		return DateRange{}, err
	}

	// Both dates passed the datetime tag, parsing cannot fail
	start, _ := ParseDay(cmd.StartDate)
	end, _ := ParseDay(cmd.EndDate)
	r := NewDateRange(start, end)
	if !r.Valid() {
		return DateRange{}, ValidationErrors{{Field: "end_date", Message: "must be on or after start_date"}}
	}
	return r, nil
}

// SubmitBid validates the bid, snapshots the vehicle and renter, and enqueues
// it. The bid is persisted later by the queue consumer.
func (s *Service) SubmitBid(ctx context.Context, cmd SubmitBidCommand) (*SubmissionReceipt, error) {
	r, err := s.validateSubmit(cmd)
	if err != nil {
		return nil, err
	}

	vehicle, err := s.catalog.FindActiveByID(ctx, cmd.VehicleID)
	if err != nil {
		if errors.Is(err, ErrVehicleNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, fmt.Errorf("failed to load vehicle: %w", err)
	}

	if vehicle.Owner.ID == cmd.Renter.ID {
		return nil, ErrOwnerCannotBid
	}

	submissionID := cmd.SubmissionID
	if submissionID == uuid.Nil {
		submissionID = uuid.New()
	}

	msg := &SubmissionMessage{
		Schema:       SubmissionSchema,
		Version:      SubmissionVersion,
		SubmissionID: submissionID,
		Renter:       cmd.Renter,
		Owner:        vehicle.Owner,
		Vehicle:      vehicle.Snapshot(),
		Amount:       cmd.Amount,
		StartDate:    r.Start.Format(DateLayout),
		EndDate:      r.End.Format(DateLayout),
		TripType:     cmd.TripType,
		SubmittedAt:  s.now(),
	}

	body, err := msg.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode submission: %w", err)
	}

	messageID, err := s.queue.Publish(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueueDelivery, err)
	}

	s.logger.Info("Bid submitted",
		"submission_id", submissionID,
		"vehicle_id", vehicle.ID,
		"renter_id", cmd.Renter.ID,
		"message_id", messageID,
	)

	return &SubmissionReceipt{SubmissionID: submissionID, MessageID: messageID}, nil
}
