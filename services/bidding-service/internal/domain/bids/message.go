package bids

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	SubmissionSchema  = "rentrover.bid-submission"
	SubmissionVersion = 1
)

// SubmissionMessage is the queue payload for a submitted bid. It carries
// everything needed to persist the bid without another catalog lookup.
type SubmissionMessage struct {
	Schema       string          `json:"schema" validate:"required,eq=rentrover.bid-submission"`
	Version      int             `json:"version" validate:"required,eq=1"`
	SubmissionID uuid.UUID       `json:"submission_id" validate:"required"`
	Renter       UserSnapshot    `json:"renter"`
	Owner        UserSnapshot    `json:"owner"`
	Vehicle      VehicleSnapshot `json:"vehicle"`
	Amount       int64           `json:"amount" validate:"gt=0"`
	StartDate    string          `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate      string          `json:"end_date" validate:"required,datetime=2006-01-02"`
	TripType     TripType        `json:"trip_type" validate:"required,oneof=in_city out_station"`
	SubmittedAt  time.Time       `json:"submitted_at"`
}

// Range parses the message dates. Only valid on a decoded message.
func (m *SubmissionMessage) Range() (DateRange, error) {
	start, err := ParseDay(m.StartDate)
	if err != nil {
		return DateRange{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := ParseDay(m.EndDate)
	if err != nil {
		return DateRange{}, fmt.Errorf("end_date: %w", err)
	}
	return NewDateRange(start, end), nil
}

// Encode serializes the message
func (m *SubmissionMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// ToBid builds the pending bid the message describes
func (m *SubmissionMessage) ToBid(now time.Time) (*Bid, error) {
	r, err := m.Range()
	if err != nil {
		return nil, err
	}
	return &Bid{
		ID:           uuid.New(),
		SubmissionID: m.SubmissionID,
		VehicleID:    m.Vehicle.ID,
		RenterID:     m.Renter.ID,
		OwnerID:      m.Owner.ID,
		Renter:       m.Renter,
		Owner:        m.Owner,
		Vehicle:      m.Vehicle,
		Amount:       m.Amount,
		StartDate:    r.Start,
		EndDate:      r.End,
		TripType:     m.TripType,
		Status:       BidStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

var messageValidator = newValidator()

// DecodeSubmission parses and validates a queue payload. Every failure wraps
// ErrMalformedMessage: such a message can never be processed.
func DecodeSubmission(body []byte) (*SubmissionMessage, error) {
	var m SubmissionMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	if err := validateStruct(messageValidator, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	r, err := m.Range()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if !r.Valid() {
		return nil, fmt.Errorf("%w: end_date is before start_date", ErrMalformedMessage)
	}
	if m.Renter.ID == m.Owner.ID {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, ErrOwnerCannotBid)
	}

	return &m, nil
}

// IsMalformed reports whether err came from DecodeSubmission
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedMessage)
}
