package bids

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rentrover/rentrover/pkg/database"
)

// IngestResult is the outcome of materializing one submission
type IngestResult struct {
	// Bid is nil only when a duplicate submission could not be re-read
	Bid *Bid
	// Created is false when the submission had already been persisted
	Created bool
}

// IngestSubmission persists a decoded submission as a pending bid together
// with its bid.placed outbox event. Redelivered submissions are detected by
// submission id and neither stored nor confirmed again. The confirmation
// email is sent synchronously once the bid is committed; its failure is logged.
func (s *Service) IngestSubmission(ctx context.Context, msg *SubmissionMessage) (*IngestResult, error) {
	now := s.now()
	bid, err := msg.ToBid(now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	var created bool
	err = database.WithTransaction(ctx, s.txManager, func(tx pgx.Tx) error {
		var insertErr error
		created, insertErr = s.bidRepo.InsertPending(ctx, tx, bid)
		if insertErr != nil {
			return fmt.Errorf("failed to insert bid: %w", insertErr)
		}
		if !created {
			return nil
		}

		event, eventErr := newOutboxEvent(EventTypeBidPlaced, newBidPlacedEvent(bid, now))
		if eventErr != nil {
			return eventErr
		}
		if saveErr := s.outboxRepo.SaveEvent(ctx, tx, event); saveErr != nil {
			return fmt.Errorf("failed to save outbox event: %w", saveErr)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist submission %s: %w", msg.SubmissionID, err)
	}

	if !created {
		s.logger.Info("Duplicate submission ignored", "submission_id", msg.SubmissionID)
		existing, getErr := s.bidRepo.GetBySubmissionID(ctx, msg.SubmissionID)
		if getErr != nil {
			s.logger.Warn("Failed to load existing bid for duplicate submission",
				"submission_id", msg.SubmissionID, "error", getErr)
			return &IngestResult{}, nil
		}
		return &IngestResult{Bid: existing}, nil
	}

	s.logger.Info("Bid persisted",
		"bid_id", bid.ID,
		"submission_id", bid.SubmissionID,
		"vehicle_id", bid.VehicleID,
	)

	if notifyErr := s.notifier.NotifyBidSubmitted(ctx, bid); notifyErr != nil {
		s.logger.Warn("Failed to send bid confirmation", "bid_id", bid.ID, "error", notifyErr)
	}

	return &IngestResult{Bid: bid, Created: true}, nil
}

// AnnounceBid pushes the ingested bid to the renter and, for a new bid, to
// the vehicle owner. Failures are logged.
func (s *Service) AnnounceBid(ctx context.Context, result *IngestResult) {
	if result == nil || result.Bid == nil {
		return
	}
	bid := result.Bid

	s.push(ctx, bid.RenterID, PushEvent{Type: PushBidReceived, Data: NewBidView(bid)})
	if result.Created {
		s.push(ctx, bid.OwnerID, PushEvent{Type: PushNewBid, Data: NewBidView(bid)})
	}
}
