package bids

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rentrover/rentrover/pkg/database"
)

// AcceptBidCommand is an owner's decision to accept a pending bid
type AcceptBidCommand struct {
	BidID   uuid.UUID
	OwnerID uuid.UUID
}

// RejectBidCommand is an owner's decision to reject a pending bid
type RejectBidCommand struct {
	BidID   uuid.UUID
	OwnerID uuid.UUID
}

// AcceptanceResult describes everything one acceptance changed
type AcceptanceResult struct {
	Booking        *Booking
	AcceptedBid    *Bid
	AcceptedBidID  uuid.UUID
	RejectedBidIDs []uuid.UUID
	RejectedBids   []*Bid
}

// AcceptBid accepts a pending bid, rejects every pending bid on the same
// vehicle whose dates overlap it and creates the booking, all in one
// transaction. Transient lock conflicts are retried with backoff and surface
// as ErrConflictAbort once retries run out. Notifications go out after commit.
func (s *Service) AcceptBid(ctx context.Context, cmd AcceptBidCommand) (*AcceptanceResult, error) {
	var result *AcceptanceResult

	attempt := 0
	op := func() error {
		attempt++
		r, err := s.acceptOnce(ctx, cmd)
		if err != nil {
			if database.IsRetryable(err) {
				s.logger.Warn("Acceptance conflicted, retrying",
					"bid_id", cmd.BidID, "attempt", attempt, "error", err)
				return err
			}
			return backoff.Permanent(err)
		}
		result = r
		return nil
	}

	if err := backoff.Retry(op, s.acceptBackOff(ctx)); err != nil {
		if database.IsRetryable(err) {
			return nil, fmt.Errorf("%w: %v", ErrConflictAbort, err)
		}
		return nil, err
	}

	s.logger.Info("Bid accepted",
		"bid_id", result.AcceptedBidID,
		"booking_id", result.Booking.ID,
		"vehicle_id", result.Booking.VehicleID,
		"rejected_count", len(result.RejectedBidIDs),
	)

	s.dispatch(ctx, s.acceptanceNotices(result))
	return result, nil
}

func (s *Service) acceptBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.cfg.AcceptBackoff
	eb.MaxInterval = 20 * s.cfg.AcceptBackoff
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(s.cfg.AcceptRetries)), ctx)
}

func (s *Service) acceptOnce(ctx context.Context, cmd AcceptBidCommand) (*AcceptanceResult, error) {
	var result *AcceptanceResult
	now := s.now()

	err := database.WithTransaction(ctx, s.txManager, func(tx pgx.Tx) error {
		pending, err := s.bidRepo.GetPendingForOwner(ctx, tx, cmd.BidID, cmd.OwnerID)
		if err != nil {
			return err
		}

		// Acceptances on one vehicle run one at a time from here on
		if err := s.bookingRepo.LockVehicle(ctx, tx, pending.VehicleID); err != nil {
			return fmt.Errorf("failed to lock vehicle: %w", err)
		}

		accepted, err := s.bidRepo.AcceptPending(ctx, tx, cmd.BidID, cmd.OwnerID)
		if err != nil {
			return err
		}
		target := accepted.Range()

		booked, err := s.bookingRepo.HasOverlap(ctx, tx, accepted.VehicleID, target)
		if err != nil {
			return fmt.Errorf("failed to check bookings: %w", err)
		}
		if booked {
			return ErrVehicleUnavailable
		}

		candidates, err := s.bidRepo.ListPendingForVehicle(ctx, tx, accepted.VehicleID, accepted.ID)
		if err != nil {
			return fmt.Errorf("failed to load competing bids: %w", err)
		}
		losers := Overlapping(target, accepted.ID, candidates)

		rejected := []*Bid{}
		rejectedIDs := []uuid.UUID{}
		if len(losers) > 0 {
			changed, err := s.bidRepo.RejectBids(ctx, tx, bidIDs(losers))
			if err != nil {
				return fmt.Errorf("failed to reject competing bids: %w", err)
			}
			rejected = keepChanged(losers, changed, now)
			rejectedIDs = bidIDs(rejected)
		}

		booking := NewBookingFromBid(accepted, now)
		if err := s.bookingRepo.Create(ctx, tx, booking); err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}

		event, err := newOutboxEvent(EventTypeBidAccepted, BidAcceptedEvent{
			BidID:          accepted.ID,
			BookingID:      booking.ID,
			VehicleID:      accepted.VehicleID,
			RenterID:       accepted.RenterID,
			OwnerID:        accepted.OwnerID,
			Amount:         accepted.Amount,
			StartDate:      target.Start.Format(DateLayout),
			EndDate:        target.End.Format(DateLayout),
			RejectedBidIDs: rejectedIDs,
			OccurredAt:     now,
		})
		if err != nil {
			return err
		}
		if err := s.outboxRepo.SaveEvent(ctx, tx, event); err != nil {
			return fmt.Errorf("failed to save outbox event: %w", err)
		}

		result = &AcceptanceResult{
			Booking:        booking,
			AcceptedBid:    accepted,
			AcceptedBidID:  accepted.ID,
			RejectedBidIDs: rejectedIDs,
			RejectedBids:   rejected,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RejectBid rejects one pending bid owned by the caller and notifies the renter.
func (s *Service) RejectBid(ctx context.Context, cmd RejectBidCommand) (*Bid, error) {
	var rejected *Bid
	now := s.now()

	err := database.WithTransaction(ctx, s.txManager, func(tx pgx.Tx) error {
		bid, err := s.bidRepo.RejectPending(ctx, tx, cmd.BidID, cmd.OwnerID)
		if err != nil {
			return err
		}

		event, err := newOutboxEvent(EventTypeBidRejected, BidRejectedEvent{
			BidID:      bid.ID,
			VehicleID:  bid.VehicleID,
			RenterID:   bid.RenterID,
			OwnerID:    bid.OwnerID,
			OccurredAt: now,
		})
		if err != nil {
			return err
		}
		if err := s.outboxRepo.SaveEvent(ctx, tx, event); err != nil {
			return fmt.Errorf("failed to save outbox event: %w", err)
		}

		rejected = bid
		return nil
	})
	if err != nil {
		if database.IsRetryable(err) {
			return nil, fmt.Errorf("%w: %v", ErrConflictAbort, err)
		}
		return nil, err
	}

	s.logger.Info("Bid rejected", "bid_id", rejected.ID, "vehicle_id", rejected.VehicleID)

	s.dispatch(ctx, []notice{s.rejectionNotice(rejected), s.pushNotice(rejected.RenterID, PushBidRejected, rejected)})
	return rejected, nil
}

func bidIDs(bids []*Bid) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(bids))
	for _, b := range bids {
		ids = append(ids, b.ID)
	}
	return ids
}

// keepChanged returns the bids whose id is in changed, marked rejected
func keepChanged(bids []*Bid, changed []uuid.UUID, now time.Time) []*Bid {
	set := make(map[uuid.UUID]struct{}, len(changed))
	for _, id := range changed {
		set[id] = struct{}{}
	}
	out := make([]*Bid, 0, len(changed))
	for _, b := range bids {
		if _, ok := set[b.ID]; ok {
			b.Status = BidStatusRejected
			b.UpdatedAt = now
			out = append(out, b)
		}
	}
	return out
}
