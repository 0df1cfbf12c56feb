package bids

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// notice is one best-effort side effect run after a commit
type notice struct {
	kind  string
	bidID uuid.UUID
	send  func(ctx context.Context) error
}

// dispatch runs notices in the background with bounded concurrency. The
// caller's context values are kept but its cancellation is not: a request
// that returns must not abort emails for a committed decision.
func (s *Service) dispatch(ctx context.Context, notices []notice) {
	if len(notices) == 0 {
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.NotifyTimeout)
		defer cancel()

		var g errgroup.Group
		g.SetLimit(s.cfg.NotifyConcurrency)
		for _, n := range notices {
			n := n
			g.Go(func() error {
				if err := n.send(ctx); err != nil {
					s.logger.Warn("Notification failed", "kind", n.kind, "bid_id", n.bidID, "error", err)
				}
				return nil
			})
		}
		_ = g.Wait()
	}()
}

func (s *Service) acceptanceNotices(result *AcceptanceResult) []notice {
	accepted := result.AcceptedBid
	booking := result.Booking

	notices := make([]notice, 0, 3+2*len(result.RejectedBids))
	notices = append(notices,
		notice{
			kind:  "email.bid_accepted",
			bidID: accepted.ID,
			send: func(ctx context.Context) error {
				return s.notifier.NotifyBidAccepted(ctx, accepted, booking)
			},
		},
		s.pushNotice(accepted.RenterID, PushBidAccepted, accepted),
	)
	for _, bid := range result.RejectedBids {
		notices = append(notices, s.rejectionNotice(bid), s.pushNotice(bid.RenterID, PushBidRejected, bid))
	}
	return notices
}

func (s *Service) rejectionNotice(bid *Bid) notice {
	return notice{
		kind:  "email.bid_rejected",
		bidID: bid.ID,
		send: func(ctx context.Context) error {
			return s.notifier.NotifyBidRejected(ctx, bid)
		},
	}
}

func (s *Service) pushNotice(userID uuid.UUID, eventType string, bid *Bid) notice {
	return notice{
		kind:  "push." + eventType,
		bidID: bid.ID,
		send: func(ctx context.Context) error {
			return s.pusher.Publish(ctx, userID, PushEvent{Type: eventType, Data: NewBidView(bid)})
		},
	}
}

// push publishes synchronously and logs failures
func (s *Service) push(ctx context.Context, userID uuid.UUID, event PushEvent) {
	if err := s.pusher.Publish(ctx, userID, event); err != nil {
		s.logger.Warn("Real-time push failed", "user_id", userID, "type", event.Type, "error", err)
	}
}
