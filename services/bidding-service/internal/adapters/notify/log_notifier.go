package notify

import (
	"context"
	"log/slog"

	"github.com/rentrover/rentrover/services/bidding-service/internal/domain/bids"
)

// LogNotifier records notifications in the log instead of sending them.
// Used when SMTP is not configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyBidSubmitted(ctx context.Context, bid *bids.Bid) error {
	n.log(ctx, kindBidSubmitted, bid)
	return nil
}

func (n *LogNotifier) NotifyBidAccepted(ctx context.Context, bid *bids.Bid, booking *bids.Booking) error {
	n.log(ctx, kindBidAccepted, bid)
	return nil
}

func (n *LogNotifier) NotifyBidRejected(ctx context.Context, bid *bids.Bid) error {
	n.log(ctx, kindBidRejected, bid)
	return nil
}

func (n *LogNotifier) log(ctx context.Context, kind emailKind, bid *bids.Bid) {
	n.logger.InfoContext(ctx, "Notification (smtp disabled)",
		"kind", string(kind),
		"bid_id", bid.ID,
		"to", bid.Renter.Email,
	)
}
