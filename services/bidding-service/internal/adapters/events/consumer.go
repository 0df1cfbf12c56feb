package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rentrover/rentrover/services/bidding-service/internal/domain/bids"
)

// SubmissionIngester materializes queued submissions
type SubmissionIngester interface {
	IngestSubmission(ctx context.Context, msg *bids.SubmissionMessage) (*bids.IngestResult, error)
	AnnounceBid(ctx context.Context, result *bids.IngestResult)
}

// BidQueueConsumer polls the bid queue on a fixed interval and turns each
// submission into a pending bid
type BidQueueConsumer struct {
	queue     bids.BidQueue
	ingester  SubmissionIngester
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

// NewBidQueueConsumer creates a new consumer
func NewBidQueueConsumer(
	queue bids.BidQueue,
	ingester SubmissionIngester,
	interval time.Duration,
	batchSize int,
	logger *slog.Logger,
) *BidQueueConsumer {
	if batchSize < 1 {
		batchSize = 1
	}
	return &BidQueueConsumer{
		queue:     queue,
		ingester:  ingester,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run polls until ctx is cancelled and returns nil then. Messages already
// received when ctx is cancelled are still processed to completion.
func (c *BidQueueConsumer) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info("Bid queue consumer started", "interval", c.interval, "batch_size", c.batchSize)

	c.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Bid queue consumer stopped")
			return nil
		case <-ticker.C:
			c.Poll(ctx)
		}
	}
}

// Poll receives one batch and handles every message in it. It returns the
// number of messages received.
func (c *BidQueueConsumer) Poll(ctx context.Context) int {
	msgs, err := c.queue.Receive(ctx, c.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Error("Failed to receive from bid queue", "error", fmt.Errorf("%w: %v", bids.ErrQueueDelivery, err))
		}
		if len(msgs) == 0 {
			return 0
		}
	}

	// Finish what was received even if shutdown started meanwhile
	handleCtx := context.WithoutCancel(ctx)
	for _, msg := range msgs {
		c.handle(handleCtx, msg)
	}
	return len(msgs)
}

func (c *BidQueueConsumer) handle(ctx context.Context, msg bids.QueueMessage) {
	logger := c.logger.With("message_id", msg.ID)

	submission, err := bids.DecodeSubmission(msg.Body)
	if err != nil {
		// Retrying cannot fix a malformed payload
		logger.Error("Dropping malformed bid submission", "error", err)
		c.delete(ctx, logger, msg)
		return
	}

	result, err := c.ingester.IngestSubmission(ctx, submission)
	if err != nil {
		logger.Error("Failed to ingest bid submission, leaving it for redelivery",
			"submission_id", submission.SubmissionID, "error", err)
		if relErr := c.queue.Release(ctx, msg); relErr != nil {
			logger.Warn("Failed to release message", "error", relErr)
		}
		return
	}

	c.delete(ctx, logger, msg)
	c.ingester.AnnounceBid(ctx, result)
}

func (c *BidQueueConsumer) delete(ctx context.Context, logger *slog.Logger, msg bids.QueueMessage) {
	if err := c.queue.Delete(ctx, msg); err != nil {
		logger.Warn("Failed to delete message, it will be redelivered", "error", err)
	}
}
