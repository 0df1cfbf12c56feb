package bids

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rentrover/rentrover/pkg/database"
	"github.com/rentrover/rentrover/pkg/events"
)

// Config tunes the service. Zero values fall back to DefaultConfig.
type Config struct {
	// AcceptRetries is how many times a conflicting acceptance is retried
	AcceptRetries int
	// AcceptBackoff is the first retry delay; later delays grow exponentially
	AcceptBackoff time.Duration
	// NotifyConcurrency bounds the post-commit notification fan-out
	NotifyConcurrency int
	// NotifyTimeout bounds one post-commit fan-out
	NotifyTimeout time.Duration
	// BestBidsWindow is how far ahead BestBidsForVehicle looks
	BestBidsWindow time.Duration
	// Now is the clock, time.Now when nil
	Now func() time.Time
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		AcceptRetries:     3,
		AcceptBackoff:     50 * time.Millisecond,
		NotifyConcurrency: 4,
		NotifyTimeout:     30 * time.Second,
		BestBidsWindow:    15 * 24 * time.Hour,
		Now:               time.Now,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.AcceptRetries <= 0 {
		c.AcceptRetries = d.AcceptRetries
	}
	if c.AcceptBackoff <= 0 {
		c.AcceptBackoff = d.AcceptBackoff
	}
	if c.NotifyConcurrency <= 0 {
		c.NotifyConcurrency = d.NotifyConcurrency
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = d.NotifyTimeout
	}
	if c.BestBidsWindow <= 0 {
		c.BestBidsWindow = d.BestBidsWindow
	}
	if c.Now == nil {
		c.Now = d.Now
	}
	return c
}

// Dependencies are the ports the service drives
type Dependencies struct {
	TxManager database.TransactionManager
	Bids      BidRepository
	Bookings  BookingRepository
	Outbox    OutboxRepository
	Catalog   VehicleCatalog
	Queue     BidQueue
	Notifier  Notifier
	Pusher    Pusher
	Logger    *slog.Logger
}

// Service implements bid submission, ingestion, acceptance and rejection
type Service struct {
	txManager   database.TransactionManager
	bidRepo     BidRepository
	bookingRepo BookingRepository
	outboxRepo  OutboxRepository
	catalog     VehicleCatalog
	queue       BidQueue
	notifier    Notifier
	pusher      Pusher
	logger      *slog.Logger
	validate    *validator.Validate
	cfg         Config

	inflight sync.WaitGroup
}

// NewService creates a new bidding service
func NewService(deps Dependencies, cfg Config) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		txManager:   deps.TxManager,
		bidRepo:     deps.Bids,
		bookingRepo: deps.Bookings,
		outboxRepo:  deps.Outbox,
		catalog:     deps.Catalog,
		queue:       deps.Queue,
		notifier:    deps.Notifier,
		pusher:      deps.Pusher,
		logger:      logger,
		validate:    newValidator(),
		cfg:         cfg.withDefaults(),
	}
}

// Drain blocks until every post-commit notification started so far is done
func (s *Service) Drain() {
	s.inflight.Wait()
}

func (s *Service) now() time.Time {
	return s.cfg.Now().UTC()
}

// newOutboxEvent marshals payload into a pending outbox event
func newOutboxEvent(eventType string, payload interface{}) (*events.OutboxEvent, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}
	return events.NewOutboxEvent(eventType, body), nil
}
