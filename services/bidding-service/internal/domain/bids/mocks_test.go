package bids

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/rentrover/rentrover/pkg/events"
)

// fakeTx records commit and rollback calls. Any other pgx.Tx method panics.
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Commit(ctx context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	if f.committed {
		return pgx.ErrTxClosed
	}
	f.rolledBack = true
	return nil
}

// fakeTxManager hands out a new fakeTx per transaction
type fakeTxManager struct {
	mu  sync.Mutex
	txs []*fakeTx
}

func (m *fakeTxManager) BeginTx(ctx context.Context) (pgx.Tx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &fakeTx{}
	m.txs = append(m.txs, tx)
	return tx, nil
}

func (m *fakeTxManager) committed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, tx := range m.txs {
		if tx.committed {
			n++
		}
	}
	return n
}

// MockBidRepository is a mock implementation of BidRepository for testing
type MockBidRepository struct {
	mock.Mock
}

func (m *MockBidRepository) InsertPending(ctx context.Context, tx pgx.Tx, bid *Bid) (bool, error) {
	args := m.Called(ctx, tx, bid)
	return args.Bool(0), args.Error(1)
}

func (m *MockBidRepository) GetByID(ctx context.Context, bidID uuid.UUID) (*Bid, error) {
	args := m.Called(ctx, bidID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Bid), args.Error(1)
}

func (m *MockBidRepository) GetBySubmissionID(ctx context.Context, submissionID uuid.UUID) (*Bid, error) {
	args := m.Called(ctx, submissionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Bid), args.Error(1)
}

func (m *MockBidRepository) GetPendingForOwner(ctx context.Context, tx pgx.Tx, bidID, ownerID uuid.UUID) (*Bid, error) {
	args := m.Called(ctx, tx, bidID, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Bid), args.Error(1)
}

func (m *MockBidRepository) AcceptPending(ctx context.Context, tx pgx.Tx, bidID, ownerID uuid.UUID) (*Bid, error) {
	args := m.Called(ctx, tx, bidID, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Bid), args.Error(1)
}

func (m *MockBidRepository) RejectPending(ctx context.Context, tx pgx.Tx, bidID, ownerID uuid.UUID) (*Bid, error) {
	args := m.Called(ctx, tx, bidID, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Bid), args.Error(1)
}

func (m *MockBidRepository) ListPendingForVehicle(ctx context.Context, tx pgx.Tx, vehicleID, excludeID uuid.UUID) ([]*Bid, error) {
	args := m.Called(ctx, tx, vehicleID, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Bid), args.Error(1)
}

func (m *MockBidRepository) RejectBids(ctx context.Context, tx pgx.Tx, bidIDs []uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, tx, bidIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockBidRepository) List(ctx context.Context, q ListBidsQuery) ([]*Bid, int, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*Bid), args.Int(1), args.Error(2)
}

func (m *MockBidRepository) ListPendingStartingBetween(ctx context.Context, ownerID, vehicleID uuid.UUID, from, to time.Time) ([]*Bid, error) {
	args := m.Called(ctx, ownerID, vehicleID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Bid), args.Error(1)
}

// MockBookingRepository is a mock implementation of BookingRepository for testing
type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) LockVehicle(ctx context.Context, tx pgx.Tx, vehicleID uuid.UUID) error {
	return m.Called(ctx, tx, vehicleID).Error(0)
}

func (m *MockBookingRepository) HasOverlap(ctx context.Context, tx pgx.Tx, vehicleID uuid.UUID, r DateRange) (bool, error) {
	args := m.Called(ctx, tx, vehicleID, r)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepository) Create(ctx context.Context, tx pgx.Tx, booking *Booking) error {
	return m.Called(ctx, tx, booking).Error(0)
}

func (m *MockBookingRepository) GetByBidID(ctx context.Context, bidID uuid.UUID) (*Booking, error) {
	args := m.Called(ctx, bidID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockBookingRepository) List(ctx context.Context, q ListBookingsQuery) ([]*Booking, int, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*Booking), args.Int(1), args.Error(2)
}

func (m *MockBookingRepository) ListRangesForVehicle(ctx context.Context, vehicleID uuid.UUID, from time.Time) ([]DateRange, error) {
	args := m.Called(ctx, vehicleID, from)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]DateRange), args.Error(1)
}

// MockOutboxRepository is a mock implementation of OutboxRepository for testing
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) SaveEvent(ctx context.Context, tx pgx.Tx, event *events.OutboxEvent) error {
	return m.Called(ctx, tx, event).Error(0)
}

// MockCatalog is a mock implementation of VehicleCatalog for testing
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) FindActiveByID(ctx context.Context, vehicleID uuid.UUID) (*Vehicle, error) {
	args := m.Called(ctx, vehicleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Vehicle), args.Error(1)
}

// MockQueue is a mock implementation of BidQueue for testing
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Publish(ctx context.Context, body []byte) (string, error) {
	args := m.Called(ctx, body)
	return args.String(0), args.Error(1)
}

func (m *MockQueue) Receive(ctx context.Context, max int) ([]QueueMessage, error) {
	args := m.Called(ctx, max)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]QueueMessage), args.Error(1)
}

func (m *MockQueue) Delete(ctx context.Context, msg QueueMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MockQueue) Release(ctx context.Context, msg QueueMessage) error {
	return m.Called(ctx, msg).Error(0)
}

// MockNotifier is a mock implementation of Notifier for testing
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyBidSubmitted(ctx context.Context, bid *Bid) error {
	return m.Called(ctx, bid).Error(0)
}

func (m *MockNotifier) NotifyBidAccepted(ctx context.Context, bid *Bid, booking *Booking) error {
	return m.Called(ctx, bid, booking).Error(0)
}

func (m *MockNotifier) NotifyBidRejected(ctx context.Context, bid *Bid) error {
	return m.Called(ctx, bid).Error(0)
}

// MockPusher is a mock implementation of Pusher for testing
type MockPusher struct {
	mock.Mock
}

func (m *MockPusher) Publish(ctx context.Context, userID uuid.UUID, event PushEvent) error {
	return m.Called(ctx, userID, event).Error(0)
}
