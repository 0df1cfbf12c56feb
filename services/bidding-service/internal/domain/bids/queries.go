package bids

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rentrover/rentrover/pkg/auth"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Sortable bid columns
var bidSortColumns = map[string]bool{
	"created_at": true,
	"start_date": true,
	"end_date":   true,
	"amount":     true,
}

// Pagination is the paging part of a listing query
type Pagination struct {
	Page  int
	Limit int
}

// Offset is the number of rows skipped before this page
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

func (p Pagination) normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

// ListBidsQuery filters the bids visible to Viewer. OwnerID, RenterID and
// StartingFrom are derived by the service and ignored on input.
type ListBidsQuery struct {
	Viewer      auth.Identity
	Status      BidStatus
	VehicleName string
	SortBy      string
	SortDesc    bool
	Pagination

	OwnerID      uuid.UUID
	RenterID     uuid.UUID
	StartingFrom time.Time
}

// BidPage is one page of bids
type BidPage struct {
	Bids  []*Bid
	Total int
	Page  int
	Limit int
}

// ListBids returns upcoming bids scoped to the viewer's role: owners see bids
// on their vehicles, renters their own bids, admins everything.
func (s *Service) ListBids(ctx context.Context, q ListBidsQuery) (*BidPage, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, ValidationErrors{{Field: "status", Message: "must be one of: pending accepted rejected"}}
	}
	if q.SortBy == "" {
		q.SortBy = "created_at"
		q.SortDesc = true
	}
	if !bidSortColumns[q.SortBy] {
		return nil, ValidationErrors{{Field: "sort_by", Message: "must be one of: created_at start_date end_date amount"}}
	}

	q.OwnerID, q.RenterID = uuid.Nil, uuid.Nil
	switch q.Viewer.Role {
	case auth.RoleOwner:
		q.OwnerID = q.Viewer.ID
	case auth.RoleAdmin:
	default:
		q.RenterID = q.Viewer.ID
	}
	q.StartingFrom = Day(s.now())
	q.Pagination = q.Pagination.normalize()

	bids, total, err := s.bidRepo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	return &BidPage{Bids: bids, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// BestBidsForVehicle returns the pending bids on an owner's vehicle that
// start within the look-ahead window, earliest end date first.
func (s *Service) BestBidsForVehicle(ctx context.Context, ownerID, vehicleID uuid.UUID) ([]*Bid, error) {
	from := Day(s.now())
	to := Day(from.Add(s.cfg.BestBidsWindow))

	bids, err := s.bidRepo.ListPendingStartingBetween(ctx, ownerID, vehicleID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list best bids: %w", err)
	}
	return bids, nil
}

// ListBookingsQuery filters the bookings visible to Viewer
type ListBookingsQuery struct {
	Viewer        auth.Identity
	VehicleID     uuid.UUID
	PaymentStatus PaymentStatus
	VehicleName   string
	Pagination

	OwnerID  uuid.UUID
	RenterID uuid.UUID
}

// BookingPage is one page of bookings
type BookingPage struct {
	Bookings []*Booking
	Total    int
	Page     int
	Limit    int
}

// ListBookings returns bookings scoped to the viewer's role, newest first
func (s *Service) ListBookings(ctx context.Context, q ListBookingsQuery) (*BookingPage, error) {
	q.OwnerID, q.RenterID = uuid.Nil, uuid.Nil
	switch q.Viewer.Role {
	case auth.RoleOwner:
		q.OwnerID = q.Viewer.ID
	case auth.RoleAdmin:
	default:
		q.RenterID = q.Viewer.ID
	}
	q.Pagination = q.Pagination.normalize()

	bookings, total, err := s.bookingRepo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return &BookingPage{Bookings: bookings, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// BookedDates lists the upcoming calendar days on which the vehicle is
// already booked, as YYYY-MM-DD in ascending order. Days before today are
// left out.
func (s *Service) BookedDates(ctx context.Context, vehicleID uuid.UUID) ([]string, error) {
	today := Day(s.now())
	ranges, err := s.bookingRepo.ListRangesForVehicle(ctx, vehicleID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to list booked dates: %w", err)
	}

	dates := []string{}
	for _, r := range ranges {
		for _, d := range r.Dates() {
			if d.Before(today) {
				continue
			}
			dates = append(dates, d.Format(DateLayout))
		}
	}
	return dates, nil
}
