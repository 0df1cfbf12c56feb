package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rentrover/rentrover/pkg/auth"
	"github.com/rentrover/rentrover/services/bidding-service/internal/domain/bids"
)

// BidService is the slice of the domain service the HTTP layer drives
type BidService interface {
	SubmitBid(ctx context.Context, cmd bids.SubmitBidCommand) (*bids.SubmissionReceipt, error)
	AcceptBid(ctx context.Context, cmd bids.AcceptBidCommand) (*bids.AcceptanceResult, error)
	RejectBid(ctx context.Context, cmd bids.RejectBidCommand) (*bids.Bid, error)
	ListBids(ctx context.Context, q bids.ListBidsQuery) (*bids.BidPage, error)
	BestBidsForVehicle(ctx context.Context, ownerID, vehicleID uuid.UUID) ([]*bids.Bid, error)
	ListBookings(ctx context.Context, q bids.ListBookingsQuery) (*bids.BookingPage, error)
	BookedDates(ctx context.Context, vehicleID uuid.UUID) ([]string, error)
}

type BidHandler struct {
	service BidService
	logger  *slog.Logger
}

func NewBidHandler(service BidService, logger *slog.Logger) *BidHandler {
	return &BidHandler{service: service, logger: logger}
}

type submitBidRequest struct {
	SubmissionID *uuid.UUID    `json:"submission_id"`
	VehicleID    uuid.UUID     `json:"vehicle_id"`
	Amount       int64         `json:"amount"`
	StartDate    string        `json:"start_date"`
	EndDate      string        `json:"end_date"`
	TripType     bids.TripType `json:"trip_type"`
}

type submitBidResponse struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	MessageID    string    `json:"message_id"`
}

// SubmitBid handles POST /bids. The renter snapshot comes from the token.
func (h *BidHandler) SubmitBid(c *gin.Context) {
	identity, _ := auth.IdentityFromGin(c)

	var req submitBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cmd := bids.SubmitBidCommand{
		VehicleID: req.VehicleID,
		Renter: bids.UserSnapshot{
			ID:    identity.ID,
			Name:  identity.Name,
			Email: identity.Email,
			Phone: identity.Phone,
			Role:  string(identity.Role),
		},
		Amount:    req.Amount,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		TripType:  req.TripType,
	}
	if req.SubmissionID != nil {
		cmd.SubmissionID = *req.SubmissionID
	}

	receipt, err := h.service.SubmitBid(c.Request.Context(), cmd)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, submitBidResponse{
		SubmissionID: receipt.SubmissionID,
		MessageID:    receipt.MessageID,
	})
}

type acceptBidResponse struct {
	Booking        bids.BookingView `json:"booking"`
	AcceptedBidID  uuid.UUID        `json:"accepted_bid_id"`
	RejectedBidIDs []uuid.UUID      `json:"rejected_bid_ids"`
	RejectedCount  int              `json:"rejected_count"`
}

// AcceptBid handles POST /bids/:id/accept
func (h *BidHandler) AcceptBid(c *gin.Context) {
	bidID, ok := pathID(c, "id")
	if !ok {
		return
	}
	identity, _ := auth.IdentityFromGin(c)

	result, err := h.service.AcceptBid(c.Request.Context(), bids.AcceptBidCommand{
		BidID:   bidID,
		OwnerID: identity.ID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	rejected := result.RejectedBidIDs
	if rejected == nil {
		rejected = []uuid.UUID{}
	}
	c.JSON(http.StatusOK, acceptBidResponse{
		Booking:        bids.NewBookingView(result.Booking),
		AcceptedBidID:  result.AcceptedBidID,
		RejectedBidIDs: rejected,
		RejectedCount:  len(rejected),
	})
}

// RejectBid handles PUT /bids/:id/reject
func (h *BidHandler) RejectBid(c *gin.Context) {
	bidID, ok := pathID(c, "id")
	if !ok {
		return
	}
	identity, _ := auth.IdentityFromGin(c)

	bid, err := h.service.RejectBid(c.Request.Context(), bids.RejectBidCommand{
		BidID:   bidID,
		OwnerID: identity.ID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bid": bids.NewBidView(bid)})
}

type pageMetadata struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// ListBids handles GET /bids?status=&vehicle_name=&sort_by=&order=&page=&limit=
func (h *BidHandler) ListBids(c *gin.Context) {
	identity, _ := auth.IdentityFromGin(c)

	page, ok := pagination(c)
	if !ok {
		return
	}

	q := bids.ListBidsQuery{
		Viewer:      identity,
		Status:      bids.BidStatus(c.Query("status")),
		VehicleName: c.Query("vehicle_name"),
		SortBy:      c.Query("sort_by"),
		SortDesc:    c.Query("order") == "desc",
		Pagination:  page,
	}

	result, err := h.service.ListBids(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bids":     bids.NewBidViews(result.Bids),
		"metadata": pageMetadata{Total: result.Total, Page: result.Page, Limit: result.Limit},
	})
}

// BestBids handles GET /vehicles/:id/best-bids
func (h *BidHandler) BestBids(c *gin.Context) {
	vehicleID, ok := pathID(c, "id")
	if !ok {
		return
	}
	identity, _ := auth.IdentityFromGin(c)

	result, err := h.service.BestBidsForVehicle(c.Request.Context(), identity.ID, vehicleID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bids": bids.NewBidViews(result)})
}

// ListBookings handles GET /bookings?payment_status=&vehicle_name=&page=&limit=
func (h *BidHandler) ListBookings(c *gin.Context) {
	h.listBookings(c, uuid.Nil)
}

// VehicleBookings handles GET /vehicles/:id/bookings, scoped like ListBookings
func (h *BidHandler) VehicleBookings(c *gin.Context) {
	vehicleID, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.listBookings(c, vehicleID)
}

func (h *BidHandler) listBookings(c *gin.Context, vehicleID uuid.UUID) {
	identity, _ := auth.IdentityFromGin(c)

	page, ok := pagination(c)
	if !ok {
		return
	}

	result, err := h.service.ListBookings(c.Request.Context(), bids.ListBookingsQuery{
		Viewer:        identity,
		VehicleID:     vehicleID,
		PaymentStatus: bids.PaymentStatus(c.Query("payment_status")),
		VehicleName:   c.Query("vehicle_name"),
		Pagination:    page,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bids.NewBookingViews(result.Bookings),
		"metadata": pageMetadata{Total: result.Total, Page: result.Page, Limit: result.Limit},
	})
}

// BookedDates handles GET /vehicles/:id/booked-dates
func (h *BidHandler) BookedDates(c *gin.Context) {
	vehicleID, ok := pathID(c, "id")
	if !ok {
		return
	}

	dates, err := h.service.BookedDates(c.Request.Context(), vehicleID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"vehicle_id": vehicleID, "dates": dates})
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func pagination(c *gin.Context) (bids.Pagination, bool) {
	var p bids.Pagination
	for _, f := range []struct {
		name string
		dst  *int
	}{{"page", &p.Page}, {"limit", &p.Limit}} {
		raw := c.Query(f.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   bids.ErrInvalidBid.Error(),
				"details": bids.ValidationErrors{{Field: f.name, Message: "must be a positive integer"}},
			})
			return bids.Pagination{}, false
		}
		*f.dst = n
	}
	return p, true
}
