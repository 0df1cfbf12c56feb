package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rentrover/rentrover/pkg/auth"
	"github.com/rentrover/rentrover/pkg/testhelpers"
	"github.com/rentrover/rentrover/services/bidding-service/internal/domain/bids"
)

// MockBidService is a mock implementation of BidService for testing
type MockBidService struct {
	mock.Mock
}

func (m *MockBidService) SubmitBid(ctx context.Context, cmd bids.SubmitBidCommand) (*bids.SubmissionReceipt, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bids.SubmissionReceipt), args.Error(1)
}

func (m *MockBidService) AcceptBid(ctx context.Context, cmd bids.AcceptBidCommand) (*bids.AcceptanceResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bids.AcceptanceResult), args.Error(1)
}

func (m *MockBidService) RejectBid(ctx context.Context, cmd bids.RejectBidCommand) (*bids.Bid, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bids.Bid), args.Error(1)
}

func (m *MockBidService) ListBids(ctx context.Context, q bids.ListBidsQuery) (*bids.BidPage, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bids.BidPage), args.Error(1)
}

func (m *MockBidService) BestBidsForVehicle(ctx context.Context, ownerID, vehicleID uuid.UUID) ([]*bids.Bid, error) {
	args := m.Called(ctx, ownerID, vehicleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*bids.Bid), args.Error(1)
}

func (m *MockBidService) ListBookings(ctx context.Context, q bids.ListBookingsQuery) (*bids.BookingPage, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bids.BookingPage), args.Error(1)
}

func (m *MockBidService) BookedDates(ctx context.Context, vehicleID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, vehicleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type testEnv struct {
	router  *gin.Engine
	service *MockBidService
	signer  *auth.Signer
	renter  auth.Identity
	owner   auth.Identity
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	service := new(MockBidService)
	signer := testhelpers.NewTestSigner(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &testEnv{
		router: NewRouter(RouterOptions{
			Bids:   NewBidHandler(service, logger),
			Signer: signer,
		}),
		service: service,
		signer:  signer,
		renter:  auth.Identity{ID: uuid.New(), Name: "Asha", Email: "asha@example.com", Phone: "9000000001", Role: auth.RoleRenter},
		owner:   auth.Identity{ID: uuid.New(), Name: "Ravi", Email: "ravi@example.com", Role: auth.RoleOwner},
	}
}

func (e *testEnv) do(t *testing.T, method, path string, as *auth.Identity, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+testhelpers.MustToken(t, e.signer, *as))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func sampleBid(owner, renter auth.Identity) *bids.Bid {
	return &bids.Bid{
		ID:           uuid.New(),
		SubmissionID: uuid.New(),
		VehicleID:    uuid.New(),
		RenterID:     renter.ID,
		OwnerID:      owner.ID,
		Renter:       bids.UserSnapshot{ID: renter.ID, Name: renter.Name, Email: renter.Email},
		Owner:        bids.UserSnapshot{ID: owner.ID, Name: owner.Name, Email: owner.Email},
		Vehicle:      bids.VehicleSnapshot{Name: "Swift Dzire"},
		Amount:       5000,
		StartDate:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		TripType:     bids.TripTypeInCity,
		Status:       bids.BidStatusPending,
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestSubmitBid(t *testing.T) {
	vehicleID := uuid.New()
	body := map[string]interface{}{
		"vehicle_id": vehicleID,
		"amount":     5000,
		"start_date": "2026-01-01",
		"end_date":   "2026-01-10",
		"trip_type":  "in_city",
	}

	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{name: "queued", wantStatus: http.StatusAccepted},
		{name: "validation error", serviceErr: bids.ValidationErrors{{Field: "amount", Message: "must be greater than 0"}}, wantStatus: http.StatusBadRequest},
		{name: "vehicle not found", serviceErr: bids.ErrVehicleNotFound, wantStatus: http.StatusNotFound},
		{name: "owner bidding on own vehicle", serviceErr: bids.ErrOwnerCannotBid, wantStatus: http.StatusForbidden},
		{name: "queue unavailable", serviceErr: fmt.Errorf("%w: timeout", bids.ErrQueueDelivery), wantStatus: http.StatusServiceUnavailable},
		{name: "unexpected", serviceErr: fmt.Errorf("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			submissionID := uuid.New()

			matchCmd := mock.MatchedBy(func(cmd bids.SubmitBidCommand) bool {
				return cmd.VehicleID == vehicleID &&
					cmd.Renter.ID == env.renter.ID &&
					cmd.Renter.Email == env.renter.Email &&
					cmd.Renter.Phone == env.renter.Phone &&
					cmd.Amount == 5000 &&
					cmd.StartDate == "2026-01-01" &&
					cmd.TripType == bids.TripTypeInCity
			})
			if tt.serviceErr != nil {
				env.service.On("SubmitBid", mock.Anything, matchCmd).Return(nil, tt.serviceErr)
			} else {
				env.service.On("SubmitBid", mock.Anything, matchCmd).
					Return(&bids.SubmissionReceipt{SubmissionID: submissionID, MessageID: "msg-1"}, nil)
			}

			w := env.do(t, http.MethodPost, "/api/v1/bids", &env.renter, body)
			assert.Equal(t, tt.wantStatus, w.Code)

			if tt.serviceErr == nil {
				var resp submitBidResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, submissionID, resp.SubmissionID)
				assert.Equal(t, "msg-1", resp.MessageID)
			}
			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "boom")
			}
			env.service.AssertExpectations(t)
		})
	}
}

func TestSubmitBid_ValidationDetails(t *testing.T) {
	env := newTestEnv(t)
	env.service.On("SubmitBid", mock.Anything, mock.Anything).
		Return(nil, bids.ValidationErrors{{Field: "end_date", Message: "must be on or after start_date"}})

	w := env.do(t, http.MethodPost, "/api/v1/bids", &env.renter, map[string]interface{}{"vehicle_id": uuid.New()})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error   string                `json:"error"`
		Details []bids.ValidationError `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Details, 1)
	assert.Equal(t, "end_date", resp.Details[0].Field)
}

func TestSubmitBid_Authorization(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/bids", nil, map[string]interface{}{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/bids", &env.owner, map[string]interface{}{})
	assert.Equal(t, http.StatusForbidden, w.Code)

	env.service.AssertNotCalled(t, "SubmitBid", mock.Anything, mock.Anything)
}

func TestSubmitBid_MalformedBody(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/v1/bids", &env.renter, map[string]interface{}{"vehicle_id": "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env.service.AssertNotCalled(t, "SubmitBid", mock.Anything, mock.Anything)
}

func TestAcceptBid(t *testing.T) {
	env := newTestEnv(t)
	bid := sampleBid(env.owner, env.renter)
	bid.Status = bids.BidStatusAccepted
	booking := bids.NewBookingFromBid(bid, time.Now())
	rejected := []uuid.UUID{uuid.New(), uuid.New()}

	env.service.On("AcceptBid", mock.Anything, bids.AcceptBidCommand{BidID: bid.ID, OwnerID: env.owner.ID}).
		Return(&bids.AcceptanceResult{
			Booking:        booking,
			AcceptedBid:    bid,
			AcceptedBidID:  bid.ID,
			RejectedBidIDs: rejected,
		}, nil)

	w := env.do(t, http.MethodPost, "/api/v1/bids/"+bid.ID.String()+"/accept", &env.owner, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Booking struct {
			ID        uuid.UUID `json:"id"`
			BidID     uuid.UUID `json:"bid_id"`
			StartDate string    `json:"start_date"`
		} `json:"booking"`
		AcceptedBidID  uuid.UUID   `json:"accepted_bid_id"`
		RejectedBidIDs []uuid.UUID `json:"rejected_bid_ids"`
		RejectedCount  int         `json:"rejected_count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, booking.ID, resp.Booking.ID)
	assert.Equal(t, bid.ID, resp.Booking.BidID)
	assert.Equal(t, "2026-01-01", resp.Booking.StartDate)
	assert.Equal(t, bid.ID, resp.AcceptedBidID)
	assert.Equal(t, rejected, resp.RejectedBidIDs)
	assert.Equal(t, 2, resp.RejectedCount)
}

func TestAcceptBid_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not pending", bids.ErrBidNotFound, http.StatusNotFound},
		{"dates taken", bids.ErrVehicleUnavailable, http.StatusConflict},
		{"conflict after retries", bids.ErrConflictAbort, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.service.On("AcceptBid", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := env.do(t, http.MethodPost, "/api/v1/bids/"+uuid.NewString()+"/accept", &env.owner, nil)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestAcceptBid_ConflictHidesStoreDetail(t *testing.T) {
	env := newTestEnv(t)
	storeErr := fmt.Errorf("%w: %v", bids.ErrConflictAbort,
		errors.New("ERROR: could not serialize access due to concurrent update (SQLSTATE 40001)"))
	env.service.On("AcceptBid", mock.Anything, mock.Anything).Return(nil, storeErr)

	w := env.do(t, http.MethodPost, "/api/v1/bids/"+uuid.NewString()+"/accept", &env.owner, nil)
	require.Equal(t, http.StatusConflict, w.Code)

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, bids.ErrConflictAbort.Error(), resp.Error)
	assert.NotContains(t, w.Body.String(), "SQLSTATE")
}

func TestAcceptBid_RejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/bids/not-a-uuid/accept", &env.owner, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/bids/"+uuid.NewString()+"/accept", &env.renter, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	env.service.AssertNotCalled(t, "AcceptBid", mock.Anything, mock.Anything)
}

func TestRejectBid(t *testing.T) {
	env := newTestEnv(t)
	bid := sampleBid(env.owner, env.renter)
	bid.Status = bids.BidStatusRejected

	env.service.On("RejectBid", mock.Anything, bids.RejectBidCommand{BidID: bid.ID, OwnerID: env.owner.ID}).Return(bid, nil)

	w := env.do(t, http.MethodPut, "/api/v1/bids/"+bid.ID.String()+"/reject", &env.owner, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Bid bids.BidView `json:"bid"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, bid.ID, resp.Bid.ID)
	assert.Equal(t, bids.BidStatusRejected, resp.Bid.Status)
}

func TestListBids(t *testing.T) {
	env := newTestEnv(t)
	bid := sampleBid(env.owner, env.renter)

	env.service.On("ListBids", mock.Anything, mock.MatchedBy(func(q bids.ListBidsQuery) bool {
		return q.Viewer.ID == env.owner.ID &&
			q.Viewer.Role == auth.RoleOwner &&
			q.Status == bids.BidStatusPending &&
			q.VehicleName == "swift" &&
			q.SortBy == "amount" && q.SortDesc &&
			q.Page == 2 && q.Limit == 5
	})).Return(&bids.BidPage{Bids: []*bids.Bid{bid}, Total: 6, Page: 2, Limit: 5}, nil)

	w := env.do(t, http.MethodGet, "/api/v1/bids?status=pending&vehicle_name=swift&sort_by=amount&order=desc&page=2&limit=5", &env.owner, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Bids     []bids.BidView `json:"bids"`
		Metadata pageMetadata   `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Bids, 1)
	assert.Equal(t, bid.ID, resp.Bids[0].ID)
	assert.Equal(t, pageMetadata{Total: 6, Page: 2, Limit: 5}, resp.Metadata)
}

func TestListBids_BadPagination(t *testing.T) {
	env := newTestEnv(t)
	for _, q := range []string{"page=0", "limit=-1", "page=abc"} {
		w := env.do(t, http.MethodGet, "/api/v1/bids?"+q, &env.renter, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
	env.service.AssertNotCalled(t, "ListBids", mock.Anything, mock.Anything)
}

func TestBestBids(t *testing.T) {
	env := newTestEnv(t)
	vehicleID := uuid.New()
	bid := sampleBid(env.owner, env.renter)

	env.service.On("BestBidsForVehicle", mock.Anything, env.owner.ID, vehicleID).Return([]*bids.Bid{bid}, nil)

	w := env.do(t, http.MethodGet, "/api/v1/vehicles/"+vehicleID.String()+"/best-bids", &env.owner, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Bids []bids.BidView `json:"bids"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Bids, 1)
	assert.Equal(t, "2026-01-10", resp.Bids[0].EndDate)
}

func TestListBookings(t *testing.T) {
	env := newTestEnv(t)
	booking := bids.NewBookingFromBid(sampleBid(env.owner, env.renter), time.Now())

	env.service.On("ListBookings", mock.Anything, mock.MatchedBy(func(q bids.ListBookingsQuery) bool {
		return q.Viewer.ID == env.renter.ID && q.VehicleID == uuid.Nil && q.PaymentStatus == bids.PaymentStatusPending
	})).Return(&bids.BookingPage{Bookings: []*bids.Booking{booking}, Total: 1, Page: 1, Limit: 10}, nil)

	w := env.do(t, http.MethodGet, "/api/v1/bookings?payment_status=pending", &env.renter, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Bookings []bids.BookingView `json:"bookings"`
		Metadata pageMetadata       `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Bookings, 1)
	assert.Equal(t, booking.ID, resp.Bookings[0].ID)
	assert.Equal(t, 1, resp.Metadata.Total)
}

func TestVehicleBookings(t *testing.T) {
	env := newTestEnv(t)
	vehicleID := uuid.New()
	booking := bids.NewBookingFromBid(sampleBid(env.owner, env.renter), time.Now())

	env.service.On("ListBookings", mock.Anything, mock.MatchedBy(func(q bids.ListBookingsQuery) bool {
		return q.Viewer.ID == env.owner.ID && q.VehicleID == vehicleID && q.Page == 1
	})).Return(&bids.BookingPage{Bookings: []*bids.Booking{booking}, Total: 1, Page: 1, Limit: 10}, nil)

	w := env.do(t, http.MethodGet, "/api/v1/vehicles/"+vehicleID.String()+"/bookings?page=1", &env.owner, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Bookings []bids.BookingView `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Bookings, 1)
	assert.Equal(t, booking.ID, resp.Bookings[0].ID)

	w = env.do(t, http.MethodGet, "/api/v1/vehicles/nope/bookings", &env.owner, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookedDates(t *testing.T) {
	env := newTestEnv(t)
	vehicleID := uuid.New()

	env.service.On("BookedDates", mock.Anything, vehicleID).Return([]string{"2026-01-01", "2026-01-02"}, nil)

	w := env.do(t, http.MethodGet, "/api/v1/vehicles/"+vehicleID.String()+"/booked-dates", &env.renter, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		VehicleID uuid.UUID `json:"vehicle_id"`
		Dates     []string  `json:"dates"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, vehicleID, resp.VehicleID)
	assert.Equal(t, []string{"2026-01-01", "2026-01-02"}, resp.Dates)
}

func TestBookedDates_Errors(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/vehicles/not-a-uuid/booked-dates", &env.renter, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/vehicles/"+uuid.NewString()+"/booked-dates", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	env.service.On("BookedDates", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
	w = env.do(t, http.MethodGet, "/api/v1/vehicles/"+uuid.NewString()+"/booked-dates", &env.renter, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}
