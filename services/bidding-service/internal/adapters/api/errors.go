package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rentrover/rentrover/services/bidding-service/internal/domain/bids"
)

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, bids.ErrInvalidBid):
		return http.StatusBadRequest
	case errors.Is(err, bids.ErrBidNotFound), errors.Is(err, bids.ErrVehicleNotFound):
		return http.StatusNotFound
	case errors.Is(err, bids.ErrOwnerCannotBid):
		return http.StatusForbidden
	case errors.Is(err, bids.ErrVehicleUnavailable), errors.Is(err, bids.ErrConflictAbort):
		return http.StatusConflict
	case errors.Is(err, bids.ErrQueueDelivery):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *BidHandler) writeError(c *gin.Context, err error) {
	status := statusFor(err)

	conflict := errors.Is(err, bids.ErrConflictAbort)
	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable || conflict {
		h.logger.ErrorContext(c.Request.Context(), "Request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}

	switch status {
	case http.StatusInternalServerError:
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	case http.StatusServiceUnavailable:
		c.JSON(status, gin.H{"error": "bid could not be queued, try again later"})
		return
	}
	if conflict {
		c.JSON(status, gin.H{"error": bids.ErrConflictAbort.Error()})
		return
	}

	var verrs bids.ValidationErrors
	if errors.As(err, &verrs) {
		c.JSON(status, gin.H{"error": bids.ErrInvalidBid.Error(), "details": verrs})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
