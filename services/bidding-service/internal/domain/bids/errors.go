package bids

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidBid         = errors.New("invalid bid")
	ErrBidNotFound        = errors.New("bid not found or no longer pending")
	ErrVehicleNotFound    = errors.New("vehicle not found")
	ErrOwnerCannotBid     = errors.New("owner cannot bid on their own vehicle")
	ErrVehicleUnavailable = errors.New("vehicle already booked for these dates")
	ErrConflictAbort      = errors.New("concurrent update conflict, try again")
	ErrMalformedMessage   = errors.New("malformed bid submission message")
	ErrQueueDelivery      = errors.New("bid queue delivery failed")
)

// ValidationError describes one rejected field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidationErrors collects every rejected field of a command
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// Unwrap lets errors.Is(err, ErrInvalidBid) match
func (v ValidationErrors) Unwrap() error {
	return ErrInvalidBid
}
