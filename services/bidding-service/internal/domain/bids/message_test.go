package bids

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validMessage() *SubmissionMessage {
	return &SubmissionMessage{
		Schema:       SubmissionSchema,
		Version:      SubmissionVersion,
		SubmissionID: uuid.New(),
		Renter:       UserSnapshot{ID: uuid.New(), Name: "Asha", Email: "asha@example.com"},
		Owner:        UserSnapshot{ID: uuid.New(), Name: "Ravi", Email: "ravi@example.com", Role: "owner"},
		Vehicle:      VehicleSnapshot{ID: uuid.New(), Name: "Swift Dzire", Features: []string{"ac"}},
		Amount:       5000,
		StartDate:    "2026-01-01",
		EndDate:      "2026-01-10",
		TripType:     TripTypeOutStation,
		SubmittedAt:  time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC),
	}
}

func TestDecodeSubmission_Valid(t *testing.T) {
	msg := validMessage()
	body, err := msg.Encode()
	require.NoError(t, err)

	got, err := DecodeSubmission(body)
	require.NoError(t, err)
	assert.Equal(t, msg, got)

	bid, err := got.ToBid(time.Now())
	require.NoError(t, err)
	assert.Equal(t, msg.SubmissionID, bid.SubmissionID)
	assert.Equal(t, msg.Vehicle.ID, bid.VehicleID)
	assert.Equal(t, msg.Owner.ID, bid.OwnerID)
	assert.Equal(t, msg.Renter.ID, bid.RenterID)
	assert.Equal(t, BidStatusPending, bid.Status)
	assert.Equal(t, day("2026-01-01"), bid.StartDate)
	assert.Equal(t, day("2026-01-10"), bid.EndDate)
}

func TestDecodeSubmission_SingleDay(t *testing.T) {
	msg := validMessage()
	msg.EndDate = msg.StartDate
	body, _ := msg.Encode()

	_, err := DecodeSubmission(body)
	assert.NoError(t, err)
}

func TestDecodeSubmission_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *SubmissionMessage)
	}{
		{"unknown schema", func(m *SubmissionMessage) { m.Schema = "other" }},
		{"future version", func(m *SubmissionMessage) { m.Version = 2 }},
		{"missing submission id", func(m *SubmissionMessage) { m.SubmissionID = uuid.Nil }},
		{"missing renter", func(m *SubmissionMessage) { m.Renter.ID = uuid.Nil }},
		{"bad renter email", func(m *SubmissionMessage) { m.Renter.Email = "nope" }},
		{"missing vehicle", func(m *SubmissionMessage) { m.Vehicle.ID = uuid.Nil }},
		{"zero amount", func(m *SubmissionMessage) { m.Amount = 0 }},
		{"negative amount", func(m *SubmissionMessage) { m.Amount = -5 }},
		{"bad date", func(m *SubmissionMessage) { m.StartDate = "01/01/2026" }},
		{"end before start", func(m *SubmissionMessage) { m.EndDate = "2025-12-31" }},
		{"unknown trip type", func(m *SubmissionMessage) { m.TripType = "roundtrip" }},
		{"renter owns vehicle", func(m *SubmissionMessage) { m.Owner.ID = m.Renter.ID }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := validMessage()
			tt.mutate(msg)
			body, err := json.Marshal(msg)
			require.NoError(t, err)

			_, err = DecodeSubmission(body)
			require.Error(t, err)
			assert.True(t, IsMalformed(err))
		})
	}

	t.Run("not json", func(t *testing.T) {
		_, err := DecodeSubmission([]byte("{not json"))
		assert.ErrorIs(t, err, ErrMalformedMessage)
	})
}
