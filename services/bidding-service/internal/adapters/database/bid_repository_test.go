package database

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/rentrover/rentrover/services/bidding-service/internal/domain/bids"
)

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "swift", escapeLike("swift"))
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\x`, escapeLike(`c:\x`))
}

func TestBidFilters(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("only the start date", func(t *testing.T) {
		where, args := bidFilters(bids.ListBidsQuery{StartingFrom: from})
		assert.Equal(t, "start_date >= $1", where)
		assert.Equal(t, []interface{}{from}, args)
	})

	t.Run("every filter", func(t *testing.T) {
		owner := uuid.New()
		where, args := bidFilters(bids.ListBidsQuery{
			StartingFrom: from,
			OwnerID:      owner,
			Status:       bids.BidStatusPending,
			VehicleName:  "dzire_",
		})
		assert.Equal(t,
			"start_date >= $1 AND owner_id = $2 AND status = $3::bid_status AND vehicle_snapshot->>'name' ILIKE $4",
			where)
		assert.Equal(t, []interface{}{from, owner, "pending", `%dzire\_%`}, args)
	})
}
