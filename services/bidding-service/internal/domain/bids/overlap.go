package bids

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire format for calendar days
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD calendar day
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// DateRange is an inclusive range of calendar days
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange normalizes both ends to calendar days
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: Day(start), End: Day(end)}
}

// Valid reports whether the range ends on or after its start
func (r DateRange) Valid() bool {
	return !r.End.Before(r.Start)
}

// Overlaps reports whether r and o share at least one day. Ranges that touch
// on a boundary day overlap.
func (r DateRange) Overlaps(o DateRange) bool {
	return !r.Start.After(o.End) && !r.End.Before(o.Start)
}

// Days is the number of calendar days in the range
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Dates lists every calendar day in the range, start first
func (r DateRange) Dates() []time.Time {
	if !r.Valid() {
		return nil
	}
	out := make([]time.Time, 0, r.Days())
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// Overlapping returns the pending candidates whose range overlaps target,
// skipping excludeID. Input order is preserved.
func Overlapping(target DateRange, excludeID uuid.UUID, candidates []*Bid) []*Bid {
	var out []*Bid
	for _, c := range candidates {
		if c.ID == excludeID || c.Status != BidStatusPending {
			continue
		}
		if target.Overlaps(c.Range()) {
			out = append(out, c)
		}
	}
	return out
}
