package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BookingCutoff is the window before a showing's start time after which new
// bookings are rejected.
const BookingCutoff = 30 * time.Minute

type Showing struct {
	ID           int
	AuditoriumID int
	TheaterID    int
	MovieID      int
	MovieTitle   string
	StartsAt     time.Time
	Price        decimal.Decimal
}

// AcceptsBookingsAt reports whether a booking made at the given instant is
// still inside the booking window. The deadline itself counts as closed.
func (s Showing) AcceptsBookingsAt(now time.Time) bool {
	return now.Before(s.StartsAt.Add(-BookingCutoff))
}

type ShowingRepository interface {
	GetById(ctx context.Context, id int) (*Showing, error)
}
