package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "Pending"
	BookingStatusConfirmed BookingStatus = "Confirmed"
	BookingStatusCancelled BookingStatus = "Cancelled"
)

// Active reports whether the booking still holds its seats. Seats referenced
// by active bookings of one showing must stay pairwise disjoint.
func (s BookingStatus) Active() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

type Booking struct {
	ID         uuid.UUID
	UserID     int
	ShowingID  int
	SeatIDs    []int
	Status     BookingStatus
	TotalMoney decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TotalMoney computes the booking total as showing price times seat count.
// The result is fixed at creation time and never recomputed afterwards.
func TotalMoney(price decimal.Decimal, seatCount int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(seatCount)))
}

type BookingSeat struct {
	Row    string
	Number int
	Type   string
}

// BookingDetail is the joined presentation view of one booking.
type BookingDetail struct {
	ID             uuid.UUID
	UserID         int
	ShowingID      int
	Status         BookingStatus
	TotalMoney     decimal.Decimal
	MovieTitle     string
	TheaterName    string
	AuditoriumName string
	StartsAt       time.Time
	Seats          []BookingSeat
	CreatedAt      time.Time
}

type BookingSummary struct {
	ID          uuid.UUID
	Status      BookingStatus
	TotalMoney  decimal.Decimal
	MovieTitle  string
	TheaterName string
	StartsAt    time.Time
	SeatCount   int
	CreatedAt   time.Time
}

// BookingFilter scopes list queries. A zero UserID means no user scoping and
// is reserved for elevated callers.
type BookingFilter struct {
	UserID int
}

type BookingRepository interface {
	// Create validates the request against the showing, locks the target
	// seats, checks for conflicts and persists the booking in one atomic
	// transaction. On success the booking's ID, Status, TotalMoney and
	// CreatedAt are populated.
	Create(ctx context.Context, booking *Booking) error

	GetById(ctx context.Context, id uuid.UUID) (*BookingDetail, error)

	GetSummaries(ctx context.Context, filter BookingFilter, pagination Pagination) ([]BookingSummary, *Metadata, error)

	// CancelStale sweeps PENDING bookings older than the given age that have
	// no live payment attached back to CANCELLED, releasing their seats.
	CancelStale(ctx context.Context, olderThan time.Duration) (int64, error)
}
