// Package notifier is the message-passing boundary towards the notification
// consumer: the core enqueues a confirmation event and returns, delivery is
// at-least-once and duplicates are tolerated downstream.
package notifier

import (
	"context"
	"time"
)

const BookingConfirmedQueue = "booking.confirmed"

type BookingConfirmation struct {
	BookingID   string    `json:"booking_id"`
	Email       string    `json:"email"`
	MovieTitle  string    `json:"movie_title"`
	TheaterName string    `json:"theater_name"`
	StartsAt    time.Time `json:"starts_at"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

type Notifier interface {
	SendBookingConfirmation(ctx context.Context, confirmation BookingConfirmation) error
}
