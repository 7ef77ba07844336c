package domain

import "errors"

var (
	ErrRecordNotFound         = errors.New("record not found")
	ErrBookingClosed          = errors.New("booking time is over for this showing")
	ErrInvalidSeat            = errors.New("some seat id is not valid")
	ErrSeatAlreadyBooked      = errors.New("seat is booked already")
	ErrSeatContention         = errors.New("seat is being booked by another user, please try again")
	ErrSeatAuditoriumMismatch = errors.New("showing auditorium and seat auditorium are not the same")
	ErrPaymentFinalized       = errors.New("payment has already reached a terminal state")
	ErrBookingNotConfirmable  = errors.New("booking is no longer awaiting payment")
)
