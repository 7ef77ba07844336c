// Package api defines the request and response shapes of the HTTP boundary.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateBookingRequest struct {
	ShowingID int   `json:"showing_id" validate:"required,gt=0"`
	SeatIDs   []int `json:"seat_ids" validate:"required,min=1,max=10,unique,dive,gt=0"`
}

type BookingSeat struct {
	Row    string `json:"row"`
	Number int    `json:"number"`
	Type   string `json:"type"`
}

type BookingResponse struct {
	Id             string          `json:"id"`
	Status         string          `json:"status"`
	TotalMoney     decimal.Decimal `json:"total_money"`
	ShowingId      int             `json:"showing_id"`
	MovieTitle     string          `json:"movie_title"`
	TheaterName    string          `json:"theater_name"`
	AuditoriumName string          `json:"auditorium_name"`
	StartsAt       time.Time       `json:"starts_at"`
	Seats          []BookingSeat   `json:"seats"`
	CreatedAt      time.Time       `json:"created_at"`
}

type BookingSummary struct {
	Id          string          `json:"id"`
	Status      string          `json:"status"`
	TotalMoney  decimal.Decimal `json:"total_money"`
	MovieTitle  string          `json:"movie_title"`
	TheaterName string          `json:"theater_name"`
	StartsAt    time.Time       `json:"starts_at"`
	SeatCount   int             `json:"seat_count"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Metadata struct {
	CurrentPage  int `json:"current_page"`
	FirstPage    int `json:"first_page"`
	LastPage     int `json:"last_page"`
	PageSize     int `json:"page_size"`
	TotalRecords int `json:"total_records"`
}

type BookingListResponse struct {
	Bookings []BookingSummary `json:"bookings"`
	Metadata Metadata         `json:"metadata"`
}

type BookingListParams struct {
	Page     int `validate:"omitempty,gt=0"`
	PageSize int `validate:"omitempty,gt=0,max=100"`
}

type InitiatePaymentRequest struct {
	BookingId string `json:"booking_id" validate:"required,uuid"`
	Gateway   string `json:"gateway" validate:"required,oneof=sslcommerz stripe"`
}

type InitiatePaymentResponse struct {
	PaymentId   string `json:"payment_id"`
	Status      string `json:"status"`
	RedirectUrl string `json:"redirect_url"`
}

type PaymentCallbackResponse struct {
	PaymentId string `json:"payment_id"`
	Status    string `json:"status"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Env     string `json:"env"`
	Version string `json:"version"`
}

type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	ValidationErrors []ValidationError `json:"validation_errors"`
	RequestId        string            `json:"request_id,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
}
