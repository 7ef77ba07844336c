package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid    PaymentStatus = "Unpaid"
	PaymentStatusPending   PaymentStatus = "Pending"
	PaymentStatusPaid      PaymentStatus = "Paid"
	PaymentStatusFailed    PaymentStatus = "Failed"
	PaymentStatusCancelled PaymentStatus = "Cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusFailed, PaymentStatusCancelled:
		return true
	}
	return false
}

// Payment records one monetary transaction against a gateway. Rows are never
// deleted; the raw gateway response is kept for audit and never echoed to
// end users. BookingID is nullable so the audit trail survives booking
// deletion.
type Payment struct {
	ID              uuid.UUID
	BookingID       *uuid.UUID
	Gateway         string
	TransactionID   *string
	Amount          decimal.Decimal
	Currency        string
	Status          PaymentStatus
	FailureReason   *string
	GatewayResponse []byte
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error

	GetById(ctx context.Context, id uuid.UUID) (*Payment, error)

	// MarkInitiated moves an UNPAID payment to PENDING, recording the gateway
	// transaction id and raw response.
	MarkInitiated(ctx context.Context, id uuid.UUID, transactionID string, response []byte) error

	// MarkInitiationFailed moves a payment to FAILED after a rejected
	// initialization. The booking is left untouched.
	MarkInitiationFailed(ctx context.Context, id uuid.UUID, reason string, response []byte) error

	// Finalize moves a non-terminal payment to the given terminal status and,
	// in the same transaction, moves the attached booking to bookingStatus.
	// Returns ErrPaymentFinalized if the payment is already terminal.
	Finalize(
		ctx context.Context,
		id uuid.UUID,
		status PaymentStatus,
		bookingStatus BookingStatus,
		reason string,
		response []byte,
	) error
}
