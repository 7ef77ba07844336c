package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cinetick/booking-platform/internal/domain"
)

type PostgresPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPaymentRepository(db *pgxpool.Pool) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{
		db: db,
	}
}

func (p *PostgresPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	payment.ID = uuid.New()

	query := `
		INSERT INTO payments (id, booking_id, gateway, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	return p.db.QueryRow(
		ctx,
		query,
		payment.ID,
		payment.BookingID,
		payment.Gateway,
		payment.Amount,
		payment.Currency,
		payment.Status,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)
}

func (p *PostgresPaymentRepository) GetById(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `
		SELECT id, booking_id, gateway, gateway_transaction_id, gateway_response,
		       amount, currency, status, failure_reason, created_at, updated_at
		FROM payments
		WHERE id = $1
	`

	var payment domain.Payment

	err := p.db.QueryRow(ctx, query, id).Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.Gateway,
		&payment.TransactionID,
		&payment.GatewayResponse,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.FailureReason,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &payment, nil
}

func (p *PostgresPaymentRepository) MarkInitiated(ctx context.Context, id uuid.UUID, transactionID string, response []byte) error {
	query := `
		UPDATE payments
		SET status = 'Pending', gateway_transaction_id = $2, gateway_response = $3, updated_at = now()
		WHERE id = $1 AND status = 'Unpaid'
	`

	tag, err := p.db.Exec(ctx, query, id, transactionID, response)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return p.staleUpdateErr(ctx, id)
	}

	return nil
}

func (p *PostgresPaymentRepository) MarkInitiationFailed(ctx context.Context, id uuid.UUID, reason string, response []byte) error {
	query := `
		UPDATE payments
		SET status = 'Failed', failure_reason = $2, gateway_response = $3, updated_at = now()
		WHERE id = $1 AND status IN ('Unpaid', 'Pending')
	`

	tag, err := p.db.Exec(ctx, query, id, reason, response)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return p.staleUpdateErr(ctx, id)
	}

	return nil
}

// Finalize writes the terminal payment status and the matching booking status
// in one transaction, so a confirmed booking can never coexist with an unpaid
// payment. The status guard makes redelivered callbacks a no-op at the
// storage layer as well.
//
// The booking update only applies to PENDING bookings. A booking the stale
// sweep cancelled while checkout was still in flight must not be flipped back
// to CONFIRMED, its seats may already belong to someone else. In that case
// the payment still settles and ErrBookingNotConfirmable is returned so the
// caller can flag the money for reconciliation.
func (p *PostgresPaymentRepository) Finalize(
	ctx context.Context,
	id uuid.UUID,
	status domain.PaymentStatus,
	bookingStatus domain.BookingStatus,
	reason string,
	response []byte) error {

	var bookingStale bool

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			UPDATE payments
			SET status = $2, failure_reason = NULLIF($3, ''), gateway_response = COALESCE($4, gateway_response), updated_at = now()
			WHERE id = $1 AND status IN ('Unpaid', 'Pending')
			RETURNING booking_id
		`

		var bookingID *uuid.UUID

		err := tx.QueryRow(ctx, query, id, status, reason, response).Scan(&bookingID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrPaymentFinalized
			}

			return err
		}

		if bookingID == nil {
			return nil
		}

		query = `
			UPDATE bookings
			SET status = $2, updated_at = now()
			WHERE id = $1 AND status = 'Pending'
		`

		tag, err := tx.Exec(ctx, query, *bookingID, bookingStatus)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 && bookingStatus == domain.BookingStatusConfirmed {
			bookingStale = true
		}

		return nil
	})

	if errors.Is(err, domain.ErrPaymentFinalized) {
		// Distinguish a replayed callback from an unknown payment id.
		if _, getErr := p.GetById(ctx, id); errors.Is(getErr, domain.ErrRecordNotFound) {
			return domain.ErrRecordNotFound
		}
	}

	if err != nil {
		return err
	}

	if bookingStale {
		return domain.ErrBookingNotConfirmable
	}

	return nil
}

func (p *PostgresPaymentRepository) staleUpdateErr(ctx context.Context, id uuid.UUID) error {
	_, err := p.GetById(ctx, id)
	if err != nil {
		return err
	}

	return domain.ErrPaymentFinalized
}
