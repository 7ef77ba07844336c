package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cinetick/booking-platform/internal/domain"
	"github.com/cinetick/booking-platform/internal/notifier"
)

var (
	ErrUnknownGateway    = errors.New("unknown payment gateway")
	ErrBookingNotPayable = errors.New("booking is not awaiting payment")
)

// callbackGuardTTL bounds the redis replay-suppression key. It only needs to
// cover the burst of duplicate IPN deliveries; the durable idempotency check
// is the payment's own terminal status.
const callbackGuardTTL = time.Minute

// Service drives a payment through its lifecycle: initiate against the
// gateway, settle on the provider callback, and reconcile the booking status
// accordingly. It is the only writer of payment state transitions.
type Service struct {
	logger   *slog.Logger
	gateways map[string]domain.PaymentGateway
	payments domain.PaymentRepository
	bookings domain.BookingRepository
	users    domain.UserRepository
	notifier notifier.Notifier
	redis    redis.UniversalClient
	currency string
}

func NewService(
	logger *slog.Logger,
	gateways map[string]domain.PaymentGateway,
	payments domain.PaymentRepository,
	bookings domain.BookingRepository,
	users domain.UserRepository,
	n notifier.Notifier,
	redisClient redis.UniversalClient,
	currency string) *Service {

	return &Service{
		logger:   logger,
		gateways: gateways,
		payments: payments,
		bookings: bookings,
		users:    users,
		notifier: n,
		redis:    redisClient,
		currency: currency,
	}
}

type InitiationResult struct {
	Payment     *domain.Payment
	RedirectURL string
}

// Initiate creates the payment record and opens a session with the gateway.
// On provider success the payment moves to PENDING and the redirect URL is
// returned; on provider failure it moves to FAILED and the booking is left
// untouched, still holding its seats until the cutoff or the stale sweep.
func (s *Service) Initiate(ctx context.Context, gatewayName string, bookingID uuid.UUID, userID int) (*InitiationResult, error) {
	gateway, ok := s.gateways[gatewayName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGateway, gatewayName)
	}

	booking, err := s.bookings.GetById(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.UserID != userID {
		return nil, domain.ErrRecordNotFound
	}

	if booking.Status != domain.BookingStatusPending {
		return nil, ErrBookingNotPayable
	}

	user, err := s.users.GetById(ctx, userID)
	if err != nil {
		return nil, err
	}

	paymentRecord := &domain.Payment{
		BookingID: &booking.ID,
		Gateway:   gateway.Name(),
		Amount:    booking.TotalMoney,
		Currency:  s.currency,
		Status:    domain.PaymentStatusUnpaid,
	}

	if err := s.payments.Create(ctx, paymentRecord); err != nil {
		return nil, err
	}

	customer := domain.CustomerInfo{
		Name:  user.Name,
		Email: user.Email,
		Phone: user.Phone,
	}

	result, err := gateway.InitializePayment(ctx, paymentRecord.ID.String(), paymentRecord.Amount, paymentRecord.Currency, customer)
	if err != nil {
		// Record the failure straight away so a crash cannot leave the
		// payment looking open.
		reason := "payment provider unavailable"

		var providerErr *domain.ProviderError
		if errors.As(err, &providerErr) {
			reason = providerErr.Reason
		}

		if markErr := s.payments.MarkInitiationFailed(ctx, paymentRecord.ID, reason, nil); markErr != nil {
			s.logger.Error("failed to record payment initiation failure", "payment_id", paymentRecord.ID, "error", markErr)
		}

		return nil, err
	}

	if !result.Success {
		if markErr := s.payments.MarkInitiationFailed(ctx, paymentRecord.ID, result.FailReason, result.Raw); markErr != nil {
			s.logger.Error("failed to record payment initiation failure", "payment_id", paymentRecord.ID, "error", markErr)
		}

		return nil, &domain.ProviderError{Gateway: gateway.Name(), Reason: result.FailReason}
	}

	if err := s.payments.MarkInitiated(ctx, paymentRecord.ID, result.TransactionID, result.Raw); err != nil {
		return nil, err
	}

	paymentRecord.Status = domain.PaymentStatusPending
	paymentRecord.TransactionID = &result.TransactionID

	return &InitiationResult{Payment: paymentRecord, RedirectURL: result.RedirectURL}, nil
}

type CallbackResult struct {
	Payment  *domain.Payment
	Replayed bool
}

// HandleCallback settles a payment from a provider IPN/webhook delivery.
// Deliveries may repeat; once the payment is terminal every redelivery is a
// no-op returning the same observable result. Explicit FAILED/CANCELLED
// provider statuses skip verification, everything else is verified against
// the gateway before the transition is applied.
func (s *Service) HandleCallback(ctx context.Context, paymentID uuid.UUID, callback domain.CallbackData) (*CallbackResult, error) {
	paymentRecord, err := s.payments.GetById(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if paymentRecord.Status.Terminal() {
		return &CallbackResult{Payment: paymentRecord, Replayed: true}, nil
	}

	if replayed := s.guardCallback(ctx, paymentID); replayed {
		current, err := s.payments.GetById(ctx, paymentID)
		if err != nil {
			return nil, err
		}

		return &CallbackResult{Payment: current, Replayed: true}, nil
	}

	switch strings.ToUpper(callback["status"]) {
	case "FAILED":
		err = s.finalize(ctx, paymentRecord, domain.PaymentStatusFailed, domain.BookingStatusCancelled, callbackReason(callback), nil)
	case "CANCELLED":
		err = s.finalize(ctx, paymentRecord, domain.PaymentStatusCancelled, domain.BookingStatusCancelled, callbackReason(callback), nil)
	default:
		err = s.verifyAndSettle(ctx, paymentRecord, callback)
	}

	if errors.Is(err, domain.ErrPaymentFinalized) {
		current, getErr := s.payments.GetById(ctx, paymentID)
		if getErr != nil {
			return nil, getErr
		}

		return &CallbackResult{Payment: current, Replayed: true}, nil
	}

	if err != nil {
		// The payment is still non-terminal. Release the guard so the
		// provider's next redelivery re-attempts settlement instead of
		// being swallowed as a replay for the rest of the TTL.
		s.releaseCallbackGuard(ctx, paymentID)
		return nil, err
	}

	return &CallbackResult{Payment: paymentRecord}, nil
}

func (s *Service) verifyAndSettle(ctx context.Context, paymentRecord *domain.Payment, callback domain.CallbackData) error {
	gateway, ok := s.gateways[paymentRecord.Gateway]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGateway, paymentRecord.Gateway)
	}

	var transactionID string
	if paymentRecord.TransactionID != nil {
		transactionID = *paymentRecord.TransactionID
	}

	result, err := gateway.VerifyPayment(ctx, transactionID, paymentRecord.Amount, callback)
	if err != nil {
		// The payment stays PENDING: a well-defined non-terminal state a
		// reconciliation pass can pick up.
		return err
	}

	if !result.Success {
		return s.finalize(ctx, paymentRecord, domain.PaymentStatusFailed, domain.BookingStatusCancelled, "payment verification failed", result.Raw)
	}

	err = s.finalize(ctx, paymentRecord, domain.PaymentStatusPaid, domain.BookingStatusConfirmed, "", result.Raw)
	if errors.Is(err, domain.ErrBookingNotConfirmable) {
		// The stale sweep cancelled the booking while checkout was in
		// flight and its seats may be sold again. The money is captured, so
		// the payment stays PAID, but the booking must not be resurrected.
		paymentRecord.Status = domain.PaymentStatusPaid
		s.logger.Error("payment settled against a booking that is no longer pending, refund reconciliation required",
			"payment_id", paymentRecord.ID, "booking_id", paymentRecord.BookingID)
		return nil
	}
	if err != nil {
		return err
	}

	s.sendConfirmation(ctx, paymentRecord)

	return nil
}

func (s *Service) finalize(
	ctx context.Context,
	paymentRecord *domain.Payment,
	status domain.PaymentStatus,
	bookingStatus domain.BookingStatus,
	reason string,
	response []byte) error {

	err := s.payments.Finalize(ctx, paymentRecord.ID, status, bookingStatus, reason, response)
	if err != nil {
		return err
	}

	paymentRecord.Status = status
	if reason != "" {
		paymentRecord.FailureReason = &reason
	}

	return nil
}

// sendConfirmation enqueues the confirmation message. The booking is already
// confirmed at this point; a notification failure is logged and swallowed,
// never rolled back into the payment flow.
func (s *Service) sendConfirmation(ctx context.Context, paymentRecord *domain.Payment) {
	if s.notifier == nil || paymentRecord.BookingID == nil {
		return
	}

	booking, err := s.bookings.GetById(ctx, *paymentRecord.BookingID)
	if err != nil {
		s.logger.Error("failed to load booking for confirmation message", "booking_id", *paymentRecord.BookingID, "error", err)
		return
	}

	user, err := s.users.GetById(ctx, booking.UserID)
	if err != nil {
		s.logger.Error("failed to load user for confirmation message", "user_id", booking.UserID, "error", err)
		return
	}

	confirmation := notifier.BookingConfirmation{
		BookingID:   booking.ID.String(),
		Email:       user.Email,
		MovieTitle:  booking.MovieTitle,
		TheaterName: booking.TheaterName,
		StartsAt:    booking.StartsAt,
		ConfirmedAt: time.Now().UTC(),
	}

	if err := s.notifier.SendBookingConfirmation(ctx, confirmation); err != nil {
		s.logger.Error("failed to enqueue booking confirmation", "booking_id", booking.ID, "error", err)
	}
}

// guardCallback suppresses concurrent duplicate deliveries with a short-lived
// redis key. Redis being down must never block settlement, so errors only
// log.
func (s *Service) guardCallback(ctx context.Context, paymentID uuid.UUID) bool {
	if s.redis == nil {
		return false
	}

	ok, err := s.redis.SetNX(ctx, callbackGuardKey(paymentID), 1, callbackGuardTTL).Result()
	if err != nil {
		s.logger.Warn("callback replay guard unavailable", "payment_id", paymentID, "error", err)
		return false
	}

	return !ok
}

func (s *Service) releaseCallbackGuard(ctx context.Context, paymentID uuid.UUID) {
	if s.redis == nil {
		return
	}

	if err := s.redis.Del(ctx, callbackGuardKey(paymentID)).Err(); err != nil {
		s.logger.Warn("failed to release callback replay guard", "payment_id", paymentID, "error", err)
	}
}

func callbackGuardKey(paymentID uuid.UUID) string {
	return fmt.Sprintf("payment_callback:%s", paymentID)
}

func callbackReason(callback domain.CallbackData) string {
	if reason := callback["error"]; reason != "" {
		return reason
	}

	return "payment was not completed"
}
