package app

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/cinetick/booking-platform/api"
	"github.com/cinetick/booking-platform/internal/domain"
	"github.com/cinetick/booking-platform/internal/payment"
)

func (app *Application) InitiatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req api.InitiatePaymentRequest

	err := app.readJSON(w, r, &req)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.validator.Struct(req); err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	bookingID, err := uuid.Parse(req.BookingId)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("booking_id must be a valid UUID"))
		return
	}

	result, err := app.payments.Initiate(r.Context(), req.Gateway, bookingID, app.contextGetUserId(r))
	if err != nil {
		var providerErr *domain.ProviderError

		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, payment.ErrBookingNotPayable):
			app.editConflictResponse(w, r, err)
		case errors.Is(err, payment.ErrUnknownGateway):
			app.unprocessableEntityResponse(w, r, err)
		case errors.As(err, &providerErr):
			app.badGatewayResponse(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	resp := api.InitiatePaymentResponse{
		PaymentId:   result.Payment.ID.String(),
		Status:      string(result.Payment.Status),
		RedirectUrl: result.RedirectURL,
	}

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) PaymentCallbackHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readUUIDParam(r, "paymentId")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	callback, err := readCallbackData(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	result, err := app.payments.HandleCallback(r.Context(), id, callback)
	if err != nil {
		var providerErr *domain.ProviderError

		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.As(err, &providerErr):
			app.badGatewayResponse(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	resp := api.PaymentCallbackResponse{
		PaymentId: result.Payment.ID.String(),
		Status:    string(result.Payment.Status),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
