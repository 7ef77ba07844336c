package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/cinetick/booking-platform/api"
	"github.com/cinetick/booking-platform/internal/domain"
)

const defaultPageSize = 20

func (app *Application) CreateBookingHandler(w http.ResponseWriter, r *http.Request) {
	var req api.CreateBookingRequest

	err := app.readJSON(w, r, &req)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.validator.Struct(req); err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	showing, err := app.showingRepo.GetById(r.Context(), req.ShowingID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	// Fail early on the cutoff; the repository re-checks it inside the
	// booking transaction.
	if !showing.AcceptsBookingsAt(time.Now()) {
		app.unprocessableEntityResponse(w, r, domain.ErrBookingClosed)
		return
	}

	booking := &domain.Booking{
		UserID:    app.contextGetUserId(r),
		ShowingID: showing.ID,
		SeatIDs:   req.SeatIDs,
	}

	err = app.bookingRepo.Create(r.Context(), booking)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrBookingClosed),
			errors.Is(err, domain.ErrInvalidSeat),
			errors.Is(err, domain.ErrSeatAuditoriumMismatch):
			app.unprocessableEntityResponse(w, r, err)
		case errors.Is(err, domain.ErrSeatAlreadyBooked):
			app.editConflictResponse(w, r, err)
		case errors.Is(err, domain.ErrSeatContention):
			app.serviceUnavailableResponse(w, r, err)
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	detail, err := app.bookingRepo.GetById(r.Context(), booking.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, toBookingResponse(detail), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetBookingHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readUUIDParam(r, "bookingId")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	detail, err := app.bookingRepo.GetById(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	// Another user's booking is indistinguishable from a missing one.
	if detail.UserID != app.contextGetUserId(r) && !app.contextIsAdmin(r) {
		app.notFoundResponse(w, r)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toBookingResponse(detail), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ListBookingsHandler(w http.ResponseWriter, r *http.Request) {
	params := api.BookingListParams{
		Page:     readQueryInt(r, "page", 1),
		PageSize: readQueryInt(r, "page_size", defaultPageSize),
	}

	if err := app.validator.Struct(params); err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	filter := domain.BookingFilter{UserID: app.contextGetUserId(r)}
	if app.contextIsAdmin(r) {
		filter.UserID = 0
	}

	pagination := domain.Pagination{Page: params.Page, PageSize: params.PageSize}

	summaries, metadata, err := app.bookingRepo.GetSummaries(r.Context(), filter, pagination)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.BookingListResponse{
		Bookings: make([]api.BookingSummary, 0, len(summaries)),
		Metadata: api.Metadata{
			CurrentPage:  metadata.CurrentPage,
			FirstPage:    metadata.FirstPage,
			LastPage:     metadata.LastPage,
			PageSize:     metadata.PageSize,
			TotalRecords: metadata.TotalRecords,
		},
	}

	for _, s := range summaries {
		resp.Bookings = append(resp.Bookings, api.BookingSummary{
			Id:          s.ID.String(),
			Status:      string(s.Status),
			TotalMoney:  s.TotalMoney,
			MovieTitle:  s.MovieTitle,
			TheaterName: s.TheaterName,
			StartsAt:    s.StartsAt,
			SeatCount:   s.SeatCount,
			CreatedAt:   s.CreatedAt,
		})
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toBookingResponse(detail *domain.BookingDetail) api.BookingResponse {
	seats := make([]api.BookingSeat, 0, len(detail.Seats))
	for _, seat := range detail.Seats {
		seats = append(seats, api.BookingSeat{
			Row:    seat.Row,
			Number: seat.Number,
			Type:   seat.Type,
		})
	}

	return api.BookingResponse{
		Id:             detail.ID.String(),
		Status:         string(detail.Status),
		TotalMoney:     detail.TotalMoney,
		ShowingId:      detail.ShowingID,
		MovieTitle:     detail.MovieTitle,
		TheaterName:    detail.TheaterName,
		AuditoriumName: detail.AuditoriumName,
		StartsAt:       detail.StartsAt,
		Seats:          seats,
		CreatedAt:      detail.CreatedAt,
	}
}
