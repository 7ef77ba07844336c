package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/cinetick/booking-platform/api"
	"github.com/cinetick/booking-platform/internal/domain"
	"github.com/cinetick/booking-platform/internal/mocks"
)

type BookingsTestSuite struct {
	suite.Suite
	app         *Application
	showingRepo *mocks.MockShowingRepo
	bookingRepo *mocks.MockBookingRepo
}

func (s *BookingsTestSuite) SetupTest() {
	s.showingRepo = new(mocks.MockShowingRepo)
	s.bookingRepo = new(mocks.MockBookingRepo)
	s.app = newTestApplication(func(a *Application) {
		a.showingRepo = s.showingRepo
		a.bookingRepo = s.bookingRepo
	})
}

func TestBookingsSuite(t *testing.T) {
	suite.Run(t, new(BookingsTestSuite))
}

func (s *BookingsTestSuite) TestCreateBookingHandler() {
	bookingId := uuid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479")
	startsAt := time.Now().Add(2 * time.Hour).Truncate(time.Second).UTC()

	openShowing := &domain.Showing{
		ID:           7,
		AuditoriumID: 3,
		TheaterID:    1,
		MovieID:      12,
		MovieTitle:   "Dune",
		StartsAt:     startsAt,
		Price:        decimal.RequireFromString("12.50"),
	}

	detail := &domain.BookingDetail{
		ID:             bookingId,
		UserID:         1,
		ShowingID:      7,
		Status:         domain.BookingStatusPending,
		TotalMoney:     decimal.RequireFromString("25.00"),
		MovieTitle:     "Dune",
		TheaterName:    "Grand Cinema",
		AuditoriumName: "Hall 1",
		StartsAt:       startsAt,
		Seats: []domain.BookingSeat{
			{Row: "A", Number: 4, Type: "standard"},
			{Row: "A", Number: 5, Type: "standard"},
		},
		CreatedAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name           string
		userId         int
		body           any
		setupMock      func()
		wantStatus     int
		wantErrMessage string
		wantResponse   *api.BookingResponse
	}{
		{
			name:           "unauthenticated",
			userId:         0,
			body:           api.CreateBookingRequest{ShowingID: 7, SeatIDs: []int{41, 42}},
			wantStatus:     http.StatusUnauthorized,
			wantErrMessage: ErrUnauthorized,
		},
		{
			name:           "missing seat ids",
			userId:         1,
			body:           api.CreateBookingRequest{ShowingID: 7},
			wantStatus:     http.StatusUnprocessableEntity,
			wantErrMessage: "is required",
		},
		{
			name:           "duplicate seat ids",
			userId:         1,
			body:           api.CreateBookingRequest{ShowingID: 7, SeatIDs: []int{41, 41}},
			wantStatus:     http.StatusUnprocessableEntity,
			wantErrMessage: "must not contain duplicates",
		},
		{
			name:           "too many seats",
			userId:         1,
			body:           api.CreateBookingRequest{ShowingID: 7, SeatIDs: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}},
			wantStatus:     http.StatusUnprocessableEntity,
			wantErrMessage: "must contain at most 10 items",
		},
		{
			name:   "showing not found",
			userId: 1,
			body:   api.CreateBookingRequest{ShowingID: 99, SeatIDs: []int{41}},
			setupMock: func() {
				s.showingRepo.On("GetById", mock.Anything, 99).Return(nil, domain.ErrRecordNotFound)
			},
			wantStatus:     http.StatusNotFound,
			wantErrMessage: ErrNotFound,
		},
		{
			name:   "booking window closed",
			userId: 1,
			body:   api.CreateBookingRequest{ShowingID: 7, SeatIDs: []int{41}},
			setupMock: func() {
				closed := *openShowing
				closed.StartsAt = time.Now().Add(10 * time.Minute)
				s.showingRepo.On("GetById", mock.Anything, 7).Return(&closed, nil)
			},
			wantStatus:     http.StatusUnprocessableEntity,
			wantErrMessage: domain.ErrBookingClosed.Error(),
		},
		{
			name:   "seat already booked",
			userId: 1,
			body:   api.CreateBookingRequest{ShowingID: 7, SeatIDs: []int{41, 42}},
			setupMock: func() {
				s.showingRepo.On("GetById", mock.Anything, 7).Return(openShowing, nil)
				s.bookingRepo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrSeatAlreadyBooked)
			},
			wantStatus:     http.StatusConflict,
			wantErrMessage: domain.ErrSeatAlreadyBooked.Error(),
		},
		{
			name:   "seat from another auditorium",
			userId: 1,
			body:   api.CreateBookingRequest{ShowingID: 7, SeatIDs: []int{900}},
			setupMock: func() {
				s.showingRepo.On("GetById", mock.Anything, 7).Return(openShowing, nil)
				s.bookingRepo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrSeatAuditoriumMismatch)
			},
			wantStatus:     http.StatusUnprocessableEntity,
			wantErrMessage: domain.ErrSeatAuditoriumMismatch.Error(),
		},
		{
			name:   "lock contention",
			userId: 1,
			body:   api.CreateBookingRequest{ShowingID: 7, SeatIDs: []int{41, 42}},
			setupMock: func() {
				s.showingRepo.On("GetById", mock.Anything, 7).Return(openShowing, nil)
				s.bookingRepo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrSeatContention)
			},
			wantStatus:     http.StatusServiceUnavailable,
			wantErrMessage: ErrUnavailable,
		},
		{
			name:   "database error",
			userId: 1,
			body:   api.CreateBookingRequest{ShowingID: 7, SeatIDs: []int{41, 42}},
			setupMock: func() {
				s.showingRepo.On("GetById", mock.Anything, 7).Return(openShowing, nil)
				s.bookingRepo.On("Create", mock.Anything, mock.Anything).Return(fmt.Errorf("database error"))
			},
			wantStatus:     http.StatusInternalServerError,
			wantErrMessage: ErrInternalServer,
		},
		{
			name:   "successful booking",
			userId: 1,
			body:   api.CreateBookingRequest{ShowingID: 7, SeatIDs: []int{41, 42}},
			setupMock: func() {
				s.showingRepo.On("GetById", mock.Anything, 7).Return(openShowing, nil)
				s.bookingRepo.On("Create", mock.Anything, mock.MatchedBy(func(b *domain.Booking) bool {
					return b.UserID == 1 && b.ShowingID == 7 && len(b.SeatIDs) == 2
				})).Run(func(args mock.Arguments) {
					booking := args.Get(1).(*domain.Booking)
					booking.ID = bookingId
					booking.Status = domain.BookingStatusPending
				}).Return(nil)
				s.bookingRepo.On("GetById", mock.Anything, bookingId).Return(detail, nil)
			},
			wantStatus: http.StatusCreated,
			wantResponse: &api.BookingResponse{
				Id:             bookingId.String(),
				Status:         "Pending",
				TotalMoney:     decimal.RequireFromString("25.00"),
				ShowingId:      7,
				MovieTitle:     "Dune",
				TheaterName:    "Grand Cinema",
				AuditoriumName: "Hall 1",
				StartsAt:       startsAt,
				Seats: []api.BookingSeat{
					{Row: "A", Number: 4, Type: "standard"},
					{Row: "A", Number: 5, Type: "standard"},
				},
				CreatedAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
			},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()

			if tt.setupMock != nil {
				tt.setupMock()
			}

			w, r := executeRequest(s.T(), http.MethodPost, "/bookings", tt.body)
			if tt.userId != 0 {
				r = asUser(r, tt.userId)
			}

			handler := s.app.withIdentity(s.app.requireUser(http.HandlerFunc(s.app.CreateBookingHandler)))
			handler.ServeHTTP(w, r)

			s.Equal(tt.wantStatus, w.Code)

			if tt.wantResponse != nil {
				var response api.BookingResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				s.Require().NoError(err, "Failed to decode response")

				diff := cmp.Diff(tt.wantResponse, &response)
				s.Empty(diff, "Response mismatch (-want +got):\n%s", diff)
			}

			checkErrorResponse(s.T(), w, tt.wantStatus, tt.wantErrMessage)
		})
	}
}

func (s *BookingsTestSuite) TestGetBookingHandler() {
	bookingId := uuid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479")

	detail := &domain.BookingDetail{
		ID:          bookingId,
		UserID:      1,
		ShowingID:   7,
		Status:      domain.BookingStatusConfirmed,
		TotalMoney:  decimal.RequireFromString("12.50"),
		MovieTitle:  "Dune",
		TheaterName: "Grand Cinema",
		Seats:       []domain.BookingSeat{{Row: "B", Number: 2, Type: "vip"}},
	}

	tests := []struct {
		name           string
		userId         int
		role           string
		param          string
		setupMock      func()
		wantStatus     int
		wantErrMessage string
	}{
		{
			name:           "malformed id",
			userId:         1,
			param:          "not-a-uuid",
			wantStatus:     http.StatusNotFound,
			wantErrMessage: ErrNotFound,
		},
		{
			name:   "booking not found",
			userId: 1,
			param:  bookingId.String(),
			setupMock: func() {
				s.bookingRepo.On("GetById", mock.Anything, bookingId).Return(nil, domain.ErrRecordNotFound)
			},
			wantStatus:     http.StatusNotFound,
			wantErrMessage: ErrNotFound,
		},
		{
			name:   "another user's booking looks missing",
			userId: 2,
			param:  bookingId.String(),
			setupMock: func() {
				s.bookingRepo.On("GetById", mock.Anything, bookingId).Return(detail, nil)
			},
			wantStatus:     http.StatusNotFound,
			wantErrMessage: ErrNotFound,
		},
		{
			name:   "owner can read",
			userId: 1,
			param:  bookingId.String(),
			setupMock: func() {
				s.bookingRepo.On("GetById", mock.Anything, bookingId).Return(detail, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "admin can read any booking",
			userId: 2,
			role:   "admin",
			param:  bookingId.String(),
			setupMock: func() {
				s.bookingRepo.On("GetById", mock.Anything, bookingId).Return(detail, nil)
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()

			if tt.setupMock != nil {
				tt.setupMock()
			}

			w, r := executeRequest(s.T(), http.MethodGet, "/bookings/"+tt.param, nil)
			r = asUser(r, tt.userId)
			if tt.role != "" {
				r.Header.Set("X-User-Role", tt.role)
			}
			r = withURLParam(r, "bookingId", tt.param)

			handler := s.app.withIdentity(s.app.requireUser(http.HandlerFunc(s.app.GetBookingHandler)))
			handler.ServeHTTP(w, r)

			s.Equal(tt.wantStatus, w.Code)
			checkErrorResponse(s.T(), w, tt.wantStatus, tt.wantErrMessage)
		})
	}
}

func (s *BookingsTestSuite) TestListBookingsHandler() {
	bookingId := uuid.MustParse("0d4d7b7c-3a71-4f4e-a3cb-0e9a21f0e6ef")
	startsAt := time.Date(2026, 9, 5, 19, 0, 0, 0, time.UTC)

	summaries := []domain.BookingSummary{
		{
			ID:          bookingId,
			Status:      domain.BookingStatusConfirmed,
			TotalMoney:  decimal.RequireFromString("25.00"),
			MovieTitle:  "Dune",
			TheaterName: "Grand Cinema",
			StartsAt:    startsAt,
			SeatCount:   2,
			CreatedAt:   time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		},
	}

	metadata := &domain.Metadata{CurrentPage: 1, FirstPage: 1, LastPage: 1, PageSize: 20, TotalRecords: 1}

	tests := []struct {
		name           string
		userId         int
		role           string
		query          string
		setupMock      func()
		wantStatus     int
		wantErrMessage string
		wantResponse   *api.BookingListResponse
	}{
		{
			name:           "invalid page",
			userId:         1,
			query:          "?page=-1",
			wantStatus:     http.StatusUnprocessableEntity,
			wantErrMessage: "must be greater than 0",
		},
		{
			name:   "database error",
			userId: 1,
			setupMock: func() {
				s.bookingRepo.On("GetSummaries", mock.Anything, domain.BookingFilter{UserID: 1}, domain.Pagination{Page: 1, PageSize: 20}).
					Return(nil, nil, fmt.Errorf("database error"))
			},
			wantStatus:     http.StatusInternalServerError,
			wantErrMessage: ErrInternalServer,
		},
		{
			name:   "scoped to requesting user",
			userId: 1,
			setupMock: func() {
				s.bookingRepo.On("GetSummaries", mock.Anything, domain.BookingFilter{UserID: 1}, domain.Pagination{Page: 1, PageSize: 20}).
					Return(summaries, metadata, nil)
			},
			wantStatus: http.StatusOK,
			wantResponse: &api.BookingListResponse{
				Bookings: []api.BookingSummary{
					{
						Id:          bookingId.String(),
						Status:      "Confirmed",
						TotalMoney:  decimal.RequireFromString("25.00"),
						MovieTitle:  "Dune",
						TheaterName: "Grand Cinema",
						StartsAt:    startsAt,
						SeatCount:   2,
						CreatedAt:   time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
					},
				},
				Metadata: api.Metadata{CurrentPage: 1, FirstPage: 1, LastPage: 1, PageSize: 20, TotalRecords: 1},
			},
		},
		{
			name:   "admin sees all users",
			userId: 9,
			role:   "admin",
			setupMock: func() {
				s.bookingRepo.On("GetSummaries", mock.Anything, domain.BookingFilter{UserID: 0}, domain.Pagination{Page: 1, PageSize: 20}).
					Return(summaries, metadata, nil)
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()

			if tt.setupMock != nil {
				tt.setupMock()
			}

			w, r := executeRequest(s.T(), http.MethodGet, "/bookings"+tt.query, nil)
			r = asUser(r, tt.userId)
			if tt.role != "" {
				r.Header.Set("X-User-Role", tt.role)
			}

			handler := s.app.withIdentity(s.app.requireUser(http.HandlerFunc(s.app.ListBookingsHandler)))
			handler.ServeHTTP(w, r)

			s.Equal(tt.wantStatus, w.Code)

			if tt.wantResponse != nil {
				var response api.BookingListResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				s.Require().NoError(err, "Failed to decode response")

				diff := cmp.Diff(tt.wantResponse, &response)
				s.Empty(diff, "Response mismatch (-want +got):\n%s", diff)
			}

			checkErrorResponse(s.T(), w, tt.wantStatus, tt.wantErrMessage)
		})
	}
}
