package integration_test

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"

	"github.com/cinetick/booking-platform/internal/repository"
)

type BaseSuite struct {
	suite.Suite
	dbContainer *PostgresContainer
	db          *pgxpool.Pool

	bookings *repository.PostgresBookingRepository
	showings *repository.PostgresShowingRepository
	payments *repository.PostgresPaymentRepository
	users    *repository.PostgresUserRepository
}

func (s *BaseSuite) SetupSuite() {
	ctx := context.Background()

	container, err := getDbContainer(ctx)
	if err != nil {
		log.Printf("failed to start container: %s", err)
		s.T().Fatal(err)
	}
	s.dbContainer = container

	pool, err := pgxpool.New(ctx, container.ConnectionString)
	if err != nil {
		s.T().Fatal(err)
	}
	s.db = pool

	s.bookings = repository.NewPostgresBookingRepository(pool)
	s.showings = repository.NewPostgresShowingRepository(pool)
	s.payments = repository.NewPostgresPaymentRepository(pool)
	s.users = repository.NewPostgresUserRepository(pool)
}

func (s *BaseSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.dbContainer != nil {
		if err := testcontainers.TerminateContainer(s.dbContainer.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
}

// SetupTest truncates everything between tests so fixtures don't leak.
func (s *BaseSuite) SetupTest() {
	_, err := s.db.Exec(context.Background(),
		`TRUNCATE payments, booking_seats, bookings, showings, seats, auditoriums, theaters, movies, users RESTART IDENTITY CASCADE`)
	s.Require().NoError(err)
}

// fixture is one seeded showing with a block of seats ready to book.
type fixture struct {
	UserID       int
	TheaterID    int
	AuditoriumID int
	ShowingID    int
	SeatIDs      []int
}

// seedShowing creates a theater, an auditorium with seatCount seats, a movie
// and a showing at startsAt priced 12.50.
func (s *BaseSuite) seedShowing(startsAt time.Time, seatCount int) fixture {
	ctx := context.Background()

	var f fixture

	err := s.db.QueryRow(ctx,
		`INSERT INTO users (name, email, phone) VALUES ('Jane Doe', 'jane@example.com', '555-0100') RETURNING id`).
		Scan(&f.UserID)
	s.Require().NoError(err)

	err = s.db.QueryRow(ctx,
		`INSERT INTO theaters (name, location) VALUES ('Grand Cinema', 'Downtown') RETURNING id`).
		Scan(&f.TheaterID)
	s.Require().NoError(err)

	err = s.db.QueryRow(ctx,
		`INSERT INTO auditoriums (theater_id, name) VALUES ($1, 'Hall 1') RETURNING id`, f.TheaterID).
		Scan(&f.AuditoriumID)
	s.Require().NoError(err)

	for i := 0; i < seatCount; i++ {
		var seatID int
		err = s.db.QueryRow(ctx,
			`INSERT INTO seats (auditorium_id, seat_row, seat_number) VALUES ($1, 'A', $2) RETURNING id`,
			f.AuditoriumID, i+1).
			Scan(&seatID)
		s.Require().NoError(err)
		f.SeatIDs = append(f.SeatIDs, seatID)
	}

	var movieID int
	err = s.db.QueryRow(ctx, `INSERT INTO movies (title) VALUES ('Dune') RETURNING id`).Scan(&movieID)
	s.Require().NoError(err)

	err = s.db.QueryRow(ctx,
		`INSERT INTO showings (auditorium_id, movie_id, starts_at, price) VALUES ($1, $2, $3, $4) RETURNING id`,
		f.AuditoriumID, movieID, startsAt, decimal.RequireFromString("12.50")).
		Scan(&f.ShowingID)
	s.Require().NoError(err)

	return f
}

func (s *BaseSuite) addUser(email string) int {
	var id int
	err := s.db.QueryRow(context.Background(),
		`INSERT INTO users (name, email) VALUES ('Test User', $1) RETURNING id`, email).
		Scan(&id)
	s.Require().NoError(err)

	return id
}
