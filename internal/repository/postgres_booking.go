package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cinetick/booking-platform/internal/domain"
)

// seatLockTimeout bounds how long one booking transaction may wait on seat
// row locks. A timeout surfaces as domain.ErrSeatContention and is retryable
// by the caller.
const seatLockTimeout = 3 * time.Second

type PostgresBookingRepository struct {
	db *pgxpool.Pool

	// now is swappable in tests; production uses time.Now.
	now func() time.Time
}

func NewPostgresBookingRepository(db *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{
		db:  db,
		now: time.Now,
	}
}

// Create runs the whole seat-booking protocol in one transaction:
//
//  1. load the showing and reject past the booking cutoff
//  2. fast-path conflict check against active bookings
//  3. lock the requested seat rows in ascending id order (auditorium rows
//     taken shared, so the catalog cannot shift underneath)
//  4. re-validate seat existence and auditorium ancestry under lock
//  5. re-check conflicts now that concurrent writers are serialized
//  6. insert the booking and its seat associations
//
// Nothing is visible to other transactions until commit.
func (p *PostgresBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	if len(booking.SeatIDs) == 0 {
		return domain.ErrInvalidSeat
	}

	seatIDs := append([]int(nil), booking.SeatIDs...)
	slices.Sort(seatIDs)
	seatIDs = slices.Compact(seatIDs)

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", seatLockTimeout.Milliseconds()))
		if err != nil {
			return err
		}

		showing, err := getShowingTx(ctx, tx, booking.ShowingID)
		if err != nil {
			return err
		}

		if !showing.AcceptsBookingsAt(p.now()) {
			return domain.ErrBookingClosed
		}

		booked, err := hasActiveSeatConflict(ctx, tx, booking.ShowingID, seatIDs)
		if err != nil {
			return err
		}
		if booked {
			return domain.ErrSeatAlreadyBooked
		}

		if err := lockAndValidateSeats(ctx, tx, seatIDs, showing); err != nil {
			return err
		}

		// The fast-path check ran before we held the locks, so a competing
		// transaction may have committed in between. Repeat it now that the
		// seat locks serialize all writers on these rows.
		booked, err = hasActiveSeatConflict(ctx, tx, booking.ShowingID, seatIDs)
		if err != nil {
			return err
		}
		if booked {
			return domain.ErrSeatAlreadyBooked
		}

		booking.ID = uuid.New()
		booking.Status = domain.BookingStatusPending
		booking.TotalMoney = domain.TotalMoney(showing.Price, len(seatIDs))
		booking.SeatIDs = seatIDs

		query := `
			INSERT INTO bookings (id, user_id, showing_id, status, total_money)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at, updated_at
		`

		err = tx.QueryRow(
			ctx,
			query,
			booking.ID,
			booking.UserID,
			booking.ShowingID,
			booking.Status,
			booking.TotalMoney,
		).Scan(&booking.CreatedAt, &booking.UpdatedAt)
		if err != nil {
			return err
		}

		rows := make([][]any, 0, len(seatIDs))
		for _, seatID := range seatIDs {
			rows = append(rows, []any{booking.ID, booking.ShowingID, seatID})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"booking_seats"},
			[]string{"booking_id", "showing_id", "seat_id"},
			pgx.CopyFromRows(rows),
		)

		return err
	})

	return mapLockErr(err)
}

func getShowingTx(ctx context.Context, tx pgx.Tx, showingID int) (*domain.Showing, error) {
	query := `
		SELECT s.id, s.auditorium_id, a.theater_id, s.starts_at, s.price
		FROM showings s
		JOIN auditoriums a ON a.id = s.auditorium_id
		WHERE s.id = $1
	`

	var showing domain.Showing

	err := tx.QueryRow(ctx, query, showingID).Scan(
		&showing.ID,
		&showing.AuditoriumID,
		&showing.TheaterID,
		&showing.StartsAt,
		&showing.Price,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &showing, nil
}

func hasActiveSeatConflict(ctx context.Context, tx pgx.Tx, showingID int, seatIDs []int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM booking_seats bs
			JOIN bookings b ON b.id = bs.booking_id
			WHERE bs.showing_id = $1
			  AND bs.seat_id = ANY($2)
			  AND b.status IN ('Pending', 'Confirmed')
		)
	`

	var booked bool
	err := tx.QueryRow(ctx, query, showingID, seatIDs).Scan(&booked)

	return booked, err
}

// lockAndValidateSeats takes exclusive locks on the requested seat rows,
// ordered by seat id so overlapping requests always collide instead of
// deadlocking, and shared locks on their auditorium ancestry. Under lock it
// confirms every seat exists, is active, and belongs to the showing's
// auditorium.
func lockAndValidateSeats(ctx context.Context, tx pgx.Tx, seatIDs []int, showing *domain.Showing) error {
	query := `
		SELECT s.id, s.auditorium_id, a.theater_id
		FROM seats s
		JOIN auditoriums a ON a.id = s.auditorium_id
		WHERE s.id = ANY($1) AND s.is_active
		ORDER BY s.id
		FOR UPDATE OF s
		FOR SHARE OF a
	`

	rows, err := tx.Query(ctx, query, seatIDs)
	if err != nil {
		return err
	}
	defer rows.Close()

	locked := 0

	for rows.Next() {
		var seatID, auditoriumID, theaterID int

		if err := rows.Scan(&seatID, &auditoriumID, &theaterID); err != nil {
			return err
		}

		if auditoriumID != showing.AuditoriumID || theaterID != showing.TheaterID {
			return domain.ErrSeatAuditoriumMismatch
		}

		locked++
	}

	if err := rows.Err(); err != nil {
		return err
	}

	if locked != len(seatIDs) {
		return domain.ErrInvalidSeat
	}

	return nil
}

// mapLockErr translates lock wait timeouts and deadlocks into the retryable
// contention error. Everything else passes through untouched.
func mapLockErr(err error) error {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.LockNotAvailable, pgerrcode.DeadlockDetected:
			return domain.ErrSeatContention
		}
	}

	return err
}

func (p *PostgresBookingRepository) GetById(ctx context.Context, id uuid.UUID) (*domain.BookingDetail, error) {
	query := `
		SELECT
			b.id,
			b.user_id,
			b.showing_id,
			b.status,
			b.total_money,
			m.title,
			t.name,
			a.name,
			s.starts_at,
			b.created_at
		FROM bookings b
		JOIN showings s ON s.id = b.showing_id
		JOIN movies m ON m.id = s.movie_id
		JOIN auditoriums a ON a.id = s.auditorium_id
		JOIN theaters t ON t.id = a.theater_id
		WHERE b.id = $1
	`

	var detail domain.BookingDetail

	err := p.db.QueryRow(ctx, query, id).Scan(
		&detail.ID,
		&detail.UserID,
		&detail.ShowingID,
		&detail.Status,
		&detail.TotalMoney,
		&detail.MovieTitle,
		&detail.TheaterName,
		&detail.AuditoriumName,
		&detail.StartsAt,
		&detail.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	seats, err := p.retrieveBookingSeats(ctx, id)
	if err != nil {
		return nil, err
	}

	detail.Seats = seats

	return &detail, nil
}

func (p *PostgresBookingRepository) retrieveBookingSeats(ctx context.Context, bookingID uuid.UUID) ([]domain.BookingSeat, error) {
	query := `
		SELECT s.seat_row, s.seat_number, s.seat_type
		FROM booking_seats bs
		JOIN seats s ON s.id = bs.seat_id
		WHERE bs.booking_id = $1
		ORDER BY s.seat_row, s.seat_number
	`

	rows, err := p.db.Query(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.BookingSeat, 0)

	for rows.Next() {
		var seat domain.BookingSeat

		if err := rows.Scan(&seat.Row, &seat.Number, &seat.Type); err != nil {
			return nil, err
		}

		seats = append(seats, seat)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}

func (p *PostgresBookingRepository) GetSummaries(
	ctx context.Context,
	filter domain.BookingFilter,
	pagination domain.Pagination) ([]domain.BookingSummary, *domain.Metadata, error) {

	query := `
		SELECT
			COUNT(*) OVER(),
			b.id,
			b.status,
			b.total_money,
			m.title,
			t.name,
			s.starts_at,
			(SELECT COUNT(*) FROM booking_seats bs WHERE bs.booking_id = b.id),
			b.created_at
		FROM bookings b
		JOIN showings s ON s.id = b.showing_id
		JOIN movies m ON m.id = s.movie_id
		JOIN auditoriums a ON a.id = s.auditorium_id
		JOIN theaters t ON t.id = a.theater_id
		WHERE ($1 = 0 OR b.user_id = $1)
		ORDER BY b.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := p.db.Query(ctx, query, filter.UserID, pagination.Limit(), pagination.Offset())
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	summaries := make([]domain.BookingSummary, 0)
	totalRecords := 0

	for rows.Next() {
		var summary domain.BookingSummary

		err := rows.Scan(
			&totalRecords,
			&summary.ID,
			&summary.Status,
			&summary.TotalMoney,
			&summary.MovieTitle,
			&summary.TheaterName,
			&summary.StartsAt,
			&summary.SeatCount,
			&summary.CreatedAt,
		)
		if err != nil {
			return nil, nil, err
		}

		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	metadata := domain.NewMetadata(totalRecords, pagination.Page, pagination.PageSize)

	return summaries, metadata, nil
}

// CancelStale releases the seats of PENDING bookings whose checkout was
// abandoned: older than the given age with no live payment attached. Bookings
// with a PENDING or PAID payment are left for the callback flow to settle. An
// UNPAID payment younger than the cutoff means initiation is still talking to
// the provider, so the booking is spared too; an UNPAID payment older than
// the cutoff is a crashed initiation and must not pin the seats forever.
func (p *PostgresBookingRepository) CancelStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `
		UPDATE bookings b
		SET status = 'Cancelled', updated_at = now()
		WHERE b.status = 'Pending'
		  AND b.created_at < $1
		  AND NOT EXISTS (
			SELECT 1
			FROM payments p
			WHERE p.booking_id = b.id
			  AND (p.status IN ('Pending', 'Paid') OR (p.status = 'Unpaid' AND p.created_at >= $1))
		  )
	`

	tag, err := p.db.Exec(ctx, query, p.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}
