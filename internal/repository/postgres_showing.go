package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cinetick/booking-platform/internal/domain"
)

type PostgresShowingRepository struct {
	db *pgxpool.Pool
}

func NewPostgresShowingRepository(db *pgxpool.Pool) *PostgresShowingRepository {
	return &PostgresShowingRepository{
		db: db,
	}
}

func (p *PostgresShowingRepository) GetById(ctx context.Context, id int) (*domain.Showing, error) {
	query := `
		SELECT s.id, s.auditorium_id, a.theater_id, m.id, m.title, s.starts_at, s.price
		FROM showings s
		JOIN auditoriums a ON a.id = s.auditorium_id
		JOIN movies m ON m.id = s.movie_id
		WHERE s.id = $1
	`

	var showing domain.Showing

	err := p.db.QueryRow(ctx, query, id).Scan(
		&showing.ID,
		&showing.AuditoriumID,
		&showing.TheaterID,
		&showing.MovieID,
		&showing.MovieTitle,
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
