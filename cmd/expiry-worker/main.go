// The expiry worker sweeps abandoned bookings: PENDING bookings older than
// the TTL with no live payment attached are cancelled, releasing their seats
// back into the pool.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/cinetick/booking-platform/internal/repository"
)

type config struct {
	dsn        string
	interval   time.Duration
	bookingTTL time.Duration
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := run(logger); err != nil {
		logger.Error("expiry worker terminated", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	_ = godotenv.Load()

	cfg := config{
		dsn:        os.Getenv("DB_DSN"),
		interval:   envDuration("SWEEP_INTERVAL", time.Minute),
		bookingTTL: envDuration("BOOKING_TTL", 15*time.Minute),
	}

	db, err := pgxpool.New(context.Background(), cfg.dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		return err
	}

	bookings := repository.NewPostgresBookingRepository(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("expiry worker started", "interval", cfg.interval, "booking_ttl", cfg.bookingTTL)

	ticker := time.NewTicker(cfg.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("expiry worker stopped")
			return nil
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

			cancelled, err := bookings.CancelStale(sweepCtx, cfg.bookingTTL)
			cancel()

			if err != nil {
				logger.Error("sweep failed", "error", err)
				continue
			}

			if cancelled > 0 {
				logger.Info("cancelled stale bookings", "count", cancelled)
			}
		}
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}

	return d
}
