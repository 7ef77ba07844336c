// The notifier worker consumes booking confirmation events from RabbitMQ and
// delivers confirmation emails over SMTP. Delivery is at-least-once; a user
// may receive a duplicate email after a redelivery, which is acceptable.
package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cinetick/booking-platform/internal/mailer"
	"github.com/cinetick/booking-platform/internal/notifier"
)

const confirmationTemplate = "booking_confirmation.tmpl"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := run(logger); err != nil {
		logger.Error("notifier worker terminated", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	_ = godotenv.Load()

	conn, err := amqp.Dial(os.Getenv("RABBIT_URL"))
	if err != nil {
		return err
	}
	defer conn.Close()

	smtpPort, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		smtpPort = 25
	}

	smtpMailer := mailer.NewSMTPMailer(
		os.Getenv("SMTP_HOST"),
		smtpPort,
		os.Getenv("SMTP_USERNAME"),
		os.Getenv("SMTP_PASSWORD"),
		os.Getenv("SMTP_SENDER"),
	)

	logger.Info("notifier worker started", "queue", notifier.BookingConfirmedQueue)

	return notifier.Consume(conn, logger, func(ctx context.Context, confirmation notifier.BookingConfirmation) error {
		err := smtpMailer.Send(confirmation.Email, confirmationTemplate, confirmation)
		if err != nil {
			return err
		}

		logger.Info("sent booking confirmation", "booking_id", confirmation.BookingID)
		return nil
	})
}
