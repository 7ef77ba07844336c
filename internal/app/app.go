package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxstd "github.com/jackc/pgx/v5/stdlib"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/riandyrn/otelchi"

	"github.com/cinetick/booking-platform/internal/domain"
	"github.com/cinetick/booking-platform/internal/notifier"
	"github.com/cinetick/booking-platform/internal/payment"
	"github.com/cinetick/booking-platform/internal/repository"
	appvalidator "github.com/cinetick/booking-platform/internal/validator"
	"github.com/cinetick/booking-platform/internal/vcs"
	"github.com/cinetick/booking-platform/migrations"
)

var (
	version = vcs.Version()
)

type Application struct {
	config    Config
	logger    *slog.Logger
	db        *pgxpool.Pool
	redis     redis.UniversalClient
	validator *validator.Validate

	showingRepo domain.ShowingRepository
	bookingRepo domain.BookingRepository
	paymentRepo domain.PaymentRepository
	userRepo    domain.UserRepository

	payments *payment.Service
	notifier notifier.Notifier
}

type Config struct {
	Port int
	Env  string

	DB struct {
		DSN          string
		MaxOpenConns int
		MaxIdleTime  time.Duration
		Migrate      bool
	}

	Redis struct {
		URL          string
		MaxOpenConns int
		MaxIdleConns int
		MaxIdleTime  time.Duration
	}

	Rabbit struct {
		URL string
	}

	Payment struct {
		Currency   string
		Gateways   string
		SSLCommerz payment.SSLCommerzConfig
		Stripe     payment.StripeConfig
	}

	OtelCollectorUrl string
}

func Run() error {
	var cfg Config

	flag.IntVar(&cfg.Port, "port", 3000, "server port")
	flag.StringVar(&cfg.Env, "env", "dev", "Environment (dev|staging|prod)")

	flag.StringVar(&cfg.DB.DSN, "db-dsn", "", "PostgreSQL DSN")
	flag.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")
	flag.BoolVar(&cfg.DB.Migrate, "db-migrate", false, "Apply schema migrations on startup")

	flag.StringVar(&cfg.Redis.URL, "redis-url", "", "Redis URL")
	flag.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	flag.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	flag.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")

	flag.StringVar(&cfg.Rabbit.URL, "rabbit-url", "", "RabbitMQ URL for confirmation messages")

	flag.StringVar(&cfg.Payment.Currency, "payment-currency", "USD", "Currency charged by payment gateways")
	flag.StringVar(&cfg.Payment.Gateways, "payment-gateways", "sslcommerz", "Comma-separated list of enabled payment gateways")
	flag.StringVar(&cfg.Payment.SSLCommerz.StoreID, "sslcommerz-store-id", "", "SSLCommerz store id")
	flag.StringVar(&cfg.Payment.SSLCommerz.StorePassword, "sslcommerz-store-password", "", "SSLCommerz store password")
	flag.BoolVar(&cfg.Payment.SSLCommerz.Sandbox, "sslcommerz-sandbox", true, "Use the SSLCommerz sandbox endpoints")
	flag.StringVar(&cfg.Payment.SSLCommerz.CallbackBaseURL, "sslcommerz-callback-base-url", "http://localhost:3000", "Public base URL for SSLCommerz callbacks")
	flag.StringVar(&cfg.Payment.Stripe.SecretKey, "stripe-key", "", "Stripe secret key")
	flag.StringVar(&cfg.Payment.Stripe.SuccessURL, "stripe-success-url", "https://example.com/success.html", "Stripe payment success page")
	flag.StringVar(&cfg.Payment.Stripe.CancelURL, "stripe-cancel-url", "https://example.com/failure.html", "Stripe payment failure page")

	flag.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", "", "OpenTelemetry collector URL")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	app, cleanup, err := NewApplication(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", "error", err)
		return err
	}
	defer cleanup()

	shutdownTelemetry, err := app.InitTelemetry()
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		return err
	}
	defer shutdownTelemetry(context.Background())

	return app.run()
}

// NewApplication wires the full dependency graph. The returned cleanup closes
// every connection it opened. Gateway construction happens here so that
// missing credentials abort startup instead of failing per-request.
func NewApplication(cfg Config, logger *slog.Logger) (*Application, func(), error) {
	db, err := newDatabasePool(cfg)
	if err != nil {
		return nil, nil, err
	}

	closers := []func(){db.Close}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.DB.Migrate {
		if err := applyMigrations(cfg.DB.DSN); err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	redisClient, err := newRedisClient(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	var bookingNotifier notifier.Notifier

	if cfg.Rabbit.URL != "" {
		conn, err := amqp.Dial(cfg.Rabbit.URL)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = conn.Close() })

		bookingNotifier, err = notifier.NewRabbitMQNotifier(conn)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
	} else {
		logger.Warn("rabbit-url not set, booking confirmations will not be sent")
	}

	gatewayNames := strings.Split(cfg.Payment.Gateways, ",")
	for i := range gatewayNames {
		gatewayNames[i] = strings.TrimSpace(gatewayNames[i])
	}

	gateways, err := payment.NewGateways(gatewayNames, payment.GatewayConfigs{
		SSLCommerz: cfg.Payment.SSLCommerz,
		Stripe:     cfg.Payment.Stripe,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	showingRepo := repository.NewPostgresShowingRepository(db)
	bookingRepo := repository.NewPostgresBookingRepository(db)
	paymentRepo := repository.NewPostgresPaymentRepository(db)
	userRepo := repository.NewPostgresUserRepository(db)

	paymentService := payment.NewService(
		logger,
		gateways,
		paymentRepo,
		bookingRepo,
		userRepo,
		bookingNotifier,
		redisClient,
		cfg.Payment.Currency,
	)

	app := &Application{
		config:      cfg,
		logger:      logger,
		db:          db,
		redis:       redisClient,
		validator:   appvalidator.NewValidator(),
		showingRepo: showingRepo,
		bookingRepo: bookingRepo,
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		payments:    paymentService,
		notifier:    bookingNotifier,
	}

	return app, cleanup, nil
}

func applyMigrations(dsn string) error {
	config, err := pgx.ParseConfig(dsn)
	if err != nil {
		return err
	}

	db := pgxstd.OpenDB(*config)
	defer db.Close()

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return err
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", source, "pgx", driver)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

func newRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := rdb.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	if err := redisotel.InstrumentTracing(rdb); err != nil {
		return nil, err
	}

	return rdb, nil
}

func newDatabasePool(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *Application) run() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)
		if err != nil {
			shutdownError <- err
		}

		shutdownError <- nil
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)

	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(otelchi.Middleware("cinetick-api", otelchi.WithChiRoutes(r)))
	r.Use(app.recoverPanic)
	r.Use(app.withIdentity)

	r.Get("/healthz", app.GetHealth)

	r.Route("/bookings", func(r chi.Router) {
		r.Use(app.requireUser)

		r.Post("/", app.CreateBookingHandler)
		r.Get("/", app.ListBookingsHandler)
		r.Get("/{bookingId}", app.GetBookingHandler)
	})

	r.Route("/payments", func(r chi.Router) {
		r.With(app.requireUser).Post("/", app.InitiatePaymentHandler)

		// The IPN endpoint is called by the provider, not the user.
		r.Post("/{paymentId}/ipn", app.PaymentCallbackHandler)
	})

	return r
}
