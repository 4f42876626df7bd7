package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/reservo/internal/availability"
	"github.com/gosuda/reservo/internal/booking"
	"github.com/gosuda/reservo/internal/config"
	"github.com/gosuda/reservo/internal/loyalty"
	"github.com/gosuda/reservo/internal/metrics"
	"github.com/gosuda/reservo/internal/notify"
	"github.com/gosuda/reservo/internal/server"
	"github.com/gosuda/reservo/internal/store/postgres"
	redisstore "github.com/gosuda/reservo/internal/store/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// A .env file is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("ignoring unreadable .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Database.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	// Connect to PostgreSQL and apply the schema.
	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	// Connect to Redis.
	pubsub, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer pubsub.Close()

	tenants := redisstore.NewTenantCache(pubsub.Client(), store.Tenants(), cfg.Redis.TenantCacheTTL)

	defaultLoc, err := time.LoadLocation(cfg.Booking.DefaultTimezone)
	if err != nil {
		return fmt.Errorf("default timezone: %w", err)
	}

	rules := loyalty.Rules{
		IndividualThreshold: cfg.Loyalty.IndividualThreshold,
		PackageThreshold:    cfg.Loyalty.PackageThreshold,
		IndividualAmount:    cfg.Loyalty.IndividualAmount,
		PackageAmount:       cfg.Loyalty.PackageAmount,
	}
	if err := rules.Validate(); err != nil {
		return err
	}

	var senders []notify.Sender
	if cfg.Slack.BotToken != "" {
		senders = append(senders, notify.NewSlackSenderFromToken(cfg.Slack.BotToken, cfg.Slack.StaffChannel))
		log.Info().Str("channel", cfg.Slack.StaffChannel).Msg("slack staff notifications enabled")
	}
	notifier := notify.New(senders...)

	metrics.Register()

	engine := availability.NewEngine(tenants, store.Schedule(), cfg.Booking.SlotMinutes, defaultLoc)
	events := booking.NewEvents(pubsub)
	writer := booking.NewWriter(engine, store.Reservations(), events, notifier, booking.Options{
		InitialStatus:  cfg.Booking.InitialStatus,
		MaxAdvanceDays: cfg.Booking.MaxAdvanceDays,
	})
	lifecycle := booking.NewLifecycle(store.Reservations(), loyalty.NewEngine(store.Loyalty(), rules), store.Audit(), events)

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, server.Deps{
		Tenants:      tenants,
		Availability: engine,
		Bookings:     writer,
		Reservations: lifecycle,
		Reader:       store.Reservations(),
		Schedule:     store.Schedule(),
		Loyalty:      store.Loyalty(),
		Events:       events,
		Subscriber:   pubsub,
		Ready: map[string]server.Pinger{
			"postgres": store,
			"redis":    pubsub,
		},
	})

	// Start server in background goroutine.
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		errCh <- srv.Start(ctx)
	}()

	// Block until shutdown signal or listener failure.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info().Msg("stopped")
	return nil
}

func setupLogging(c config.LogConfig) {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil || c.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if c.Format == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
