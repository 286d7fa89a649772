package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/garrettladley/payrelay/internal/bus"
	"github.com/garrettladley/payrelay/internal/client/stripeapi"
	"github.com/garrettladley/payrelay/internal/metrics"
	"github.com/garrettladley/payrelay/internal/migrations/postgres"
	xredis "github.com/garrettladley/payrelay/internal/redis"
	"github.com/garrettladley/payrelay/internal/server"
	"github.com/garrettladley/payrelay/internal/service/checkout"
	"github.com/garrettladley/payrelay/internal/service/webhook"
	"github.com/garrettladley/payrelay/internal/storage"
	"github.com/garrettladley/payrelay/internal/xslog"
)

const (
	keyPort        = "port"
	keyGracePeriod = "grace_period"

	shutdownGracePeriod = 2 * time.Second
	shutdownTimeout     = 30 * time.Second
)

func main() {
	_ = godotenv.Load()

	logger := xslog.NewLoggerFromEnv(os.Stdout)
	slog.SetDefault(logger)

	ctx := context.Background()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", xslog.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := server.ReadConfig()
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	ledger, err := initLedger(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize ledger: %w", err)
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			logger.ErrorContext(ctx, "failed to close ledger", xslog.Error(err))
		}
	}()

	publisher, err := initPublisher(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize bus: %w", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.ErrorContext(ctx, "failed to close bus", xslog.Error(err))
		}
	}()

	limiter, closeLimiter, err := initRateLimiter(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize rate limiter: %w", err)
	}
	defer closeLimiter()

	m := metrics.New()

	// Services
	relay := webhook.NewRelay(webhook.Config{
		Secrets:         cfg.Stripe.WebhookSecrets,
		Tolerance:       cfg.Stripe.Tolerance,
		LockTimeout:     cfg.Ledger.LockTimeout,
		RelayTimeout:    cfg.Relay.Timeout,
		DeadLetterTopic: cfg.Bus.DeadLetterTopic,
	}, ledger, publisher, m)

	stripeClient := stripeapi.New(cfg.Stripe.SecretKey, stripeapi.WithLogger(logger))
	sessions := checkout.NewSessions(stripeClient, cfg.Stripe.SuccessURL, cfg.Stripe.CancelURL)

	shutdownCoordinator := server.NewShutdownCoordinator(shutdownGracePeriod)

	handler := server.Routes(server.Deps{
		Logger:   logger,
		Relay:    relay,
		Checkout: sessions,
		Ledger:   ledger,
		Bus:      publisher,
		Limiter:  limiter,
		Metrics:  m.Handler(),
		Shutdown: shutdownCoordinator.BaseContext(),
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Relay.Timeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return shutdownCoordinator.BaseContext()
		},
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		logger.InfoContext(ctx, "starting server",
			xslog.Version(),
			slog.String(keyPort, cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		sweeper := storage.NewSweeper(ledger, cfg.Ledger.Retention, cfg.Ledger.SweepInterval)
		return sweeper.Run(xslog.WithLogger(gctx, logger))
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.InfoContext(ctx, "shutdown signal received, initiating graceful shutdown")

		shutdownCoordinator.InitiateShutdown()
		logger.InfoContext(ctx, "grace period complete, shutting down server",
			slog.Duration(keyGracePeriod, shutdownGracePeriod))

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.InfoContext(ctx, "server stopped")
	return nil
}

func initLedger(ctx context.Context, cfg server.Config, logger *slog.Logger) (storage.RelayLedger, error) {
	logger.InfoContext(ctx, "initializing relay ledger", xslog.Driver(string(cfg.Ledger.Driver)))

	switch cfg.Ledger.Driver {
	case server.LedgerSQLite:
		return storage.OpenSQLiteLedger(ctx, cfg.Ledger.SQLitePath)
	case server.LedgerRedis:
		client, err := xredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return storage.NewRedisLedger(storage.RedisLedgerConfig{
			Client:    client,
			Retention: cfg.Ledger.Retention,
			LockLease: cfg.Ledger.LockLease,
		}), nil
	case server.LedgerPostgres:
		pool, err := initPostgres(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return storage.NewPostgresLedger(pool), nil
	default:
		logger.WarnContext(ctx, "memory ledger only deduplicates within a single instance")
		return storage.NewMemoryLedger(), nil
	}
}

func initPublisher(ctx context.Context, cfg server.Config, logger *slog.Logger) (bus.Publisher, error) {
	logger.InfoContext(ctx, "initializing bus publisher", xslog.Driver(string(cfg.Bus.Driver)))

	return bus.Open(ctx, bus.Config{
		Driver:            cfg.Bus.Driver,
		URLs:              cfg.Bus.URLs,
		NATSStream:        cfg.Bus.NATSStream,
		NATSSubjects:      cfg.Bus.NATSSubjects(),
		RabbitMQExchange:  cfg.Bus.RabbitMQExchange,
		RedisStreamPrefix: cfg.Bus.RedisStreamPrefix,
		RedisMaxLen:       cfg.Bus.RedisMaxLen,
	})
}

func initRateLimiter(ctx context.Context, cfg server.Config, logger *slog.Logger) (storage.RateLimiter, func(), error) {
	if cfg.Redis.URL != "" {
		logger.InfoContext(ctx, "initializing Redis rate limiter")
		client, err := xredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewRedisRateLimiter(client, int(cfg.RateLimit.Limit)), func() { _ = client.Close() }, nil
	}

	logger.InfoContext(ctx, "initializing in-memory rate limiter")
	limiter := storage.NewMemoryRateLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Burst)
	return limiter, func() { _ = limiter.Close() }, nil
}

func initPostgres(ctx context.Context, cfg server.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	logger.InfoContext(ctx, "initializing PostgreSQL")

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := postgres.Apply(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return pool, nil
}
