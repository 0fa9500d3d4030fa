package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pahfm/fleet-backend/internal/app"
	"github.com/pahfm/fleet-backend/internal/clock"
	"github.com/pahfm/fleet-backend/internal/config"
	"github.com/pahfm/fleet-backend/internal/database"
	"github.com/pahfm/fleet-backend/internal/http/handler"
	"github.com/pahfm/fleet-backend/internal/http/middleware"
	"github.com/pahfm/fleet-backend/internal/http/router"
	"github.com/pahfm/fleet-backend/internal/observability"
	"github.com/pahfm/fleet-backend/internal/repository"
	"github.com/pahfm/fleet-backend/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(observability.NewLogger, clock.Real)

var RuntimeInfraSet = wire.NewSet(
	provideOpenDB,
	provideRedisClient,
	provideIdempotencyStore,
	provideTokenLimiter,
	provideDriveNotifier,
)

var RepositorySet = wire.NewSet(
	repository.NewVerificationTokenRepository,
	repository.NewDriveRepository,
)

var ServiceSet = wire.NewSet(
	provideConfirmationService,
	provideDriveService,
	wire.Bind(new(service.ConfirmationServiceInterface), new(*service.ConfirmationService)),
	wire.Bind(new(service.DriveServiceInterface), new(*service.DriveService)),
)

var HTTPSet = wire.NewSet(
	provideVerificationTokenHandler,
	provideDriveHandler,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(app.New)

func provideOpenDB(cfg *config.Config) (*gorm.DB, func(), error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := database.Ping(ctx, db); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, cleanup, nil
}

// provideRedisClient returns a nil client when REDIS_ADDR is unset; callers
// fall back to in-process stores.
func provideRedisClient(cfg *config.Config, logger *slog.Logger) (redis.UniversalClient, func(), error) {
	if cfg.RedisAddr == "" {
		return nil, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping failed at startup", "addr", cfg.RedisAddr, "error", err.Error())
	}
	return client, func() { _ = client.Close() }, nil
}

func provideIdempotencyStore(client redis.UniversalClient) service.IdempotencyStore {
	if client == nil {
		return service.NewInMemoryIdempotencyStore()
	}
	return service.NewRedisIdempotencyStore(client, "")
}

func provideTokenLimiter(client redis.UniversalClient, clk clock.Clock) middleware.Limiter {
	if client == nil {
		return middleware.NewLocalFixedWindowLimiter(clk)
	}
	return middleware.NewRedisFixedWindowLimiter(client, "")
}

func provideDriveNotifier(cfg *config.Config, logger *slog.Logger) (service.DriveCreatedNotifier, func()) {
	if len(cfg.NotifyKafkaBrokers) == 0 {
		return service.NewLogDriveCreatedNotifier(logger), func() {}
	}
	n := service.NewKafkaDriveCreatedNotifier(cfg.NotifyKafkaBrokers, cfg.NotifyKafkaTopic)
	return n, func() {
		if err := n.Close(); err != nil {
			logger.Warn("kafka notifier close failed", "error", err.Error())
		}
	}
}

func provideConfirmationService(tokens repository.VerificationTokenRepository, clk clock.Clock, cfg *config.Config, logger *slog.Logger) *service.ConfirmationService {
	return service.NewConfirmationService(tokens, clk, cfg.TokenExpiration, logger)
}

func provideDriveService(drives repository.DriveRepository, notifier service.DriveCreatedNotifier, clk clock.Clock, cfg *config.Config, logger *slog.Logger) *service.DriveService {
	return service.NewDriveService(drives, notifier, clk, cfg.TokenExpiration, cfg.VerificationBaseURL, logger)
}

func provideVerificationTokenHandler(svc service.ConfirmationServiceInterface, logger *slog.Logger) *handler.VerificationTokenHandler {
	return handler.NewVerificationTokenHandler(svc, logger)
}

func provideDriveHandler(svc service.DriveServiceInterface, cfg *config.Config, logger *slog.Logger) *handler.DriveHandler {
	return handler.NewDriveHandler(svc, cfg.VerificationBaseURL, logger)
}

func provideRouterDependencies(
	tokenHandler *handler.VerificationTokenHandler,
	driveHandler *handler.DriveHandler,
	limiter middleware.Limiter,
	store service.IdempotencyStore,
	cfg *config.Config,
	logger *slog.Logger,
) router.Dependencies {
	return router.Dependencies{
		TokenHandler:     tokenHandler,
		DriveHandler:     driveHandler,
		TokenRateLimiter: limiter,
		TokenRateLimitPM: cfg.TokenRateLimitPerMin,
		RateLimitMode:    middleware.FailOpen,
		IdempotencyStore: store,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		Logger:           logger,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	readHeader := cfg.HTTPReadHeaderTimeout
	if readHeader <= 0 {
		readHeader = 5 * time.Second
	}
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: readHeader,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

type MigrationRunner struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewMigrationRunner(db *gorm.DB, logger *slog.Logger) *MigrationRunner {
	return &MigrationRunner{db: db, logger: logger}
}

func (m *MigrationRunner) Migrate() error {
	if err := database.Migrate(m.db); err != nil {
		return err
	}
	m.logger.Info("migrations applied")
	return nil
}
