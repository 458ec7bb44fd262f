// Package main is the entry point for the CloudQuest progress engine.
//
// The engine scores AWS CLI practice submissions, keeps the exactly-once
// completion ledger, unlocks achievement badges, and serves the public
// leaderboard over a REST API.
//
// The architecture follows Clean Architecture and DDD:
// - Domain: pure business rules without external dependencies
// - Application: use case orchestration (commands, queries, the evaluator)
// - Infrastructure: PostgreSQL, Redis, SMTP, the in-process event bus
// - Interface: HTTP handlers
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cloudquest-hub/cloudquest/config"
	"github.com/cloudquest-hub/cloudquest/internal/application/command"
	"github.com/cloudquest-hub/cloudquest/internal/application/query"
	"github.com/cloudquest-hub/cloudquest/internal/application/submission"
	"github.com/cloudquest-hub/cloudquest/internal/domain/challenge"
	"github.com/cloudquest-hub/cloudquest/internal/domain/notification"
	"github.com/cloudquest-hub/cloudquest/internal/domain/shared"
	"github.com/cloudquest-hub/cloudquest/internal/infrastructure/mail"
	"github.com/cloudquest-hub/cloudquest/internal/infrastructure/messaging"
	"github.com/cloudquest-hub/cloudquest/internal/infrastructure/persistence/postgres"
	"github.com/cloudquest-hub/cloudquest/internal/infrastructure/persistence/redis"
	httpserver "github.com/cloudquest-hub/cloudquest/internal/interface/http"
	"github.com/cloudquest-hub/cloudquest/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────

	// A missing .env file is fine; real deployments use the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting CloudQuest",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("debug", cfg.App.Debug),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database")

	dbConn, err := connectDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS & CATALOG SEED
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	challengeRepo := postgres.NewChallengeRepository(dbConn)
	learnerRepo := postgres.NewLearnerRepository(dbConn)
	progressRepo := postgres.NewProgressRepository(dbConn)

	seeder := command.NewSeedCatalogHandler(challengeRepo, log)
	if err := seeder.EnsureChallengesExist(ctx, challenge.SeedCatalog()); err != nil {
		return fmt.Errorf("failed to seed challenge catalog: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional leaderboard cache)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var leaderboardCache *redis.LeaderboardCache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis")
		redisCache, err = redis.NewCache(redisConfig(cfg))
		if err != nil {
			log.Warn("failed to connect to Redis, leaderboard caching disabled", logger.Err(err))
		} else {
			defer redisCache.Close()
			leaderboardCache = redis.NewLeaderboardCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// The typed nil must not leak into the interface values.
	var queryCache query.LeaderboardCache
	var invalidator submission.CacheInvalidator
	if leaderboardCache != nil {
		queryCache = leaderboardCache
		invalidator = leaderboardCache
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS & MAIL
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus")
	eventBus := messaging.NewInMemoryEventBus(messaging.DefaultInMemoryEventBusConfig())
	defer func() {
		log.Info("closing event bus")
		_ = eventBus.Close()
	}()

	var dispatcher notification.Dispatcher
	if cfg.Mail.Disabled {
		dispatcher = mail.NewLogDispatcher(log)
	} else {
		dispatcher = mail.NewMailer(mailConfig(cfg), log)
	}

	subscriber := mail.NewAchievementSubscriber(dispatcher, log)
	if err := eventBus.Subscribe(shared.EventAchievementUnlocked, subscriber.Handle); err != nil {
		return fmt.Errorf("failed to subscribe achievement handler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	evaluator := submission.NewEvaluator(challengeRepo, progressRepo, learnerRepo, eventBus, invalidator, log)
	leaderboardQuery := query.NewGetLeaderboardHandler(progressRepo, queryCache, log)
	requestResetCmd := command.NewRequestPasswordResetHandler(learnerRepo, dispatcher, cfg.App.BaseURL, log)
	resetCredentialCmd := command.NewResetCredentialHandler(learnerRepo, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.EnableCORS = cfg.HTTP.EnableCORS
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute

	httpDeps := httpserver.Dependencies{
		Evaluator:            evaluator,
		RequestPasswordReset: requestResetCmd,
		ResetCredential:      resetCredentialCmd,
		GetLeaderboard:       leaderboardQuery,
		Challenges:           challengeRepo,
		Logger:               log,
		HealthChecker:        &healthChecker{db: dbConn, cache: redisCache},
	}

	server := httpserver.NewServer(httpConfig, httpDeps)

	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 9. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("CloudQuest is running", logger.String("address", httpConfig.Address()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("http server error", logger.Err(err))
			return err
		}
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown", logger.Duration("timeout", cfg.App.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}

	// Event bus and connections close via defers.
	log.Info("shutdown completed")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	return logger.New(opts)
}

func connectDatabase(ctx context.Context, cfg *config.Config) (*postgres.Connection, error) {
	if cfg.Database.URL != "" {
		return postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	}

	pgCfg := postgres.DefaultConfig()
	pgCfg.Host = cfg.Database.Host
	pgCfg.Port = cfg.Database.Port
	pgCfg.User = cfg.Database.User
	pgCfg.Password = cfg.Database.Password
	pgCfg.Database = cfg.Database.Name
	pgCfg.SSLMode = cfg.Database.SSLMode
	pgCfg.MaxConns = int32(cfg.Database.MaxConns)
	pgCfg.MinConns = int32(cfg.Database.MinConns)
	pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	pgCfg.ConnectTimeout = cfg.Database.ConnectTimeout

	return postgres.NewConnection(ctx, pgCfg)
}

func redisConfig(cfg *config.Config) redis.Config {
	rCfg := redis.DefaultConfig()
	rCfg.Host = cfg.Redis.Host
	rCfg.Port = cfg.Redis.Port
	rCfg.Password = cfg.Redis.Password
	rCfg.DB = cfg.Redis.DB
	rCfg.PoolSize = cfg.Redis.PoolSize
	rCfg.MinIdleConns = cfg.Redis.MinIdleConns
	rCfg.DialTimeout = cfg.Redis.DialTimeout
	rCfg.ReadTimeout = cfg.Redis.ReadTimeout
	rCfg.WriteTimeout = cfg.Redis.WriteTimeout
	return rCfg
}

func mailConfig(cfg *config.Config) mail.Config {
	return mail.Config{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		FromName: cfg.Mail.FromName,
	}
}

// healthChecker reports dependency health for the HTTP probes. Redis is
// optional; its absence degrades caching, not correctness.
type healthChecker struct {
	db    *postgres.Connection
	cache *redis.Cache
}

func (h *healthChecker) Check(ctx context.Context) httpserver.HealthStatus {
	status := httpserver.HealthStatus{
		Healthy:    true,
		Ready:      true,
		Components: make(map[string]string),
	}

	if err := h.db.Ping(ctx); err != nil {
		status.Healthy = false
		status.Ready = false
		status.Message = "database unreachable"
		status.Components["postgres"] = err.Error()
	} else {
		status.Components["postgres"] = "ok"
	}

	if h.cache == nil {
		status.Components["redis"] = "disabled"
	} else if err := h.cache.Ping(ctx); err != nil {
		status.Components["redis"] = err.Error()
	} else {
		status.Components["redis"] = "ok"
	}

	return status
}
