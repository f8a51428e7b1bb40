package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/1128026Go/Arconte-sub000/internal/application/classification"
	"github.com/1128026Go/Arconte-sub000/internal/application/notification"
	"github.com/1128026Go/Arconte-sub000/internal/application/tracking"
	"github.com/1128026Go/Arconte-sub000/internal/config"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/ai"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/database/postgres"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/database/postgres/repositories"
	redisdb "github.com/1128026Go/Arconte-sub000/internal/infrastructure/database/redis"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/ingest"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/messaging/kafka"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/logging"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/prometheus"
)

// app aggregates the wired dependency graph for one command invocation.
type app struct {
	cfg     *config.Config
	logger  logging.Logger
	metrics *prometheus.Metrics

	pool     *pgxpool.Pool
	redis    *redisdb.Client
	producer *kafka.Producer

	caseRepo      *repositories.CaseRepository
	pipeline      *tracking.Pipeline
	notifications *notification.Service
}

// loadConfig resolves config file and flag overrides into a validated Config
// plus a logger built from it.
func loadConfig(opts *rootOptions) (*config.Config, logging.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

// newApp wires the full graph.  Kafka and the AI fallback are optional legs;
// everything else is required.
func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, logger, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, metrics: prometheus.NewMetrics()}

	a.pool, err = postgres.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	a.redis, err = redisdb.NewClient(cfg.Redis, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	cache := redisdb.NewCache(a.redis, logger)

	if cfg.KafkaEnabled() {
		a.producer, err = kafka.NewProducer(cfg.Kafka, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	fetcher, err := ingest.NewClient(cfg.Ingest, logger, a.metrics)
	if err != nil {
		a.Close()
		return nil, err
	}

	var aiClient classification.AIClient
	if cfg.AIEnabled() {
		client, err := ai.NewClient(cfg.AI, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		aiClient = client
	}
	classifier := classification.NewClassifier(aiClient, logger, a.metrics)

	a.caseRepo = repositories.NewCaseRepository(a.pool, logger)
	notificationRepo := repositories.NewNotificationRepository(a.pool, logger)
	ruleRepo := repositories.NewRuleRepository(a.pool, logger)

	a.notifications = notification.NewService(notificationRepo, ruleRepo, cache, logger, a.metrics)

	synchronizer := tracking.NewSynchronizer(a.caseRepo, cache, logger)

	var publisher tracking.EventPublisher
	if a.producer != nil {
		publisher = a.producer
	}
	a.pipeline = tracking.NewPipeline(
		fetcher, a.caseRepo, synchronizer, classifier,
		a.notifications, publisher, logger, a.metrics,
	)

	return a, nil
}

// lockFactory builds the per-case redis sync lock.
func (a *app) lockFactory() tracking.LockFactory {
	ttl := a.cfg.Sync.LockTTL
	return func(caseID string) tracking.CaseLock {
		return redisdb.NewSyncLock(a.redis, caseID, ttl)
	}
}

// Close releases every held resource in reverse dependency order.
func (a *app) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("failed to close kafka producer", logging.Err(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis client", logging.Err(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// commandTimeout bounds one-shot commands so a hung portal cannot wedge the
// CLI.
const commandTimeout = 2 * time.Minute
