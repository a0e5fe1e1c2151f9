package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	evaluationengine "degusta/contexts/competition-judging/evaluation-engine"
	postgresadapter "degusta/contexts/competition-judging/evaluation-engine/adapters/postgres"
	workerapp "degusta/contexts/competition-judging/evaluation-engine/application/workers"
	"degusta/internal/platform/config"
	"degusta/internal/platform/db"
	"degusta/internal/platform/messaging"
	"degusta/internal/platform/telemetry"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const sessionCompletionConsumerGroup = "evaluation-engine-session-completion-cg"

type WorkerApp struct {
	// Engine exposes the evaluation use cases wired to the same database, for
	// processes that embed the worker.
	Engine evaluationengine.Module

	postgres        *db.Postgres
	bus             *messaging.Kafka
	outboxRelay     workerapp.OutboxRelay
	sessionConsumer workerapp.SessionCompletionConsumer
	consumerEnabled bool
	pollInterval    time.Duration
	shutdownTracing func(context.Context) error
	logger          *slog.Logger
}

func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return buildWorker(ctx, cfg)
}

func buildWorker(ctx context.Context, cfg config.Config) (*WorkerApp, error) {
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTelEndpoint)
	if err != nil {
		return nil, err
	}

	pg, err := db.Connect(ctx, cfg.PostgresDSN, logger)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := postgresadapter.Migrate(ctx, pg.DB); err != nil {
			_ = pg.Close()
			_ = shutdownTracing(ctx)
			return nil, err
		}
		logger.Info("evaluation schema migrated",
			"event", "bootstrap_schema_migrated",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}

	bus, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		_ = pg.Close()
		_ = shutdownTracing(ctx)
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	clock := postgresadapter.SystemClock{}
	engine := evaluationengine.NewModule(evaluationengine.Dependencies{
		Samples:        repo,
		Commissions:    repo,
		Sessions:       repo,
		Evaluations:    repo,
		Policies:       repo,
		Protocols:      repo,
		Idempotency:    repo,
		Outbox:         repo,
		Clock:          clock,
		IDGen:          postgresadapter.UUIDGenerator{},
		IdempotencyTTL: cfg.IdempotencyTTL,
		Logger:         logger,
	})

	return &WorkerApp{
		Engine:   engine,
		postgres: pg,
		bus:      bus,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: bus,
			Clock:     clock,
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		sessionConsumer: workerapp.SessionCompletionConsumer{
			Subscriber:    bus,
			Dedup:         repo,
			Sessions:      repo,
			Clock:         clock,
			ConsumerGroup: sessionCompletionConsumerGroup,
			DedupTTL:      cfg.IdempotencyTTL,
			Logger:        logger,
		},
		consumerEnabled: cfg.EnableSessionCompletionConsumer,
		pollInterval:    cfg.OutboxPollInterval,
		shutdownTracing: shutdownTracing,
		logger:          logger,
	}, nil
}

// Run starts the completion consumer and polls the outbox until ctx ends or
// a relay cycle fails.
func (w *WorkerApp) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	if w.consumerEnabled {
		if err := w.sessionConsumer.Start(ctx); err != nil {
			return err
		}
	}

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"session_completion_consumer", w.consumerEnabled,
	)

	group.Go(func() error {
		return runRelayLoop(ctx, w.outboxRelay, w.pollInterval)
	})
	group.Go(func() error {
		<-ctx.Done()
		return w.bus.Close()
	})
	return group.Wait()
}

func runRelayLoop(ctx context.Context, relay workerapp.OutboxRelay, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := relay.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	var errs []error
	if w.bus != nil {
		errs = append(errs, w.bus.Close())
	}
	if w.postgres != nil {
		errs = append(errs, w.postgres.Close())
	}
	if w.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, w.shutdownTracing(ctx))
	}
	return errors.Join(errs...)
}
