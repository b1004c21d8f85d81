package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	driftdedupe "veritas/internal/drift/dedupe"
	drifthandler "veritas/internal/drift/handler"
	driftmetrics "veritas/internal/drift/metrics"
	driftservice "veritas/internal/drift/service"
	driftstore "veritas/internal/drift/store"
	"veritas/internal/evidence/npi"
	npicache "veritas/internal/evidence/npi/cache"
	npimetrics "veritas/internal/evidence/npi/metrics"
	"veritas/internal/evidence/npi/providers/httpjson"
	"veritas/internal/platform/config"
	"veritas/internal/platform/kafka"
	"veritas/internal/platform/metrics"
	"veritas/internal/platform/postgres"
	vredis "veritas/internal/platform/redis"
	"veritas/internal/verification/adapters"
	verificationhandler "veritas/internal/verification/handler"
	verificationmetrics "veritas/internal/verification/metrics"
	verificationservice "veritas/internal/verification/service"
	verificationstore "veritas/internal/verification/store"
	"veritas/pkg/platform/circuit"
	"veritas/pkg/platform/outbox"
	outboxmemory "veritas/pkg/platform/outbox/store/memory"
	outboxpostgres "veritas/pkg/platform/outbox/store/postgres"
	txcontext "veritas/pkg/platform/tx"
)

// app owns every long-lived dependency of the serve command.
type app struct {
	cfg    config.Config
	logger *slog.Logger

	db    *sql.DB
	redis *vredis.Client
	kafka *kgo.Client
	relay *outbox.Relay

	handler http.Handler
}

// outboxStore is what the services append to and the relay claims from.
type outboxStore interface {
	outbox.Appender
	outbox.Claimer
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	if !cfg.RegistryConfigured() {
		return nil, errors.New("registry.primary_url is required")
	}

	a := &app{cfg: cfg, logger: logger}
	var err error

	if a.db, err = postgres.Open(ctx, cfg.Postgres); err != nil {
		return nil, err
	}
	if a.redis, err = vredis.New(ctx, cfg.Redis); err != nil {
		a.close()
		return nil, err
	}
	if a.kafka, err = kafka.New(ctx, cfg.Kafka); err != nil {
		a.close()
		return nil, err
	}
	if a.db == nil {
		logger.WarnContext(ctx, "postgres not configured, using in-memory stores")
	}

	var events outboxStore = outboxmemory.NewInMemoryStore()
	if a.db != nil {
		events = outboxpostgres.New(a.db)
	}
	if a.kafka != nil {
		if err := outbox.EnsureTopics(ctx, a.kafka, cfg.Kafka.TopicPrefix, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
			a.close()
			return nil, err
		}
		a.relay = outbox.NewRelay(events, a.kafka, cfg.Kafka.TopicPrefix,
			outbox.WithBatchSize(cfg.Kafka.RelayBatchSize),
			outbox.WithInterval(cfg.Kafka.RelayInterval),
			outbox.WithLogger(logger),
		)
	}

	registry := a.buildRegistry(logger)
	scans, scores := a.buildVerification(registry, events, logger)
	drift := a.buildDrift(scores, events, logger)

	a.handler = newRouter(routerDeps{
		adminToken:   cfg.Server.AdminToken,
		logger:       logger,
		metrics:      metrics.New(),
		verification: verificationhandler.New(scans, logger),
		drift:        drifthandler.New(drift, logger),
		health:       a.healthChecks(),
	})
	return a, nil
}

func (a *app) buildRegistry(logger *slog.Logger) *npi.Service {
	cfg := a.cfg.Registry
	m := npimetrics.New()

	newSource := func(id, baseURL string) *httpjson.Provider {
		return httpjson.New(id, baseURL,
			httpjson.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
			httpjson.WithRateLimit(cfg.RatePerSecond, cfg.RateBurst),
			httpjson.WithBreaker(circuit.New(id)),
			httpjson.WithLogger(logger),
		)
	}

	var slow npicache.Store
	if a.db != nil {
		slow = npicache.NewPostgres(a.db, cfg.CacheTTL)
	}
	opts := []npi.Option{
		npi.WithCache(npicache.NewLayered(npicache.NewMemory(cfg.CacheTTL, 10*time.Minute), slow, m)),
		npi.WithMetrics(m),
		npi.WithLogger(logger),
	}
	if cfg.SecondaryURL != "" {
		opts = append(opts, npi.WithSecondary(newSource("secondary", cfg.SecondaryURL)))
	}
	return npi.New(newSource("primary", cfg.PrimaryURL), opts...)
}

func (a *app) buildVerification(registry *npi.Service, events outbox.Appender, logger *slog.Logger) (*verificationservice.Service, driftservice.ScoreReader) {
	var (
		sessions verificationservice.SessionStore
		alerts   verificationservice.AlertStore
		scores   verificationservice.ScoreStore
		tx       txcontext.Runner = txcontext.NoopRunner{}
	)
	if a.db != nil {
		sessions = verificationstore.NewPostgresSessionStore(a.db)
		alerts = verificationstore.NewPostgresAlertStore(a.db)
		scores = verificationstore.NewPostgresScoreStore(a.db)
		tx = newBoundedTx(a.db)
	} else {
		sessions = verificationstore.NewInMemorySessionStore()
		alerts = verificationstore.NewInMemoryAlertStore()
		scores = verificationstore.NewInMemoryScoreStore()
	}

	svc := verificationservice.New(adapters.NewRegistryAdapter(registry), sessions, alerts, scores,
		verificationservice.WithLogger(logger),
		verificationservice.WithMetrics(verificationmetrics.New()),
		verificationservice.WithOutbox(events),
		verificationservice.WithTxRunner(tx),
		verificationservice.WithScanTimeout(a.cfg.Scan.Timeout),
		verificationservice.WithCheckTimeout(a.cfg.Scan.CheckTimeout),
	)
	return svc, scores
}

func (a *app) buildDrift(scores driftservice.ScoreReader, events outbox.Appender, logger *slog.Logger) *driftservice.Service {
	var (
		baselines  driftservice.BaselineStore
		evts       driftservice.EventStore
		heartbeats driftservice.HeartbeatStore
	)
	if a.db != nil {
		baselines = driftstore.NewPostgresBaselineStore(a.db)
		evts = driftstore.NewPostgresEventStore(a.db)
		heartbeats = driftstore.NewPostgresHeartbeatStore(a.db)
	} else {
		baselines = driftstore.NewInMemoryBaselineStore()
		evts = driftstore.NewInMemoryEventStore()
		heartbeats = driftstore.NewInMemoryHeartbeatStore()
	}

	var guard driftservice.Guard = driftdedupe.NewMemoryGuard()
	if a.redis != nil {
		guard = driftdedupe.NewRedisGuard(a.redis.Client)
	}

	return driftservice.New(baselines, evts, heartbeats,
		driftservice.WithLogger(logger),
		driftservice.WithMetrics(driftmetrics.New()),
		driftservice.WithOutbox(events),
		driftservice.WithGuard(guard),
		driftservice.WithScores(scores),
		driftservice.WithDedupWindow(a.cfg.Drift.DedupWindow),
		driftservice.WithStaleAfter(a.cfg.Drift.StaleAfter),
	)
}

func (a *app) healthChecks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{}
	if a.db != nil {
		checks["postgres"] = a.db.PingContext
	}
	if a.redis != nil {
		checks["redis"] = a.redis.Health
	}
	if a.kafka != nil {
		checks["kafka"] = a.kafka.Ping
	}
	return checks
}

func (a *app) close() {
	if a.kafka != nil {
		a.kafka.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close postgres", "error", err)
		}
	}
}
