package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"memoflow/internal/backup"
	"memoflow/internal/calendarsync"
	"memoflow/internal/directory"
	httpapi "memoflow/internal/http"
	jwttoken "memoflow/internal/jwt_token"
	"memoflow/internal/memo/calendar"
	"memoflow/internal/memo/delivery"
	memohandler "memoflow/internal/memo/handler"
	memometrics "memoflow/internal/memo/metrics"
	"memoflow/internal/memo/rollback"
	"memoflow/internal/memo/store"
	mongostore "memoflow/internal/memo/store/mongo"
	"memoflow/internal/memo/txn"
	"memoflow/internal/memo/workflow"
	"memoflow/internal/notify"
	"memoflow/internal/platform/config"
	"memoflow/internal/platform/httpserver"
	"memoflow/internal/platform/kafka"
	"memoflow/internal/platform/logger"
	"memoflow/internal/platform/metrics"
	platformmongo "memoflow/internal/platform/mongo"
	platformredis "memoflow/internal/platform/redis"
	"memoflow/pkg/platform/tasks"
)

const (
	backupTopicPartitions = 3
	backupTopicReplicas   = 1
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("memoflow exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	memoMetrics := memometrics.New(reg)
	httpMetrics := metrics.New(reg)

	checks := map[string]httpapi.HealthCheck{}
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	backend, err := buildBackend(ctx, cfg, log, checks, &closers)
	if err != nil {
		return err
	}
	dir, err := buildDirectory(ctx, cfg, log, checks, &closers)
	if err != nil {
		return err
	}

	pool := tasks.NewPool(
		tasks.WithWorkers(cfg.Tasks.Workers),
		tasks.WithQueueSize(cfg.Tasks.QueueSize),
		tasks.WithMaxRetries(cfg.Tasks.MaxRetries),
		tasks.WithLogger(log),
		tasks.WithMetrics(tasks.NewMetrics(reg)),
	)

	engineOpts := []workflow.Option{
		workflow.WithDispatcher(pool),
		workflow.WithLogger(log),
		workflow.WithMetrics(memoMetrics),
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		closers = append(closers, func() { _ = redisClient.Close() })
		checks["redis"] = redisClient.Health
		engineOpts = append(engineOpts,
			workflow.WithNotifier(notify.NewRedis(redisClient.Client)),
			workflow.WithCalendarSync(calendarsync.New(redisClient.Client, calendarsync.WithLogger(log))),
		)
	} else {
		log.Warn("redis not configured; notifications are logged and calendar sync is disabled")
		engineOpts = append(engineOpts, workflow.WithNotifier(notify.NewLog(log)))
	}

	exporter, err := buildExporter(ctx, cfg, log, checks, &closers)
	if err != nil {
		return err
	}
	engineOpts = append(engineOpts, workflow.WithExporter(exporter))

	coord := txn.New(backend, txn.WithLogger(log), txn.WithMetrics(memoMetrics))
	engine := workflow.New(coord, delivery.New(dir, delivery.WithLogger(log)), calendar.New(calendar.WithLogger(log)), dir, engineOpts...)
	executor := rollback.New(coord, rollback.WithLogger(log), rollback.WithMetrics(memoMetrics))

	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	router := httpapi.NewRouter(httpapi.Deps{
		Memos:        memohandler.New(engine, executor, log),
		JWTValidator: jwttoken.NewJWTServiceAdapter(tokens),
		Logger:       log,
		Metrics:      httpMetrics,
		Gatherer:     reg,
		HealthChecks: checks,
	})
	srv := httpserver.New(cfg.Addr, router)

	// The pool outlives the server so tasks queued by draining requests still run.
	poolCtx, stopPool := context.WithCancel(context.WithoutCancel(ctx))
	defer stopPool()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pool.Run(poolCtx) })
	g.Go(func() error {
		defer stopPool()
		return httpserver.Serve(gctx, srv, log)
	})

	log.Info("memoflow started",
		"addr", cfg.Addr,
		"storage", cfg.Storage,
		"task_workers", cfg.Tasks.Workers,
	)
	return g.Wait()
}

func buildBackend(ctx context.Context, cfg config.Server, log *slog.Logger, checks map[string]httpapi.HealthCheck, closers *[]func()) (store.Backend, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		log.Warn("using in-memory document store; data is lost on restart")
		return store.NewMemoryStore(store.WithTxTimeout(cfg.TxTimeout)), nil
	case config.StorageMongo:
		client, err := platformmongo.New(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		*closers = append(*closers, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Close(closeCtx)
		})
		checks["mongo"] = client.Health

		st := mongostore.New(client.Database(), mongostore.WithTxTimeout(cfg.TxTimeout))
		if err := st.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

func buildDirectory(ctx context.Context, cfg config.Server, log *slog.Logger, checks map[string]httpapi.HealthCheck, closers *[]func()) (directory.Directory, error) {
	if cfg.Postgres.DSN == "" {
		log.Warn("POSTGRES_DSN not set; using an empty in-memory directory")
		return directory.NewInMemory(), nil
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse directory dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Postgres.MaxConns)
	poolCfg.MinConns = int32(cfg.Postgres.MinConns)
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open directory database: %w", err)
	}
	*closers = append(*closers, pool.Close)
	dir := directory.NewPostgres(pool)
	checks["postgres"] = dir.Ping
	return dir, nil
}

func buildExporter(ctx context.Context, cfg config.Server, log *slog.Logger, checks map[string]httpapi.HealthCheck, closers *[]func()) (backup.Exporter, error) {
	client, err := kafka.New(cfg.Kafka, kgo.WithLogger(kgo.BasicLogger(os.Stderr, kgo.LogLevelWarn, nil)))
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	if client == nil {
		log.Warn("kafka not configured; delivery backups are logged only")
		return backup.NewLog(log), nil
	}
	*closers = append(*closers, client.Close)
	if err := kafka.EnsureTopic(ctx, client, cfg.Kafka.Topic, backupTopicPartitions, backupTopicReplicas); err != nil {
		return nil, fmt.Errorf("ensure backup topic: %w", err)
	}
	checks["kafka"] = func(ctx context.Context) error { return kafka.Health(ctx, client) }
	return backup.NewKafka(client, cfg.Kafka.Topic), nil
}
