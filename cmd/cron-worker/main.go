package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/carrental-backend/internal/cars"
	"github.com/angelmondragon/carrental-backend/internal/contracts"
	"github.com/angelmondragon/carrental-backend/internal/cron"
	"github.com/angelmondragon/carrental-backend/internal/customers"
	"github.com/angelmondragon/carrental-backend/pkg/config"
	"github.com/angelmondragon/carrental-backend/pkg/db"
	"github.com/angelmondragon/carrental-backend/pkg/instance"
	"github.com/angelmondragon/carrental-backend/pkg/logger"
	"github.com/angelmondragon/carrental-backend/pkg/metrics"
	"github.com/angelmondragon/carrental-backend/pkg/migrate"
	"github.com/angelmondragon/carrental-backend/pkg/outbox"
	"github.com/angelmondragon/carrental-backend/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	jobs := flag.String("jobs", "", "comma separated job names to run with -once (default all)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	conn := dbClient.DB()
	outboxRepo := outbox.NewRepository(conn)
	contractService, err := contracts.NewService(contracts.ServiceParams{
		Repository: contracts.NewRepository(conn),
		Cars:       cars.NewRepository(conn),
		Customers:  customers.NewRepository(conn),
		TxRunner:   dbClient,
		Outbox:     outbox.NewService(outboxRepo, logg),
		Metrics:    metrics.NewContractMetrics(prometheus.DefaultRegisterer),
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create contract service", err)
		os.Exit(1)
	}

	expiryJob, err := cron.NewContractExpiryJob(cron.ContractExpiryJobParams{
		Logger:    logg,
		Contracts: contractService,
		BatchSize: cfg.Cron.ContractExpiryBatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create contract expiry job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
		Retention:  cfg.Cron.OutboxRetentionDays,
		BatchSize:  cfg.Cron.OutboxRetentionBatch,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	hostname := instance.GetID()
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron"), hostname, cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(expiryJob, retentionJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Schedule: cfg.Cron.Schedule,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	if *once {
		logg.Info(ctx, "running single cron cycle")
		if err := service.RunOnce(ctx, splitJobs(*jobs)...); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func splitJobs(raw string) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}
