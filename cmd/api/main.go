package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/carrental-backend/api/routes"
	"github.com/angelmondragon/carrental-backend/internal/auth"
	"github.com/angelmondragon/carrental-backend/internal/cars"
	"github.com/angelmondragon/carrental-backend/internal/contracts"
	"github.com/angelmondragon/carrental-backend/internal/customers"
	"github.com/angelmondragon/carrental-backend/internal/payments"
	"github.com/angelmondragon/carrental-backend/internal/users"
	"github.com/angelmondragon/carrental-backend/pkg/auth/session"
	"github.com/angelmondragon/carrental-backend/pkg/config"
	"github.com/angelmondragon/carrental-backend/pkg/db"
	"github.com/angelmondragon/carrental-backend/pkg/instance"
	"github.com/angelmondragon/carrental-backend/pkg/logger"
	"github.com/angelmondragon/carrental-backend/pkg/metrics"
	"github.com/angelmondragon/carrental-backend/pkg/migrate"
	"github.com/angelmondragon/carrental-backend/pkg/outbox"
	"github.com/angelmondragon/carrental-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	carRepo := cars.NewRepository(conn)
	customerRepo := customers.NewRepository(conn)
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		Users:          userRepo,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}
	adminRegisterService, err := auth.NewAdminRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		Users:          userRepo,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create admin register service", err)
		os.Exit(1)
	}

	carService, err := cars.NewService(cars.ServiceParams{Repository: carRepo, TxRunner: dbClient})
	if err != nil {
		logg.Error(context.Background(), "failed to create car service", err)
		os.Exit(1)
	}
	customerService, err := customers.NewService(customers.ServiceParams{
		Repository: customerRepo,
		Cars:       carRepo,
		TxRunner:   dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create customer service", err)
		os.Exit(1)
	}
	contractService, err := contracts.NewService(contracts.ServiceParams{
		Repository: contracts.NewRepository(conn),
		Cars:       carRepo,
		Customers:  customerRepo,
		TxRunner:   dbClient,
		Outbox:     outboxService,
		Metrics:    metrics.NewContractMetrics(prometheus.DefaultRegisterer),
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create contract service", err)
		os.Exit(1)
	}
	paymentService, err := payments.NewService(payments.ServiceParams{
		Repository: payments.NewRepository(conn),
		TxRunner:   dbClient,
		Outbox:     outboxService,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	hostname := instance.GetID()
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": hostname,
	})

	handler := routes.NewRouter(routes.Params{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		Sessions:       sessionManager,
		HTTPMetrics:    metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
		MetricsHandler: promhttp.Handler(),
		Auth:           authService,
		Register:       registerService,
		AdminRegister:  adminRegisterService,
		Cars:           carService,
		Customers:      customerService,
		Contracts:      contractService,
		Payments:       paymentService,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
