package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/carrental-backend/api/controllers"
	"github.com/angelmondragon/carrental-backend/api/middleware"
	"github.com/angelmondragon/carrental-backend/internal/auth"
	"github.com/angelmondragon/carrental-backend/internal/cars"
	"github.com/angelmondragon/carrental-backend/internal/contracts"
	"github.com/angelmondragon/carrental-backend/internal/customers"
	"github.com/angelmondragon/carrental-backend/internal/payments"
	"github.com/angelmondragon/carrental-backend/internal/policy"
	"github.com/angelmondragon/carrental-backend/pkg/auth/session"
	"github.com/angelmondragon/carrental-backend/pkg/config"
	"github.com/angelmondragon/carrental-backend/pkg/db"
	"github.com/angelmondragon/carrental-backend/pkg/logger"
	"github.com/angelmondragon/carrental-backend/pkg/metrics"
	"github.com/angelmondragon/carrental-backend/pkg/redis"
)

// redisStore is the slice of the Redis client the HTTP layer relies on.
type redisStore interface {
	redis.Pinger
	redis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Params collects everything the router wires into handlers.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    redisStore
	Sessions session.AccessSessionChecker

	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler

	Auth          auth.Service
	Register      auth.RegisterService
	AdminRegister auth.AdminRegisterService
	Cars          cars.Service
	Customers     customers.Service
	Contracts     contracts.Service
	Payments      payments.Service
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, p.HTTPMetrics),
		middleware.CORS(cfg.CORS),
	)

	metricsHandler := p.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	loginPolicy := middleware.LoginRateLimit(cfg.AuthRateLimit)
	registerPolicy := middleware.RegisterRateLimit(cfg.AuthRateLimit)

	r.Route("/api/public", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).
			Post("/login", controllers.AuthLogin(p.Auth, logg))
		r.With(
			middleware.AuthRateLimit(registerPolicy, p.Redis, logg),
			middleware.Idempotency(p.Redis, cfg.Idempotency.TTL, logg),
		).Post("/register", controllers.AuthRegister(p.Register, logg))
	})

	if !cfg.App.IsProd() {
		r.Post("/api/admin/v1/auth/register", controllers.AdminAuthRegister(p.AdminRegister, logg))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Refresh and logout accept an expired access token, so they sit outside Auth.
		r.Post("/auth/refresh", controllers.AuthRefresh(p.Auth, logg))
		r.Post("/auth/logout", controllers.AuthLogout(p.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
			r.Use(middleware.Idempotency(p.Redis, cfg.Idempotency.TTL, logg))

			r.With(middleware.RequireUser(logg)).Get("/auth/me", controllers.AuthMe(p.Auth, logg))

			r.Route("/cars", func(r chi.Router) {
				r.With(allow(policy.CarCreate, logg)).Post("/", controllers.CarCreate(p.Cars, logg))
				r.With(allow(policy.CarList, logg)).Get("/", controllers.CarList(p.Cars, logg))
				r.Route("/{carId}", func(r chi.Router) {
					r.With(allow(policy.CarView, logg)).Get("/", controllers.CarGet(p.Cars, logg))
					r.With(allow(policy.CarPrice, logg)).Get("/price", controllers.CarPrice(p.Contracts, logg))
					r.With(allow(policy.CarUpdate, logg)).Put("/", controllers.CarUpdate(p.Cars, logg))
					r.With(allow(policy.CarUpdate, logg)).Patch("/", controllers.CarUpdate(p.Cars, logg))
					r.With(allow(policy.CarDelete, logg)).Delete("/", controllers.CarDelete(p.Cars, logg))
				})
			})

			r.Route("/customers", func(r chi.Router) {
				r.With(allow(policy.CustomerCreate, logg)).Post("/", controllers.CustomerCreate(p.Customers, logg))
				r.With(allow(policy.CustomerList, logg)).Get("/", controllers.CustomerList(p.Customers, logg))
				r.Route("/{customerId}", func(r chi.Router) {
					r.With(allow(policy.CustomerView, logg)).Get("/", controllers.CustomerGet(p.Customers, logg))
					r.With(allow(policy.CustomerUpdate, logg)).Put("/", controllers.CustomerUpdate(p.Customers, logg))
					r.With(allow(policy.CustomerUpdate, logg)).Patch("/", controllers.CustomerUpdate(p.Customers, logg))
					r.With(allow(policy.CustomerDelete, logg)).Delete("/", controllers.CustomerDelete(p.Customers, logg))
				})
			})

			r.Route("/contracts", func(r chi.Router) {
				r.With(allow(policy.ContractCreate, logg)).Post("/", controllers.ContractCreate(p.Contracts, logg))
				r.With(allow(policy.ContractList, logg)).Get("/", controllers.ContractList(p.Contracts, logg))
				r.Route("/{contractId}", func(r chi.Router) {
					r.With(allow(policy.ContractView, logg)).Get("/", controllers.ContractGet(p.Contracts, logg))
					r.With(allow(policy.ContractUpdate, logg)).Put("/", controllers.ContractUpdate(p.Contracts, logg))
					r.With(allow(policy.ContractUpdate, logg)).Patch("/", controllers.ContractUpdate(p.Contracts, logg))
					r.With(allow(policy.ContractCancel, logg)).Post("/cancel", controllers.ContractCancel(p.Contracts, logg))
				})
			})

			r.Route("/payments", func(r chi.Router) {
				r.With(allow(policy.PaymentCreate, logg)).Post("/", controllers.PaymentCreate(p.Payments, logg))
				r.With(allow(policy.PaymentList, logg)).Get("/", controllers.PaymentList(p.Payments, logg))
				r.Route("/{paymentId}", func(r chi.Router) {
					r.With(allow(policy.PaymentView, logg)).Get("/", controllers.PaymentGet(p.Payments, logg))
					r.With(allow(policy.PaymentUpdate, logg)).Put("/", controllers.PaymentUpdate(p.Payments, logg))
					r.With(allow(policy.PaymentUpdate, logg)).Patch("/", controllers.PaymentUpdate(p.Payments, logg))
					r.With(allow(policy.PaymentDelete, logg)).Delete("/", controllers.PaymentDelete(p.Payments, logg))
				})
			})
		})
	})

	return r
}

func allow(op policy.Operation, logg *logger.Logger) func(http.Handler) http.Handler {
	return middleware.RequirePermission(op, logg)
}
