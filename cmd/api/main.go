package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-shop/internal/auth"
	"github.com/noah-isme/backend-shop/internal/cart"
	"github.com/noah-isme/backend-shop/internal/catalog"
	"github.com/noah-isme/backend-shop/internal/common"
	"github.com/noah-isme/backend-shop/internal/config"
	"github.com/noah-isme/backend-shop/internal/db"
	"github.com/noah-isme/backend-shop/internal/discount"
	"github.com/noah-isme/backend-shop/internal/health"
	"github.com/noah-isme/backend-shop/internal/obs"
	"github.com/noah-isme/backend-shop/internal/order"
	"github.com/noah-isme/backend-shop/internal/pricing"
	"github.com/noah-isme/backend-shop/internal/ratelimit"
	"github.com/noah-isme/backend-shop/internal/repository"
	"github.com/noah-isme/backend-shop/internal/sales"
	"github.com/noah-isme/backend-shop/internal/tasks"
)

const serviceName = "shop-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	if cfg.TracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   serviceName,
			Endpoint:      cfg.TracingEndpoint,
			SamplingRatio: cfg.TracingSamplingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, serviceName)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	taskClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	stores := repository.NewStores(pool)
	runner := repository.Runner{Pool: pool}
	validate := validator.New()
	pricer := pricing.NewEngine(cfg.PricingTaxRateBPS)

	catalogSvc := &catalog.Service{Items: stores.Items}
	catalogHandler := &catalog.Handler{
		Svc:      catalogSvc,
		Validate: validate,
		PerPage:  cfg.CatalogDefaultLimit,
		MaxLimit: cfg.CatalogMaxLimit,
	}

	discountSvc := &discount.Service{Codes: stores.Discounts}
	discountHandler := &discount.Handler{Svc: discountSvc, Validate: validate}

	salesSvc := &sales.Service{Sales: stores.Sales, Items: stores.Items}
	salesHandler := &sales.Handler{Svc: salesSvc, Validate: validate}

	cartSvc := &cart.Service{
		Tx:     runner,
		Carts:  stores.Carts,
		Items:  stores.Items,
		Codes:  stores.Discounts,
		Pricer: pricer,
	}
	cartHandler := &cart.Handler{Svc: cartSvc, Validate: validate}

	orderSvc := &order.Service{
		Tx:         runner,
		Orders:     stores.Orders,
		Carts:      stores.Carts,
		Pricer:     pricer,
		Enqueuer:   tasks.Enqueuer{Client: taskClient},
		Logger:     logger,
		MaxRetries: cfg.PlaceOrderMaxRetries,
	}
	orderHandler := &order.Handler{Svc: orderSvc, PerPage: cfg.CatalogDefaultLimit}
	orderAdmin := &order.AdminHandler{Svc: orderSvc, PerPage: cfg.CatalogDefaultLimit}

	verifier, err := auth.NewVerifier(auth.VerifierConfig{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise token verifier")
	}
	authMiddleware := auth.Middleware{Verifier: verifier}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	limiter := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "rl:"},
		Config: ratelimit.Config{
			Key:    common.ClientIP,
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		},
		OnError: func(err error) {
			logger.Error().Err(err).Msg("rate limiter unavailable")
		},
	}

	httpMetrics := obs.NewHTTPMetrics(cfg.MetricsNamespace, nil, nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if cfg.TracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(limiter.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	healthHandler := health.Handler{Checker: readinessChecker{db: pool, redis: redisClient}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/items", catalogHandler.List)
		v.Get("/items/{id}", catalogHandler.Get)
		v.Get("/items/{id}/sale", salesHandler.ActiveForItem)
		v.Get("/sales", salesHandler.List)
		v.Get("/sales/{id}", salesHandler.Get)
		v.Get("/discount-codes/{code}/validate", discountHandler.ValidateCode)

		v.Route("/cart", func(c chi.Router) {
			c.Use(authMiddleware.RequireAuth)
			c.Get("/", cartHandler.Get)
			c.Get("/summary", cartHandler.Get)
			c.Delete("/", cartHandler.Clear)
			c.Post("/items/{itemId}", cartHandler.AddItem)
			c.Put("/items/{itemId}", cartHandler.SetQuantity)
			c.Post("/items/{itemId}/increase", cartHandler.Increase)
			c.Post("/items/{itemId}/decrease", cartHandler.Decrease)
			c.Delete("/items/{itemId}", cartHandler.RemoveItem)
			c.Post("/discount", cartHandler.ApplyDiscount)
			c.Delete("/discount", cartHandler.RemoveDiscount)
		})

		v.Group(func(authR chi.Router) {
			authR.Use(authMiddleware.RequireAuth)
			authR.With(idem.Middleware).Post("/orders", orderHandler.Place)
			authR.Get("/orders", orderHandler.List)
			authR.Get("/orders/{id}", orderHandler.Get)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(authMiddleware.RequireAdmin)
			admin.Post("/items", catalogHandler.Create)
			admin.Put("/items/{id}", catalogHandler.Update)
			admin.Delete("/items/{id}", catalogHandler.Delete)
			admin.Post("/sales", salesHandler.Create)
			admin.Put("/sales/{id}", salesHandler.Update)
			admin.Put("/sales/{id}/toggle", salesHandler.Toggle)
			admin.Delete("/sales/{id}", salesHandler.Delete)
			admin.Get("/discount-codes", discountHandler.List)
			admin.Post("/discount-codes", discountHandler.Create)
			admin.Put("/discount-codes/{id}", discountHandler.Update)
			admin.Delete("/discount-codes/{id}", discountHandler.Delete)
			admin.Get("/orders", orderAdmin.List)
			admin.Get("/orders/{id}", orderAdmin.Get)
			admin.Put("/orders/{id}/status", orderAdmin.UpdateStatus)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down")
	health.SetReady(false)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}
