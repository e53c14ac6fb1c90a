package main

// @title DealPipe API
// @version 1.0
// @description Multi-tenant sales opportunity pipeline API.

// @host localhost:7890
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/jordanlanch/dealpipe/config"
	"github.com/jordanlanch/dealpipe/pkg/activity"
	"github.com/jordanlanch/dealpipe/pkg/api/handlers"
	apimw "github.com/jordanlanch/dealpipe/pkg/api/middleware"
	"github.com/jordanlanch/dealpipe/pkg/cache"
	"github.com/jordanlanch/dealpipe/pkg/customers"
	"github.com/jordanlanch/dealpipe/pkg/database"
	"github.com/jordanlanch/dealpipe/pkg/jobs"
	"github.com/jordanlanch/dealpipe/pkg/leads"
	"github.com/jordanlanch/dealpipe/pkg/logger"
	"github.com/jordanlanch/dealpipe/pkg/metrics"
	custommw "github.com/jordanlanch/dealpipe/pkg/middleware"
	"github.com/jordanlanch/dealpipe/pkg/opportunity"
	"github.com/jordanlanch/dealpipe/pkg/phone"
	"github.com/jordanlanch/dealpipe/pkg/tenant"
	"github.com/jordanlanch/dealpipe/pkg/users"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const dbStatsInterval = 15 * time.Second

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.Info("configuration loaded", "environment", cfg.APIEnvironment)

	if err := run(cfg, log); err != nil {
		log.Error("api stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logger.Logger) error {
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 0.2,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Warn("failed to initialize sentry", "error", err)
		} else {
			log.Info("sentry initialized", "environment", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	}

	sslCfg := &database.SSLConfig{
		Mode:         cfg.DBSSLMode,
		CertPath:     cfg.DBSSLCertPath,
		KeyPath:      cfg.DBSSLKeyPath,
		RootCertPath: cfg.DBSSLRootCertPath,
	}
	db, err := database.NewClientWithPoolAndSSL(cfg.DatabaseURL, database.DefaultPoolConfig(), sslCfg, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.DBAutoMigrate {
		migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := db.Migrate(migrateCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	// Redis is optional; without it the user directory is read straight from the database.
	var redisClient *cache.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewClient(cfg.RedisURL, log)
		if err != nil {
			log.Warn("redis unavailable, user cache disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	userService := users.NewService(db)
	var directory users.Directory = userService
	if redisClient != nil {
		ttl := time.Duration(cfg.UserCacheTTLMinutes) * time.Minute
		directory = users.NewCachedDirectory(userService, redisClient, ttl, log).WithStats(appMetrics)
	}

	companies := tenant.NewService(db)
	activities := activity.NewService(db)
	customerService := customers.NewService(db, activities, phone.NewNormalizer(cfg.DefaultPhoneRegion), log)
	leadService := leads.NewService(leads.Deps{
		DB:         db,
		Activities: activities,
		Users:      directory,
		Customers:  customerService,
		Logger:     log,
	})
	opportunityService := opportunity.NewService(opportunity.Deps{
		DB:         db,
		Activities: activities,
		Users:      directory,
		Leads:      leadService,
		Observer:   appMetrics,
		Logger:     log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	rateLimiter := custommw.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	go rateLimiter.Run(ctx)

	e.Use(custommw.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				log.Error("request failed", append(args, "error", v.Error)...)
				return nil
			}
			log.Info("request", args...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	}
	e.Use(appMetrics.Middleware())
	e.Use(middleware.CORSWithConfig(custommw.CORSConfig(cfg.CORSAllowedOrigins)))
	e.Use(custommw.SecurityHeaders(custommw.DefaultSecurityHeadersConfig()))
	e.Use(middleware.Gzip())
	e.Use(rateLimiter.Middleware())

	var cachePinger handlers.Pinger
	if redisClient != nil {
		cachePinger = redisClient
	}
	e.GET("/health", handlers.NewHealthHandler(db, cachePinger).Check)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	v1 := e.Group("/api/v1", apimw.JWTMiddleware(cfg.JWTSecret), apimw.TenantMiddleware(companies))
	handlers.NewOpportunityHandler(opportunityService, directory, appMetrics, log).RegisterRoutes(v1)
	handlers.NewLeadHandler(leadService, appMetrics).RegisterRoutes(v1)
	handlers.NewCustomerHandler(customerService).RegisterRoutes(v1)
	handlers.NewActivityHandler(activities).RegisterRoutes(v1)
	handlers.NewUserHandler(userService).RegisterRoutes(v1)

	if cfg.ProbabilityRefreshSchedule != "" {
		cronManager := jobs.NewCronManager(companies, opportunityService, appMetrics, log)
		if err := cronManager.SetupJobs(cfg.ProbabilityRefreshSchedule); err != nil {
			return err
		}
		cronManager.Start()
		defer cronManager.Stop()
	}

	go func() {
		ticker := time.NewTicker(dbStatsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				appMetrics.UpdateDBConnections(db.Stats())
			}
		}
	}()

	address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	serverErr := make(chan error, 1)
	go func() {
		log.Info("api starting",
			"address", address,
			"rate_limit_per_minute", cfg.RateLimitRequestsPerMinute,
			"probability_refresh", cfg.ProbabilityRefreshSchedule,
		)
		if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("start server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
