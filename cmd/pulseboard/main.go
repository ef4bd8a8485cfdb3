package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pulseboard/pulseboard/pkg/api"
	"github.com/pulseboard/pulseboard/pkg/auth"
	"github.com/pulseboard/pulseboard/pkg/config"
	"github.com/pulseboard/pulseboard/pkg/middleware"
	"github.com/pulseboard/pulseboard/pkg/observability"
	"github.com/pulseboard/pulseboard/pkg/storage"
	"github.com/pulseboard/pulseboard/pkg/tenancy"
)

func main() {
	startupLog := setupStartupLogger()

	cfg, err := config.LoadConfig()
	if err != nil {
		startupLog.WithError(err).Fatal("Failed to load configuration")
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	ctx := context.Background()

	db, err := storage.Open(ctx, storage.Config{
		Driver:          cfg.Storage.Driver,
		URL:             cfg.Storage.URL,
		MaxOpenConns:    cfg.Storage.MaxOpenConns,
		MaxIdleConns:    cfg.Storage.MaxIdleConns,
		ConnMaxLifetime: cfg.Storage.ConnMaxLifetime,
	})
	if err != nil {
		startupLog.WithError(err).Fatal("Failed to connect to database")
	}

	if cfg.Storage.MigrateOnStart {
		if err := storage.Migrate(db); err != nil {
			startupLog.WithError(err).Fatal("Failed to apply migrations")
		}
		startupLog.Info("Database migrations applied")
	}

	svc := tenancy.NewSQLService(db)
	verifier := auth.NewVerifier([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(nil)
	}

	var rateLimiter *middleware.RateLimiter
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			startupLog.WithError(err).Fatal("Invalid redis URL")
		}
		opts.DB = cfg.Redis.DB
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			// The limiter fails open, so a down Redis is a warning.
			startupLog.WithError(err).Warn("Redis unreachable, rate limiting degraded")
		}
		rateLimiter = middleware.NewRateLimiter(redisClient, svc, metrics)
	}

	server := api.NewServer(svc, verifier, rateLimiter, metrics, logger)

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler:      server.HealthRouter(db.Ping),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		startupLog.WithField("addr", apiServer.Addr).Info("API server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		startupLog.WithField("addr", healthServer.Addr).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return db.Close()
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return redisClient.Close()
		})
	}

	g.Go(shutdown.WaitForShutdown)

	if err := g.Wait(); err != nil {
		startupLog.WithError(err).Fatal("Server exited with error")
	}
}

// setupStartupLogger configures logrus for process lifecycle messages.
// Request-scoped logging uses the structured JSON logger instead.
func setupStartupLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	if level, err := logrus.ParseLevel(os.Getenv("PULSE_LOG_LEVEL")); err == nil {
		logger.SetLevel(level)
	}
	return logger
}
