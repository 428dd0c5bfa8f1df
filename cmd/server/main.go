package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/redis/go-redis/v9"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/config"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/database"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/logging"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/media"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/realtime"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/routes"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/services"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/store"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/store/memstore"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/store/pgstore"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	stdout := logging.Setup(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store
	var (
		st           store.Store
		pgLogHandler *logging.PGHandler
		cleanupDone  = make(chan struct{})
	)
	switch cfg.StoreDriver {
	case "postgres":
		if err := database.Connect(cfg); err != nil {
			slog.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		if err := database.Migrate(database.DB); err != nil {
			slog.Error("migration failed", "error", err)
			os.Exit(1)
		}
		st = pgstore.New(database.DB, cfg.DBEnforceRLS)

		// PostgreSQL log handler (ERROR+ async batch)
		pgLogHandler = logging.NewPGHandler(database.DB)
		slog.SetDefault(slog.New(logging.NewMultiHandler(stdout, pgLogHandler)))
		logging.StartCleanup(database.DB, cfg.LogRetentionDays, cleanupDone)
	default:
		slog.Warn("using in-memory store; data is lost on restart")
		st = memstore.New()
	}

	// Change notification
	hub := realtime.NewHub(64)
	var (
		events      realtime.Fanout
		brokerPing  handlers.Pinger
		redisClient *redis.Client
		amqpPub     *realtime.AMQPPublisher
	)
	switch cfg.BroadcastDriver {
	case "redis":
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		broker := realtime.NewRedisBroker(redisClient, hub)
		go func() {
			if err := broker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("redis relay stopped", "error", err)
			}
		}()
		events = append(events, broker)
		brokerPing = broker
	default:
		events = append(events, hub)
	}
	if cfg.AMQPURL != "" {
		pub, err := realtime.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			slog.Error("amqp connection failed", "error", err)
			os.Exit(1)
		}
		amqpPub = pub
		events = append(events, pub)
	}

	// Object storage
	var objects media.ObjectStore
	if cfg.MediaEnabled() {
		s3cfg := media.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
			PublicURL: cfg.S3PublicURL,
		}
		client, err := media.NewClient(s3cfg)
		if err != nil {
			slog.Error("object storage client failed", "error", err)
			os.Exit(1)
		}
		objects = media.NewS3Storage(client, s3cfg)
	} else {
		slog.Info("object storage not configured; photo uploads disabled")
	}

	// Services
	authService := services.NewAuthService(st, cfg)
	reportService := services.NewReportService(st, events)
	moderationService := services.NewModerationService(st, st, events)
	roleService := services.NewRoleService(st, events)
	mediaService := services.NewMediaService(objects, cfg.MediaMaxBytes)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    int(cfg.MediaMaxBytes) + 1<<20,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	routes.Setup(app, cfg, st, routes.Handlers{
		Auth:       handlers.NewAuthHandler(authService),
		Health:     handlers.NewHealthHandler(st, brokerPing),
		Reports:    handlers.NewReportHandler(reportService),
		Moderation: handlers.NewModerationHandler(moderationService),
		Media:      handlers.NewMediaHandler(mediaService),
		Realtime:   handlers.NewRealtimeHandler(hub, st),
		Admin:      handlers.NewAdminHandler(roleService),
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "store", cfg.StoreDriver, "broadcast", cfg.BroadcastDriver)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	cancel()
	hub.Close()
	if amqpPub != nil {
		if err := amqpPub.Close(); err != nil {
			slog.Error("amqp close error", "error", err)
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}

	close(cleanupDone)
	if pgLogHandler != nil {
		pgLogHandler.Stop()
	}
	sentry.Flush(2 * time.Second)

	if database.DB != nil {
		if sqlDB, err := database.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				slog.Error("database close error", "error", err)
			}
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
