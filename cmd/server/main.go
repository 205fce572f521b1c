package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/tasknest/tasknest-backend/internal/config"
	"github.com/tasknest/tasknest-backend/internal/database"
	"github.com/tasknest/tasknest-backend/internal/dto"
	"github.com/tasknest/tasknest-backend/internal/handlers"
	"github.com/tasknest/tasknest-backend/internal/logging"
	"github.com/tasknest/tasknest-backend/internal/middleware"
	"github.com/tasknest/tasknest-backend/internal/models"
	"github.com/tasknest/tasknest-backend/internal/notify"
	"github.com/tasknest/tasknest-backend/internal/queue"
	"github.com/tasknest/tasknest-backend/internal/routes"
	"github.com/tasknest/tasknest-backend/internal/services"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(database.DB); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		pgLogHandler,
	)))

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cleanupDone)

	// Notification transports
	router := notify.NewRouter()
	if cfg.MailFrom != "" {
		router.Register(models.ChannelEmail, notify.NewSMTPTransport(
			cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword,
			cfg.MailFrom, cfg.MailFromName))
	}
	if cfg.GatewayURL != "" {
		router.Register(models.ChannelWhatsApp, notify.NewGatewayTransport(cfg.GatewayURL, cfg.GatewayAPIKey, models.ChannelWhatsApp))
		router.Register(models.ChannelSMS, notify.NewGatewayTransport(cfg.GatewayURL, cfg.GatewayAPIKey, models.ChannelSMS))
	}

	// Services
	authService := services.NewAuthService(database.DB, cfg)
	userService := services.NewUserService(database.DB)
	groupService := services.NewGroupService(database.DB)
	taskService := services.NewTaskService(database.DB)

	// Dispatch queue: Kafka when configured, in-process otherwise
	var producer queue.Publisher
	var consumer *queue.Consumer
	notificationService := services.NewNotificationService(database.DB, userService, router, nil)
	if cfg.KafkaBroker != "" {
		kafkaProducer := queue.NewProducer(cfg.KafkaBroker, cfg.KafkaTopic, cfg.KafkaUsername, cfg.KafkaPassword)
		defer kafkaProducer.Close()
		producer = kafkaProducer
		notificationService = services.NewNotificationService(database.DB, userService, router, producer)
		consumer = queue.NewConsumer(cfg.KafkaBroker, cfg.KafkaTopic, cfg.KafkaGroupID,
			cfg.KafkaUsername, cfg.KafkaPassword, notificationService)
	}

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	if consumer != nil {
		go consumer.Listen(consumerCtx)
		slog.Info("dispatch consumer started", "broker", cfg.KafkaBroker, "topic", cfg.KafkaTopic)
	}

	// Optional in-process overdue sweep; an external scheduler can hit
	// POST /api/tasks/sweep instead.
	sweepDone := make(chan struct{})
	if cfg.SweepInterval > 0 {
		services.StartSweep(taskService, cfg.SweepInterval, sweepDone)
		slog.Info("overdue sweep ticker started", "interval", cfg.SweepInterval)
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, database.DB)
	userHandler := handlers.NewUserHandler(userService)
	groupHandler := handlers.NewGroupHandler(groupService, database.DB)
	taskHandler := handlers.NewTaskHandler(taskService, database.DB)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	healthHandler := handlers.NewHealthHandler()

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
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

	// Routes
	routes.Setup(app, cfg, database.DB, authHandler, userHandler, groupHandler, taskHandler, notificationHandler, healthHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	close(cleanupDone)
	close(sweepDone)
	stopConsumer()
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			slog.Error("consumer close error", "error", err)
		}
	}
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// Close database connections
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.Err(message))
}
