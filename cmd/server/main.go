// Package main provides the API server entry point for the Ettore lead manager.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/ettore-crm/internal/api"
	"github.com/ettore-crm/internal/config"
	"github.com/ettore-crm/internal/email"
	"github.com/ettore-crm/internal/llm"
	"github.com/ettore-crm/internal/logging"
	"github.com/ettore-crm/internal/ratelimit"
	"github.com/ettore-crm/internal/service"
	"github.com/ettore-crm/internal/storage"
	"github.com/ettore-crm/internal/validation"
)

func main() {
	fmt.Println("Ettore API Server")
	log.Println("Server starting...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	if cfg.App.AutoMigrate {
		logger.Info("Running database migrations...")
		if err := storage.RunMigrations(cfg.Database.Postgres.URL()); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}
	}

	// Connect to Postgres
	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	// Redis only backs the webhook throttle; without it intake is unthrottled.
	var throttle service.WebhookThrottle
	redisClient, err := storage.NewRedisClient(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, webhook throttling disabled")
	} else {
		defer redisClient.Close()
		limiter, err := ratelimit.NewWebhookLimiter(&ratelimit.WebhookLimiterConfig{
			Redis:  redisClient.Client(),
			Limit:  cfg.RateLimit.WebhookRequests,
			Window: cfg.RateLimit.WebhookWindow,
		})
		if err != nil {
			logger.WithError(err).Fatal("Failed to create webhook limiter")
		}
		throttle = limiter
	}

	logger.Info("Database connections established")

	// Initialize repositories
	userRepo := storage.NewUserRepository(postgres)
	settingsRepo := storage.NewSettingsRepository(postgres)
	leadRepo := storage.NewLeadRepository(postgres)
	activityRepo := storage.NewActivityRepository(postgres)
	notificationRepo := storage.NewNotificationRepository(postgres)
	draftRepo := storage.NewDraftRepository(postgres)

	// Initialize services
	logger.Info("Initializing services...")

	transport, err := email.NewTransport(cfg.Mail, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create email transport")
	}

	if cfg.LLM.APIKey == "" {
		logger.Warn("GROQ_API_KEY not set, draft generation will fail")
	}
	generator := llm.NewClient(cfg.LLM)

	notificationService := service.NewNotificationService(userRepo, settingsRepo, leadRepo, notificationRepo, transport, cfg.App.BaseURL)
	leadService := service.NewLeadService(leadRepo, activityRepo, draftRepo, notificationService)
	draftService := service.NewDraftService(generator, leadRepo, settingsRepo, userRepo, draftRepo, notificationService)
	webhookService := service.NewWebhookService(userRepo, settingsRepo, leadService, notificationService, draftService, throttle, cfg.App.BaseURL)
	authService := service.NewAuthService(userRepo, settingsRepo)
	settingsService := service.NewSettingsService(settingsRepo)

	logger.Info("Services initialized")

	sessionSecret := cfg.App.SessionSecret
	if sessionSecret == "" {
		// Sessions will not survive a restart.
		logger.Warn("SESSION_SECRET not set, using a random secret")
		sessionSecret = uuid.NewString() + uuid.NewString()
	}

	// Create server configuration
	serverConfig := &api.ServerConfig{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ShutdownTimeout:   10 * time.Second,
		CORSOrigins:       cfg.Server.CORSOrigins,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		SessionSecret:     sessionSecret,
		SecureCookies:     cfg.App.Production,
	}

	server := api.NewServer(serverConfig, validation.MustNew(), api.Services{
		Leads:         leadService,
		Webhook:       webhookService,
		Drafts:        draftService,
		Notifications: notificationService,
		Auth:          authService,
		Settings:      settingsService,
	})

	pruneCtx, stopPruning := context.WithCancel(context.Background())
	defer stopPruning()
	go server.PruneClients(pruneCtx, time.Minute, 10*time.Minute)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host":     cfg.Server.Host,
		"port":     cfg.Server.Port,
		"base_url": cfg.App.BaseURL,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopPruning()

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
