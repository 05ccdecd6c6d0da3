package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"gorm.io/gorm/logger"

	"github.com/pytorch/alerting-infra/internal/config"
	"github.com/pytorch/alerting-infra/internal/database"
	"github.com/pytorch/alerting-infra/internal/handlers"
	"github.com/pytorch/alerting-infra/internal/middleware"
	"github.com/pytorch/alerting-infra/internal/notify"
	"github.com/pytorch/alerting-infra/internal/pipeline"
	"github.com/pytorch/alerting-infra/internal/resilience"
	"github.com/pytorch/alerting-infra/internal/secrets"
	"github.com/pytorch/alerting-infra/internal/store"
	"github.com/pytorch/alerting-infra/internal/tracker"
)

// slackTokenKey is the secrets-provider key for the notifier token.
const slackTokenKey = "SLACK_TOKEN"

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", "error", err)
	}

	log.Info("starting alerting service")

	if cfg.AdminPassword == "" {
		log.Fatal("ADMIN_PASSWORD is not set")
	}
	passwordHash, err := middleware.HashPassword(cfg.AdminPassword)
	if err != nil {
		log.Fatal("failed to hash admin password", "error", err)
	}

	jwtAuth := middleware.NewJWTAuthMiddleware(&middleware.JWTAuthConfig{
		Enabled:           cfg.AuthEnabled,
		AdminUsername:     cfg.AdminUsername,
		AdminPasswordHash: passwordHash,
		JWTSecret:         cfg.JWTSecret,
		JWTExpiryHours:    cfg.JWTExpiryHours,
		SkipPaths: []string{
			"/health",
			"/metrics",
			"/webhook",
			"/webhook/*",
			"/auth/login",
		},
	})

	db, err := database.Connect(cfg.DatabaseURL, logger.Warn)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal("failed to run database migrations", "error", err)
	}
	log.Info("database ready")

	// Secrets: JSON file with env fallback, or env only, behind a TTL cache.
	var secretSource secrets.Provider = secrets.EnvProvider{}
	if cfg.SecretsFile != "" {
		secretSource = secrets.NewFileProvider(cfg.SecretsFile)
	}
	secretProvider := secrets.NewCachingProvider(secretSource, cfg.SecretsCacheTTL)

	if cfg.TrackerOwner == "" || cfg.TrackerRepo == "" {
		log.Fatal("TRACKER_OWNER and TRACKER_REPO must be set")
	}
	trackerClient := tracker.NewGitHubClient(cfg.TrackerBaseURL, cfg.TrackerOwner, cfg.TrackerRepo, secretProvider)

	breaker := resilience.NewBreaker(cfg.Policy.BreakerThreshold, cfg.Policy.BreakerWindow, cfg.Policy.BreakerCooldown)
	limiter := resilience.NewLimiter(cfg.Policy.LimiterRate, cfg.Policy.LimiterBurst)

	slackToken, _ := secretProvider.Get(slackTokenKey)
	notifier := notify.NewNotifier(slackToken, cfg.SlackChannel)
	if notifier.Enabled() {
		log.Info("slack notices enabled", "channel", cfg.SlackChannel)
	}

	st := store.NewGormStore(db)
	processor := pipeline.NewProcessor(st, trackerClient, breaker, limiter, notifier, cfg.Policy.MutationWait)

	webhookHandler := handlers.NewWebhookHandler(processor, cfg.IngestTopic, cfg.IngestRegion)
	statesHandler := handlers.NewStatesHandler(st)
	authHandler := handlers.NewAuthHandler(jwtAuth)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: handlers.NewRouter(webhookHandler, statesHandler, authHandler, jwtAuth),
	}

	go func() {
		log.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	if err := httpServer.Close(); err != nil {
		log.Error("error shutting down HTTP server", "error", err)
	}
	database.Close(db)
	log.Info("shutdown complete")
}
