package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"atelier-backend/internal/config"
	"atelier-backend/internal/database"
	"atelier-backend/internal/designapi"
	"atelier-backend/internal/email"
	"atelier-backend/internal/handlers"
	"atelier-backend/internal/logger"
	"atelier-backend/internal/middleware"
	"atelier-backend/internal/payments"
	"atelier-backend/internal/reconapi"
	"atelier-backend/internal/settings"
	"atelier-backend/internal/storage"
	"atelier-backend/internal/verification"
	"atelier-backend/internal/workflow"
)

func main() {
	// Load .env when present; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog, err := logger.New(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLog.Sync()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Database + migrations
	dbClient, err := database.NewClient(cfg.DatabaseURL)
	if err != nil {
		appLog.Fatal("failed to connect to database", "error", err)
	}
	defer dbClient.Close()

	migrator, err := database.NewMigrator(cfg.DatabaseURL, appLog)
	if err != nil {
		appLog.Fatal("failed to initialize migrator", "error", err)
	}
	if err := migrator.Run(); err != nil {
		appLog.Fatal("migration failed", "error", err)
	}
	migrator.Close()

	// Redis backs the verification challenge store and the settings cache.
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		appLog.Fatal("invalid REDIS_URL", "error", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	// External clients
	designClient := designapi.NewClient(cfg.DesignAPIBaseURL, cfg.DesignAPIKey)
	reconClient := reconapi.NewClient(cfg.ReconAPIBaseURL, cfg.ReconAPIKey)
	paymentsClient := payments.NewClient(cfg.PaymentAPIBaseURL, cfg.PaymentAPIKey)

	storageClient, err := storage.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
	if err != nil {
		appLog.Fatal("failed to initialize storage client", "error", err)
	}

	// Domain services
	settingsResolver := settings.NewResolver(cfg.SettingsURL, redisClient, appLog)
	sequencer := workflow.NewSequencer(dbClient, appLog)
	orchestrator := workflow.NewOrchestrator(dbClient, designClient, appLog)
	tracker := workflow.NewTracker(dbClient, reconClient, appLog)

	emailSender := email.NewSender(cfg.SendGridAPIKey, cfg.EmailFromName, cfg.EmailFromAddr)
	verificationSvc := verification.NewService(
		verification.NewRedisStore(redisClient),
		emailSender,
		dbClient,
		cfg.JWTSecret,
		cfg.TestVerificationEnabled,
		cfg.TestVerificationEmail,
		appLog,
	)

	// Handlers
	applicationHandler := handlers.NewApplicationHandler(dbClient, storageClient, orchestrator, sequencer, settingsResolver, appLog)
	generateHandler := handlers.NewGenerateHandler(dbClient, orchestrator, settingsResolver, appLog)
	variantHandler := handlers.NewVariantHandler(dbClient, tracker, appLog)
	decorationHandler := handlers.NewDecorationHandler(dbClient, settingsResolver, appLog)
	verificationHandler := handlers.NewVerificationHandler(verificationSvc, appLog)
	orderHandler := handlers.NewOrderHandler(dbClient, paymentsClient, appLog)
	settingsHandler := handlers.NewSettingsHandler(settingsResolver)

	router := gin.Default()
	router.Use(gin.Recovery())

	// Health check (no auth)
	router.GET("/health", handlers.HealthHandler)

	api := router.Group("/api/v1")
	api.Use(middleware.SessionMiddleware())
	api.Use(middleware.AuthMiddleware(cfg))

	// Application lifecycle
	api.POST("/applications", applicationHandler.Create)
	api.GET("/applications/:application_id", applicationHandler.Get)
	api.PATCH("/applications/:application_id", applicationHandler.Update)

	// Generation and selection
	api.POST("/applications/:application_id/generate", generateHandler.Generate)
	api.POST("/applications/:application_id/select", variantHandler.Select)
	api.GET("/applications/:application_id/model", variantHandler.ModelStatus)

	// Decorations
	api.POST("/applications/:application_id/decorations", decorationHandler.Place)
	api.DELETE("/applications/:application_id/decorations/:placement_id", decorationHandler.Remove)

	// Identity verification
	api.POST("/verification/request", verificationHandler.RequestCode)
	api.POST("/verification/verify", verificationHandler.VerifyCode)

	// Checkout
	api.POST("/applications/:application_id/order", orderHandler.Submit)
	api.POST("/applications/:application_id/payment", orderHandler.CreatePayment)

	// Settings
	api.GET("/settings", settingsHandler.Get)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		appLog.Info("server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	appLog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("server shutdown failed", "error", err)
	}

	// Stop background pollers and wait for in-flight generation writes.
	tracker.Stop()
	orchestrator.Drain()
	appLog.Info("shutdown complete")
}
