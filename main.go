package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"medvault/internal/ai"
	"medvault/internal/config"
	"medvault/internal/gmail"
	"medvault/internal/handler"
	"medvault/internal/logger"
	"medvault/internal/repository"
	"medvault/internal/repository/memory"
	"medvault/internal/repository/postgres"
	"medvault/internal/router"
	"medvault/internal/service"
	"medvault/internal/sse"
	"medvault/internal/storage"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Config validation failed:", err)
	}

	// Initialize logger
	appLogger := logger.New()

	// Initialize repositories (postgres or in-memory based on DATABASE_URL)
	var userRepo repository.UserRepository
	var recordRepo repository.HealthRecordRepository
	var sessionRepo repository.ScanSessionRepository
	var shareRepo repository.ShareRepository
	var prefsRepo repository.PreferencesRepository

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		defer db.Close()

		if err := postgres.InitializeDatabase(db); err != nil {
			log.Fatal("Failed to initialize database:", err)
		}

		userRepo = postgres.NewPostgresUserRepository(db)
		recordRepo = postgres.NewPostgresHealthRecordRepository(db)
		sessionRepo = postgres.NewPostgresScanSessionRepository(db)
		shareRepo = postgres.NewPostgresShareRepository(db)
		prefsRepo = postgres.NewPostgresPreferencesRepository(db)

		appLogger.Info("Using PostgreSQL repositories")
	} else {
		userRepo = memory.NewMemoryUserRepository()
		recordRepo = memory.NewMemoryHealthRecordRepository()
		sessionRepo = memory.NewMemoryScanSessionRepository()
		shareRepo = memory.NewMemoryShareRepository()
		prefsRepo = memory.NewMemoryPreferencesRepository()

		appLogger.Info("Using in-memory repositories")
	}

	externalTimeout := time.Duration(cfg.ExternalTimeoutSec) * time.Second

	// Object storage client
	store, err := storage.NewClient(context.Background(), storage.Options{
		Endpoint:  cfg.StorageEndpoint,
		Region:    cfg.StorageRegion,
		Bucket:    cfg.StorageBucket,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		Timeout:   externalTimeout,
	}, appLogger)
	if err != nil {
		log.Fatal("Failed to initialize object storage:", err)
	}

	// AI clients
	classifier := ai.NewClassifier(cfg.OpenAIKey, cfg.ClassifierModel, cfg.ScreenBatchSize, cfg.ClassifyThreshold, appLogger)
	analyzer := ai.NewAnalyzer(cfg.AnthropicKey, cfg.AnalyzerModel, externalTimeout, appLogger)

	// Mail provider wiring: one client per user token, refreshed on expiry
	tokenManager := gmail.NewTokenManager(cfg.GoogleClientID, cfg.GoogleClientSecret)
	clientFactory := func(accessToken string) (service.GmailClient, error) {
		return gmail.NewGmailClient(accessToken, cfg.ScanPageSize, externalTimeout, appLogger)
	}

	// SSE manager for real-time scan updates
	sseManager := sse.NewSSEManager(appLogger)
	defer sseManager.Close()

	// Initialize services
	authService := service.NewAuthService(userRepo, appLogger)
	preferencesService := service.NewPreferencesService(prefsRepo, appLogger)
	documentService := service.NewDocumentService(recordRepo, analyzer, store, appLogger)
	shareService := service.NewShareService(shareRepo, recordRepo, appLogger)
	scanService := service.NewScanService(
		sessionRepo,
		userRepo,
		prefsRepo,
		documentService,
		classifier,
		clientFactory,
		tokenManager,
		sseManager,
		cfg.ScanMaxPages,
		appLogger,
	)

	// Initialize handlers
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	authHandler := handler.NewAuthHandler(authService, cfg, e.Logger)
	documentHandler := handler.NewDocumentHandler(documentService, preferencesService, authHandler, e.Logger)
	scanHandler := handler.NewScanHandler(scanService, authHandler, sseManager, e.Logger)
	shareHandler := handler.NewShareHandler(shareService, authHandler, e.Logger)
	preferencesHandler := handler.NewPreferencesHandler(preferencesService, authHandler, e.Logger)

	router.SetupRoutes(e, authHandler, documentHandler, scanHandler, shareHandler, preferencesHandler)

	// Start server
	appLogger.Info("Starting server on port", cfg.Port)
	if err := e.Start(":" + cfg.Port); err != nil {
		appLogger.Error("Failed to start server:", err)
	}
}
