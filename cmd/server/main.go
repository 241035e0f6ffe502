package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"fintrack/internal/backend"
	"fintrack/internal/classifier"
	"fintrack/internal/config"
	"fintrack/internal/database"
	"fintrack/internal/dedupe"
	"fintrack/internal/logger"
	"fintrack/internal/router"
	"fintrack/internal/services"
	"fintrack/internal/tokenstore"
	"fintrack/internal/validator"

	_ "fintrack/internal/docs" // Import swagger docs
)

// @title           fintrack API
// @version         1.0
// @description     Local companion service for a personal finance backend: quick-add forms, statement uploads and keyword classification.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description Local API key

const sweepInterval = time.Minute

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.Register()

	// Local store
	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	tokens, err := tokenstore.New(dbManager.DB(), cfg.TokenStoreKey)
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}

	// Remote finance backend
	backendLog := logger.Named("backend")
	client := backend.New(backend.Options{
		BaseURL:  cfg.BackendURL,
		Timeout:  cfg.RequestTimeout,
		Tokens:   tokens,
		Location: cfg.Location,
		Log:      backendLog,
		OnLogout: func() {
			backendLog.Warn("Session expired, stored tokens cleared")
		},
	})

	rules, err := classifier.LoadRules(cfg.RulesFile)
	if err != nil {
		return fmt.Errorf("failed to load keyword rules: %w", err)
	}
	keywords := classifier.New(rules)

	strategy, err := dedupe.ParseStrategy(cfg.DuplicateStrategy)
	if err != nil {
		return err
	}
	duplicates := dedupe.New(client, dedupe.Config{
		WindowDays:        cfg.DuplicateWindowDays,
		FetchLimit:        cfg.DuplicateFetchLimit,
		MinDescriptionLen: cfg.DuplicateMinDescriptionLen,
		Strategy:          strategy,
	}, logger.Named("dedupe"))

	// Initialize services
	uploadRunService := services.NewUploadRunService(dbManager.DB(), logger.Named("runs"))
	formService := services.NewFormService(services.FormServiceOptions{
		Backend:    client,
		Classifier: keywords,
		Delay:      cfg.DebounceDelay,
		Location:   cfg.Location,
		IdleTTL:    cfg.FormIdleTTL,
		Log:        logger.Named("forms"),
	})
	uploadService := services.NewUploadService(services.UploadServiceOptions{
		Backend:            client,
		Duplicates:         duplicates,
		Runs:               uploadRunService,
		MaxImageBytes:      cfg.MaxUploadBytes,
		ProcessingEstimate: cfg.ProcessingEstimate,
		SlowWarning:        cfg.SlowProcessingWarning,
		SaveConcurrency:    cfg.SaveConcurrency,
		IdleTTL:            cfg.FormIdleTTL,
		Log:                logger.Named("uploads"),
	})

	handler := router.New(router.Config{
		LocalAPIKey:    cfg.LocalAPIKey,
		Production:     cfg.IsProduction(),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxImageBytes:  cfg.MaxUploadBytes,
		Tokens:         tokens,
		Auth:           services.NewAuthService(client, tokens),
		Categories:     services.NewCategoryService(client),
		Classify:       services.NewClassifyService(keywords, client, logger.Named("classify")),
		Forms:          formService,
		Uploads:        uploadService,
		UploadRuns:     uploadRunService,
		Bills:          services.NewBillScanService(client, cfg.MaxUploadBytes),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go services.RunSweeper(ctx, sweepInterval, logger.Named("sweeper"), formService, uploadService)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		// Covers extraction plus one window fetch. Larger statements are
		// processed with async=true.
		WriteTimeout: 2*cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Starting fintrack server on port %s", cfg.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
