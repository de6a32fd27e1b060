package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/translearn/translearn/internal"
	"github.com/translearn/translearn/internal/ai"
	"github.com/translearn/translearn/internal/billing"
	"github.com/translearn/translearn/internal/domain"
	"github.com/translearn/translearn/internal/handler"
	"github.com/translearn/translearn/internal/jobs"
	"github.com/translearn/translearn/internal/metrics"
	"github.com/translearn/translearn/internal/middleware"
	"github.com/translearn/translearn/internal/repository"
	"github.com/translearn/translearn/internal/service"
	"github.com/translearn/translearn/internal/sms"
	"github.com/translearn/translearn/internal/storage"
	"github.com/translearn/translearn/internal/ussd"
	"github.com/translearn/translearn/internal/worker"
)

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	queries := repository.New(db)

	// Initialize file storage
	var store storage.Storage
	switch cfg.StorageProvider {
	case storage.ProviderR2:
		store, err = storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
	default:
		store, err = storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		}, logger)
	}
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	logger.Info("Storage ready", "provider", cfg.StorageProvider)

	// Initialize external providers
	aiProvider, err := ai.New(ai.Config{
		Provider: cfg.AIProvider,
		APIKey:   cfg.AIAPIKey,
		BaseURL:  cfg.AIBaseURL,
		Model:    cfg.AIModel,
	})
	if err != nil {
		return fmt.Errorf("ai provider initialization failed: %w", err)
	}

	// Payments are optional: with no provider configured the checkout,
	// verify and webhook routes are simply not mounted.
	var paymentProvider billing.Provider
	if cfg.PaymentsEnabled() {
		paymentProvider, err = billing.New(billing.Config{
			Provider:      cfg.PaymentProvider,
			SecretKey:     cfg.PaymentSecretKey(),
			WebhookSecret: cfg.FlutterwaveWebhookSecret,
		}, nil)
		if err != nil {
			return fmt.Errorf("payment provider initialization failed: %w", err)
		}
	} else {
		logger.Warn("payments disabled: PAYMENT_PROVIDER is not set")
	}

	smsClient := sms.NewClient(sms.Config{
		Username: cfg.ATUsername,
		APIKey:   cfg.ATAPIKey,
		From:     cfg.ATFrom,
	})

	// Initialize services
	userService := service.NewUserService(queries, logger)
	quotaService := service.NewQuotaService(queries, logger)
	resourceService := service.NewResourceService(db, queries, quotaService, store, service.NewImagingProcessor(), logger)
	ratingService := service.NewRatingService(queries, logger)
	translationService := service.NewTranslationService(queries, logger)
	var paymentService service.PaymentService
	if paymentProvider != nil {
		paymentService = service.NewPaymentService(db, queries, paymentProvider, userService, cfg.BaseURL, logger)
	}

	// Initialize USSD state machine
	ussdSessions := ussd.NewSessionStore()
	go ussdSessions.StartSweeper(ctx)
	ussdService := ussd.NewService(ussdSessions, queries, logger)

	// Initialize background worker
	workerCfg := worker.DefaultConfig()
	workerCfg.Concurrency = cfg.WorkerConcurrency
	workerCfg.PollInterval = cfg.WorkerPollInterval
	workerCfg.JobTimeout = cfg.WorkerJobTimeout

	jobWorker, err := worker.New(db, queries, workerCfg, logger)
	if err != nil {
		return fmt.Errorf("worker initialization failed: %w", err)
	}
	jobWorker.Register(jobs.NewTranslateResourceHandler(queries, aiProvider, logger))
	jobWorker.Register(jobs.NewSeedUsagePeriodsHandler(quotaService, queries, logger))
	jobWorker.Register(jobs.NewSendSMSLinkHandler(queries, smsClient, logger))

	if cfg.WorkerEnabled {
		jobWorker.Start(ctx)
		defer jobWorker.Stop()
	} else {
		logger.Warn("Background worker disabled; translations, seeding and SMS jobs will queue up")
	}

	// Initialize middleware
	isSecure := cfg.Env != "development"
	authMw := middleware.NewAuthMiddleware(userService, logger, isSecure)
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	metricsAuthMw := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	adminAuthMw := middleware.NewAdminAuthMiddleware(cfg.AdminToken)
	authLimiter := middleware.NewAuthRateLimiter(logger)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(userService, logger, isSecure)
	resourceHandler := handler.NewResourceHandler(resourceService, logger)
	ratingHandler := handler.NewRatingHandler(ratingService, logger)
	translationHandler := handler.NewTranslationHandler(translationService, logger)
	quotaHandler := handler.NewQuotaHandler(quotaService, logger)
	ussdHandler := handler.NewUSSDHandler(ussdService, logger)
	adminHandler := handler.NewAdminHandler(queries, ussdSessions, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// JSON 404 for anything no route claims
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		handler.NotFoundResponse(w, r, logger)
	})

	// Health check
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics (basic auth when credentials are configured)
	mux.Handle("GET /metrics", metricsAuthMw.Handler(promhttp.Handler()))

	// Local storage file serving (development)
	if cfg.StorageProvider == storage.ProviderLocal {
		filesFS := http.FileServer(http.Dir(cfg.LocalStoragePath))
		mux.Handle("GET /files/", http.StripPrefix("/files/", filesFS))
	}

	// Middleware stacks
	withUser := middleware.Stack(authMw.WithUser)
	requireUser := middleware.Stack(authMw.WithUser, authMw.RequireUser)
	requireTeacher := middleware.Stack(authMw.WithUser, authMw.RequireUser, authMw.RequireRole(domain.RoleTeacher))

	// Auth routes (rate limited; login/register are anonymous)
	mux.Handle("POST /api/auth/register", authLimiter.LimitRegister(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/auth/login", authLimiter.LimitLogin(http.HandlerFunc(authHandler.Login)))
	mux.Handle("POST /api/auth/logout", withUser(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /api/auth/me", requireUser(http.HandlerFunc(authHandler.Me)))

	// Resource routes
	mux.Handle("POST /api/resources", requireTeacher(http.HandlerFunc(resourceHandler.Create)))
	mux.Handle("POST /api/resources/{id}/file", requireTeacher(http.HandlerFunc(resourceHandler.Upload)))
	mux.Handle("GET /api/resources", withUser(http.HandlerFunc(resourceHandler.List)))
	mux.Handle("GET /api/resources/{id}", withUser(http.HandlerFunc(resourceHandler.Get)))
	mux.Handle("DELETE /api/resources/{id}", requireUser(http.HandlerFunc(resourceHandler.Delete)))

	// Rating routes
	mux.Handle("POST /api/resources/{id}/ratings", requireUser(http.HandlerFunc(ratingHandler.Rate)))
	mux.Handle("GET /api/resources/{id}/ratings", withUser(http.HandlerFunc(ratingHandler.List)))

	// Translation routes
	mux.Handle("POST /api/resources/{id}/translations", requireUser(http.HandlerFunc(translationHandler.Request)))
	mux.Handle("GET /api/resources/{id}/translations", withUser(http.HandlerFunc(translationHandler.List)))

	// Quota routes
	mux.Handle("GET /api/quota", requireUser(http.HandlerFunc(quotaHandler.Check)))
	mux.Handle("GET /api/quota/history", requireUser(http.HandlerFunc(quotaHandler.History)))

	// Payment routes, only when a provider is configured
	if paymentService != nil {
		paymentHandler := handler.NewPaymentHandler(paymentService, logger)
		webhookHandler := handler.NewWebhookHandler(paymentService, paymentProvider, logger)

		mux.Handle("POST /api/payments/checkout", requireUser(http.HandlerFunc(paymentHandler.Checkout)))
		mux.Handle("GET /api/payments/verify", requireUser(http.HandlerFunc(paymentHandler.Verify)))
		mux.Handle("GET /api/payments", requireUser(http.HandlerFunc(paymentHandler.List)))

		// Provider webhooks (signature verified, no session auth)
		mux.HandleFunc("POST /api/webhooks/payments", webhookHandler.Handle)
	}

	// USSD gateway callback (Africa's Talking)
	mux.HandleFunc("POST /ussd", ussdHandler.Callback)

	// Admin routes (static bearer token)
	mux.Handle("POST /api/admin/quota/seed", adminAuthMw.Handler(http.HandlerFunc(adminHandler.SeedQuotaPeriods)))
	mux.Handle("GET /api/admin/users/{id}/quota", adminAuthMw.Handler(http.HandlerFunc(adminHandler.GetUserQuota)))
	mux.Handle("GET /api/admin/users/{id}/activity", adminAuthMw.Handler(http.HandlerFunc(adminHandler.GetUserActivity)))
	mux.Handle("GET /api/admin/ussd/sessions", adminAuthMw.Handler(http.HandlerFunc(adminHandler.ListUSSDSessions)))
	mux.Handle("DELETE /api/admin/ussd/sessions/{id}", adminAuthMw.Handler(http.HandlerFunc(adminHandler.DeleteUSSDSession)))

	// Outer middleware: security headers, metrics, request logging
	root := middleware.Stack(
		securityMw.Handler,
		metrics.Middleware,
		loggingMw.Handler,
	)(mux)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
