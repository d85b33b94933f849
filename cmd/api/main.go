package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mkowalczyk/authguard/internal/alert"
	"github.com/mkowalczyk/authguard/internal/background"
	"github.com/mkowalczyk/authguard/internal/config"
	"github.com/mkowalczyk/authguard/internal/database"
	"github.com/mkowalczyk/authguard/internal/email"
	"github.com/mkowalczyk/authguard/internal/guard"
	"github.com/mkowalczyk/authguard/internal/handlers"
	"github.com/mkowalczyk/authguard/internal/identity"
	middlewareCustom "github.com/mkowalczyk/authguard/internal/middleware"
	"github.com/mkowalczyk/authguard/internal/ipinfo"
	"github.com/mkowalczyk/authguard/internal/models"
	"github.com/mkowalczyk/authguard/internal/repositories"
	"github.com/mkowalczyk/authguard/internal/routes"
	pkgauth "github.com/mkowalczyk/authguard/pkg/auth"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	eventRepo := repositories.NewSecurityEventRepository(db)
	blockRepo := repositories.NewBlockedAddressRepository(db)

	// Reset mailer and identity provider
	mailer, err := email.NewSESMailer(cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
	if err != nil {
		logger.Error("failed to initialize mailer", slog.Any("error", err))
		os.Exit(1)
	}
	provider := identity.NewProvider(userRepo, mailer, cfg.Auth.SessionSecret, cfg.Auth.SessionExpiry, logger)

	// Security alert sink: SES when a contact address is configured,
	// otherwise a webhook, otherwise none.
	var alertSink guard.AlertSink
	switch {
	case cfg.Alert.EmailAddress != "":
		alertSink, err = alert.NewSESSink(cfg.Email.AWSRegion, cfg.Email.FromAddress, cfg.Alert.EmailAddress, logger)
		if err != nil {
			logger.Error("failed to initialize alert sink", slog.Any("error", err))
			os.Exit(1)
		}
	case cfg.Alert.WebhookURL != "":
		alertSink = alert.NewWebhookSink(cfg.Alert.WebhookURL)
	}

	// The security guard
	securityGuard := guard.New(
		provider,
		eventRepo,
		ipinfo.NewClient(os.Getenv("IP_LOOKUP_ENDPOINT")),
		alertSink,
		blockRepo,
		guard.Config{
			MaxFailedAttempts: cfg.Guard.MaxFailedAttempts,
			AttemptWindow:     cfg.Guard.AttemptWindow,
			SessionTimeout:    cfg.Guard.SessionTimeout,
			ResetRedirectURL:  cfg.Guard.ResetRedirectURL,
		},
		logger,
	)

	janitor := background.NewJanitor(securityGuard, logger, cfg.Guard.PruneInterval)

	// Handlers
	authHandler := handlers.NewAuthHandler(securityGuard, provider, cfg.Server.Env)
	adminHandler := handlers.NewAdminHandler(securityGuard, eventRepo)

	// Bootstrap first admin user if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(ctx, userRepo, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	// Router
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.CORSConfig{AllowedOrigins: cfg.Server.AllowedOrigins}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, authHandler, adminHandler, securityGuard)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := db.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Background tasks
	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	defer backgroundCancel()

	securityGuard.StartIdleWatchdog(backgroundCtx)
	go janitor.Start(backgroundCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	backgroundCancel()
	janitor.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminUser creates the first admin account if ADMIN_EMAIL and
// ADMIN_PASSWORD are set.
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	_, err := userRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	if result := guard.ValidatePassword(adminPassword); !result.Valid {
		return fmt.Errorf("ADMIN_PASSWORD does not meet the password policy: %v", result.Violations)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	now := time.Now()
	admin := &models.User{
		Email:             adminEmail,
		PasswordHash:      hashedPassword,
		Name:              "Admin",
		Role:              "admin",
		PasswordChangedAt: &now,
	}

	if _, err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
