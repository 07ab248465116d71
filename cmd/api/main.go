package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/BradenHooton/gatekeeper/internal/auth"
	"github.com/BradenHooton/gatekeeper/internal/background"
	"github.com/BradenHooton/gatekeeper/internal/config"
	"github.com/BradenHooton/gatekeeper/internal/database"
	"github.com/BradenHooton/gatekeeper/internal/handlers"
	"github.com/BradenHooton/gatekeeper/internal/i18n"
	middlewareCustom "github.com/BradenHooton/gatekeeper/internal/middleware"
	"github.com/BradenHooton/gatekeeper/internal/repositories"
	"github.com/BradenHooton/gatekeeper/internal/routes"
	"github.com/BradenHooton/gatekeeper/internal/services"
	pkgauth "github.com/BradenHooton/gatekeeper/pkg/auth"
	pkghttp "github.com/BradenHooton/gatekeeper/pkg/http"
	pkglogger "github.com/BradenHooton/gatekeeper/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, cfg.Database.DSN(), logger); err != nil {
			return err
		}
	}

	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Storage
	userRepo := repositories.NewUserRepository(db)
	attemptRepo := repositories.NewAttemptRepository(db)

	// Outbound mail
	mailer, err := newMailer(ctx, cfg.Email, cfg.Server.Env, logger)
	if err != nil {
		return err
	}
	dispatcher := background.NewDispatcher(mailer, logger, cfg.Email.Workers, cfg.Email.QueueSize)
	dispatcher.Start(ctx)

	composer, err := services.NewEmailComposer()
	if err != nil {
		return err
	}

	catalog, err := i18n.NewCatalog(cfg.Locale.DefaultLanguage)
	if err != nil {
		return fmt.Errorf("failed to load translations: %w", err)
	}

	// Flows
	auditLogger := pkglogger.NewAuditLogger(logger)
	hasher := pkgauth.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)
	limits := services.NewRateLimitService(attemptRepo, services.RateLimitConfig{
		MaxAttempts:     cfg.RateLimit.MaxAttempts,
		LockoutDuration: cfg.RateLimit.LockoutDuration,
	}, logger)

	authService := services.NewAuthService(userRepo, hasher, tokenManager, limits, logger, auditLogger)
	registrationService := services.NewRegistrationService(userRepo, hasher, limits, dispatcher, composer,
		cfg.Auth.ConfirmationCodeLength, logger, auditLogger)
	resetService := services.NewPasswordResetService(userRepo, hasher, limits, dispatcher, composer,
		cfg.Auth.ResetCodeTTL, logger, auditLogger)
	userService := services.NewUserService(userRepo, logger)

	// HTTP
	authHandler := handlers.NewAuthHandler(authService, registrationService, resetService, catalog, logger)
	userHandler := handlers.NewUserHandler(userService, catalog, logger)

	ipConfig := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	throttle := middlewareCustom.ThrottleByIP(middlewareCustom.ThrottleConfig{
		RequestsPerMinute: cfg.Server.IPRequestsPerMinute,
		IPConfig:          ipConfig,
	}, catalog)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.NotFound(handlers.NotFound(catalog))
	routes.RegisterRoutes(router, authHandler, userHandler, tokenManager, throttle, handlers.Health(db, logger))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		dispatcher.Stop()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	// Queued mail is flushed after the last request has been served
	dispatcher.Stop()

	logger.Info("server stopped gracefully")
	return nil
}

// newMailer picks the delivery backend named by EMAIL_PROVIDER
func newMailer(ctx context.Context, cfg config.EmailConfig, env string, logger *slog.Logger) (background.Mailer, error) {
	switch cfg.Provider {
	case "smtp":
		return services.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.FromAddress, logger), nil
	case "ses":
		m, err := services.NewSESMailer(ctx, cfg.AWSRegion, cfg.FromAddress, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialise SES: %w", err)
		}
		return m, nil
	default:
		return services.NewLogMailer(logger, env), nil
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
