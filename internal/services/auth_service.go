package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/BradenHooton/gatekeeper/internal/models"
	pkglogger "github.com/BradenHooton/gatekeeper/pkg/logger"
)

// PasswordHasher hashes and verifies account passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

// TokenIssuer signs session tokens
type TokenIssuer interface {
	Issue(subject string, userID int64) (string, error)
}

// LoginResult is returned on a successful login
type LoginResult struct {
	AccessToken string
	User        *models.User
}

// AuthService verifies credentials and issues session tokens
type AuthService struct {
	repo        UserRepository
	hasher      PasswordHasher
	tokens      TokenIssuer
	limits      *RateLimitService
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(repo UserRepository, hasher PasswordHasher, tokens TokenIssuer, limits *RateLimitService, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		repo:        repo,
		hasher:      hasher,
		tokens:      tokens,
		limits:      limits,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Login authenticates email and password. Only bad credentials count against
// the limiter; an unconfirmed account is rejected without touching it.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)
	limiter := s.limits.For(models.FormLogin, email)

	if err := checkLimit(ctx, limiter, s.logger); err != nil {
		if errors.Is(err, models.ErrRateLimited) {
			s.audit(email, 0, false, "rate_limited")
		}
		return nil, err
	}

	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			s.logger.Info("login failed: invalid credentials")
			s.audit(email, 0, false, "invalid_credentials")
			return nil, recordFailure(ctx, limiter, s.logger, err)
		}
		return nil, err
	}

	if !user.IsConfirmed {
		s.logger.Info("login blocked: email not confirmed", slog.Int64("user_id", user.ID))
		s.audit(email, user.ID, false, "unconfirmed")
		return nil, models.ErrUnconfirmed
	}

	if err := limiter.Reset(ctx); err != nil {
		s.logger.Error("failed to reset login attempts", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	token, err := s.tokens.Issue(user.Email, user.ID)
	if err != nil {
		s.logger.Error("failed to issue access token", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in", slog.Int64("user_id", user.ID))
	s.audit(email, user.ID, true, "")

	return &LoginResult{AccessToken: token, User: user}, nil
}

// authenticate resolves the account and checks the password hash
func (s *AuthService) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !s.hasher.Verify(password, user.HashedPassword) {
		return nil, models.ErrInvalidCredentials
	}

	return user, nil
}

func (s *AuthService) audit(email string, userID int64, success bool, reason string) {
	eventType := "login_success"
	if !success {
		eventType = "login_failed"
	}
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     eventType,
		FormType:      string(models.FormLogin),
		UserID:        userID,
		Email:         email,
		Success:       success,
		FailureReason: reason,
	})
}

// checkLimit turns the limiter verdict into a flow error
func checkLimit(ctx context.Context, limiter *RateLimiter, logger *slog.Logger) error {
	limited, err := limiter.IsLimited(ctx)
	if err != nil {
		logger.Error("failed to evaluate rate limit", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if limited {
		return models.ErrRateLimited
	}
	return nil
}

// recordFailure increments the limiter and returns cause, or an infrastructure
// error if the counter could not be updated
func recordFailure(ctx context.Context, limiter *RateLimiter, logger *slog.Logger, cause error) error {
	if err := limiter.Increment(ctx); err != nil {
		logger.Error("failed to record attempt", slog.Any("error", err))
		return models.ErrInternalServer
	}
	return cause
}
