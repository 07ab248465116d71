package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/models"
	pkgauth "github.com/BradenHooton/gatekeeper/pkg/auth"
	pkglogger "github.com/BradenHooton/gatekeeper/pkg/logger"
)

// DefaultResetCodeTTL is how long a reset code stays valid
const DefaultResetCodeTTL = 10 * time.Minute

// PasswordResetService issues reset codes and applies new passwords
type PasswordResetService struct {
	repo        UserRepository
	hasher      PasswordHasher
	limits      *RateLimitService
	notifier    Notifier
	composer    *EmailComposer
	codeTTL     time.Duration
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

// NewPasswordResetService creates a new PasswordResetService
func NewPasswordResetService(
	repo UserRepository,
	hasher PasswordHasher,
	limits *RateLimitService,
	notifier Notifier,
	composer *EmailComposer,
	codeTTL time.Duration,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *PasswordResetService {
	if codeTTL <= 0 {
		codeTTL = DefaultResetCodeTTL
	}

	return &PasswordResetService{
		repo:        repo,
		hasher:      hasher,
		limits:      limits,
		notifier:    notifier,
		composer:    composer,
		codeTTL:     codeTTL,
		logger:      logger,
		auditLogger: auditLogger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ForgotPassword stores a fresh reset code on the account and mails it.
// An unknown email counts against the limiter keyed on that email.
func (s *PasswordResetService) ForgotPassword(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	limiter := s.limits.For(models.FormForgotPassword, email)

	if err := checkLimit(ctx, limiter, s.logger); err != nil {
		if errors.Is(err, models.ErrRateLimited) {
			s.audit(models.FormForgotPassword, "reset_request_failed", email, 0, "rate_limited")
		}
		return err
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email")
			s.audit(models.FormForgotPassword, "reset_request_failed", email, 0, "user_not_found")
			return recordFailure(ctx, limiter, s.logger, models.ErrNotFound)
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return models.ErrInternalServer
	}

	code, err := pkgauth.GenerateResetCode()
	if err != nil {
		s.logger.Error("failed to generate reset code", slog.Any("error", err))
		return models.ErrInternalServer
	}

	expiresAt := s.now().Add(s.codeTTL)
	user.PasswordResetCode = &code
	user.PasswordResetCodeExpiresAt = &expiresAt

	if _, err := s.repo.Update(ctx, user); err != nil {
		s.logger.Error("failed to store reset code", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := limiter.Reset(ctx); err != nil {
		s.logger.Error("failed to reset forgot-password attempts", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.sendResetCode(user.Email, code)

	s.logger.Info("password reset code issued", slog.Int64("user_id", user.ID))
	s.audit(models.FormForgotPassword, "reset_requested", email, user.ID, "")

	return nil
}

// ResetPassword applies newPassword to the account holding code. An unknown
// code fails before any limiter is consulted. A weak password is rejected
// without counting against the limiter.
func (s *PasswordResetService) ResetPassword(ctx context.Context, code, newPassword string) error {
	user, err := s.repo.GetByResetCode(ctx, code)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("password reset failed: unknown code")
			return models.ErrNotFound
		}
		s.logger.Error("failed to get user by reset code", slog.Any("error", err))
		return models.ErrInternalServer
	}

	limiter := s.limits.For(models.FormResetPassword, user.Email)

	if err := checkLimit(ctx, limiter, s.logger); err != nil {
		if errors.Is(err, models.ErrRateLimited) {
			s.audit(models.FormResetPassword, "reset_failed", user.Email, user.ID, "rate_limited")
		}
		return err
	}

	if user.ResetCodeExpired(s.now()) {
		s.auditLogger.LogPasswordChange(user.ID, false, "code_expired")
		return recordFailure(ctx, limiter, s.logger, models.ErrCodeExpired)
	}

	if user.PasswordResetCode == nil || subtle.ConstantTimeCompare([]byte(*user.PasswordResetCode), []byte(code)) != 1 {
		s.auditLogger.LogPasswordChange(user.ID, false, "invalid_code")
		return recordFailure(ctx, limiter, s.logger, models.ErrInvalidOrExpiredCode)
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %w", models.ErrWeakPassword, err)
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	user.HashedPassword = hashed
	user.IsConfirmed = true
	user.ConfirmationCode = nil
	user.PasswordResetCode = nil
	user.PasswordResetCodeExpiresAt = nil

	if _, err := s.repo.Update(ctx, user); err != nil {
		s.logger.Error("failed to store new password", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := limiter.Reset(ctx); err != nil {
		s.logger.Error("failed to reset password-reset attempts", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("password reset", slog.Int64("user_id", user.ID))
	s.auditLogger.LogPasswordChange(user.ID, true, "")

	return nil
}

func (s *PasswordResetService) sendResetCode(to, code string) {
	body, err := s.composer.ResetPasswordEmail(code, s.codeTTL)
	if err != nil {
		s.logger.Error("failed to render reset email", slog.Any("error", err))
		return
	}
	s.notifier.Send(to, ResetPasswordSubject, body)
}

func (s *PasswordResetService) audit(form models.FormType, eventType, email string, userID int64, reason string) {
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     eventType,
		FormType:      string(form),
		UserID:        userID,
		Email:         email,
		Success:       reason == "",
		FailureReason: reason,
	})
}
