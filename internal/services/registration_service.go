package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/gatekeeper/internal/models"
	pkgauth "github.com/BradenHooton/gatekeeper/pkg/auth"
	pkglogger "github.com/BradenHooton/gatekeeper/pkg/logger"
)

// Notifier queues an email for asynchronous delivery. It never reports failure.
type Notifier interface {
	Send(to, subject, body string)
}

// RegisterInput carries the registration form fields
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// RegistrationService creates accounts and confirms their email addresses
type RegistrationService struct {
	repo        UserRepository
	hasher      PasswordHasher
	limits      *RateLimitService
	notifier    Notifier
	composer    *EmailComposer
	codeLength  int
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewRegistrationService creates a new RegistrationService
func NewRegistrationService(
	repo UserRepository,
	hasher PasswordHasher,
	limits *RateLimitService,
	notifier Notifier,
	composer *EmailComposer,
	codeLength int,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *RegistrationService {
	return &RegistrationService{
		repo:        repo,
		hasher:      hasher,
		limits:      limits,
		notifier:    notifier,
		composer:    composer,
		codeLength:  codeLength,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Register creates an unconfirmed account and mails its confirmation code.
// A duplicate email counts against the limiter; a weak password does not.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := NormalizeEmail(in.Email)
	limiter := s.limits.For(models.FormRegistration, email)

	if err := checkLimit(ctx, limiter, s.logger); err != nil {
		if errors.Is(err, models.ErrRateLimited) {
			s.audit(models.FormRegistration, "register_failed", email, 0, "rate_limited")
		}
		return nil, err
	}

	_, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		s.logger.Info("registration rejected: email already registered")
		s.audit(models.FormRegistration, "register_failed", email, 0, "duplicate_email")
		return nil, recordFailure(ctx, limiter, s.logger, models.ErrDuplicateEmail)
	case !errors.Is(err, models.ErrNotFound):
		s.logger.Error("failed to check existing user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ValidatePassword(in.Password); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrWeakPassword, err)
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	code := pkgauth.GenerateConfirmationCode(s.codeLength)
	created, err := s.repo.Create(ctx, &models.User{
		FirstName:        in.FirstName,
		LastName:         in.LastName,
		Email:            email,
		HashedPassword:   hashed,
		ConfirmationCode: &code,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			// Lost a race with a concurrent registration for the same address
			return nil, recordFailure(ctx, limiter, s.logger, models.ErrDuplicateEmail)
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := limiter.Reset(ctx); err != nil {
		s.logger.Error("failed to reset registration attempts", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.sendConfirmation(created.Email, code)

	s.logger.Info("user registered", slog.Int64("user_id", created.ID))
	s.audit(models.FormRegistration, "register_success", email, created.ID, "")

	return created, nil
}

// ConfirmEmail marks the account confirmed when (email, code) matches.
// The limiter is keyed on the email whether or not the code is right.
func (s *RegistrationService) ConfirmEmail(ctx context.Context, email, code string) error {
	email = NormalizeEmail(email)
	limiter := s.limits.For(models.FormConfirmEmail, email)

	if err := checkLimit(ctx, limiter, s.logger); err != nil {
		if errors.Is(err, models.ErrRateLimited) {
			s.audit(models.FormConfirmEmail, "confirm_failed", email, 0, "rate_limited")
		}
		return err
	}

	user, err := s.repo.ConfirmByEmailAndCode(ctx, email, code)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("confirmation failed: invalid code")
			s.audit(models.FormConfirmEmail, "confirm_failed", email, 0, "invalid_code")
			return recordFailure(ctx, limiter, s.logger, models.ErrInvalidOrExpiredCode)
		}
		s.logger.Error("failed to confirm user", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := limiter.Reset(ctx); err != nil {
		s.logger.Error("failed to reset confirmation attempts", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("email confirmed", slog.Int64("user_id", user.ID))
	s.audit(models.FormConfirmEmail, "confirm_success", email, user.ID, "")
	s.auditLogger.LogAccountAction("email_confirmed", user.ID, map[string]string{"form_type": string(models.FormConfirmEmail)})

	return nil
}

func (s *RegistrationService) sendConfirmation(to, code string) {
	body, err := s.composer.ConfirmationEmail(code)
	if err != nil {
		s.logger.Error("failed to render confirmation email", slog.Any("error", err))
		return
	}
	s.notifier.Send(to, ConfirmationSubject, body)
}

func (s *RegistrationService) audit(form models.FormType, eventType, email string, userID int64, reason string) {
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     eventType,
		FormType:      string(form),
		UserID:        userID,
		Email:         email,
		Success:       reason == "",
		FailureReason: reason,
	})
}
