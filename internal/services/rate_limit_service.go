package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/models"
	pkglogger "github.com/BradenHooton/gatekeeper/pkg/logger"
)

// maxCreateRetries bounds how often Increment re-reads after losing a create race
const maxCreateRetries = 3

// AttemptStore defines the persistence contract for attempt counters
type AttemptStore interface {
	// Get returns nil, nil when no record exists for the pair
	Get(ctx context.Context, formType models.FormType, identifier string) (*models.AttemptRecord, error)
	// Create inserts a record with attempts=1, failing with models.ErrConflict if one exists
	Create(ctx context.Context, formType models.FormType, identifier string, at time.Time) (*models.AttemptRecord, error)
	Increment(ctx context.Context, rec *models.AttemptRecord, at time.Time) error
	Reset(ctx context.Context, rec *models.AttemptRecord) error
}

// RateLimitConfig holds configuration for rate limiting behavior
type RateLimitConfig struct {
	MaxAttempts     int
	LockoutDuration time.Duration
}

// DefaultRateLimitConfig allows five attempts and locks for ten minutes
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts:     5,
		LockoutDuration: 10 * time.Minute,
	}
}

// RateLimitService hands out limiters bound to one (form type, identifier) pair
type RateLimitService struct {
	store  AttemptStore
	config RateLimitConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewRateLimitService creates a new RateLimitService
func NewRateLimitService(store AttemptStore, config RateLimitConfig, logger *slog.Logger) *RateLimitService {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultRateLimitConfig().MaxAttempts
	}
	if config.LockoutDuration <= 0 {
		config.LockoutDuration = DefaultRateLimitConfig().LockoutDuration
	}

	return &RateLimitService{
		store:  store,
		config: config,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// For returns a limiter for the given form and identifier
func (s *RateLimitService) For(formType models.FormType, identifier string) *RateLimiter {
	return &RateLimiter{
		svc:        s,
		formType:   formType,
		identifier: identifier,
	}
}

// RateLimiter evaluates and mutates the counter of a single pair
type RateLimiter struct {
	svc        *RateLimitService
	formType   models.FormType
	identifier string
}

// IsLimited reports whether the pair is locked out. A lockout whose window has
// elapsed is cleared as part of the check, so callers must honour the result.
func (l *RateLimiter) IsLimited(ctx context.Context) (bool, error) {
	rec, err := l.svc.store.Get(ctx, l.formType, l.identifier)
	if err != nil {
		return false, fmt.Errorf("failed to load attempt record: %w", err)
	}

	if rec == nil || !rec.Exhausted(l.svc.config.MaxAttempts) {
		return false, nil
	}

	now := l.svc.now()
	if now.Before(rec.LockedUntil(l.svc.config.LockoutDuration)) {
		l.svc.logger.Warn("form submission rate limited",
			slog.String("form_type", string(l.formType)),
			slog.String("identifier", pkglogger.SanitizedEmail(l.identifier)),
			slog.Int("attempts", rec.Attempts),
			slog.Time("locked_until", rec.LockedUntil(l.svc.config.LockoutDuration)))
		return true, nil
	}

	if err := l.svc.store.Reset(ctx, rec); err != nil {
		return false, fmt.Errorf("failed to expire lockout: %w", err)
	}

	l.svc.logger.Info("lockout expired",
		slog.String("form_type", string(l.formType)),
		slog.String("identifier", pkglogger.SanitizedEmail(l.identifier)))

	return false, nil
}

// Increment records one failed attempt, creating the record on first use.
// Attempts are not capped here; only IsLimited interprets the threshold.
func (l *RateLimiter) Increment(ctx context.Context) error {
	for i := 0; i < maxCreateRetries; i++ {
		now := l.svc.now()

		rec, err := l.svc.store.Get(ctx, l.formType, l.identifier)
		if err != nil {
			return fmt.Errorf("failed to load attempt record: %w", err)
		}

		if rec != nil {
			if err := l.svc.store.Increment(ctx, rec, now); err != nil {
				return fmt.Errorf("failed to increment attempts: %w", err)
			}
			return nil
		}

		_, err = l.svc.store.Create(ctx, l.formType, l.identifier, now)
		if err == nil {
			return nil
		}
		if !errors.Is(err, models.ErrConflict) {
			return fmt.Errorf("failed to create attempt record: %w", err)
		}

		// Another request created the record first; count against it instead
		l.svc.logger.Debug("attempt record created concurrently, retrying as increment",
			slog.String("form_type", string(l.formType)))
	}

	return fmt.Errorf("failed to record attempt after %d retries: %w", maxCreateRetries, models.ErrConflict)
}

// Reset zeroes the counter. A missing record is not an error.
func (l *RateLimiter) Reset(ctx context.Context) error {
	rec, err := l.svc.store.Get(ctx, l.formType, l.identifier)
	if err != nil {
		return fmt.Errorf("failed to load attempt record: %w", err)
	}
	if rec == nil {
		return nil
	}

	if err := l.svc.store.Reset(ctx, rec); err != nil {
		return fmt.Errorf("failed to reset attempts: %w", err)
	}
	return nil
}
