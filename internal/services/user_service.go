package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/BradenHooton/gatekeeper/internal/models"
)

// UserRepository defines the interface for user data access. Lookups return
// models.ErrNotFound when no account matches.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByResetCode(ctx context.Context, code string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)
	ConfirmByEmailAndCode(ctx context.Context, email, code string) (*models.User, error)
}

// UserService serves account reads
type UserService struct {
	repo   UserRepository
	logger *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(repo UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger,
	}
}

// GetProfile retrieves the account behind an authenticated session
func (s *UserService) GetProfile(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("user not found", slog.Int64("user_id", id))
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.Int64("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return user, nil
}

// NormalizeEmail is the canonical form used for account lookups and attempt identifiers
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
