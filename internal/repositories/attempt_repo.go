package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/database"
	"github.com/BradenHooton/gatekeeper/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttemptRepository persists per-(form type, identifier) attempt counters.
// It applies no policy; RateLimitService interprets the counters.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository
func NewAttemptRepository(db *database.DB) *AttemptRepository {
	return &AttemptRepository{pool: db.Pool}
}

func scanAttemptRow(row rowScanner) (*models.AttemptRecord, error) {
	var rec models.AttemptRecord
	var formType string

	err := row.Scan(&rec.ID, &formType, &rec.Identifier, &rec.Attempts, &rec.LastAttempt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	rec.FormType = models.FormType(formType)
	rec.LastAttempt = rec.LastAttempt.UTC()
	return &rec, nil
}

// Get returns the record for the pair, or nil without error when none exists
func (r *AttemptRepository) Get(ctx context.Context, formType models.FormType, identifier string) (*models.AttemptRecord, error) {
	query := `
		SELECT id, form_type, identifier, attempts, last_attempt
		FROM form_submission_attempts
		WHERE form_type = $1 AND identifier = $2
	`

	rec, err := scanAttemptRow(r.pool.QueryRow(ctx, query, string(formType), identifier))
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt record: %w", err)
	}

	return rec, nil
}

// Create inserts a record with attempts=1. Returns models.ErrConflict if the pair already exists.
func (r *AttemptRepository) Create(ctx context.Context, formType models.FormType, identifier string, at time.Time) (*models.AttemptRecord, error) {
	query := `
		INSERT INTO form_submission_attempts (form_type, identifier, attempts, last_attempt)
		VALUES ($1, $2, 1, $3)
		RETURNING id, form_type, identifier, attempts, last_attempt
	`

	rec, err := scanAttemptRow(r.pool.QueryRow(ctx, query, string(formType), identifier, at.UTC()))
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		return nil, fmt.Errorf("failed to create attempt record: %w", err)
	}

	return rec, nil
}

// Increment bumps the counter in place and stamps last_attempt
func (r *AttemptRepository) Increment(ctx context.Context, rec *models.AttemptRecord, at time.Time) error {
	query := `
		UPDATE form_submission_attempts
		SET attempts = attempts + 1, last_attempt = $2
		WHERE id = $1
		RETURNING attempts, last_attempt
	`

	err := r.pool.QueryRow(ctx, query, rec.ID, at.UTC()).Scan(&rec.Attempts, &rec.LastAttempt)
	if err != nil {
		return fmt.Errorf("failed to increment attempt record: %w", database.MapPostgresError(err))
	}

	rec.LastAttempt = rec.LastAttempt.UTC()
	return nil
}

// Reset zeroes the counter. last_attempt is left untouched.
func (r *AttemptRepository) Reset(ctx context.Context, rec *models.AttemptRecord) error {
	query := `UPDATE form_submission_attempts SET attempts = 0 WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, rec.ID); err != nil {
		return fmt.Errorf("failed to reset attempt record: %w", database.MapPostgresError(err))
	}

	rec.Attempts = 0
	return nil
}
