package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/database"
	"github.com/BradenHooton/gatekeeper/internal/models"
	"github.com/jackc/pgx/v5"
)

// UserRepository is the Postgres-backed account store. Lookups return
// models.ErrNotFound when no row matches.
type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// rowScanner interface for scanning rows (supports both pgx.Row and pgx.Rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const userColumns = `id, first_name, last_name, email, hashed_password, status, is_confirmed,
	confirmation_code, password_reset_code, password_reset_code_expires_at, created_at, updated_at`

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var resetExpiresAt *time.Time

	err := scanner.Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.HashedPassword,
		&user.Status, &user.IsConfirmed,
		&user.ConfirmationCode, &user.PasswordResetCode, &resetExpiresAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if resetExpiresAt != nil {
		utc := resetExpiresAt.UTC()
		user.PasswordResetCodeExpiresAt = &utc
	}

	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByResetCode(ctx context.Context, code string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE password_reset_code = $1`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, code))
}

// Create inserts a new account. A duplicate email yields models.ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now().UTC()

	query := `
		INSERT INTO users (first_name, last_name, email, hashed_password, status, is_confirmed, confirmation_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING ` + userColumns

	created, err := scanUserRow(r.db.Pool.QueryRow(ctx, query,
		user.FirstName, user.LastName, user.Email, user.HashedPassword,
		user.Status, user.IsConfirmed, user.ConfirmationCode, now,
	))
	if err != nil {
		return nil, err
	}

	return created, nil
}

// Update writes every mutable column of user and returns the stored row
func (r *UserRepository) Update(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		UPDATE users SET
			first_name = $1, last_name = $2, hashed_password = $3, status = $4, is_confirmed = $5,
			confirmation_code = $6, password_reset_code = $7, password_reset_code_expires_at = $8,
			updated_at = $9
		WHERE id = $10
		RETURNING ` + userColumns

	return scanUserRow(r.db.Pool.QueryRow(ctx, query,
		user.FirstName, user.LastName, user.HashedPassword, user.Status, user.IsConfirmed,
		user.ConfirmationCode, user.PasswordResetCode, user.PasswordResetCodeExpiresAt,
		time.Now().UTC(), user.ID,
	))
}

// ConfirmByEmailAndCode marks the account confirmed and clears its code when
// (email, code) matches. No match yields models.ErrNotFound.
func (r *UserRepository) ConfirmByEmailAndCode(ctx context.Context, email, code string) (*models.User, error) {
	var confirmed *models.User

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		lockQuery := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND confirmation_code = $2 FOR UPDATE`
		user, err := scanUserRow(tx.QueryRow(ctx, lockQuery, email, code))
		if err != nil {
			return err
		}

		updateQuery := `
			UPDATE users SET is_confirmed = TRUE, confirmation_code = NULL, updated_at = $2
			WHERE id = $1
			RETURNING ` + userColumns
		confirmed, err = scanUserRow(tx.QueryRow(ctx, updateQuery, user.ID, time.Now().UTC()))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to confirm user: %w", err)
	}

	return confirmed, nil
}
