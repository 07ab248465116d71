package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/BradenHooton/gatekeeper/internal/models"
)

// SQLSTATE codes the repositories translate into sentinel errors
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeNotNullViolation    = "23502"
	codeCheckViolation      = "23514"
)

// MapPostgresError converts driver errors into model sentinels. Errors it does
// not recognise are returned unchanged.
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		return models.ErrConflict
	case codeForeignKeyViolation, codeNotNullViolation, codeCheckViolation:
		return models.ErrBadRequest
	default:
		return err
	}
}

// WithTransaction runs fn in a transaction that commits when fn returns nil
// and rolls back otherwise
func (db *DB) WithTransaction(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, db.Pool, fn)
}
