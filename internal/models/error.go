package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Form flow errors
	ErrRateLimited          = errors.New("too many attempts")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUnconfirmed          = errors.New("email address not confirmed")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	ErrCodeExpired          = fmt.Errorf("code expired: %w", ErrInvalidOrExpiredCode)
	ErrWeakPassword         = errors.New("weak password")
)

// ErrorCategory groups flow errors by how the boundary layer reports them.
type ErrorCategory int

const (
	CategoryInfrastructure ErrorCategory = iota
	CategoryClientInput
	CategoryPolicyRejection
	CategoryDomainConflict
	CategoryNotFound
)

func (c ErrorCategory) String() string {
	switch c {
	case CategoryClientInput:
		return "client_input"
	case CategoryPolicyRejection:
		return "policy_rejection"
	case CategoryDomainConflict:
		return "domain_conflict"
	case CategoryNotFound:
		return "not_found"
	default:
		return "infrastructure"
	}
}

// CategoryOf classifies err. Anything unrecognised is an infrastructure failure.
func CategoryOf(err error) ErrorCategory {
	switch {
	case errors.Is(err, ErrBadRequest):
		return CategoryClientInput
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrWeakPassword):
		return CategoryPolicyRejection
	case errors.Is(err, ErrDuplicateEmail),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidOrExpiredCode),
		errors.Is(err, ErrUnconfirmed):
		return CategoryDomainConflict
	case errors.Is(err, ErrNotFound):
		return CategoryNotFound
	default:
		return CategoryInfrastructure
	}
}
