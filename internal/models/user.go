package models

import (
	"time"
)

// User is an account row. Confirmation and reset codes are nil when not pending.
type User struct {
	ID                         int64
	FirstName                  string
	LastName                   string
	Email                      string
	HashedPassword             string
	Status                     int
	IsConfirmed                bool
	ConfirmationCode           *string
	PasswordResetCode          *string
	PasswordResetCodeExpiresAt *time.Time
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

// ResetCodeExpired reports whether the pending reset code has passed its expiry at now.
// A code without an expiry never expires.
func (u *User) ResetCodeExpired(now time.Time) bool {
	return u.PasswordResetCodeExpiresAt != nil && u.PasswordResetCodeExpiresAt.Before(now)
}
