package models

import "time"

// FormType tags the form an attempt counter belongs to.
type FormType string

const (
	FormRegistration   FormType = "registration"
	FormLogin          FormType = "login"
	FormConfirmEmail   FormType = "confirm_email"
	FormForgotPassword FormType = "forgot_password"
	FormResetPassword  FormType = "reset_password"
)

// AttemptRecord is the persisted counter for one (form type, identifier) pair.
type AttemptRecord struct {
	ID          int64     `db:"id"`
	FormType    FormType  `db:"form_type"`
	Identifier  string    `db:"identifier"`
	Attempts    int       `db:"attempts"`
	LastAttempt time.Time `db:"last_attempt"`
}

// Exhausted returns true if the counter has reached max.
func (a *AttemptRecord) Exhausted(max int) bool {
	return a.Attempts >= max
}

// LockedUntil returns the end of the lockout window that started at the last attempt.
func (a *AttemptRecord) LockedUntil(lockout time.Duration) time.Time {
	return a.LastAttempt.Add(lockout)
}
