package auth

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultBcryptCost = 12
	MinPasswordLen    = 8

	// SpecialCharacters is the punctuation set a password must draw from
	SpecialCharacters = `!@#$%^&*(),.?":{}|<>`
)

// Locale keys naming the password rule that failed
const (
	RuleTooShort       = "password.too_short"
	RuleMissingCase    = "password.missing_case"
	RuleMissingNumber  = "password.missing_number"
	RuleMissingSpecial = "password.missing_special"
	RuleCommonPassword = "password.common_password"
)

// weakPatterns are rejected anywhere in the password, case-insensitively
var weakPatterns = []string{"password", "123456", "qwerty", "letmein", "admin"}

// PasswordValidationError names the first password rule that failed
type PasswordValidationError struct {
	Rule string
}

func (e *PasswordValidationError) Error() string {
	return "weak password: " + e.Rule
}

// BcryptHasher hashes and verifies passwords with bcrypt
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher with cost, falling back to DefaultBcryptCost when out of range
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{Cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Verify reports whether password matches the bcrypt digest
func (h *BcryptHasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

// ValidatePassword checks the rules in order and reports the first one that fails
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLen {
		return &PasswordValidationError{Rule: RuleTooShort}
	}

	hasUpper := false
	hasLower := false
	hasDigit := false

	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower {
		return &PasswordValidationError{Rule: RuleMissingCase}
	}
	if !hasDigit {
		return &PasswordValidationError{Rule: RuleMissingNumber}
	}
	if !strings.ContainsAny(password, SpecialCharacters) {
		return &PasswordValidationError{Rule: RuleMissingSpecial}
	}

	lower := strings.ToLower(password)
	for _, pattern := range weakPatterns {
		if strings.Contains(lower, pattern) {
			return &PasswordValidationError{Rule: RuleCommonPassword}
		}
	}

	return nil
}
