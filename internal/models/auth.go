package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims carries the session claims. Subject holds the account email.
type TokenClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}
