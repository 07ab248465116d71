package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mathrand "math/rand/v2"
	"strings"
)

const (
	DefaultConfirmationCodeLength = 6
	ResetCodeLength               = 16

	resetCodeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateConfirmationCode returns a numeric code. It is delivered to the
// registrant's inbox, so a non-cryptographic source is acceptable.
func GenerateConfirmationCode(length int) string {
	if length <= 0 {
		length = DefaultConfirmationCodeLength
	}

	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(byte('0' + mathrand.IntN(10)))
	}
	return b.String()
}

// GenerateResetCode returns a 16-character alphanumeric code from crypto/rand
func GenerateResetCode() (string, error) {
	max := big.NewInt(int64(len(resetCodeAlphabet)))
	code := make([]byte, ResetCodeLength)

	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate reset code: %w", err)
		}
		code[i] = resetCodeAlphabet[n.Int64()]
	}

	return string(code), nil
}
