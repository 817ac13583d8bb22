package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrTokenTooShort = errors.New("admin token must be at least 24 characters")

const (
	minAdminTokenLength = 24
	bcryptCost          = 12
)

// HashAdminToken creates the bcrypt hash stored in ADMIN_TOKEN_HASH.
func HashAdminToken(token string) (string, error) {
	if len(token) < minAdminTokenLength {
		return "", ErrTokenTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcryptCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// VerifyAdminToken checks if the presented token matches the hash.
func VerifyAdminToken(hashedToken, token string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedToken), []byte(token))
}
