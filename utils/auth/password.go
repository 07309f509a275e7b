package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost keeps a single verify well under login-latency budget while
// staying above the bcrypt default.
const bcryptCost = 12

// MinPasswordLength is enforced at registration and on hash
const MinPasswordLength = 8

var ErrPasswordMismatch = errors.New("password does not match")

// IsPasswordValid reports whether a password meets the length requirement
func IsPasswordValid(password string) bool {
	return len(password) >= MinPasswordLength
}

// HashPassword hashes a plaintext password with bcrypt. Rejects passwords
// below MinPasswordLength so an empty string can never become a valid hash.
func HashPassword(password string) (string, error) {
	if !IsPasswordValid(password) {
		return "", fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password against a stored hash.
// Returns ErrPasswordMismatch on a wrong password so callers can map it
// to a generic credentials error without leaking which field was wrong.
func VerifyPassword(hashedPassword, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
