package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordMaxBytes is the longest password bcrypt accepts.
const PasswordMaxBytes = 72

// ErrPasswordTooLong is returned for passwords over PasswordMaxBytes.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// HashPassword returns a bcrypt hash of plain at cost.
func HashPassword(plain string, cost int) (string, error) {
	if len(plain) > PasswordMaxBytes {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches hash. A malformed hash
// never matches.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
