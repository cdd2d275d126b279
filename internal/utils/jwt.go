package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256" // SHA-256 hashing for stored session tokens
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionToken is a signed session JWT along with its expiry.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// SessionClaims are the claims carried by a session token. The subject is
// the account ID in decimal; the ID (jti) is a random UUID so two tokens
// issued in the same second for the same account never collide.
type SessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// ErrMalformedSubject is returned when a verified token carries a subject
// that is not an account ID.
var ErrMalformedSubject = errors.New("token subject is not an account id")

// NewSessionToken builds and signs an HS256 JWT for an account. The token
// expires ttl after now.
func NewSessionToken(secret string, accountID uint64, email, role string, ttl time.Duration, now time.Time) (SessionToken, error) {
	now = now.UTC().Truncate(time.Second)
	exp := now.Add(ttl)
	claims := SessionClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(accountID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies raw against secret at now and returns its
// claims and the account ID from the subject. Only HS256 is accepted and
// the exp claim is mandatory.
func ParseSessionToken(secret, raw string, now time.Time) (*SessionClaims, uint64, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, 0, err
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return nil, 0, ErrMalformedSubject
	}
	return claims, id, nil
}

// HashToken returns the SHA-256 hash of a raw token as a hex string. Only
// the hash is stored, so a leaked sessions table cannot be replayed.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
