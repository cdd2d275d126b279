package model

import "time"

// Account represents a row in the `accounts` table.
//
// Email is stored lower-cased so the unique index is effectively
// case-insensitive. PasswordHash is a bcrypt digest and never leaves the
// process: it is excluded from JSON.
type Account struct {
	ID                  uint64     `json:"id"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	Username            string     `json:"username"`
	Role                Role       `json:"role"`
	EmailVerified       bool       `json:"emailVerified"`
	VerificationCode    string     `json:"-"`
	VerificationExpires *time.Time `json:"-"`
	LastLogin           *time.Time `json:"lastLogin,omitempty"`
	IsActive            bool       `json:"isActive"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// Session models an entry in the `sessions` table. Only the SHA-256 digest
// of the bearer token is persisted.
type Session struct {
	ID        uint64
	AccountID uint64
	TokenHash string
	IP        string
	UserAgent string
	ExpiresAt time.Time
	CreatedAt time.Time
}
