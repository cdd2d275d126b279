package service

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowdsource-ideas/internal/cache"
	"github.com/iliyamo/crowdsource-ideas/internal/model"
	"github.com/iliyamo/crowdsource-ideas/internal/repository"
	"github.com/iliyamo/crowdsource-ideas/internal/utils"
)

// IssuedToken is a bearer token handed to a client at login.
type IssuedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionManager issues, validates and revokes bearer tokens. A token is
// only honoured while its signature verifies and a matching session row
// exists; the Redis cache may answer for the row but never outlives it.
type SessionManager struct {
	sessions *repository.SessionRepo
	accounts *repository.AccountRepo
	cache    *cache.SessionCache
	secret   string
	ttl      time.Duration
	log      logrus.FieldLogger
	now      clock
}

func NewSessionManager(sessions *repository.SessionRepo, accounts *repository.AccountRepo, c *cache.SessionCache,
	secret string, ttl time.Duration, log logrus.FieldLogger) *SessionManager {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &SessionManager{sessions: sessions, accounts: accounts, cache: c, secret: secret, ttl: ttl, log: log, now: systemClock}
}

// Issue signs a token for acc and records the session.
func (m *SessionManager) Issue(ctx context.Context, acc model.Account, ip, userAgent string) (IssuedToken, error) {
	now := m.now()
	tok, err := utils.NewSessionToken(m.secret, acc.ID, acc.Email, string(acc.Role), m.ttl, now)
	if err != nil {
		return IssuedToken{}, Internal("sign token", err)
	}
	s := model.Session{
		AccountID: acc.ID,
		TokenHash: utils.HashToken(tok.Token),
		IP:        truncate(ip, 64),
		UserAgent: truncate(userAgent, 512),
		ExpiresAt: tok.Exp,
		CreatedAt: now,
	}
	if err := m.sessions.Store(ctx, &s); err != nil {
		return IssuedToken{}, Internal("store session", err)
	}
	return IssuedToken{Token: tok.Token, ExpiresAt: tok.Exp}, nil
}

// Validate resolves a bearer token to the account as currently stored, so
// role changes made after login apply immediately. Every failure is
// ErrInvalidToken except store outages.
func (m *SessionManager) Validate(ctx context.Context, raw string) (model.Account, error) {
	now := m.now()
	claims, subject, err := utils.ParseSessionToken(m.secret, raw, now)
	if err != nil {
		return model.Account{}, ErrInvalidToken
	}
	hash := utils.HashToken(raw)

	cachedID, state, err := m.cache.Lookup(ctx, hash)
	if err != nil {
		m.log.WithError(err).Warn("session cache lookup failed")
		state = cache.Miss
	}
	switch state {
	case cache.Revoked:
		return model.Account{}, ErrInvalidToken
	case cache.Hit:
		if cachedID != subject {
			return model.Account{}, ErrInvalidToken
		}
	default:
		s, err := m.sessions.FindActive(ctx, hash, now)
		if errors.Is(err, repository.ErrNotFound) {
			return model.Account{}, ErrInvalidToken
		}
		if err != nil {
			return model.Account{}, Internal("load session", err)
		}
		if s.AccountID != subject {
			return model.Account{}, ErrInvalidToken
		}
		if err := m.cache.Remember(ctx, hash, s.AccountID, claims.ExpiresAt.Time); err != nil {
			m.log.WithError(err).Warn("session cache populate failed")
		}
	}

	acc, err := m.accounts.GetByID(ctx, subject)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Account{}, ErrInvalidToken
	}
	if err != nil {
		return model.Account{}, Internal("load account", err)
	}
	if !acc.IsActive {
		return model.Account{}, ErrInvalidToken
	}
	return acc, nil
}

// Revoke ends the session behind raw. Unknown, expired and malformed tokens
// are a no-op. The cache is tombstoned before the row is removed; if that
// fails the session is left intact and an error is returned.
func (m *SessionManager) Revoke(ctx context.Context, raw string) error {
	claims, _, err := utils.ParseSessionToken(m.secret, raw, m.now())
	if err != nil {
		return nil
	}
	hash := utils.HashToken(raw)
	if err := m.cache.Forget(ctx, hash, claims.ExpiresAt.Time); err != nil {
		return Internal("tombstone session", err)
	}
	if err := m.sessions.DeleteByHash(ctx, hash); err != nil {
		return Internal("delete session", err)
	}
	return nil
}

// Sweep deletes expired session rows. Validation never relies on it.
func (m *SessionManager) Sweep(ctx context.Context) (int64, error) {
	n, err := m.sessions.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, Internal("sweep sessions", err)
	}
	return n, nil
}

// Ping reports whether the session cache is reachable.
func (m *SessionManager) Ping(ctx context.Context) error { return m.cache.Ping(ctx) }

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
