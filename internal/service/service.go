// Package service holds the business rules of the idea board: credentials,
// sessions, invitations, idea moderation and votes. Handlers call into it;
// it calls the repositories and owns every transaction boundary.
package service

import (
	"context"
	"time"
)

// VerificationSender delivers an email verification code to an address.
type VerificationSender interface {
	SendVerificationEmail(ctx context.Context, address, code string) error
}

type clock func() time.Time

// systemClock returns UTC wall time at second precision, the resolution
// every timestamp column stores.
func systemClock() time.Time { return time.Now().UTC().Truncate(time.Second) }
