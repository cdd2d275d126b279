// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// VerificationQueue is the durable queue verification emails travel on.
const VerificationQueue = "email.verification"

// VerificationEmailEvent is published when an account needs its email
// address confirmed. The consumer renders and sends the email, so the
// request that registered the account never waits on a mail provider.
type VerificationEmailEvent struct {
	Email       string    `json:"email"`
	Code        string    `json:"code"`
	RequestedAt time.Time `json:"requested_at"`
}
