package utils

import (
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	verificationAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// No 0/O or 1/I: invitation codes are typed by hand.
	invitationAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	VerificationCodeLength = 6
	InvitationCodeLength   = 8
)

// NewVerificationCode returns a random 6-character email verification code.
func NewVerificationCode() (string, error) {
	return gonanoid.Generate(verificationAlphabet, VerificationCodeLength)
}

// NewInvitationCode returns a random 8-character invitation code.
func NewInvitationCode() (string, error) {
	return gonanoid.Generate(invitationAlphabet, InvitationCodeLength)
}

// NormalizeCode trims and upper-cases a user-supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
