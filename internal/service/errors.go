package service

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is the error type every service operation returns. Code is a stable
// machine-readable identifier; Message is safe to show to the caller.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind and Code so a wrapped or detailed copy of a sentinel
// still satisfies errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	ErrDuplicateEmail          = newError(KindConflict, "email_taken", "an account with this email already exists")
	ErrAccountNotFound         = newError(KindNotFound, "account_not_found", "account not found")
	ErrInvalidVerificationCode = newError(KindValidation, "invalid_verification_code", "invalid verification code")
	ErrVerificationCodeExpired = newError(KindValidation, "verification_code_expired", "verification code has expired")
	ErrInvalidCredentials      = newError(KindAuthentication, "invalid_credentials", "invalid email or password")
	ErrAccountDisabled         = newError(KindAuthentication, "account_disabled", "account is disabled")
	ErrEmailUnverified         = newError(KindAuthentication, "email_unverified", "email address has not been verified")
	ErrInvalidToken            = newError(KindAuthentication, "invalid_token", "invalid or expired session")
	ErrForbidden               = newError(KindAuthorization, "forbidden", "insufficient permissions")
	ErrInvalidInvitationCode   = newError(KindValidation, "invalid_invitation_code", "invalid invitation code")
	ErrInvitationExpired       = newError(KindValidation, "invitation_expired", "invitation code has expired")
	ErrInvitationExhausted     = newError(KindValidation, "invitation_exhausted", "invitation code has already been used")
	ErrIdeaNotFound            = newError(KindNotFound, "idea_not_found", "idea not found")
	ErrCommentNotFound         = newError(KindNotFound, "comment_not_found", "comment not found")
	ErrIdeaNotVotable          = newError(KindConflict, "idea_not_votable", "idea is not open for voting")
	ErrDuplicateVote           = newError(KindConflict, "duplicate_vote", "you have already voted for this idea")
)

// ValidationError reports invalid input, keyed by field name.
func ValidationError(details map[string]string) *Error {
	return &Error{Kind: KindValidation, Code: "validation_failed", Message: "validation failed", Details: details}
}

// fieldError is a ValidationError for a single field.
func fieldError(field, msg string) *Error {
	return ValidationError(map[string]string{field: msg})
}

// Internal wraps an infrastructure failure. The cause is kept for logging
// and never shown to clients.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Code: "internal", Message: "internal error", Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
