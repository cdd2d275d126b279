package model

import "time"

// InvitationCode is a capability that raises the redeeming account to
// GrantedRole. UsedBy/UsedAt track the most recent redeemer only; the full
// history lives in invitation_redemptions.
type InvitationCode struct {
	ID          uint64     `json:"id"`
	Code        string     `json:"code"`
	GrantedRole Role       `json:"role"`
	CreatedBy   uint64     `json:"createdBy"`
	UsedBy      *uint64    `json:"usedBy,omitempty"`
	UsedAt      *time.Time `json:"usedAt,omitempty"`
	MaxUses     int        `json:"maxUses"`
	UseCount    int        `json:"useCount"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Exhausted reports whether the code has no redemptions left.
func (c InvitationCode) Exhausted() bool { return c.UseCount >= c.MaxUses }

// Expired reports whether the code is unusable at now.
func (c InvitationCode) Expired(now time.Time) bool { return !now.Before(c.ExpiresAt) }

// Redemption is one successful use of an invitation code.
type Redemption struct {
	ID           uint64    `json:"id"`
	InvitationID uint64    `json:"invitationId"`
	AccountID    uint64    `json:"accountId"`
	RedeemedAt   time.Time `json:"redeemedAt"`
}
