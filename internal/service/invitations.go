package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowdsource-ideas/internal/database"
	"github.com/iliyamo/crowdsource-ideas/internal/model"
	"github.com/iliyamo/crowdsource-ideas/internal/repository"
	"github.com/iliyamo/crowdsource-ideas/internal/utils"
)

const (
	defaultInvitationTTLDays = 30
	defaultInvitationUses    = 1
	codeAttempts             = 3
)

// InvitationLedger hands out role-granting codes and redeems them.
type InvitationLedger struct {
	db          *sql.DB
	invitations *repository.InvitationRepo
	accounts    *repository.AccountRepo
	log         logrus.FieldLogger
	now         clock
}

func NewInvitationLedger(db *sql.DB, invitations *repository.InvitationRepo, accounts *repository.AccountRepo, log logrus.FieldLogger) *InvitationLedger {
	return &InvitationLedger{db: db, invitations: invitations, accounts: accounts, log: log, now: systemClock}
}

// CreateInvitationInput is the body of an invitation request. Zero TTLDays
// and MaxUses take the defaults of 30 days and a single use.
type CreateInvitationInput struct {
	Role    string `json:"role" validate:"required"`
	TTLDays int    `json:"expiresInDays" validate:"omitempty,gte=1,lte=365"`
	MaxUses int    `json:"maxUses" validate:"omitempty,gte=1,lte=1000"`
}

// Create issues a new code granting in.Role. Only admins may issue codes.
func (l *InvitationLedger) Create(ctx context.Context, issuer model.Account, in CreateInvitationInput) (model.InvitationCode, error) {
	if !issuer.Role.Can(model.OpCreateInvitation) {
		return model.InvitationCode{}, ErrForbidden
	}
	role, _ := model.ParseRole(in.Role)
	in.Role = string(role)
	if err := validateStruct(&in); err != nil {
		return model.InvitationCode{}, err
	}
	if !role.Grantable() {
		return model.InvitationCode{}, fieldError("role", "the field 'role' must be one of [moderator content_manager admin]")
	}
	if in.TTLDays == 0 {
		in.TTLDays = defaultInvitationTTLDays
	}
	if in.MaxUses == 0 {
		in.MaxUses = defaultInvitationUses
	}

	now := l.now()
	c := model.InvitationCode{
		GrantedRole: role,
		CreatedBy:   issuer.ID,
		MaxUses:     in.MaxUses,
		ExpiresAt:   now.Add(time.Duration(in.TTLDays) * 24 * time.Hour),
		CreatedAt:   now,
	}
	for attempt := 1; ; attempt++ {
		code, err := utils.NewInvitationCode()
		if err != nil {
			return model.InvitationCode{}, Internal("generate invitation code", err)
		}
		c.Code = code
		err = l.invitations.Create(ctx, &c)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicate) || attempt == codeAttempts {
			return model.InvitationCode{}, Internal("create invitation", err)
		}
		l.log.WithField("attempt", attempt).Debug("invitation code collision, retrying")
	}

	l.log.WithFields(logrus.Fields{"issuer": issuer.ID, "role": c.GrantedRole, "max_uses": c.MaxUses}).
		Info("invitation created")
	return c, nil
}

// Redeem spends one use of code and raises acc to the granted role. The use
// count, the redemption record and the role change commit together.
func (l *InvitationLedger) Redeem(ctx context.Context, code string, acc model.Account) (model.Role, error) {
	code = utils.NormalizeCode(code)
	if code == "" {
		return "", ErrInvalidInvitationCode
	}

	var granted model.Role
	err := database.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		now := l.now()
		ok, err := l.invitations.ConsumeTx(ctx, tx, code, acc.ID, now)
		if err != nil {
			return Internal("consume invitation", err)
		}
		inv, err := l.invitations.GetByCodeTx(ctx, tx, code)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidInvitationCode
		}
		if err != nil {
			return Internal("load invitation", err)
		}
		if !ok {
			if inv.Expired(now) {
				return ErrInvitationExpired
			}
			return ErrInvitationExhausted
		}

		if err := l.invitations.AddRedemptionTx(ctx, tx, inv.ID, acc.ID, now); err != nil {
			return Internal("record redemption", err)
		}
		err = l.accounts.UpdateRoleTx(ctx, tx, acc.ID, inv.GrantedRole)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		if err != nil {
			return Internal("update role", err)
		}
		granted = inv.GrantedRole
		return nil
	})
	if err != nil {
		return "", err
	}

	l.log.WithFields(logrus.Fields{"account_id": acc.ID, "role": granted}).Info("invitation redeemed")
	return granted, nil
}

// Redemptions lists who redeemed code, oldest first. Admin only.
func (l *InvitationLedger) Redemptions(ctx context.Context, issuer model.Account, code string) ([]model.Redemption, error) {
	if !issuer.Role.Can(model.OpListRedemptions) {
		return nil, ErrForbidden
	}
	inv, err := l.invitations.GetByCode(ctx, utils.NormalizeCode(code))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidInvitationCode
	}
	if err != nil {
		return nil, Internal("load invitation", err)
	}
	out, err := l.invitations.ListRedemptions(ctx, inv.ID)
	if err != nil {
		return nil, Internal("list redemptions", err)
	}
	return out, nil
}
