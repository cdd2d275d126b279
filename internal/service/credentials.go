package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowdsource-ideas/internal/model"
	"github.com/iliyamo/crowdsource-ideas/internal/repository"
	"github.com/iliyamo/crowdsource-ideas/internal/utils"
)

// CredentialConfig tunes the credential store.
type CredentialConfig struct {
	BcryptCost      int
	VerificationTTL time.Duration
}

// CredentialStore registers accounts, verifies email ownership and checks
// passwords.
type CredentialStore struct {
	accounts *repository.AccountRepo
	sender   VerificationSender
	log      logrus.FieldLogger
	cfg      CredentialConfig
	now      clock

	dummyOnce sync.Once
	dummyHash string
}

func NewCredentialStore(accounts *repository.AccountRepo, sender VerificationSender, log logrus.FieldLogger, cfg CredentialConfig) *CredentialStore {
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = 24 * time.Hour
	}
	return &CredentialStore{accounts: accounts, sender: sender, log: log, cfg: cfg, now: systemClock}
}

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Username string `json:"username" validate:"required,min=3,max=100"`
}

// RegisterResult identifies the new account. VerificationCode is returned
// for callers that deliver it out of band (tests, the init-admin command).
type RegisterResult struct {
	AccountID        uint64
	VerificationCode string
}

// Register creates an unverified account with role user and sends it a
// verification code. A delivery failure is logged; the account and its code
// are kept so the user can ask for the code again.
func (s *CredentialStore) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	in.Email = repository.NormalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := validateStruct(&in); err != nil {
		return RegisterResult{}, err
	}
	if len(in.Password) > utils.PasswordMaxBytes {
		return RegisterResult{}, fieldError("password", "the field 'password' must be no longer than 72 bytes")
	}

	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return RegisterResult{}, Internal("hash password", err)
	}
	code, err := utils.NewVerificationCode()
	if err != nil {
		return RegisterResult{}, Internal("generate verification code", err)
	}

	now := s.now()
	expires := now.Add(s.cfg.VerificationTTL)
	acc := model.Account{
		Email:               in.Email,
		PasswordHash:        hash,
		Username:            in.Username,
		Role:                model.RoleUser,
		VerificationCode:    code,
		VerificationExpires: &expires,
		IsActive:            true,
		CreatedAt:           now,
	}
	id, err := s.accounts.Create(ctx, &acc)
	if errors.Is(err, repository.ErrDuplicate) {
		return RegisterResult{}, ErrDuplicateEmail
	}
	if err != nil {
		return RegisterResult{}, Internal("create account", err)
	}

	if s.sender != nil {
		if err := s.sender.SendVerificationEmail(ctx, acc.Email, code); err != nil {
			s.log.WithError(err).WithField("account_id", id).Warn("verification email not delivered")
		}
	}
	return RegisterResult{AccountID: id, VerificationCode: code}, nil
}

// CreateAdmin stores a verified, active admin account without sending a
// verification code. It backs the init-admin command.
func (s *CredentialStore) CreateAdmin(ctx context.Context, in RegisterInput) (model.Account, error) {
	in.Email = repository.NormalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := validateStruct(&in); err != nil {
		return model.Account{}, err
	}
	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return model.Account{}, Internal("hash password", err)
	}
	acc := model.Account{
		Email:         in.Email,
		PasswordHash:  hash,
		Username:      in.Username,
		Role:          model.RoleAdmin,
		EmailVerified: true,
		IsActive:      true,
		CreatedAt:     s.now(),
	}
	_, err = s.accounts.Create(ctx, &acc)
	if errors.Is(err, repository.ErrDuplicate) {
		return model.Account{}, ErrDuplicateEmail
	}
	if err != nil {
		return model.Account{}, Internal("create admin", err)
	}
	s.log.WithField("account_id", acc.ID).Info("admin account created")
	return acc, nil
}

// VerifyEmail confirms ownership of email with code. It reports
// alreadyVerified when the account was verified before this call.
func (s *CredentialStore) VerifyEmail(ctx context.Context, email, code string) (alreadyVerified bool, err error) {
	acc, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return false, ErrInvalidVerificationCode
	}
	if err != nil {
		return false, Internal("load account", err)
	}
	if acc.EmailVerified {
		return true, nil
	}

	given := utils.NormalizeCode(code)
	if acc.VerificationCode == "" || given == "" ||
		subtle.ConstantTimeCompare([]byte(given), []byte(acc.VerificationCode)) != 1 {
		return false, ErrInvalidVerificationCode
	}
	if acc.VerificationExpires == nil || !s.now().Before(*acc.VerificationExpires) {
		return false, ErrVerificationCodeExpired
	}

	if err := s.accounts.MarkVerified(ctx, acc.ID); err != nil {
		return false, Internal("mark verified", err)
	}
	return false, nil
}

// Authenticate checks email and password. Unknown emails and wrong
// passwords fail identically, and both pay for one bcrypt comparison.
func (s *CredentialStore) Authenticate(ctx context.Context, email, password string) (model.Account, error) {
	acc, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		utils.VerifyPassword(s.dummy(), password)
		return model.Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.Account{}, Internal("load account", err)
	}
	if !utils.VerifyPassword(acc.PasswordHash, password) {
		return model.Account{}, ErrInvalidCredentials
	}
	if !acc.IsActive {
		return model.Account{}, ErrAccountDisabled
	}
	if !acc.EmailVerified {
		return model.Account{}, ErrEmailUnverified
	}

	now := s.now()
	if err := s.accounts.TouchLastLogin(ctx, acc.ID, now); err != nil {
		s.log.WithError(err).WithField("account_id", acc.ID).Warn("last login not recorded")
	} else {
		acc.LastLogin = &now
	}
	return acc, nil
}

// Profile returns the stored account.
func (s *CredentialStore) Profile(ctx context.Context, accountID uint64) (model.Account, error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Account{}, ErrAccountNotFound
	}
	if err != nil {
		return model.Account{}, Internal("load account", err)
	}
	return acc, nil
}

// dummy returns a bcrypt hash at the configured cost that matches no
// password a client can send.
func (s *CredentialStore) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := utils.HashPassword("\x00not-a-password", s.cfg.BcryptCost)
		if err != nil {
			s.log.WithError(err).Error("dummy hash")
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
