package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/crowdsource-ideas/internal/cache"
	"github.com/iliyamo/crowdsource-ideas/internal/database"
	"github.com/iliyamo/crowdsource-ideas/internal/model"
	"github.com/iliyamo/crowdsource-ideas/internal/repository"
	"github.com/iliyamo/crowdsource-ideas/internal/utils"
)

const testSecret = "service-test-secret"

// fakeSender records verification emails instead of sending them.
type fakeSender struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (f *fakeSender) SendVerificationEmail(_ context.Context, address, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.codes == nil {
		f.codes = map[string]string{}
	}
	f.codes[address] = code
	return nil
}

func (f *fakeSender) code(address string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes[address]
}

type fixture struct {
	db          *sql.DB
	accounts    *repository.AccountRepo
	sender      *fakeSender
	credentials *CredentialStore
	sessions    *SessionManager
	invitations *InvitationLedger
	ideas       *IdeaBoard
	votes       *VoteLedger
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newFixture(t *testing.T, sc *cache.SessionCache) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenSQLite("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.SQLite))

	log := quietLogger()
	accounts := repository.NewAccountRepo(db)
	ideas := repository.NewIdeaRepo(db)
	comments := repository.NewCommentRepo(db)
	votes := repository.NewVoteRepo(db)
	sender := &fakeSender{}

	return &fixture{
		db:       db,
		accounts: accounts,
		sender:   sender,
		credentials: NewCredentialStore(accounts, sender, log,
			CredentialConfig{BcryptCost: bcrypt.MinCost, VerificationTTL: 24 * time.Hour}),
		sessions:    NewSessionManager(repository.NewSessionRepo(db), accounts, sc, testSecret, 7*24*time.Hour, log),
		invitations: NewInvitationLedger(db, repository.NewInvitationRepo(db), accounts, log),
		ideas:       NewIdeaBoard(db, ideas, comments, votes, accounts, log),
		votes:       NewVoteLedger(db, ideas, votes, log),
	}
}

// account inserts a verified, active account with role directly.
func (f *fixture) account(t *testing.T, username string, role model.Role) model.Account {
	t.Helper()
	hash, err := utils.HashPassword("password1", bcrypt.MinCost)
	require.NoError(t, err)
	a := model.Account{
		Email: username + "@example.com", PasswordHash: hash, Username: username, Role: role,
		EmailVerified: true, IsActive: true, CreatedAt: systemClock(),
	}
	_, err = f.accounts.Create(context.Background(), &a)
	require.NoError(t, err)
	return a
}

// idea submits an idea by author and moves it to status via an admin.
func (f *fixture) idea(t *testing.T, author model.Account, status model.IdeaStatus) model.Idea {
	t.Helper()
	ctx := context.Background()
	idea, err := f.ideas.Submit(ctx, author, SubmitIdeaInput{Title: "An idea", Description: "A description long enough"})
	require.NoError(t, err)
	if status != idea.Status {
		admin := model.Account{ID: 999999, Role: model.RoleAdmin}
		require.NoError(t, f.ideas.SetStatus(ctx, admin, idea.ID, string(status), ""))
		idea.Status = status
	}
	return idea
}

func asServiceError(t *testing.T, err error) *Error {
	t.Helper()
	var e *Error
	require.True(t, errors.As(err, &e), "expected *service.Error, got %T: %v", err, err)
	return e
}
