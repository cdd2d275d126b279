package app

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/crowdsource-ideas/internal/config"
	"github.com/iliyamo/crowdsource-ideas/internal/database"
	"github.com/iliyamo/crowdsource-ideas/internal/repository"
	"github.com/iliyamo/crowdsource-ideas/internal/service"
)

type captureSender struct {
	mu    sync.Mutex
	codes map[string]string
}

func (s *captureSender) SendVerificationEmail(_ context.Context, address, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[address] = code
	return nil
}

func (s *captureSender) code(address string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[address]
}

type testServer struct {
	app    *App
	db     *sql.DB
	sender *captureSender
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenSQLite("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.SQLite))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)
	sender := &captureSender{codes: map[string]string{}}
	a := New(Options{
		Config: config.Config{
			Env:             "test",
			JWTSecret:       "app-test-secret",
			SessionTTL:      time.Hour,
			BcryptCost:      bcrypt.MinCost,
			VerificationTTL: time.Hour,
		},
		Cache: config.CacheConfig{
			Enabled: true,
			Methods: map[string]bool{http.MethodGet: true},
			TTL:     time.Minute,
			Prefix:  "test",
		},
		DB:     db,
		Redis:  rdb,
		Sender: sender,
		Log:    log,
	})
	return &testServer{app: a, db: db, sender: sender}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.app.Echo.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tok, _ := decode(t, rec)["token"].(string)
	require.NotEmpty(t, tok)
	return tok
}

func TestRegisterVerifyLoginVote(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	rec := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "Alice@Example.com", "password": "secret1", "username": "alice",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotZero(t, decode(t, rec)["userId"])

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "email_unverified", decode(t, rec)["error"])

	rec = s.do(t, http.MethodPost, "/api/auth/verify", "", map[string]string{"email": "nobody@example.com", "code": "ABC123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	code := s.sender.code("alice@example.com")
	require.NotEmpty(t, code)
	rec = s.do(t, http.MethodPost, "/api/auth/verify", "", map[string]string{"email": "alice@example.com", "code": code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	alice := s.login(t, "alice@example.com", "secret1")
	rec = s.do(t, http.MethodGet, "/api/auth/profile", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	user := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "user", user["role"])
	assert.NotContains(t, rec.Body.String(), "password")

	rec = s.do(t, http.MethodPost, "/api/ideas", alice, map[string]string{
		"title": "Bike racks", "description": "Put bike racks next to the library entrance.",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Equal(t, "pending", created["status"])
	ideaID := strconv.FormatUint(uint64(created["id"].(float64)), 10)

	rec = s.do(t, http.MethodGet, "/api/ideas", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/ideas/"+ideaID+"/comments", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/ideas/"+ideaID+"/vote", alice, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "idea_not_votable", decode(t, rec)["error"])

	_, err := s.app.Credentials.CreateAdmin(ctx, service.RegisterInput{Email: "admin@example.com", Password: "admin123", Username: "admin"})
	require.NoError(t, err)
	admin := s.login(t, "admin@example.com", "admin123")

	rec = s.do(t, http.MethodGet, "/api/moderator/pending-ideas", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pending []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	require.Len(t, pending, 1)

	rec = s.do(t, http.MethodPut, "/api/moderator/ideas/"+ideaID+"/status", admin, map[string]string{"status": "approved", "notes": "ok"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/ideas/"+ideaID+"/vote", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/ideas/"+ideaID+"/vote", alice, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "duplicate_vote", decode(t, rec)["error"])

	rec = s.do(t, http.MethodGet, "/api/ideas", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ideas []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ideas))
	require.Len(t, ideas, 1)
	assert.EqualValues(t, 1, ideas[0]["votes"])

	rec = s.do(t, http.MethodPost, "/api/auth/logout", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/auth/profile", alice, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoleGates(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.app.Credentials.Register(ctx, service.RegisterInput{Email: "bob@example.com", Password: "secret1", Username: "bob"})
	require.NoError(t, err)
	_, err = s.app.Credentials.VerifyEmail(ctx, "bob@example.com", s.sender.code("bob@example.com"))
	require.NoError(t, err)
	bob := s.login(t, "bob@example.com", "secret1")

	rec := s.do(t, http.MethodGet, "/api/moderator/pending-ideas", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/moderator/pending-ideas", bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/admin/invitation-codes", bob, map[string]string{"role": "moderator"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	_, err = s.app.Credentials.CreateAdmin(ctx, service.RegisterInput{Email: "admin@example.com", Password: "admin123", Username: "admin"})
	require.NoError(t, err)
	admin := s.login(t, "admin@example.com", "admin123")
	rec = s.do(t, http.MethodPost, "/api/admin/invitation-codes", admin, map[string]any{"role": "moderator", "maxUses": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	code := decode(t, rec)["code"].(string)

	rec = s.do(t, http.MethodPost, "/api/auth/use-invitation", bob, map[string]string{"code": strings.ToLower(code)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "moderator", decode(t, rec)["role"])

	// The new role applies to the existing session.
	rec = s.do(t, http.MethodGet, "/api/moderator/pending-ideas", bob, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPut, "/api/moderator/ideas/1/status", bob, map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/admin/invitation-codes/"+code+"/redemptions", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var redemptions []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &redemptions))
	assert.Len(t, redemptions, 1)
}

func TestValidationErrorBody(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "nope", "password": "1", "username": "x"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "validation_failed", body["error"])
	details := body["details"].(map[string]any)
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")
	assert.Contains(t, details, "username")
}

func TestHealthAndStatsCache(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = s.do(t, http.MethodGet, "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.EqualValues(t, 0, decode(t, rec)["ideas"])

	rec = s.do(t, http.MethodGet, "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/nothing-here", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode(t, rec)["error"])
}

func TestLoginFailuresAreUnauthorized(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.app.Credentials.Register(ctx, service.RegisterInput{Email: "carol@example.com", Password: "secret1", Username: "carol"})
	require.NoError(t, err)
	_, err = s.app.Credentials.VerifyEmail(ctx, "carol@example.com", res.VerificationCode)
	require.NoError(t, err)

	cases := []struct {
		name, password, code string
	}{
		{"wrong password", "secret2", "invalid_credentials"},
		{"disabled", "secret1", "account_disabled"},
	}
	for _, tc := range cases {
		if tc.name == "disabled" {
			require.NoError(t, repository.NewAccountRepo(s.db).SetActive(ctx, res.AccountID, false))
		}
		rec := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "carol@example.com", "password": tc.password})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.name)
		assert.Equal(t, tc.code, decode(t, rec)["error"], tc.name)
	}
}
