package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/crowdsource-ideas/internal/config"
	"github.com/iliyamo/crowdsource-ideas/internal/model"
	"github.com/iliyamo/crowdsource-ideas/internal/service"
)

type stubValidator map[string]model.Account

func (s stubValidator) Validate(_ context.Context, raw string) (model.Account, error) {
	if raw == "broken" {
		return model.Account{}, errors.New("db down")
	}
	acc, ok := s[raw]
	if !ok {
		return model.Account{}, service.ErrInvalidToken
	}
	return acc, nil
}

var tokens = stubValidator{
	"user-token":  {ID: 1, Role: model.RoleUser},
	"admin-token": {ID: 2, Role: model.RoleAdmin},
}

func serve(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func whoami(c echo.Context) error { return c.String(http.StatusOK, accountID(c)) }

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":              "",
		"Bearer":        "",
		"Bearer ":       "",
		"Basic abc":     "",
		"Bearer abc":    "abc",
		"bearer abc ":   "abc",
		"BEARER  x.y.z": "x.y.z",
	}
	for header, want := range cases {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, header)
		c := e.NewContext(req, httptest.NewRecorder())
		assert.Equal(t, want, BearerToken(c), "header %q", header)
	}
}

func TestAuthenticate(t *testing.T) {
	log, hook := test.NewNullLogger()
	e := echo.New()
	e.GET("/me", whoami, Authenticate(tokens, log))

	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", "").Code)
	rec := serve(e, http.MethodGet, "/me", "nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_token")
	assert.Empty(t, hook.AllEntries())
	assert.Equal(t, http.StatusInternalServerError, serve(e, http.MethodGet, "/me", "broken").Code)
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "validate session", hook.LastEntry().Message)
	assert.EqualError(t, hook.LastEntry().Data[logrus.ErrorKey].(error), "db down")

	rec = serve(e, http.MethodGet, "/me", "user-token")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Body.String())
}

func TestOptionalAuth(t *testing.T) {
	e := echo.New()
	e.GET("/list", whoami, OptionalAuth(tokens))

	assert.Equal(t, "guest", serve(e, http.MethodGet, "/list", "").Body.String())
	assert.Equal(t, "guest", serve(e, http.MethodGet, "/list", "nope").Body.String())
	assert.Equal(t, "2", serve(e, http.MethodGet, "/list", "admin-token").Body.String())
}

var quiet, _ = test.NewNullLogger()

func TestRequirePermission(t *testing.T) {
	e := echo.New()
	e.GET("/admin", whoami, Authenticate(tokens, quiet), RequirePermission(model.OpCreateInvitation))
	e.GET("/bare", whoami, RequirePermission(model.OpCreateInvitation))

	rec := serve(e, http.MethodGet, "/admin", "user-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden","message":"insufficient permissions","details":{"allowed_roles":["admin"]}}`, rec.Body.String())
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/admin", "admin-token").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/bare", "").Code)
}

func TestResponseCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cfg := config.CacheConfig{
		Enabled: true,
		Methods: map[string]bool{http.MethodGet: true},
		TTL:     time.Minute,
		Prefix:  "test",
	}

	var calls atomic.Int32
	e := echo.New()
	e.GET("/stats", func(c echo.Context) error {
		calls.Add(1)
		return c.JSON(http.StatusOK, echo.Map{"ideas": 3})
	}, ResponseCache(cfg, rdb))
	e.GET("/broken", func(c echo.Context) error {
		calls.Add(1)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	}, ResponseCache(cfg, rdb))

	first := serve(e, http.MethodGet, "/stats", "")
	second := serve(e, http.MethodGet, "/stats", "")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Contains(t, second.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
	assert.EqualValues(t, 1, calls.Load())

	serve(e, http.MethodGet, "/broken", "")
	serve(e, http.MethodGet, "/broken", "")
	assert.EqualValues(t, 3, calls.Load())

	mr.FastForward(2 * time.Minute)
	assert.Equal(t, "MISS", serve(e, http.MethodGet, "/stats", "").Header().Get("X-Cache"))
}

func TestResponseCacheDisabled(t *testing.T) {
	var calls atomic.Int32
	e := echo.New()
	e.GET("/stats", func(c echo.Context) error {
		calls.Add(1)
		return c.NoContent(http.StatusOK)
	}, ResponseCache(config.CacheConfig{Enabled: true}, nil))

	serve(e, http.MethodGet, "/stats", "")
	serve(e, http.MethodGet, "/stats", "")
	assert.EqualValues(t, 2, calls.Load())
}

func TestResponseCacheSkipsUnreadableAndOversized(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cfg := config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		Prefix:       "test",
		MaxBodyBytes: 64,
	}

	var calls atomic.Int32
	e := echo.New()
	e.GET("/stats", func(c echo.Context) error {
		calls.Add(1)
		return c.JSON(http.StatusOK, echo.Map{"ideas": 3})
	}, ResponseCache(cfg, rdb))
	e.GET("/big", func(c echo.Context) error {
		calls.Add(1)
		return c.String(http.StatusOK, strings.Repeat("x", 100))
	}, ResponseCache(cfg, rdb))

	serve(e, http.MethodGet, "/stats", "")
	keys := mr.Keys()
	require.Len(t, keys, 1)
	require.NoError(t, mr.Set(keys[0], "not json"))
	assert.Equal(t, "MISS", serve(e, http.MethodGet, "/stats", "").Header().Get("X-Cache"))
	assert.Equal(t, "HIT", serve(e, http.MethodGet, "/stats", "").Header().Get("X-Cache"))
	assert.EqualValues(t, 2, calls.Load())

	rec := serve(e, http.MethodGet, "/big", "")
	assert.Len(t, rec.Body.String(), 100)
	assert.Equal(t, "MISS", serve(e, http.MethodGet, "/big", "").Header().Get("X-Cache"))
	assert.Len(t, mr.Keys(), 1)
}

func TestResponseCacheKey(t *testing.T) {
	e := echo.New()
	keyFor := func(strategy, method, target string) string {
		rc := &responseCache{cfg: config.CacheConfig{Prefix: "p", KeyStrategy: strategy}}
		c := e.NewContext(httptest.NewRequest(method, target, nil), httptest.NewRecorder())
		c.SetPath("/api/stats")
		return rc.key(c)
	}

	assert.True(t, strings.HasPrefix(keyFor("", http.MethodGet, "/api/stats"), "p:"))
	assert.NotEqual(t, keyFor("", http.MethodGet, "/api/stats?a=1"), keyFor("", http.MethodGet, "/api/stats?a=2"))
	assert.Equal(t, keyFor("route", http.MethodGet, "/api/stats?a=1"), keyFor("route", http.MethodHead, "/api/stats?a=2"))
	assert.NotEqual(t, keyFor("method_route", http.MethodGet, "/api/stats"), keyFor("method_route", http.MethodHead, "/api/stats"))
	assert.Equal(t, keyFor("method_route", http.MethodGet, "/api/stats?a=1"), keyFor("method_route", http.MethodGet, "/api/stats?a=2"))
	assert.NotEqual(t, keyFor("method_route_query", http.MethodGet, "/api/stats?a=1"), keyFor("method_route_query", http.MethodGet, "/api/stats?a=2"))
}
