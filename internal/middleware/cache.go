package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/crowdsource-ideas/internal/config"
)

const (
	cacheHeader     = "X-Cache"
	defaultCacheTTL = 30 * time.Second
)

// cachedResponse is what the cache stores per key. Body is base64 in JSON.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

func (cr cachedResponse) replay(c echo.Context) error {
	h := c.Response().Header()
	for k, vals := range cr.Header {
		if k == echo.HeaderContentLength {
			continue
		}
		h[k] = append([]string(nil), vals...)
	}
	h.Set(cacheHeader, "HIT")
	c.Response().WriteHeader(cr.Status)
	_, err := c.Response().Write(cr.Body)
	return err
}

// bodyRecorder forwards the response to the client and keeps a copy of the
// body until it grows past max. A max of 0 means no limit.
type bodyRecorder struct {
	http.ResponseWriter
	status   int
	body     bytes.Buffer
	max      int
	overflow bool
}

func (r *bodyRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	if !r.overflow {
		if r.max > 0 && r.body.Len()+len(b) > r.max {
			r.overflow = true
			r.body.Reset()
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

type responseCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
	ttl time.Duration
}

// key hashes the request parts chosen by KeyStrategy: "route",
// "method_route", "method_route_query" or the default "route_query".
func (rc *responseCache) key(c echo.Context) string {
	r := c.Request()
	strategy := strings.ToLower(rc.cfg.KeyStrategy)
	h := sha256.New()
	if strings.HasPrefix(strategy, "method_") {
		io.WriteString(h, r.Method+"\x00")
	}
	io.WriteString(h, c.Path())
	if strategy != "route" && strategy != "method_route" {
		io.WriteString(h, "\x00"+r.URL.RawQuery)
	}
	return fmt.Sprintf("%s:%x", rc.cfg.Prefix, h.Sum(nil))
}

// lookup treats unreadable entries as misses.
func (rc *responseCache) lookup(ctx context.Context, key string) (cachedResponse, bool) {
	bs, err := rc.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return cachedResponse{}, false
	}
	var cr cachedResponse
	if err := json.Unmarshal(bs, &cr); err != nil || cr.Status == 0 {
		return cachedResponse{}, false
	}
	return cr, true
}

func (rc *responseCache) store(key string, cr cachedResponse) {
	bs, err := json.Marshal(cr)
	if err != nil {
		return
	}
	_ = rc.rdb.Set(context.Background(), key, bs, rc.ttl).Err()
}

func (rc *responseCache) handle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !rc.cfg.Methods[strings.ToUpper(c.Request().Method)] {
			return next(c)
		}
		key := rc.key(c)
		if cr, ok := rc.lookup(c.Request().Context(), key); ok {
			return cr.replay(c)
		}

		rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, max: rc.cfg.MaxBodyBytes}
		c.Response().Writer = rec
		c.Response().Header().Set(cacheHeader, "MISS")
		if err := next(c); err != nil {
			return err
		}
		if rec.status != http.StatusOK || rec.overflow {
			return nil
		}

		hdr := c.Response().Header().Clone()
		hdr.Del(cacheHeader)
		hdr.Del(echo.HeaderXRequestID)
		rc.store(key, cachedResponse{Status: rec.status, Header: hdr, Body: rec.body.Bytes()})
		return nil
	}
}

// ResponseCache serves repeated requests from Redis. Only 200 responses
// to the methods in cfg.Methods are stored. A disabled config or a nil
// client yields a pass-through middleware.
func ResponseCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	rc := &responseCache{cfg: cfg, rdb: rdb, ttl: cfg.TTL}
	if rc.ttl <= 0 {
		rc.ttl = defaultCacheTTL
	}
	return rc.handle
}
