package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ae97/panel/internal/config"
)

// teeWriter forwards the response and keeps a copy of the body until it
// grows past max.
type teeWriter struct {
	http.ResponseWriter
	status   int
	body     bytes.Buffer
	max      int
	overflow bool
}

func (w *teeWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
	if !w.overflow {
		if w.max > 0 && w.body.Len()+len(b) > w.max {
			w.overflow = true
			w.body.Reset()
		} else {
			w.body.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// cachedResponse is what gets stored in Redis for one cache key.
type cachedResponse struct {
	Status int         `json:"s"`
	Header http.Header `json:"h"`
	Body   []byte      `json:"b"`
}

// ResponseCache keeps successful GET responses of the public game listing in
// Redis until they expire or a write purges them.
type ResponseCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
	log *zap.SugaredLogger
}

func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client, log *zap.SugaredLogger) *ResponseCache {
	return &ResponseCache{cfg: cfg, rdb: rdb, log: log}
}

func (rc *ResponseCache) enabled() bool { return rc != nil && rc.cfg.Enabled && rc.rdb != nil }

// key hashes the route pattern, its resolved params and, unless the strategy
// is "route", the raw query.
func (rc *ResponseCache) key(c echo.Context) string {
	h := sha1.New()
	if strings.EqualFold(rc.cfg.KeyStrategy, "method_route_query") {
		h.Write([]byte(c.Request().Method + "\n"))
	}
	h.Write([]byte(c.Path()))
	for _, v := range c.ParamValues() {
		h.Write([]byte("\n" + v))
	}
	if !strings.EqualFold(rc.cfg.KeyStrategy, "route") {
		h.Write([]byte("\n?" + c.Request().URL.RawQuery))
	}
	return rc.cfg.Prefix + ":" + hex.EncodeToString(h.Sum(nil))
}

// Middleware serves hits from Redis and stores 200 responses on a miss.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
	if !rc.enabled() {
		return passthrough
	}
	ttl := rc.cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rc.cfg.Methods[c.Request().Method] {
				return next(c)
			}
			key := rc.key(c)
			if hit, ok := rc.lookup(c.Request().Context(), key); ok {
				return replay(c, hit)
			}

			w := &teeWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, max: rc.cfg.MaxBodyBytes}
			c.Response().Writer = w
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if w.status == http.StatusOK && !w.overflow {
				rc.store(key, c.Response().Header(), w.body.Bytes(), ttl)
			}
			return nil
		}
	}
}

func (rc *ResponseCache) lookup(ctx context.Context, key string) (cachedResponse, bool) {
	raw, err := rc.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			rc.log.Warnw("cache read failed", "key", key, "err", err)
		}
		return cachedResponse{}, false
	}
	return decodePayload(raw)
}

func (rc *ResponseCache) store(key string, hdr http.Header, body []byte, ttl time.Duration) {
	hdr = hdr.Clone()
	for _, k := range []string{"X-Cache", echo.HeaderXRequestID, echo.HeaderContentLength, echo.HeaderSetCookie} {
		hdr.Del(k)
	}
	raw, err := encodePayload(http.StatusOK, hdr, body)
	if err != nil {
		return
	}
	// the request context may already be cancelled
	if err := rc.rdb.Set(context.Background(), key, raw, ttl).Err(); err != nil {
		rc.log.Warnw("cache store failed", "key", key, "err", err)
	}
}

func replay(c echo.Context, r cachedResponse) error {
	h := c.Response().Header()
	for k, vals := range r.Header {
		h[k] = append(h[k], vals...)
	}
	h.Set("X-Cache", "HIT")
	c.Response().WriteHeader(r.Status)
	_, err := c.Response().Write(r.Body)
	return err
}

// Purge drops every cached response under the configured prefix.
func (rc *ResponseCache) Purge(ctx context.Context) error {
	if !rc.enabled() {
		return nil
	}
	var keys []string
	iter := rc.rdb.Scan(ctx, 0, rc.cfg.Prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil || len(keys) == 0 {
		return err
	}
	return rc.rdb.Del(ctx, keys...).Err()
}

func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	return json.Marshal(cachedResponse{Status: status, Header: header, Body: body})
}

func decodePayload(raw []byte) (cachedResponse, bool) {
	var r cachedResponse
	if err := json.Unmarshal(raw, &r); err != nil || r.Status == 0 {
		return cachedResponse{}, false
	}
	return r, true
}
