package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-reservation-engine/internal/config"
)

func signed(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestJWTAuthSetsHolder(t *testing.T) {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, HolderID(c))
	}, JWTAuth("secret"))

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + signed(t, "secret", jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(time.Hour).Unix()}), http.StatusOK, "user-1"},
		{"missing", "", http.StatusUnauthorized, ""},
		{"wrong secret", "Bearer " + signed(t, "other", jwt.MapClaims{"sub": "user-1"}), http.StatusUnauthorized, ""},
		{"expired", "Bearer " + signed(t, "secret", jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(-time.Hour).Unix()}), http.StatusUnauthorized, ""},
		{"no subject", "Bearer " + signed(t, "secret", jwt.MapClaims{"role": "x"}), http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestTokenBucketBlocksAfterCapacity(t *testing.T) {
	log, _ := test.NewNullLogger()
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}
	e := echo.New()
	e.POST("/v1/seats/lock", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, newRedis(t), log))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/seats/lock", nil))
		codes = append(codes, rec.Code)
		if i == 2 {
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
			assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestTokenBucketWithoutRedisPassesThrough(t *testing.T) {
	log, _ := test.NewNullLogger()
	mw := NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, log)
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, mw)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRedisCacheServesSecondRequest(t *testing.T) {
	cfg := config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 1 << 10, Methods: map[string]bool{"GET": true}}
	calls := 0
	e := echo.New()
	e.GET("/v1/events", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"events": []string{"gala"}})
	}, NewRedisCache(cfg, newRedis(t)))

	first := httptest.NewRecorder()
	e.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/v1/events", nil))
	second := httptest.NewRecorder()
	e.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/v1/events", nil))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, echo.MIMEApplicationJSON, second.Header().Get(echo.HeaderContentType))
}

func TestPayloadRoundTripRejectsGarbage(t *testing.T) {
	_, _, _, ok := decodePayload([]byte{0, 0})
	assert.False(t, ok)
	_, _, _, ok = decodePayload([]byte{0, 0, 0, 200, 0, 0, 0, 50, '{'})
	assert.False(t, ok)
}

func TestRequestLoggerTagsRequests(t *testing.T) {
	log, hook := test.NewNullLogger()
	e := echo.New()
	e.Use(RequestLogger(log))
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "/healthz", entry.Data["path"])
	assert.Equal(t, http.StatusOK, entry.Data["status"])
}
