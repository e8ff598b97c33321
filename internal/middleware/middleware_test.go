package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation-service/internal/config"
	"github.com/iliyamo/table-reservation-service/internal/model"
)

const secret = "test-secret"

func sign(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return tok
}

func bearer(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestJWTResolver(t *testing.T) {
	res := NewJWTResolver(secret)
	exp := time.Now().Add(time.Hour).Unix()

	caller, err := res.Resolve(bearer(sign(t, secret, jwt.MapClaims{"sub": 42, "role": "OWNER", "exp": exp})))
	require.NoError(t, err)
	assert.Equal(t, model.Caller{UserID: 42}, caller)

	caller, err = res.Resolve(bearer(sign(t, secret, jwt.MapClaims{"sub": "7", "exp": exp})))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), caller.UserID)

	caller, err = res.Resolve(bearer(sign(t, secret, jwt.MapClaims{"user_id": 9, "exp": exp})))
	require.NoError(t, err)
	assert.Equal(t, uint64(9), caller.UserID)
}

func TestJWTResolverRejects(t *testing.T) {
	res := NewJWTResolver(secret)
	exp := time.Now().Add(time.Hour).Unix()

	cases := map[string]*http.Request{
		"missing header": httptest.NewRequest(http.MethodGet, "/", nil),
		"wrong secret":   bearer(sign(t, "other", jwt.MapClaims{"sub": 1, "exp": exp})),
		"expired":        bearer(sign(t, secret, jwt.MapClaims{"sub": 1, "exp": time.Now().Add(-time.Minute).Unix()})),
		"no subject":     bearer(sign(t, secret, jwt.MapClaims{"exp": exp})),
		"garbage":        bearer("not-a-token"),
	}
	for name, req := range cases {
		_, err := res.Resolve(req)
		assert.ErrorIs(t, err, ErrUnauthorized, name)
	}
}

func TestAuthorize(t *testing.T) {
	e := echo.New()
	mw := Authorize(ResolverFunc(func(r *http.Request) (model.Caller, error) {
		if r.Header.Get("X-Test-User") == "" {
			return model.Caller{}, ErrUnauthorized
		}
		return model.Caller{UserID: 5}, nil
	}))
	handler := mw(func(c echo.Context) error {
		caller, ok := CallerFrom(c)
		require.True(t, ok)
		assert.Equal(t, uint64(5), caller.UserID)
		assert.Equal(t, "5", c.Get("user_id"))
		return c.NoContent(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Test-User", "5")
	rec = httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTokenBucketWithoutRedisPassesThrough(t *testing.T) {
	e := echo.New()
	log, _ := logtest.NewNullLogger()
	mw := NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, log)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		err := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestTokenBucketFailsOpenWhenRedisDown(t *testing.T) {
	e := echo.New()
	log, hook := logtest.NewNullLogger()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()
	mw := NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "rl"}, rdb, log)

	rec := httptest.NewRecorder()
	err := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, hook.Entries)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	newCtx := func(method, target, route string, params ...string) echo.Context {
		req := httptest.NewRequest(method, target, nil)
		req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath(route)
		if len(params) == 2 {
			c.SetParamNames(params[0])
			c.SetParamValues(params[1])
		}
		return c
	}
	owner := newCtx(http.MethodPut, "/api/v1/reservations/restaurant/10/3", "/api/v1/reservations/restaurant/:restaurantId/:reservationId", "restaurantId", "10")
	diner := newCtx(http.MethodGet, "/api/v1/reservations/user", "/api/v1/reservations/user")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}
	assert.Equal(t, "rl:ip:10.0.0.1", rateKey(cfg, owner))

	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:anon", rateKey(cfg, owner))

	owner.Set("user_id", "100")
	diner.Set("user_id", "1")

	cfg.KeyStrategy = "restaurant"
	assert.Equal(t, "rl:restaurant:10", rateKey(cfg, owner))
	assert.Equal(t, "rl:user:1", rateKey(cfg, diner))

	// a second owner of the same restaurant draws from the same bucket
	other := newCtx(http.MethodGet, "/api/v1/reservations/restaurant/10", "/api/v1/reservations/restaurant/:restaurantId", "restaurantId", "10")
	other.Set("user_id", "101")
	assert.Equal(t, rateKey(cfg, owner), rateKey(cfg, other))

	cfg.KeyStrategy = ""
	assert.Equal(t, "rl:user:100:restaurant:10", rateKey(cfg, owner))
	assert.Equal(t, "rl:user:1:restaurant:-", rateKey(cfg, diner))
}

func TestRequestLog(t *testing.T) {
	e := echo.New()
	log, hook := logtest.NewNullLogger()
	mw := RequestLog(log)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/missing", nil), rec)
	require.NoError(t, mw(func(echo.Context) error { return echo.ErrNotFound })(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, http.StatusNotFound, entry.Data["status"])
	assert.Equal(t, "/missing", entry.Data["path"])
}
