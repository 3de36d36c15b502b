package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/task-manager/internal/config"
	"github.com/iliyamo/task-manager/internal/model"
	"github.com/iliyamo/task-manager/internal/repository/memstore"
	"github.com/iliyamo/task-manager/internal/service"
	"github.com/iliyamo/task-manager/internal/utils"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTokens() *utils.TokenService {
	return utils.NewTokenService(utils.TokenConfig{AccessSecret: "a-secret", RefreshSecret: "r-secret"})
}

func seedUser(t *testing.T, users *memstore.Users, u model.User) {
	t.Helper()
	require.NoError(t, users.Create(context.Background(), &u))
}

func runSession(t *testing.T, tokens *utils.TokenService, users *memstore.Users, prep func(*http.Request)) (Identity, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	prep(req)
	c := e.NewContext(req, httptest.NewRecorder())

	var got Identity
	err := SessionAuth(tokens, users)(func(c echo.Context) error {
		id, ok := IdentityFrom(c.Request().Context())
		require.True(t, ok)
		got = id
		return nil
	})(c)
	return got, err
}

func TestSessionAuth(t *testing.T) {
	tokens := newTokens()
	users := memstore.NewUsers()
	seedUser(t, users, model.User{ID: "u1", Name: "Ann", Email: "ann@example.com", Role: model.RoleUser, IsActive: true})
	seedUser(t, users, model.User{ID: "u2", Email: "off@example.com", IsActive: false})
	changed := time.Now().Add(time.Hour)
	seedUser(t, users, model.User{ID: "u3", Email: "pw@example.com", IsActive: true, PasswordChangedAt: &changed})

	access, err := tokens.IssueAccessToken("u1")
	require.NoError(t, err)
	refresh, _ := tokens.IssueRefreshToken("u1")
	inactive, _ := tokens.IssueAccessToken("u2")
	stale, _ := tokens.IssueAccessToken("u3")
	ghost, _ := tokens.IssueAccessToken("ghost")

	t.Run("bearer header", func(t *testing.T) {
		id, err := runSession(t, tokens, users, func(r *http.Request) {
			r.Header.Set(echo.HeaderAuthorization, "Bearer "+access.Token)
		})
		require.NoError(t, err)
		assert.Equal(t, Identity{UserID: "u1", Name: "Ann", Email: "ann@example.com", Role: model.RoleUser}, id)
	})

	t.Run("cookie fallback", func(t *testing.T) {
		id, err := runSession(t, tokens, users, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: AccessCookie, Value: access.Token})
		})
		require.NoError(t, err)
		assert.Equal(t, "u1", id.UserID)
	})

	rejected := map[string]func(*http.Request){
		"no token":      func(*http.Request) {},
		"refresh token": func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer "+refresh.Token) },
		"garbage":       func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer abc.def.ghi") },
		"inactive":      func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer "+inactive.Token) },
		"stale":         func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer "+stale.Token) },
		"unknown user":  func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer "+ghost.Token) },
	}
	for name, prep := range rejected {
		t.Run(name, func(t *testing.T) {
			_, err := runSession(t, tokens, users, prep)
			assert.ErrorIs(t, err, service.ErrUnauthenticated)
		})
	}
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestTokenBucket_BlocksAfterCapacity(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 2, RefillInterval: time.Hour, TTL: 2 * time.Hour,
		KeyStrategy: "ip", Prefix: "rl:test", Message: "slow down",
	}
	e := echo.New()
	e.Use(NewTokenBucket(cfg, rdb, discard))
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, do("10.0.0.1").Code)
	assert.Equal(t, http.StatusNoContent, do("10.0.0.1").Code)
	rec := do("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"success":false,"message":"slow down"}`, rec.Body.String())

	// other clients have their own bucket
	assert.Equal(t, http.StatusNoContent, do("10.0.0.2").Code)
}

func TestTokenBucket_FailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Minute, TTL: time.Minute, Prefix: "rl"}

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	called := false
	err := NewTokenBucket(cfg, rdb, discard)(func(echo.Context) error { called = true; return nil })(c)
	require.NoError(t, err)
	assert.True(t, called)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	req.RemoteAddr = "192.0.2.7:80"
	c := e.NewContext(req.WithContext(WithIdentity(req.Context(), Identity{UserID: "u9"})), httptest.NewRecorder())

	assert.Equal(t, "rl:ip:192.0.2.7", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}, c))
	assert.Equal(t, "rl:user:u9", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c))
}

func withUser(uid string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			c.SetRequest(r.WithContext(WithIdentity(r.Context(), Identity{UserID: uid})))
			return next(c)
		}
	}
}

func TestRedisCache_PerUserAndInvalidatedOnWrite(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{http.MethodGet: true}, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 1 << 20}

	hits := 0
	e := echo.New()
	g := e.Group("", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return withUser(c.Request().Header.Get("X-User"))(next)(c)
		}
	}, NewRedisCache(cfg, rdb, discard))
	g.GET("/tasks", func(c echo.Context) error {
		hits++
		return c.JSON(http.StatusOK, map[string]int{"n": hits})
	})
	g.POST("/tasks", func(c echo.Context) error { return c.NoContent(http.StatusCreated) })
	g.DELETE("/tasks", func(c echo.Context) error { return echo.NewHTTPError(http.StatusNotFound) })

	do := func(method, user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/tasks", nil)
		req.Header.Set("X-User", user)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	first := do(http.MethodGet, "u1")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := do(http.MethodGet, "u1")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, hits)

	// another user never sees u1's entry
	assert.Equal(t, "MISS", do(http.MethodGet, "u2").Header().Get("X-Cache"))

	// a failed write keeps the cache
	do(http.MethodDelete, "u1")
	assert.Equal(t, "HIT", do(http.MethodGet, "u1").Header().Get("X-Cache"))

	assert.Equal(t, http.StatusCreated, do(http.MethodPost, "u1").Code)
	after := do(http.MethodGet, "u1")
	assert.Equal(t, "MISS", after.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"n":3}`, after.Body.String())
}

func TestRedisCache_DisabledPassesThrough(t *testing.T) {
	mw := NewRedisCache(config.CacheConfig{Enabled: true}, nil, discard)
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	called := false
	require.NoError(t, mw(func(echo.Context) error { called = true; return nil })(c))
	assert.True(t, called)
}

func TestPayloadRoundTrip(t *testing.T) {
	h := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, h, []byte(`{"a":1}`))
	require.NoError(t, err)
	status, hdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", hdr.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}
