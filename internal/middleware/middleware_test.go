package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/car-dealership/internal/config"
	"github.com/iliyamo/car-dealership/internal/model"
	"github.com/iliyamo/car-dealership/internal/repository"
	"github.com/iliyamo/car-dealership/internal/utils"
)

const testSecret = "test-secret"

type fakeUsers map[uint64]model.User

func (f fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

var users = fakeUsers{
	1: {ID: 1, Username: "admin", Email: "admin@example.com", Role: model.RoleAdmin},
	2: {ID: 2, Username: "bob", Email: "bob@example.com", Role: model.RoleClient},
}

func token(t *testing.T, id uint64, email, role string) string {
	t.Helper()
	tok, err := utils.IssueToken(testSecret, id, email, role, time.Hour)
	require.NoError(t, err)
	return tok.Token
}

// serve runs one request through chain and a terminal handler that echoes
// the identity it sees.
func serve(t *testing.T, req *http.Request, chain ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h := func(c echo.Context) error {
		id, _ := CurrentIdentity(c)
		return c.JSON(http.StatusOK, echo.Map{"id": id.ID, "role": id.Role, "email": id.Email})
	}
	e.GET("/p", h, chain...)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func bodyMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestJWTAuthMissingToken(t *testing.T) {
	rec := serve(t, httptest.NewRequest(http.MethodGet, "/p", nil), JWTAuth(testSecret, users))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No token provided", bodyMap(t, rec)["error"])
}

func TestJWTAuthUsesDatabaseRow(t *testing.T) {
	// The token claims client but the row says admin; the row wins.
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, 1, "stale@example.com", model.RoleClient))

	rec := serve(t, req, JWTAuth(testSecret, users))
	require.Equal(t, http.StatusOK, rec.Code)
	m := bodyMap(t, rec)
	assert.Equal(t, "admin", m["role"])
	assert.Equal(t, "admin@example.com", m["email"])
}

func TestJWTAuthRejectsAlteredSignature(t *testing.T) {
	raw := token(t, 2, "bob@example.com", model.RoleClient)
	last := raw[len(raw)-1]
	repl := byte('A')
	if last == 'A' {
		repl = 'E'
	}
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer "+raw[:len(raw)-1]+string(repl))

	rec := serve(t, req, JWTAuth(testSecret, users))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", bodyMap(t, rec)["error"])
}

func TestJWTAuthUnknownUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, 99, "ghost@example.com", model.RoleClient))
	rec := serve(t, req, JWTAuth(testSecret, users))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthQueryToken(t *testing.T) {
	q := "/p?token=" + token(t, 1, "admin@example.com", model.RoleAdmin)

	rec := serve(t, httptest.NewRequest(http.MethodGet, q, nil), JWTAuth(testSecret, users))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "query token needs opt-in")

	rec = serve(t, httptest.NewRequest(http.MethodGet, q, nil),
		JWTAuth(testSecret, users, AuthOptions{AllowQueryToken: true}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	chain := []echo.MiddlewareFunc{JWTAuth(testSecret, users), RequireRole(model.RoleAdmin)}

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, 2, "bob@example.com", model.RoleClient))
	rec := serve(t, req, chain...)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied. Admins only.", bodyMap(t, rec)["error"])

	req = httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, 1, "admin@example.com", model.RoleAdmin))
	rec = serve(t, req, chain...)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoleWithoutIdentity(t *testing.T) {
	rec := serve(t, httptest.NewRequest(http.MethodGet, "/p", nil), RequireRole(model.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer abc"))
	assert.Equal(t, "", bearerToken("Bearer "))
	assert.Equal(t, "", bearerToken("Basic abc"))
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/auth/login")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_route"}
	assert.Equal(t, "rl:ip:10.0.0.1:route:POST /api/auth/login", buildRateKey(cfg, c))

	SetIdentity(c, Identity{ID: 7, Role: model.RoleClient})
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:7", buildRateKey(cfg, c))
}

func TestTokenBucketDisabledPassesThrough(t *testing.T) {
	mw := NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil)
	rec := serve(t, httptest.NewRequest(http.MethodGet, "/p", nil), mw)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 0, retryAfterSeconds(-5))
	assert.Equal(t, 1, retryAfterSeconds(1))
	assert.Equal(t, 2, retryAfterSeconds(1500))
}

func TestCacheGroupAndKey(t *testing.T) {
	assert.Equal(t, "cars", cacheGroup("/api/cars/:id"))
	assert.Equal(t, "brands", cacheGroup("/api/brands"))
	assert.Equal(t, "root", cacheGroup("/"))

	e := echo.New()
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}
	mk := func(target string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/api/cars")
		return cacheKeyFrom(cfg, c)
	}
	a, b := mk("/api/cars?status=sold"), mk("/api/cars?status=available")
	assert.True(t, strings.HasPrefix(a, "cache:cars:"))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, mk("/api/cars?status=sold"))
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}

func TestCacheInvalidatorNilSafe(t *testing.T) {
	ci := NewCacheInvalidator(config.CacheConfig{Enabled: true, Prefix: "cache"}, nil)
	assert.NoError(t, ci.Invalidate(context.Background(), "cars"))
	var none *CacheInvalidator
	assert.NoError(t, none.Invalidate(context.Background(), "cars"))
}
