package handler

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/car-dealership/internal/config"
	"github.com/iliyamo/car-dealership/internal/model"
	"github.com/iliyamo/car-dealership/internal/utils"
)

const testSecret = "handler-test-secret"

type authFixture struct {
	e       *echo.Echo
	users   *fakeUsers
	logins  *fakeLogins
	reports *fakeReports
	cache   *recordingCache
	h       *AuthHandler
}

func newAuthFixture(t *testing.T, seed ...model.User) authFixture {
	t.Helper()
	cfg := config.Config{JWTSecret: testSecret, JWTExpiresIn: "1h", BcryptCost: 4}
	f := authFixture{e: echo.New(), users: newFakeUsers(seed...), logins: &fakeLogins{}, reports: &fakeReports{}, cache: &recordingCache{}}
	f.h = NewAuthHandler(cfg, f.users, f.logins, f.reports, f.cache, nil)
	f.e.POST("/api/auth/register", f.h.Register)
	f.e.POST("/api/auth/login", f.h.Login)
	f.e.GET("/api/auth/dashboard", f.h.Dashboard)
	f.e.GET("/api/auth/recent-activity", f.h.RecentActivity)
	return f
}

func TestRegisterIssuesClientToken(t *testing.T) {
	f := newAuthFixture(t)
	rec := doJSON(t, f.e, http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"Alice@Example.com","password":"pw123456","role":"admin"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp authResp
	decode(t, rec, &resp)
	assert.Equal(t, "User registered successfully", resp.Message)
	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.Equal(t, model.RoleClient, resp.User.Role)

	claims, err := utils.VerifyToken(resp.Token, testSecret)
	require.NoError(t, err)
	stored, err := f.users.GetByEmail(t.Context(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, claims.ID)
	assert.Equal(t, model.RoleClient, claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)

	require.Len(t, f.logins.rows, 1)
	assert.Equal(t, stored.ID, f.logins.rows[0].UserID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	body := `{"username":"alice","email":"alice@example.com","password":"pw"}`
	require.Equal(t, http.StatusCreated, doJSON(t, f.e, http.MethodPost, "/api/auth/register", body).Code)

	rec := doJSON(t, f.e, http.MethodPost, "/api/auth/register", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already exists", errorOf(t, rec))
}

func TestRegisterValidation(t *testing.T) {
	f := newAuthFixture(t)
	cases := []struct{ body, want string }{
		{`{"email":"a@b.co","password":"x"}`, "Username, email and password are required"},
		{`{"username":"a","email":"nope","password":"x"}`, "Invalid email format"},
		{`{"username":"a","email":"a b@c.io","password":"x"}`, "Invalid email format"},
	}
	for _, tc := range cases {
		body, want := tc.body, tc.want
		rec := doJSON(t, f.e, http.MethodPost, "/api/auth/register", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, want, errorOf(t, rec), body)
	}
	assert.Empty(t, f.logins.rows)
}

func TestLogin(t *testing.T) {
	hash, err := utils.HashPassword("correct", 4)
	require.NoError(t, err)
	f := newAuthFixture(t, model.User{ID: 7, Username: "bob", Email: "bob@example.com", PasswordHash: hash, Role: model.RoleAdmin})

	rec := doJSON(t, f.e, http.MethodPost, "/api/auth/login", `{"email":"BOB@example.com","password":"correct"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp authResp
	decode(t, rec, &resp)
	assert.Equal(t, "Login successful", resp.Message)
	claims, err := utils.VerifyToken(resp.Token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), claims.ID)
	assert.Equal(t, model.RoleAdmin, claims.Role)
	require.Len(t, f.logins.rows, 1)
	assert.Equal(t, model.RoleAdmin, f.logins.rows[0].Role)

	for _, body := range []string{
		`{"email":"bob@example.com","password":"wrong"}`,
		`{"email":"nobody@example.com","password":"correct"}`,
	} {
		rec := doJSON(t, f.e, http.MethodPost, "/api/auth/login", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid email or password", errorOf(t, rec))
	}
	assert.Len(t, f.logins.rows, 1)
}

func TestRecentActivityAsksForThree(t *testing.T) {
	f := newAuthFixture(t)
	f.reports.activity = []model.Activity{{Message: "User bob (client) logged in", Timestamp: time.Now()}}
	rec := doJSON(t, f.e, http.MethodGet, "/api/auth/recent-activity", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, f.reports.gotLimit)

	var feed []model.Activity
	decode(t, rec, &feed)
	require.Len(t, feed, 1)
	assert.Equal(t, "User bob (client) logged in", feed[0].Message)
}

func TestProfileUpdateKeepsRole(t *testing.T) {
	f := newAuthFixture(t,
		model.User{ID: 1, Username: "bob", Email: "bob@example.com", Role: model.RoleClient},
		model.User{ID: 2, Username: "eve", Email: "eve@example.com", Role: model.RoleClient})
	f.e.GET("/api/me", f.h.Me, as(1, model.RoleClient))
	f.e.PUT("/api/me", f.h.UpdateMe, as(1, model.RoleClient))

	rec := doJSON(t, f.e, http.MethodPut, "/api/me", `{"username":"bobby","email":"eve@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already exists", errorOf(t, rec))

	assert.Empty(t, f.cache.groups)

	rec = doJSON(t, f.e, http.MethodPut, "/api/me", `{"username":"bobby","email":"bobby@example.com","role":"admin"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"reviews"}, f.cache.groups)

	rec = doJSON(t, f.e, http.MethodGet, "/api/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var me model.PublicUser
	decode(t, rec, &me)
	assert.Equal(t, "bobby", me.Username)
	assert.Equal(t, "bobby@example.com", me.Email)
	assert.Equal(t, model.RoleClient, me.Role)
}

func TestSignInFailsWhenLoginLogFails(t *testing.T) {
	f := newAuthFixture(t)
	f.logins.err = errors.New("login_logs: connection refused")

	rec := doJSON(t, f.e, http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"pw123456"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Server error", errorOf(t, rec))
	assert.NotContains(t, rec.Body.String(), "token")

	rec = doJSON(t, f.e, http.MethodPost, "/api/auth/login", `{"email":"alice@example.com","password":"pw123456"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Server error", errorOf(t, rec))
}
