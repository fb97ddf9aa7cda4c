package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-dealership/internal/config"
	"github.com/iliyamo/car-dealership/internal/model"
	"github.com/iliyamo/car-dealership/internal/repository"
	"github.com/iliyamo/car-dealership/internal/utils"
)

// UserStore is the user persistence the auth and user handlers need.
type UserStore interface {
	Create(ctx context.Context, username, email, password, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context) ([]model.UserWithActivity, error)
	Update(ctx context.Context, id uint64, username, email, role, password string, cost int) error
	Delete(ctx context.Context, id uint64) error
	FirstAdminEmail(ctx context.Context) (string, error)
}

// LoginRecorder appends to the login log.
type LoginRecorder interface {
	Record(ctx context.Context, userID uint64, role string) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg     config.Config
	TTL     time.Duration
	Users   UserStore
	Logins  LoginRecorder
	Reports ReportStore
	Cache   CacheInvalidator
	Log     *slog.Logger
}

// NewAuthHandler resolves the token lifetime from cfg.JWTExpiresIn,
// warning and falling back to one hour when it cannot be parsed.
func NewAuthHandler(cfg config.Config, users UserStore, logins LoginRecorder, reports ReportStore, cache CacheInvalidator, lg *slog.Logger) *AuthHandler {
	lg = orDefault(lg)
	if cache == nil {
		cache = nopCache{}
	}
	ttl, ok := utils.ParseTTL(cfg.JWTExpiresIn)
	if !ok {
		lg.Warn("invalid JWT_EXPIRES_IN, using default", "value", cfg.JWTExpiresIn, "default", utils.DefaultTokenTTL)
	}
	return &AuthHandler{Cfg: cfg, TTL: ttl, Users: users, Logins: logins, Reports: reports, Cache: cache, Log: lg}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResp struct {
	Message string           `json:"message"`
	Token   string           `json:"token"`
	User    model.PublicUser `json:"user"`
}

// Register creates a client account and signs the new user in.  Any
// role in the body is ignored.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = model.NormalizeEmail(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return errorJSON(c, http.StatusBadRequest, "Username, email and password are required")
	}
	if !model.ValidEmail(req.Email) {
		return errorJSON(c, http.StatusBadRequest, "Invalid email format")
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Username, req.Email, req.Password, model.RoleClient, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return errorJSON(c, http.StatusBadRequest, "Email already exists")
		}
		return serverError(c, h.Log, "create user", err)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return serverError(c, h.Log, "load user", err)
	}
	return h.signIn(ctx, c, u, http.StatusCreated, "User registered successfully")
}

// Login verifies credentials and returns a fresh token.  Unknown email
// and wrong password are indistinguishable to the caller.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Email = model.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		return errorJSON(c, http.StatusBadRequest, "Email and password are required")
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errorJSON(c, http.StatusUnauthorized, "Invalid email or password")
		}
		return serverError(c, h.Log, "load user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return errorJSON(c, http.StatusUnauthorized, "Invalid email or password")
	}
	return h.signIn(ctx, c, u, http.StatusOK, "Login successful")
}

// signIn issues a token for u, records the login and writes the response.
func (h *AuthHandler) signIn(ctx context.Context, c echo.Context, u model.User, status int, msg string) error {
	tok, err := utils.IssueToken(h.Cfg.JWTSecret, u.ID, u.Email, u.Role, h.TTL)
	if err != nil {
		return serverError(c, h.Log, "issue token", err)
	}
	if err := h.Logins.Record(ctx, u.ID, u.Role); err != nil {
		return serverError(c, h.Log, "record login", err)
	}
	return c.JSON(status, authResp{Message: msg, Token: tok.Token, User: u.Public()})
}

// Dashboard returns client registration and login activity.
func (h *AuthHandler) Dashboard(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()
	d, err := h.Reports.Dashboard(ctx)
	if err != nil {
		return serverError(c, h.Log, "dashboard", err)
	}
	return c.JSON(http.StatusOK, d)
}

// RecentActivity returns the three most recent logins.
func (h *AuthHandler) RecentActivity(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()
	feed, err := h.Reports.RecentActivity(ctx, 3)
	if err != nil {
		return serverError(c, h.Log, "recent activity", err)
	}
	return c.JSON(http.StatusOK, feed)
}

type profileReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Me returns the caller's own profile.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, identity(c).ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errorJSON(c, http.StatusNotFound, "User not found")
		}
		return serverError(c, h.Log, "load profile", err)
	}
	return c.JSON(http.StatusOK, u.Public())
}

// UpdateMe changes the caller's username, email and optionally password.
// The role is never changed here.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	var req profileReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = model.NormalizeEmail(req.Email)
	if req.Username == "" || req.Email == "" {
		return errorJSON(c, http.StatusBadRequest, "Username and email are required")
	}
	if !model.ValidEmail(req.Email) {
		return errorJSON(c, http.StatusBadRequest, "Invalid email format")
	}

	ctx, cancel := dbContext(c)
	defer cancel()
	me := identity(c)
	if err := h.Users.Update(ctx, me.ID, req.Username, req.Email, me.Role, req.Password, h.Cfg.BcryptCost); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return errorJSON(c, http.StatusBadRequest, "Email already exists")
		case errors.Is(err, repository.ErrUserNotFound):
			return errorJSON(c, http.StatusNotFound, "User not found")
		}
		return serverError(c, h.Log, "update profile", err)
	}
	invalidate(c, h.Log, h.Cache, userGroups...)
	u, err := h.Users.GetByID(ctx, me.ID)
	if err != nil {
		return serverError(c, h.Log, "load profile", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Profile updated successfully", "user": u.Public()})
}
