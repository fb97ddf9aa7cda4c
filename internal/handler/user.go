package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-dealership/internal/model"
	"github.com/iliyamo/car-dealership/internal/repository"
)

// UserHandler serves admin user management.
type UserHandler struct {
	Users      UserStore
	BcryptCost int
	Cache      CacheInvalidator
	Log        *slog.Logger
}

func NewUserHandler(users UserStore, bcryptCost int, cache CacheInvalidator, lg *slog.Logger) *UserHandler {
	if cache == nil {
		cache = nopCache{}
	}
	return &UserHandler{Users: users, BcryptCost: bcryptCost, Cache: cache, Log: orDefault(lg)}
}

// userGroups are the cached groups showing user data.  Reviews carry the
// author email and a user delete removes that user's reviews.
var userGroups = []string{"reviews"}

type userReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (r *userReq) normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = model.NormalizeEmail(r.Email)
	r.Role = strings.TrimSpace(r.Role)
}

// List returns every user with their activity status.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()
	users, err := h.Users.List(ctx)
	if err != nil {
		return serverError(c, h.Log, "list users", err)
	}
	return c.JSON(http.StatusOK, users)
}

// Create adds a user with an explicit role.
func (h *UserHandler) Create(c echo.Context) error {
	var req userReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	req.normalize()
	if req.Username == "" || req.Email == "" || req.Password == "" || req.Role == "" {
		return errorJSON(c, http.StatusBadRequest, "Username, email, password and role are required")
	}
	if !model.ValidEmail(req.Email) {
		return errorJSON(c, http.StatusBadRequest, "Invalid email format")
	}
	if !model.ValidRole(req.Role) {
		return errorJSON(c, http.StatusBadRequest, "Role must be client or admin")
	}

	ctx, cancel := dbContext(c)
	defer cancel()
	id, err := h.Users.Create(ctx, req.Username, req.Email, req.Password, req.Role, h.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return errorJSON(c, http.StatusBadRequest, "Email already exists")
		}
		return serverError(c, h.Log, "create user", err)
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return serverError(c, h.Log, "load user", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "User added successfully", "user": u.Public()})
}

// Update edits a user; an empty password leaves the hash untouched.
func (h *UserHandler) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid user id")
	}
	var req userReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	req.normalize()
	if req.Username == "" || req.Email == "" || req.Role == "" {
		return errorJSON(c, http.StatusBadRequest, "Username, email and role are required")
	}
	if !model.ValidEmail(req.Email) {
		return errorJSON(c, http.StatusBadRequest, "Invalid email format")
	}
	if !model.ValidRole(req.Role) {
		return errorJSON(c, http.StatusBadRequest, "Role must be client or admin")
	}

	ctx, cancel := dbContext(c)
	defer cancel()
	if err := h.Users.Update(ctx, id, req.Username, req.Email, req.Role, req.Password, h.BcryptCost); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return errorJSON(c, http.StatusNotFound, "User not found")
		case errors.Is(err, repository.ErrEmailExists):
			return errorJSON(c, http.StatusBadRequest, "Email already exists")
		}
		return serverError(c, h.Log, "update user", err)
	}
	invalidate(c, h.Log, h.Cache, userGroups...)
	return c.JSON(http.StatusOK, echo.Map{"message": "User updated successfully"})
}

// Delete removes a user and everything they own.  Admins cannot delete
// themselves.
func (h *UserHandler) Delete(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid user id")
	}
	if id == identity(c).ID {
		return errorJSON(c, http.StatusBadRequest, "You cannot delete your own account")
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	if err := h.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errorJSON(c, http.StatusNotFound, "User not found")
		}
		return serverError(c, h.Log, "delete user", err)
	}
	invalidate(c, h.Log, h.Cache, userGroups...)
	return c.JSON(http.StatusOK, echo.Map{"message": "User deleted successfully"})
}

// AdminEmail returns the contact address of the first admin.
func (h *UserHandler) AdminEmail(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()
	email, err := h.Users.FirstAdminEmail(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errorJSON(c, http.StatusNotFound, "Admin not found")
		}
		return serverError(c, h.Log, "admin email", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"email": email})
}
