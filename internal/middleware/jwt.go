package middleware // middleware provides reusable HTTP middleware for the API

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-dealership/internal/model"
	"github.com/iliyamo/car-dealership/internal/repository"
	"github.com/iliyamo/car-dealership/internal/utils"
)

// UserLookup loads the user a token refers to.
type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// AuthOptions tweak JWTAuth.  AllowQueryToken additionally accepts the
// token in the "token" query parameter, which browsers need for
// websocket upgrades.
type AuthOptions struct {
	AllowQueryToken bool
}

// JWTAuth returns an Echo middleware that validates a Bearer access token,
// re-fetches the user it names and attaches the resulting Identity to the
// request context.  Every failure responds 401.
func JWTAuth(secret string, users UserLookup, opts ...AuthOptions) echo.MiddlewareFunc {
	var opt AuthOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c.Request().Header.Get("Authorization"))
			if raw == "" && opt.AllowQueryToken {
				raw = c.QueryParam("token")
			}
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "No token provided"})
			}

			claims, err := utils.VerifyToken(raw, secret)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid token", "details": err.Error()})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			u, err := users.GetByID(ctx, claims.ID)
			if err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "User not found in database"})
				}
				slog.Error("auth user lookup failed", "user_id", claims.ID, "err", err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Server error"})
			}

			id := Identity{ID: u.ID, Email: u.Email, Role: u.Role}
			if claims.IssuedAt != nil {
				id.IssuedAt = claims.IssuedAt.Time
			}
			if claims.ExpiresAt != nil {
				id.ExpiresAt = claims.ExpiresAt.Time
			}
			SetIdentity(c, id)
			return next(c)
		}
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
