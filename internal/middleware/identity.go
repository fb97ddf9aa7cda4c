package middleware

// identity.go defines the authenticated identity shared by the auth
// middleware, the role gate, the rate limiter and every handler.

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// identityKey is the echo.Context key JWTAuth stores the Identity under.
const identityKey = "identity"

// Identity is the caller as established by JWTAuth.  Email and Role come
// from the users row, not from the token, so a role change takes effect
// on the next request.
type Identity struct {
	ID        uint64
	Email     string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SetIdentity attaches id to c.  The user id and role are also stored
// under "user_id" and "role" for the rate limiter key builder.
func SetIdentity(c echo.Context, id Identity) {
	c.Set(identityKey, id)
	c.Set("user_id", strconv.FormatUint(id.ID, 10))
	c.Set("role", id.Role)
}

// CurrentIdentity returns the identity attached by JWTAuth, if any.
func CurrentIdentity(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityKey).(Identity)
	return id, ok
}

// userID extracts the caller's id for keying purposes. It returns "anon"
// when no user is authenticated.
func userID(c echo.Context) string {
	if v, ok := c.Get("user_id").(string); ok && v != "" {
		return v
	}
	return "anon"
}
