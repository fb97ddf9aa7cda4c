package model

import (
	"strings"
	"time"
)

// Role names stored in users.role and carried in the JWT "role" claim.
// There are exactly two and nothing else is ever accepted.
const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

// ValidRole reports whether r is one of the two known roles.
func ValidRole(r string) bool {
	return r == RoleClient || r == RoleAdmin
}

// User represents an application user record as stored in the
// `users` table.  The password hash never leaves the server; handlers
// convert a User into a PublicUser before responding.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Username     – display name chosen at registration.
//	Email        – unique, lower-cased email address.
//	PasswordHash – bcrypt hashed password.
//	Role         – client or admin.
//	CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	CreatedAt    time.Time // users.created_at
}

// PublicUser is the view of a user returned by the API.
type PublicUser struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Public strips the password hash.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

// UserWithActivity is a row of the admin user listing.  Status is
// "Active" when the user logged in within ActiveWindow, otherwise
// "Inactive".
type UserWithActivity struct {
	PublicUser
	LastLogin *time.Time `json:"last_login,omitempty"`
	Status    string     `json:"status"`
}

// ActiveWindow is how recent a login must be for a user to count as active.
const ActiveWindow = 30 * 24 * time.Hour

// ActivityStatus derives the listing status from the last login time.
func ActivityStatus(lastLogin *time.Time, now time.Time) string {
	if lastLogin != nil && now.Sub(*lastLogin) <= ActiveWindow {
		return "Active"
	}
	return "Inactive"
}

// NormalizeEmail trims and lower-cases an email address so uniqueness
// checks are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LoginLog is one append-only row of the `login_logs` table, written on
// every successful login and registration.
type LoginLog struct {
	ID      uint64
	UserID  uint64
	Role    string
	LoginAt time.Time
}
