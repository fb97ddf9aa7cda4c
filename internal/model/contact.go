package model

import (
	"regexp"
	"time"
)

// Contact statuses.
const (
	ContactPending = "pending"
	ContactReplied = "replied"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail performs the same loose shape check the site's forms use:
// something@something.tld with no whitespace.
func ValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// Contact is a message left by a visitor through the contact form.
// FileName holds the storage reference of an optional attachment.
type Contact struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	FileName  *string   `json:"file_name,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
