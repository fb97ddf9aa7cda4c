// Package queue defines the domain events exchanged over the message
// broker and the consumer that records them.
package queue

import "time"

// Event types published by the API.
const (
	BookingCreated  = "booking.created"
	BookingDeleted  = "booking.deleted"
	ContactReceived = "contact.received"
	ContactReplied  = "contact.replied"
)

// Event is the single envelope for every domain event.  Only the ids
// relevant to Type are set; consumers must not need the database to
// produce a readable record.
type Event struct {
	Type        string    `json:"type"`
	OccurredAt  time.Time `json:"occurred_at"`
	UserID      uint64    `json:"user_id,omitempty"`
	CarID       uint64    `json:"car_id,omitempty"`
	BookingID   uint64    `json:"booking_id,omitempty"`
	BookingType string    `json:"booking_type,omitempty"`
	ContactID   uint64    `json:"contact_id,omitempty"`
	Email       string    `json:"email,omitempty"`
	HasFile     bool      `json:"has_file,omitempty"`
}

// NewEvent stamps an event of type typ with the current UTC time.
func NewEvent(typ string) Event {
	return Event{Type: typ, OccurredAt: time.Now().UTC()}
}
