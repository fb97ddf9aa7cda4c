package model

import "time"

// Booking types accepted on creation.
const (
	BookingTestDrive = "test_drive"
	BookingInquiry   = "inquiry"
)

// Booking statuses.  Only a pending booking may be deleted by its owner;
// approved and rejected are set by an admin.
const (
	BookingPending  = "pending"
	BookingApproved = "approved"
	BookingRejected = "rejected"
)

// ValidBookingType reports whether t is test_drive or inquiry.
func ValidBookingType(t string) bool {
	return t == BookingTestDrive || t == BookingInquiry
}

// ValidBookingDecision reports whether s is a status an admin may set.
func ValidBookingDecision(s string) bool {
	return s == BookingApproved || s == BookingRejected
}

// Booking records a user's request to test drive or ask about a car.
//
// Fields:
//
//	ID          – primary key identifier.
//	UserID      – user who made the booking.
//	CarID       – car being booked.
//	BookingDate – requested date and time (UTC).
//	Type        – test_drive or inquiry.
//	Status      – pending, approved or rejected.
//	Message     – optional free text from the user.
//	CreatedAt   – creation timestamp.
type Booking struct {
	ID          uint64    `json:"id"`
	UserID      uint64    `json:"userId"`
	CarID       uint64    `json:"carId"`
	BookingDate time.Time `json:"bookingDate"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	Message     *string   `json:"message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// BookingDetail is a booking joined with the booked car's year, model
// and brand, as shown in "my bookings" and the admin listing.
type BookingDetail struct {
	Booking
	Year      int    `json:"year"`
	ModelName string `json:"model_name"`
	BrandName string `json:"brand_name"`
	UserEmail string `json:"user_email,omitempty"`
}
