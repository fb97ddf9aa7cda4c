package model

import "time"

// Rating bounds, both inclusive.
const (
	MinRating = 1
	MaxRating = 5
)

// ValidRating reports whether r lies within [MinRating, MaxRating].
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// Review is a user's rating and comment on a car.
type Review struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	CarID     uint64    `json:"car_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// ReviewDetail joins a review with its author's email and the car's
// year, model and brand.
type ReviewDetail struct {
	Review
	UserEmail string `json:"user_email"`
	Year      int    `json:"year"`
	ModelName string `json:"model_name"`
	BrandName string `json:"brand_name"`
}
