package model

import "time"

// Car status values stored in cars.status.
const (
	CarAvailable = "available"
	CarSold      = "sold"
	CarReserved  = "reserved"
)

// CarStatuses lists the valid car statuses in display order.
var CarStatuses = []string{CarAvailable, CarSold, CarReserved}

// ValidCarStatus reports whether s is a known car status.
func ValidCarStatus(s string) bool {
	for _, v := range CarStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Fuel types accepted for cars.fuel_type.  Petrol is the default when
// none is supplied.
var FuelTypes = []string{"petrol", "diesel", "electric", "hybrid"}

// DefaultFuelType is stored when a car is written without a fuel type.
const DefaultFuelType = "petrol"

// ValidFuelType reports whether f is a known fuel type.
func ValidFuelType(f string) bool {
	for _, v := range FuelTypes {
		if v == f {
			return true
		}
	}
	return false
}

// Car mirrors the `cars` table.  Color is nullable; Mileage and FuelType
// are always stored (defaulting to 0 and petrol).
type Car struct {
	ID          uint64  `json:"id"`
	ModelID     uint64  `json:"modelId"`
	Year        int     `json:"year"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	ImageURL    string  `json:"imageUrl"`
	Model3DURL  string  `json:"model3dUrl"`
	Status      string  `json:"status"`
	Color       *string `json:"color,omitempty"`
	Mileage     int     `json:"mileage"`
	FuelType    string  `json:"fuelType"`
}

// CarDetail is a car joined with its model and brand names.  Model and
// brand are nullable because listings use a left join.
type CarDetail struct {
	Car
	ModelName string    `json:"model_name"`
	BrandName string    `json:"brand_name"`
	CreatedAt time.Time `json:"created_at"`
}
