package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-dealership/internal/model"
	"github.com/iliyamo/car-dealership/internal/repository"
)

// CarStore is the car catalogue persistence.
type CarStore interface {
	List(ctx context.Context, status string) ([]model.CarDetail, error)
	GetByID(ctx context.Context, id uint64) (model.CarDetail, error)
	Exists(ctx context.Context, id uint64) (bool, error)
	Create(ctx context.Context, car model.Car) (uint64, error)
	Update(ctx context.Context, car model.Car) error
	Delete(ctx context.Context, id uint64) error
	Brands(ctx context.Context) ([]string, error)
	Years(ctx context.Context) ([]string, error)
}

// catalogueGroups are the cached response groups a car write can change.
// Reviews embed car details so they are included.
var catalogueGroups = []string{"cars", "brands", "years", "reviews"}

// CarHandler serves the public catalogue and admin car management.
type CarHandler struct {
	Cars  CarStore
	Cache CacheInvalidator
	Log   *slog.Logger
}

func NewCarHandler(cars CarStore, cache CacheInvalidator, lg *slog.Logger) *CarHandler {
	if cache == nil {
		cache = nopCache{}
	}
	return &CarHandler{Cars: cars, Cache: cache, Log: orDefault(lg)}
}

type carReq struct {
	ModelID     uint64   `json:"modelId"`
	Year        int      `json:"year"`
	Price       *float64 `json:"price"`
	Description string   `json:"description"`
	ImageURL    string   `json:"imageUrl"`
	Model3DURL  string   `json:"model3dUrl"`
	Status      string   `json:"status"`
	Color       *string  `json:"color"`
	Mileage     *int     `json:"mileage"`
	FuelType    string   `json:"fuelType"`
}

// toCar validates the request and returns the car to store, or the
// message to answer 400 with.
func (r carReq) toCar() (model.Car, string) {
	if r.ModelID == 0 || r.Year == 0 || r.Price == nil || strings.TrimSpace(r.Description) == "" ||
		r.ImageURL == "" || r.Model3DURL == "" || r.Status == "" {
		return model.Car{}, "modelId, year, price, description, imageUrl, model3dUrl and status are required"
	}
	if *r.Price <= 0 {
		return model.Car{}, "Price must be greater than 0"
	}
	if !model.ValidCarStatus(r.Status) {
		return model.Car{}, "Invalid status, must be one of: " + strings.Join(model.CarStatuses, ", ")
	}
	fuel := r.FuelType
	if fuel == "" {
		fuel = model.DefaultFuelType
	}
	if !model.ValidFuelType(fuel) {
		return model.Car{}, "Invalid fuelType, must be one of: " + strings.Join(model.FuelTypes, ", ")
	}
	mileage := 0
	if r.Mileage != nil {
		if *r.Mileage < 0 {
			return model.Car{}, "Mileage cannot be negative"
		}
		mileage = *r.Mileage
	}
	var color *string
	if r.Color != nil && strings.TrimSpace(*r.Color) != "" {
		s := strings.TrimSpace(*r.Color)
		color = &s
	}
	return model.Car{
		ModelID:     r.ModelID,
		Year:        r.Year,
		Price:       *r.Price,
		Description: strings.TrimSpace(r.Description),
		ImageURL:    r.ImageURL,
		Model3DURL:  r.Model3DURL,
		Status:      r.Status,
		Color:       color,
		Mileage:     mileage,
		FuelType:    fuel,
	}, ""
}

// List returns the catalogue, optionally filtered by ?status=.
func (h *CarHandler) List(c echo.Context) error {
	status := strings.TrimSpace(c.QueryParam("status"))
	if status != "" && !model.ValidCarStatus(status) {
		return errorJSON(c, http.StatusBadRequest, "Invalid status, must be one of: "+strings.Join(model.CarStatuses, ", "))
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	cars, err := h.Cars.List(ctx, status)
	if err != nil {
		return serverError(c, h.Log, "list cars", err)
	}
	return c.JSON(http.StatusOK, cars)
}

// Get returns one car.
func (h *CarHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid car id")
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	car, err := h.Cars.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCarNotFound) {
			return errorJSON(c, http.StatusNotFound, "Car not found")
		}
		return serverError(c, h.Log, "get car", err)
	}
	return c.JSON(http.StatusOK, car)
}

// Brands lists brand names.
func (h *CarHandler) Brands(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()
	brands, err := h.Cars.Brands(ctx)
	if err != nil {
		return serverError(c, h.Log, "list brands", err)
	}
	return c.JSON(http.StatusOK, brands)
}

// Years lists the distinct model years in the catalogue.
func (h *CarHandler) Years(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()
	years, err := h.Cars.Years(ctx)
	if err != nil {
		return serverError(c, h.Log, "list years", err)
	}
	return c.JSON(http.StatusOK, years)
}

// Create adds a car and returns it with model and brand names.
func (h *CarHandler) Create(c echo.Context) error {
	var req carReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	car, msg := req.toCar()
	if msg != "" {
		return errorJSON(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	id, err := h.Cars.Create(ctx, car)
	if err != nil {
		if errors.Is(err, repository.ErrUnknownModel) {
			return errorJSON(c, http.StatusBadRequest, "Unknown modelId")
		}
		return serverError(c, h.Log, "create car", err)
	}
	invalidate(c, h.Log, h.Cache, catalogueGroups...)
	stored, err := h.Cars.GetByID(ctx, id)
	if err != nil {
		return serverError(c, h.Log, "load car", err)
	}
	return c.JSON(http.StatusCreated, stored)
}

// Update replaces every field of a car.
func (h *CarHandler) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid car id")
	}
	var req carReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	car, msg := req.toCar()
	if msg != "" {
		return errorJSON(c, http.StatusBadRequest, msg)
	}
	car.ID = id

	ctx, cancel := dbContext(c)
	defer cancel()
	if err := h.Cars.Update(ctx, car); err != nil {
		switch {
		case errors.Is(err, repository.ErrCarNotFound):
			return errorJSON(c, http.StatusNotFound, "Car not found")
		case errors.Is(err, repository.ErrUnknownModel):
			return errorJSON(c, http.StatusBadRequest, "Unknown modelId")
		}
		return serverError(c, h.Log, "update car", err)
	}
	invalidate(c, h.Log, h.Cache, catalogueGroups...)
	stored, err := h.Cars.GetByID(ctx, id)
	if err != nil {
		return serverError(c, h.Log, "load car", err)
	}
	return c.JSON(http.StatusOK, stored)
}

// Delete removes a car along with its bookings and reviews.
func (h *CarHandler) Delete(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid car id")
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	if err := h.Cars.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCarNotFound) {
			return errorJSON(c, http.StatusNotFound, "Car not found")
		}
		return serverError(c, h.Log, "delete car", err)
	}
	invalidate(c, h.Log, h.Cache, catalogueGroups...)
	return c.NoContent(http.StatusNoContent)
}
