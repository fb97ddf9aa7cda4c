package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-dealership/internal/model"
	"github.com/iliyamo/car-dealership/internal/queue"
	"github.com/iliyamo/car-dealership/internal/repository"
)

// BookingStore is the bookings persistence.
type BookingStore interface {
	Create(ctx context.Context, userID, carID uint64, date time.Time, typ string, message *string) (model.Booking, error)
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error)
	ListAll(ctx context.Context) ([]model.BookingDetail, error)
	DeletePending(ctx context.Context, id, userID uint64) (model.Booking, error)
	UpdateStatus(ctx context.Context, id uint64, status string) (model.Booking, error)
}

// BookingHandler serves test drive and inquiry bookings.
type BookingHandler struct {
	Bookings BookingStore
	Cars     CarStore
	Events   EventPublisher
	Cache    CacheInvalidator
	Log      *slog.Logger
}

func NewBookingHandler(bookings BookingStore, cars CarStore, events EventPublisher, cache CacheInvalidator, lg *slog.Logger) *BookingHandler {
	if events == nil {
		events = nopEvents{}
	}
	if cache == nil {
		cache = nopCache{}
	}
	return &BookingHandler{Bookings: bookings, Cars: cars, Events: events, Cache: cache, Log: orDefault(lg)}
}

type bookingReq struct {
	CarID       uint64  `json:"carId"`
	BookingDate string  `json:"bookingDate"`
	Type        string  `json:"type"`
	Message     *string `json:"message"`
}

// bookingDateLayouts are tried in order; all are ISO 8601 forms.
var bookingDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseBookingDate(s string) (time.Time, bool) {
	for _, layout := range bookingDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Create books a car for the caller with status pending.
func (h *BookingHandler) Create(c echo.Context) error {
	var req bookingReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	req.BookingDate = strings.TrimSpace(req.BookingDate)
	if req.CarID == 0 || req.BookingDate == "" || req.Type == "" {
		return errorJSON(c, http.StatusBadRequest, "carId, bookingDate and type are required")
	}
	if !model.ValidBookingType(req.Type) {
		return errorJSON(c, http.StatusBadRequest, "Invalid booking type, must be test_drive or inquiry")
	}
	date, ok := parseBookingDate(req.BookingDate)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "bookingDate must be an ISO 8601 date")
	}
	if req.Message != nil && strings.TrimSpace(*req.Message) == "" {
		req.Message = nil
	}

	ctx, cancel := dbContext(c)
	defer cancel()
	exists, err := h.Cars.Exists(ctx, req.CarID)
	if err != nil {
		return serverError(c, h.Log, "check car", err)
	}
	if !exists {
		return errorJSON(c, http.StatusNotFound, "Car not found")
	}

	me := identity(c)
	b, err := h.Bookings.Create(ctx, me.ID, req.CarID, date, req.Type, req.Message)
	if err != nil {
		if errors.Is(err, repository.ErrCarNotFound) {
			return errorJSON(c, http.StatusNotFound, "Car not found")
		}
		return serverError(c, h.Log, "create booking", err)
	}

	ev := queue.NewEvent(queue.BookingCreated)
	ev.BookingID, ev.UserID, ev.CarID, ev.BookingType = b.ID, me.ID, b.CarID, b.Type
	publish(c, h.Log, h.Events, ev)
	return c.JSON(http.StatusCreated, b)
}

// Mine lists the caller's bookings.
func (h *BookingHandler) Mine(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()
	list, err := h.Bookings.ListByUser(ctx, identity(c).ID)
	if err != nil {
		return serverError(c, h.Log, "list my bookings", err)
	}
	return c.JSON(http.StatusOK, list)
}

// Delete cancels one of the caller's pending bookings and releases the car.
func (h *BookingHandler) Delete(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid booking id")
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	me := identity(c)
	b, err := h.Bookings.DeletePending(ctx, id, me.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return errorJSON(c, http.StatusNotFound, "Booking not found")
		case errors.Is(err, repository.ErrForbidden):
			return errorJSON(c, http.StatusForbidden, "You can only delete your own bookings")
		case errors.Is(err, repository.ErrBookingNotPending):
			return errorJSON(c, http.StatusBadRequest, "Only pending bookings can be deleted")
		}
		return serverError(c, h.Log, "delete booking", err)
	}
	invalidate(c, h.Log, h.Cache, "cars")

	ev := queue.NewEvent(queue.BookingDeleted)
	ev.BookingID, ev.UserID, ev.CarID = b.ID, me.ID, b.CarID
	publish(c, h.Log, h.Events, ev)
	return c.JSON(http.StatusOK, echo.Map{"message": "Booking deleted successfully"})
}

// List returns every booking for admins.
func (h *BookingHandler) List(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()
	list, err := h.Bookings.ListAll(ctx)
	if err != nil {
		return serverError(c, h.Log, "list bookings", err)
	}
	return c.JSON(http.StatusOK, list)
}

type bookingStatusReq struct {
	Status string `json:"status"`
}

// UpdateStatus approves or rejects a booking.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid booking id")
	}
	var req bookingStatusReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if !model.ValidBookingDecision(req.Status) {
		return errorJSON(c, http.StatusBadRequest, "Status must be approved or rejected")
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	b, err := h.Bookings.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return errorJSON(c, http.StatusNotFound, "Booking not found")
		}
		return serverError(c, h.Log, "update booking", err)
	}
	return c.JSON(http.StatusOK, b)
}
