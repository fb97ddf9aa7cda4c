package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-dealership/internal/model"
	"github.com/iliyamo/car-dealership/internal/repository"
)

// ReviewStore is the reviews persistence.
type ReviewStore interface {
	List(ctx context.Context, carID uint64) ([]model.ReviewDetail, error)
	GetByID(ctx context.Context, id uint64) (model.Review, error)
	Create(ctx context.Context, userID, carID uint64, rating int, comment string) (model.Review, error)
	Update(ctx context.Context, id uint64, rating int, comment string) (model.Review, error)
	Delete(ctx context.Context, id uint64) error
}

// ReviewHandler serves car reviews.
type ReviewHandler struct {
	Reviews ReviewStore
	Cars    CarStore
	Cache   CacheInvalidator
	Log     *slog.Logger
}

func NewReviewHandler(reviews ReviewStore, cars CarStore, cache CacheInvalidator, lg *slog.Logger) *ReviewHandler {
	if cache == nil {
		cache = nopCache{}
	}
	return &ReviewHandler{Reviews: reviews, Cars: cars, Cache: cache, Log: orDefault(lg)}
}

type reviewReq struct {
	CarID   uint64 `json:"car_id"`
	Rating  *int   `json:"rating"`
	Comment string `json:"comment"`
}

const ratingMsg = "Rating must be between 1 and 5"

// List returns reviews, optionally for one car via ?carId=.
func (h *ReviewHandler) List(c echo.Context) error {
	var carID uint64
	if raw := c.QueryParam("carId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return errorJSON(c, http.StatusBadRequest, "Invalid carId")
		}
		carID = id
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	list, err := h.Reviews.List(ctx, carID)
	if err != nil {
		return serverError(c, h.Log, "list reviews", err)
	}
	return c.JSON(http.StatusOK, list)
}

// Create posts a review by the caller.
func (h *ReviewHandler) Create(c echo.Context) error {
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Comment = strings.TrimSpace(req.Comment)
	if req.CarID == 0 || req.Rating == nil || req.Comment == "" {
		return errorJSON(c, http.StatusBadRequest, "car_id, rating and comment are required")
	}
	if !model.ValidRating(*req.Rating) {
		return errorJSON(c, http.StatusBadRequest, ratingMsg)
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
	rv, err := h.Reviews.Create(ctx, identity(c).ID, req.CarID, *req.Rating, req.Comment)
	if err != nil {
		if errors.Is(err, repository.ErrCarNotFound) {
			return errorJSON(c, http.StatusNotFound, "Car not found")
		}
		return serverError(c, h.Log, "create review", err)
	}
	invalidate(c, h.Log, h.Cache, "reviews")
	return c.JSON(http.StatusCreated, rv)
}

// loadOwned fetches review id and checks the caller may change it:
// authors may change their own reviews, admins any review.
func (h *ReviewHandler) loadOwned(ctx context.Context, c echo.Context, id uint64) (model.Review, error) {
	rv, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		return rv, err
	}
	me := identity(c)
	if rv.UserID != me.ID && me.Role != model.RoleAdmin {
		return rv, repository.ErrForbidden
	}
	return rv, nil
}

func (h *ReviewHandler) ownedError(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrReviewNotFound):
		return errorJSON(c, http.StatusNotFound, "Review not found")
	case errors.Is(err, repository.ErrForbidden):
		return errorJSON(c, http.StatusForbidden, "You can only modify your own reviews")
	}
	return serverError(c, h.Log, op, err)
}

// Update changes rating and comment of a review.
func (h *ReviewHandler) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid review id")
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Comment = strings.TrimSpace(req.Comment)
	if req.Rating == nil || req.Comment == "" {
		return errorJSON(c, http.StatusBadRequest, "rating and comment are required")
	}
	if !model.ValidRating(*req.Rating) {
		return errorJSON(c, http.StatusBadRequest, ratingMsg)
	}

	ctx, cancel := dbContext(c)
	defer cancel()
	if _, err := h.loadOwned(ctx, c, id); err != nil {
		return h.ownedError(c, "load review", err)
	}
	rv, err := h.Reviews.Update(ctx, id, *req.Rating, req.Comment)
	if err != nil {
		return h.ownedError(c, "update review", err)
	}
	invalidate(c, h.Log, h.Cache, "reviews")
	return c.JSON(http.StatusOK, rv)
}

// Delete removes a review.
func (h *ReviewHandler) Delete(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid review id")
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	if _, err := h.loadOwned(ctx, c, id); err != nil {
		return h.ownedError(c, "load review", err)
	}
	if err := h.Reviews.Delete(ctx, id); err != nil {
		return h.ownedError(c, "delete review", err)
	}
	invalidate(c, h.Log, h.Cache, "reviews")
	return c.JSON(http.StatusOK, echo.Map{"message": "Review deleted successfully"})
}
