package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-dealership/internal/model"
)

// ReportStore runs the admin aggregate queries.
type ReportStore interface {
	Dashboard(ctx context.Context) (model.Dashboard, error)
	RecentActivity(ctx context.Context, limit int) ([]model.Activity, error)
	DailyLogins(ctx context.Context) ([]model.CountBucket, error)
	MonthlyRegistrations(ctx context.Context) ([]model.CountBucket, error)
}

type ReportHandler struct {
	Reports ReportStore
	Log     *slog.Logger
}

func NewReportHandler(reports ReportStore, lg *slog.Logger) *ReportHandler {
	return &ReportHandler{Reports: reports, Log: orDefault(lg)}
}

// UserActivity returns daily login counts for the last 30 days.
func (h *ReportHandler) UserActivity(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()
	rows, err := h.Reports.DailyLogins(ctx)
	if err != nil {
		return serverError(c, h.Log, "user activity report", err)
	}
	return c.JSON(http.StatusOK, rows)
}

// RegistrationTrends returns monthly registrations for the last 6 months.
func (h *ReportHandler) RegistrationTrends(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()
	rows, err := h.Reports.MonthlyRegistrations(ctx)
	if err != nil {
		return serverError(c, h.Log, "registration trends report", err)
	}
	return c.JSON(http.StatusOK, rows)
}
