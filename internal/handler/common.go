package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-dealership/internal/middleware"
	"github.com/iliyamo/car-dealership/internal/queue"
)

// dbTimeout bounds every repository call made while serving a request.
const dbTimeout = 5 * time.Second

func dbContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// CacheInvalidator drops cached GET responses for resource groups.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, groups ...string) error
}

// Notifier pushes a live notice to connected admins.
type Notifier interface {
	Broadcast(message string)
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

type nopCache struct{}

func (nopCache) Invalidate(context.Context, ...string) error { return nil }

type nopEvents struct{}

func (nopEvents) Publish(context.Context, queue.Event) error { return nil }

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}

// serverError logs err and answers 500 with a generic message.
func serverError(c echo.Context, lg *slog.Logger, op string, err error) error {
	lg.ErrorContext(c.Request().Context(), op+" failed",
		"err", err, "method", c.Request().Method, "path", c.Path())
	return errorJSON(c, http.StatusInternalServerError, "Server error")
}

// pathID parses the ":id" path parameter.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// identity returns the caller attached by JWTAuth.  Routes using it are
// always mounted behind that middleware.
func identity(c echo.Context) middleware.Identity {
	id, _ := middleware.CurrentIdentity(c)
	return id
}

// publish sends ev and only logs a failure.
func publish(c echo.Context, lg *slog.Logger, events EventPublisher, ev queue.Event) {
	if err := events.Publish(c.Request().Context(), ev); err != nil {
		lg.Warn("publish event failed", "type", ev.Type, "err", err)
	}
}

// invalidate drops cached groups and only logs a failure.
func invalidate(c echo.Context, lg *slog.Logger, cache CacheInvalidator, groups ...string) {
	if err := cache.Invalidate(c.Request().Context(), groups...); err != nil {
		lg.Warn("cache invalidation failed", "groups", groups, "err", err)
	}
}

func orDefault(lg *slog.Logger) *slog.Logger {
	if lg == nil {
		return slog.Default()
	}
	return lg
}
