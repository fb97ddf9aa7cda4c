package router // router defines how HTTP routes are registered for the API

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-dealership/internal/handler"
	"github.com/iliyamo/car-dealership/internal/middleware"
	"github.com/iliyamo/car-dealership/internal/model"
)

// Handlers is everything the router mounts.  RateLimit and Cache may be
// nil, in which case the routes run without them.  UploadDir is served
// at /uploads when non-empty.
type Handlers struct {
	Auth     *handler.AuthHandler
	Users    *handler.UserHandler
	Cars     *handler.CarHandler
	Bookings *handler.BookingHandler
	Reviews  *handler.ReviewHandler
	Contacts *handler.ContactHandler
	Reports  *handler.ReportHandler
	Hub      handler.Registry

	Lookup    middleware.UserLookup
	JWTSecret string
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
	UploadDir string
	Log       *slog.Logger
}

// guards holds the middleware chains shared by the route files.
type guards struct {
	auth    echo.MiddlewareFunc
	admin   []echo.MiddlewareFunc
	limited echo.MiddlewareFunc
	cached  echo.MiddlewareFunc
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func orPass(mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	if mw == nil {
		return passThrough
	}
	return mw
}

// RegisterRoutes mounts every endpoint on e.  API routes live under /api;
// health, uploads and the admin websocket sit at the root.
func RegisterRoutes(e *echo.Echo, h Handlers) {
	auth := middleware.JWTAuth(h.JWTSecret, h.Lookup)
	g := guards{
		auth:    auth,
		admin:   []echo.MiddlewareFunc{auth, middleware.RequireRole(model.RoleAdmin)},
		limited: orPass(h.RateLimit),
		cached:  orPass(h.Cache),
	}

	e.GET("/healthz", handler.Health)
	if h.UploadDir != "" {
		e.Static("/uploads", h.UploadDir)
	}
	e.GET("/ws/admin", handler.AdminSocket(h.Hub, h.Log),
		middleware.JWTAuth(h.JWTSecret, h.Lookup, middleware.AuthOptions{AllowQueryToken: true}),
		middleware.RequireRole(model.RoleAdmin))

	api := e.Group("/api")
	registerAuth(api, h, g)
	registerCatalogue(api, h, g)
	registerBookings(api, h, g)
	registerContacts(api, h, g)
	registerAdmin(api, h, g)
}
