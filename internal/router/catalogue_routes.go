package router

import "github.com/labstack/echo/v4"

// registerCatalogue mounts cars and reviews.  Public reads go through the
// response cache; writes invalidate it inside the handlers.
func registerCatalogue(api *echo.Group, h Handlers, g guards) {
	api.GET("/cars", h.Cars.List, g.cached)
	api.GET("/cars/:id", h.Cars.Get, g.cached)
	api.GET("/brands", h.Cars.Brands, g.cached)
	api.GET("/years", h.Cars.Years, g.cached)
	api.POST("/cars", h.Cars.Create, g.admin...)
	api.PUT("/cars/:id", h.Cars.Update, g.admin...)
	api.DELETE("/cars/:id", h.Cars.Delete, g.admin...)

	api.GET("/reviews", h.Reviews.List, g.cached)
	api.POST("/reviews", h.Reviews.Create, g.auth)
	api.PUT("/reviews/:id", h.Reviews.Update, g.auth)
	api.DELETE("/reviews/:id", h.Reviews.Delete, g.auth)
}

// registerBookings mounts client bookings and the admin decision routes.
func registerBookings(api *echo.Group, h Handlers, g guards) {
	api.POST("/bookings", h.Bookings.Create, g.auth)
	api.GET("/bookings/my-bookings", h.Bookings.Mine, g.auth)
	api.DELETE("/bookings/:id", h.Bookings.Delete, g.auth)
	api.GET("/bookings", h.Bookings.List, g.admin...)
	api.PATCH("/bookings/:id/status", h.Bookings.UpdateStatus, g.admin...)
}
