package router

import "github.com/labstack/echo/v4"

// registerAuth mounts registration, login and the caller's own profile.
// Register and login share the rate limiter.
func registerAuth(api *echo.Group, h Handlers, g guards) {
	api.POST("/auth/register", h.Auth.Register, g.limited)
	api.POST("/auth/login", h.Auth.Login, g.limited)
	api.GET("/auth/dashboard", h.Auth.Dashboard, g.admin...)
	api.GET("/auth/recent-activity", h.Auth.RecentActivity, g.admin...)

	api.GET("/me", h.Auth.Me, g.auth)
	api.PUT("/me", h.Auth.UpdateMe, g.auth)
}
