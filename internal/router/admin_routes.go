package router

import "github.com/labstack/echo/v4"

// registerContacts mounts the public contact form and the admin inbox.
func registerContacts(api *echo.Group, h Handlers, g guards) {
	api.POST("/contacts", h.Contacts.Create, g.limited)
	api.GET("/contacts", h.Contacts.List, g.admin...)
	api.POST("/contacts/:id/reply", h.Contacts.Reply, g.admin...)
	api.DELETE("/contacts/:id", h.Contacts.Delete, g.admin...)
}

// registerAdmin mounts user management and reports.  admin-email only
// needs a signed-in caller so the client contact page can show it.
func registerAdmin(api *echo.Group, h Handlers, g guards) {
	api.GET("/users/admin-email", h.Users.AdminEmail, g.auth)
	api.GET("/users", h.Users.List, g.admin...)
	api.POST("/users", h.Users.Create, g.admin...)
	api.PUT("/users/:id", h.Users.Update, g.admin...)
	api.DELETE("/users/:id", h.Users.Delete, g.admin...)

	api.GET("/reports/user-activity", h.Reports.UserActivity, g.admin...)
	api.GET("/reports/registration-trends", h.Reports.RegistrationTrends, g.admin...)
}
