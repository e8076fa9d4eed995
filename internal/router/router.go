package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/account-service/internal/handler" // import the handlers that implement the user endpoints
)

// RegisterRoutes registers routes that do not require authentication and
// are not part of the API: the health check and the Prometheus scrape
// endpoint.
func RegisterRoutes(e *echo.Echo, checks map[string]handler.Check, metrics http.Handler) {
	e.GET("/healthz", handler.Health(checks))
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
}

// RegisterUsers registers the user API under /api/v1/users.  Register,
// login and refresh-token are open; every other route runs the gate first.
func RegisterUsers(e *echo.Echo, a *handler.AuthHandler, gate echo.MiddlewareFunc) {
	g := e.Group("/api/v1/users")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// The refresh route authenticates with the refresh token itself, so it
	// stays outside the gate.
	g.POST("/refresh-token", a.RefreshToken)

	g.POST("/logout", a.Logout, gate)
	g.POST("/change-password", a.ChangePassword, gate)
	g.POST("/get-current-user", a.CurrentUser, gate)
	g.POST("/updateUser", a.UpdateAccountDetails, gate)
	g.POST("/update-avatar", a.UpdateAvatar, gate)
	g.POST("/update-cover-image", a.UpdateCoverImage, gate)
}
