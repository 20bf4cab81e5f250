package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/service-booking/internal/handler"    // handlers that translate HTTP to service calls
	"github.com/iliyamo/service-booking/internal/middleware" // JWT authentication and role enforcement
	"github.com/iliyamo/service-booking/internal/model"
)

// RegisterRoutes registers routes that do not require authentication:
// liveness at /healthz and database readiness at /readyz.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
}

// RegisterAuth registers all authentication-related routes.  Token
// issuing operations live under /v1/auth and need no session; account
// endpoints live under /v1 and require a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Logout takes the refresh token in the body, so no JWT is needed.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	member := middleware.RequireRole(model.RoleClient, model.RoleProvider, model.RoleAdmin)
	auth.POST("/auth/logout-all", a.LogoutAll, member)
	auth.GET("/me", a.Me, member)
	auth.GET("/users/:id", a.GetUser, member)
}
