package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-booking/internal/handler"
	"github.com/iliyamo/service-booking/internal/middleware"
	"github.com/iliyamo/service-booking/internal/model"
)

// RegisterBookings registers the booking endpoints under /v1/bookings.
// Every route requires a valid JWT; roles are checked per route.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group("/v1/bookings", middleware.JWTAuth(jwtSecret))

	client := middleware.RequireRole(model.RoleClient)
	provider := middleware.RequireRole(model.RoleProvider, model.RoleAdmin)
	admin := middleware.RequireRole(model.RoleAdmin)
	anyone := middleware.RequireRole(model.RoleClient, model.RoleProvider, model.RoleAdmin)

	g.GET("", h.ListMine, client)
	g.POST("", h.Create, client)
	// Static segment wins over :id in echo's router.
	g.GET("/provider-schedule", h.ProviderSchedule, provider)
	g.GET("/:id", h.Get, admin)
	g.PUT("/:id", h.Reschedule, client)
	g.PUT("/:id/confirm", h.Confirm, provider)
	g.DELETE("/:id", h.Cancel, anyone)
}
