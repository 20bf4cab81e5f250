package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-booking/internal/handler"
	"github.com/iliyamo/service-booking/internal/middleware"
	"github.com/iliyamo/service-booking/internal/model"
)

// CatalogHandlers groups the handlers behind the catalog routes.
type CatalogHandlers struct {
	Providers *handler.ProviderHandler
	Services  *handler.ServiceOfferingHandler
	Bookings  *handler.BookingHandler
}

// RegisterCatalog registers the provider and service catalog.  Reads are
// public and pass through cache; writes require the ADMIN role and go
// through purge so cached reads are dropped once a write succeeds.
func RegisterCatalog(e *echo.Echo, h CatalogHandlers, jwtSecret string, cache, purge echo.MiddlewareFunc) {
	pub := e.Group("/v1", cache)
	pub.GET("/providers", h.Providers.List)
	pub.GET("/providers/:id", h.Providers.Get)
	pub.GET("/services", h.Services.List)
	pub.GET("/services/:id", h.Services.Get)
	// Availability changes with every booking, so it is never cached.
	e.GET("/v1/providers/:id/availability", h.Bookings.Availability)

	admin := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
		purge,
	)

	// ---- Providers ----
	admin.POST("/providers", h.Providers.Create)
	admin.PUT("/providers/:id", h.Providers.Update)
	admin.PATCH("/providers/:id", h.Providers.Update)
	admin.PUT("/providers/:id/services", h.Providers.ReplaceServices)
	admin.DELETE("/providers/:id", h.Providers.Delete)

	// ---- Service offerings ----
	admin.POST("/services", h.Services.Create)
	admin.PUT("/services/:id", h.Services.Update)
	admin.PATCH("/services/:id", h.Services.Update)
	admin.PUT("/services/:id/providers", h.Services.ReplaceProviders)
	admin.DELETE("/services/:id", h.Services.Delete)
}
