package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation-service/internal/handler"
	"github.com/iliyamo/table-reservation-service/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterReservations mounts the reservation API under
// /api/v1/reservations.  Every route resolves the caller first; extra
// middleware (the rate limiter) runs after that so it can key on the
// caller id.
//
//	GET    /restaurant/:restaurantId                  list for a restaurant (?status=pending)
//	POST   /restaurant/:restaurantId                  create
//	PUT    /restaurant/:restaurantId/:reservationId   owner status update
//	GET    /user                                      list for the caller
//	PUT    /user/:reservationId                       diner detail update
//	DELETE /user/:reservationId                       diner delete
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, auth middleware.Resolver, extra ...echo.MiddlewareFunc) {
	mw := append([]echo.MiddlewareFunc{middleware.Authorize(auth)}, extra...)
	g := e.Group("/api/v1/reservations", mw...)

	// ---- Restaurant side ----
	g.GET("/restaurant/:restaurantId", h.ListByRestaurant)
	g.POST("/restaurant/:restaurantId", h.Create)
	g.PUT("/restaurant/:restaurantId/:reservationId", h.UpdateStatus)

	// ---- Diner side ----
	g.GET("/user", h.ListByUser)
	g.PUT("/user/:reservationId", h.UpdateDetails)
	g.DELETE("/user/:reservationId", h.Delete)
}
