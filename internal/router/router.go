package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservation/internal/handler"
	"github.com/iliyamo/venue-reservation/internal/middleware"
)

// Limits holds the middleware applied to the public surface.  Nil fields
// are skipped.
type Limits struct {
	Read  echo.MiddlewareFunc // token bucket for lookups, quotes and availability
	Write echo.MiddlewareFunc // smaller bucket for creating and cancelling
	Cache echo.MiddlewareFunc // response cache for the catalog
}

func chain(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// RegisterRoutes registers routes that need neither authentication nor
// rate limiting.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the guest booking surface under /v1.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, pay *handler.PaymentHandler, l Limits) {
	g := e.Group("/v1")

	g.GET("/catalog/rooms", p.ListRooms, chain(l.Read, l.Cache)...)
	g.POST("/availability", p.CheckAvailability, chain(l.Read)...)
	g.POST("/quotes", p.Quote, chain(l.Read)...)
	g.POST("/reservations", p.CreateReservation, chain(l.Write)...)
	g.GET("/reservations/lookup/:code", p.Lookup, chain(l.Read)...)
	g.POST("/reservations/lookup/:code/cancel", p.CancelByGuest, chain(l.Write)...)

	// The provider authenticates with the shared secret; it is not rate
	// limited so retries are never dropped.
	g.POST("/payments/callback", pay.Callback)
}

// RegisterAdmin registers the staff surface.  Every route requires a
// valid JWT with the ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleAdmin),
	)
	g.GET("/reservations", h.List)
	g.GET("/reservations/export", h.Export)
	g.GET("/reservations/:id", h.Get)
	g.GET("/reservations/:id/events", h.Events)
	g.POST("/reservations/:id/claim", h.Claim)
	g.POST("/reservations/:id/release", h.Release)
	g.PATCH("/reservations/:id/status", h.UpdateStatus)
	g.POST("/reservations/:id/cancel", h.Cancel)
	g.DELETE("/reservations/:id", h.Delete)
}
