// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/parking-lot-reservation/internal/config"
	"github.com/iliyamo/parking-lot-reservation/internal/handler"
	"github.com/iliyamo/parking-lot-reservation/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication routes. Unauthenticated
// operations live under /v1/auth; the profile endpoint lives under /v1
// behind the JWT middleware and accepts both roles.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterUser registers USER-scoped endpoints under /v1: lot browsing,
// the reserve/occupy/release lifecycle, the dashboard and history. The
// lot listing additionally goes through the Redis response cache.
func RegisterUser(e *echo.Echo, h *handler.UserHandler, jwtSecret string, rdb *redis.Client, cacheCfg config.CacheConfig) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("USER"),
	)
	g.GET("/lots", h.ListLots, middleware.ResponseCache(cacheCfg, rdb))
	g.POST("/lots/:id/reserve", h.ReserveSpot)
	g.POST("/spots/:id/occupy", h.OccupySpot)
	g.POST("/spots/:id/release", h.ReleaseSpot)
	g.GET("/me/spot", h.CurrentSpot)
	g.GET("/me/history", h.History)
}

// RegisterAdmin registers ADMIN-scoped endpoints under /v1/admin: lot
// management with capacity resynchronization, the spot board, the
// global reservation ledger and the user directory.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)
	g.POST("/lots", h.CreateLot)
	g.GET("/lots", h.ListLots)
	g.PUT("/lots/:id", h.UpdateLot)
	g.PATCH("/lots/:id", h.UpdateLot)
	g.DELETE("/lots/:id", h.DeleteLot)
	g.GET("/lots/:id/spots", h.ListSpots)
	g.GET("/reservations", h.ListReservations)
	g.GET("/users", h.ListUsers)
}
