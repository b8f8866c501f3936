// Package router maps HTTP routes to handlers and attaches the
// authentication and role middleware chains.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/parksmart/parksmart-api/internal/config"
	"github.com/parksmart/parksmart-api/internal/handler"
	"github.com/parksmart/parksmart-api/internal/middleware"
	"github.com/parksmart/parksmart-api/internal/model"
)

// Handlers bundles every handler the router wires up.
type Handlers struct {
	Auth         *handler.AuthHandler
	Spots        *handler.SpotHandler
	Slots        *handler.SlotHandler
	Reservations *handler.ReservationHandler
	QR           *handler.QRHandler
	Wallet       *handler.WalletHandler
	Pricing      *handler.PricingHandler
	Analytics    *handler.AnalyticsHandler
}

// Register attaches all routes to the Echo instance.  The surface
// splits into four tiers: unauthenticated (health, register, login),
// any authenticated user, gate staff (admin or owner) and admin only.
func Register(e *echo.Echo, h Handlers, cfg *config.Config, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	limiter := middleware.RateLimit(config.LoadRateLimitConfig(), rdb)

	pub := e.Group("/v1/auth", limiter)
	pub.POST("/register", h.Auth.Register)
	pub.POST("/login", h.Auth.Login)

	auth := e.Group("/v1", limiter, middleware.JWTAuth(cfg.JWTSecret))
	auth.GET("/me", h.Auth.Me)

	auth.GET("/spots", h.Spots.List)
	auth.GET("/spots/:id", h.Spots.Get)
	auth.GET("/spots/:spotId/slots", h.Slots.ListBySpot)

	auth.POST("/reservations", h.Reservations.Create)
	auth.GET("/reservations", h.Reservations.ListMine)
	auth.GET("/reservations/:id", h.Reservations.Get)
	auth.POST("/reservations/:id/checkin", h.Reservations.CheckIn)
	auth.DELETE("/reservations/:id", h.Reservations.Cancel)

	auth.GET("/wallet", h.Wallet.Info)
	auth.POST("/wallet/topup", h.Wallet.TopUp)
	auth.GET("/wallet/transactions", h.Wallet.Transactions)
	auth.POST("/wallet/convert-points", h.Wallet.ConvertPoints)

	auth.POST("/pricing/calculate", h.Pricing.Calculate)

	// Gate scanners authenticate as staff accounts.
	gate := auth.Group("/qr", middleware.RequireRole(model.RoleAdmin, model.RoleOwner))
	gate.POST("/entry", h.QR.Entry)
	gate.POST("/exit", h.QR.Exit)

	admin := auth.Group("/admin", middleware.RequireRole(model.RoleAdmin))
	admin.POST("/spots", h.Spots.Create)
	admin.PATCH("/slots/:id/status", h.Slots.Override)
	admin.GET("/pricing/rules", h.Pricing.ListRules)
	admin.POST("/pricing/rules", h.Pricing.CreateRule)
	admin.PUT("/pricing/rules/:id", h.Pricing.UpdateRule)
	admin.DELETE("/pricing/rules/:id", h.Pricing.DeleteRule)
	admin.GET("/analytics/overview", h.Analytics.Overview)
}
