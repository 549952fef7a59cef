package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"terangahub.app/push/internal/transport/mw"
)

// AuthConfig selects the token secret and the roles allowed per route group.
type AuthConfig struct {
	JWTSecret   []byte
	UserRole    string
	ServiceRole string
}

// NewRouter sets up all Echo routes and middleware. gatherer backs /metrics.
func NewRouter(h *Handler, auth AuthConfig, gatherer prometheus.Gatherer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = newValidator()

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{"Authorization", "Content-Type", "apikey", "x-client-info"},
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
	}))

	// No auth required
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	e.GET("/v1/vapid-public-key", h.VAPIDPublicKey)

	// Signed-in devices
	user := e.Group("/v1")
	user.Use(mw.JWTAuth(auth.JWTSecret))
	user.Use(mw.RequireRole(auth.UserRole))
	user.PUT("/push-subscriptions", h.PutSubscription)
	user.GET("/notifications/stream", h.Stream)

	// Trusted backends only
	fn := e.Group("/functions/v1")
	fn.Use(mw.JWTAuth(auth.JWTSecret))
	fn.Use(mw.RequireRole(auth.ServiceRole))
	fn.POST("/send-push-notification", h.Dispatch)

	return e
}
