package handlers

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	authMiddleware "casecraft_echo/internal/middleware"
)

// Routes groups the handlers mounted by Register. Nil handlers are skipped.
type Routes struct {
	Auth           *AuthHandler
	Checkout       *CheckoutHandler
	Orders         *OrderHandler
	Configurations *ConfigurationHandler
	Webhooks       *WebhookHandler
	Health         *HealthHandler

	Verifier    authMiddleware.Verifier
	AdminAPIKey string
}

func Register(e *echo.Echo, r Routes) {
	if r.Health != nil {
		e.GET("/healthz", r.Health.Check)
	}

	if r.Auth != nil {
		e.POST("/auth/login", r.Auth.HandleLogin)
		e.POST("/auth/logout", r.Auth.HandleLogout)
		e.GET("/auth/me", r.Auth.Me, authMiddleware.RequireAuth(r.Verifier))
	}

	// Checkout verifies the credential itself so it can match the claimed user.
	if r.Checkout != nil {
		e.POST("/checkout", r.Checkout.CreateSession)
	}

	if r.Configurations != nil {
		e.POST("/configurations", r.Configurations.Create)
		e.GET("/configurations/:id", r.Configurations.Get)
	}

	if r.Orders != nil {
		e.GET("/orders/:id/status", r.Orders.Status, authMiddleware.RequireAuth(r.Verifier))

		if r.AdminAPIKey != "" {
			admin := e.Group("/admin", echoMiddleware.KeyAuth(func(key string, c echo.Context) (bool, error) {
				return subtle.ConstantTimeCompare([]byte(key), []byte(r.AdminAPIKey)) == 1, nil
			}))
			admin.PATCH("/orders/:id/status", r.Orders.UpdateStatus)
		}
	}

	if r.Webhooks != nil {
		e.POST("/webhooks/midtrans", r.Webhooks.Midtrans)
		e.POST("/webhooks/stripe", r.Webhooks.Stripe)
	}
}
