package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"casecraft_echo/internal/app"
	"casecraft_echo/internal/config"
	"casecraft_echo/internal/handlers"
	authMiddleware "casecraft_echo/internal/middleware"
	"casecraft_echo/internal/services"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	app.SetupLogger(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Firebase
	authClient, err := services.InitFirebase(ctx, cfg.Firebase.CredentialsPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Firebase.CredentialsPath).Msg("firebase initialization failed")
	}
	identity := services.NewIdentityService(authClient)

	container, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize services")
	}
	defer container.Close()

	if err := container.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run database migrations")
	}

	checkout := services.NewCheckoutService(
		identity,
		container.Users,
		container.Configurations,
		container.Orders,
		container.Gateway,
		container.Locker,
		services.CheckoutOptions{
			AppURL:           cfg.App.URL,
			AllowedCountries: cfg.Payment.AllowedCountries,
		},
	)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = authMiddleware.CustomErrorHandler
	e.Validator = handlers.NewRequestValidator()

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(authMiddleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.App.URL},
		AllowCredentials: true,
	}))

	checks := map[string]handlers.Pinger{"database": container.Ping}
	if container.Cache != nil {
		checks["redis"] = container.Cache.Ping
	}

	handlers.Register(e, handlers.Routes{
		Auth:           handlers.NewAuthHandler(identity, container.Users, cfg.IsProduction()),
		Checkout:       handlers.NewCheckoutHandler(checkout),
		Orders:         handlers.NewOrderHandler(container.Payments, container.Orders),
		Configurations: handlers.NewConfigurationHandler(container.Configurations),
		Webhooks:       handlers.NewWebhookHandler(container.Payments),
		Health:         handlers.NewHealthHandler(checks),
		Verifier:       identity,
		AdminAPIKey:    cfg.Admin.APIKey,
	})

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("server starting")
		if err := e.Start(":" + cfg.App.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
