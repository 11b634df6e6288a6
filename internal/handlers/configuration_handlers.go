package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"casecraft_echo/internal/models"
	"casecraft_echo/internal/pricing"
	"casecraft_echo/internal/services"
)

type ConfigurationManager interface {
	Create(ctx context.Context, cfg *models.Configuration) (*pricing.Quote, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Configuration, error)
	Quote(cfg *models.Configuration) (*pricing.Quote, error)
}

type ConfigurationHandler struct {
	configurations ConfigurationManager
}

func NewConfigurationHandler(configurations ConfigurationManager) *ConfigurationHandler {
	return &ConfigurationHandler{configurations: configurations}
}

type createConfigurationRequest struct {
	Model           string `json:"model" validate:"required"`
	Material        string `json:"material" validate:"required"`
	Finish          string `json:"finish" validate:"required"`
	Color           string `json:"color"`
	ImageURL        string `json:"imageUrl" validate:"required,url"`
	CroppedImageURL string `json:"croppedImageUrl" validate:"omitempty,url"`
	Width           int    `json:"width" validate:"gte=0"`
	Height          int    `json:"height" validate:"gte=0"`
}

type configurationResponse struct {
	Configuration *models.Configuration `json:"configuration"`
	Quote         *pricing.Quote        `json:"quote"`
}

func (h *ConfigurationHandler) Create(c echo.Context) error {
	var req createConfigurationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	cfg := &models.Configuration{
		Model:           req.Model,
		Material:        req.Material,
		Finish:          req.Finish,
		Color:           req.Color,
		ImageURL:        req.ImageURL,
		CroppedImageURL: req.CroppedImageURL,
		Width:           req.Width,
		Height:          req.Height,
	}
	quote, err := h.configurations.Create(c.Request().Context(), cfg)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, configurationResponse{Configuration: cfg, Quote: quote})
}

// Get returns a stored configuration with its current price.
func (h *ConfigurationHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return services.ErrConfigurationNotFound
	}

	cfg, err := h.configurations.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	quote, err := h.configurations.Quote(cfg)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, configurationResponse{Configuration: cfg, Quote: quote})
}
