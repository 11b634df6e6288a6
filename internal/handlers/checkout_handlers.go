package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"casecraft_echo/internal/middleware"
	"casecraft_echo/internal/services"
)

type CheckoutCreator interface {
	CreateCheckoutSession(ctx context.Context, req services.CheckoutRequest) (*services.CheckoutResult, error)
}

type CheckoutHandler struct {
	checkout CheckoutCreator
}

func NewCheckoutHandler(checkout CheckoutCreator) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

type checkoutRequest struct {
	ConfigurationID string `json:"configurationId" validate:"required,uuid"`
	UserID          string `json:"userId"`
}

type checkoutResponse struct {
	URL     string    `json:"url"`
	OrderID uuid.UUID `json:"orderId"`
}

// CreateSession starts a hosted checkout for a configuration. The credential
// is verified by the checkout service, not by middleware.
func (h *CheckoutHandler) CreateSession(c echo.Context) error {
	var req checkoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.checkout.CreateCheckoutSession(c.Request().Context(), services.CheckoutRequest{
		ConfigurationID: uuid.MustParse(req.ConfigurationID),
		Credential:      middleware.CredentialFromRequest(c),
		ClaimedUserID:   req.UserID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, checkoutResponse{URL: result.URL, OrderID: result.OrderID})
}
