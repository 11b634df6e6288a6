package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"casecraft_echo/internal/models"
)

const maxWebhookBody = 1 << 20

type NotificationApplier interface {
	ApplyNotification(ctx context.Context, gateway models.PaymentGateway, body []byte, header http.Header) error
}

type WebhookHandler struct {
	payments NotificationApplier
}

func NewWebhookHandler(payments NotificationApplier) *WebhookHandler {
	return &WebhookHandler{payments: payments}
}

func (h *WebhookHandler) Midtrans(c echo.Context) error {
	return h.handle(c, models.PaymentGatewayMidtrans)
}

func (h *WebhookHandler) Stripe(c echo.Context) error {
	return h.handle(c, models.PaymentGatewayStripe)
}

// handle passes the raw body on untouched; signature checks need the exact bytes.
func (h *WebhookHandler) handle(c echo.Context, gateway models.PaymentGateway) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read body")
	}

	if err := h.payments.ApplyNotification(c.Request().Context(), gateway, body, c.Request().Header); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
