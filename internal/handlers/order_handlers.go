package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"casecraft_echo/internal/middleware"
	"casecraft_echo/internal/models"
	"casecraft_echo/internal/services"
)

type StatusChecker interface {
	GetStatus(ctx context.Context, orderID uuid.UUID, callerSubjectID string) (*services.StatusResult, error)
}

type StatusUpdater interface {
	UpdateStatus(ctx context.Context, orderID uuid.UUID, next models.OrderStatus) (*models.Order, error)
}

type OrderHandler struct {
	payments StatusChecker
	orders   StatusUpdater
}

func NewOrderHandler(payments StatusChecker, orders StatusUpdater) *OrderHandler {
	return &OrderHandler{payments: payments, orders: orders}
}

type orderStatusResponse struct {
	Status services.PaymentState `json:"status"`
	Order  *models.Order         `json:"order,omitempty"`
}

// Status is polled by the thank-you page until the order turns paid.
func (h *OrderHandler) Status(c echo.Context) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return services.ErrUnauthenticated
	}
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return services.ErrNotFound
	}

	result, err := h.payments.GetStatus(c.Request().Context(), orderID, identity.SubjectID)
	if err != nil {
		return err
	}

	if result.State != services.PaymentStatePaid {
		return c.JSON(http.StatusOK, orderStatusResponse{Status: services.PaymentStatePending})
	}
	return c.JSON(http.StatusOK, orderStatusResponse{Status: services.PaymentStatePaid, Order: result.Order})
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=shipped fulfilled"`
}

// UpdateStatus moves a paid order along its fulfillment states. Admin only.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return services.ErrNotFound
	}
	var req updateStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	order, err := h.orders.UpdateStatus(c.Request().Context(), orderID, models.OrderStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}
