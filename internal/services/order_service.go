package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"casecraft_echo/internal/models"
	"casecraft_echo/internal/repository"
)

// maxReconcileAttempts bounds the find/insert loop when concurrent callers
// race for the same open order.
const maxReconcileAttempts = 3

type OrderService struct {
	orders OrderStore
}

func NewOrderService(orders OrderStore) *OrderService {
	return &OrderService{orders: orders}
}

// GetOrCreateOpenOrder returns the single unpaid order of the user for the
// configuration, inserting one with amount when none exists. An existing
// order keeps its stored amount. created reports whether this call inserted it.
func (s *OrderService) GetOrCreateOpenOrder(ctx context.Context, userID uint, configurationID uuid.UUID, amount int64, currency string) (*models.Order, bool, error) {
	logger := log.With().
		Uint("user_id", userID).
		Str("configuration_id", configurationID.String()).
		Logger()

	for attempt := 1; attempt <= maxReconcileAttempts; attempt++ {
		order, err := s.orders.FindOpen(ctx, userID, configurationID)
		if err == nil {
			return order, false, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Error().Err(err).Msg("failed to look up open order")
			return nil, false, newError(ErrInternal, err)
		}

		order = &models.Order{
			UserID:          userID,
			ConfigurationID: configurationID,
			Amount:          amount,
			Currency:        currency,
			IsPaid:          false,
			Status:          models.OrderStatusAwaitingShipment,
		}
		err = s.orders.InsertOpen(ctx, order)
		if err == nil {
			logger.Info().Str("order_id", order.ID.String()).Int64("amount", amount).Msg("open order created")
			return order, true, nil
		}
		if !errors.Is(err, repository.ErrOpenOrderExists) {
			logger.Error().Err(err).Msg("failed to create open order")
			return nil, false, newError(ErrInternal, err)
		}
		logger.Debug().Int("attempt", attempt).Msg("open order created concurrently, retrying lookup")
	}

	err := errors.New("open order could not be resolved")
	logger.Error().Err(err).Int("attempts", maxReconcileAttempts).Msg("order reconciliation exhausted")
	return nil, false, newError(ErrInternal, err)
}

// UpdateStatus advances the fulfillment status of a paid order. It is the only
// write permitted once an order is paid.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, next models.OrderStatus) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, newError(ErrInternal, err)
	}
	if !order.IsPaid {
		return nil, newErrorf(ErrConflict, nil, "order is not paid")
	}
	if !order.CanTransitionTo(next) {
		return nil, newErrorf(ErrInvalidInput, nil, "cannot move order from %s to %s", order.Status, next)
	}

	if err := s.orders.UpdateStatus(ctx, orderID, order.Status, next); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		log.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to update order status")
		return nil, newError(ErrInternal, err)
	}

	log.Info().Str("order_id", orderID.String()).Str("from", string(order.Status)).Str("to", string(next)).Msg("order status updated")
	order.Status = next
	return order, nil
}

// AttachSession stores the provider session on the unpaid order and records it
// for audit.
func (s *OrderService) AttachSession(ctx context.Context, order *models.Order, gateway models.PaymentGateway, result *SessionResult) error {
	session := &models.PaymentSession{
		UserID:           order.UserID,
		PaymentGateway:   gateway,
		SessionID:        result.SessionID,
		RedirectURL:      result.RedirectURL,
		RequestMetadata:  result.Request,
		ResponseMetadata: result.Response,
	}
	if err := s.orders.AttachSession(ctx, order.ID, session); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return newErrorf(ErrConflict, err, "order was paid in the meantime")
		}
		log.Error().Err(err).
			Str("order_id", order.ID.String()).
			Uint("user_id", order.UserID).
			Str("configuration_id", order.ConfigurationID.String()).
			Msg("failed to attach payment session")
		return newError(ErrInternal, err)
	}

	order.PaymentSessionID = &session.SessionID
	order.PaymentGateway = gateway
	return nil
}
