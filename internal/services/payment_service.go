package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"casecraft_echo/internal/models"
	"casecraft_echo/internal/repository"
)

// StatusResult is the answer to a status poll. Order is only set once paid.
type StatusResult struct {
	State PaymentState
	Order *models.Order
}

// SyncSummary counts what a sweep over pending orders did.
type SyncSummary struct {
	Checked int `json:"checked"`
	Paid    int `json:"paid"`
	Failed  int `json:"failed"`
	Errors  int `json:"errors"`
}

type PaymentService struct {
	orders        OrderStore
	callbacks     CallbackStore
	confirmations ConfirmationScheduler
	gateways      map[models.PaymentGateway]PaymentGateway
}

// NewPaymentService wires the stores and every gateway orders may reference.
// confirmations may be nil.
func NewPaymentService(orders OrderStore, callbacks CallbackStore, confirmations ConfirmationScheduler, gateways ...PaymentGateway) *PaymentService {
	s := &PaymentService{
		orders:        orders,
		callbacks:     callbacks,
		confirmations: confirmations,
		gateways:      make(map[models.PaymentGateway]PaymentGateway, len(gateways)),
	}
	for _, g := range gateways {
		s.gateways[g.Name()] = g
	}
	return s
}

// GetStatus reports whether the caller's order is paid. Orders that belong to
// someone else are indistinguishable from missing ones. It performs no writes.
func (s *PaymentService) GetStatus(ctx context.Context, orderID uuid.UUID, callerSubjectID string) (*StatusResult, error) {
	order, err := s.orders.FindForUser(ctx, orderID, callerSubjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Str("order_id", orderID.String()).Str("user_id", callerSubjectID).Msg("failed to load order status")
		return nil, newError(ErrInternal, err)
	}

	if !order.IsPaid {
		return &StatusResult{State: PaymentStatePending}, nil
	}
	return &StatusResult{State: PaymentStatePaid, Order: order}, nil
}

// ApplyNotification verifies a webhook body from gateway, stores it and marks
// the referenced order paid when the provider says so. Redelivered events are
// acknowledged without being processed again unless the earlier attempt failed.
func (s *PaymentService) ApplyNotification(ctx context.Context, gateway models.PaymentGateway, body []byte, header http.Header) error {
	gw, ok := s.gateways[gateway]
	if !ok {
		return newErrorf(ErrInvalidInput, nil, "unknown payment gateway %q", gateway)
	}

	n, err := gw.ParseNotification(ctx, body, header)
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			log.Warn().Err(err).Str("gateway", string(gateway)).Msg("rejected payment notification")
			return newErrorf(ErrInvalidInput, err, "invalid notification signature")
		}
		return newErrorf(ErrInvalidInput, err, "malformed notification")
	}

	history := &models.PaymentCallbackHistory{
		PaymentGateway: gateway,
		EventID:        n.EventID,
		SessionID:      n.Status.SessionID,
		Metadata:       n.Payload,
	}
	if err := s.callbacks.Record(ctx, history); err != nil {
		if !errors.Is(err, repository.ErrDuplicateEvent) {
			return newError(ErrInternal, err)
		}
		previous, findErr := s.callbacks.FindEvent(ctx, gateway, n.EventID)
		if findErr != nil {
			return newError(ErrInternal, findErr)
		}
		if previous.ProcessedAt != nil && previous.ProcessingError == "" {
			log.Info().Str("gateway", string(gateway)).Str("event_id", n.EventID).Msg("duplicate payment notification ignored")
			return nil
		}
		// The earlier delivery failed or never finished; process it again.
		log.Info().Str("gateway", string(gateway)).Str("event_id", n.EventID).Msg("reprocessing payment notification")
		history = previous
	}

	_, procErr := s.apply(ctx, gateway, n.Status)
	if err := s.callbacks.MarkProcessed(ctx, history.ID, procErr); err != nil {
		log.Warn().Err(err).Uint("callback_id", history.ID).Msg("failed to mark callback processed")
	}
	return procErr
}

// SyncOrder asks the provider for the state of the order's current session
// and applies it.
func (s *PaymentService) SyncOrder(ctx context.Context, orderID uuid.UUID) (*StatusResult, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, newError(ErrInternal, err)
	}
	if order.IsPaid {
		return &StatusResult{State: PaymentStatePaid, Order: order}, nil
	}
	if !order.HasSession() {
		return &StatusResult{State: PaymentStatePending}, nil
	}

	gw, ok := s.gateways[order.PaymentGateway]
	if !ok {
		return nil, newErrorf(ErrInternal, nil, "no gateway configured for %q", order.PaymentGateway)
	}

	status, err := gw.SessionStatus(ctx, *order.PaymentSessionID)
	if err != nil {
		log.Error().Err(err).
			Str("order_id", order.ID.String()).
			Uint("user_id", order.UserID).
			Str("configuration_id", order.ConfigurationID.String()).
			Msg("failed to fetch payment session status")
		return nil, newError(ErrPaymentProvider, err)
	}

	paid, err := s.apply(ctx, order.PaymentGateway, *status)
	if err != nil {
		return nil, err
	}
	if paid {
		order.IsPaid = true
		return &StatusResult{State: PaymentStatePaid, Order: order}, nil
	}
	return &StatusResult{State: status.State}, nil
}

// SyncPending polls every unpaid order with a session touched after since.
func (s *PaymentService) SyncPending(ctx context.Context, since time.Time, limit int) (SyncSummary, error) {
	var summary SyncSummary

	orders, err := s.orders.ListPendingWithSessions(ctx, since, limit)
	if err != nil {
		return summary, newError(ErrInternal, err)
	}

	for _, order := range orders {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.Checked++

		result, err := s.SyncOrder(ctx, order.ID)
		if err != nil {
			summary.Errors++
			continue
		}
		switch result.State {
		case PaymentStatePaid:
			summary.Paid++
		case PaymentStateFailed:
			summary.Failed++
		}
	}
	return summary, nil
}

// apply resolves the order a provider status refers to and marks it paid when
// the status says so. It reports whether the order is paid afterwards.
func (s *PaymentService) apply(ctx context.Context, gateway models.PaymentGateway, status SessionStatus) (bool, error) {
	order, err := s.resolveOrder(ctx, gateway, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn().Str("gateway", string(gateway)).Str("session_id", status.SessionID).Msg("payment status for unknown order")
			return false, nil
		}
		return false, newError(ErrInternal, err)
	}
	if order.IsPaid {
		return true, nil
	}

	logger := log.With().
		Str("order_id", order.ID.String()).
		Uint("user_id", order.UserID).
		Str("configuration_id", order.ConfigurationID.String()).
		Str("session_id", status.SessionID).
		Logger()

	if status.State == PaymentStateFailed {
		logger.Info().Msg("payment session failed or expired")
	}
	if status.State != PaymentStatePaid {
		return false, nil
	}

	paidAt := status.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	changed, err := s.orders.MarkPaid(ctx, order.ID, repository.PaidDetails{
		PaidAt:          paidAt,
		ShippingAddress: status.ShippingAddress,
		BillingAddress:  status.BillingAddress,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to mark order paid")
		return false, newError(ErrInternal, err)
	}
	if !changed {
		return true, nil
	}

	logger.Info().Int64("amount", order.Amount).Msg("order paid")
	if s.confirmations != nil {
		if err := s.confirmations.ScheduleOrderConfirmation(ctx, order.ID); err != nil {
			logger.Error().Err(err).Msg("failed to schedule order confirmation")
		}
	}
	return true, nil
}

func (s *PaymentService) resolveOrder(ctx context.Context, gateway models.PaymentGateway, status SessionStatus) (*models.Order, error) {
	if status.SessionID != "" {
		order, err := s.orders.FindBySessionID(ctx, gateway, status.SessionID)
		if err == nil || !errors.Is(err, repository.ErrNotFound) {
			return order, err
		}
	}

	// A newer session may have replaced the one that was paid.
	if id, err := uuid.Parse(status.Metadata[MetadataOrderID]); err == nil {
		return s.orders.FindByID(ctx, id)
	}
	return nil, repository.ErrNotFound
}
