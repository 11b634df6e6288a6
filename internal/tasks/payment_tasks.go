package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"casecraft_echo/internal/models"
	"casecraft_echo/internal/services"
)

// PaymentSyncer polls payment providers for order state.
type PaymentSyncer interface {
	SyncOrder(ctx context.Context, orderID uuid.UUID) (*services.StatusResult, error)
	SyncPending(ctx context.Context, since time.Time, limit int) (services.SyncSummary, error)
}

// DefaultSyncRule runs the pending payment sweep every five minutes.
const DefaultSyncRule = "FREQ=MINUTELY;INTERVAL=5"

type SyncPendingPaymentsArgs struct {
	// WindowHours limits the sweep to orders touched within the window.
	WindowHours int `json:"window_hours"`
	Limit       int `json:"limit"`
}

// SyncPendingPaymentsTaskDef sweeps unpaid orders that have a provider session
// and applies whatever the provider reports for them.
type SyncPendingPaymentsTaskDef struct {
	payments PaymentSyncer
}

func NewSyncPendingPaymentsTask(payments PaymentSyncer) *SyncPendingPaymentsTaskDef {
	return &SyncPendingPaymentsTaskDef{payments: payments}
}

func (t *SyncPendingPaymentsTaskDef) TaskID() string {
	return "sync_pending_payments"
}

// CreateTask builds the recurring sweep starting at due.
func (t *SyncPendingPaymentsTaskDef) CreateTask(args SyncPendingPaymentsArgs, due time.Time, rule string) (*models.ScheduledTask, error) {
	return BuildScheduledTask(t.TaskID(), args, due, &rule, models.ScheduledTaskTypeRecurring, 3)
}

func (t *SyncPendingPaymentsTaskDef) HandleExecution(ctx context.Context, task models.ScheduledTask) (map[string]interface{}, error) {
	var args SyncPendingPaymentsArgs
	if err := decodeArgs(task, &args); err != nil {
		return nil, err
	}
	if args.WindowHours <= 0 {
		args.WindowHours = 24
	}
	if args.Limit <= 0 {
		args.Limit = 100
	}

	since := time.Now().Add(-time.Duration(args.WindowHours) * time.Hour)
	summary, err := t.payments.SyncPending(ctx, since, args.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to sync pending payments: %w", err)
	}

	log.Info().
		Int("checked", summary.Checked).
		Int("paid", summary.Paid).
		Int("failed", summary.Failed).
		Int("errors", summary.Errors).
		Msg("pending payments synced")

	return map[string]interface{}{
		"checked": summary.Checked,
		"paid":    summary.Paid,
		"failed":  summary.Failed,
		"errors":  summary.Errors,
	}, nil
}

type SyncOrderPaymentArgs struct {
	OrderID string `json:"order_id"`
}

// SyncOrderPaymentTaskDef polls the provider for a single order.
type SyncOrderPaymentTaskDef struct {
	payments PaymentSyncer
}

func NewSyncOrderPaymentTask(payments PaymentSyncer) *SyncOrderPaymentTaskDef {
	return &SyncOrderPaymentTaskDef{payments: payments}
}

func (t *SyncOrderPaymentTaskDef) TaskID() string {
	return "sync_order_payment"
}

func (t *SyncOrderPaymentTaskDef) CreateTask(orderID uuid.UUID, due time.Time) (*models.ScheduledTask, error) {
	return BuildScheduledTask(t.TaskID(), SyncOrderPaymentArgs{OrderID: orderID.String()}, due, nil, models.ScheduledTaskTypeOneTime, 3)
}

func (t *SyncOrderPaymentTaskDef) HandleExecution(ctx context.Context, task models.ScheduledTask) (map[string]interface{}, error) {
	var args SyncOrderPaymentArgs
	if err := decodeArgs(task, &args); err != nil {
		return nil, err
	}
	orderID, err := uuid.Parse(args.OrderID)
	if err != nil {
		return nil, fmt.Errorf("order_id not provided or invalid: %w", err)
	}

	result, err := t.payments.SyncOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"order_id": orderID.String(),
		"state":    string(result.State),
	}, nil
}
