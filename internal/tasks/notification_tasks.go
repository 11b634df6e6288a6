package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"casecraft_echo/internal/models"
	"casecraft_echo/internal/pricing"
)

type OrderLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type Mailer interface {
	SendEmail(to []string, subject, body string) error
}

type SendOrderConfirmationArgs struct {
	OrderID string `json:"order_id"`
}

// SendOrderConfirmationTaskDef emails the buyer once an order is paid.
type SendOrderConfirmationTaskDef struct {
	orders OrderLoader
	mailer Mailer
	appURL string
}

func NewSendOrderConfirmationTask(orders OrderLoader, mailer Mailer, appURL string) *SendOrderConfirmationTaskDef {
	return &SendOrderConfirmationTaskDef{orders: orders, mailer: mailer, appURL: appURL}
}

func (t *SendOrderConfirmationTaskDef) TaskID() string {
	return "send_order_confirmation"
}

// CreateTask builds a ScheduledTask record for this task
func (t *SendOrderConfirmationTaskDef) CreateTask(orderID uuid.UUID) (*models.ScheduledTask, error) {
	return BuildScheduledTask(t.TaskID(), SendOrderConfirmationArgs{OrderID: orderID.String()}, time.Now(), nil, models.ScheduledTaskTypeOneTime, 3)
}

func (t *SendOrderConfirmationTaskDef) HandleExecution(ctx context.Context, task models.ScheduledTask) (map[string]interface{}, error) {
	var args SendOrderConfirmationArgs
	if err := decodeArgs(task, &args); err != nil {
		return nil, err
	}
	orderID, err := uuid.Parse(args.OrderID)
	if err != nil {
		return nil, fmt.Errorf("order_id not provided or invalid: %w", err)
	}

	order, err := t.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}
	if !order.IsPaid {
		return map[string]interface{}{"status": "skipped", "message": "order is not paid"}, nil
	}
	if order.User.Email == "" {
		return map[string]interface{}{"status": "skipped", "message": "order owner has no email"}, nil
	}

	subject := "Thank you for your order!"
	if err := t.mailer.SendEmail([]string{order.User.Email}, subject, t.confirmationBody(order)); err != nil {
		return nil, err
	}

	log.Info().Str("order_id", order.ID.String()).Uint("user_id", order.UserID).Msg("order confirmation sent")
	return map[string]interface{}{
		"status": "sent",
		"to":     order.User.Email,
	}, nil
}

func (t *SendOrderConfirmationTaskDef) confirmationBody(order *models.Order) string {
	name := order.User.Name
	if name == "" {
		name = "there"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	b.WriteString("We received your payment and are preparing your case for shipment.\n\n")
	fmt.Fprintf(&b, "Order: %s\n", order.ID)
	fmt.Fprintf(&b, "Case: %s, %s, %s\n", order.Configuration.Model, order.Configuration.Material, order.Configuration.Finish)
	fmt.Fprintf(&b, "Total: %s\n", formatAmount(order.Amount, order.Currency))
	fmt.Fprintf(&b, "\nTrack your order at %s/thank-you?orderId=%s\n", t.appURL, order.ID)
	return b.String()
}

// formatAmount renders minor units as a decimal amount.
func formatAmount(amount int64, currency string) string {
	if pricing.Decimals(currency) == 0 {
		return fmt.Sprintf("%d %s", amount, strings.ToUpper(currency))
	}
	return fmt.Sprintf("%d.%02d %s", amount/100, amount%100, strings.ToUpper(currency))
}

// TaskCreator persists scheduled task rows.
type TaskCreator interface {
	Create(ctx context.Context, task *models.ScheduledTask) error
}

// ConfirmationScheduler enqueues send_order_confirmation tasks.
type ConfirmationScheduler struct {
	store TaskCreator
	task  *SendOrderConfirmationTaskDef
}

func NewConfirmationScheduler(store TaskCreator, task *SendOrderConfirmationTaskDef) *ConfirmationScheduler {
	return &ConfirmationScheduler{store: store, task: task}
}

func (s *ConfirmationScheduler) ScheduleOrderConfirmation(ctx context.Context, orderID uuid.UUID) error {
	task, err := s.task.CreateTask(orderID)
	if err != nil {
		return err
	}
	return s.store.Create(ctx, task)
}
