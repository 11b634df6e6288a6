package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"casecraft_echo/internal/models"
	"casecraft_echo/internal/repository"
)

// The stores below are implemented by the repository package and faked in tests.

type UserStore interface {
	Upsert(ctx context.Context, user *models.User) (*models.User, error)
	GetByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error)
}

type ConfigurationStore interface {
	Create(ctx context.Context, cfg *models.Configuration) error
	Get(ctx context.Context, id uuid.UUID) (*models.Configuration, error)
}

type OrderStore interface {
	FindOpen(ctx context.Context, userID uint, configurationID uuid.UUID) (*models.Order, error)
	InsertOpen(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindForUser(ctx context.Context, id uuid.UUID, firebaseUID string) (*models.Order, error)
	FindBySessionID(ctx context.Context, gateway models.PaymentGateway, sessionID string) (*models.Order, error)
	AttachSession(ctx context.Context, orderID uuid.UUID, session *models.PaymentSession) error
	MarkPaid(ctx context.Context, orderID uuid.UUID, details repository.PaidDetails) (bool, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to models.OrderStatus) error
	ListPendingWithSessions(ctx context.Context, since time.Time, limit int) ([]models.Order, error)
}

type CallbackStore interface {
	Record(ctx context.Context, history *models.PaymentCallbackHistory) error
	FindEvent(ctx context.Context, gateway models.PaymentGateway, eventID string) (*models.PaymentCallbackHistory, error)
	MarkProcessed(ctx context.Context, id uint, processingErr error) error
}

// ConfirmationScheduler queues the order confirmation email for a paid order.
type ConfirmationScheduler interface {
	ScheduleOrderConfirmation(ctx context.Context, orderID uuid.UUID) error
}
