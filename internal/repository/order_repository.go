package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"casecraft_echo/internal/models"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// PaidDetails carries what the payment provider reported for a completed payment.
type PaidDetails struct {
	PaidAt          time.Time
	ShippingAddress *models.Address
	BillingAddress  *models.Address
}

func (r *OrderRepository) FindOpen(ctx context.Context, userID uint, configurationID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND configuration_id = ? AND is_paid = ?", userID, configurationID, false).
		First(&order).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

// InsertOpen inserts order unless an open order for the same user and
// configuration exists, in which case ErrOpenOrderExists is returned and no
// row is written.
func (r *OrderRepository) InsertOpen(ctx context.Context, order *models.Order) error {
	res := r.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:     []clause.Column{{Name: "user_id"}, {Name: "configuration_id"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: models.OpenOrderIndexWhere}}},
		DoNothing:   true,
	}).Create(order)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrOpenOrderExists
		}
		return fmt.Errorf("failed to insert order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrOpenOrderExists
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("User").Preload("Configuration").First(&order, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

// FindForUser returns the order only when it belongs to the user with the
// given firebase uid. Orders of other users are reported as ErrNotFound.
func (r *OrderRepository) FindForUser(ctx context.Context, id uuid.UUID, firebaseUID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Joins("JOIN users ON users.id = orders.user_id AND users.deleted_at IS NULL").
		Where("orders.id = ? AND users.firebase_uid = ?", id, firebaseUID).
		Preload("User").
		Preload("Configuration").
		Preload("ShippingAddress").
		Preload("BillingAddress").
		First(&order).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (r *OrderRepository) FindBySessionID(ctx context.Context, gateway models.PaymentGateway, sessionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("payment_gateway = ? AND payment_session_id = ?", gateway, sessionID).
		First(&order).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

// AttachSession points the unpaid order at a freshly created provider session
// and records it, deactivating earlier sessions of the same order.
func (r *OrderRepository) AttachSession(ctx context.Context, orderID uuid.UUID, session *models.PaymentSession) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND is_paid = ?", orderID, false).
			Updates(map[string]interface{}{
				"payment_session_id": session.SessionID,
				"payment_gateway":    session.PaymentGateway,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to attach session: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		if err := tx.Model(&models.PaymentSession{}).
			Where("order_id = ? AND is_active = ?", orderID, true).
			Update("is_active", false).Error; err != nil {
			return fmt.Errorf("failed to deactivate sessions: %w", err)
		}

		session.OrderID = orderID
		session.IsActive = true
		if err := tx.Create(session).Error; err != nil {
			return fmt.Errorf("failed to record session: %w", err)
		}
		return nil
	})
}

var errAlreadyPaid = errors.New("order already paid")

// MarkPaid flips an unpaid order to paid and stores the reported addresses.
// It returns false without writing anything when the order was already paid.
func (r *OrderRepository) MarkPaid(ctx context.Context, orderID uuid.UUID, details PaidDetails) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"is_paid": true,
			"paid_at": details.PaidAt,
		}
		if details.ShippingAddress != nil {
			if err := tx.Create(details.ShippingAddress).Error; err != nil {
				return fmt.Errorf("failed to create shipping address: %w", err)
			}
			updates["shipping_address_id"] = details.ShippingAddress.ID
		}
		if details.BillingAddress != nil {
			if err := tx.Create(details.BillingAddress).Error; err != nil {
				return fmt.Errorf("failed to create billing address: %w", err)
			}
			updates["billing_address_id"] = details.BillingAddress.ID
		}

		res := tx.Model(&models.Order{}).Where("id = ? AND is_paid = ?", orderID, false).Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to mark order paid: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errAlreadyPaid
		}
		return nil
	})
	if errors.Is(err, errAlreadyPaid) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateStatus moves a paid order from one fulfillment status to the next.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to models.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND is_paid = ? AND status = ?", orderID, true, from).
		Update("status", to)
	if res.Error != nil {
		return fmt.Errorf("failed to update order status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// ListPendingWithSessions returns unpaid orders that have a provider session
// and were touched after since, oldest first.
func (r *OrderRepository) ListPendingWithSessions(ctx context.Context, since time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("is_paid = ? AND payment_session_id IS NOT NULL AND updated_at >= ?", false, since).
		Order("updated_at ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending orders: %w", err)
	}
	return orders, nil
}
