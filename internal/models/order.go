package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	OrderStatusAwaitingShipment OrderStatus = "awaiting_shipment"
	OrderStatusShipped          OrderStatus = "shipped"
	OrderStatusFulfilled        OrderStatus = "fulfilled"
)

// OpenOrderIndexWhere is the predicate of the partial unique index that allows
// at most one unpaid order per (user, configuration).
const OpenOrderIndexWhere = "is_paid = false AND deleted_at IS NULL"

// Order belongs to exactly one User and one Configuration. Amount is in minor
// currency units and is computed server side.
type Order struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID          uint      `gorm:"not null;index;uniqueIndex:idx_orders_open_user_configuration,priority:1,where:is_paid = false AND deleted_at IS NULL" json:"user_id"`
	ConfigurationID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_orders_open_user_configuration,priority:2,where:is_paid = false AND deleted_at IS NULL" json:"configuration_id"`

	Amount   int64       `gorm:"not null" json:"amount"`
	Currency string      `gorm:"type:varchar(3);not null" json:"currency"`
	IsPaid   bool        `gorm:"not null;index" json:"is_paid"`
	Status   OrderStatus `gorm:"type:varchar(30);not null" json:"status"`
	PaidAt   *time.Time  `json:"paid_at,omitempty"`

	PaymentGateway   PaymentGateway `gorm:"type:varchar(50)" json:"payment_gateway,omitempty"`
	PaymentSessionID *string        `gorm:"type:varchar(255);index" json:"payment_session_id,omitempty"`

	ShippingAddressID *uint `json:"shipping_address_id,omitempty"`
	BillingAddressID  *uint `json:"billing_address_id,omitempty"`

	// Relationships
	User            User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Configuration   Configuration `gorm:"foreignKey:ConfigurationID" json:"configuration,omitempty"`
	ShippingAddress *Address      `gorm:"foreignKey:ShippingAddressID" json:"shipping_address,omitempty"`
	BillingAddress  *Address      `gorm:"foreignKey:BillingAddressID" json:"billing_address,omitempty"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// HasSession reports whether a payment session reference is attached.
func (o Order) HasSession() bool {
	return o.PaymentSessionID != nil && *o.PaymentSessionID != ""
}

var orderStatusTransitions = map[OrderStatus]OrderStatus{
	OrderStatusAwaitingShipment: OrderStatusShipped,
	OrderStatusShipped:          OrderStatusFulfilled,
}

// CanTransitionTo reports whether next is the status that follows the current one.
func (o Order) CanTransitionTo(next OrderStatus) bool {
	return orderStatusTransitions[o.Status] == next
}
