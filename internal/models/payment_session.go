package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentGateway string

const (
	PaymentGatewayMidtrans PaymentGateway = "midtrans"
	PaymentGatewayStripe   PaymentGateway = "stripe"
)

// PaymentSession records every hosted checkout session created for an order.
// Only the most recent one per order is active.
type PaymentSession struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	OrderID          uuid.UUID       `gorm:"type:uuid;index" json:"order_id"`
	UserID           uint            `gorm:"index" json:"user_id"`
	PaymentGateway   PaymentGateway  `gorm:"type:varchar(50);not null" json:"payment_gateway"`
	SessionID        string          `gorm:"type:varchar(255);uniqueIndex" json:"session_id"`
	RedirectURL      string          `gorm:"type:text" json:"redirect_url"`
	IsActive         bool            `gorm:"default:true" json:"is_active"`
	RequestMetadata  json.RawMessage `gorm:"type:jsonb" json:"request_metadata"`
	ResponseMetadata json.RawMessage `gorm:"type:jsonb" json:"response_metadata"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}
