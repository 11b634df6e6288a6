package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// PaymentCallbackHistory stores each provider notification. The event id is
// unique per gateway so redelivered notifications are detected.
type PaymentCallbackHistory struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	PaymentGateway  PaymentGateway  `gorm:"type:varchar(50);not null;uniqueIndex:idx_callback_gateway_event,priority:1" json:"payment_gateway"`
	EventID         string          `gorm:"type:varchar(255);not null;uniqueIndex:idx_callback_gateway_event,priority:2" json:"event_id"`
	SessionID       string          `gorm:"type:varchar(255);index" json:"session_id"`
	Metadata        json.RawMessage `gorm:"type:jsonb" json:"metadata"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
	ProcessingError string          `gorm:"type:text" json:"processing_error,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}
