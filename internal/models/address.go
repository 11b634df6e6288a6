package models

import (
	"time"

	"gorm.io/gorm"
)

// Address holds a shipping or billing address collected by the payment provider.
type Address struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name       string `gorm:"type:varchar(255)" json:"name"`
	Street     string `gorm:"type:varchar(255)" json:"street"`
	City       string `gorm:"type:varchar(120)" json:"city"`
	PostalCode string `gorm:"type:varchar(32)" json:"postal_code"`
	Country    string `gorm:"type:varchar(2)" json:"country"`
	State      string `gorm:"type:varchar(120)" json:"state,omitempty"`
	Phone      string `gorm:"type:varchar(50)" json:"phone,omitempty"`
}
