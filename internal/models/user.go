package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the local record of a Firebase account. It is created lazily on the
// first authenticated action and never deleted by the checkout flow.
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	FirebaseUID string `gorm:"type:varchar(128);uniqueIndex;not null" json:"firebase_uid"`
	Email       string `gorm:"type:varchar(255);not null" json:"email"`
	Name        string `gorm:"type:varchar(255)" json:"name"`
	ImageURL    string `gorm:"type:text" json:"image_url,omitempty"`

	// Relationships
	Orders []Order `gorm:"foreignKey:UserID" json:"orders,omitempty"`
}
