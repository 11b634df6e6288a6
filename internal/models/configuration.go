package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Configuration describes a customized case. Rows are written once and
// never updated; orders reference them by id.
type Configuration struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Model           string `gorm:"type:varchar(50);not null" json:"model"`
	Material        string `gorm:"type:varchar(50);not null" json:"material"`
	Finish          string `gorm:"type:varchar(50);not null" json:"finish"`
	Color           string `gorm:"type:varchar(50)" json:"color"`
	ImageURL        string `gorm:"type:text;not null" json:"image_url"`
	CroppedImageURL string `gorm:"type:text" json:"cropped_image_url,omitempty"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
}

func (c *Configuration) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
