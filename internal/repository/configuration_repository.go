package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"casecraft_echo/internal/models"
)

type ConfigurationRepository struct {
	db *gorm.DB
}

func NewConfigurationRepository(db *gorm.DB) *ConfigurationRepository {
	return &ConfigurationRepository{db: db}
}

func (r *ConfigurationRepository) Create(ctx context.Context, cfg *models.Configuration) error {
	if err := r.db.WithContext(ctx).Create(cfg).Error; err != nil {
		return fmt.Errorf("failed to create configuration: %w", err)
	}
	return nil
}

func (r *ConfigurationRepository) Get(ctx context.Context, id uuid.UUID) (*models.Configuration, error) {
	var cfg models.Configuration
	if err := r.db.WithContext(ctx).First(&cfg, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &cfg, nil
}
