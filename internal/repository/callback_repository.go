package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"casecraft_echo/internal/models"
)

type CallbackRepository struct {
	db *gorm.DB
}

func NewCallbackRepository(db *gorm.DB) *CallbackRepository {
	return &CallbackRepository{db: db}
}

// Record stores a provider notification. A notification whose event id was
// already stored for the gateway yields ErrDuplicateEvent.
func (r *CallbackRepository) Record(ctx context.Context, history *models.PaymentCallbackHistory) error {
	if err := r.db.WithContext(ctx).Create(history).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("failed to record callback: %w", err)
	}
	return nil
}

// FindEvent returns the stored notification for gateway and eventID.
func (r *CallbackRepository) FindEvent(ctx context.Context, gateway models.PaymentGateway, eventID string) (*models.PaymentCallbackHistory, error) {
	var history models.PaymentCallbackHistory
	err := r.db.WithContext(ctx).
		Where("payment_gateway = ? AND event_id = ?", gateway, eventID).
		First(&history).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &history, nil
}

func (r *CallbackRepository) MarkProcessed(ctx context.Context, id uint, processingErr error) error {
	now := time.Now()
	updates := map[string]interface{}{"processed_at": &now}
	updates["processing_error"] = ""
	if processingErr != nil {
		updates["processing_error"] = processingErr.Error()
	}
	if err := r.db.WithContext(ctx).Model(&models.PaymentCallbackHistory{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update callback: %w", err)
	}
	return nil
}
