package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"casecraft_echo/internal/models"
)

type ScheduledTaskRepository struct {
	db *gorm.DB
}

func NewScheduledTaskRepository(db *gorm.DB) *ScheduledTaskRepository {
	return &ScheduledTaskRepository{db: db}
}

func (r *ScheduledTaskRepository) Create(ctx context.Context, task *models.ScheduledTask) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("failed to create scheduled task: %w", err)
	}
	return nil
}

// EnsureActive creates task unless an active task with the same name exists.
// It reports whether a row was created.
func (r *ScheduledTaskRepository) EnsureActive(ctx context.Context, task *models.ScheduledTask) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ScheduledTask{}).
		Where("task_name = ? AND status = ?", task.TaskName, models.ScheduledTaskStatusActive).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count scheduled tasks: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	return true, r.Create(ctx, task)
}

func (r *ScheduledTaskRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.ScheduledTask, error) {
	var tasks []models.ScheduledTask
	err := r.db.WithContext(ctx).
		Where("status = ? AND due <= ?", models.ScheduledTaskStatusActive, now).
		Order("due ASC").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due tasks: %w", err)
	}
	return tasks, nil
}

func (r *ScheduledTaskRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	if err := r.db.WithContext(ctx).Model(&models.ScheduledTask{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update scheduled task %d: %w", id, err)
	}
	return nil
}

func (r *ScheduledTaskRepository) AddHistory(ctx context.Context, history *models.ScheduledTaskHistory) error {
	if err := r.db.WithContext(ctx).Create(history).Error; err != nil {
		return fmt.Errorf("failed to record task history: %w", err)
	}
	return nil
}
