package repository

import (
	"context"

	"studyhive/internal/models"

	"gorm.io/gorm"
)

// ScheduleRepository defines the interface for schedule data operations
type ScheduleRepository interface {
	Create(ctx context.Context, schedule *models.Schedule) error
	ListByGroup(ctx context.Context, groupID uint) ([]models.Schedule, error)
}

type scheduleRepository struct {
	db *gorm.DB
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	return r.db.WithContext(ctx).Create(schedule).Error
}

func (r *scheduleRepository) ListByGroup(ctx context.Context, groupID uint) ([]models.Schedule, error) {
	var schedules []models.Schedule
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("start ASC").
		Find(&schedules).Error
	return schedules, err
}
