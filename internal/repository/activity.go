package repository

import (
	"context"

	"studyhive/internal/models"

	"gorm.io/gorm"
)

// ActivityRepository defines the interface for the audit log
type ActivityRepository interface {
	Record(ctx context.Context, userID uint, action, target string) error
	Recent(ctx context.Context, limit int) ([]models.ActivityView, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Record(ctx context.Context, userID uint, action, target string) error {
	return r.db.WithContext(ctx).Create(&models.Activity{
		UserID: userID,
		Action: action,
		Target: target,
	}).Error
}

func (r *activityRepository) Recent(ctx context.Context, limit int) ([]models.ActivityView, error) {
	var views []models.ActivityView
	err := r.db.WithContext(ctx).Model(&models.Activity{}).
		Select(`activities.id, users.first_name AS user_first, users.last_name AS user_last,
activities.action, activities.target, activities.created_at`).
		Joins("JOIN users ON users.id = activities.user_id").
		Order("activities.created_at DESC").
		Limit(limit).
		Scan(&views).Error
	return views, err
}
