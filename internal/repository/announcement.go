package repository

import (
	"context"

	"studyhive/internal/models"

	"gorm.io/gorm"
)

// AnnouncementRepository defines the interface for announcement data operations
type AnnouncementRepository interface {
	Create(ctx context.Context, a *models.Announcement) error
	GetViewByID(ctx context.Context, id uint) (*models.AnnouncementView, error)
	ListByGroup(ctx context.Context, groupID uint) ([]models.AnnouncementView, error)
}

type announcementRepository struct {
	db *gorm.DB
}

// NewAnnouncementRepository creates a new announcement repository
func NewAnnouncementRepository(db *gorm.DB) AnnouncementRepository {
	return &announcementRepository{db: db}
}

func (r *announcementRepository) Create(ctx context.Context, a *models.Announcement) error {
	return r.db.WithContext(ctx).Create(a).Error
}

const announcementViewSelect = `announcements.id, announcements.group_id, announcements.user_id,
users.username AS author_name, announcements.title, announcements.description, announcements.created_at`

func (r *announcementRepository) GetViewByID(ctx context.Context, id uint) (*models.AnnouncementView, error) {
	var view models.AnnouncementView
	err := r.db.WithContext(ctx).Model(&models.Announcement{}).
		Select(announcementViewSelect).
		Joins("JOIN users ON users.id = announcements.user_id").
		Where("announcements.id = ?", id).
		Scan(&view).Error
	if err != nil {
		return nil, err
	}
	if view.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &view, nil
}

func (r *announcementRepository) ListByGroup(ctx context.Context, groupID uint) ([]models.AnnouncementView, error) {
	var views []models.AnnouncementView
	err := r.db.WithContext(ctx).Model(&models.Announcement{}).
		Select(announcementViewSelect).
		Joins("JOIN users ON users.id = announcements.user_id").
		Where("announcements.group_id = ?", groupID).
		Order("announcements.created_at DESC").
		Scan(&views).Error
	return views, err
}
