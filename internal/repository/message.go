package repository

import (
	"context"

	"studyhive/internal/models"

	"gorm.io/gorm"
)

// MessageRepository defines the interface for chat message data operations
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetViewByID(ctx context.Context, id uint) (*models.MessageView, error)
	ListByGroup(ctx context.Context, groupID uint) ([]models.MessageView, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

const messageViewSelect = `messages.id, messages.group_id, messages.sender_id,
users.username AS sender_name, messages.text, messages.file_link, messages.created_at`

// GetViewByID re-reads a message joined with the sender's name, the shape
// broadcast to the group room after a send.
func (r *messageRepository) GetViewByID(ctx context.Context, id uint) (*models.MessageView, error) {
	var view models.MessageView
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Select(messageViewSelect).
		Joins("JOIN users ON users.id = messages.sender_id").
		Where("messages.id = ?", id).
		Scan(&view).Error
	if err != nil {
		return nil, err
	}
	if view.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &view, nil
}

func (r *messageRepository) ListByGroup(ctx context.Context, groupID uint) ([]models.MessageView, error) {
	var views []models.MessageView
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Select(messageViewSelect).
		Joins("JOIN users ON users.id = messages.sender_id").
		Where("messages.group_id = ?", groupID).
		Order("messages.created_at ASC").
		Scan(&views).Error
	return views, err
}
