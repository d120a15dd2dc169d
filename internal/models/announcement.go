package models

import "time"

// Announcement is an append-only notice posted to a group.
type Announcement struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	GroupID     uint      `gorm:"not null;index" json:"group_id"`
	UserID      uint      `gorm:"not null" json:"user_id"`
	Author      *User     `gorm:"foreignKey:UserID" json:"author,omitempty"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// AnnouncementView is an announcement hydrated with the author's name.
type AnnouncementView struct {
	ID          uint      `json:"id"`
	GroupID     uint      `json:"group_id"`
	UserID      uint      `json:"user_id"`
	AuthorName  string    `json:"author_name"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
