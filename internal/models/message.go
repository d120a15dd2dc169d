package models

import "time"

// Message is a chat message in a group. Rows are append-only; there is no
// edit or delete path.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GroupID   uint      `gorm:"not null;index" json:"group_id"`
	SenderID  uint      `gorm:"not null;index" json:"sender_id"`
	Sender    *User     `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Text      string    `gorm:"type:text" json:"text"`
	FileLink  string    `json:"file_link,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageView is a message hydrated with the sender's name, the shape
// broadcast to group rooms and returned by the read path.
type MessageView struct {
	ID         uint      `json:"id"`
	GroupID    uint      `json:"group_id"`
	SenderID   uint      `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	FileLink   string    `json:"file_link,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
