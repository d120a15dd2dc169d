package models

import "time"

// Activity is an audit row recording a moderation or lifecycle action.
type Activity struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action    string    `gorm:"not null" json:"action"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"created_at"`
}

// ActivityView is an activity row joined with the actor's name.
type ActivityView struct {
	ID        uint      `json:"id"`
	UserFirst string    `json:"user_first"`
	UserLast  string    `json:"user_last"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"created_at"`
}
