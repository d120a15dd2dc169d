// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User lifecycle statuses.
const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
)

// User represents a registered account. Password is the bcrypt hash; Google
// sign-ins may have an empty password and a GoogleID instead.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	FirstName    string         `json:"first_name"`
	MiddleName   string         `json:"middle_name,omitempty"`
	LastName     string         `json:"last_name"`
	Username     string         `gorm:"unique;not null" json:"username"`
	Email        string         `gorm:"unique;not null" json:"email"`
	Password     string         `json:"-"`
	GoogleID     *string        `gorm:"index" json:"-"`
	Bio          string         `json:"bio"`
	ProfilePhoto string         `json:"profile_photo"`
	IsAdmin      bool           `gorm:"default:false" json:"is_admin"`
	Status       string         `gorm:"default:'active'" json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// DisplayName returns the name shown in listings and chat, falling back to
// the username when profile names are unset.
func (u *User) DisplayName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Username
	}
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
