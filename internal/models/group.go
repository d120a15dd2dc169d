package models

import (
	"time"

	"gorm.io/gorm"
)

// Group approval statuses. New groups start as pending until an admin
// approves or rejects them.
const (
	GroupStatusPending  = "pending"
	GroupStatusApproved = "approved"
	GroupStatusRejected = "rejected"
)

// Membership statuses. A join request is pending until the group owner or an
// admin approves it; only approved rows count against capacity.
const (
	MemberStatusPending  = "pending"
	MemberStatusApproved = "approved"
)

// Group represents a study group.
type Group struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Topic       string         `json:"topic"`
	Description string         `json:"description"`
	Course      string         `json:"course"`
	Location    string         `json:"location"`
	Capacity    int            `gorm:"not null" json:"capacity"`
	CreatorID   uint           `gorm:"not null;index" json:"creator_id"`
	Creator     *User          `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Status      string         `gorm:"default:'pending';index" json:"status"`
	Remarks     string         `json:"remarks,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Members     []GroupMember  `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
}

// GroupMember is the join relationship between a user and a group. At most
// one row may exist per (group, user) pair.
type GroupMember struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	GroupID  uint      `gorm:"not null;uniqueIndex:idx_group_user" json:"group_id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_group_user" json:"user_id"`
	User     *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Status   string    `gorm:"default:'pending'" json:"status"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// GroupSummary is the listing shape: a group row joined with its approved
// member count and the creator's display name.
type GroupSummary struct {
	Group
	MemberCount int64  `json:"member_count"`
	CreatorName string `json:"creator_name"`
}
