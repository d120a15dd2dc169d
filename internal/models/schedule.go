package models

import "time"

// Meeting types for schedules. Online sessions get a generated meeting link
// from the calendar adapter.
const (
	MeetingTypePhysical = "physical"
	MeetingTypeOnline   = "online"
)

// Schedule is a planned study session for a group. GoogleEventID and
// MeetingLink stay nil when the calendar sync fails or is disabled; the
// local row is the source of truth either way.
type Schedule struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	GroupID       uint      `gorm:"not null;index" json:"group_id"`
	Title         string    `gorm:"not null" json:"title"`
	Description   string    `json:"description"`
	Start         time.Time `gorm:"not null" json:"start"`
	End           time.Time `gorm:"not null" json:"end"`
	Location      string    `json:"location"`
	Attendees     []string  `gorm:"serializer:json" json:"attendees"`
	MeetingType   string    `gorm:"default:'physical'" json:"meeting_type"`
	GoogleEventID *string   `json:"google_event_id,omitempty"`
	MeetingLink   *string   `json:"meeting_link,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
