package models

import (
	"time"

	"gorm.io/datatypes"
)

// StudySession records a pomodoro or free study block.
type StudySession struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	UserID        uint        `gorm:"index;not null" json:"userId"`
	AssignmentID  *uint       `gorm:"index" json:"assignmentId"`
	Assignment    *Assignment `json:"assignment,omitempty"`
	Type          string      `gorm:"size:32;not null" json:"type"`
	Duration      int         `gorm:"not null" json:"duration"`
	BreakDuration *int        `json:"breakDuration"`
	StartedAt     time.Time   `gorm:"index" json:"startedAt"`
	EndedAt       *time.Time  `json:"endedAt"`
	Completed     bool        `gorm:"default:false;index" json:"completed"`
	Notes         string      `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// Note is a user authored document. Tags are stored as a JSON array.
type Note struct {
	ID         uint                        `gorm:"primaryKey" json:"id"`
	UserID     uint                        `gorm:"index;not null" json:"userId"`
	Title      string                      `gorm:"size:255;not null" json:"title"`
	Content    string                      `gorm:"type:text" json:"content"`
	Type       string                      `gorm:"size:32;default:general" json:"type"`
	Tags       datatypes.JSONSlice[string] `json:"tags"`
	CourseID   string                      `gorm:"size:64" json:"courseId"`
	CourseName string                      `gorm:"size:255" json:"courseName"`
	CreatedAt  time.Time                   `json:"createdAt"`
	UpdatedAt  time.Time                   `json:"updatedAt"`
}

// Reminder is a scheduled nudge, optionally tied to an assignment.
type Reminder struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	UserID       uint        `gorm:"index;not null" json:"userId"`
	AssignmentID *uint       `gorm:"index" json:"assignmentId"`
	Assignment   *Assignment `json:"assignment,omitempty"`
	Title        string      `gorm:"size:255;not null" json:"title"`
	Message      string      `gorm:"type:text" json:"message"`
	Type         string      `gorm:"size:32;default:custom" json:"type"`
	ScheduledAt  time.Time   `gorm:"index" json:"scheduledAt"`
	Sent         bool        `gorm:"default:false" json:"sent"`
	SentAt       *time.Time  `json:"sentAt"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// ActivityLog is an append-only record of user actions.
type ActivityLog struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"index:idx_activity_user_action;not null" json:"userId"`
	Action     string         `gorm:"size:64;index:idx_activity_user_action;not null" json:"action"`
	EntityType string         `gorm:"size:64" json:"entityType"`
	EntityID   *uint          `json:"entityId"`
	Metadata   datatypes.JSON `json:"metadata"`
	Timestamp  time.Time      `gorm:"index" json:"timestamp"`
}
