package models

import "time"

const (
	AssignmentPending    = "pending"
	AssignmentInProgress = "in_progress"
	AssignmentCompleted  = "completed"
	AssignmentOverdue    = "overdue"
)

// Assignment is a unit of coursework, created manually or synced from Canvas.
type Assignment struct {
	ID               uint              `gorm:"primaryKey" json:"id"`
	UserID           uint              `gorm:"index;not null" json:"userId"`
	CanvasID         *string           `gorm:"size:64;uniqueIndex" json:"canvasId,omitempty"`
	CourseID         string            `gorm:"size:64;index" json:"courseId"`
	CourseName       string            `gorm:"size:255" json:"courseName"`
	Title            string            `gorm:"size:255;not null" json:"title"`
	Description      string            `gorm:"type:text" json:"description"`
	DueDate          *time.Time        `gorm:"index" json:"dueDate"`
	ExpectedDuration *int              `json:"expectedDuration"`
	Status           string            `gorm:"size:32;default:pending;index" json:"status"`
	Priority         string            `gorm:"size:16;default:medium" json:"priority"`
	CompletedAt      *time.Time        `json:"completedAt"`
	SyncedAt         *time.Time        `json:"syncedAt,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
	Chunks           []AssignmentChunk `gorm:"constraint:OnDelete:CASCADE" json:"chunks,omitempty"`
	Sessions         []StudySession    `json:"sessions,omitempty"`
}

// AssignmentChunk is one planned study block of an assignment.
type AssignmentChunk struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AssignmentID uint       `gorm:"index;not null" json:"assignmentId"`
	Title        string     `gorm:"size:255;not null" json:"title"`
	Description  string     `gorm:"type:text" json:"description"`
	Duration     int        `json:"duration"`
	Order        int        `gorm:"column:sort_order" json:"order"`
	Status       string     `gorm:"size:32;default:pending" json:"status"`
	CompletedAt  *time.Time `json:"completedAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
