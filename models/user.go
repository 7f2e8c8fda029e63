package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a student account. Passwords and Canvas tokens never leave the server.
type User struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	Email              string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash       string         `gorm:"size:255" json:"-"`
	Name               string         `gorm:"size:128" json:"name"`
	CanvasToken        string         `gorm:"size:512" json:"-"`
	CanvasRefreshToken string         `gorm:"size:512" json:"-"`
	CanvasUserID       string         `gorm:"size:64" json:"canvasUserId,omitempty"`
	CanvasInstanceURL  string         `gorm:"size:255" json:"canvasInstanceUrl,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// HasCanvasConnection reports whether a Canvas access token is stored.
func (u User) HasCanvasConnection() bool {
	return u.CanvasToken != ""
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}
