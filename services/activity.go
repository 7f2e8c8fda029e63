package services

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/focuspocus/focuspocus/models"
)

// Entity types recorded on activity logs.
const (
	EntityAssignment = "assignment"
	EntitySession    = "session"
	EntityNote       = "note"
	EntityUser       = "user"
	EntityCanvas     = "canvas"
	EntityReminder   = "reminder"
)

// ActivityLogger appends rows to the activity log. Failures are logged, never returned.
type ActivityLogger struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewActivityLogger builds an ActivityLogger.
func NewActivityLogger(db *gorm.DB, logger *zap.Logger) *ActivityLogger {
	return &ActivityLogger{db: db, logger: logger, now: time.Now}
}

// Log records an action. entityID may be nil for actions not tied to a row.
func (a *ActivityLogger) Log(ctx context.Context, userID uint, action, entityType string, entityID *uint, metadata map[string]interface{}) {
	entry := models.ActivityLog{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Timestamp:  a.now().UTC(),
	}
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			a.logger.Warn("activity metadata not serializable", zap.String("action", action), zap.Error(err))
		} else {
			entry.Metadata = datatypes.JSON(b)
		}
	}
	if err := a.db.WithContext(ctx).Create(&entry).Error; err != nil {
		a.logger.Error("failed to log activity",
			zap.Uint("user_id", userID),
			zap.String("action", action),
			zap.Error(err))
	}
}

// Exists reports whether an activity with the given action already references the entity.
func (a *ActivityLogger) Exists(ctx context.Context, userID uint, action, entityType string, entityID uint) (bool, error) {
	var count int64
	err := a.db.WithContext(ctx).Model(&models.ActivityLog{}).
		Where("user_id = ? AND action = ? AND entity_type = ? AND entity_id = ?", userID, action, entityType, entityID).
		Count(&count).Error
	return count > 0, err
}

func uintPtr(v uint) *uint { return &v }
