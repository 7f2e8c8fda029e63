package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/focuspocus/focuspocus/models"
)

// RepairResult reports how many completed assignments were replayed.
type RepairResult struct {
	Fixed int `json:"fixed"`
}

// StreakRepairer replays gamification hooks for assignments completed outside the
// normal update path, such as a Canvas sync or a direct database edit.
type StreakRepairer struct {
	db       *gorm.DB
	logger   *zap.Logger
	activity *ActivityLogger
	streaks  *StreakTracker
	badges   *BadgeEvaluator
}

// NewStreakRepairer wires a repairer from its collaborators.
func NewStreakRepairer(db *gorm.DB, logger *zap.Logger, activity *ActivityLogger, streaks *StreakTracker, badges *BadgeEvaluator) *StreakRepairer {
	return &StreakRepairer{db: db, logger: logger, activity: activity, streaks: streaks, badges: badges}
}

// FixCompletedAssignments makes sure every completed assignment has an
// assignment_completed activity log, then bumps both streak types and re-runs the
// badge rules once per assignment. Streak updates use today's date, not the
// original completion date, so the call is idempotent within a day.
func (r *StreakRepairer) FixCompletedAssignments(ctx context.Context, userID uint) (RepairResult, error) {
	var completed []models.Assignment
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.AssignmentCompleted).
		Order("id ASC").
		Find(&completed).Error; err != nil {
		return RepairResult{}, fmt.Errorf("list completed assignments: %w", err)
	}

	r.logger.Info("repairing streaks and badges",
		zap.Uint("user_id", userID),
		zap.Int("completed_assignments", len(completed)))

	for _, a := range completed {
		exists, err := r.activity.Exists(ctx, userID, string(models.ActionAssignmentCompleted), EntityAssignment, a.ID)
		if err != nil {
			r.logger.Warn("activity lookup failed", zap.Uint("assignment_id", a.ID), zap.Error(err))
		}
		if !exists && err == nil {
			r.activity.Log(ctx, userID, string(models.ActionAssignmentCompleted), EntityAssignment, uintPtr(a.ID), map[string]interface{}{
				"title":       a.Title,
				"backfilled":  true,
				"completedAt": a.CompletedAt,
			})
		}

		r.streaks.UpdateSafely(ctx, userID, models.StreakAssignmentCompletion)
		r.streaks.UpdateSafely(ctx, userID, models.StreakDailyStudy)
		r.badges.CheckSafely(ctx, userID, models.ActionAssignmentCompleted, nil)
	}

	return RepairResult{Fixed: len(completed)}, nil
}
