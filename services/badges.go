package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/focuspocus/focuspocus/models"
)

// Thresholds of the badge rules. Assignment counts and streak values match exactly;
// study minutes is a floor.
const (
	tenHoursMinutes = 600
	weekStreakDays  = 7
	monthStreakDays = 30
	centuryDays     = 100
)

// BadgeEvaluator awards catalog badges after qualifying actions.
type BadgeEvaluator struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewBadgeEvaluator builds a BadgeEvaluator.
func NewBadgeEvaluator(db *gorm.DB, logger *zap.Logger) *BadgeEvaluator {
	return &BadgeEvaluator{db: db, logger: logger, now: time.Now}
}

// Check evaluates every rule relevant to action and awards the badges that qualify.
// It returns the names awarded by this call; badges the user already holds are not repeated.
func (e *BadgeEvaluator) Check(ctx context.Context, userID uint, action models.ActionTrigger, metadata map[string]interface{}) ([]models.BadgeName, error) {
	candidates, err := e.candidates(ctx, userID, action)
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		e.logger.Debug("badge candidates",
			zap.Uint("user_id", userID),
			zap.String("action", string(action)),
			zap.Any("candidates", candidates),
			zap.Any("metadata", metadata))
	}

	var awarded []models.BadgeName
	var errs []error
	for _, name := range candidates {
		ok, err := e.award(ctx, userID, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("award %s: %w", name, err))
			continue
		}
		if ok {
			badgesAwarded.WithLabelValues(string(name)).Inc()
			e.logger.Info("badge awarded", zap.Uint("user_id", userID), zap.String("badge", string(name)))
			awarded = append(awarded, name)
		}
	}
	return awarded, errors.Join(errs...)
}

// CheckSafely runs Check and logs any failure instead of returning it.
func (e *BadgeEvaluator) CheckSafely(ctx context.Context, userID uint, action models.ActionTrigger, metadata map[string]interface{}) []models.BadgeName {
	awarded, err := e.Check(ctx, userID, action, metadata)
	if err != nil {
		gamificationErrors.WithLabelValues("badges").Inc()
		e.logger.Error("error checking badges",
			zap.Uint("user_id", userID),
			zap.String("action", string(action)),
			zap.Error(err))
	}
	return awarded
}

func (e *BadgeEvaluator) candidates(ctx context.Context, userID uint, action models.ActionTrigger) ([]models.BadgeName, error) {
	db := e.db.WithContext(ctx)
	var names []models.BadgeName

	switch action {
	case models.ActionAssignmentCompleted:
		var completed int64
		if err := db.Model(&models.Assignment{}).
			Where("user_id = ? AND status = ?", userID, models.AssignmentCompleted).
			Count(&completed).Error; err != nil {
			return nil, fmt.Errorf("count completed assignments: %w", err)
		}
		switch completed {
		case 1:
			names = append(names, models.BadgeFirstAssignment)
		case 10:
			names = append(names, models.BadgeTenAssignments)
		case 50:
			names = append(names, models.BadgeFiftyAssignments)
		}

	case models.ActionSessionCompleted:
		var stats struct {
			Sessions int64
			Minutes  int64
		}
		if err := db.Model(&models.StudySession{}).
			Select("COUNT(*) AS sessions, COALESCE(SUM(duration), 0) AS minutes").
			Where("user_id = ? AND completed = ?", userID, true).
			Scan(&stats).Error; err != nil {
			return nil, fmt.Errorf("aggregate completed sessions: %w", err)
		}
		if stats.Sessions == 1 {
			names = append(names, models.BadgeFirstSession)
		}
		if stats.Minutes >= tenHoursMinutes {
			names = append(names, models.BadgeTenHoursStudy)
		}
	}

	var streaks []models.Streak
	if err := db.Where("user_id = ?", userID).Find(&streaks).Error; err != nil {
		return nil, fmt.Errorf("load streaks: %w", err)
	}
	for _, s := range streaks {
		if s.Current == weekStreakDays {
			names = append(names, models.BadgeWeekStreak)
		}
		if s.Current == monthStreakDays {
			names = append(names, models.BadgeMonthStreak)
		}
		if s.Longest == centuryDays {
			names = append(names, models.BadgeCenturyStreak)
		}
	}
	return names, nil
}

// award inserts a UserBadge unless one exists. A badge missing from the catalog is skipped.
func (e *BadgeEvaluator) award(ctx context.Context, userID uint, name models.BadgeName) (bool, error) {
	db := e.db.WithContext(ctx)

	var badge models.Badge
	if err := db.Where("name = ?", name).First(&badge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	ub := models.UserBadge{UserID: userID, BadgeID: badge.ID, EarnedAt: e.now().UTC()}
	res := db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_id"}},
		DoNothing: true,
	}).Create(&ub)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
