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

// ErrUnknownStreakType is returned for a streak type outside the closed set.
var ErrUnknownStreakType = errors.New("unknown streak type")

const (
	outcomeCreated     = "created"
	outcomeUnchanged   = "unchanged"
	outcomeIncremented = "incremented"
	outcomeReset       = "reset"
	outcomeSkipped     = "skipped"
)

// StreakTracker maintains per-user consecutive-day counters.
// All day boundaries are UTC calendar dates.
type StreakTracker struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewStreakTracker builds a StreakTracker that reads the wall clock.
func NewStreakTracker(db *gorm.DB, logger *zap.Logger) *StreakTracker {
	return &StreakTracker{db: db, logger: logger, now: time.Now}
}

// WithClock returns a copy of the tracker that uses now as its clock.
func (t *StreakTracker) WithClock(now func() time.Time) *StreakTracker {
	cp := *t
	cp.now = now
	return &cp
}

// Update records activity of the given type for today and returns the resulting streak.
//
// The first call for a (user, type) creates {current 1, longest 1}. A second call on the
// same date changes nothing. A call the day after lastUpdated extends the streak; a
// larger gap resets current to 1 and keeps longest. A lastUpdated in the future is
// left alone and logged.
func (t *StreakTracker) Update(ctx context.Context, userID uint, typ models.StreakType) (*models.Streak, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStreakType, typ)
	}
	today := utcDate(t.now())

	var result models.Streak
	var outcome string
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fresh := models.Streak{
			UserID:      userID,
			Type:        typ,
			Current:     1,
			Longest:     1,
			LastUpdated: today,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "type"}},
			DoNothing: true,
		}).Create(&fresh)
		if res.Error != nil {
			return fmt.Errorf("insert streak: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			result, outcome = fresh, outcomeCreated
			return nil
		}

		var existing models.Streak
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND type = ?", userID, typ).
			First(&existing).Error; err != nil {
			return fmt.Errorf("load streak: %w", err)
		}

		next, o := advanceStreak(existing, today)
		result, outcome = next, o
		if o == outcomeUnchanged || o == outcomeSkipped {
			return nil
		}
		return tx.Model(&existing).Updates(map[string]interface{}{
			"current":      next.Current,
			"longest":      next.Longest,
			"last_updated": next.LastUpdated,
		}).Error
	})
	if err != nil {
		streakUpdates.WithLabelValues(string(typ), "error").Inc()
		return nil, err
	}

	streakUpdates.WithLabelValues(string(typ), outcome).Inc()
	if outcome == outcomeSkipped {
		t.logger.Warn("streak lastUpdated is ahead of today, skipping",
			zap.Uint("user_id", userID),
			zap.String("streak_type", string(typ)),
			zap.Time("last_updated", result.LastUpdated),
			zap.Time("today", today))
	}
	return &result, nil
}

// UpdateSafely runs Update and logs any failure instead of returning it.
func (t *StreakTracker) UpdateSafely(ctx context.Context, userID uint, typ models.StreakType) *models.Streak {
	s, err := t.Update(ctx, userID, typ)
	if err != nil {
		gamificationErrors.WithLabelValues("streak").Inc()
		t.logger.Error("error updating streak",
			zap.Uint("user_id", userID),
			zap.String("streak_type", string(typ)),
			zap.Error(err))
	}
	return s
}

// advanceStreak applies one day of activity at today to s.
func advanceStreak(s models.Streak, today time.Time) (models.Streak, string) {
	last := utcDate(s.LastUpdated)
	switch daysDiff := daysBetween(last, today); {
	case daysDiff == 0:
		return s, outcomeUnchanged
	case daysDiff == 1:
		s.Current++
		if s.Current > s.Longest {
			s.Longest = s.Current
		}
		s.LastUpdated = today
		return s, outcomeIncremented
	case daysDiff > 1:
		s.Current = 1
		s.LastUpdated = today
		return s, outcomeReset
	default:
		return s, outcomeSkipped
	}
}

// utcDate truncates t to midnight of its UTC calendar date.
func utcDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole calendar days from a to b. Both must be UTC midnights.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
