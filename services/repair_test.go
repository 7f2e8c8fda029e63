package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focuspocus/focuspocus/models"
)

func TestFixCompletedAssignments(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "repair@example.com")
	ctx := context.Background()
	clock := fixedClock(day(2024, 9, 3, 15))

	activity := NewActivityLogger(db, nopLogger())
	streaks := NewStreakTracker(db, nopLogger()).WithClock(clock)
	badges := NewBadgeEvaluator(db, nopLogger())
	repairer := NewStreakRepairer(db, nopLogger(), activity, streaks, badges)

	createCompletedAssignments(t, db, user.ID, 2)
	require.NoError(t, db.Create(&models.Assignment{UserID: user.ID, Title: "open", Status: models.AssignmentPending}).Error)

	res, err := repairer.FixCompletedAssignments(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Fixed)

	var logs int64
	require.NoError(t, db.Model(&models.ActivityLog{}).
		Where("user_id = ? AND action = ?", user.ID, models.ActionAssignmentCompleted).
		Count(&logs).Error)
	assert.EqualValues(t, 2, logs)

	var rows []models.Streak
	require.NoError(t, db.Where("user_id = ?", user.ID).Order("type").Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, s := range rows {
		assert.Equal(t, 1, s.Current, s.Type)
	}

	// two completions never equal exactly one, so no first_assignment
	assert.Empty(t, userBadgeNames(t, db, user.ID))

	res, err = repairer.FixCompletedAssignments(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Fixed)
	require.NoError(t, db.Model(&models.ActivityLog{}).
		Where("user_id = ? AND action = ?", user.ID, models.ActionAssignmentCompleted).
		Count(&logs).Error)
	assert.EqualValues(t, 2, logs, "repair must not duplicate activity logs")
}

func TestFixCompletedAssignments_SingleAwardsFirstBadge(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "single@example.com")

	activity := NewActivityLogger(db, nopLogger())
	streaks := NewStreakTracker(db, nopLogger())
	badges := NewBadgeEvaluator(db, nopLogger())
	repairer := NewStreakRepairer(db, nopLogger(), activity, streaks, badges)

	createCompletedAssignments(t, db, user.ID, 1)
	res, err := repairer.FixCompletedAssignments(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fixed)
	assert.Equal(t, []models.BadgeName{models.BadgeFirstAssignment}, userBadgeNames(t, db, user.ID))
}

func TestFixCompletedAssignments_NothingToDo(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "none@example.com")
	activity := NewActivityLogger(db, nopLogger())
	repairer := NewStreakRepairer(db, nopLogger(), activity,
		NewStreakTracker(db, nopLogger()), NewBadgeEvaluator(db, nopLogger()))

	res, err := repairer.FixCompletedAssignments(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Fixed)

	var count int64
	require.NoError(t, db.Model(&models.Streak{}).Count(&count).Error)
	assert.Zero(t, count)
}
