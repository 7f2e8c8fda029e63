package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focuspocus/focuspocus/models"
)

func TestStreakUpdate_Sequence(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "streak@example.com")
	ctx := context.Background()
	base := NewStreakTracker(db, nopLogger())

	steps := []struct {
		at      time.Time
		current int
		longest int
	}{
		{day(2024, 3, 1, 9), 1, 1},  // first call creates
		{day(2024, 3, 1, 23), 1, 1}, // same day is a no-op
		{day(2024, 3, 2, 0), 2, 2},  // next day extends
		{day(2024, 3, 3, 12), 3, 3}, // and again
		{day(2024, 3, 6, 8), 1, 3},  // gap resets, longest kept
		{day(2024, 3, 7, 8), 2, 3},  // extends from reset
	}
	for _, step := range steps {
		s, err := base.WithClock(fixedClock(step.at)).Update(ctx, user.ID, models.StreakDailyStudy)
		require.NoError(t, err, step.at)
		assert.Equal(t, step.current, s.Current, step.at)
		assert.Equal(t, step.longest, s.Longest, step.at)
		assert.True(t, s.LastUpdated.Equal(utcDate(step.at)), step.at)
	}

	var rows []models.Streak
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Current)
	assert.Equal(t, 3, rows[0].Longest)
}

func TestStreakUpdate_TypesAreIndependent(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "types@example.com")
	ctx := context.Background()
	tracker := NewStreakTracker(db, nopLogger()).WithClock(fixedClock(day(2024, 5, 10, 10)))

	_, err := tracker.Update(ctx, user.ID, models.StreakDailyStudy)
	require.NoError(t, err)
	_, err = tracker.Update(ctx, user.ID, models.StreakAssignmentCompletion)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Streak{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestStreakUpdate_FutureLastUpdatedIsSkipped(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "future@example.com")
	require.NoError(t, db.Create(&models.Streak{
		UserID:      user.ID,
		Type:        models.StreakDailyStudy,
		Current:     4,
		Longest:     6,
		LastUpdated: day(2024, 6, 20, 0),
	}).Error)

	tracker := NewStreakTracker(db, nopLogger()).WithClock(fixedClock(day(2024, 6, 18, 12)))
	s, err := tracker.Update(context.Background(), user.ID, models.StreakDailyStudy)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Current)
	assert.Equal(t, 6, s.Longest)

	var stored models.Streak
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&stored).Error)
	assert.Equal(t, 4, stored.Current)
	assert.True(t, stored.LastUpdated.Equal(day(2024, 6, 20, 0)))
}

func TestStreakUpdate_KeepsLongerHistory(t *testing.T) {
	cases := []struct {
		name        string
		lastUpdated time.Time
		current     int
		longest     int
	}{
		{"yesterday extends", day(2024, 9, 9, 0), 6, 8},
		{"three days ago resets", day(2024, 9, 7, 0), 1, 8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := newTestDB(t)
			user := createUser(t, db, "history@example.com")
			require.NoError(t, db.Create(&models.Streak{
				UserID:      user.ID,
				Type:        models.StreakDailyStudy,
				Current:     5,
				Longest:     8,
				LastUpdated: tc.lastUpdated,
			}).Error)

			tracker := NewStreakTracker(db, nopLogger()).WithClock(fixedClock(day(2024, 9, 10, 15)))
			s, err := tracker.Update(context.Background(), user.ID, models.StreakDailyStudy)
			require.NoError(t, err)
			assert.Equal(t, tc.current, s.Current)
			assert.Equal(t, tc.longest, s.Longest)

			var stored models.Streak
			require.NoError(t, db.Where("user_id = ?", user.ID).First(&stored).Error)
			assert.Equal(t, tc.current, stored.Current)
			assert.Equal(t, tc.longest, stored.Longest)
			assert.True(t, stored.LastUpdated.Equal(day(2024, 9, 10, 0)))
		})
	}
}

func TestStreakUpdate_UnknownType(t *testing.T) {
	db := newTestDB(t)
	tracker := NewStreakTracker(db, nopLogger())

	_, err := tracker.Update(context.Background(), 1, models.StreakType("weekly"))
	assert.ErrorIs(t, err, ErrUnknownStreakType)

	assert.Nil(t, tracker.UpdateSafely(context.Background(), 1, models.StreakType("weekly")))
}

func TestAdvanceStreak(t *testing.T) {
	s := models.Streak{Current: 5, Longest: 5, LastUpdated: day(2024, 1, 31, 0)}

	next, outcome := advanceStreak(s, day(2024, 2, 1, 0))
	assert.Equal(t, outcomeIncremented, outcome)
	assert.Equal(t, 6, next.Current)
	assert.Equal(t, 6, next.Longest)

	next, outcome = advanceStreak(s, day(2024, 2, 2, 0))
	assert.Equal(t, outcomeReset, outcome)
	assert.Equal(t, 1, next.Current)
	assert.Equal(t, 5, next.Longest)

	_, outcome = advanceStreak(s, day(2024, 1, 31, 0))
	assert.Equal(t, outcomeUnchanged, outcome)

	_, outcome = advanceStreak(s, day(2024, 1, 30, 0))
	assert.Equal(t, outcomeSkipped, outcome)
}

func TestUTCDate(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	// 21:00 local on the 1st is already the 2nd in UTC
	got := utcDate(time.Date(2024, 4, 1, 21, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), got)
	assert.Equal(t, 1, daysBetween(day(2024, 4, 1, 0), got))
}
