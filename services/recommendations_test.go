package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/focuspocus/focuspocus/models"
)

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func completedSession(t *testing.T, db *gorm.DB, userID uint, at time.Time, minutes int) {
	t.Helper()
	require.NoError(t, db.Create(&models.StudySession{
		UserID:    userID,
		Type:      "pomodoro",
		Duration:  minutes,
		StartedAt: at,
		Completed: true,
	}).Error)
}

func recTypes(recs []Recommendation) []RecommendationType {
	out := make([]RecommendationType, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Type)
	}
	return out
}

func TestRecommend_AllRulesOrderedByPriority(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "recs@example.com")
	now := day(2024, 10, 10, 14)

	completedSession(t, db, user.ID, day(2024, 10, 8, 9), 30)
	completedSession(t, db, user.ID, day(2024, 10, 9, 9), 60)
	completedSession(t, db, user.ID, day(2024, 10, 9, 15), 30)
	// older than the seven day window
	completedSession(t, db, user.ID, day(2024, 9, 1, 15), 500)

	assignments := []models.Assignment{
		{UserID: user.ID, Title: "tomorrow", DueDate: timePtr(day(2024, 10, 11, 10)), Status: models.AssignmentPending},
		{UserID: user.ID, Title: "in two days", DueDate: timePtr(day(2024, 10, 12, 23)), Status: models.AssignmentPending},
		{UserID: user.ID, Title: "tonight", DueDate: timePtr(day(2024, 10, 10, 20)), Status: models.AssignmentPending},
		{UserID: user.ID, Title: "big", DueDate: timePtr(day(2024, 10, 30, 10)), ExpectedDuration: intPtr(150), Status: models.AssignmentPending},
		{UserID: user.ID, Title: "late", DueDate: timePtr(day(2024, 10, 9, 10)), Status: models.AssignmentOverdue},
		{UserID: user.ID, Title: "done", DueDate: timePtr(day(2024, 10, 11, 10)), Status: models.AssignmentCompleted},
	}
	require.NoError(t, db.Create(&assignments).Error)
	require.NoError(t, db.Create(&models.Streak{
		UserID: user.ID, Type: models.StreakDailyStudy, Current: 3, Longest: 5, LastUpdated: day(2024, 10, 9, 0),
	}).Error)

	engine := NewRecommendationEngine(db, nopLogger()).WithClock(fixedClock(now))
	recs := engine.Recommend(context.Background(), user.ID)

	require.Equal(t, []RecommendationType{
		RecUrgentAssignment,
		RecOverdueWarning,
		RecStudyTime,
		RecChunkAssignment,
		RecStreakEncouragement,
	}, recTypes(recs))

	urgent := recs[0]
	assert.Equal(t, PriorityHigh, urgent.Priority)
	assert.Equal(t, "You have 2 assignment(s) due within 2 days. Consider starting them soon.", urgent.Message)
	require.Len(t, urgent.Assignments, 2)
	assert.Equal(t, "tomorrow", urgent.Assignments[0].Title)
	assert.Equal(t, "in two days", urgent.Assignments[1].Title)

	overdue := recs[1]
	require.Len(t, overdue.Assignments, 1)
	assert.Equal(t, "late", overdue.Assignments[0].Title)

	study := recs[2]
	assert.Contains(t, study.Message, "around 9:00")
	require.NotNil(t, study.SuggestedDuration)
	assert.Equal(t, 40, *study.SuggestedDuration)

	chunk := recs[3]
	require.Len(t, chunk.Assignments, 1)
	assert.Equal(t, "big", chunk.Assignments[0].Title)

	streak := recs[4]
	require.NotNil(t, streak.CurrentStreak)
	assert.Equal(t, 3, *streak.CurrentStreak)
	assert.Equal(t, "You're on a 3-day study streak! Keep it up to reach 7 days!", streak.Message)
}

func TestRecommend_TakeBreak(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "break@example.com")
	now := day(2024, 10, 10, 20)

	completedSession(t, db, user.ID, day(2024, 10, 10, 8), 120)
	completedSession(t, db, user.ID, day(2024, 10, 10, 13), 90)

	recs := NewRecommendationEngine(db, nopLogger()).WithClock(fixedClock(now)).Recommend(context.Background(), user.ID)
	require.Equal(t, []RecommendationType{RecStudyTime, RecTakeBreak}, recTypes(recs))
	assert.Equal(t, "You've studied for 4 hours today. Consider taking a break!", recs[1].Message)
}

func TestRecommend_ChunkedOrSmallAssignmentsAreNotFlagged(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "chunked@example.com")
	now := day(2024, 10, 10, 12)

	chunked := models.Assignment{UserID: user.ID, Title: "chunked", DueDate: timePtr(day(2024, 11, 1, 0)), ExpectedDuration: intPtr(300), Status: models.AssignmentPending}
	require.NoError(t, db.Create(&chunked).Error)
	require.NoError(t, db.Create(&models.AssignmentChunk{AssignmentID: chunked.ID, Title: "Part 1", Duration: 25}).Error)
	require.NoError(t, db.Create(&models.Assignment{
		UserID: user.ID, Title: "exactly two hours", DueDate: timePtr(day(2024, 11, 1, 0)), ExpectedDuration: intPtr(120), Status: models.AssignmentPending,
	}).Error)

	recs := NewRecommendationEngine(db, nopLogger()).WithClock(fixedClock(now)).Recommend(context.Background(), user.ID)
	assert.Empty(t, recs)
	assert.NotNil(t, recs)
}

func TestRecommend_StreakAtGoalIsQuiet(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "goal@example.com")
	require.NoError(t, db.Create(&models.Streak{
		UserID: user.ID, Type: models.StreakDailyStudy, Current: 7, Longest: 7, LastUpdated: day(2024, 10, 9, 0),
	}).Error)

	recs := NewRecommendationEngine(db, nopLogger()).WithClock(fixedClock(day(2024, 10, 10, 12))).Recommend(context.Background(), user.ID)
	assert.Empty(t, recs)
}

func TestBestStudyHour_TiesGoToEarliest(t *testing.T) {
	sessions := []models.StudySession{
		{StartedAt: day(2024, 1, 1, 18)},
		{StartedAt: day(2024, 1, 2, 7)},
		{StartedAt: day(2024, 1, 3, 18)},
		{StartedAt: day(2024, 1, 4, 7)},
	}
	assert.Equal(t, 7, bestStudyHour(sessions))
}

func TestPriorityRank(t *testing.T) {
	assert.Greater(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Greater(t, PriorityMedium.Rank(), PriorityLow.Rank())
	assert.Zero(t, Priority("urgent").Rank())
}
