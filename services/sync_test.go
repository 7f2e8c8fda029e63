package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focuspocus/focuspocus/models"
)

func floatPtr(v float64) *float64 { return &v }

type stubCanvas struct {
	assignments []CanvasAssignment
	err         error
}

func (s *stubCanvas) CurrentUser(context.Context) (*CanvasUser, error) {
	return &CanvasUser{ID: 1, Name: "stub"}, nil
}
func (s *stubCanvas) Courses(context.Context) ([]CanvasCourse, error) { return nil, s.err }
func (s *stubCanvas) CourseAssignments(context.Context, int64) ([]CanvasAssignment, error) {
	return s.assignments, s.err
}
func (s *stubCanvas) AllAssignments(context.Context) ([]CanvasAssignment, error) {
	return s.assignments, s.err
}
func (s *stubCanvas) Announcements(context.Context, []int64) ([]CanvasAnnouncement, error) {
	return nil, s.err
}

func TestAssignmentSync_CreatesAndUpdates(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "sync@example.com")
	now := day(2024, 10, 10, 12)
	syncer := NewAssignmentSyncer(db, nopLogger(), NewActivityLogger(db, nopLogger()))
	syncer.now = fixedClock(now)
	submitted := day(2024, 10, 9, 8)

	api := &stubCanvas{assignments: []CanvasAssignment{
		{ID: 101, Name: "Lab", DueAt: timePtr(day(2024, 10, 20, 0)), PointsPossible: floatPtr(12.5), CourseID: 5, CourseName: "Bio"},
		{ID: 102, Name: "Quiz", DueAt: timePtr(day(2024, 10, 1, 0)), CourseID: 5, CourseName: "Bio"},
		{ID: 103, Name: "Essay", Submission: &CanvasSubmission{SubmittedAt: &submitted}, CourseID: 6, CourseName: "Eng"},
	}}

	res, err := syncer.Sync(context.Background(), user.ID, api)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Synced)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 0, res.Errors)

	var rows []models.Assignment
	require.NoError(t, db.Where("user_id = ?", user.ID).Order("canvas_id").Find(&rows).Error)
	require.Len(t, rows, 3)
	assert.Equal(t, models.AssignmentPending, rows[0].Status)
	require.NotNil(t, rows[0].ExpectedDuration)
	assert.Equal(t, 125, *rows[0].ExpectedDuration)
	assert.Equal(t, "5", rows[0].CourseID)
	assert.Equal(t, models.AssignmentOverdue, rows[1].Status)
	assert.Nil(t, rows[1].ExpectedDuration)
	assert.Equal(t, models.AssignmentCompleted, rows[2].Status)
	require.NotNil(t, rows[2].CompletedAt)
	assert.True(t, rows[2].CompletedAt.Equal(submitted))

	// a local completion survives a re-sync that still reports the item as open
	require.NoError(t, db.Model(&rows[0]).Update("status", models.AssignmentCompleted).Error)
	api.assignments[0].Name = "Lab (revised)"
	res, err = syncer.Sync(context.Background(), user.ID, api)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Synced)
	assert.Equal(t, 3, res.Updated)

	var lab models.Assignment
	require.NoError(t, db.Where("canvas_id = ?", "101").First(&lab).Error)
	assert.Equal(t, "Lab (revised)", lab.Title)
	assert.Equal(t, models.AssignmentCompleted, lab.Status)

	var logs int64
	require.NoError(t, db.Model(&models.ActivityLog{}).Where("action = ?", "assignments_synced").Count(&logs).Error)
	assert.EqualValues(t, 2, logs)

	// sync never touches gamification
	var streaks int64
	require.NoError(t, db.Model(&models.Streak{}).Count(&streaks).Error)
	assert.Zero(t, streaks)
}

func TestAssignmentSync_RejectsForeignCanvasID(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner@example.com")
	intruder := createUser(t, db, "intruder@example.com")
	syncer := NewAssignmentSyncer(db, nopLogger(), NewActivityLogger(db, nopLogger()))

	items := []CanvasAssignment{{ID: 555, Name: "Shared"}}
	res := syncer.Import(context.Background(), owner.ID, items)
	assert.Equal(t, 1, res.Synced)

	res = syncer.Import(context.Background(), intruder.ID, items)
	assert.Equal(t, 1, res.Errors)
	require.Len(t, res.ErrorDetails, 1)
	assert.Equal(t, "Shared", res.ErrorDetails[0].Assignment)
}

func TestAssignmentSync_UpstreamFailure(t *testing.T) {
	db := newTestDB(t)
	syncer := NewAssignmentSyncer(db, nopLogger(), NewActivityLogger(db, nopLogger()))

	_, err := syncer.Sync(context.Background(), 1, &stubCanvas{err: assert.AnError})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestCanvasStatus(t *testing.T) {
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.Equal(t, models.AssignmentPending, canvasStatus(CanvasAssignment{}, now))
	assert.Equal(t, models.AssignmentPending, canvasStatus(CanvasAssignment{DueAt: &future}, now))
	assert.Equal(t, models.AssignmentOverdue, canvasStatus(CanvasAssignment{DueAt: &past}, now))
	assert.Equal(t, models.AssignmentCompleted, canvasStatus(CanvasAssignment{
		DueAt:      &past,
		Submission: &CanvasSubmission{SubmittedAt: &past},
	}, now))
}
