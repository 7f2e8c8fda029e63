package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focuspocus/focuspocus/models"
)

func TestSplitIntoChunks(t *testing.T) {
	chunks, err := SplitIntoChunks(7, 130, 25)
	require.NoError(t, err)
	require.Len(t, chunks, 6)

	total := 0
	for i, c := range chunks {
		assert.Equal(t, uint(7), c.AssignmentID)
		assert.Equal(t, i, c.Order)
		total += c.Duration
		if i < 5 {
			assert.Equal(t, 25, c.Duration)
		}
	}
	assert.Equal(t, 130, total)
	assert.Equal(t, 5, chunks[5].Duration)
	assert.Equal(t, "Part 1", chunks[0].Title)
	assert.Equal(t, "Part 6 (Final)", chunks[5].Title)
	assert.Equal(t, "Chunk 2 of 6", chunks[1].Description)
}

func TestSplitIntoChunks_EvenAndDefaults(t *testing.T) {
	chunks, err := SplitIntoChunks(1, 50, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 25, chunks[1].Duration)

	chunks, err = SplitIntoChunks(1, 10, 25)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Part 1 (Final)", chunks[0].Title)
	assert.Equal(t, 10, chunks[0].Duration)

	_, err = SplitIntoChunks(1, 0, 25)
	assert.Error(t, err)
}

func TestPlanReminders(t *testing.T) {
	now := day(2024, 10, 10, 12)
	a := models.Assignment{ID: 3, UserID: 9, Title: "Essay", DueDate: timePtr(day(2024, 10, 14, 12))}

	got := PlanReminders(a, nil, now)
	// seven days before is already in the past
	require.Len(t, got, 2)
	assert.True(t, got[0].ScheduledAt.Equal(day(2024, 10, 13, 12)))
	assert.Equal(t, "Essay is due in 1 day", got[0].Message)
	assert.True(t, got[1].ScheduledAt.Equal(day(2024, 10, 11, 12)))
	assert.Equal(t, "Essay is due in 3 days", got[1].Message)
	for _, r := range got {
		assert.Equal(t, "Assignment Due Soon: Essay", r.Title)
		assert.Equal(t, "assignment_due", r.Type)
		assert.Equal(t, uint(9), r.UserID)
		require.NotNil(t, r.AssignmentID)
		assert.Equal(t, uint(3), *r.AssignmentID)
	}

	assert.Empty(t, PlanReminders(models.Assignment{Title: "no due"}, nil, now))
}
