package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/focuspocus/focuspocus/models"
)

// DefaultChunkMinutes is the pomodoro-sized block used when no chunk size is given.
const DefaultChunkMinutes = 25

// DefaultReminderOffsets are the days-before-due at which automatic reminders fire.
var DefaultReminderOffsets = []int{1, 3, 7}

var errNoDuration = errors.New("assignment has no expected duration")

// SplitIntoChunks divides expectedMinutes into blocks of chunkMinutes. Every block is
// full size except the last, which takes the remainder.
func SplitIntoChunks(assignmentID uint, expectedMinutes, chunkMinutes int) ([]models.AssignmentChunk, error) {
	if expectedMinutes <= 0 {
		return nil, errNoDuration
	}
	if chunkMinutes <= 0 {
		chunkMinutes = DefaultChunkMinutes
	}
	n := (expectedMinutes + chunkMinutes - 1) / chunkMinutes
	chunks := make([]models.AssignmentChunk, 0, n)
	for i := 0; i < n; i++ {
		duration := chunkMinutes
		if i == n-1 {
			duration = expectedMinutes - chunkMinutes*(n-1)
		}
		title := fmt.Sprintf("Part %d", i+1)
		if i == n-1 {
			title += " (Final)"
		}
		chunks = append(chunks, models.AssignmentChunk{
			AssignmentID: assignmentID,
			Title:        title,
			Description:  fmt.Sprintf("Chunk %d of %d", i+1, n),
			Duration:     duration,
			Order:        i,
			Status:       models.AssignmentPending,
		})
	}
	return chunks, nil
}

// PlanReminders returns the reminders that should exist for a due assignment at the
// given offsets, skipping any whose time is not after now.
func PlanReminders(a models.Assignment, offsets []int, now time.Time) []models.Reminder {
	if a.DueDate == nil {
		return nil
	}
	if len(offsets) == 0 {
		offsets = DefaultReminderOffsets
	}
	var out []models.Reminder
	for _, days := range offsets {
		at := a.DueDate.Add(-time.Duration(days) * 24 * time.Hour)
		if !at.After(now) {
			continue
		}
		plural := ""
		if days > 1 {
			plural = "s"
		}
		id := a.ID
		out = append(out, models.Reminder{
			UserID:       a.UserID,
			AssignmentID: &id,
			Title:        "Assignment Due Soon: " + a.Title,
			Message:      fmt.Sprintf("%s is due in %d day%s", a.Title, days, plural),
			Type:         "assignment_due",
			ScheduledAt:  at,
		})
	}
	return out
}
