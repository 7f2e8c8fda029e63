package services

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/focuspocus/focuspocus/models"
)

// SyncError describes one assignment that failed to import.
type SyncError struct {
	Assignment string `json:"assignment"`
	Error      string `json:"error"`
}

// SyncResult summarizes an assignment import.
type SyncResult struct {
	Synced       int         `json:"synced"`
	Updated      int         `json:"updated"`
	Total        int         `json:"total"`
	Errors       int         `json:"errors"`
	ErrorDetails []SyncError `json:"errorDetails"`
}

// AssignmentSyncer imports Canvas assignments into local rows keyed by Canvas id.
// It does not run gamification hooks; StreakRepairer covers assignments it completes.
type AssignmentSyncer struct {
	db       *gorm.DB
	logger   *zap.Logger
	activity *ActivityLogger
	now      func() time.Time
}

// NewAssignmentSyncer builds an AssignmentSyncer.
func NewAssignmentSyncer(db *gorm.DB, logger *zap.Logger, activity *ActivityLogger) *AssignmentSyncer {
	return &AssignmentSyncer{db: db, logger: logger, activity: activity, now: time.Now}
}

// Sync fetches every assignment from api and upserts it for userID.
func (s *AssignmentSyncer) Sync(ctx context.Context, userID uint, api CanvasAPI) (SyncResult, error) {
	items, err := api.AllAssignments(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	res := s.Import(ctx, userID, items)
	s.activity.Log(ctx, userID, "assignments_synced", EntityAssignment, nil, map[string]interface{}{
		"synced":  res.Synced,
		"updated": res.Updated,
		"errors":  res.Errors,
	})
	return res, nil
}

// Import upserts already fetched Canvas assignments.
func (s *AssignmentSyncer) Import(ctx context.Context, userID uint, items []CanvasAssignment) SyncResult {
	res := SyncResult{Total: len(items), ErrorDetails: []SyncError{}}
	now := s.now().UTC()
	db := s.db.WithContext(ctx)

	for _, ca := range items {
		created, err := s.upsert(db, userID, ca, now)
		if err != nil {
			s.logger.Warn("canvas assignment import failed",
				zap.Uint("user_id", userID),
				zap.Int64("canvas_id", ca.ID),
				zap.Error(err))
			res.ErrorDetails = append(res.ErrorDetails, SyncError{Assignment: ca.Name, Error: err.Error()})
			continue
		}
		if created {
			res.Synced++
		} else {
			res.Updated++
		}
	}
	res.Errors = len(res.ErrorDetails)
	return res
}

func (s *AssignmentSyncer) upsert(db *gorm.DB, userID uint, ca CanvasAssignment, now time.Time) (bool, error) {
	canvasID := strconv.FormatInt(ca.ID, 10)
	status := canvasStatus(ca, now)
	fields := map[string]interface{}{
		"course_id":         strconv.FormatInt(ca.CourseID, 10),
		"course_name":       ca.CourseName,
		"title":             ca.Name,
		"description":       ca.Description,
		"due_date":          ca.DueAt,
		"expected_duration": expectedMinutes(ca.PointsPossible),
		"synced_at":         now,
	}

	var existing models.Assignment
	err := db.Where("canvas_id = ?", canvasID).First(&existing).Error
	switch {
	case err == nil:
		if existing.UserID != userID {
			return false, errors.New("canvas assignment belongs to another user")
		}
		// A local completion is never downgraded by Canvas state
		if existing.Status != models.AssignmentCompleted {
			fields["status"] = status
			if status == models.AssignmentCompleted {
				fields["completed_at"] = submittedAt(ca, now)
			}
		}
		return false, db.Model(&existing).Updates(fields).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		a := models.Assignment{
			UserID:           userID,
			CanvasID:         &canvasID,
			CourseID:         strconv.FormatInt(ca.CourseID, 10),
			CourseName:       ca.CourseName,
			Title:            ca.Name,
			Description:      ca.Description,
			DueDate:          ca.DueAt,
			ExpectedDuration: expectedMinutes(ca.PointsPossible),
			Status:           status,
			Priority:         "medium",
			SyncedAt:         &now,
		}
		if status == models.AssignmentCompleted {
			t := submittedAt(ca, now)
			a.CompletedAt = &t
		}
		return true, db.Create(&a).Error
	default:
		return false, err
	}
}

// canvasStatus derives a local status: submitted means completed, past due means overdue.
func canvasStatus(ca CanvasAssignment, now time.Time) string {
	if ca.Submission != nil && ca.Submission.SubmittedAt != nil {
		return models.AssignmentCompleted
	}
	if ca.DueAt != nil && ca.DueAt.Before(now) {
		return models.AssignmentOverdue
	}
	return models.AssignmentPending
}

// expectedMinutes estimates ten minutes of work per point.
func expectedMinutes(points *float64) *int {
	if points == nil || *points <= 0 {
		return nil
	}
	m := int(math.Round(*points * 10))
	return &m
}

func submittedAt(ca CanvasAssignment, fallback time.Time) time.Time {
	if ca.Submission != nil && ca.Submission.SubmittedAt != nil {
		return ca.Submission.SubmittedAt.UTC()
	}
	return fallback
}
