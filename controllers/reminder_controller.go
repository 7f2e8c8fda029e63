package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/focuspocus/focuspocus/models"
	"github.com/focuspocus/focuspocus/services"
	"github.com/focuspocus/focuspocus/utils"
)

// ReminderController manages reminders.
type ReminderController struct {
	db  *gorm.DB
	svc *services.Container
	now func() time.Time
}

// NewReminderController creates a ReminderController.
func NewReminderController(db *gorm.DB, svc *services.Container) *ReminderController {
	return &ReminderController{db: db, svc: svc, now: time.Now}
}

func reminderAssignment(db *gorm.DB) *gorm.DB {
	return db.Select("id", "title", "due_date")
}

func (r *ReminderController) find(ctx *gin.Context, userID, id uint) (*models.Reminder, bool) {
	var reminder models.Reminder
	err := r.db.WithContext(ctx.Request.Context()).Where("id = ? AND user_id = ?", id, userID).First(&reminder).Error
	if err != nil {
		if isNotFound(err) {
			utils.Error(ctx, http.StatusNotFound, 40440, "Reminder not found")
		} else {
			utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to load reminder")
		}
		return nil, false
	}
	return &reminder, true
}

// List returns reminders by schedule. upcoming=true keeps unsent future ones.
func (r *ReminderController) List(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	q := r.db.WithContext(ctx.Request.Context()).Where("user_id = ?", userID)
	if sent, has := ctx.GetQuery("sent"); has {
		q = q.Where("sent = ?", sent == "true")
	}
	if ctx.Query("upcoming") == "true" {
		q = q.Where("scheduled_at >= ? AND sent = ?", r.now().UTC(), false)
	}
	var reminders []models.Reminder
	if err := q.Preload("Assignment", reminderAssignment).Order("scheduled_at ASC").Find(&reminders).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to list reminders")
		return
	}
	utils.Success(ctx, gin.H{"reminders": reminders})
}

// Create schedules a custom reminder.
func (r *ReminderController) Create(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req struct {
		Title        string `json:"title"`
		Message      string `json:"message"`
		Type         string `json:"type"`
		ScheduledAt  string `json:"scheduledAt"`
		AssignmentID *uint  `json:"assignmentId"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request body")
		return
	}
	title := strings.TrimSpace(req.Title)
	message := strings.TrimSpace(req.Message)
	if title == "" || message == "" || strings.TrimSpace(req.ScheduledAt) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40051, "Title, message, and scheduledAt are required")
		return
	}
	at, err := parseTimePtr(req.ScheduledAt)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40052, "invalid scheduledAt")
		return
	}
	typ := req.Type
	if typ == "" {
		typ = "custom"
	}

	reqCtx := ctx.Request.Context()
	if req.AssignmentID != nil && *req.AssignmentID != 0 {
		var count int64
		if err := r.db.WithContext(reqCtx).Model(&models.Assignment{}).
			Where("id = ? AND user_id = ?", *req.AssignmentID, userID).Count(&count).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to load assignment")
			return
		}
		if count == 0 {
			utils.Error(ctx, http.StatusNotFound, 40410, "Assignment not found")
			return
		}
	} else {
		req.AssignmentID = nil
	}

	reminder := models.Reminder{
		UserID:       userID,
		AssignmentID: req.AssignmentID,
		Title:        utils.SanitizeText(title),
		Message:      utils.SanitizeText(message),
		Type:         typ,
		ScheduledAt:  *at,
	}
	if err := r.db.WithContext(reqCtx).Create(&reminder).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to create reminder")
		return
	}
	r.svc.Activity.Log(reqCtx, userID, "reminder_created", services.EntityReminder, &reminder.ID, map[string]interface{}{"type": typ})
	utils.Created(ctx, gin.H{"reminder": reminder})
}

// AutoAssignments creates due-date reminders for every open assignment due in the future.
func (r *ReminderController) AutoAssignments(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req struct {
		DaysBefore []int `json:"daysBefore"`
	}
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request body")
			return
		}
	}
	offsets := make([]int, 0, len(req.DaysBefore))
	for _, d := range req.DaysBefore {
		if d > 0 {
			offsets = append(offsets, d)
		}
	}
	if len(offsets) == 0 {
		offsets = services.DefaultReminderOffsets
	}

	reqCtx := ctx.Request.Context()
	now := r.now().UTC()
	var assignments []models.Assignment
	err := r.db.WithContext(reqCtx).
		Where("user_id = ? AND due_date >= ? AND status <> ?", userID, now, models.AssignmentCompleted).
		Find(&assignments).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to load assignments")
		return
	}

	created := make([]models.Reminder, 0)
	if len(assignments) > 0 {
		ids := make([]uint, 0, len(assignments))
		for _, a := range assignments {
			ids = append(ids, a.ID)
		}
		var existing []models.Reminder
		if err := r.db.WithContext(reqCtx).Select("assignment_id", "scheduled_at").
			Where("user_id = ? AND assignment_id IN ?", userID, ids).Find(&existing).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to load reminders")
			return
		}
		seen := make(map[string]struct{}, len(existing))
		for _, e := range existing {
			if e.AssignmentID != nil {
				seen[reminderKey(*e.AssignmentID, e.ScheduledAt)] = struct{}{}
			}
		}

		for _, a := range assignments {
			for _, planned := range services.PlanReminders(a, offsets, now) {
				key := reminderKey(a.ID, planned.ScheduledAt)
				if _, dup := seen[key]; dup {
					continue
				}
				if err := r.db.WithContext(reqCtx).Create(&planned).Error; err != nil {
					utils.Error(ctx, http.StatusInternalServerError, 50055, "failed to create reminder")
					return
				}
				seen[key] = struct{}{}
				created = append(created, planned)
			}
		}
	}

	r.svc.Activity.Log(reqCtx, userID, "reminders_auto_created", services.EntityReminder, nil, map[string]interface{}{"count": len(created)})
	utils.Success(ctx, gin.H{
		"message":   fmt.Sprintf("Created %d reminders", len(created)),
		"reminders": created,
	})
}

func reminderKey(assignmentID uint, at time.Time) string {
	return fmt.Sprintf("%d@%d", assignmentID, at.Unix())
}

// Update applies a partial update.
func (r *ReminderController) Update(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Title       *string `json:"title"`
		Message     *string `json:"message"`
		ScheduledAt *string `json:"scheduledAt"`
		Sent        *bool   `json:"sent"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request body")
		return
	}
	reminder, ok := r.find(ctx, userID, id)
	if !ok {
		return
	}
	if req.Title != nil {
		reminder.Title = utils.SanitizeText(*req.Title)
	}
	if req.Message != nil {
		reminder.Message = utils.SanitizeText(*req.Message)
	}
	if req.ScheduledAt != nil {
		at, err := parseTimePtr(*req.ScheduledAt)
		if err != nil || at == nil {
			utils.Error(ctx, http.StatusBadRequest, 40052, "invalid scheduledAt")
			return
		}
		reminder.ScheduledAt = *at
	}
	if req.Sent != nil {
		reminder.Sent = *req.Sent
		if *req.Sent {
			sentAt := r.now().UTC()
			reminder.SentAt = &sentAt
		}
	}
	if err := r.db.WithContext(ctx.Request.Context()).Save(reminder).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50056, "failed to update reminder")
		return
	}
	utils.Success(ctx, gin.H{"reminder": reminder})
}

// Delete removes a reminder.
func (r *ReminderController) Delete(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	reminder, ok := r.find(ctx, userID, id)
	if !ok {
		return
	}
	if err := r.db.WithContext(ctx.Request.Context()).Delete(reminder).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50057, "failed to delete reminder")
		return
	}
	utils.Success(ctx, gin.H{"message": "Reminder deleted successfully"})
}

// MarkSent flags a reminder as delivered.
func (r *ReminderController) MarkSent(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	reminder, ok := r.find(ctx, userID, id)
	if !ok {
		return
	}
	sentAt := r.now().UTC()
	if err := r.db.WithContext(ctx.Request.Context()).Model(reminder).Updates(map[string]interface{}{
		"sent":    true,
		"sent_at": sentAt,
	}).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50056, "failed to update reminder")
		return
	}
	reminder.Sent = true
	reminder.SentAt = &sentAt
	utils.Success(ctx, gin.H{"reminder": reminder})
}
