package controllers

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/focuspocus/focuspocus/models"
	"github.com/focuspocus/focuspocus/services"
	"github.com/focuspocus/focuspocus/utils"
)

// SessionController runs study sessions.
type SessionController struct {
	db  *gorm.DB
	svc *services.Container
	now func() time.Time
}

// NewSessionController creates a SessionController.
func NewSessionController(db *gorm.DB, svc *services.Container) *SessionController {
	return &SessionController{db: db, svc: svc, now: time.Now}
}

func assignmentSummary(db *gorm.DB) *gorm.DB {
	return db.Select("id", "title", "course_name")
}

// List returns recent sessions, newest first.
func (s *SessionController) List(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	q := s.db.WithContext(ctx.Request.Context()).Where("user_id = ?", userID)
	if raw := strings.TrimSpace(ctx.Query("assignmentId")); raw != "" {
		aid, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40050, "invalid assignmentId")
			return
		}
		q = q.Where("assignment_id = ?", aid)
	}
	if typ := strings.TrimSpace(ctx.Query("type")); typ != "" {
		q = q.Where("type = ?", typ)
	}
	if completed, has := ctx.GetQuery("completed"); has {
		q = q.Where("completed = ?", completed == "true")
	}

	var sessions []models.StudySession
	err := q.Preload("Assignment", assignmentSummary).
		Order("started_at DESC").
		Limit(queryInt(ctx, "limit", 50, 500)).
		Find(&sessions).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to list sessions")
		return
	}
	utils.Success(ctx, gin.H{"sessions": sessions})
}

// Get returns one session with its assignment.
func (s *SessionController) Get(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	var session models.StudySession
	err := s.db.WithContext(ctx.Request.Context()).Preload("Assignment").
		Where("id = ? AND user_id = ?", id, userID).First(&session).Error
	if err != nil {
		if isNotFound(err) {
			utils.Error(ctx, http.StatusNotFound, 40420, "Session not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to load session")
		return
	}
	utils.Success(ctx, gin.H{"session": session})
}

// Create starts a session.
func (s *SessionController) Create(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req struct {
		Type          string `json:"type"`
		Duration      int    `json:"duration"`
		AssignmentID  *uint  `json:"assignmentId"`
		BreakDuration *int   `json:"breakDuration"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request body")
		return
	}
	typ := strings.TrimSpace(req.Type)
	if typ == "" || req.Duration <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40031, "Type and duration are required")
		return
	}

	reqCtx := ctx.Request.Context()
	if req.AssignmentID != nil && *req.AssignmentID != 0 {
		var count int64
		if err := s.db.WithContext(reqCtx).Model(&models.Assignment{}).
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

	session := models.StudySession{
		UserID:        userID,
		AssignmentID:  req.AssignmentID,
		Type:          typ,
		Duration:      req.Duration,
		BreakDuration: req.BreakDuration,
		StartedAt:     s.now().UTC(),
	}
	if err := s.db.WithContext(reqCtx).Create(&session).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to start session")
		return
	}
	meta := map[string]interface{}{"type": typ, "duration": req.Duration}
	if req.AssignmentID != nil {
		meta["assignmentId"] = *req.AssignmentID
	}
	s.svc.Activity.Log(reqCtx, userID, "session_started", services.EntitySession, &session.ID, meta)
	utils.Created(ctx, gin.H{"session": session})
}

// Complete ends a session and feeds the daily study streak and badge checks.
func (s *SessionController) Complete(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request body")
			return
		}
	}

	reqCtx := ctx.Request.Context()
	var session models.StudySession
	if err := s.db.WithContext(reqCtx).Where("id = ? AND user_id = ?", id, userID).First(&session).Error; err != nil {
		if isNotFound(err) {
			utils.Error(ctx, http.StatusNotFound, 40420, "Session not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to load session")
		return
	}
	if session.Completed {
		utils.Error(ctx, http.StatusBadRequest, 40032, "Session already completed")
		return
	}

	ended := s.now().UTC()
	// guard on completed = false so two concurrent completions count once
	res := s.db.WithContext(reqCtx).Model(&models.StudySession{}).
		Where("id = ? AND completed = ?", session.ID, false).
		Updates(map[string]interface{}{
			"completed": true,
			"ended_at":  ended,
			"notes":     utils.SanitizeText(req.Notes),
		})
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to complete session")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40032, "Session already completed")
		return
	}
	session.Completed = true
	session.EndedAt = &ended
	session.Notes = utils.SanitizeText(req.Notes)

	meta := map[string]interface{}{"duration": session.Duration, "type": session.Type}
	s.svc.Streaks.UpdateSafely(reqCtx, userID, models.StreakDailyStudy)
	s.svc.Badges.CheckSafely(reqCtx, userID, models.ActionSessionCompleted, meta)
	s.svc.Activity.Log(reqCtx, userID, string(models.ActionSessionCompleted), services.EntitySession, &session.ID, meta)

	utils.Success(ctx, gin.H{"session": session})
}

// StatsSummary aggregates completed sessions of the last N days.
func (s *SessionController) StatsSummary(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	days := queryInt(ctx, "days", 30, 3650)
	since := s.now().UTC().AddDate(0, 0, -days)

	var sessions []models.StudySession
	err := s.db.WithContext(ctx.Request.Context()).
		Select("duration", "type").
		Where("user_id = ? AND completed = ? AND started_at >= ?", userID, true, since).
		Find(&sessions).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50034, "failed to load sessions")
		return
	}

	totalMinutes := 0
	byType := map[string]int{}
	for _, sess := range sessions {
		totalMinutes += sess.Duration
		byType[sess.Type]++
	}
	average := 0
	if len(sessions) > 0 {
		average = int(math.Round(float64(totalMinutes) / float64(len(sessions))))
	}
	utils.Success(ctx, gin.H{
		"totalSessions":         len(sessions),
		"totalMinutes":          totalMinutes,
		"totalHours":            roundTenths(float64(totalMinutes) / 60),
		"averageSessionMinutes": average,
		"sessionsByType":        byType,
		"period":                fmt.Sprintf("%d days", days),
	})
}

func roundTenths(v float64) float64 {
	return math.Round(v*10) / 10
}
