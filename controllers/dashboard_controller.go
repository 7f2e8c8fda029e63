package controllers

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/focuspocus/focuspocus/models"
	"github.com/focuspocus/focuspocus/utils"
)

// actions counted on the activity calendar
var calendarActions = []string{
	string(models.ActionSessionCompleted),
	string(models.ActionAssignmentCompleted),
	"note_created",
}

// DashboardController aggregates the home screen.
type DashboardController struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDashboardController creates a DashboardController.
func NewDashboardController(db *gorm.DB) *DashboardController {
	return &DashboardController{db: db, now: time.Now}
}

type actionCount struct {
	Action string `json:"action"`
	Count  int64  `json:"count"`
}

// Get returns every dashboard panel in one payload.
func (d *DashboardController) Get(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	reqCtx := ctx.Request.Context()
	db := d.db.WithContext(reqCtx)
	today := startOfUTCDay(d.now())
	fail := func(err error) {
		utils.Logger.Error("dashboard query failed", zap.Uint("user_id", userID), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50080, "failed to load dashboard")
	}

	var upcoming []models.Assignment
	if err := db.Preload("Chunks", func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status <> ?", models.AssignmentCompleted).Order("sort_order ASC")
	}).Where("user_id = ? AND due_date >= ? AND status <> ?", userID, today, models.AssignmentCompleted).
		Order("due_date ASC").Find(&upcoming).Error; err != nil {
		fail(err)
		return
	}

	var overdue []models.Assignment
	if err := db.Where("user_id = ? AND due_date < ? AND status <> ?", userID, today, models.AssignmentCompleted).
		Order("due_date ASC").Limit(10).Find(&overdue).Error; err != nil {
		fail(err)
		return
	}

	var recentSessions []models.StudySession
	if err := db.Preload("Assignment", func(tx *gorm.DB) *gorm.DB { return tx.Select("id", "title") }).
		Where("user_id = ? AND completed = ? AND started_at >= ?", userID, true, today.AddDate(0, 0, -7)).
		Order("started_at DESC").Limit(5).Find(&recentSessions).Error; err != nil {
		fail(err)
		return
	}

	weekStart := today.AddDate(0, 0, -int(today.Weekday()))
	todayMinutes, err := studyMinutesSince(db, userID, today)
	if err != nil {
		fail(err)
		return
	}
	weekMinutes, err := studyMinutesSince(db, userID, weekStart)
	if err != nil {
		fail(err)
		return
	}

	var reminders []models.Reminder
	if err := db.Preload("Assignment", func(tx *gorm.DB) *gorm.DB { return tx.Select("id", "title") }).
		Where("user_id = ? AND sent = ? AND scheduled_at >= ?", userID, false, today).
		Order("scheduled_at ASC").Limit(5).Find(&reminders).Error; err != nil {
		fail(err)
		return
	}

	streaks, err := userStreaks(reqCtx, d.db, userID)
	if err != nil {
		fail(err)
		return
	}
	badges, earnedCount, err := badgeStates(reqCtx, d.db, userID)
	if err != nil {
		fail(err)
		return
	}

	var total, completed int64
	if err := db.Model(&models.Assignment{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		fail(err)
		return
	}
	if err := db.Model(&models.Assignment{}).Where("user_id = ? AND status = ?", userID, models.AssignmentCompleted).Count(&completed).Error; err != nil {
		fail(err)
		return
	}
	completionRate := 0
	if total > 0 {
		completionRate = int(math.Round(float64(completed) / float64(total) * 100))
	}

	var summary []actionCount
	if err := db.Model(&models.ActivityLog{}).
		Select("action, COUNT(id) AS count").
		Where("user_id = ? AND timestamp >= ?", userID, today.AddDate(0, 0, -30)).
		Group("action").Scan(&summary).Error; err != nil {
		fail(err)
		return
	}

	var logs []models.ActivityLog
	if err := db.Select("timestamp").
		Where("user_id = ? AND timestamp >= ? AND action IN ?", userID, today.AddDate(0, 0, -365), calendarActions).
		Order("timestamp ASC").Find(&logs).Error; err != nil {
		fail(err)
		return
	}
	calendar := make(map[string]int)
	for _, l := range logs {
		calendar[l.Timestamp.UTC().Format("2006-01-02")]++
	}

	utils.Success(ctx, gin.H{
		"upcomingAssignments": upcoming,
		"overdueAssignments":  overdue,
		"recentSessions":      recentSessions,
		"studyTime": gin.H{
			"today":    todayMinutes,
			"thisWeek": weekMinutes,
		},
		"pendingReminders":  reminders,
		"streaks":           streaks,
		"badges":            badges,
		"earnedBadgesCount": earnedCount,
		"totalBadgesCount":  len(badges),
		"stats": gin.H{
			"totalAssignments":     total,
			"completedAssignments": completed,
			"completionRate":       completionRate,
		},
		"activitySummary":  summary,
		"activityCalendar": calendar,
	})
}

func studyMinutesSince(db *gorm.DB, userID uint, since time.Time) (int64, error) {
	var minutes int64
	err := db.Model(&models.StudySession{}).
		Select("COALESCE(SUM(duration), 0)").
		Where("user_id = ? AND completed = ? AND started_at >= ?", userID, true, since).
		Scan(&minutes).Error
	return minutes, err
}
