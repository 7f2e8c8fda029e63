package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/focuspocus/focuspocus/models"
	"github.com/focuspocus/focuspocus/services"
	"github.com/focuspocus/focuspocus/utils"
)

// GamificationController exposes streaks and badges.
type GamificationController struct {
	db  *gorm.DB
	svc *services.Container
}

// NewGamificationController creates a GamificationController.
func NewGamificationController(db *gorm.DB, svc *services.Container) *GamificationController {
	return &GamificationController{db: db, svc: svc}
}

type badgeState struct {
	models.Badge
	Earned   bool       `json:"earned"`
	EarnedAt *time.Time `json:"earnedAt"`
}

// badgeStates returns the whole catalog with the user's earned flags, plus the earned count.
func badgeStates(ctx context.Context, db *gorm.DB, userID uint) ([]badgeState, int, error) {
	var all []models.Badge
	if err := db.WithContext(ctx).Order("name ASC").Find(&all).Error; err != nil {
		return nil, 0, err
	}
	var earned []models.UserBadge
	if err := db.WithContext(ctx).Where("user_id = ?", userID).Find(&earned).Error; err != nil {
		return nil, 0, err
	}
	earnedAt := make(map[uint]time.Time, len(earned))
	for _, ub := range earned {
		earnedAt[ub.BadgeID] = ub.EarnedAt
	}
	out := make([]badgeState, 0, len(all))
	for _, b := range all {
		st := badgeState{Badge: b}
		if at, ok := earnedAt[b.ID]; ok {
			st.Earned = true
			st.EarnedAt = &at
		}
		out = append(out, st)
	}
	return out, len(earned), nil
}

func userStreaks(ctx context.Context, db *gorm.DB, userID uint) ([]models.Streak, error) {
	var streaks []models.Streak
	err := db.WithContext(ctx).Where("user_id = ?", userID).Order("type ASC").Find(&streaks).Error
	return streaks, err
}

// Badges lists the catalog with earned flags.
func (g *GamificationController) Badges(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	badges, earnedCount, err := badgeStates(ctx.Request.Context(), g.db, userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load badges")
		return
	}
	utils.Success(ctx, gin.H{
		"badges":      badges,
		"earnedCount": earnedCount,
		"totalCount":  len(badges),
	})
}

// Streaks lists the user's streak rows.
func (g *GamificationController) Streaks(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	streaks, err := userStreaks(ctx.Request.Context(), g.db, userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to load streaks")
		return
	}
	utils.Success(ctx, gin.H{"streaks": streaks})
}

// Dashboard summarises recent badges, streaks and completion totals.
func (g *GamificationController) Dashboard(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	reqCtx := ctx.Request.Context()
	db := g.db.WithContext(reqCtx)

	var recent []models.UserBadge
	if err := db.Preload("Badge").Where("user_id = ?", userID).Order("earned_at DESC").Limit(5).Find(&recent).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load badges")
		return
	}
	recentBadges := make([]models.Badge, 0, len(recent))
	for _, ub := range recent {
		recentBadges = append(recentBadges, ub.Badge)
	}

	streaks, err := userStreaks(reqCtx, g.db, userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to load streaks")
		return
	}

	var completed int64
	if err := db.Model(&models.Assignment{}).Where("user_id = ? AND status = ?", userID, models.AssignmentCompleted).Count(&completed).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to load stats")
		return
	}
	var totals struct {
		Sessions int64
		Minutes  int64
	}
	if err := db.Model(&models.StudySession{}).
		Select("COUNT(*) AS sessions, COALESCE(SUM(duration), 0) AS minutes").
		Where("user_id = ? AND completed = ?", userID, true).
		Scan(&totals).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to load stats")
		return
	}

	utils.Success(ctx, gin.H{
		"badges":  recentBadges,
		"streaks": streaks,
		"stats": gin.H{
			"completedAssignments": completed,
			"totalSessions":        totals.Sessions,
			"totalStudyMinutes":    totals.Minutes,
			"totalStudyHours":      roundTenths(float64(totals.Minutes) / 60),
		},
	})
}
