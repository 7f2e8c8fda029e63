package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/focuspocus/focuspocus/services"
	"github.com/focuspocus/focuspocus/utils"
)

// RecommendationController serves study suggestions and the streak repair hook.
type RecommendationController struct {
	svc *services.Container
}

// NewRecommendationController creates a RecommendationController.
func NewRecommendationController(svc *services.Container) *RecommendationController {
	return &RecommendationController{svc: svc}
}

// List returns the prioritised recommendations. Engine failures yield an empty list.
func (r *RecommendationController) List(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	recs := r.svc.Recommendations.Recommend(ctx.Request.Context(), userID)
	if recs == nil {
		recs = []services.Recommendation{}
	}
	utils.Success(ctx, gin.H{"recommendations": recs})
}

// FixStreaks replays gamification for assignments completed outside the API.
func (r *RecommendationController) FixStreaks(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	res, err := r.svc.Repair.FixCompletedAssignments(ctx.Request.Context(), userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to fix streaks")
		return
	}
	utils.Success(ctx, gin.H{
		"message": "Streaks and badges fixed successfully",
		"fixed":   res.Fixed,
	})
}
