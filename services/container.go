package services

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Container holds the wired domain services shared by the HTTP layer.
type Container struct {
	Activity        *ActivityLogger
	Streaks         *StreakTracker
	Badges          *BadgeEvaluator
	Repair          *StreakRepairer
	Recommendations *RecommendationEngine
	Sync            *AssignmentSyncer
	Canvas          CanvasFactory
	CanvasOAuth     *CanvasOAuth
}

// CanvasSettings configures the Canvas integration.
type CanvasSettings struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// NewContainer wires every service around one database handle and logger.
func NewContainer(db *gorm.DB, logger *zap.Logger, canvas CanvasSettings) *Container {
	activity := NewActivityLogger(db, logger.Named("activity"))
	streaks := NewStreakTracker(db, logger.Named("streaks"))
	badges := NewBadgeEvaluator(db, logger.Named("badges"))
	return &Container{
		Activity:        activity,
		Streaks:         streaks,
		Badges:          badges,
		Repair:          NewStreakRepairer(db, logger.Named("repair"), activity, streaks, badges),
		Recommendations: NewRecommendationEngine(db, logger.Named("recommendations")),
		Sync:            NewAssignmentSyncer(db, logger.Named("sync"), activity),
		Canvas:          NewCanvasFactory(logger.Named("canvas")),
		CanvasOAuth:     NewCanvasOAuth(canvas.BaseURL, canvas.ClientID, canvas.ClientSecret, canvas.RedirectURI),
	}
}
