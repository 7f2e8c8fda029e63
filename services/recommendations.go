package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/focuspocus/focuspocus/models"
)

// RecommendationType identifies a recommendation rule.
type RecommendationType string

const (
	RecStudyTime           RecommendationType = "study_time"
	RecUrgentAssignment    RecommendationType = "urgent_assignment"
	RecChunkAssignment     RecommendationType = "chunk_assignment"
	RecStreakEncouragement RecommendationType = "streak_encouragement"
	RecTakeBreak           RecommendationType = "take_break"
	RecOverdueWarning      RecommendationType = "overdue_warning"
)

// Priority orders recommendations; higher ranks sort first.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank maps a priority to its sort weight.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

const (
	recentSessionWindow  = 7 * 24 * time.Hour
	urgentWithinDays     = 2
	largeAssignmentMins  = 120
	streakGoalDays       = 7
	breakThresholdMinute = 180
)

// AssignmentRef is the short form of an assignment embedded in a recommendation.
type AssignmentRef struct {
	ID               uint       `json:"id"`
	Title            string     `json:"title"`
	DueDate          *time.Time `json:"dueDate,omitempty"`
	ExpectedDuration *int       `json:"expectedDuration,omitempty"`
}

// Recommendation is one advisory message.
type Recommendation struct {
	Type              RecommendationType `json:"type"`
	Priority          Priority           `json:"priority"`
	Message           string             `json:"message"`
	SuggestedDuration *int               `json:"suggestedDuration,omitempty"`
	Assignments       []AssignmentRef    `json:"assignments,omitempty"`
	CurrentStreak     *int               `json:"currentStreak,omitempty"`
}

// RecommendationEngine derives advice from recent sessions, open assignments and streaks.
// It never writes.
type RecommendationEngine struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewRecommendationEngine builds a RecommendationEngine.
func NewRecommendationEngine(db *gorm.DB, logger *zap.Logger) *RecommendationEngine {
	return &RecommendationEngine{db: db, logger: logger, now: time.Now}
}

// WithClock returns a copy of the engine that uses now as its clock.
func (e *RecommendationEngine) WithClock(now func() time.Time) *RecommendationEngine {
	cp := *e
	cp.now = now
	return &cp
}

// Recommend returns the prioritized recommendations for a user. On storage errors it
// logs and returns an empty list.
func (e *RecommendationEngine) Recommend(ctx context.Context, userID uint) []Recommendation {
	recs, err := e.recommend(ctx, userID)
	if err != nil {
		e.logger.Error("error generating recommendations", zap.Uint("user_id", userID), zap.Error(err))
		return []Recommendation{}
	}
	for _, r := range recs {
		recommendationsEmitted.WithLabelValues(string(r.Type)).Inc()
	}
	return recs
}

func (e *RecommendationEngine) recommend(ctx context.Context, userID uint) ([]Recommendation, error) {
	db := e.db.WithContext(ctx)
	now := e.now().UTC()
	today := utcDate(now)

	var open []models.Assignment
	if err := db.Preload("Chunks").
		Where("user_id = ? AND status <> ? AND due_date IS NOT NULL", userID, models.AssignmentCompleted).
		Order("due_date ASC").
		Find(&open).Error; err != nil {
		return nil, fmt.Errorf("load open assignments: %w", err)
	}

	var sessions []models.StudySession
	if err := db.Where("user_id = ? AND completed = ? AND started_at >= ?", userID, true, now.Add(-recentSessionWindow)).
		Order("started_at ASC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("load recent sessions: %w", err)
	}

	var streak models.Streak
	res := db.Where("user_id = ? AND type = ?", userID, models.StreakDailyStudy).Limit(1).Find(&streak)
	if res.Error != nil {
		return nil, fmt.Errorf("load study streak: %w", res.Error)
	}
	hasStreak := res.RowsAffected > 0

	recs := make([]Recommendation, 0, 6)

	if len(sessions) > 0 {
		total := 0
		for _, s := range sessions {
			total += s.Duration
		}
		avg := int(math.Round(float64(total) / float64(len(sessions))))
		recs = append(recs, Recommendation{
			Type:              RecStudyTime,
			Priority:          PriorityMedium,
			Message:           fmt.Sprintf("Based on your patterns, you study best around %d:00. Consider scheduling your next session then.", bestStudyHour(sessions)),
			SuggestedDuration: &avg,
		})
	}

	var urgent, large, overdue []AssignmentRef
	for _, a := range open {
		due := a.DueDate.UTC()
		if d := daysBetween(today, utcDate(due)); d > 0 && d <= urgentWithinDays {
			urgent = append(urgent, AssignmentRef{ID: a.ID, Title: a.Title, DueDate: a.DueDate})
		}
		if a.ExpectedDuration != nil && *a.ExpectedDuration > largeAssignmentMins && len(a.Chunks) == 0 {
			large = append(large, AssignmentRef{ID: a.ID, Title: a.Title, ExpectedDuration: a.ExpectedDuration})
		}
		if due.Before(now) {
			overdue = append(overdue, AssignmentRef{ID: a.ID, Title: a.Title, DueDate: a.DueDate})
		}
	}

	if len(urgent) > 0 {
		recs = append(recs, Recommendation{
			Type:        RecUrgentAssignment,
			Priority:    PriorityHigh,
			Message:     fmt.Sprintf("You have %d assignment(s) due within 2 days. Consider starting them soon.", len(urgent)),
			Assignments: urgent,
		})
	}

	if len(large) > 0 {
		recs = append(recs, Recommendation{
			Type:        RecChunkAssignment,
			Priority:    PriorityMedium,
			Message:     "Consider breaking down large assignments into smaller chunks for better focus.",
			Assignments: large,
		})
	}

	if hasStreak && streak.Current > 0 && streak.Current < streakGoalDays {
		current := streak.Current
		recs = append(recs, Recommendation{
			Type:          RecStreakEncouragement,
			Priority:      PriorityLow,
			Message:       fmt.Sprintf("You're on a %d-day study streak! Keep it up to reach 7 days!", current),
			CurrentStreak: &current,
		})
	}

	todayMinutes := 0
	for _, s := range sessions {
		if utcDate(s.StartedAt).Equal(today) {
			todayMinutes += s.Duration
		}
	}
	if todayMinutes > breakThresholdMinute {
		hours := int(math.Round(float64(todayMinutes) / 60))
		recs = append(recs, Recommendation{
			Type:     RecTakeBreak,
			Priority: PriorityLow,
			Message:  fmt.Sprintf("You've studied for %d hours today. Consider taking a break!", hours),
		})
	}

	if len(overdue) > 0 {
		recs = append(recs, Recommendation{
			Type:        RecOverdueWarning,
			Priority:    PriorityHigh,
			Message:     fmt.Sprintf("You have %d overdue assignment(s). Let's get back on track!", len(overdue)),
			Assignments: overdue,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority.Rank() > recs[j].Priority.Rank()
	})
	return recs, nil
}

// bestStudyHour is the most frequent UTC start hour; ties go to the earliest hour.
func bestStudyHour(sessions []models.StudySession) int {
	var tally [24]int
	for _, s := range sessions {
		tally[s.StartedAt.UTC().Hour()]++
	}
	best := 0
	for h := 1; h < 24; h++ {
		if tally[h] > tally[best] {
			best = h
		}
	}
	return best
}
