package services

import "github.com/prometheus/client_golang/prometheus"

var (
	streakUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focuspocus_streak_updates_total",
			Help: "Streak tracker invocations by type and outcome",
		},
		[]string{"type", "outcome"},
	)
	badgesAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focuspocus_badges_awarded_total",
			Help: "Badges newly awarded to users",
		},
		[]string{"badge"},
	)
	gamificationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focuspocus_gamification_errors_total",
			Help: "Swallowed storage errors in the gamification engine",
		},
		[]string{"component"},
	)
	recommendationsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focuspocus_recommendations_total",
			Help: "Recommendations emitted by type",
		},
		[]string{"type"},
	)
)

// RegisterMetrics registers the domain collectors. Call once from main.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(streakUpdates, badgesAwarded, gamificationErrors, recommendationsEmitted)
}
