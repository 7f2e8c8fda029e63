package models

import "time"

// StreakType identifies which activity a streak counts.
type StreakType string

const (
	StreakDailyStudy           StreakType = "daily_study"
	StreakAssignmentCompletion StreakType = "assignment_completion"
)

// StreakTypes lists every streak type, in display order.
var StreakTypes = []StreakType{StreakDailyStudy, StreakAssignmentCompletion}

// Valid reports whether t is a known streak type.
func (t StreakType) Valid() bool {
	switch t {
	case StreakDailyStudy, StreakAssignmentCompletion:
		return true
	}
	return false
}

// BadgeName is the unique catalog key of a badge.
type BadgeName string

const (
	BadgeFirstLogin        BadgeName = "first_login"
	BadgeFirstAssignment   BadgeName = "first_assignment"
	BadgeFirstSession      BadgeName = "first_session"
	BadgeDailyVisitor      BadgeName = "daily_visitor"
	BadgeWeekStreak        BadgeName = "week_streak"
	BadgeMonthStreak       BadgeName = "month_streak"
	BadgeCenturyStreak     BadgeName = "century_streak"
	BadgeTenAssignments    BadgeName = "ten_assignments"
	BadgeFiftyAssignments  BadgeName = "fifty_assignments"
	BadgeTenHoursStudy     BadgeName = "ten_hours_study"
	BadgeNoteTaker         BadgeName = "note_taker"
	BadgeEarlyBird         BadgeName = "early_bird"
	BadgeNightOwl          BadgeName = "night_owl"
	BadgeWeekendWarrior    BadgeName = "weekend_warrior"
	BadgeFocused           BadgeName = "focused"
	BadgeChunkMaster       BadgeName = "chunk_master"
	BadgeCheatsheetCreator BadgeName = "cheatsheet_creator"
	BadgeAttentionHero     BadgeName = "attention_hero"
	BadgeCanvasConnected   BadgeName = "canvas_connected"
	BadgePerfectWeek       BadgeName = "perfect_week"
)

// ActionTrigger names a user action that can award badges.
type ActionTrigger string

const (
	ActionAssignmentCompleted ActionTrigger = "assignment_completed"
	ActionSessionCompleted    ActionTrigger = "session_completed"
)

// Streak tracks consecutive calendar days of an activity.
// LastUpdated is always a date at UTC midnight.
type Streak struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"uniqueIndex:idx_streak_user_type;not null" json:"userId"`
	Type        StreakType `gorm:"size:32;uniqueIndex:idx_streak_user_type;not null" json:"type"`
	Current     int        `gorm:"not null;default:0" json:"current"`
	Longest     int        `gorm:"not null;default:0" json:"longest"`
	LastUpdated time.Time  `gorm:"not null" json:"lastUpdated"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Badge is a catalog entry. Rows are seeded at boot and never mutated by requests.
type Badge struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        BadgeName `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	Icon        string    `gorm:"size:32" json:"icon"`
	Category    string    `gorm:"size:32" json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UserBadge records that a user earned a badge. At most one row per pair.
type UserBadge struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UserID   uint      `gorm:"uniqueIndex:idx_user_badge;not null" json:"userId"`
	BadgeID  uint      `gorm:"uniqueIndex:idx_user_badge;not null" json:"badgeId"`
	Badge    Badge     `json:"badge"`
	EarnedAt time.Time `json:"earnedAt"`
}

// BadgeCatalog is the seed set for the badges table.
var BadgeCatalog = []Badge{
	{Name: BadgeFirstLogin, Description: "Welcome! You logged in for the first time", Icon: "👋", Category: "engagement"},
	{Name: BadgeFirstAssignment, Description: "Completed your first assignment", Icon: "🎯", Category: "achievement"},
	{Name: BadgeFirstSession, Description: "Completed your first study session", Icon: "📚", Category: "study"},
	{Name: BadgeDailyVisitor, Description: "Visited the platform 5 days in a row", Icon: "📅", Category: "engagement"},
	{Name: BadgeWeekStreak, Description: "Maintained a 7-day study streak", Icon: "🔥", Category: "streak"},
	{Name: BadgeMonthStreak, Description: "Maintained a 30-day study streak", Icon: "💪", Category: "streak"},
	{Name: BadgeCenturyStreak, Description: "Achieved a 100-day streak!", Icon: "🏆", Category: "streak"},
	{Name: BadgeTenAssignments, Description: "Completed 10 assignments", Icon: "⭐", Category: "achievement"},
	{Name: BadgeFiftyAssignments, Description: "Completed 50 assignments", Icon: "🌟", Category: "achievement"},
	{Name: BadgeTenHoursStudy, Description: "Studied for 10 hours total", Icon: "⏰", Category: "study"},
	{Name: BadgeNoteTaker, Description: "Created 10 notes", Icon: "📝", Category: "study"},
	{Name: BadgeEarlyBird, Description: "Started studying before 8 AM", Icon: "🌅", Category: "engagement"},
	{Name: BadgeNightOwl, Description: "Studied after 10 PM", Icon: "🦉", Category: "engagement"},
	{Name: BadgeWeekendWarrior, Description: "Studied on the weekend", Icon: "🎮", Category: "engagement"},
	{Name: BadgeFocused, Description: "Completed 5 Pomodoro sessions", Icon: "🍅", Category: "study"},
	{Name: BadgeChunkMaster, Description: "Created chunks for 5 assignments", Icon: "✂️", Category: "study"},
	{Name: BadgeCheatsheetCreator, Description: "Created 5 cheatsheets", Icon: "📋", Category: "study"},
	{Name: BadgeAttentionHero, Description: "Used attention check 10 times", Icon: "👁️", Category: "engagement"},
	{Name: BadgeCanvasConnected, Description: "Connected your Canvas account", Icon: "🔗", Category: "engagement"},
	{Name: BadgePerfectWeek, Description: "Studied every day for a week", Icon: "📊", Category: "streak"},
}

// All lists every table managed by AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Assignment{},
		&AssignmentChunk{},
		&StudySession{},
		&Note{},
		&Reminder{},
		&Streak{},
		&Badge{},
		&UserBadge{},
		&ActivityLog{},
	}
}
