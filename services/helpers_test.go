package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/focuspocus/focuspocus/config"
	"github.com/focuspocus/focuspocus/models"
)

// newTestDB opens a private in-memory SQLite database with the schema and badge catalog.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := config.Open("sqlite", dsn, "silent")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, config.Migrate(db))
	require.NoError(t, config.SeedBadges(db))
	return db
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func day(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func createUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	u := models.User{Email: email, PasswordHash: "x"}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func createCompletedAssignments(t *testing.T, db *gorm.DB, userID uint, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, db.Create(&models.Assignment{
			UserID: userID,
			Title:  fmt.Sprintf("a%d", i),
			Status: models.AssignmentCompleted,
		}).Error)
	}
}

func userBadgeNames(t *testing.T, db *gorm.DB, userID uint) []models.BadgeName {
	t.Helper()
	var names []models.BadgeName
	require.NoError(t, db.Model(&models.UserBadge{}).
		Joins("JOIN badges ON badges.id = user_badges.badge_id").
		Where("user_badges.user_id = ?", userID).
		Order("badges.name").
		Pluck("badges.name", &names).Error)
	return names
}

func nopLogger() *zap.Logger { return zap.NewNop() }
