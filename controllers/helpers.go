package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/focuspocus/focuspocus/middleware"
	"github.com/focuspocus/focuspocus/models"
	"github.com/focuspocus/focuspocus/utils"
)

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, v != 0
	case int:
		return uint(v), v > 0
	case float64:
		return uint(v), v > 0
	default:
		return 0, false
	}
}

// requireUser resolves the caller or writes a 401.
func requireUser(ctx *gin.Context) (uint, bool) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	}
	return userID, ok
}

// idParam parses a positive integer path parameter or writes a 400.
func idParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func queryInt(ctx *gin.Context, key string, def, maxVal int) int {
	n, err := strconv.Atoi(strings.TrimSpace(ctx.Query(key)))
	if err != nil || n <= 0 {
		return def
	}
	if maxVal > 0 && n > maxVal {
		return maxVal
	}
	return n
}

// parseTimePtr accepts RFC 3339 timestamps or plain dates. Empty means nil.
func parseTimePtr(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u, nil
		}
	}
	return nil, errors.New("invalid date")
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func validAssignmentStatus(s string) bool {
	switch s {
	case models.AssignmentPending, models.AssignmentInProgress, models.AssignmentCompleted, models.AssignmentOverdue:
		return true
	}
	return false
}

func validPriority(s string) bool {
	switch s {
	case "low", "medium", "high":
		return true
	}
	return false
}

func startOfUTCDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
