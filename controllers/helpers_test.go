package controllers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focuspocus/focuspocus/middleware"
)

func TestParseTimePtr(t *testing.T) {
	got, err := parseTimePtr("")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseTimePtr("2024-10-12T23:59:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 10, 12, 21, 59, 0, 0, time.UTC), *got)

	got, err = parseTimePtr(" 2024-10-12 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 10, 12, 0, 0, 0, 0, time.UTC), *got)

	_, err = parseTimePtr("next tuesday")
	assert.Error(t, err)
}

func TestCleanTags(t *testing.T) {
	assert.Equal(t, []string{"bio", "exam"}, []string(cleanTags([]string{" bio", "bio", "", "exam"})))
	assert.Empty(t, []string(cleanTags(nil)))

	many := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		many = append(many, fmt.Sprintf("t%d", i))
	}
	assert.Len(t, cleanTags(many), maxNoteTags)
}

func TestReminderKeyIgnoresSubsecondsAndZone(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	local := at.In(time.FixedZone("X", 3600)).Add(300 * time.Millisecond)
	assert.Equal(t, reminderKey(4, at), reminderKey(4, local))
	assert.NotEqual(t, reminderKey(4, at), reminderKey(5, at))
}

func TestStartOfUTCDay(t *testing.T) {
	in := time.Date(2024, 3, 1, 1, 30, 0, 0, time.FixedZone("X", 3*3600))
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), startOfUTCDay(in))
}

func TestParamHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Params = gin.Params{{Key: "id", Value: "abc"}}
	_, ok := idParam(ctx, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	ctx, _ = gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/?limit=900&days=-3", nil)
	assert.Equal(t, 500, queryInt(ctx, "limit", 50, 500))
	assert.Equal(t, 30, queryInt(ctx, "days", 30, 0))

	_, ok = requireUser(ctx)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	ctx.Set(middleware.ContextUserIDKey, uint(9))
	uid, ok := getUserID(ctx)
	assert.True(t, ok)
	assert.Equal(t, uint(9), uid)
}
