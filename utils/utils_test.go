package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focuspocus/focuspocus/config"
)

func TestMain(m *testing.M) {
	// no Redis: every store uses its in-process fallback
	config.Set(config.AppConfig{JWTSecret: "test-secret"})
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateToken(12, "a@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(12), claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestJWTRejectsExpiredAndForeignTokens(t *testing.T) {
	expired, err := GenerateToken(1, "x@example.com", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 1})
	signed, err := foreign.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = ParseToken(signed)
	assert.Error(t, err)

	_, err = ParseToken("not-a-jwt")
	assert.Error(t, err)
}

func TestStateStoreIsSingleUse(t *testing.T) {
	SaveState("state-a", 7, time.Minute)

	uid, ok := ConsumeState("state-a")
	assert.True(t, ok)
	assert.Equal(t, uint(7), uid)

	_, ok = ConsumeState("state-a")
	assert.False(t, ok)

	_, ok = ConsumeState("never-issued")
	assert.False(t, ok)
}

func TestStateStoreExpires(t *testing.T) {
	SaveState("state-b", 3, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_, ok := ConsumeState("state-b")
	assert.False(t, ok)
}

func TestTokenBlacklist(t *testing.T) {
	assert.False(t, IsTokenBlacklisted("tok-1"))

	BlacklistToken("tok-1", time.Now().Add(time.Hour))
	assert.True(t, IsTokenBlacklisted("tok-1"))

	// already expired tokens are not worth storing
	BlacklistToken("tok-2", time.Now().Add(-time.Second))
	assert.False(t, IsTokenBlacklisted("tok-2"))
}

func TestCacheWithoutRedisIsNoop(t *testing.T) {
	CacheSetJSON("cache:test", map[string]int{"a": 1}, 0)
	var out map[string]int
	assert.False(t, CacheGetJSON("cache:test", &out))
	assert.NotPanics(t, func() { InvalidateByPrefix("cache:") })
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("", "correct horse"))
}

func TestSanitize(t *testing.T) {
	out := Sanitize(`<p>Hi <b>there</b></p><script>alert(1)</script><a href="javascript:x()">x</a>`)
	assert.Contains(t, out, "<b>there</b>")
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "javascript:")

	assert.Equal(t, "Title", SanitizeText("<em>Title</em>"))
}

func TestResponseEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	Error(ctx, http.StatusBadRequest, 40001, "bad")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 40001, body.Code)
	assert.Equal(t, "bad", body.Message)
	assert.Nil(t, body.Data)

	w = httptest.NewRecorder()
	ctx, _ = gin.CreateTestContext(w)
	Created(ctx, gin.H{"id": 1})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `"code":0`))
}

func TestRecoveryWithZap(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryWithZap(Logger, false))
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"code":50000`)
}

func TestNewRollingFileLogger(t *testing.T) {
	path := t.TempDir() + "/gin.log"
	logger, err := NewRollingFileLogger(path, "info", 1, 1, 1, false)
	require.NoError(t, err)

	r := gin.New()
	r.Use(Ginzap(logger, time.RFC3339, true))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.NoError(t, logger.Sync())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"path":"/ok"`)
	assert.Contains(t, string(b), `"status":204`)
}
