package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focuspocus/focuspocus/config"
	"github.com/focuspocus/focuspocus/utils"
)

func TestMain(m *testing.M) {
	config.Set(config.AppConfig{JWTSecret: "middleware-secret"})
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func authEngine() *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthRequired(), func(c *gin.Context) {
		utils.Success(c, gin.H{"userId": c.GetUint(ContextUserIDKey), "email": c.GetString(ContextEmailKey)})
	})
	return r
}

func TestAuthRequired(t *testing.T) {
	r := authEngine()
	valid, err := utils.GenerateToken(5, "s@example.com", time.Hour)
	require.NoError(t, err)
	expired, err := utils.GenerateToken(5, "s@example.com", -time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, `"code":40101`},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, `"code":40101`},
		{"garbage token", "Bearer nope", http.StatusUnauthorized, `"code":40105`},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized, `"code":40105`},
		{"valid token", "Bearer " + valid, http.StatusOK, `"userId":5`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.body)
		})
	}
}

func TestAuthRequiredRejectsRevokedToken(t *testing.T) {
	r := authEngine()
	token, err := utils.GenerateToken(6, "r@example.com", time.Hour)
	require.NoError(t, err)
	utils.BlacklistToken(token, time.Now().Add(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"code":40104`)
}

func TestRateLimitMiddleware(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "middleware-secret", RateLimitPerMinute: 2})
	t.Cleanup(func() { config.Set(config.AppConfig{JWTSecret: "middleware-secret"}) })

	r := gin.New()
	r.Use(RateLimitMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	hit := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusNoContent, hit("10.20.30.40:1000").Code)
	w := hit("10.20.30.40:1001")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"code":42901`)

	// other clients have their own bucket
	assert.Equal(t, http.StatusNoContent, hit("10.20.30.41:1000").Code)
}

func TestMetricsHandler(t *testing.T) {
	closed := gin.New()
	closed.GET("/metrics", MetricsHandler("", ""))
	w := httptest.NewRecorder()
	closed.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	r := gin.New()
	r.Use(Monitor())
	r.GET("/metrics", MetricsHandler("prom", "pass"))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("prom", "wrong")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("prom", "pass")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBucketStoreForgetsIdleClients(t *testing.T) {
	s := newBucketStore(2)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, s.allow("ip:a", start))
	assert.False(t, s.allow("ip:a", start))

	// the bucket refills at one token per 30s
	assert.True(t, s.allow("ip:a", start.Add(31*time.Second)))

	s.allow("ip:b", start.Add(10*time.Minute))
	_, kept := s.buckets["ip:a"]
	assert.False(t, kept)
	assert.Len(t, s.buckets, 1)
}
