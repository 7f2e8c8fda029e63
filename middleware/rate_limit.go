package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/focuspocus/focuspocus/config"
	"github.com/focuspocus/focuspocus/utils"
)

const limiterIdle = 5 * time.Minute

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// bucketStore keeps one token bucket per client key and forgets idle clients.
type bucketStore struct {
	mu      sync.Mutex
	buckets map[string]*clientBucket
	limit   rate.Limit
	burst   int
	sweptAt time.Time
}

func newBucketStore(perMinute int) *bucketStore {
	perMinute = max(perMinute, 1)
	return &bucketStore{
		buckets: map[string]*clientBucket{},
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   max(perMinute/2, 1),
	}
}

func (s *bucketStore) allow(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.sweptAt) > limiterIdle {
		for k, b := range s.buckets {
			if now.Sub(b.lastSeen) > limiterIdle {
				delete(s.buckets, k)
			}
		}
		s.sweptAt = now
	}

	b, ok := s.buckets[key]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// clientKey keys by user on routes behind AuthRequired. The /api/auth group
// runs before any user is known, so register and login are keyed by IP.
func clientKey(ctx *gin.Context) string {
	if uid, ok := ctx.Get(ContextUserIDKey); ok {
		return fmt.Sprintf("user:%v", uid)
	}
	return "ip:" + ctx.ClientIP()
}

// RateLimitMiddleware applies a per-client token bucket sized from RateLimitPerMinute.
// Each call builds an independent store.
func RateLimitMiddleware() gin.HandlerFunc {
	store := newBucketStore(config.Get().RateLimitPerMinute)
	return func(ctx *gin.Context) {
		if !store.allow(clientKey(ctx), time.Now()) {
			ctx.Header("Retry-After", "60")
			utils.Error(ctx, http.StatusTooManyRequests, 42901, "too many requests, please try again later")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
