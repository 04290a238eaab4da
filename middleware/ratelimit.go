package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterPruneEvery = 5 * time.Minute
	limiterIdleCutoff = 10 * time.Minute
)

// visitorTable tracks one token bucket per client IP and prunes
// buckets that have gone quiet.
type visitorTable struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
}

type visitor struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

func (t *visitorTable) allow(ip string) bool {
	now := time.Now()
	t.mu.Lock()
	v, ok := t.visitors[ip]
	if !ok {
		v = &visitor{bucket: rate.NewLimiter(t.limit, t.burst)}
		t.visitors[ip] = v
	}
	v.lastSeen = now
	t.mu.Unlock()
	return v.bucket.Allow()
}

func (t *visitorTable) prune() {
	ticker := time.NewTicker(limiterPruneEvery)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-limiterIdleCutoff)
		t.mu.Lock()
		for ip, v := range t.visitors {
			if v.lastSeen.Before(cutoff) {
				delete(t.visitors, ip)
			}
		}
		t.mu.Unlock()
	}
}

// RateLimit applies a per-IP token bucket: r requests per second with
// bursts up to b. Tick traffic runs at the game's frame rate, so both
// values come from config rather than being hard-coded here.
func RateLimit(r rate.Limit, b int) gin.HandlerFunc {
	table := &visitorTable{
		visitors: make(map[string]*visitor),
		limit:    r,
		burst:    b,
	}
	go table.prune()

	return func(c *gin.Context) {
		if !table.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
