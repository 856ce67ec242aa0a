package handler

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// AnalysisQuota is a per-client token bucket counted in oracle calls. Every
// request costs one token and a batch pays one more per additional URL, so
// a batch cannot be used to get around the limit.
type AnalysisQuota struct {
	rps   rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	clients map[string]*quotaClient
}

type quotaClient struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// NewAnalysisQuota allows rps oracle calls per second per client IP with
// bursts of up to burst calls.
func NewAnalysisQuota(rps, burst int) *AnalysisQuota {
	if burst < 1 {
		burst = max(rps, 1)
	}
	return &AnalysisQuota{
		rps:     rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
		clients: make(map[string]*quotaClient),
	}
}

// StartSweeper forgets clients idle for longer than idle, checking every
// interval until ctx is cancelled.
func (q *AnalysisQuota) StartSweeper(ctx context.Context, interval, idle time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				q.sweep(idle)
			}
		}
	}()
}

func (q *AnalysisQuota) sweep(idle time.Duration) {
	cutoff := q.now().Add(-idle)
	q.mu.Lock()
	defer q.mu.Unlock()
	for key, cl := range q.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(q.clients, key)
		}
	}
}

// take spends n tokens for key. When they are not available nothing is
// spent and the wait until they would be is returned.
func (q *AnalysisQuota) take(key string, n int) (bool, time.Duration) {
	now := q.now()

	q.mu.Lock()
	cl, ok := q.clients[key]
	if !ok {
		cl = &quotaClient{bucket: rate.NewLimiter(q.rps, q.burst)}
		q.clients[key] = cl
	}
	cl.lastSeen = now
	q.mu.Unlock()

	r := cl.bucket.ReserveN(now, n)
	if !r.OK() {
		return false, time.Duration(float64(n) / float64(q.rps) * float64(time.Second))
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

// Middleware charges one token per request.
func (q *AnalysisQuota) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !q.Charge(c, 1) {
			return
		}
		c.Next()
	}
}

// Charge spends n tokens for the caller of c. On refusal it aborts c with
// 429 and reports false.
func (q *AnalysisQuota) Charge(c *gin.Context, n int) bool {
	if n <= 0 {
		return true
	}
	ok, wait := q.take(c.ClientIP(), n)
	if ok {
		return true
	}
	c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
	return false
}

// ChargeBatch charges for a batch of urls URLs whose request already paid
// for the first one. A batch larger than the burst drains the whole bucket
// instead of being refused.
func (q *AnalysisQuota) ChargeBatch(c *gin.Context, urls int) bool {
	return q.Charge(c, min(urls, q.burst)-1)
}
