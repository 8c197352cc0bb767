package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anoixa/watchbox/api/common"
	"github.com/anoixa/watchbox/utils"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// cleanupInterval 过期客户端的扫描周期
const cleanupInterval = time.Minute

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// IPRateLimiter 按客户端 IP 分桶的令牌桶限流
type IPRateLimiter struct {
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	buckets sync.Map // ip -> *clientBucket

	rejected atomic.Int64
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewIPRateLimiter rps 为每秒补充的令牌数，burst 为桶容量，ttl 后未访问的客户端被回收
func NewIPRateLimiter(rps float64, burst int, ttl time.Duration) *IPRateLimiter {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if burst <= 0 {
		burst = 1
	}
	rl := &IPRateLimiter{
		limit:  rate.Limit(rps),
		burst:  burst,
		ttl:    ttl,
		stopCh: make(chan struct{}),
	}
	utils.SafeGo("RateLimiter", &rl.wg, rl.evictLoop)
	return rl
}

// Middleware 超限时返回 429 并附带 Retry-After
func (rl *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(clientIP(c), time.Now()) {
			rl.rejected.Add(1)
			c.Header("Retry-After", rl.retryAfter())
			common.RespondErrorAbort(c, http.StatusTooManyRequests, "Too many requests")
			return
		}
		c.Next()
	}
}

func (rl *IPRateLimiter) allow(ip string, now time.Time) bool {
	val, ok := rl.buckets.Load(ip)
	if !ok {
		val, _ = rl.buckets.LoadOrStore(ip, &clientBucket{limiter: rate.NewLimiter(rl.limit, rl.burst)})
	}
	bucket := val.(*clientBucket)
	bucket.lastSeen.Store(now.UnixNano())
	return bucket.limiter.AllowN(now, 1)
}

// retryAfter 补满一个令牌需要的秒数，至少 1
func (rl *IPRateLimiter) retryAfter() string {
	if rl.limit <= 0 || rl.limit == rate.Inf {
		return "1"
	}
	secs := int(math.Ceil(1 / float64(rl.limit)))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// Clients 当前跟踪的客户端数
func (rl *IPRateLimiter) Clients() int {
	n := 0
	rl.buckets.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Rejected 累计被拒绝的请求数
func (rl *IPRateLimiter) Rejected() int64 {
	return rl.rejected.Load()
}

// StopCleanup 可重复调用
func (rl *IPRateLimiter) StopCleanup() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
	rl.wg.Wait()
}

func (rl *IPRateLimiter) evictLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			rl.evict(now)
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *IPRateLimiter) evict(now time.Time) {
	cutoff := now.Add(-rl.ttl).UnixNano()
	rl.buckets.Range(func(key, value any) bool {
		if value.(*clientBucket).lastSeen.Load() < cutoff {
			rl.buckets.Delete(key)
		}
		return true
	})
}

// clientIP 优先取代理头中的第一个地址
func clientIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(c.GetHeader("X-Real-IP")); ip != "" {
		return ip
	}
	return c.ClientIP()
}
