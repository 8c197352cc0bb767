package middleware

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/anoixa/watchbox/api/common"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"
)

// ConcurrencyLimiter 限制同时处理的请求数
type ConcurrencyLimiter struct {
	sem      *semaphore.Weighted
	inFlight atomic.Int64
}

// NewConcurrencyLimiter 并发限制器
func NewConcurrencyLimiter(maxConcurrency int64) *ConcurrencyLimiter {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &ConcurrencyLimiter{
		sem: semaphore.NewWeighted(maxConcurrency),
	}
}

// InFlight 当前占用的槽位
func (cl *ConcurrencyLimiter) InFlight() int64 {
	return cl.inFlight.Load()
}

func (cl *ConcurrencyLimiter) run(c *gin.Context) {
	cl.inFlight.Add(1)
	defer func() {
		cl.inFlight.Add(-1)
		cl.sem.Release(1)
	}()
	c.Next()
}

// Middleware 满载时立即返回 503
func (cl *ConcurrencyLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cl.sem.TryAcquire(1) {
			common.RespondErrorAbort(c, http.StatusServiceUnavailable, "Server is busy, please try again later")
			return
		}
		cl.run(c)
	}
}

// MiddlewareWithBlock 排队等待槽位，超过 timeout 返回 503
// 用于图片解码转码这类占内存的请求
func (cl *ConcurrencyLimiter) MiddlewareWithBlock(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		err := cl.sem.Acquire(ctx, 1)
		cancel()
		if err != nil {
			common.RespondErrorAbort(c, http.StatusServiceUnavailable, "Request timed out waiting for server resources")
			return
		}
		cl.run(c)
	}
}
