package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubParser map[string]string

func (p stubParser) ParseToken(token string) (string, error) {
	if id, ok := p[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid token")
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c))
	})
	r.GET("/", handlers...)
	return r
}

func serve(r http.Handler, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := newEngine(JWTAuth(stubParser{"good": "user-1"}))

	tests := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"malformed", "Bearer", http.StatusBadRequest, ""},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, ""},
		{"invalid token", "Bearer bad", http.StatusUnauthorized, ""},
		{"valid token", "Bearer good", http.StatusOK, "user-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := map[string]string{}
			if tt.header != "" {
				header["Authorization"] = tt.header
			}
			w := serve(r, header)
			assert.Equal(t, tt.code, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestIPRateLimiter(t *testing.T) {
	rl := NewIPRateLimiter(0.001, 2, time.Minute)
	defer rl.StopCleanup()
	r := newEngine(rl.Middleware())

	ip := map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}
	assert.Equal(t, http.StatusOK, serve(r, ip).Code)
	assert.Equal(t, http.StatusOK, serve(r, ip).Code)
	w := serve(r, ip)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.EqualValues(t, 1, rl.Rejected())

	// 其他 IP 有独立的令牌桶
	assert.Equal(t, http.StatusOK, serve(r, map[string]string{"X-Real-IP": "10.0.0.9"}).Code)
	assert.Equal(t, 2, rl.Clients())

	// 超过 ttl 未访问的客户端被回收
	rl.evict(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 0, rl.Clients())

	// 重复停止不会 panic
	rl.StopCleanup()
}

func TestConcurrencyLimiter_FailFast(t *testing.T) {
	cl := NewConcurrencyLimiter(1)
	release := make(chan struct{})
	entered := make(chan struct{})

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", cl.Middleware(), func(c *gin.Context) {
		if c.Query("hold") == "1" {
			close(entered)
			<-release
		}
		c.Status(http.StatusOK)
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?hold=1", nil))
	}()
	<-entered
	assert.EqualValues(t, 1, cl.InFlight())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	close(release)
	wg.Wait()
	assert.EqualValues(t, 0, cl.InFlight())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestConcurrencyLimiter_BlockTimeout(t *testing.T) {
	cl := NewConcurrencyLimiter(1)
	require.True(t, cl.sem.TryAcquire(1))

	r := newEngine(cl.MiddlewareWithBlock(20 * time.Millisecond))
	assert.Equal(t, http.StatusServiceUnavailable, serve(r, nil).Code)

	cl.sem.Release(1)
	assert.Equal(t, http.StatusOK, serve(r, nil).Code)
}

func TestMetrics(t *testing.T) {
	ResetMetrics()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/ok", "/bad", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	m := GetMetrics()
	assert.EqualValues(t, 3, m["request_count"])
	assert.EqualValues(t, 1, m["client_errors"])
	assert.EqualValues(t, 1, m["server_errors"])
}
