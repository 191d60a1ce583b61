package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newLimiter(t *testing.T, limit int) (*RateLimiter, *time.Time) {
	t.Helper()
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(limit, time.Minute)
	rl.mu.Lock()
	rl.now = func() time.Time { return clock }
	rl.mu.Unlock()
	t.Cleanup(rl.Stop)
	return rl, &clock
}

func TestRateLimiter(t *testing.T) {
	t.Run("window exhausts then resets", func(t *testing.T) {
		rl, clock := newLimiter(t, 2)

		ok, left := rl.Allow("user:42")
		assert.True(t, ok)
		assert.Equal(t, 1, left)
		ok, left = rl.Allow("user:42")
		assert.True(t, ok)
		assert.Equal(t, 0, left)
		ok, _ = rl.Allow("user:42")
		assert.False(t, ok)

		*clock = clock.Add(time.Minute)
		ok, left = rl.Allow("user:42")
		assert.True(t, ok)
		assert.Equal(t, 1, left)
	})

	t.Run("keys are independent", func(t *testing.T) {
		rl, _ := newLimiter(t, 1)

		ok, _ := rl.Allow("user:1")
		assert.True(t, ok)
		ok, _ = rl.Allow("user:2")
		assert.True(t, ok)
		ok, _ = rl.Allow("user:1")
		assert.False(t, ok)
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		rl, _ := newLimiter(t, 1)
		rl.Stop()
		rl.Stop()
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	rl, _ := newLimiter(t, 1)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			c.Set(JWTUserIDKey, id)
		}
		c.Next()
	}, RateLimit(rl))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	request := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		if user != "" {
			req.Header.Set("X-Test-User", user)
		}
		return serve(r, req)
	}

	w := request("42")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = request("42")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "ERR_RATE_LIMITED")

	assert.Equal(t, http.StatusOK, request("7").Code, "another user has its own window")
	assert.Equal(t, http.StatusOK, request("").Code, "anonymous callers are keyed by IP")
}
