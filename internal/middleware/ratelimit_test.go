package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestSlidingWindowAllowsWithinBudget(t *testing.T) {
	l := NewSlidingWindow(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("a"), "request %d", i)
	}
	assert.False(t, l.Allow("a"))
}

func TestSlidingWindowKeysAreIndependent(t *testing.T) {
	l := NewSlidingWindow(1, time.Minute)

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
}

func TestSlidingWindowRecovers(t *testing.T) {
	l := NewSlidingWindow(2, 20*time.Millisecond)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	time.Sleep(30 * time.Millisecond)
	assert.True(t, l.Allow("a"))
}

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

type allowAll struct{}

func (allowAll) Allow(string) bool { return true }

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RateLimit(allowAll{}))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	blocked := gin.New()
	blocked.Use(RateLimit(denyAll{}))
	blocked.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	w = httptest.NewRecorder()
	blocked.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
}
