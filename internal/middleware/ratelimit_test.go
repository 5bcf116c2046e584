package middleware

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidecrm/tide/internal/cache"
)

func newLimitedRouter(limiter *Limiter, cfg RateLimitConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", limiter.Middleware(cfg), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func doPing(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "198.51.100.1:4242"
	r.ServeHTTP(w, req)
	return w
}

func TestLimiterAdmitsUpToLimitThenRejects(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	store := cache.NewMemoryStore(cache.WithClock(func() time.Time { return now }))
	limiter := NewLimiter(store, nil, "", WithLimiterClock(func() time.Time { return now }))
	r := newLimitedRouter(limiter, RateLimitConfig{Name: "api", Requests: 3, Window: time.Minute})

	for i := 0; i < 3; i++ {
		w := doPing(r)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	w := doPing(r)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
}

func TestLimiterResetsAtWindowBoundary(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 30, 0, time.UTC)
	clock := func() time.Time { return now }
	store := cache.NewMemoryStore(cache.WithClock(clock))
	limiter := NewLimiter(store, nil, "", WithLimiterClock(clock))
	r := newLimitedRouter(limiter, RateLimitConfig{Name: "api", Requests: 1, Window: time.Minute})

	require.Equal(t, http.StatusOK, doPing(r).Code)
	require.Equal(t, http.StatusTooManyRequests, doPing(r).Code)

	// Crossing into the next fixed window grants a fresh budget.
	now = time.Date(2026, time.March, 1, 12, 1, 0, 0, time.UTC)
	assert.Equal(t, http.StatusOK, doPing(r).Code)
}

func TestLimiterFailsOpenOnStoreErrors(t *testing.T) {
	limiter := NewLimiter(erroringStore{}, nil, "")
	r := newLimitedRouter(limiter, RateLimitConfig{Name: "api", Requests: 1, Window: time.Minute})

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doPing(r).Code)
	}
}

func TestLimiterDisabledWithoutStore(t *testing.T) {
	limiter := NewLimiter(nil, nil, "")
	r := newLimitedRouter(limiter, RateLimitConfig{Name: "api", Requests: 1, Window: time.Minute})

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doPing(r).Code)
	}
}

func TestLimiterConcurrentRequestsNeverOverAdmit(t *testing.T) {
	store := cache.NewMemoryStore()
	limiter := NewLimiter(store, nil, "")
	r := newLimitedRouter(limiter, RateLimitConfig{Name: "api", Requests: 10, Window: time.Minute})

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if doPing(r).Code == http.StatusOK {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 10, admitted.Load())
}

type erroringStore struct{}

func (erroringStore) IncrementWithTTL(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, stderrors.New("connection refused")
}

func (erroringStore) Set(context.Context, string, []byte, time.Duration) error {
	return stderrors.New("connection refused")
}

func (erroringStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, stderrors.New("connection refused")
}

func (erroringStore) Delete(context.Context, ...string) error {
	return stderrors.New("connection refused")
}
