package middleware

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/tidecrm/tide/internal/auth"
	"github.com/tidecrm/tide/internal/cache"
	"github.com/tidecrm/tide/pkg/errors"
	"github.com/tidecrm/tide/pkg/logger"
	"github.com/tidecrm/tide/pkg/metrics"
	"github.com/tidecrm/tide/pkg/response"
)

// RateLimitConfig describes one limiter group: at most Requests admissions
// per fixed Window.
type RateLimitConfig struct {
	Name     string        `mapstructure:"name"`
	Requests int64         `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// Limiter admits requests against fixed time windows counted in the cache
// store. When the store is unavailable the limiter admits everything rather
// than turning a cache outage into an API outage.
type Limiter struct {
	store      cache.Store
	jwt        *iauth.JWTService
	cookieName string
	now        func() time.Time
	log        *zap.Logger
}

// LimiterOption customises a Limiter.
type LimiterOption func(*Limiter)

// WithLimiterClock overrides the limiter's time source.
func WithLimiterClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) {
		l.now = now
	}
}

// NewLimiter builds a Limiter. The JWT service is used only to derive a
// stable per-user identity before authentication has run; a nil store
// disables limiting entirely.
func NewLimiter(store cache.Store, jwt *iauth.JWTService, cookieName string, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		store:      store,
		jwt:        jwt,
		cookieName: cookieName,
		now:        time.Now,
		log:        logger.WithModule("ratelimit"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Middleware returns a gin handler enforcing the given group configuration.
func (l *Limiter) Middleware(cfg RateLimitConfig) gin.HandlerFunc {
	windowSeconds := int64(cfg.Window / time.Second)
	if windowSeconds < 1 {
		windowSeconds = 1
	}

	return func(c *gin.Context) {
		if l.store == nil || cfg.Requests <= 0 {
			c.Next()
			return
		}

		now := l.now()
		windowStart := now.Unix() / windowSeconds * windowSeconds
		identity := l.identify(c)
		key := fmt.Sprintf("ratelimit:%s:%s:%d", cfg.Name, identity, windowStart)

		count, ttl, err := l.store.IncrementWithTTL(c.Request.Context(), key, cfg.Window)
		if err != nil {
			// Fail open. A cache outage must not take the API down.
			metrics.RateLimitDecisions.WithLabelValues(cfg.Name, "failopen").Inc()
			l.log.Warn("store unavailable, admitting request",
				zap.String("group", cfg.Name),
				zap.Error(err),
			)
			c.Next()
			return
		}

		remaining := cfg.Requests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.FormatInt(cfg.Requests, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(windowStart+windowSeconds, 10))

		if count > cfg.Requests {
			metrics.RateLimitDecisions.WithLabelValues(cfg.Name, "reject").Inc()
			retryAfter := int64(math.Ceil(ttl.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, errors.ErrRateLimited)
			c.Abort()
			return
		}

		metrics.RateLimitDecisions.WithLabelValues(cfg.Name, "allow").Inc()
		c.Next()
	}
}

// identify derives the counting key subject. A verifiable token keys the
// counter to the principal so one user cannot consume another's budget;
// everything else falls back to the client address.
func (l *Limiter) identify(c *gin.Context) string {
	if l.jwt != nil {
		if token := iauth.TokenFromRequest(c, l.cookieName); token != "" {
			if claims, err := l.jwt.Verify(token); err == nil {
				return "user:" + claims.ClientID
			}
		}
	}
	return "ip:" + ClientIP(c)
}
