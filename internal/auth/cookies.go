package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// DefaultSessionCookie is the cookie name used when configuration leaves it
// unset.
const DefaultSessionCookie = "tide_session"

// CookieConfig controls how session cookies are written.
type CookieConfig struct {
	Name   string
	Domain string
	Secure bool
}

// TokenFromRequest extracts the bearer token from the Authorization header,
// falling back to the session cookie. An empty string means no credential was
// presented.
func TokenFromRequest(c *gin.Context, cookieName string) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if cookieName == "" {
		cookieName = DefaultSessionCookie
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie
	}

	return ""
}

// SetSessionCookie writes the signed token as an HttpOnly session cookie.
func SetSessionCookie(c *gin.Context, cfg CookieConfig, token string, ttl time.Duration) {
	name := cfg.Name
	if name == "" {
		name = DefaultSessionCookie
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, token, int(ttl.Seconds()), "/", cfg.Domain, cfg.Secure, true)
}

// ClearSessionCookie expires the session cookie immediately.
func ClearSessionCookie(c *gin.Context, cfg CookieConfig) {
	name := cfg.Name
	if name == "" {
		name = DefaultSessionCookie
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", cfg.Domain, cfg.Secure, true)
}
