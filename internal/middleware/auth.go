package middleware

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	iauth "github.com/tidecrm/tide/internal/auth"
	"github.com/tidecrm/tide/internal/models"
	"github.com/tidecrm/tide/pkg/errors"
	"github.com/tidecrm/tide/pkg/logger"
	"github.com/tidecrm/tide/pkg/metrics"
	"github.com/tidecrm/tide/pkg/response"
)

// Context keys set by Auth for downstream handlers.
const (
	CtxClaimsKey   = "authClaims"
	CtxUserIDKey   = "userID"
	CtxClientIDKey = "clientID"
)

// Auth enforces JWT authentication. The token comes from the Authorization
// header or the session cookie. Every failure mode answers with the same 401
// body; only logs tell an expired token apart from a malformed one.
func Auth(jwt *iauth.JWTService, db *gorm.DB, cookieName string) gin.HandlerFunc {
	log := logger.WithModule("auth")

	return func(c *gin.Context) {
		token := iauth.TokenFromRequest(c, cookieName)
		if token == "" {
			unauthenticated(c)
			return
		}

		claims, err := jwt.Verify(token)
		if err != nil {
			metrics.AuthAttempts.WithLabelValues("failure").Inc()
			log.Debug("token rejected",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			unauthenticated(c)
			return
		}

		var user models.User
		err = db.WithContext(c.Request.Context()).
			Where("client_id = ?", claims.ClientID).
			First(&user).Error
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				metrics.AuthAttempts.WithLabelValues("failure").Inc()
				unauthenticated(c)
				return
			}
			log.Error("user lookup failed", zap.Error(err))
			response.Error(c, errors.ErrInternalServer)
			c.Abort()
			return
		}

		// A valid token for a deactivated user is still unauthenticated,
		// not forbidden.
		if !user.IsActive {
			metrics.AuthAttempts.WithLabelValues("failure").Inc()
			unauthenticated(c)
			return
		}

		metrics.AuthAttempts.WithLabelValues("success").Inc()

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, user.ID)
		c.Set(CtxClientIDKey, user.ClientID)

		c.Next()
	}
}

func unauthenticated(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	response.Error(c, errors.ErrUnauthenticated)
	c.Abort()
}
