// File: internal/middleware/session.go
package middleware

import (
	"account_agent/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionSource reports who is signed in on this device.
type SessionSource interface {
	SignedInUID() (string, bool)
}

// RequireSession rejects requests while nobody is signed in and otherwise
// stores the signed-in UID under common.UserIDKey.
func RequireSession(sessions SessionSource, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := sessions.SignedInUID()
		if !ok {
			common.LoggerFromContext(c, logger).Debug("Request needs a session but nobody is signed in",
				zap.String("path", c.Request.URL.Path))
			common.RespondWithError(c, common.ErrUnauthorized)
			return
		}
		c.Set(common.UserIDKey, uid)
		c.Next()
	}
}
