package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meme-service/internal/presence"
)

// PresenceMiddleware refreshes the caller's online marker on every
// authenticated request. Best-effort: a redis failure is logged and the
// request proceeds.
func PresenceMiddleware(tracker *presence.Tracker, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetString(UserIDKey); userID != "" {
			if err := tracker.Touch(c.Request.Context(), userID); err != nil {
				log.Debug("presence touch failed", zap.String("user_id", userID), zap.Error(err))
			}
		}
		c.Next()
	}
}
