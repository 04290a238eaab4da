package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/darshang-108/ai-learning-opponent/cache"
	"github.com/darshang-108/ai-learning-opponent/config"
)

const SessionIDKey = "session_id"

// Active-session presence set, mirrored by the session manager.
const activeSessionsKey = "sessions:active"

// SessionAuth validates the Bearer JWT and checks the session is still
// live in the presence set. A token for a finished or swept session is
// rejected even before its expiry.
func SessionAuth(sec config.SecurityConfig, c cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if c != nil {
			cacheCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
			live, err := c.SIsMember(cacheCtx, activeSessionsKey, claims.SessionID)
			cancel()
			if err != nil || !live {
				ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
				return
			}
		}

		ctx.Set(SessionIDKey, claims.SessionID)
		ctx.Next()
	}
}

// GetSessionID retrieves the authenticated session ID from the Gin context.
func GetSessionID(c *gin.Context) string {
	if v, exists := c.Get(SessionIDKey); exists {
		return v.(string)
	}
	return ""
}
