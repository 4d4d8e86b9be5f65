package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SessionKey is the gin context key holding the authenticated session ID.
const SessionKey = "session_id"

// Middleware returns a gin handler that requires a valid Bearer access
// token for a live session. On success the session ID lands in the
// context and last-activity is bumped.
func Middleware(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			unauthorized(c, "Authorization header missing")
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			unauthorized(c, "Authorization header must be a Bearer token")
			return
		}

		sessionID, err := m.VerifyAccess(token)
		if err != nil {
			unauthorized(c, "Invalid or expired token")
			return
		}
		if _, err := m.ActiveSession(sessionID); err != nil {
			unauthorized(c, "Invalid or inactive session")
			return
		}
		m.TouchActivity(sessionID)

		c.Set(SessionKey, sessionID)
		c.Next()
	}
}

// SessionID returns the authenticated session ID from the context.
func SessionID(c *gin.Context) string {
	return c.GetString(SessionKey)
}

func unauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"code": http.StatusUnauthorized, "message": message},
	})
}
