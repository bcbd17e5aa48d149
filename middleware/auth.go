package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"equipment-analytics-api/services"
)

const (
	ownerIDKey  = "owner_id"
	usernameKey = "username"
)

// RequireAuth validates the bearer token and stores the caller's identity on
// the context. Authentication is the only thing checked here; ownership of a
// dataset is enforced by the history store.
func RequireAuth(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token", "kind": "unauthorized"})
			return
		}

		claims, err := authService.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token", "kind": "unauthorized"})
			return
		}

		c.Set(ownerIDKey, claims.UserID)
		c.Set(usernameKey, claims.Username)
		c.Next()
	}
}

// OwnerID returns the authenticated user id set by RequireAuth.
func OwnerID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ownerIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// SetOwnerID records the caller for handlers that authenticate outside
// RequireAuth, such as the websocket upgrade, so the access log carries it.
func SetOwnerID(c *gin.Context, id uint) {
	c.Set(ownerIDKey, id)
}
