package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"equipment-analytics-api/middleware"
	"equipment-analytics-api/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// AnalysisWebSocket streams the caller's analysis events. Browsers cannot set
// headers on the upgrade request, so the token travels as a query parameter.
func AnalysisWebSocket(cache *services.CacheService, authService *services.AuthService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := c.Query("token")
		if tokenStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token query parameter", "kind": "unauthorized"})
			return
		}

		claims, err := authService.ValidateToken(tokenStr)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token", "kind": "unauthorized"})
			return
		}
		middleware.SetOwnerID(c, claims.UserID)

		if !cache.Available() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live updates are not configured", "kind": "unavailable"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		// Read pump: detect client disconnect
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		pubsub := cache.Subscribe(ctx, services.OwnerChannel(claims.UserID))
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				// Payloads are already AnalysisEvent JSON.
				if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
					logger.Warn("websocket write failed", "owner_id", claims.UserID, "error", err)
					return
				}
			}
		}
	}
}
