package handlers

import (
	"github.com/chachabrian/foodbridge-backend/internal/middleware"
	"github.com/chachabrian/foodbridge-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// WebSocketHandler handles WebSocket connections
func WebSocketHandler(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := middleware.Principal(c)
		hub.HandleWebSocket(c.Writer, c.Request, p.Role, p.Username)
	}
}
