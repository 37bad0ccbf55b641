package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/trafficguard/backend/models"
	"github.com/trafficguard/backend/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Dashboards and the public map are served from other origins
		return true
	},
}

// HandleWebSocket handles GET /ws - upgrades the connection and hands it to
// the hub. A bearer token (header or ?token=) attaches identity; anonymous
// connections are allowed and get the implicit everyone membership only.
func HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("⚠️ WebSocket upgrade failed: %v", err)
		return
	}

	var userID uint
	var role models.Role
	tokenString := bearerToken(c)
	if tokenString == "" {
		tokenString = c.Query("token")
	}
	if tokenString != "" {
		if claims, err := parseToken(tokenString); err == nil {
			userID = claims.UserID
			role = claims.Role
		}
	}

	client := services.NewClient(hub, conn, userID, role, c.Request.RemoteAddr)
	hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// GetHubStats handles GET /api/admin/hub/stats
func GetHubStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
		"hub":       hub.Stats(),
		"backplane": backplane.GetStats(),
	}})
}
