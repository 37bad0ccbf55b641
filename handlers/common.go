// Package handlers contains the HTTP handlers for the TrafficGuard API
package handlers

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/trafficguard/backend/database"
	"github.com/trafficguard/backend/models"
	"github.com/trafficguard/backend/natsserver"
	"github.com/trafficguard/backend/services"
)

var (
	hub        *services.Hub
	backplane  *natsserver.EmbeddedNATS
	notifier   *services.NotificationManager
	smsService *services.SMSService
	analyzer   *services.Analyzer
	pipeline   *services.AutoCapturePipeline
	uploadDir  string
)

// SetHub wires the realtime hub into the handlers
func SetHub(h *services.Hub) {
	hub = h
}

// SetBackplane wires the embedded NATS server into the stats handlers
func SetBackplane(b *natsserver.EmbeddedNATS) {
	backplane = b
}

// SetNotifier wires the notification manager into the handlers
func SetNotifier(n *services.NotificationManager) {
	notifier = n
}

// SetSMSService wires the SMS escalation service into the handlers
func SetSMSService(s *services.SMSService) {
	smsService = s
}

// SetAnalyzer wires the AI analysis client into the handlers
func SetAnalyzer(a *services.Analyzer) {
	analyzer = a
}

// SetPipeline wires the auto-capture pipeline into the handlers
func SetPipeline(p *services.AutoCapturePipeline) {
	pipeline = p
}

// InitUploadDir sets and creates the video upload directory
func InitUploadDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	uploadDir = dir
	return nil
}

// currentUserID returns the authenticated user id, zero when anonymous
func currentUserID(c *gin.Context) uint {
	if v, ok := c.Get("userID"); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// currentRole returns the authenticated role, empty when anonymous
func currentRole(c *gin.Context) models.Role {
	if v, ok := c.Get("userRole"); ok {
		if role, ok := v.(models.Role); ok {
			return role
		}
	}
	return ""
}

// audit appends an audit log row. Failures are logged, never surfaced.
func audit(actorID uint, action, entity string, entityID *string, detail interface{}) {
	entry := models.AuditLog{
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Detail:   models.NewJSONB(detail),
	}
	if actorID != 0 {
		entry.ActorID = &actorID
	}
	if err := database.DB.Create(&entry).Error; err != nil {
		log.Printf("⚠️ [AUDIT] Failed to record %s %s: %v", action, entity, err)
	}
}
