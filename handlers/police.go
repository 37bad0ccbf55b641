package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/trafficguard/backend/database"
	"github.com/trafficguard/backend/models"
	"github.com/trafficguard/backend/services"
	"gorm.io/gorm"
)

// GetPoliceIncidents handles GET /api/police/incidents - the active working
// set for the dashboard
func GetPoliceIncidents(c *gin.Context) {
	query := database.DB.Model(&models.Incident{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	} else {
		query = query.Where("status IN ?", []models.IncidentStatus{
			models.IncidentReported, models.IncidentVerified, models.IncidentInProgress,
		})
	}
	if severity := c.Query("severity"); severity != "" {
		query = query.Where("severity = ?", severity)
	}
	if assignee := c.Query("assigneeId"); assignee != "" {
		query = query.Where("assignee_id = ?", assignee)
	}

	limit := 100
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	var incidents []models.Incident
	if err := query.Preload("Assignee", func(db *gorm.DB) *gorm.DB {
		return db.Select("id, email, name")
	}).Order("severity DESC, created_at DESC").Limit(limit).Find(&incidents).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch incidents", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": incidents})
}

// AssignIncident handles PUT /api/police/incidents/:id/assign
func AssignIncident(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid incident ID"})
		return
	}

	var req struct {
		OfficerID uint `json:"officerId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "officerId is required"})
		return
	}

	var officer models.User
	if err := database.DB.First(&officer, req.OfficerID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Officer not found"})
		return
	}
	if officer.Role != models.RolePolice && officer.Role != models.RoleAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Assignee must be police or admin"})
		return
	}

	var incident models.Incident
	if err := database.DB.First(&incident, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Incident not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch incident", "error": err.Error()})
		return
	}

	if err := database.DB.Model(&incident).Update("assignee_id", req.OfficerID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to assign incident", "error": err.Error()})
		return
	}
	incident.AssigneeID = &req.OfficerID

	incidentID := incident.ID
	if _, err := notifier.CreateNotification(req.OfficerID, services.NotificationInput{
		Title:      "Incident assigned to you",
		Message:    "Incident #" + strconv.FormatInt(incident.ID, 10) + " (" + string(incident.Type) + ") needs attention",
		Type:       "assignment",
		IncidentID: &incidentID,
	}); err != nil {
		log.Printf("⚠️ [POLICE] Failed to notify officer %d: %v", req.OfficerID, err)
	}

	hub.EmitIncidentUpdate(&incident)

	entityID := strconv.FormatInt(incident.ID, 10)
	audit(currentUserID(c), "assign", "incident", &entityID, gin.H{"officerId": req.OfficerID})

	c.JSON(http.StatusOK, gin.H{"success": true, "data": incident})
}

// PoliceBroadcast handles POST /api/police/broadcast - push a notification
// to everyone, or to a single role when one is given
func PoliceBroadcast(c *gin.Context) {
	var req struct {
		Title   string       `json:"title" binding:"required"`
		Message string       `json:"message" binding:"required"`
		Role    *models.Role `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "title and message are required"})
		return
	}

	in := services.NotificationInput{Title: req.Title, Message: req.Message, Type: "broadcast"}

	if req.Role != nil {
		if !models.ValidRole(*req.Role) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid role"})
			return
		}
		created, err := notifier.CreateNotificationForRole(*req.Role, in)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Broadcast failed", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"notified": len(created)}})
		return
	}

	hub.EmitNotificationBroadcast(gin.H{
		"title":     req.Title,
		"message":   req.Message,
		"type":      "broadcast",
		"createdAt": time.Now(),
	})

	audit(currentUserID(c), "broadcast", "notification", nil, gin.H{"title": req.Title})

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"broadcast": true}})
}

// GetPoliceStats handles GET /api/police/stats
func GetPoliceStats(c *gin.Context) {
	var stats struct {
		OpenIncidents     int64 `json:"openIncidents"`
		InProgress        int64 `json:"inProgress"`
		ResolvedToday     int64 `json:"resolvedToday"`
		ActiveEmergencies int64 `json:"activeEmergencies"`
		ActiveDeployments int64 `json:"activeDeployments"`
	}

	startOfDay := time.Now().Truncate(24 * time.Hour)

	database.DB.Model(&models.Incident{}).
		Where("status IN ?", []models.IncidentStatus{models.IncidentReported, models.IncidentVerified}).
		Count(&stats.OpenIncidents)
	database.DB.Model(&models.Incident{}).
		Where("status = ?", models.IncidentInProgress).
		Count(&stats.InProgress)
	database.DB.Model(&models.Incident{}).
		Where("status = ? AND updated_at >= ?", models.IncidentResolved, startOfDay).
		Count(&stats.ResolvedToday)
	database.DB.Model(&models.Emergency{}).
		Where("status IN ?", []models.EmergencyStatus{models.EmergencyPending, models.EmergencyActive, models.EmergencyDispatched}).
		Count(&stats.ActiveEmergencies)
	database.DB.Model(&models.Deployment{}).
		Where("status IN ?", []models.DeploymentStatus{models.DeploymentEnRoute, models.DeploymentOnScene}).
		Count(&stats.ActiveDeployments)

	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}
