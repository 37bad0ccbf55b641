package handlers

import (
	"context"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/trafficguard/backend/database"
	"github.com/trafficguard/backend/models"
	"github.com/trafficguard/backend/services"
	"gorm.io/gorm"
)

// haversineKm is the SQL distance expression used for radius filters and
// distance enrichment. Arguments: lat, lng, lat.
const haversineKm = "6371 * acos(least(1.0, cos(radians(?)) * cos(radians(lat)) * cos(radians(lng) - radians(?)) + sin(radians(?)) * sin(radians(lat))))"

type reportIncidentRequest struct {
	Type        models.IncidentType `json:"type" form:"type" binding:"required"`
	Severity    models.Severity     `json:"severity" form:"severity" binding:"required"`
	Lat         *float64            `json:"lat" form:"lat" binding:"required"`
	Lng         *float64            `json:"lng" form:"lng" binding:"required"`
	Address     *string             `json:"address" form:"address"`
	Description *string             `json:"description" form:"description"`
}

// ReportIncident handles POST /api/incidents/report
// Optional auth; multipart with an optional video, or plain JSON.
func ReportIncident(c *gin.Context) {
	var req reportIncidentRequest
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing required fields", "error": err.Error()})
			return
		}
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing required fields", "error": err.Error()})
			return
		}
	}

	if !models.ValidIncidentType(req.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid incident type"})
		return
	}
	if !models.ValidSeverity(req.Severity) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid severity"})
		return
	}

	incident := models.Incident{
		Type:        req.Type,
		Severity:    req.Severity,
		Status:      models.IncidentReported,
		Lat:         *req.Lat,
		Lng:         *req.Lng,
		Address:     req.Address,
		Description: req.Description,
	}
	if userID := currentUserID(c); userID != 0 {
		incident.ReporterID = &userID
	}

	// Optional video attachment
	if file, err := c.FormFile("video"); err == nil && file != nil {
		filename := uuid.NewString() + filepath.Ext(file.Filename)
		dst := filepath.Join(uploadDir, filename)
		if err := c.SaveUploadedFile(file, dst); err != nil {
			log.Printf("⚠️ [INCIDENT] Failed to save video: %v", err)
		} else {
			incident.VideoPath = &dst
		}
	}

	if err := database.DB.Create(&incident).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create incident", "error": err.Error()})
		return
	}

	// Timeout-bounded synchronous analysis of the attached video. A failure
	// here never fails the report.
	if incident.VideoPath != nil && analyzer.Enabled() {
		if result, err := analyzer.FullAnalyze(context.Background(), *incident.VideoPath, incident.Lat, incident.Lng); err != nil {
			log.Printf("⚠️ [INCIDENT] Video analysis failed for incident %d: %v", incident.ID, err)
		} else if result.IncidentDetected {
			analytics := models.IncidentAnalytics{
				IncidentID:   incident.ID,
				Confidence:   result.Confidence,
				VehicleCount: result.VehicleCount,
				DetectedType: models.IncidentType(result.IncidentType),
			}
			if result.ModelVersion != "" {
				analytics.ModelVersion = &result.ModelVersion
			}
			if err := database.DB.Create(&analytics).Error; err != nil {
				log.Printf("⚠️ [INCIDENT] Failed to write analytics for incident %d: %v", incident.ID, err)
			}
		}
	}

	hub.EmitIncidentNew(&incident)

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": incident})
}

// GetIncidents handles GET /api/incidents - filtered listing with optional
// radius-bounded proximity predicate
func GetIncidents(c *gin.Context) {
	query := database.DB.Model(&models.Incident{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if incidentType := c.Query("type"); incidentType != "" {
		query = query.Where("type = ?", incidentType)
	}
	if severity := c.Query("severity"); severity != "" {
		query = query.Where("severity = ?", severity)
	}

	// Proximity filter: lat + lng + radius (km)
	latStr, lngStr := c.Query("lat"), c.Query("lng")
	if latStr != "" && lngStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lng, lngErr := strconv.ParseFloat(lngStr, 64)
		if latErr != nil || lngErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid coordinates"})
			return
		}
		radius := 10.0
		if radiusStr := c.Query("radius"); radiusStr != "" {
			if parsed, err := strconv.ParseFloat(radiusStr, 64); err == nil && parsed > 0 {
				radius = parsed
			}
		}
		query = query.Where(haversineKm+" <= ?", lat, lng, lat, radius)
	}

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}
	offset := 0
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	var total int64
	query.Count(&total)

	var incidents []models.Incident
	if err := query.Preload("Analytics").
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&incidents).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch incidents", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"incidents": incidents, "total": total, "limit": limit, "offset": offset},
	})
}

// GetIncident handles GET /api/incidents/:id
func GetIncident(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid incident ID"})
		return
	}

	var incident models.Incident
	if err := database.DB.
		Preload("Updates", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Analytics").
		Preload("Reporter", func(db *gorm.DB) *gorm.DB {
			return db.Select("id, email, name, role")
		}).
		Preload("Assignee", func(db *gorm.DB) *gorm.DB {
			return db.Select("id, email, name, role")
		}).
		First(&incident, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Incident not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch incident", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": incident})
}

// GetMyIncidents handles GET /api/incidents/my-reports
func GetMyIncidents(c *gin.Context) {
	userID := currentUserID(c)

	var incidents []models.Incident
	if err := database.DB.Where("reporter_id = ?", userID).
		Order("created_at DESC").Limit(100).Find(&incidents).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch incidents", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": incidents})
}

// UpdateIncidentStatus handles PATCH /api/incidents/:id/status (police/admin).
// Legality is checked only against the status enum; the lifecycle ordering is
// deliberately not enforced server-side.
func UpdateIncidentStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid incident ID"})
		return
	}

	var req struct {
		Status  models.IncidentStatus `json:"status" binding:"required"`
		Comment *string               `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "status is required"})
		return
	}
	if !models.ValidIncidentStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid status"})
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

	if err := database.DB.Model(&incident).Update("status", req.Status).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update status", "error": err.Error()})
		return
	}
	incident.Status = req.Status

	// History append is not in the same transaction as the update; the
	// inconsistency window on crash is accepted.
	actorID := currentUserID(c)
	update := models.IncidentUpdate{
		IncidentID: incident.ID,
		Status:     req.Status,
		Comment:    req.Comment,
	}
	if actorID != 0 {
		update.ActorID = &actorID
	}
	if err := database.DB.Create(&update).Error; err != nil {
		log.Printf("⚠️ [INCIDENT] Failed to append history for incident %d: %v", incident.ID, err)
	}

	hub.EmitIncidentUpdate(&incident)

	if incident.ReporterID != nil {
		incidentID := incident.ID
		if _, err := notifier.CreateNotification(*incident.ReporterID, services.NotificationInput{
			Title:      "Incident status updated",
			Message:    "Your report is now " + string(req.Status),
			Type:       "incident_update",
			IncidentID: &incidentID,
		}); err != nil {
			log.Printf("⚠️ [INCIDENT] Failed to notify reporter of incident %d: %v", incident.ID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": incident})
}
