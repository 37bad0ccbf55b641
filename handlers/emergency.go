package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/trafficguard/backend/database"
	"github.com/trafficguard/backend/models"
	"github.com/trafficguard/backend/services"
	"gorm.io/gorm"
)

type reportEmergencyRequest struct {
	Type             string          `json:"type" binding:"required"`
	Severity         models.Severity `json:"severity" binding:"required"`
	LocationName     string          `json:"locationName" binding:"required"`
	Lat              *float64        `json:"lat" binding:"required"`
	Lng              *float64        `json:"lng" binding:"required"`
	Description      *string         `json:"description"`
	Casualties       int             `json:"casualties"`
	VehiclesInvolved int             `json:"vehiclesInvolved"`
	ServicesNeeded   models.JSONB    `json:"servicesNeeded"`
	ContactName      *string         `json:"contactName"`
	ContactPhone     *string         `json:"contactPhone"`
}

// ReportEmergency handles POST /api/emergency (optional auth)
func ReportEmergency(c *gin.Context) {
	var req reportEmergencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing required fields", "error": err.Error()})
		return
	}
	if !models.ValidSeverity(req.Severity) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid severity"})
		return
	}

	emergency := models.Emergency{
		Type:             req.Type,
		Severity:         req.Severity,
		Status:           models.EmergencyPending,
		LocationName:     req.LocationName,
		Lat:              *req.Lat,
		Lng:              *req.Lng,
		Description:      req.Description,
		Casualties:       req.Casualties,
		VehiclesInvolved: req.VehiclesInvolved,
		ServicesNeeded:   req.ServicesNeeded,
		ContactName:      req.ContactName,
		ContactPhone:     req.ContactPhone,
	}
	if userID := currentUserID(c); userID != 0 {
		emergency.ReporterID = &userID
	}

	if err := database.DB.Create(&emergency).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create emergency", "error": err.Error()})
		return
	}

	history := models.EmergencyStatusHistory{
		EmergencyID: emergency.ID,
		ActorID:     emergency.ReporterID,
		Status:      models.EmergencyPending,
	}
	if err := database.DB.Create(&history).Error; err != nil {
		log.Printf("⚠️ [EMERGENCY] Failed to append history for emergency %d: %v", emergency.ID, err)
	}

	// Mandatory creation-time fan-out to every police/admin target
	if _, err := notifier.NotifyPoliceAndAdmin(services.NotificationInput{
		Title:   "New emergency reported",
		Message: req.Type + " at " + req.LocationName + " (" + string(req.Severity) + ")",
		Type:    "emergency_new",
	}); err != nil {
		log.Printf("⚠️ [EMERGENCY] Notification fan-out failed for emergency %d: %v", emergency.ID, err)
	}

	// Severity-gated SMS escalation; the result is logged, not acted on
	if services.ShouldEscalate(emergency.Severity) && smsService.Enabled() {
		smsService.DispatchEmergency(&emergency)
	}

	hub.EmitEmergencyNew(&emergency)

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": emergency})
}

// callerCoords parses the caller's lat/lng query params
func callerCoords(c *gin.Context) (lat, lng float64, ok bool) {
	latStr, lngStr := c.Query("lat"), c.Query("lng")
	if latStr == "" || lngStr == "" {
		return 0, 0, false
	}
	lat, latErr := strconv.ParseFloat(latStr, 64)
	lng, lngErr := strconv.ParseFloat(lngStr, 64)
	if latErr != nil || lngErr != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

// emergencyFilters applies the status/severity/type predicates plus the
// caller-relative radius bound. The pagination total is counted off this
// query, so every predicate must be in place before the distance Select.
func emergencyFilters(c *gin.Context, query *gorm.DB) *gorm.DB {
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if severity := c.Query("severity"); severity != "" {
		query = query.Where("severity = ?", severity)
	}
	if emergencyType := c.Query("type"); emergencyType != "" {
		query = query.Where("type = ?", emergencyType)
	}
	if lat, lng, ok := callerCoords(c); ok {
		if radiusStr := c.Query("radius"); radiusStr != "" {
			if radius, err := strconv.ParseFloat(radiusStr, 64); err == nil && radius > 0 {
				query = query.Where(haversineKm+" <= ?", lat, lng, lat, radius)
			}
		}
	}
	return query
}

// withEmergencyDistance adds caller-relative distance enrichment when lat/lng
// query params are present
func withEmergencyDistance(c *gin.Context, query *gorm.DB) *gorm.DB {
	lat, lng, ok := callerCoords(c)
	if !ok {
		return query
	}
	return query.Select("*, "+haversineKm+" AS distance_km", lat, lng, lat)
}

// GetEmergencies handles GET /api/emergency
func GetEmergencies(c *gin.Context) {
	query := emergencyFilters(c, database.DB.Model(&models.Emergency{}))

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

	var emergencies []models.Emergency
	if err := withEmergencyDistance(c, query).
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&emergencies).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch emergencies", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"emergencies": emergencies, "total": total, "limit": limit, "offset": offset},
	})
}

// GetEmergency handles GET /api/emergency/:id
func GetEmergency(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid emergency ID"})
		return
	}

	query := withEmergencyDistance(c, database.DB.Model(&models.Emergency{}))

	var emergency models.Emergency
	if err := query.Preload("History", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).First(&emergency, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Emergency not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch emergency", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": emergency})
}

// GetMyEmergencies handles GET /api/emergency/my-emergencies
func GetMyEmergencies(c *gin.Context) {
	userID := currentUserID(c)

	var emergencies []models.Emergency
	if err := database.DB.Where("reporter_id = ?", userID).
		Order("created_at DESC").Limit(100).Find(&emergencies).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch emergencies", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": emergencies})
}

// smsStatuses are the transitions that re-trigger escalation
var smsStatuses = map[models.EmergencyStatus]bool{
	models.EmergencyActive:     true,
	models.EmergencyDispatched: true,
	models.EmergencyResolved:   true,
}

// UpdateEmergencyStatus handles PUT /api/emergency/:id/status (police/admin)
func UpdateEmergencyStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid emergency ID"})
		return
	}

	var req struct {
		Status  models.EmergencyStatus `json:"status" binding:"required"`
		Comment *string                `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "status is required"})
		return
	}
	if !models.ValidEmergencyStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid status"})
		return
	}

	var emergency models.Emergency
	if err := database.DB.First(&emergency, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Emergency not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch emergency", "error": err.Error()})
		return
	}

	actorID := currentUserID(c)
	updates := map[string]interface{}{"status": req.Status}
	if emergency.AssigneeID == nil && actorID != 0 {
		updates["assignee_id"] = actorID
	}
	if err := database.DB.Model(&emergency).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update status", "error": err.Error()})
		return
	}
	emergency.Status = req.Status

	history := models.EmergencyStatusHistory{
		EmergencyID: emergency.ID,
		Status:      req.Status,
		Comment:     req.Comment,
	}
	if actorID != 0 {
		history.ActorID = &actorID
	}
	if err := database.DB.Create(&history).Error; err != nil {
		log.Printf("⚠️ [EMERGENCY] Failed to append history for emergency %d: %v", emergency.ID, err)
	}

	if smsStatuses[req.Status] && services.ShouldEscalate(emergency.Severity) && smsService.Enabled() {
		smsService.DispatchEmergency(&emergency)
	}

	hub.EmitEmergencyUpdate(&emergency)

	if emergency.ReporterID != nil {
		if _, err := notifier.CreateNotification(*emergency.ReporterID, services.NotificationInput{
			Title:   "Emergency status updated",
			Message: "Your emergency report is now " + string(req.Status),
			Type:    "emergency_update",
		}); err != nil {
			log.Printf("⚠️ [EMERGENCY] Failed to notify reporter of emergency %d: %v", emergency.ID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": emergency})
}

// GetEmergencyStats handles GET /api/emergency/stats (police/admin)
func GetEmergencyStats(c *gin.Context) {
	var stats struct {
		Total      int64            `json:"total"`
		Pending    int64            `json:"pending"`
		Active     int64            `json:"active"`
		Dispatched int64            `json:"dispatched"`
		Resolved   int64            `json:"resolved"`
		Cancelled  int64            `json:"cancelled"`
		BySeverity map[string]int64 `json:"bySeverity"`
		ByType     map[string]int64 `json:"byType"`
	}
	stats.BySeverity = make(map[string]int64)
	stats.ByType = make(map[string]int64)

	database.DB.Model(&models.Emergency{}).Count(&stats.Total)
	database.DB.Model(&models.Emergency{}).Where("status = ?", models.EmergencyPending).Count(&stats.Pending)
	database.DB.Model(&models.Emergency{}).Where("status = ?", models.EmergencyActive).Count(&stats.Active)
	database.DB.Model(&models.Emergency{}).Where("status = ?", models.EmergencyDispatched).Count(&stats.Dispatched)
	database.DB.Model(&models.Emergency{}).Where("status = ?", models.EmergencyResolved).Count(&stats.Resolved)
	database.DB.Model(&models.Emergency{}).Where("status = ?", models.EmergencyCancelled).Count(&stats.Cancelled)

	var severityCounts []struct {
		Severity string
		Count    int64
	}
	database.DB.Model(&models.Emergency{}).
		Select("severity, COUNT(*) as count").
		Group("severity").
		Scan(&severityCounts)
	for _, sc := range severityCounts {
		stats.BySeverity[sc.Severity] = sc.Count
	}

	var typeCounts []struct {
		Type  string
		Count int64
	}
	database.DB.Model(&models.Emergency{}).
		Select("type, COUNT(*) as count").
		Group("type").
		Scan(&typeCounts)
	for _, tc := range typeCounts {
		stats.ByType[tc.Type] = tc.Count
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}
