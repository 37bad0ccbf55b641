package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/trafficguard/backend/database"
	"github.com/trafficguard/backend/models"
	"github.com/trafficguard/backend/natsserver"
	"github.com/trafficguard/backend/services"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// GetAdminMetrics handles GET /api/admin/metrics
func GetAdminMetrics(c *gin.Context) {
	var metrics struct {
		Users         int64             `json:"users"`
		Incidents     int64             `json:"incidents"`
		Emergencies   int64             `json:"emergencies"`
		Deployments   int64             `json:"deployments"`
		Notifications int64             `json:"notifications"`
		Last24h       map[string]int64  `json:"last24h"`
		Hub           services.HubStats `json:"hub"`
		Backplane     natsserver.Stats  `json:"backplane"`
	}
	metrics.Last24h = make(map[string]int64)

	database.DB.Model(&models.User{}).Count(&metrics.Users)
	database.DB.Model(&models.Incident{}).Count(&metrics.Incidents)
	database.DB.Model(&models.Emergency{}).Count(&metrics.Emergencies)
	database.DB.Model(&models.Deployment{}).Count(&metrics.Deployments)
	database.DB.Model(&models.Notification{}).Count(&metrics.Notifications)

	since := time.Now().Add(-24 * time.Hour)
	var n int64
	database.DB.Model(&models.Incident{}).Where("created_at >= ?", since).Count(&n)
	metrics.Last24h["incidents"] = n
	database.DB.Model(&models.Emergency{}).Where("created_at >= ?", since).Count(&n)
	metrics.Last24h["emergencies"] = n
	database.DB.Model(&models.TrafficReport{}).Where("created_at >= ?", since).Count(&n)
	metrics.Last24h["trafficReports"] = n

	metrics.Hub = hub.Stats()
	metrics.Backplane = backplane.GetStats()

	c.JSON(http.StatusOK, gin.H{"success": true, "data": metrics})
}

// GetUsers handles GET /api/admin/users
func GetUsers(c *gin.Context) {
	query := database.DB.Model(&models.User{})

	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if active := c.Query("active"); active != "" {
		query = query.Where("is_active = ?", active == "true")
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("email ILIKE ? OR name ILIKE ?", "%"+search+"%", "%"+search+"%")
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

	var users []models.User
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch users", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"users": users, "total": total, "limit": limit, "offset": offset},
	})
}

// UpdateUser handles PUT /api/admin/users/:id - role/active/verified mutation
func UpdateUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid user ID"})
		return
	}

	var req struct {
		Role       *models.Role `json:"role"`
		IsActive   *bool        `json:"isActive"`
		IsVerified *bool        `json:"isVerified"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	updates := map[string]interface{}{}
	if req.Role != nil {
		if !models.ValidRole(*req.Role) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid role"})
			return
		}
		updates["role"] = *req.Role
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.IsVerified != nil {
		updates["is_verified"] = *req.IsVerified
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Nothing to update"})
		return
	}

	res := database.DB.Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update user", "error": res.Error.Error()})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
		return
	}

	entityID := strconv.FormatUint(id, 10)
	audit(currentUserID(c), "update", "user", &entityID, updates)

	var user models.User
	database.DB.First(&user, id)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": user})
}

// GetAuditLogs handles GET /api/admin/logs
func GetAuditLogs(c *gin.Context) {
	query := database.DB.Model(&models.AuditLog{})

	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if entity := c.Query("entity"); entity != "" {
		query = query.Where("entity = ?", entity)
	}
	if actorID := c.Query("actorId"); actorID != "" {
		query = query.Where("actor_id = ?", actorID)
	}

	limit := 100
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 500 {
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

	var logs []models.AuditLog
	if err := query.Preload("Actor", func(db *gorm.DB) *gorm.DB {
		return db.Select("id, email, name, role")
	}).Order("created_at DESC").Limit(limit).Offset(offset).Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch logs", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"logs": logs, "total": total, "limit": limit, "offset": offset},
	})
}

// GenerateReport handles GET /api/admin/reports/generate - streams an XLSX
// with incidents and emergencies for the requested date range
func GenerateReport(c *gin.Context) {
	end := time.Now()
	start := end.AddDate(0, 0, -7)
	if s := c.Query("start"); s != "" {
		if parsed, err := time.Parse("2006-01-02", s); err == nil {
			start = parsed
		}
	}
	if e := c.Query("end"); e != "" {
		if parsed, err := time.Parse("2006-01-02", e); err == nil {
			end = parsed.AddDate(0, 0, 1)
		}
	}

	var incidents []models.Incident
	if err := database.DB.Where("created_at >= ? AND created_at < ?", start, end).
		Order("created_at").Find(&incidents).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch incidents", "error": err.Error()})
		return
	}
	var emergencies []models.Emergency
	if err := database.DB.Where("created_at >= ? AND created_at < ?", start, end).
		Order("created_at").Find(&emergencies).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch emergencies", "error": err.Error()})
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	incSheet := "Incidents"
	f.SetSheetName("Sheet1", incSheet)
	incHeaders := []string{"ID", "Type", "Severity", "Status", "Lat", "Lng", "Address", "AutoCaptured", "CreatedAt"}
	for i, h := range incHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(incSheet, cell, h)
	}
	for row, inc := range incidents {
		address := ""
		if inc.Address != nil {
			address = *inc.Address
		}
		values := []interface{}{
			inc.ID, string(inc.Type), string(inc.Severity), string(inc.Status),
			inc.Lat, inc.Lng, address, inc.AutoCaptured, inc.CreatedAt.Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(incSheet, cell, v)
		}
	}

	emSheet := "Emergencies"
	f.NewSheet(emSheet)
	emHeaders := []string{"ID", "Type", "Severity", "Status", "Location", "Casualties", "Vehicles", "CreatedAt"}
	for i, h := range emHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(emSheet, cell, h)
	}
	for row, em := range emergencies {
		values := []interface{}{
			em.ID, em.Type, string(em.Severity), string(em.Status),
			em.LocationName, em.Casualties, em.VehiclesInvolved, em.CreatedAt.Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(emSheet, cell, v)
		}
	}

	filename := fmt.Sprintf("trafficguard-report-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to write report", "error": err.Error()})
		return
	}

	audit(currentUserID(c), "generate_report", "report", nil, gin.H{
		"start": start.Format("2006-01-02"),
		"end":   end.Format("2006-01-02"),
	})
}
