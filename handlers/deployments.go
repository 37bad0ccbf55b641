package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/trafficguard/backend/database"
	"github.com/trafficguard/backend/models"
	"gorm.io/gorm"
)

// CreateDeployment handles POST /api/deployments (police/admin). The
// deployment row and its officer links are written in one transaction.
type createDeploymentRequest struct {
	UnitName     string   `json:"unitName" binding:"required"`
	LocationName *string  `json:"locationName"`
	Lat          *float64 `json:"lat" binding:"required"`
	Lng          *float64 `json:"lng" binding:"required"`
	IncidentID   *int64   `json:"incidentId"`
	OfficerIDs   []uint   `json:"officerIds"`
}

func CreateDeployment(c *gin.Context) {
	var req createDeploymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing required fields", "error": err.Error()})
		return
	}

	if req.IncidentID != nil {
		var count int64
		database.DB.Model(&models.Incident{}).Where("id = ?", *req.IncidentID).Count(&count)
		if count == 0 {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Incident not found"})
			return
		}
	}

	deployment := models.Deployment{
		UnitName:     req.UnitName,
		LocationName: req.LocationName,
		Lat:          *req.Lat,
		Lng:          *req.Lng,
		Status:       models.DeploymentStandby,
		IncidentID:   req.IncidentID,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&deployment).Error; err != nil {
			return err
		}
		for _, officerID := range req.OfficerIDs {
			link := models.DeploymentOfficer{
				DeploymentID: deployment.ID,
				OfficerID:    officerID,
			}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create deployment", "error": err.Error()})
		return
	}

	database.DB.Preload("Officers.Officer", func(db *gorm.DB) *gorm.DB {
		return db.Select("id, email, name")
	}).First(&deployment, deployment.ID)

	entityID := strconv.FormatInt(deployment.ID, 10)
	audit(currentUserID(c), "create", "deployment", &entityID, gin.H{"unitName": req.UnitName})

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": deployment})
}

// GetDeployments handles GET /api/deployments (police/admin)
func GetDeployments(c *gin.Context) {
	query := database.DB.Model(&models.Deployment{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if incidentID := c.Query("incidentId"); incidentID != "" {
		query = query.Where("incident_id = ?", incidentID)
	}

	var deployments []models.Deployment
	if err := query.Preload("Officers.Officer", func(db *gorm.DB) *gorm.DB {
		return db.Select("id, email, name")
	}).Order("created_at DESC").Limit(100).Find(&deployments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch deployments", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": deployments})
}

// UpdateDeploymentStatus handles PATCH /api/deployments/:id/status (police/admin)
func UpdateDeploymentStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid deployment ID"})
		return
	}

	var req struct {
		Status models.DeploymentStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "status is required"})
		return
	}
	if !models.ValidDeploymentStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid status"})
		return
	}

	res := database.DB.Model(&models.Deployment{}).Where("id = ?", id).Update("status", req.Status)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update status", "error": res.Error.Error()})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Deployment not found"})
		return
	}

	var deployment models.Deployment
	database.DB.First(&deployment, id)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": deployment})
}
