package handlers

import (
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/trafficguard/backend/database"
	"github.com/trafficguard/backend/models"
)

// AnalyzeClip handles POST /api/auto-analysis/analyze. The client is
// acknowledged with a 202 before analysis starts; everything after that is
// best-effort background work.
func AnalyzeClip(c *gin.Context) {
	file, err := c.FormFile("video")
	if err != nil || file == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "video file is required"})
		return
	}

	latStr, lngStr := c.PostForm("lat"), c.PostForm("lng")
	lat, latErr := strconv.ParseFloat(latStr, 64)
	lng, lngErr := strconv.ParseFloat(lngStr, 64)
	if latStr == "" || lngStr == "" || latErr != nil || lngErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "lat and lng are required"})
		return
	}

	filename := uuid.NewString() + filepath.Ext(file.Filename)
	dst := filepath.Join(uploadDir, filename)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to save clip", "error": err.Error()})
		return
	}

	userID := currentUserID(c)

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data":    gin.H{"status": "processing", "clip": filename},
	})

	go pipeline.Process(dst, file.Size, lat, lng, userID)
}

// GetAutoCaptureStats handles GET /api/auto-analysis/stats
func GetAutoCaptureStats(c *gin.Context) {
	userID := currentUserID(c)

	var stat models.AutoCaptureStat
	if err := database.DB.Where("user_id = ?", userID).First(&stat).Error; err != nil {
		// No clips processed yet: zero counters, not an error
		stat = models.AutoCaptureStat{UserID: userID}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": stat})
}
