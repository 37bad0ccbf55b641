package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/trafficguard/backend/database"
	"github.com/trafficguard/backend/models"
	"github.com/trafficguard/backend/services"
)

// Zero is a legitimate congestion level and 0/0 a legitimate coordinate, so
// the required fields are pointers: presence is what gets validated.
type trafficUpdateRequest struct {
	Lat             *float64 `json:"lat" binding:"required"`
	Lng             *float64 `json:"lng" binding:"required"`
	CongestionLevel *int     `json:"congestionLevel" binding:"required,min=0,max=100"`
	AvgSpeedKmh     *float64 `json:"avgSpeedKmh"`
	RoadName        *string  `json:"roadName"`
}

// PostTrafficUpdate handles POST /api/traffic/update
func PostTrafficUpdate(c *gin.Context) {
	var req trafficUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing required fields", "error": err.Error()})
		return
	}

	report := models.TrafficReport{
		Lat:             *req.Lat,
		Lng:             *req.Lng,
		CongestionLevel: *req.CongestionLevel,
		AvgSpeedKmh:     req.AvgSpeedKmh,
		RoadName:        req.RoadName,
	}
	if userID := currentUserID(c); userID != 0 {
		report.ReporterID = &userID
	}

	if err := database.DB.Create(&report).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to save traffic report", "error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": report})
}

// HeatmapCell is one aggregated grid bucket
type HeatmapCell struct {
	Key           string  `json:"key"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	AvgCongestion float64 `json:"avgCongestion"`
	Reports       int     `json:"reports"`
}

// GetTrafficHeatmap handles GET /api/traffic/heatmap - recent reports bucketed
// into the same ~1km grid cells the realtime hub uses
func GetTrafficHeatmap(c *gin.Context) {
	windowMinutes := 60
	if windowStr := c.Query("window"); windowStr != "" {
		if parsed, err := strconv.Atoi(windowStr); err == nil && parsed > 0 && parsed <= 24*60 {
			windowMinutes = parsed
		}
	}
	since := time.Now().Add(-time.Duration(windowMinutes) * time.Minute)

	var reports []models.TrafficReport
	if err := database.DB.Where("created_at >= ?", since).Find(&reports).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch traffic reports", "error": err.Error()})
		return
	}

	type bucket struct {
		latSum, lngSum, congestionSum float64
		count                         int
	}
	buckets := make(map[string]*bucket)
	for _, r := range reports {
		key := services.GridKey(r.Lat, r.Lng)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		b.latSum += r.Lat
		b.lngSum += r.Lng
		b.congestionSum += float64(r.CongestionLevel)
		b.count++
	}

	cells := make([]HeatmapCell, 0, len(buckets))
	for key, b := range buckets {
		n := float64(b.count)
		cells = append(cells, HeatmapCell{
			Key:           key,
			Lat:           b.latSum / n,
			Lng:           b.lngSum / n,
			AvgCongestion: b.congestionSum / n,
			Reports:       b.count,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"cells": cells, "windowMinutes": windowMinutes},
	})
}
