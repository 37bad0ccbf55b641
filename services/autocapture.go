package services

import (
	"context"
	"log"
	"os"

	"github.com/trafficguard/backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AutoCapturePipeline forwards uploaded clips to the AI service after the
// client has already been acknowledged. Best-effort: any failure deletes the
// clip and is logged, never retried or surfaced - there is no durable queue,
// so a clip in flight across a crash is lost.
type AutoCapturePipeline struct {
	db       *gorm.DB
	hub      *Hub
	analyzer *Analyzer
}

// NewAutoCapturePipeline creates the auto-capture pipeline
func NewAutoCapturePipeline(db *gorm.DB, hub *Hub, analyzer *Analyzer) *AutoCapturePipeline {
	return &AutoCapturePipeline{db: db, hub: hub, analyzer: analyzer}
}

// Process runs the background half of an auto-capture upload. Call in a
// goroutine after the HTTP 202 has been written.
func (p *AutoCapturePipeline) Process(clipPath string, clipSize int64, lat, lng float64, userID uint) {
	p.bumpStats(userID, func(s *models.AutoCaptureStat) {
		s.VideosCaptured++
		s.BytesUploaded += clipSize
	})

	result, err := p.analyzer.QuickAnalyze(context.Background(), clipPath, lat, lng)
	if err != nil {
		log.Printf("⚠️ [AUTOCAPTURE] Analysis failed for %s: %v", clipPath, err)
		p.deleteClip(clipPath)
		return
	}

	if !result.IncidentDetected {
		log.Printf("🎬 [AUTOCAPTURE] No incident in %s, discarding", clipPath)
		p.deleteClip(clipPath)
		return
	}

	incident, err := p.persistDetection(clipPath, lat, lng, userID, result)
	if err != nil {
		log.Printf("⚠️ [AUTOCAPTURE] Failed to persist detection: %v", err)
		p.deleteClip(clipPath)
		return
	}

	p.bumpStats(userID, func(s *models.AutoCaptureStat) {
		s.IncidentsDetected++
	})

	p.hub.EmitIncidentUpdate(incident)
	if userID != 0 {
		p.hub.EmitAnalysisComplete(userID, map[string]interface{}{
			"incidentId":   incident.ID,
			"detectedType": result.IncidentType,
			"confidence":   result.Confidence,
			"vehicleCount": result.VehicleCount,
		})
	}

	log.Printf("🎬 [AUTOCAPTURE] Incident %d detected in %s (confidence %.2f)",
		incident.ID, clipPath, result.Confidence)
}

// persistDetection writes the incident and its analytics row
func (p *AutoCapturePipeline) persistDetection(clipPath string, lat, lng float64, userID uint, result *AnalysisResult) (*models.Incident, error) {
	detectedType := models.IncidentType(result.IncidentType)
	if !models.ValidIncidentType(detectedType) {
		detectedType = models.IncidentOther
	}

	severity := models.SeverityMedium
	if result.Confidence >= 0.9 || result.VehicleCount >= 3 {
		severity = models.SeverityHigh
	}

	incident := models.Incident{
		Type:         detectedType,
		Severity:     severity,
		Status:       models.IncidentReported,
		Lat:          lat,
		Lng:          lng,
		VideoPath:    &clipPath,
		AutoCaptured: true,
	}
	if userID != 0 {
		incident.ReporterID = &userID
	}

	if err := p.db.Create(&incident).Error; err != nil {
		return nil, err
	}

	analytics := models.IncidentAnalytics{
		IncidentID:   incident.ID,
		Confidence:   result.Confidence,
		VehicleCount: result.VehicleCount,
		DetectedType: detectedType,
	}
	if result.ModelVersion != "" {
		analytics.ModelVersion = &result.ModelVersion
	}
	if err := p.db.Create(&analytics).Error; err != nil {
		log.Printf("⚠️ [AUTOCAPTURE] Failed to write analytics for incident %d: %v", incident.ID, err)
	}

	return &incident, nil
}

// bumpStats upserts the per-user counter row. Anonymous uploads are not
// tracked.
func (p *AutoCapturePipeline) bumpStats(userID uint, apply func(*models.AutoCaptureStat)) {
	if userID == 0 {
		return
	}

	var stat models.AutoCaptureStat
	err := p.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Where(models.AutoCaptureStat{UserID: userID}).
		FirstOrCreate(&stat, models.AutoCaptureStat{UserID: userID}).Error
	if err != nil {
		log.Printf("⚠️ [AUTOCAPTURE] Failed to load stats for user %d: %v", userID, err)
		return
	}

	before := stat
	apply(&stat)
	updates := map[string]interface{}{}
	if stat.VideosCaptured != before.VideosCaptured {
		updates["videos_captured"] = gorm.Expr("videos_captured + ?", stat.VideosCaptured-before.VideosCaptured)
	}
	if stat.IncidentsDetected != before.IncidentsDetected {
		updates["incidents_detected"] = gorm.Expr("incidents_detected + ?", stat.IncidentsDetected-before.IncidentsDetected)
	}
	if stat.BytesUploaded != before.BytesUploaded {
		updates["bytes_uploaded"] = gorm.Expr("bytes_uploaded + ?", stat.BytesUploaded-before.BytesUploaded)
	}
	if len(updates) == 0 {
		return
	}
	if err := p.db.Model(&models.AutoCaptureStat{}).Where("user_id = ?", userID).Updates(updates).Error; err != nil {
		log.Printf("⚠️ [AUTOCAPTURE] Failed to update stats for user %d: %v", userID, err)
	}
}

func (p *AutoCapturePipeline) deleteClip(clipPath string) {
	if clipPath == "" {
		return
	}
	if err := os.Remove(clipPath); err != nil && !os.IsNotExist(err) {
		log.Printf("⚠️ [AUTOCAPTURE] Failed to delete clip %s: %v", clipPath, err)
	}
}
