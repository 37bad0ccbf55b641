// Package cronjobs runs the periodic maintenance tasks: sweeping orphaned
// video clips out of the upload directory and dismissing incidents that sat
// in reported state for too long.
package cronjobs

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/trafficguard/backend/models"
	"github.com/trafficguard/backend/services"
)

const (
	orphanAge      = 24 * time.Hour     // clips not referenced by any incident
	staleReportAge = 7 * 24 * time.Hour // reported incidents nobody reviewed
)

// Start schedules the maintenance jobs and starts the scheduler.
// The caller owns the returned cron and should Stop it on shutdown.
func Start(db *gorm.DB, notifier *services.NotificationManager, uploadDir string) *cron.Cron {
	log.Println("⏰ Starting cron jobs")
	c := cron.New()

	// Orphaned clip sweep: hourly
	_, err := c.AddFunc("0 * * * *", func() {
		if n := sweepOrphanedClips(db, uploadDir); n > 0 {
			log.Printf("⏰ CronJob: removed %d orphaned clips", n)
		}
	})
	if err != nil {
		log.Println("Error scheduling clip sweep:", err)
	}

	// Stale incident dismissal: daily at 03:00
	_, err = c.AddFunc("0 3 * * *", func() {
		if n := dismissStaleIncidents(db, notifier); n > 0 {
			log.Printf("⏰ CronJob: auto-dismissed %d stale incidents", n)
		}
	})
	if err != nil {
		log.Println("Error scheduling stale incident dismissal:", err)
	}

	c.Start()
	return c
}

// sweepOrphanedClips deletes upload files older than orphanAge that no
// incident references. Returns the number of files removed.
func sweepOrphanedClips(db *gorm.DB, uploadDir string) int {
	entries, err := os.ReadDir(uploadDir)
	if err != nil {
		log.Printf("⚠️ Clip sweep: cannot read upload dir: %v", err)
		return 0
	}

	cutoff := time.Now().Add(-orphanAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(uploadDir, entry.Name())
		var count int64
		if err := db.Model(&models.Incident{}).Where("video_path = ?", path).Count(&count).Error; err != nil {
			log.Printf("⚠️ Clip sweep: lookup failed for %s: %v", entry.Name(), err)
			continue
		}
		if count > 0 {
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Printf("⚠️ Clip sweep: failed to remove %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}
	return removed
}

// dismissStaleIncidents moves incidents stuck in reported state past the
// stale cutoff to dismissed, with a system history row per incident. The
// reporter, when known, gets a notification about the dismissal.
func dismissStaleIncidents(db *gorm.DB, notifier *services.NotificationManager) int {
	cutoff := time.Now().Add(-staleReportAge)

	var stale []models.Incident
	if err := db.Where("status = ? AND created_at < ?", models.IncidentReported, cutoff).Find(&stale).Error; err != nil {
		log.Printf("⚠️ Stale incident sweep failed: %v", err)
		return 0
	}

	dismissed := 0
	for _, inc := range stale {
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Incident{}).Where("id = ?", inc.ID).
				Update("status", models.IncidentDismissed).Error; err != nil {
				return err
			}
			comment := "Automatically dismissed after 7 days without review"
			return tx.Create(&models.IncidentUpdate{
				IncidentID: inc.ID,
				Status:     models.IncidentDismissed,
				Comment:    &comment,
			}).Error
		})
		if err != nil {
			log.Printf("⚠️ Failed to dismiss incident %d: %v", inc.ID, err)
			continue
		}
		dismissed++

		if inc.ReporterID != nil {
			id := inc.ID
			if _, err := notifier.CreateNotification(*inc.ReporterID, services.NotificationInput{
				Title:      "Incident dismissed",
				Message:    fmt.Sprintf("Your incident #%d was automatically dismissed after 7 days without review", id),
				Type:       "incident_update",
				IncidentID: &id,
			}); err != nil {
				log.Printf("⚠️ Failed to notify reporter of incident %d: %v", inc.ID, err)
			}
		}
	}
	return dismissed
}
