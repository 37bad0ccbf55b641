// Quick database health check: connectivity, clock, row counts and a few
// integrity probes. Meant to be run against a live deployment.
package main

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/trafficguard/backend/database"
	"github.com/trafficguard/backend/models"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env not found")
	}

	if err := database.Connect(); err != nil {
		log.Fatalf("❌ Failed to connect: %v", err)
	}
	defer database.Close()

	var now time.Time
	database.DB.Raw("SELECT NOW()").Scan(&now)
	fmt.Printf("DB Time: %v\n", now)

	var tz string
	database.DB.Raw("SHOW timezone").Scan(&tz)
	fmt.Printf("DB Configured Timezone: %s\n", tz)

	fmt.Println("\nRow counts:")
	tables := []struct {
		name  string
		model interface{}
	}{
		{"users", &models.User{}},
		{"incidents", &models.Incident{}},
		{"incident_updates", &models.IncidentUpdate{}},
		{"incident_analytics", &models.IncidentAnalytics{}},
		{"emergencies", &models.Emergency{}},
		{"emergency_status_history", &models.EmergencyStatusHistory{}},
		{"notifications", &models.Notification{}},
		{"deployments", &models.Deployment{}},
		{"traffic_reports", &models.TrafficReport{}},
		{"auto_capture_stats", &models.AutoCaptureStat{}},
		{"audit_logs", &models.AuditLog{}},
	}
	for _, t := range tables {
		var count int64
		if err := database.DB.Model(t.model).Count(&count).Error; err != nil {
			fmt.Printf("  %-26s ERROR: %v\n", t.name, err)
			continue
		}
		fmt.Printf("  %-26s %d\n", t.name, count)
	}

	fmt.Println("\nIntegrity probes:")

	var badSeverity int64
	database.DB.Model(&models.Incident{}).
		Where("severity NOT IN ?", []models.Severity{
			models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical,
		}).Count(&badSeverity)
	fmt.Printf("  incidents with unknown severity:        %d\n", badSeverity)

	var orphanUpdates int64
	database.DB.Raw(`SELECT COUNT(*) FROM incident_updates u
		LEFT JOIN incidents i ON i.id = u.incident_id WHERE i.id IS NULL`).Scan(&orphanUpdates)
	fmt.Printf("  incident_updates without incident:      %d\n", orphanUpdates)

	var orphanHistory int64
	database.DB.Raw(`SELECT COUNT(*) FROM emergency_status_history h
		LEFT JOIN emergencies e ON e.id = h.emergency_id WHERE e.id IS NULL`).Scan(&orphanHistory)
	fmt.Printf("  emergency history without emergency:    %d\n", orphanHistory)

	var missingInitial int64
	database.DB.Raw(`SELECT COUNT(*) FROM emergencies e
		WHERE NOT EXISTS (SELECT 1 FROM emergency_status_history h WHERE h.emergency_id = e.id)`).
		Scan(&missingInitial)
	fmt.Printf("  emergencies missing initial history:    %d\n", missingInitial)

	var staleReported int64
	database.DB.Model(&models.Incident{}).
		Where("status = ? AND created_at < ?", models.IncidentReported, time.Now().Add(-7*24*time.Hour)).
		Count(&staleReported)
	fmt.Printf("  incidents reported > 7 days ago:        %d\n", staleReported)

	fmt.Println("\n✅ Check complete")
}
