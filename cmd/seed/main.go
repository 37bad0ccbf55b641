package main

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/joho/godotenv"
	"github.com/trafficguard/backend/database"
	"github.com/trafficguard/backend/models"
	"golang.org/x/crypto/bcrypt"
)

// Seeded reports are scattered around the Kigali city center
const (
	centerLat = -1.9500
	centerLng = 30.0600
)

var sampleAddresses = []string{
	"KN 3 Ave, Nyarugenge", "KG 7 Ave, Kimihurura", "KK 15 Rd, Gikondo",
	"KN 5 Rd, Nyamirambo", "KG 11 Ave, Kacyiru", "KK 31 Ave, Kanombe",
	"KN 78 St, Muhima", "KG 622 St, Remera",
}

var incidentTypes = []models.IncidentType{
	models.IncidentCongestion,
	models.IncidentCongestion,
	models.IncidentAccident,
	models.IncidentRoadBlockage,
	models.IncidentOther,
}

var severities = []models.Severity{
	models.SeverityLow,
	models.SeverityLow,
	models.SeverityMedium,
	models.SeverityMedium,
	models.SeverityHigh,
	models.SeverityCritical,
}

var incidentStatuses = []models.IncidentStatus{
	models.IncidentReported,
	models.IncidentReported,
	models.IncidentVerified,
	models.IncidentInProgress,
	models.IncidentResolved,
}

func jitter(r *rand.Rand) float64 {
	return (r.Float64() - 0.5) * 0.08 // about +/- 4km
}

func seedUser(email, name string, role models.Role, password string) (*models.User, error) {
	var existing models.User
	if err := database.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		fmt.Printf("⏭️  User %s already exists, skipping\n", email)
		return &existing, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := models.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         &name,
		Role:         role,
		IsActive:     true,
		IsVerified:   true,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		return nil, err
	}
	fmt.Printf("✅ Created %s user %s\n", role, email)
	return &user, nil
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Connect to database
	if err := database.Connect(); err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close()

	fmt.Println("🌱 Starting seed...")

	admin, err := seedUser("admin@trafficguard.local", "System Admin", models.RoleAdmin, "admin123")
	if err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}
	officer, err := seedUser("officer@trafficguard.local", "Officer Uwase", models.RolePolice, "police123")
	if err != nil {
		log.Fatalf("Failed to seed officer: %v", err)
	}
	if _, err := seedUser("officer2@trafficguard.local", "Officer Mugisha", models.RolePolice, "police123"); err != nil {
		log.Fatalf("Failed to seed officer: %v", err)
	}
	citizen, err := seedUser("citizen@trafficguard.local", "Test Citizen", models.RolePublic, "citizen123")
	if err != nil {
		log.Fatalf("Failed to seed citizen: %v", err)
	}

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now()

	// Sample incidents over the last 7 days
	var incidentCount int64
	database.DB.Model(&models.Incident{}).Count(&incidentCount)
	if incidentCount > 0 {
		fmt.Printf("⏭️  %d incidents already present, skipping incident seed\n", incidentCount)
	} else {
		created := 0
		for i := 0; i < 40; i++ {
			itype := incidentTypes[r.Intn(len(incidentTypes))]
			severity := severities[r.Intn(len(severities))]
			status := incidentStatuses[r.Intn(len(incidentStatuses))]
			address := sampleAddresses[r.Intn(len(sampleAddresses))]
			desc := fmt.Sprintf("Seeded %s report near %s", itype, address)
			createdAt := now.Add(-time.Duration(r.Intn(7*24)) * time.Hour)

			incident := models.Incident{
				Type:        itype,
				Severity:    severity,
				Status:      status,
				Lat:         centerLat + jitter(r),
				Lng:         centerLng + jitter(r),
				Address:     &address,
				Description: &desc,
				CreatedAt:   createdAt,
			}
			if r.Float64() > 0.3 {
				incident.ReporterID = &citizen.ID
			}
			if status == models.IncidentInProgress || status == models.IncidentResolved {
				incident.AssigneeID = &officer.ID
			}

			if err := database.DB.Create(&incident).Error; err != nil {
				log.Printf("Failed to create incident: %v", err)
				continue
			}

			// initial history row, plus one for the transition when reviewed
			updates := []models.IncidentUpdate{{
				IncidentID: incident.ID,
				Status:     models.IncidentReported,
				CreatedAt:  createdAt,
			}}
			if status != models.IncidentReported {
				updates = append(updates, models.IncidentUpdate{
					IncidentID: incident.ID,
					ActorID:    &officer.ID,
					Status:     status,
					CreatedAt:  createdAt.Add(time.Duration(r.Intn(3600)) * time.Second),
				})
			}
			if err := database.DB.Create(&updates).Error; err != nil {
				log.Printf("Failed to create incident updates: %v", err)
			}
			created++
		}
		fmt.Printf("✅ Created %d incidents\n", created)
	}

	// A couple of emergencies in different states
	var emergencyCount int64
	database.DB.Model(&models.Emergency{}).Count(&emergencyCount)
	if emergencyCount > 0 {
		fmt.Printf("⏭️  %d emergencies already present, skipping emergency seed\n", emergencyCount)
	} else {
		descriptions := []string{
			"Multi-vehicle collision, lanes blocked",
			"Motorbike accident, rider injured",
			"Truck overturned near roundabout",
		}
		statuses := []models.EmergencyStatus{
			models.EmergencyPending,
			models.EmergencyActive,
			models.EmergencyResolved,
		}
		for i, desc := range descriptions {
			d := desc
			name := "Test Citizen"
			phone := "+250780000000"
			emergency := models.Emergency{
				Type:             "accident",
				Severity:         severities[r.Intn(len(severities))],
				Status:           statuses[i],
				LocationName:     sampleAddresses[r.Intn(len(sampleAddresses))],
				Lat:              centerLat + jitter(r),
				Lng:              centerLng + jitter(r),
				Description:      &d,
				Casualties:       i,
				VehiclesInvolved: i + 1,
				ServicesNeeded:   models.JSONB{Data: []interface{}{"ambulance", "police"}},
				ContactName:      &name,
				ContactPhone:     &phone,
				ReporterID:       &citizen.ID,
				CreatedAt:        now.Add(-time.Duration(i*6) * time.Hour),
			}
			if statuses[i] != models.EmergencyPending {
				emergency.AssigneeID = &officer.ID
			}
			if err := database.DB.Create(&emergency).Error; err != nil {
				log.Printf("Failed to create emergency: %v", err)
				continue
			}
			if err := database.DB.Create(&models.EmergencyStatusHistory{
				EmergencyID: emergency.ID,
				Status:      models.EmergencyPending,
				CreatedAt:   emergency.CreatedAt,
			}).Error; err != nil {
				log.Printf("Failed to create emergency history: %v", err)
			}
		}
		fmt.Println("✅ Created 3 emergencies")
	}

	// Traffic reports for the heatmap, recent window
	var trafficCount int64
	database.DB.Model(&models.TrafficReport{}).Count(&trafficCount)
	if trafficCount > 0 {
		fmt.Printf("⏭️  %d traffic reports already present, skipping traffic seed\n", trafficCount)
	} else {
		created := 0
		for i := 0; i < 120; i++ {
			report := models.TrafficReport{
				Lat:             centerLat + jitter(r),
				Lng:             centerLng + jitter(r),
				CongestionLevel: r.Intn(101),
				ReporterID:      &citizen.ID,
				CreatedAt:       now.Add(-time.Duration(r.Intn(60)) * time.Minute),
			}
			if err := database.DB.Create(&report).Error; err != nil {
				log.Printf("Failed to create traffic report: %v", err)
				continue
			}
			created++
		}
		fmt.Printf("✅ Created %d traffic reports\n", created)
	}

	if err := database.DB.Create(&models.AuditLog{
		ActorID: &admin.ID,
		Action:  "seed",
		Entity:  "database",
		Detail:  models.NewJSONB(map[string]interface{}{"completedAt": time.Now().Format(time.RFC3339)}),
	}).Error; err != nil {
		log.Printf("Failed to write seed audit entry: %v", err)
	}

	fmt.Println("✅ All seeding completed.")
}
