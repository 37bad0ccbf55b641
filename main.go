package main

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/trafficguard/backend/cronjobs"
	"github.com/trafficguard/backend/database"
	"github.com/trafficguard/backend/handlers"
	"github.com/trafficguard/backend/models"
	"github.com/trafficguard/backend/natsserver"
	"github.com/trafficguard/backend/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Connect to database
	if err := database.Connect(); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
	defer database.Close()

	// Start embedded NATS server for the realtime event backplane
	natsPort := 4222
	natsServer, err := natsserver.New(natsserver.Config{Port: natsPort})
	if err != nil {
		log.Fatalf("❌ Failed to start NATS server: %v", err)
	}
	defer natsServer.Shutdown()

	// Realtime hub for WebSocket clients, publishing through the embedded
	// server wrapper so its event counters see every emit
	hub := services.NewHub(natsServer)
	go hub.Run()
	handlers.SetHub(hub)
	handlers.SetBackplane(natsServer)
	log.Println("📺 Realtime hub initialized")

	// Notification manager
	notifier := services.NewNotificationManager(database.DB, hub)
	handlers.SetNotifier(notifier)

	// SMS escalation service
	var dispatchNumbers []string
	for _, n := range strings.Split(os.Getenv("SMS_DISPATCH_NUMBERS"), ",") {
		if n = strings.TrimSpace(n); n != "" {
			dispatchNumbers = append(dispatchNumbers, n)
		}
	}
	sms := services.NewSMSService(services.SMSConfig{
		GatewayURL:      os.Getenv("SMS_GATEWAY_URL"),
		APIKey:          os.Getenv("SMS_API_KEY"),
		SenderID:        os.Getenv("SMS_SENDER_ID"),
		DispatchNumbers: dispatchNumbers,
	})
	handlers.SetSMSService(sms)
	if sms.Enabled() {
		log.Printf("📱 SMS escalation enabled (%d dispatch numbers)", len(dispatchNumbers))
	} else {
		log.Println("⚠️ SMS escalation disabled (no gateway configured)")
	}

	// AI analysis service and auto-capture pipeline
	analyzer := services.NewAnalyzer(os.Getenv("AI_SERVICE_URL"), os.Getenv("AI_API_KEY"))
	handlers.SetAnalyzer(analyzer)
	pipeline := services.NewAutoCapturePipeline(database.DB, hub, analyzer)
	handlers.SetPipeline(pipeline)

	// Upload directory for incident videos
	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "./uploads"
	}
	if err := handlers.InitUploadDir(uploadDir); err != nil {
		log.Fatalf("❌ Failed to create upload dir: %v", err)
	}

	// Background jobs (orphaned clip sweep, stale incident dismissal)
	scheduler := cronjobs.Start(database.DB, notifier, uploadDir)
	defer scheduler.Stop()

	// Setup Gin router
	if os.Getenv("ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// CORS middleware
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(config))

	log.Printf("📁 Serving uploads from: %s", uploadDir)
	registerRoutes(router, uploadDir)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}

	log.Printf("🚀 Server running on http://localhost:%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// registerRoutes wires the HTTP surface onto the router
func registerRoutes(router *gin.Engine, uploadDir string) {
	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Serve uploaded incident videos
	router.Static("/uploads", uploadDir)

	// WebSocket route (outside /api group)
	router.GET("/ws", handlers.HandleWebSocket)

	// API Routes
	api := router.Group("/api")
	{
		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register)
			auth.POST("/login", handlers.Login)
			auth.GET("/profile", handlers.AuthMiddleware(), handlers.GetProfile)
			auth.PUT("/profile", handlers.AuthMiddleware(), handlers.UpdateProfile)
		}

		// Incident routes
		incidents := api.Group("/incidents")
		{
			incidents.POST("/report", handlers.OptionalAuth(), handlers.ReportIncident)
			incidents.GET("", handlers.GetIncidents)
			incidents.GET("/my-reports", handlers.AuthMiddleware(), handlers.GetMyIncidents)
			incidents.GET("/:id", handlers.GetIncident)
			incidents.PATCH("/:id/status",
				handlers.AuthMiddleware(),
				handlers.RequireRole(models.RolePolice, models.RoleAdmin),
				handlers.UpdateIncidentStatus)
		}

		// Emergency routes; list and detail reads are public like incidents
		emergency := api.Group("/emergency")
		{
			emergency.POST("", handlers.OptionalAuth(), handlers.ReportEmergency)
			emergency.GET("", handlers.GetEmergencies)
			emergency.GET("/my-emergencies", handlers.AuthMiddleware(), handlers.GetMyEmergencies)
			emergency.GET("/:id", handlers.GetEmergency)

			restricted := emergency.Group("",
				handlers.AuthMiddleware(),
				handlers.RequireRole(models.RolePolice, models.RoleAdmin))
			{
				restricted.GET("/stats", handlers.GetEmergencyStats)
				restricted.PUT("/:id/status", handlers.UpdateEmergencyStatus)
			}
		}

		// Police routes
		police := api.Group("/police",
			handlers.AuthMiddleware(),
			handlers.RequireRole(models.RolePolice, models.RoleAdmin))
		{
			police.GET("/incidents", handlers.GetPoliceIncidents)
			police.PUT("/incidents/:id/assign", handlers.AssignIncident)
			police.POST("/broadcast", handlers.PoliceBroadcast)
			police.GET("/stats", handlers.GetPoliceStats)
		}

		// Deployment routes
		deployments := api.Group("/deployments",
			handlers.AuthMiddleware(),
			handlers.RequireRole(models.RolePolice, models.RoleAdmin))
		{
			deployments.POST("", handlers.CreateDeployment)
			deployments.GET("", handlers.GetDeployments)
			deployments.PATCH("/:id/status", handlers.UpdateDeploymentStatus)
		}

		// Traffic routes
		traffic := api.Group("/traffic", handlers.AuthMiddleware())
		{
			traffic.POST("/update", handlers.PostTrafficUpdate)
			traffic.GET("/heatmap", handlers.GetTrafficHeatmap)
		}

		// Notification routes
		notifications := api.Group("/notifications", handlers.AuthMiddleware())
		{
			notifications.GET("", handlers.GetNotifications)
			notifications.PUT("/:id/read", handlers.MarkNotificationRead)
			notifications.PUT("/read-all", handlers.MarkAllNotificationsRead)
		}

		// Auto-capture analysis routes
		autoAnalysis := api.Group("/auto-analysis")
		{
			autoAnalysis.POST("/analyze", handlers.OptionalAuth(), handlers.AnalyzeClip)
			autoAnalysis.GET("/stats", handlers.AuthMiddleware(), handlers.GetAutoCaptureStats)
		}

		// Admin routes
		admin := api.Group("/admin",
			handlers.AuthMiddleware(),
			handlers.RequireRole(models.RoleAdmin))
		{
			admin.GET("/metrics", handlers.GetAdminMetrics)
			admin.GET("/users", handlers.GetUsers)
			admin.PUT("/users/:id", handlers.UpdateUser)
			admin.GET("/logs", handlers.GetAuditLogs)
			admin.GET("/reports/generate", handlers.GenerateReport)
			admin.GET("/hub/stats", handlers.GetHubStats)
		}
	}
}
