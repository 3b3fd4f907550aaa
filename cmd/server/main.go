package main

import (
	"log"
	"net/http"
	"os"
	"strconv"

	"crewtrack-backend/internal/database"
	"crewtrack-backend/internal/handlers"
	"crewtrack-backend/internal/middleware"
	"crewtrack-backend/internal/models"
	"crewtrack-backend/internal/services"
	"crewtrack-backend/internal/tracker"
	"crewtrack-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

const defaultGeofenceRadiusMeters = 100.0

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 CREWTRACK BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Load .env file
	log.Println("📂 Loading environment variables...")
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Get database URL
	log.Println("🔍 Checking DATABASE_URL environment variable...")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: DATABASE_URL environment variable is required")
		log.Println("   Please set DATABASE_URL in Railway Variables or .env file")
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal("DATABASE_URL environment variable is required")
	}
	log.Println("✅ DATABASE_URL found")

	// Connect to database
	log.Println("🔌 Connecting to database...")
	db, err := database.Connect(dbURL)
	if err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database connection failed")
		log.Printf("   Error: %v", err)
		log.Println("   This is usually caused by:")
		log.Println("   1. Wrong DATABASE_URL format")
		log.Println("   2. PostgreSQL service is down")
		log.Println("   3. Network connectivity issue")
		log.Println("   4. Invalid credentials")
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	defer db.Close()
	log.Println("✅ Database connection established")

	// Run migrations
	log.Println("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database migrations failed")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	log.Println("✅ Database migrations completed")

	// Seed database
	log.Println("🌱 Seeding database with initial data...")
	if err := database.SeedUsers(db); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: User seeding failed")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	log.Println("✅ Users seeded successfully")

	if err := database.SeedMaterials(db); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Materials seeding failed")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	log.Println("✅ Materials seeded successfully")

	// Geofence radius for task start verification
	geofenceRadius := defaultGeofenceRadiusMeters
	if raw := os.Getenv("GEOFENCE_RADIUS_METERS"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			log.Printf("⚠️  Invalid GEOFENCE_RADIUS_METERS %q, using default %.0f m", raw, geofenceRadius)
		} else {
			geofenceRadius = parsed
		}
	}
	log.Printf("📍 Geofence radius: %.0f m", geofenceRadius)

	// Initialize Firebase Cloud Messaging
	// Supports both file path and base64-encoded credentials (for Railway/cloud deployments)
	var fcmService *services.FCMService
	fcmCredsBase64 := os.Getenv("FIREBASE_CREDENTIALS_BASE64")

	if fcmCredsBase64 != "" {
		// Use base64-encoded credentials (Railway-friendly)
		fcmService, err = services.NewFCMServiceFromBase64(fcmCredsBase64)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from base64: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from base64 credentials")
		}
	} else {
		// Fall back to file path (local development)
		fcmCredentialsFile := os.Getenv("FIREBASE_CREDENTIALS_FILE")
		if fcmCredentialsFile == "" {
			fcmCredentialsFile = "./firebase-service-account.json"
		}

		fcmService, err = services.NewFCMService(fcmCredentialsFile)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from file: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from file")
		}
	}

	// HERE geocoding (optional; geocoding endpoints return 503 when unset)
	var geocodingService *services.GeocodingService
	if apiKey := os.Getenv("HERE_API_KEY"); apiKey != "" {
		geocodingService = services.NewGeocodingService(apiKey)
		log.Println("✅ HERE geocoding service initialized")
	} else {
		log.Println("⚠️  HERE_API_KEY not set, geocoding endpoints disabled")
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()
	log.Println("✅ WebSocket hub started")

	// Trackers own the shift and task state machines
	store := tracker.NewSQLStore(db)
	shiftTracker := tracker.NewShiftTracker(store)
	taskTracker := tracker.NewTaskTracker(store, geofenceRadius)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Authentication routes (no auth required)
	r.Post("/api/auth/login", handlers.Login(db))

	// WebSocket endpoint (authentication handled in handler via query param)
	r.Get("/ws", websocket.HandleWebSocket(wsHub, db))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Diagnostic logging endpoint (no auth required for easier debugging)
		r.Post("/logs/diagnostic", handlers.ReceiveDiagnosticLog())

		// Worker endpoints (require authentication)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)

			// Auth status endpoint
			r.Get("/auth/status", handlers.GetAuthStatus(db))

			// Shift management
			r.Get("/worker/shift/current", handlers.GetCurrentShift(shiftTracker))
			r.Post("/worker/shift/start", handlers.StartShift(shiftTracker, wsHub))
			r.Post("/worker/shift/end", handlers.EndShift(shiftTracker, wsHub))
			r.Post("/worker/shift/break", handlers.BreakShift(shiftTracker, wsHub))
			r.Post("/worker/shift/resume", handlers.ResumeShift(shiftTracker, wsHub))
			r.Get("/worker/shift/today", handlers.GetTodaySummary(shiftTracker))
			r.Get("/worker/shift/history", handlers.GetShiftHistory(shiftTracker))

			// Task execution
			r.Get("/worker/tasks", handlers.GetWorkerTasks(taskTracker))
			r.Post("/worker/tasks/{id}/start", handlers.StartTask(taskTracker, wsHub))
			r.Post("/worker/tasks/{id}/pause", handlers.PauseTask(taskTracker, wsHub))
			r.Post("/worker/tasks/{id}/complete", handlers.CompleteTask(taskTracker, wsHub))
			r.Post("/worker/tasks/{id}/materials", handlers.RecordMaterialUsage(db))

			// Location tracking (sent every 10 seconds during active shift)
			r.Post("/worker/location", handlers.UpdateLocation(db, wsHub))

			// FCM token registration
			r.Post("/worker/fcm-token", handlers.RegisterFCMToken(db))
		})

		// Manager endpoints (manager, director or admin role)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)
			r.Use(middleware.RequireManager)

			// Task management
			r.Get("/manager/tasks", handlers.ListAllTasks(db))
			r.Post("/manager/tasks", handlers.CreateTask(db, wsHub, fcmService))
			r.Get("/tasks/{id}", handlers.GetTask(db))
			r.Patch("/tasks/{id}", handlers.UpdateTask(db, wsHub))
			r.Delete("/tasks/{id}", handlers.DeleteTask(taskTracker, db, wsHub))

			// Team oversight
			r.Get("/manager/workers", handlers.ListWorkers(db))
			r.Get("/manager/active-workers", handlers.GetActiveWorkers(db))
			r.Get("/manager/workers/{id}/shift", handlers.GetWorkerShiftDetails(db))
			r.Post("/manager/workers/{id}/shift-reminder", handlers.SendShiftReminder(db, fcmService))
			r.Get("/manager/worker-locations", handlers.GetWorkerLocations(db))

			// Reporting
			r.Get("/manager/performance", handlers.GetWorkerPerformance(db))
			r.Get("/manager/summary", handlers.GetTeamSummary(db, wsHub))

			// Materials inventory
			r.Get("/materials", handlers.ListMaterials(db))
			r.Post("/materials", handlers.CreateMaterial(db))
			r.Patch("/materials/{id}", handlers.UpdateMaterial(db))
			r.Delete("/materials/{id}", handlers.DeleteMaterial(db))

			// Geocoding (HERE-backed; disabled without HERE_API_KEY)
			r.Post("/geocoding/forward", handlers.Geocode(geocodingService))
			r.Post("/geocoding/reverse", handlers.ReverseGeocode(geocodingService))
		})

		// Admin endpoints (user management)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)
			r.Use(middleware.RequireRole(models.RoleAdmin))

			r.Post("/users", handlers.CreateUser(db))
			r.Get("/users", handlers.ListUsers(db))
			r.Get("/users/{id}", handlers.GetUser(db))
			r.Patch("/users/{id}", handlers.UpdateUser(db))
			r.Post("/users/{id}/role", handlers.ChangeUserRole(db, wsHub))
			r.Get("/role-change-logs", handlers.ListRoleChangeLogs(db))
		})
	})

	// Get port
	log.Println("🔍 Checking PORT environment variable...")
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		log.Printf("⚠️  PORT not set, using default: %s", port)
	} else {
		log.Printf("✅ PORT found: %s", port)
	}

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", port)
	log.Println("🔌 Ready to accept requests!")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Start server
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Server failed to start")
		log.Printf("   Error: %v", err)
		log.Printf("   Port: %s", port)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
}
