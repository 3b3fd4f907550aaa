package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"crewtrack-backend/internal/middleware"
	"crewtrack-backend/internal/models"
	"crewtrack-backend/internal/websocket"
	"crewtrack-backend/pkg/utils"

	"github.com/jmoiron/sqlx"
)

type LocationUpdateRequest struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy"`
	SessionID *string  `json:"session_id"`
	Timestamp *int64   `json:"timestamp"`
}

// UpdateLocation stores a GPS sample for the worker and rebroadcasts it to
// management clients. HTTP fallback for the WebSocket location_update path.
func UpdateLocation(db *sqlx.DB, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /api/worker/location")

		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req LocationUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		timestamp := time.Now().Unix()
		if req.Timestamp != nil {
			timestamp = *req.Timestamp
		}

		var location models.WorkerLocation
		query := `
			INSERT INTO worker_locations (worker_id, latitude, longitude, accuracy, session_id, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, worker_id, latitude, longitude, accuracy, session_id, timestamp, created_at
		`
		err := db.Get(&location, query, userClaims.UserID, req.Latitude, req.Longitude,
			req.Accuracy, req.SessionID, timestamp)
		if err != nil {
			log.Printf("❌ Error saving location: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to save location")
			return
		}

		log.Printf("✅ Location stored for worker %s (%.6f, %.6f)", userClaims.UserID, req.Latitude, req.Longitude)

		hub.BroadcastToManagers(map[string]interface{}{
			"type": "worker_location_update",
			"data": location,
		})

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    location,
		})
	}
}

// GetWorkerLocations returns the recent location trail for one worker
func GetWorkerLocations(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workerID := r.URL.Query().Get("worker_id")
		if workerID == "" {
			utils.RespondError(w, http.StatusBadRequest, "worker_id query parameter is required")
			return
		}

		log.Printf("📥 REQUEST: GET /api/manager/worker-locations?worker_id=%s", workerID)

		var locations []models.WorkerLocation
		query := `
			SELECT * FROM worker_locations
			WHERE worker_id = $1
			ORDER BY timestamp DESC
			LIMIT 100
		`
		if err := db.Select(&locations, query, workerID); err != nil {
			log.Printf("❌ Error loading locations: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    locations,
		})
	}
}

type RegisterFCMTokenRequest struct {
	Token      string `json:"token"`
	DeviceType string `json:"device_type"`
}

// RegisterFCMToken upserts a device push token for the authenticated user
func RegisterFCMToken(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /api/worker/fcm-token")

		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req RegisterFCMTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Token == "" {
			utils.RespondError(w, http.StatusBadRequest, "token is required")
			return
		}
		if req.DeviceType != "ios" && req.DeviceType != "android" {
			utils.RespondError(w, http.StatusBadRequest, "device_type must be 'ios' or 'android'")
			return
		}

		query := `
			INSERT INTO fcm_tokens (user_id, token, device_type)
			VALUES ($1, $2, $3)
			ON CONFLICT (token)
			DO UPDATE SET
				user_id = EXCLUDED.user_id,
				device_type = EXCLUDED.device_type,
				updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
		`
		if _, err := db.Exec(query, userClaims.UserID, req.Token, req.DeviceType); err != nil {
			log.Printf("❌ Error registering FCM token: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to register token")
			return
		}

		log.Printf("✅ FCM token registered for %s (%s)", userClaims.UserID, req.DeviceType)

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"registered": true},
		})
	}
}
