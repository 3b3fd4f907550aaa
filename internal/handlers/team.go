package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"

	"github.com/jmoiron/sqlx"

	"crewtrack-backend/internal/models"
)

// WorkerPosition is the last reported GPS fix for a worker
type WorkerPosition struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ActiveWorkerResponse is a worker with an open session, for the live team board
type ActiveWorkerResponse struct {
	WorkerID        string          `json:"worker_id"`
	WorkerName      string          `json:"worker_name"`
	SessionID       string          `json:"session_id"`
	StartTime       int64           `json:"start_time"`
	OnBreak         bool            `json:"on_break"`
	ActiveTaskID    *string         `json:"active_task_id,omitempty"`
	ActiveTaskTitle *string         `json:"active_task_title,omitempty"`
	CurrentLocation *WorkerPosition `json:"current_location,omitempty"`
}

// GetActiveWorkers returns every worker with an open session, joined with
// their latest reported location and their in_progress task if any
func GetActiveWorkers(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Println("📋 GetActiveWorkers: Fetching workers with open sessions...")

		query := `
			SELECT
				ws.id AS session_id,
				ws.user_id AS worker_id,
				u.name AS worker_name,
				ws.start_time,
				ws.on_break,
				t.id AS task_id,
				t.title AS task_title,
				wl.latitude,
				wl.longitude
			FROM work_sessions ws
			INNER JOIN users u ON ws.user_id = u.id
			LEFT JOIN tasks t ON t.assigned_to = ws.user_id AND t.status = 'in_progress'
			LEFT JOIN (
				-- Most recent location fix per worker
				SELECT DISTINCT ON (worker_id)
					worker_id, latitude, longitude
				FROM worker_locations
				ORDER BY worker_id, timestamp DESC
			) wl ON ws.user_id = wl.worker_id
			WHERE ws.end_time IS NULL
			ORDER BY ws.start_time ASC
		`

		rows, err := db.Query(query)
		if err != nil {
			log.Printf("❌ Database error: %v", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   "Failed to fetch active workers",
			})
			return
		}
		defer rows.Close()

		var activeWorkers []ActiveWorkerResponse

		for rows.Next() {
			var worker ActiveWorkerResponse
			var taskID, taskTitle sql.NullString
			var latitude, longitude sql.NullFloat64

			err := rows.Scan(
				&worker.SessionID,
				&worker.WorkerID,
				&worker.WorkerName,
				&worker.StartTime,
				&worker.OnBreak,
				&taskID,
				&taskTitle,
				&latitude,
				&longitude,
			)
			if err != nil {
				log.Printf("❌ Row scan error: %v", err)
				continue
			}

			if taskID.Valid {
				worker.ActiveTaskID = &taskID.String
				worker.ActiveTaskTitle = &taskTitle.String
			}
			if latitude.Valid && longitude.Valid {
				worker.CurrentLocation = &WorkerPosition{
					Latitude:  latitude.Float64,
					Longitude: longitude.Float64,
				}
			}

			activeWorkers = append(activeWorkers, worker)
		}

		if err = rows.Err(); err != nil {
			log.Printf("❌ Rows iteration error: %v", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   "Failed to process active workers",
			})
			return
		}

		log.Printf("✅ Found %d active worker(s)", len(activeWorkers))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    activeWorkers,
		})
	}
}

// ListWorkers returns every active worker account, for assignment pickers
func ListWorkers(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Println("📋 ListWorkers: Fetching worker accounts...")

		var workers []models.User
		query := `
			SELECT * FROM users
			WHERE role = 'worker' AND is_active = true
			ORDER BY name ASC
		`
		if err := db.Select(&workers, query); err != nil {
			log.Printf("❌ Database error: %v", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   "Failed to fetch workers",
			})
			return
		}

		responses := make([]models.UserResponse, 0, len(workers))
		for i := range workers {
			responses = append(responses, workers[i].ToUserResponse())
		}

		log.Printf("✅ Found %d worker(s)", len(responses))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    responses,
		})
	}
}
