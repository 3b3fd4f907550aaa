package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"crewtrack-backend/internal/models"
	"crewtrack-backend/internal/services"
	"crewtrack-backend/pkg/utils"
)

// WorkerShiftDetailResponse represents detailed session information for a specific worker
type WorkerShiftDetailResponse struct {
	WorkerID          string                  `json:"worker_id"`
	WorkerName        string                  `json:"worker_name"`
	SessionID         string                  `json:"session_id"`
	StartTime         int64                   `json:"start_time"`
	EndTime           *int64                  `json:"end_time"`
	OnBreak           bool                    `json:"on_break"`
	HourlyRate        *float64                `json:"hourly_rate"`
	ElapsedSeconds    int64                   `json:"elapsed_seconds"`
	EarnedAmount      *float64                `json:"earned_amount"`
	Tasks             []models.TaskWithPeople `json:"tasks"`
}

// GetWorkerShiftDetails returns the open session and task list for a specific worker (manager view)
func GetWorkerShiftDetails(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workerID := chi.URLParam(r, "id")
		if workerID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   "worker id is required",
			})
			return
		}

		log.Printf("📋 GetWorkerShiftDetails: Fetching session details for worker: %s", workerID)

		sessionQuery := `
		SELECT
			ws.id AS session_id,
			ws.user_id,
			u.name AS worker_name,
			u.hourly_rate,
			ws.start_time,
			ws.end_time,
			ws.on_break
		FROM work_sessions ws
		INNER JOIN users u ON ws.user_id = u.id
		WHERE ws.user_id = $1
			AND ws.end_time IS NULL
		ORDER BY ws.start_time DESC
		LIMIT 1
	`

		var detail WorkerShiftDetailResponse
		err := db.QueryRow(sessionQuery, workerID).Scan(
			&detail.SessionID,
			&detail.WorkerID,
			&detail.WorkerName,
			&detail.HourlyRate,
			&detail.StartTime,
			&detail.EndTime,
			&detail.OnBreak,
		)

		if err == sql.ErrNoRows {
			log.Printf("⚠️  No open session found for worker: %s", workerID)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   "No open session found for this worker",
			})
			return
		}

		if err != nil {
			log.Printf("❌ Database error: %v", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   "Failed to fetch session details",
			})
			return
		}

		session := models.WorkSession{
			ID:        detail.SessionID,
			UserID:    detail.WorkerID,
			StartTime: detail.StartTime,
			EndTime:   detail.EndTime,
			OnBreak:   detail.OnBreak,
		}
		detail.ElapsedSeconds = session.ElapsedSeconds(time.Now())
		if detail.HourlyRate != nil {
			earned := float64(detail.ElapsedSeconds) / 3600.0 * *detail.HourlyRate
			detail.EarnedAmount = &earned
		}

		tasksQuery := `
		SELECT
			t.*,
			u.name AS assignee_name,
			COALESCE(c.name, '') AS creator_name
		FROM tasks t
		INNER JOIN users u ON t.assigned_to = u.id
		LEFT JOIN users c ON t.created_by = c.id
		WHERE t.assigned_to = $1
			AND t.status != 'completed'
		ORDER BY t.created_at DESC
	`

		var tasks []models.TaskWithPeople
		if err := db.Select(&tasks, tasksQuery, workerID); err != nil {
			log.Printf("❌ Error fetching tasks: %v", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   "Failed to fetch tasks",
			})
			return
		}

		detail.Tasks = tasks
		if detail.Tasks == nil {
			detail.Tasks = []models.TaskWithPeople{}
		}

		log.Printf("✅ Found open session with %d tasks for worker: %s", len(tasks), detail.WorkerName)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    detail,
		})
	}
}

// SendShiftReminder pushes a reminder to a worker whose session is still
// open. Managers use it from the team board when someone forgot to clock
// out. POST /api/manager/workers/{id}/shift-reminder
func SendShiftReminder(db *sqlx.DB, fcm *services.FCMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workerID := chi.URLParam(r, "id")
		log.Printf("📥 REQUEST: POST /api/manager/workers/%s/shift-reminder", workerID)

		if fcm == nil {
			utils.RespondError(w, http.StatusServiceUnavailable, "Push notifications are not configured")
			return
		}

		var session struct {
			ID        string `db:"id"`
			StartTime int64  `db:"start_time"`
		}
		query := `
			SELECT id, start_time FROM work_sessions
			WHERE user_id = $1 AND end_time IS NULL
			ORDER BY start_time DESC
			LIMIT 1
		`
		if err := db.Get(&session, query, workerID); err != nil {
			if err == sql.ErrNoRows {
				utils.RespondError(w, http.StatusNotFound, "No open session found for this worker")
				return
			}
			log.Printf("❌ Database error: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch session")
			return
		}

		var tokens []string
		if err := db.Select(&tokens, "SELECT token FROM fcm_tokens WHERE user_id = $1", workerID); err != nil {
			log.Printf("❌ Failed to load FCM tokens for %s: %v", workerID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load devices")
			return
		}
		if len(tokens) == 0 {
			utils.RespondError(w, http.StatusNotFound, "Worker has no registered devices")
			return
		}

		openHours := float64(time.Now().Unix()-session.StartTime) / 3600.0

		notified := 0
		for _, token := range tokens {
			if err := fcm.SendShiftReminderNotification(token, session.ID, openHours); err != nil {
				log.Printf("⚠️ Reminder push failed for %s: %v", workerID, err)
				continue
			}
			notified++
		}

		log.Printf("✅ Shift reminder sent to %d device(s) for worker %s (%.1fh open)", notified, workerID, openHours)

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"session_id": session.ID,
				"open_hours": openHours,
				"notified":   notified,
			},
		})
	}
}
