package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"crewtrack-backend/internal/websocket"
	"crewtrack-backend/pkg/utils"

	"github.com/jmoiron/sqlx"
)

// WorkerPerformance is one aggregated row of the manager report
type WorkerPerformance struct {
	WorkerID       string   `json:"worker_id" db:"worker_id"`
	WorkerName     string   `json:"worker_name" db:"worker_name"`
	HourlyRate     *float64 `json:"hourly_rate" db:"hourly_rate"`
	SessionCount   int      `json:"session_count" db:"session_count"`
	TotalHours     float64  `json:"total_hours" db:"total_hours"`
	TotalEarnings  float64  `json:"total_earnings" db:"total_earnings"`
	TasksCompleted int      `json:"tasks_completed" db:"tasks_completed"`
}

// periodBounds parses ?from and ?to epoch-second query params, defaulting
// to the last 7 days.
func periodBounds(r *http.Request) (int64, int64) {
	now := time.Now().Unix()
	from := now - 7*24*3600
	to := now

	if raw := r.URL.Query().Get("from"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			from = parsed
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			to = parsed
		}
	}
	return from, to
}

// GetWorkerPerformance returns per-worker hours, earnings and completed
// task counts over a period. Closed sessions only, earnings as recorded
// at close time.
func GetWorkerPerformance(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, to := periodBounds(r)
		log.Printf("📥 REQUEST: GET /api/manager/performance (%d → %d)", from, to)

		query := `
			SELECT
				u.id AS worker_id,
				u.name AS worker_name,
				u.hourly_rate,
				COALESCE(s.session_count, 0) AS session_count,
				COALESCE(s.total_hours, 0) AS total_hours,
				COALESCE(s.total_earnings, 0) AS total_earnings,
				COALESCE(t.tasks_completed, 0) AS tasks_completed
			FROM users u
			LEFT JOIN (
				SELECT user_id,
					   COUNT(*) AS session_count,
					   SUM(total_hours) AS total_hours,
					   SUM(earnings) AS total_earnings
				FROM work_sessions
				WHERE end_time IS NOT NULL AND start_time >= $1 AND start_time < $2
				GROUP BY user_id
			) s ON u.id = s.user_id
			LEFT JOIN (
				SELECT assigned_to,
					   COUNT(*) AS tasks_completed
				FROM tasks
				WHERE status = 'completed' AND completed_at >= $1 AND completed_at < $2
				GROUP BY assigned_to
			) t ON u.id = t.assigned_to
			WHERE u.role = 'worker' AND u.is_active
			ORDER BY total_earnings DESC, u.name
		`

		var rows []WorkerPerformance
		if err := db.Select(&rows, query, from, to); err != nil {
			log.Printf("❌ Error building performance report: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		log.Printf("📤 RESPONSE: 200 - %d workers", len(rows))

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"from":    from,
				"to":      to,
				"workers": rows,
			},
		})
	}
}

// TeamSummary is the headline figures for the manager dashboard
type TeamSummary struct {
	ActiveSessions    int     `json:"active_sessions" db:"active_sessions"`
	WorkersOnBreak    int     `json:"workers_on_break" db:"workers_on_break"`
	TasksInProgress   int     `json:"tasks_in_progress" db:"tasks_in_progress"`
	TasksPending      int     `json:"tasks_pending" db:"tasks_pending"`
	TasksCompletedDay int     `json:"tasks_completed_today" db:"tasks_completed_today"`
	EarningsToday     float64 `json:"earnings_today" db:"earnings_today"`
}

// startOfToday returns local midnight as epoch seconds, the same day
// boundary the worker's own today summary uses.
func startOfToday(now time.Time) int64 {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).Unix()
}

// GetTeamSummary returns live counts for the manager dashboard header
func GetTeamSummary(db *sqlx.DB, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: GET /api/manager/summary")

		midnight := startOfToday(time.Now())

		query := `
			SELECT
				(SELECT COUNT(*) FROM work_sessions WHERE end_time IS NULL) AS active_sessions,
				(SELECT COUNT(*) FROM work_sessions WHERE end_time IS NULL AND on_break) AS workers_on_break,
				(SELECT COUNT(*) FROM tasks WHERE status = 'in_progress') AS tasks_in_progress,
				(SELECT COUNT(*) FROM tasks WHERE status = 'pending') AS tasks_pending,
				(SELECT COUNT(*) FROM tasks WHERE status = 'completed' AND completed_at >= $1) AS tasks_completed_today,
				(SELECT COALESCE(SUM(earnings), 0) FROM work_sessions WHERE end_time IS NOT NULL AND end_time >= $1) AS earnings_today
		`

		var summary TeamSummary
		if err := db.Get(&summary, query, midnight); err != nil {
			log.Printf("❌ Error building team summary: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"summary":           summary,
				"connected_clients": hub.GetClientCount(),
			},
		})
	}
}
