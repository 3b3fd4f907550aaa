package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"crewtrack-backend/internal/middleware"
	"crewtrack-backend/internal/models"
	"crewtrack-backend/internal/tracker"
	"crewtrack-backend/internal/websocket"
	"crewtrack-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

type TaskActionRequest struct {
	Latitude               *float64 `json:"latitude"`
	Longitude              *float64 `json:"longitude"`
	ConfirmOutsideGeofence bool     `json:"confirm_outside_geofence"`
	ConfirmNoLocation      bool     `json:"confirm_no_location"`
}

func broadcastTaskUpdate(hub *websocket.Hub, workerID, event string, task *models.Task) {
	hub.BroadcastToManagers(map[string]interface{}{
		"type": "task_update",
		"data": map[string]interface{}{
			"worker_id": workerID,
			"event":     event,
			"task":      task,
		},
	})
}

// GetWorkerTasks lists the tasks assigned to the authenticated worker
func GetWorkerTasks(tk *tracker.TaskTracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: GET /api/worker/tasks")

		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		tasks, err := tk.ListForWorker(r.Context(), userClaims.UserID)
		if err != nil {
			respondTrackerError(w, err)
			return
		}

		log.Printf("📤 RESPONSE: 200 - %d tasks", len(tasks))

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    tasks,
		})
	}
}

// StartTask moves a pending or paused task to in_progress.
// A pending start is gated on the task site geofence when the task
// carries a target location.
func StartTask(tk *tracker.TaskTracker, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taskID := chi.URLParam(r, "id")
		log.Printf("📥 REQUEST: POST /api/worker/tasks/%s/start", taskID)

		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req TaskActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		task, err := tk.Start(r.Context(), userClaims.UserID, taskID,
			positionFromRequest(req.Latitude, req.Longitude),
			tracker.StartConfirm{
				OutsideGeofence:    req.ConfirmOutsideGeofence,
				LocationUnverified: req.ConfirmNoLocation,
			})
		if err != nil {
			respondTrackerError(w, err)
			return
		}

		log.Printf("✅ Task started: %s (%s)", task.ID, task.Title)

		broadcastTaskUpdate(hub, userClaims.UserID, "started", task)

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    task,
		})
	}
}

// PauseTask moves an in_progress task to paused
func PauseTask(tk *tracker.TaskTracker, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taskID := chi.URLParam(r, "id")
		log.Printf("📥 REQUEST: POST /api/worker/tasks/%s/pause", taskID)

		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		task, err := tk.Pause(r.Context(), userClaims.UserID, taskID)
		if err != nil {
			respondTrackerError(w, err)
			return
		}

		log.Printf("✅ Task paused: %s", task.ID)

		broadcastTaskUpdate(hub, userClaims.UserID, "paused", task)

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    task,
		})
	}
}

// CompleteTask finishes a task from in_progress or paused
func CompleteTask(tk *tracker.TaskTracker, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taskID := chi.URLParam(r, "id")
		log.Printf("📥 REQUEST: POST /api/worker/tasks/%s/complete", taskID)

		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req TaskActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		task, err := tk.Complete(r.Context(), userClaims.UserID, taskID,
			positionFromRequest(req.Latitude, req.Longitude))
		if err != nil {
			respondTrackerError(w, err)
			return
		}

		log.Printf("✅ Task completed: %s", task.ID)

		broadcastTaskUpdate(hub, userClaims.UserID, "completed", task)

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    task,
		})
	}
}
