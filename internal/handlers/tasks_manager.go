package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"crewtrack-backend/internal/middleware"
	"crewtrack-backend/internal/models"
	"crewtrack-backend/internal/services"
	"crewtrack-backend/internal/tracker"
	"crewtrack-backend/internal/websocket"
	"crewtrack-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type TaskMaterialRequest struct {
	MaterialID     string  `json:"material_id"`
	QuantityNeeded float64 `json:"quantity_needed"`
}

type CreateTaskRequest struct {
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Priority       string                `json:"priority"`
	AssignedTo     string                `json:"assigned_to"`
	EstimatedHours *float64              `json:"estimated_hours"`
	TargetLocation *string               `json:"target_location"`
	Materials      []TaskMaterialRequest `json:"materials"`
}

type UpdateTaskRequest struct {
	Title          *string  `json:"title"`
	Description    *string  `json:"description"`
	Priority       *string  `json:"priority"`
	AssignedTo     *string  `json:"assigned_to"`
	EstimatedHours *float64 `json:"estimated_hours"`
	TargetLocation *string  `json:"target_location"`
}

func validPriority(p string) bool {
	switch models.TaskPriority(p) {
	case models.TaskPriorityLow, models.TaskPriorityMedium, models.TaskPriorityHigh:
		return true
	}
	return false
}

// notifyTaskAssigned pushes an FCM notification to every registered device
// of the assignee. Push failures are logged, never surfaced to the caller.
// Assignees with a live WebSocket already got the task_assigned event, so
// they are not pushed twice.
func notifyTaskAssigned(db *sqlx.DB, hub *websocket.Hub, fcm *services.FCMService, task *models.Task) {
	if fcm == nil {
		return
	}
	if hub.IsUserConnected(task.AssignedTo) {
		log.Printf("📡 Assignee %s is connected, skipping push", task.AssignedTo)
		return
	}

	var tokens []string
	if err := db.Select(&tokens, "SELECT token FROM fcm_tokens WHERE user_id = $1", task.AssignedTo); err != nil {
		log.Printf("❌ Failed to load FCM tokens for %s: %v", task.AssignedTo, err)
		return
	}

	switch len(tokens) {
	case 0:
		return
	case 1:
		if err := fcm.SendTaskAssignedNotification(tokens[0], task.ID, task.Title, string(task.Priority)); err != nil {
			log.Printf("⚠️ FCM push failed for %s: %v", task.AssignedTo, err)
		}
	default:
		body := fmt.Sprintf("%s (%s priority)", task.Title, task.Priority)
		data := map[string]string{
			"type":     "task_assigned",
			"task_id":  task.ID,
			"priority": string(task.Priority),
		}
		if err := fcm.SendMulticast(tokens, "New Task Assigned!", body, data); err != nil {
			log.Printf("⚠️ FCM multicast failed for %s: %v", task.AssignedTo, err)
		}
	}
}

// ListAllTasks returns every task joined with assignee/creator names
func ListAllTasks(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: GET /api/manager/tasks")

		query := `SELECT t.*,
						 u.name AS assignee_name,
						 COALESCE(c.name, '') AS creator_name
				  FROM tasks t
				  JOIN users u ON t.assigned_to = u.id
				  LEFT JOIN users c ON t.created_by = c.id`

		args := []interface{}{}
		if status := r.URL.Query().Get("status"); status != "" {
			query += " WHERE t.status = $1"
			args = append(args, status)
		}
		query += ` ORDER BY
					CASE t.status
					  WHEN 'in_progress' THEN 1
					  WHEN 'paused' THEN 2
					  WHEN 'pending' THEN 3
					  WHEN 'completed' THEN 4
					END ASC,
					t.created_at DESC`

		var tasks []models.TaskWithPeople
		if err := db.Select(&tasks, query, args...); err != nil {
			log.Printf("❌ Error listing tasks: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		log.Printf("📤 RESPONSE: 200 - %d tasks", len(tasks))

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    tasks,
		})
	}
}

// GetTask returns a single task with its material requirements
func GetTask(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taskID := chi.URLParam(r, "id")
		log.Printf("📥 REQUEST: GET /api/tasks/%s", taskID)

		var task models.Task
		if err := db.Get(&task, "SELECT * FROM tasks WHERE id = $1", taskID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				utils.RespondError(w, http.StatusNotFound, "Task not found")
				return
			}
			log.Printf("❌ Error getting task: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		materialsQuery := `SELECT tm.id, tm.task_id, tm.material_id, tm.quantity_needed, tm.quantity_used,
								  m.name AS material_name, m.unit AS material_unit
						   FROM task_materials tm
						   JOIN materials m ON tm.material_id = m.id
						   WHERE tm.task_id = $1
						   ORDER BY tm.id`
		if err := db.Select(&task.Materials, materialsQuery, taskID); err != nil {
			log.Printf("❌ Error getting task materials: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    task,
		})
	}
}

// CreateTask creates a pending task, reserves its materials and notifies
// the assignee over WebSocket and FCM
func CreateTask(db *sqlx.DB, hub *websocket.Hub, fcm *services.FCMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /api/manager/tasks")

		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req CreateTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Title == "" || req.AssignedTo == "" {
			utils.RespondError(w, http.StatusBadRequest, "title and assigned_to are required")
			return
		}
		if req.Priority == "" {
			req.Priority = string(models.TaskPriorityMedium)
		}
		if !validPriority(req.Priority) {
			utils.RespondError(w, http.StatusBadRequest, "priority must be low, medium or high")
			return
		}

		// Assignee must be an active worker
		var assignee models.User
		if err := db.Get(&assignee, "SELECT * FROM users WHERE id = $1", req.AssignedTo); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Assignee not found")
			return
		}
		if assignee.Role != models.RoleWorker || !assignee.IsActive {
			utils.RespondError(w, http.StatusBadRequest, "Tasks can only be assigned to active workers")
			return
		}

		now := time.Now().Unix()
		taskID := uuid.New().String()

		tx, err := db.Beginx()
		if err != nil {
			log.Printf("❌ Error starting transaction: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}
		defer tx.Rollback()

		insertQuery := `
			INSERT INTO tasks (id, title, description, priority, status, assigned_to, created_by,
							   estimated_hours, target_location, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 'pending', $5, $6, $7, $8, $9, $9)
		`
		if _, err := tx.Exec(insertQuery, taskID, req.Title, req.Description, req.Priority,
			req.AssignedTo, userClaims.UserID, req.EstimatedHours, req.TargetLocation, now); err != nil {
			log.Printf("❌ Error creating task: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create task")
			return
		}

		for _, m := range req.Materials {
			if _, err := tx.Exec(`
				INSERT INTO task_materials (task_id, material_id, quantity_needed)
				VALUES ($1, $2, $3)
			`, taskID, m.MaterialID, m.QuantityNeeded); err != nil {
				log.Printf("❌ Error attaching material %s: %v", m.MaterialID, err)
				utils.RespondError(w, http.StatusBadRequest, "Invalid material reference")
				return
			}
		}

		if err := tx.Commit(); err != nil {
			log.Printf("❌ Error committing task: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		var task models.Task
		if err := db.Get(&task, "SELECT * FROM tasks WHERE id = $1", taskID); err != nil {
			log.Printf("❌ Error reloading task: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		log.Printf("✅ Task created: %s (%s) for %s", task.ID, task.Title, assignee.Email)

		hub.BroadcastToUser(req.AssignedTo, map[string]interface{}{
			"type": "task_assigned",
			"data": task,
		})
		go notifyTaskAssigned(db, hub, fcm, &task)

		utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"data":    task,
		})
	}
}

// UpdateTask edits task metadata. Reassignment is only allowed while the
// task is still pending; lifecycle fields are owned by the worker endpoints.
func UpdateTask(db *sqlx.DB, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taskID := chi.URLParam(r, "id")
		log.Printf("📥 REQUEST: PATCH /api/tasks/%s", taskID)

		var req UpdateTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		var task models.Task
		if err := db.Get(&task, "SELECT * FROM tasks WHERE id = $1", taskID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				utils.RespondError(w, http.StatusNotFound, "Task not found")
				return
			}
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		if req.Priority != nil && !validPriority(*req.Priority) {
			utils.RespondError(w, http.StatusBadRequest, "priority must be low, medium or high")
			return
		}
		if req.AssignedTo != nil && task.Status != models.TaskStatusPending {
			utils.RespondError(w, http.StatusConflict, "Only pending tasks can be reassigned")
			return
		}

		if req.Title != nil {
			task.Title = *req.Title
		}
		if req.Description != nil {
			task.Description = *req.Description
		}
		if req.Priority != nil {
			task.Priority = models.TaskPriority(*req.Priority)
		}
		if req.AssignedTo != nil {
			task.AssignedTo = *req.AssignedTo
		}
		if req.EstimatedHours != nil {
			task.EstimatedHours = req.EstimatedHours
		}
		if req.TargetLocation != nil {
			task.TargetLocation = req.TargetLocation
		}

		updateQuery := `
			UPDATE tasks
			SET title = $1, description = $2, priority = $3, assigned_to = $4,
				estimated_hours = $5, target_location = $6,
				updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
			WHERE id = $7
		`
		if _, err := db.Exec(updateQuery, task.Title, task.Description, task.Priority,
			task.AssignedTo, task.EstimatedHours, task.TargetLocation, taskID); err != nil {
			log.Printf("❌ Error updating task: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update task")
			return
		}

		log.Printf("✅ Task updated: %s", taskID)

		hub.BroadcastToUser(task.AssignedTo, map[string]interface{}{
			"type": "task_updated",
			"data": task,
		})

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    task,
		})
	}
}

// DeleteTask removes a task and its material rows
func DeleteTask(tk *tracker.TaskTracker, db *sqlx.DB, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taskID := chi.URLParam(r, "id")
		log.Printf("📥 REQUEST: DELETE /api/tasks/%s", taskID)

		// Remember the assignee so they can be told the task is gone
		var assignedTo string
		if err := db.Get(&assignedTo, "SELECT assigned_to FROM tasks WHERE id = $1", taskID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				utils.RespondError(w, http.StatusNotFound, "Task not found")
				return
			}
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		if err := tk.Delete(r.Context(), taskID); err != nil {
			respondTrackerError(w, err)
			return
		}

		log.Printf("✅ Task deleted: %s", taskID)

		hub.BroadcastToUser(assignedTo, map[string]interface{}{
			"type": "task_deleted",
			"data": map[string]interface{}{"task_id": taskID},
		})

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"deleted": taskID},
		})
	}
}
