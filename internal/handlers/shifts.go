package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"crewtrack-backend/internal/geo"
	"crewtrack-backend/internal/middleware"
	"crewtrack-backend/internal/tracker"
	"crewtrack-backend/internal/websocket"
	"crewtrack-backend/pkg/utils"
)

// positionFromRequest builds a geo.Position from optional request coordinates
func positionFromRequest(lat, lon *float64) *geo.Position {
	if lat == nil || lon == nil {
		return nil
	}
	return &geo.Position{Lat: *lat, Lon: *lon}
}

// respondTrackerError translates tracker errors into HTTP responses
func respondTrackerError(w http.ResponseWriter, err error) {
	if conf, ok := tracker.AsConfirmation(err); ok {
		log.Printf("📤 RESPONSE: 409 - Confirmation required (%s)", conf.Reason)
		utils.RespondConfirmation(w, conf.Reason, conf.Message)
		return
	}
	if it, ok := tracker.AsInvalidTransition(err); ok {
		log.Printf("📤 RESPONSE: 409 - %v", it)
		utils.RespondError(w, http.StatusConflict, it.Error())
		return
	}

	switch {
	case errors.Is(err, tracker.ErrBusy):
		utils.RespondError(w, http.StatusConflict, "Another update for this resource is still in progress")
	case errors.Is(err, tracker.ErrShiftAlreadyOpen):
		utils.RespondError(w, http.StatusConflict, "You already have an open shift")
	case errors.Is(err, tracker.ErrNoOpenSession):
		utils.RespondError(w, http.StatusBadRequest, "No open shift")
	case errors.Is(err, tracker.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, tracker.ErrNotAssignee):
		utils.RespondError(w, http.StatusForbidden, "Task is assigned to another worker")
	case errors.Is(err, tracker.ErrConflict):
		utils.RespondError(w, http.StatusConflict, "The record changed underneath this request, reload and retry")
	default:
		log.Printf("❌ Tracker error: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

type ShiftActionRequest struct {
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
	ConfirmNoLocation bool     `json:"confirm_no_location"`
	ConfirmActiveTask bool     `json:"confirm_active_task"`
}

// GetCurrentShift returns the worker's open session, if any
func GetCurrentShift(tr *tracker.ShiftTracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: GET /api/worker/shift/current")

		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		current, err := tr.Current(r.Context(), userClaims.UserID)
		if err != nil {
			respondTrackerError(w, err)
			return
		}

		if current == nil {
			log.Printf("📤 RESPONSE: 200 - No open shift")
			utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"data":    nil,
			})
			return
		}

		log.Printf("📤 RESPONSE: 200 OK")
		log.Printf("   Session ID: %s", current.Session.ID)
		log.Printf("   Elapsed: %ds (on break: %v)", current.ElapsedSeconds, current.Session.OnBreak)

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"session":         current.Session,
				"elapsed_seconds": current.ElapsedSeconds,
			},
		})
	}
}

// StartShift opens a new work session for the worker
func StartShift(tr *tracker.ShiftTracker, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /api/worker/shift/start")

		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req ShiftActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		log.Printf("   User: %s (%s)", userClaims.Email, userClaims.UserID)

		session, err := tr.Start(r.Context(), userClaims.UserID, positionFromRequest(req.Latitude, req.Longitude), req.ConfirmNoLocation)
		if err != nil {
			respondTrackerError(w, err)
			return
		}

		log.Printf("✅ Shift started: %s", session.ID)

		hub.BroadcastToManagers(map[string]interface{}{
			"type": "worker_shift_change",
			"data": map[string]interface{}{
				"worker_id":  userClaims.UserID,
				"event":      "started",
				"session_id": session.ID,
				"start_time": session.StartTime,
			},
		})

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    session,
		})
	}
}

// EndShift closes the open session and computes final pay
func EndShift(tr *tracker.ShiftTracker, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /api/worker/shift/end")

		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req ShiftActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		result, err := tr.End(r.Context(), userClaims.UserID, positionFromRequest(req.Latitude, req.Longitude), req.ConfirmActiveTask)
		if err != nil {
			respondTrackerError(w, err)
			return
		}

		log.Printf("✅ Shift ended: %s", result.SessionID)
		log.Printf("   Total hours: %.2f", result.TotalHours)
		log.Printf("   Earnings: %.2f", result.Earnings)

		hub.BroadcastToManagers(map[string]interface{}{
			"type": "worker_shift_change",
			"data": map[string]interface{}{
				"worker_id":   userClaims.UserID,
				"event":       "ended",
				"session_id":  result.SessionID,
				"total_hours": result.TotalHours,
				"earnings":    result.Earnings,
			},
		})

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    result,
		})
	}
}

// BreakShift marks the open session as on break (display only, pay keeps running)
func BreakShift(tr *tracker.ShiftTracker, hub *websocket.Hub) http.HandlerFunc {
	return shiftBreakHandler(tr, hub, true)
}

// ResumeShift clears the break flag on the open session
func ResumeShift(tr *tracker.ShiftTracker, hub *websocket.Hub) http.HandlerFunc {
	return shiftBreakHandler(tr, hub, false)
}

func shiftBreakHandler(tr *tracker.ShiftTracker, hub *websocket.Hub, onBreak bool) http.HandlerFunc {
	event := "break"
	if !onBreak {
		event = "resumed"
	}

	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /api/worker/shift/%s", event)

		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var session interface{}
		var err error
		if onBreak {
			session, err = tr.Break(r.Context(), userClaims.UserID)
		} else {
			session, err = tr.Resume(r.Context(), userClaims.UserID)
		}
		if err != nil {
			respondTrackerError(w, err)
			return
		}

		log.Printf("✅ Shift %s for worker %s", event, userClaims.UserID)

		hub.BroadcastToManagers(map[string]interface{}{
			"type": "worker_shift_change",
			"data": map[string]interface{}{
				"worker_id": userClaims.UserID,
				"event":     event,
			},
		})

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    session,
		})
	}
}

// GetTodaySummary aggregates the worker's closed sessions since local midnight
func GetTodaySummary(tr *tracker.ShiftTracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: GET /api/worker/shift/today")

		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		summary, err := tr.Today(r.Context(), userClaims.UserID)
		if err != nil {
			respondTrackerError(w, err)
			return
		}

		log.Printf("📤 RESPONSE: 200 - %.2fh over %d sessions", summary.TotalHours, summary.SessionCount)

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    summary,
		})
	}
}

// GetShiftHistory returns the worker's most recent closed sessions
func GetShiftHistory(tr *tracker.ShiftTracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: GET /api/worker/shift/history")

		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		limit := 10
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil {
				limit = parsed
			}
		}

		sessions, err := tr.History(r.Context(), userClaims.UserID, limit)
		if err != nil {
			respondTrackerError(w, err)
			return
		}

		log.Printf("📤 RESPONSE: 200 - %d sessions", len(sessions))

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    sessions,
		})
	}
}
