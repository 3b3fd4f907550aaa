package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"crewtrack-backend/internal/middleware"
	"crewtrack-backend/internal/models"
	"crewtrack-backend/internal/websocket"
	"crewtrack-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

type CreateUserRequest struct {
	Email      string   `json:"email"`
	Password   string   `json:"password"`
	Name       string   `json:"name"`
	Role       string   `json:"role"`
	HourlyRate *float64 `json:"hourly_rate"`
}

type CreateUserResponse struct {
	Success bool                 `json:"success"`
	User    *models.UserResponse `json:"user,omitempty"`
	Message string               `json:"message,omitempty"`
}

func validRole(role string) bool {
	switch role {
	case models.RoleWorker, models.RoleManager, models.RoleDirector, models.RoleAdmin:
		return true
	}
	return false
}

// CreateUser creates a new user account. Requires admin authentication.
func CreateUser(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("📥 REQUEST: POST /api/users - Create new user")

		var req CreateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Printf("❌ Invalid request body: %v", err)
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Email == "" || req.Password == "" || req.Name == "" || req.Role == "" {
			log.Println("❌ Missing required fields")
			utils.RespondError(w, http.StatusBadRequest, "Email, password, name, and role are required")
			return
		}

		if !validRole(req.Role) {
			log.Printf("❌ Invalid role: %s", req.Role)
			utils.RespondError(w, http.StatusBadRequest, "Role must be 'worker', 'manager', 'director', or 'admin'")
			return
		}

		log.Printf("   📧 Email: %s", req.Email)
		log.Printf("   👤 Name: %s", req.Name)
		log.Printf("   🔑 Role: %s", req.Role)

		// Check if user already exists
		var existingUser models.User
		checkQuery := "SELECT id FROM users WHERE email = $1"
		err := db.Get(&existingUser, checkQuery, req.Email)
		if err == nil {
			log.Printf("❌ User already exists: %s", req.Email)
			utils.RespondError(w, http.StatusConflict, "User with this email already exists")
			return
		}

		log.Println("🔒 Hashing password...")
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("❌ Failed to hash password: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to hash password")
			return
		}

		now := time.Now().Unix()
		user := models.User{
			ID:         uuid.New().String(),
			Email:      req.Email,
			Password:   string(hashedPassword),
			Name:       req.Name,
			Role:       req.Role,
			HourlyRate: req.HourlyRate,
			IsActive:   true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		log.Println("💾 Inserting user into database...")
		insertQuery := `
			INSERT INTO users (id, email, password, name, role, hourly_rate, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		_, err = db.Exec(
			insertQuery,
			user.ID,
			user.Email,
			user.Password,
			user.Name,
			user.Role,
			user.HourlyRate,
			user.IsActive,
			user.CreatedAt,
			user.UpdatedAt,
		)
		if err != nil {
			log.Printf("❌ Database error: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create user")
			return
		}

		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Printf("✅ USER CREATED SUCCESSFULLY")
		log.Printf("   📧 Email: %s", user.Email)
		log.Printf("   👤 Name: %s", user.Name)
		log.Printf("   🔑 Role: %s", user.Role)
		log.Printf("   🆔 ID: %s", user.ID)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

		userResponse := user.ToUserResponse()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(CreateUserResponse{
			Success: true,
			User:    &userResponse,
			Message: "User created successfully",
		})
	}
}

// ListUsers returns all accounts. ?role=worker filters by role.
func ListUsers(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: GET /api/users")

		query := "SELECT * FROM users"
		args := []interface{}{}
		if role := r.URL.Query().Get("role"); role != "" {
			query += " WHERE role = $1"
			args = append(args, role)
		}
		query += " ORDER BY name"

		var users []models.User
		if err := db.Select(&users, query, args...); err != nil {
			log.Printf("❌ Error listing users: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		responses := make([]models.UserResponse, 0, len(users))
		for i := range users {
			responses = append(responses, users[i].ToUserResponse())
		}

		log.Printf("📤 RESPONSE: 200 - %d users", len(responses))

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    responses,
		})
	}
}

// GetUser returns a single account
func GetUser(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "id")
		log.Printf("📥 REQUEST: GET /api/users/%s", userID)

		var user models.User
		if err := db.Get(&user, "SELECT * FROM users WHERE id = $1", userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				utils.RespondError(w, http.StatusNotFound, "User not found")
				return
			}
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		response := user.ToUserResponse()
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    response,
		})
	}
}

// UpdateUser edits account fields. Role changes go through ChangeUserRole
// so they land in the audit log.
func UpdateUser(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "id")
		log.Printf("📥 REQUEST: PATCH /api/users/%s", userID)

		var user models.User
		if err := db.Get(&user, "SELECT * FROM users WHERE id = $1", userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				utils.RespondError(w, http.StatusNotFound, "User not found")
				return
			}
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		var req struct {
			Name       *string  `json:"name"`
			Password   *string  `json:"password"`
			HourlyRate *float64 `json:"hourly_rate"`
			IsActive   *bool    `json:"is_active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Name != nil {
			user.Name = *req.Name
		}
		if req.HourlyRate != nil {
			user.HourlyRate = req.HourlyRate
		}
		if req.IsActive != nil {
			user.IsActive = *req.IsActive
		}
		if req.Password != nil {
			hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
			if err != nil {
				utils.RespondError(w, http.StatusInternalServerError, "Failed to hash password")
				return
			}
			user.Password = string(hashed)
		}

		updateQuery := `
			UPDATE users
			SET name = $1, password = $2, hourly_rate = $3, is_active = $4,
				updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
			WHERE id = $5
		`
		if _, err := db.Exec(updateQuery, user.Name, user.Password, user.HourlyRate, user.IsActive, userID); err != nil {
			log.Printf("❌ Error updating user: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update user")
			return
		}

		log.Printf("✅ User updated: %s", userID)

		response := user.ToUserResponse()
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    response,
		})
	}
}

// ChangeUserRole updates a user's role and writes the audit record
func ChangeUserRole(db *sqlx.DB, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "id")
		log.Printf("📥 REQUEST: PUT /api/users/%s/role", userID)

		adminClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req struct {
			Role string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if !validRole(req.Role) {
			utils.RespondError(w, http.StatusBadRequest, "Role must be 'worker', 'manager', 'director', or 'admin'")
			return
		}

		var user models.User
		if err := db.Get(&user, "SELECT * FROM users WHERE id = $1", userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				utils.RespondError(w, http.StatusNotFound, "User not found")
				return
			}
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		if user.Role == req.Role {
			utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"data":    user.ToUserResponse(),
			})
			return
		}

		tx, err := db.Beginx()
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`
			UPDATE users SET role = $1, updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT WHERE id = $2
		`, req.Role, userID); err != nil {
			log.Printf("❌ Error changing role: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to change role")
			return
		}

		if _, err := tx.Exec(`
			INSERT INTO role_change_logs (user_id, old_role, new_role, changed_by)
			VALUES ($1, $2, $3, $4)
		`, userID, user.Role, req.Role, adminClaims.UserID); err != nil {
			log.Printf("❌ Error writing role change log: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to write audit log")
			return
		}

		if err := tx.Commit(); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		log.Printf("✅ Role changed: %s %s → %s (by %s)", userID, user.Role, req.Role, adminClaims.Email)

		// The affected user's client swaps its UI on this event
		hub.BroadcastToUser(userID, map[string]interface{}{
			"type": "role_changed",
			"data": map[string]interface{}{
				"user_id":  userID,
				"old_role": user.Role,
				"new_role": req.Role,
			},
		})

		// Other admins see the audit trail update live
		hub.BroadcastToRole(models.RoleAdmin, map[string]interface{}{
			"type": "role_change_logged",
			"data": map[string]interface{}{
				"user_id":    userID,
				"old_role":   user.Role,
				"new_role":   req.Role,
				"changed_by": adminClaims.UserID,
			},
		})

		user.Role = req.Role
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    user.ToUserResponse(),
		})
	}
}

// ListRoleChangeLogs returns the role change audit trail, newest first
func ListRoleChangeLogs(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: GET /api/role-change-logs")

		var logs []models.RoleChangeLog
		query := "SELECT * FROM role_change_logs ORDER BY changed_at DESC LIMIT 200"
		if err := db.Select(&logs, query); err != nil {
			log.Printf("❌ Error listing role change logs: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    logs,
		})
	}
}
