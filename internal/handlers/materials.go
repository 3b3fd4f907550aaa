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
	"crewtrack-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type MaterialRequest struct {
	Name             string  `json:"name"`
	Unit             string  `json:"unit"`
	CostPerUnit      float64 `json:"cost_per_unit"`
	StockQuantity    float64 `json:"stock_quantity"`
	MinStockQuantity float64 `json:"min_stock_quantity"`
}

// ListMaterials returns the material catalog. ?low_stock=true filters
// to entries at or below their minimum.
func ListMaterials(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: GET /api/materials")

		query := "SELECT * FROM materials"
		if r.URL.Query().Get("low_stock") == "true" {
			query += " WHERE stock_quantity <= min_stock_quantity"
		}
		query += " ORDER BY name"

		var materials []models.Material
		if err := db.Select(&materials, query); err != nil {
			log.Printf("❌ Error listing materials: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		log.Printf("📤 RESPONSE: 200 - %d materials", len(materials))

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    materials,
		})
	}
}

// CreateMaterial adds a catalog entry
func CreateMaterial(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /api/materials")

		var req MaterialRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Name == "" || req.Unit == "" {
			utils.RespondError(w, http.StatusBadRequest, "name and unit are required")
			return
		}

		now := time.Now().Unix()
		material := models.Material{
			ID:               uuid.New().String(),
			Name:             req.Name,
			Unit:             req.Unit,
			CostPerUnit:      req.CostPerUnit,
			StockQuantity:    req.StockQuantity,
			MinStockQuantity: req.MinStockQuantity,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		query := `
			INSERT INTO materials (id, name, unit, cost_per_unit, stock_quantity, min_stock_quantity, created_at, updated_at)
			VALUES (:id, :name, :unit, :cost_per_unit, :stock_quantity, :min_stock_quantity, :created_at, :updated_at)
		`
		if _, err := db.NamedExec(query, material); err != nil {
			log.Printf("❌ Error creating material: %v", err)
			utils.RespondError(w, http.StatusConflict, "Failed to create material (duplicate name?)")
			return
		}

		log.Printf("✅ Material created: %s (%s)", material.Name, material.ID)

		utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"data":    material,
		})
	}
}

// UpdateMaterial edits a catalog entry
func UpdateMaterial(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		materialID := chi.URLParam(r, "id")
		log.Printf("📥 REQUEST: PATCH /api/materials/%s", materialID)

		var material models.Material
		if err := db.Get(&material, "SELECT * FROM materials WHERE id = $1", materialID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				utils.RespondError(w, http.StatusNotFound, "Material not found")
				return
			}
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		var req struct {
			Name             *string  `json:"name"`
			Unit             *string  `json:"unit"`
			CostPerUnit      *float64 `json:"cost_per_unit"`
			StockQuantity    *float64 `json:"stock_quantity"`
			MinStockQuantity *float64 `json:"min_stock_quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Name != nil {
			material.Name = *req.Name
		}
		if req.Unit != nil {
			material.Unit = *req.Unit
		}
		if req.CostPerUnit != nil {
			material.CostPerUnit = *req.CostPerUnit
		}
		if req.StockQuantity != nil {
			material.StockQuantity = *req.StockQuantity
		}
		if req.MinStockQuantity != nil {
			material.MinStockQuantity = *req.MinStockQuantity
		}

		query := `
			UPDATE materials
			SET name = $1, unit = $2, cost_per_unit = $3, stock_quantity = $4, min_stock_quantity = $5,
				updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
			WHERE id = $6
		`
		if _, err := db.Exec(query, material.Name, material.Unit, material.CostPerUnit,
			material.StockQuantity, material.MinStockQuantity, materialID); err != nil {
			log.Printf("❌ Error updating material: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update material")
			return
		}

		log.Printf("✅ Material updated: %s", materialID)

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    material,
		})
	}
}

// DeleteMaterial removes a catalog entry and its task links
func DeleteMaterial(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		materialID := chi.URLParam(r, "id")
		log.Printf("📥 REQUEST: DELETE /api/materials/%s", materialID)

		result, err := db.Exec("DELETE FROM materials WHERE id = $1", materialID)
		if err != nil {
			log.Printf("❌ Error deleting material: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete material")
			return
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			utils.RespondError(w, http.StatusNotFound, "Material not found")
			return
		}

		log.Printf("✅ Material deleted: %s", materialID)

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"deleted": materialID},
		})
	}
}

// RecordMaterialUsage lets the assigned worker report how much of a
// reserved material a task actually consumed. Stock is decremented by
// the delta between the new and previously reported usage.
func RecordMaterialUsage(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taskID := chi.URLParam(r, "id")
		log.Printf("📥 REQUEST: POST /api/worker/tasks/%s/materials", taskID)

		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req struct {
			MaterialID   string  `json:"material_id"`
			QuantityUsed float64 `json:"quantity_used"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.QuantityUsed < 0 {
			utils.RespondError(w, http.StatusBadRequest, "quantity_used must not be negative")
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
		if task.AssignedTo != userClaims.UserID {
			utils.RespondError(w, http.StatusForbidden, "Task is assigned to another worker")
			return
		}

		var link models.TaskMaterial
		linkQuery := "SELECT id, task_id, material_id, quantity_needed, quantity_used FROM task_materials WHERE task_id = $1 AND material_id = $2"
		if err := db.Get(&link, linkQuery, taskID, req.MaterialID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				utils.RespondError(w, http.StatusNotFound, "Material is not attached to this task")
				return
			}
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		delta := req.QuantityUsed - link.QuantityUsed

		tx, err := db.Beginx()
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}
		defer tx.Rollback()

		if _, err := tx.Exec("UPDATE task_materials SET quantity_used = $1 WHERE id = $2", req.QuantityUsed, link.ID); err != nil {
			log.Printf("❌ Error recording usage: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to record usage")
			return
		}
		if _, err := tx.Exec(`
			UPDATE materials
			SET stock_quantity = stock_quantity - $1,
				updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
			WHERE id = $2
		`, delta, req.MaterialID); err != nil {
			log.Printf("❌ Error adjusting stock: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to adjust stock")
			return
		}

		if err := tx.Commit(); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		log.Printf("✅ Usage recorded: task %s, material %s, used %.2f", taskID, req.MaterialID, req.QuantityUsed)

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"task_id":       taskID,
				"material_id":   req.MaterialID,
				"quantity_used": req.QuantityUsed,
			},
		})
	}
}
