package models

// Material is a catalog entry. Tasks reference materials, they never own
// them; many tasks may draw on the same entry.
type Material struct {
	ID               string  `json:"id" db:"id"`
	Name             string  `json:"name" db:"name"`
	Unit             string  `json:"unit" db:"unit"`
	CostPerUnit      float64 `json:"cost_per_unit" db:"cost_per_unit"`
	StockQuantity    float64 `json:"stock_quantity" db:"stock_quantity"`
	MinStockQuantity float64 `json:"min_stock_quantity" db:"min_stock_quantity"`
	CreatedAt        int64   `json:"created_at" db:"created_at"`
	UpdatedAt        int64   `json:"updated_at" db:"updated_at"`
}

// TaskMaterial links a task to a material requirement.
type TaskMaterial struct {
	ID             int     `json:"id" db:"id"`
	TaskID         string  `json:"task_id" db:"task_id"`
	MaterialID     string  `json:"material_id" db:"material_id"`
	QuantityNeeded float64 `json:"quantity_needed" db:"quantity_needed"`
	QuantityUsed   float64 `json:"quantity_used" db:"quantity_used"`

	// Joined catalog fields
	MaterialName *string `json:"material_name,omitempty" db:"material_name"`
	MaterialUnit *string `json:"material_unit,omitempty" db:"material_unit"`
}
