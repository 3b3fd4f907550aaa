package database

import (
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

func SeedUsers(db *sqlx.DB) error {
	// Check if users already exist
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Users already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding test users...")

	workerPassword, err := bcrypt.GenerateFromPassword([]byte("worker123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	managerPassword, err := bcrypt.GenerateFromPassword([]byte("manager123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	adminPassword, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	users := []map[string]interface{}{
		{
			"id":          uuid.New().String(),
			"email":       "worker@crewtrack.com",
			"password":    string(workerPassword),
			"name":        "Viktor Worker",
			"role":        "worker",
			"hourly_rate": 500.0,
		},
		{
			"id":          uuid.New().String(),
			"email":       "manager@crewtrack.com",
			"password":    string(managerPassword),
			"name":        "Maria Manager",
			"role":        "manager",
			"hourly_rate": nil,
		},
		{
			"id":          uuid.New().String(),
			"email":       "director@crewtrack.com",
			"password":    string(managerPassword),
			"name":        "Dmitri Director",
			"role":        "director",
			"hourly_rate": nil,
		},
		{
			"id":          uuid.New().String(),
			"email":       "admin@crewtrack.com",
			"password":    string(adminPassword),
			"name":        "Admin User",
			"role":        "admin",
			"hourly_rate": nil,
		},
	}

	for _, user := range users {
		query := `
			INSERT INTO users (id, email, password, name, role, hourly_rate)
			VALUES (:id, :email, :password, :name, :role, :hourly_rate)
		`
		if _, err := db.NamedExec(query, user); err != nil {
			return err
		}
		log.Printf("  ✓ Created user: %s (%s)", user["email"], user["role"])
	}

	log.Println("✓ Successfully seeded test users")
	log.Println("  📧 Worker:  worker@crewtrack.com / worker123")
	log.Println("  📧 Manager: manager@crewtrack.com / manager123")
	log.Println("  📧 Admin:   admin@crewtrack.com / admin123")
	return nil
}

func SeedMaterials(db *sqlx.DB) error {
	// Check if materials already exist
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM materials"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Materials already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding materials catalog...")

	materials := []map[string]interface{}{
		{"name": "Cement", "unit": "bag", "cost_per_unit": 320.0, "stock_quantity": 120.0, "min_stock_quantity": 20.0},
		{"name": "Sand", "unit": "m3", "cost_per_unit": 850.0, "stock_quantity": 40.0, "min_stock_quantity": 5.0},
		{"name": "Rebar 12mm", "unit": "piece", "cost_per_unit": 410.0, "stock_quantity": 300.0, "min_stock_quantity": 50.0},
		{"name": "Paint (white)", "unit": "liter", "cost_per_unit": 280.0, "stock_quantity": 60.0, "min_stock_quantity": 10.0},
		{"name": "Drywall sheet", "unit": "sheet", "cost_per_unit": 390.0, "stock_quantity": 85.0, "min_stock_quantity": 15.0},
		{"name": "Electrical cable", "unit": "meter", "cost_per_unit": 45.0, "stock_quantity": 500.0, "min_stock_quantity": 100.0},
	}

	for _, material := range materials {
		material["id"] = uuid.New().String()
		query := `
			INSERT INTO materials (id, name, unit, cost_per_unit, stock_quantity, min_stock_quantity)
			VALUES (:id, :name, :unit, :cost_per_unit, :stock_quantity, :min_stock_quantity)
		`
		if _, err := db.NamedExec(query, material); err != nil {
			return err
		}
	}

	log.Printf("✓ Successfully seeded %d materials", len(materials))
	return nil
}
