package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"crewtrack-backend/internal/database"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Get database URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	// Connect to database
	db, err := database.Connect(dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Connected to database successfully")

	// Apply schema migrations and seeds
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migrations completed successfully!")

	if err := database.SeedUsers(db); err != nil {
		log.Fatalf("User seeding failed: %v", err)
	}
	if err := database.SeedMaterials(db); err != nil {
		log.Fatalf("Material seeding failed: %v", err)
	}

	// Query and display summary
	var result struct {
		Users     int `db:"users"`
		Workers   int `db:"workers"`
		Materials int `db:"materials"`
		Tasks     int `db:"tasks"`
	}

	query := `
		SELECT
			(SELECT COUNT(*) FROM users) AS users,
			(SELECT COUNT(*) FROM users WHERE role = 'worker') AS workers,
			(SELECT COUNT(*) FROM materials) AS materials,
			(SELECT COUNT(*) FROM tasks) AS tasks
	`

	if err := db.Get(&result, query); err != nil {
		log.Fatalf("Failed to query summary: %v", err)
	}

	// Display results
	fmt.Println("\n============================================================")
	fmt.Println("MIGRATION SUMMARY")
	fmt.Println("============================================================")
	fmt.Printf("Users:      %d\n", result.Users)
	fmt.Printf("Workers:    %d\n", result.Workers)
	fmt.Printf("Materials:  %d\n", result.Materials)
	fmt.Printf("Tasks:      %d\n", result.Tasks)
	fmt.Println("============================================================")
}
