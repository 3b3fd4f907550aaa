package database

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func Connect(dbURL string) (*sqlx.DB, error) {
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Println("🔌 DATABASE CONNECTION ATTEMPT")
	log.Printf("   📍 Database URL length: %d characters", len(dbURL))
	log.Printf("   📍 URL prefix: %s...", dbURL[:min(30, len(dbURL))])
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	log.Println("🔄 Step 1: Attempting sqlx.Connect()...")
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ DATABASE CONNECTION FAILED AT sqlx.Connect()")
		log.Printf("   Error type: %T", err)
		log.Printf("   Error message: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("✅ Step 1 Complete: sqlx.Connect() succeeded")

	log.Println("🔄 Step 2: Testing connection with Ping()...")
	if err := db.Ping(); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ DATABASE CONNECTION FAILED AT Ping()")
		log.Printf("   Error type: %T", err)
		log.Printf("   Error message: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("✅ Step 2 Complete: Ping() succeeded")

	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Println("✅ DATABASE CONNECTION SUCCESSFUL")
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	return db, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func Migrate(db *sqlx.DB) error {
	migrations := []string{
		// Create users table
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('worker', 'manager', 'director', 'admin')),
			hourly_rate DOUBLE PRECISION,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create work_sessions table
		`CREATE TABLE IF NOT EXISTS work_sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			start_time BIGINT NOT NULL,
			end_time BIGINT,
			start_location TEXT,
			end_location TEXT,
			total_hours DOUBLE PRECISION,
			earnings DOUBLE PRECISION,
			on_break BOOLEAN NOT NULL DEFAULT FALSE,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			CHECK (end_time IS NULL OR end_time >= start_time)
		)`,

		// Create tasks table
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT,
			priority TEXT NOT NULL DEFAULT 'medium' CHECK(priority IN ('low', 'medium', 'high')),
			status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'in_progress', 'paused', 'completed')),
			assigned_to TEXT NOT NULL,
			created_by TEXT,
			estimated_hours DOUBLE PRECISION,
			target_location TEXT,
			start_location TEXT,
			end_location TEXT,
			started_at BIGINT,
			completed_at BIGINT,
			paused_at BIGINT,
			total_pause_seconds INT NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (assigned_to) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (created_by) REFERENCES users(id) ON DELETE SET NULL,
			CHECK (total_pause_seconds >= 0)
		)`,

		// Create materials table
		`CREATE TABLE IF NOT EXISTS materials (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			unit TEXT NOT NULL,
			cost_per_unit DOUBLE PRECISION NOT NULL DEFAULT 0,
			stock_quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
			min_stock_quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create task_materials table
		`CREATE TABLE IF NOT EXISTS task_materials (
			id SERIAL PRIMARY KEY,
			task_id TEXT NOT NULL,
			material_id TEXT NOT NULL,
			quantity_needed DOUBLE PRECISION NOT NULL DEFAULT 0,
			quantity_used DOUBLE PRECISION NOT NULL DEFAULT 0,
			FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE,
			FOREIGN KEY (material_id) REFERENCES materials(id) ON DELETE CASCADE,
			UNIQUE (task_id, material_id)
		)`,

		// Create worker_locations table
		`CREATE TABLE IF NOT EXISTS worker_locations (
			id SERIAL PRIMARY KEY,
			worker_id TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			accuracy DOUBLE PRECISION,
			session_id TEXT,
			timestamp BIGINT NOT NULL,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (worker_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (session_id) REFERENCES work_sessions(id) ON DELETE SET NULL
		)`,

		// Create role_change_logs table
		`CREATE TABLE IF NOT EXISTS role_change_logs (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			old_role TEXT NOT NULL,
			new_role TEXT NOT NULL,
			changed_by TEXT,
			changed_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (changed_by) REFERENCES users(id) ON DELETE SET NULL
		)`,

		// Create FCM tokens table
		`CREATE TABLE IF NOT EXISTS fcm_tokens (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			token TEXT NOT NULL UNIQUE,
			device_type TEXT NOT NULL CHECK(device_type IN ('ios', 'android')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// Create indexes
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
		`CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)`,
		`CREATE INDEX IF NOT EXISTS idx_work_sessions_user_id ON work_sessions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_work_sessions_start_time ON work_sessions(start_time)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_work_sessions_one_open ON work_sessions(user_id) WHERE end_time IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_assigned_to ON tasks(assigned_to)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_assigned_status ON tasks(assigned_to, status)`,
		`CREATE INDEX IF NOT EXISTS idx_task_materials_task_id ON task_materials(task_id)`,
		`CREATE INDEX IF NOT EXISTS idx_task_materials_material_id ON task_materials(material_id)`,
		`CREATE INDEX IF NOT EXISTS idx_worker_locations_worker_id ON worker_locations(worker_id)`,
		`CREATE INDEX IF NOT EXISTS idx_worker_locations_timestamp ON worker_locations(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_worker_locations_session_id ON worker_locations(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_role_change_logs_user_id ON role_change_logs(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_fcm_tokens_user_id ON fcm_tokens(user_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_fcm_tokens_token ON fcm_tokens(token)`,

		// Migration: hourly_rate and is_active for databases created before pay tracking
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS hourly_rate DOUBLE PRECISION`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS is_active BOOLEAN NOT NULL DEFAULT TRUE`,

		// Migration: task pause bookkeeping columns
		`ALTER TABLE tasks ADD COLUMN IF NOT EXISTS paused_at BIGINT`,
		`ALTER TABLE tasks ADD COLUMN IF NOT EXISTS total_pause_seconds INT NOT NULL DEFAULT 0`,

		// Migration: widen users role constraint for the director role
		`ALTER TABLE users DROP CONSTRAINT IF EXISTS users_role_check`,
		`ALTER TABLE users ADD CONSTRAINT users_role_check CHECK(role IN ('worker', 'manager', 'director', 'admin'))`,

		// Migration: paused status for databases that predate task pausing
		`ALTER TABLE tasks DROP CONSTRAINT IF EXISTS tasks_status_check`,
		`ALTER TABLE tasks ADD CONSTRAINT tasks_status_check CHECK(status IN ('pending', 'in_progress', 'paused', 'completed'))`,

		// Migration: on_break flag on work_sessions
		`DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM information_schema.columns
						   WHERE table_name='work_sessions' AND column_name='on_break') THEN
				ALTER TABLE work_sessions ADD COLUMN on_break BOOLEAN NOT NULL DEFAULT FALSE;
			END IF;
		END $$`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	log.Println("✓ Database migrations completed")
	return nil
}
