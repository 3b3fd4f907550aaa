package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"crewtrack-backend/internal/models"

	"github.com/jmoiron/sqlx"
)

// Store is the persistence collaborator injected into the trackers. The
// production implementation is SQLStore; tests substitute fakes.
type Store interface {
	// Sessions
	OpenSession(ctx context.Context, workerID string) (*models.WorkSession, error)
	InsertSession(ctx context.Context, s *models.WorkSession) error
	CloseSession(ctx context.Context, sessionID string, endTime int64, endLocation *string, totalHours, earnings float64) error
	SetSessionBreak(ctx context.Context, sessionID string, onBreak bool) error
	ClosedSessionsBetween(ctx context.Context, workerID string, from, to int64) ([]models.WorkSession, error)
	SessionHistory(ctx context.Context, workerID string, limit int) ([]models.WorkSession, error)

	// Workers
	HourlyRate(ctx context.Context, workerID string) (float64, error)

	// Tasks
	TaskByID(ctx context.Context, taskID string) (*models.Task, error)
	ActiveTask(ctx context.Context, workerID string) (*models.Task, error)
	TasksForWorker(ctx context.Context, workerID string) ([]models.Task, error)
	ApplyTaskTransition(ctx context.Context, taskID string, from models.TaskStatus, intent TaskIntent) error
	DeleteTask(ctx context.Context, taskID string) error
}

// SQLStore is the Postgres-backed Store.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// OpenSession returns the worker's session with no end time, newest first.
// The at-most-one-open-session invariant is maintained by this query shape,
// not by a transaction.
func (s *SQLStore) OpenSession(ctx context.Context, workerID string) (*models.WorkSession, error) {
	var session models.WorkSession
	query := `SELECT * FROM work_sessions
			  WHERE user_id = $1 AND end_time IS NULL
			  ORDER BY start_time DESC
			  LIMIT 1`

	err := s.db.GetContext(ctx, &session, query, workerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query open session: %w", err)
	}
	return &session, nil
}

func (s *SQLStore) InsertSession(ctx context.Context, sess *models.WorkSession) error {
	query := `INSERT INTO work_sessions (id, user_id, start_time, start_location, on_break, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.ExecContext(ctx, query,
		sess.ID, sess.UserID, sess.StartTime, sess.StartLocation, sess.OnBreak, sess.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// CloseSession applies the full end-of-shift update in one statement; the
// end_time IS NULL guard makes closing an already-closed session a no-op
// conflict instead of a double write.
func (s *SQLStore) CloseSession(ctx context.Context, sessionID string, endTime int64, endLocation *string, totalHours, earnings float64) error {
	query := `UPDATE work_sessions
			  SET end_time = $1,
				  end_location = $2,
				  total_hours = $3,
				  earnings = $4,
				  on_break = FALSE
			  WHERE id = $5
			  AND end_time IS NULL`

	result, err := s.db.ExecContext(ctx, query, endTime, endLocation, totalHours, earnings, sessionID)
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConflict
	}
	return nil
}

func (s *SQLStore) SetSessionBreak(ctx context.Context, sessionID string, onBreak bool) error {
	query := `UPDATE work_sessions
			  SET on_break = $1
			  WHERE id = $2
			  AND end_time IS NULL`

	result, err := s.db.ExecContext(ctx, query, onBreak, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update break state: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConflict
	}
	return nil
}

func (s *SQLStore) ClosedSessionsBetween(ctx context.Context, workerID string, from, to int64) ([]models.WorkSession, error) {
	var sessions []models.WorkSession
	query := `SELECT * FROM work_sessions
			  WHERE user_id = $1
			  AND end_time IS NOT NULL
			  AND start_time >= $2 AND start_time < $3
			  ORDER BY start_time DESC`

	if err := s.db.SelectContext(ctx, &sessions, query, workerID, from, to); err != nil {
		return nil, fmt.Errorf("failed to query closed sessions: %w", err)
	}
	return sessions, nil
}

func (s *SQLStore) SessionHistory(ctx context.Context, workerID string, limit int) ([]models.WorkSession, error) {
	var sessions []models.WorkSession
	query := `SELECT * FROM work_sessions
			  WHERE user_id = $1
			  AND end_time IS NOT NULL
			  ORDER BY start_time DESC
			  LIMIT $2`

	if err := s.db.SelectContext(ctx, &sessions, query, workerID, limit); err != nil {
		return nil, fmt.Errorf("failed to query session history: %w", err)
	}
	return sessions, nil
}

// HourlyRate returns the worker's rate, 0 when unset. A zero rate yields
// zero earnings, not an error.
func (s *SQLStore) HourlyRate(ctx context.Context, workerID string) (float64, error) {
	var rate float64
	query := `SELECT COALESCE(hourly_rate, 0) FROM users WHERE id = $1`

	err := s.db.GetContext(ctx, &rate, query, workerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query hourly rate: %w", err)
	}
	return rate, nil
}

func (s *SQLStore) TaskByID(ctx context.Context, taskID string) (*models.Task, error) {
	var task models.Task
	err := s.db.GetContext(ctx, &task, `SELECT * FROM tasks WHERE id = $1`, taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task: %w", err)
	}
	return &task, nil
}

// ActiveTask returns the worker's in_progress task, nil when none.
func (s *SQLStore) ActiveTask(ctx context.Context, workerID string) (*models.Task, error) {
	var task models.Task
	query := `SELECT * FROM tasks
			  WHERE assigned_to = $1 AND status = 'in_progress'
			  ORDER BY started_at DESC NULLS LAST
			  LIMIT 1`

	err := s.db.GetContext(ctx, &task, query, workerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active task: %w", err)
	}
	return &task, nil
}

func (s *SQLStore) TasksForWorker(ctx context.Context, workerID string) ([]models.Task, error) {
	var tasks []models.Task
	query := `SELECT * FROM tasks
			  WHERE assigned_to = $1
			  ORDER BY
				CASE status
				  WHEN 'in_progress' THEN 1
				  WHEN 'paused' THEN 2
				  WHEN 'pending' THEN 3
				  WHEN 'completed' THEN 4
				END ASC,
				CASE priority
				  WHEN 'high' THEN 1
				  WHEN 'medium' THEN 2
				  WHEN 'low' THEN 3
				END ASC,
				created_at ASC`

	if err := s.db.SelectContext(ctx, &tasks, query, workerID); err != nil {
		return nil, fmt.Errorf("failed to query worker tasks: %w", err)
	}

	for i := range tasks {
		materials, err := s.taskMaterials(ctx, tasks[i].ID)
		if err != nil {
			return nil, err
		}
		tasks[i].Materials = materials
	}
	return tasks, nil
}

func (s *SQLStore) taskMaterials(ctx context.Context, taskID string) ([]models.TaskMaterial, error) {
	var materials []models.TaskMaterial
	query := `SELECT tm.id, tm.task_id, tm.material_id, tm.quantity_needed, tm.quantity_used,
					 m.name AS material_name, m.unit AS material_unit
			  FROM task_materials tm
			  JOIN materials m ON tm.material_id = m.id
			  WHERE tm.task_id = $1
			  ORDER BY tm.id`

	if err := s.db.SelectContext(ctx, &materials, query, taskID); err != nil {
		return nil, fmt.Errorf("failed to query task materials: %w", err)
	}
	return materials, nil
}

// ApplyTaskTransition maps each intent kind to its fixed field set. The
// status guard in every WHERE clause turns a lost race into ErrConflict
// instead of a second write: started_at and start_location can never be
// stamped twice, because only the pending-guarded statement touches them.
func (s *SQLStore) ApplyTaskTransition(ctx context.Context, taskID string, from models.TaskStatus, intent TaskIntent) error {
	var (
		result sql.Result
		err    error
	)

	switch intent.Kind {
	case StartFromPending:
		query := `UPDATE tasks
				  SET status = 'in_progress',
					  started_at = $1,
					  start_location = $2,
					  updated_at = $1
				  WHERE id = $3
				  AND status = 'pending'`
		result, err = s.db.ExecContext(ctx, query, intent.At, intent.Location, taskID)

	case ResumeFromPaused:
		query := `UPDATE tasks
				  SET status = 'in_progress',
					  paused_at = NULL,
					  total_pause_seconds = total_pause_seconds + $1,
					  updated_at = $2
				  WHERE id = $3
				  AND status = 'paused'`
		result, err = s.db.ExecContext(ctx, query, intent.AddPauseSeconds, intent.At, taskID)

	case PauseTask:
		query := `UPDATE tasks
				  SET status = 'paused',
					  paused_at = $1,
					  updated_at = $1
				  WHERE id = $2
				  AND status = 'in_progress'`
		result, err = s.db.ExecContext(ctx, query, intent.At, taskID)

	case CompleteTask:
		query := `UPDATE tasks
				  SET status = 'completed',
					  completed_at = $1,
					  end_location = $2,
					  paused_at = NULL,
					  total_pause_seconds = total_pause_seconds + $3,
					  updated_at = $1
				  WHERE id = $4
				  AND status = $5`
		result, err = s.db.ExecContext(ctx, query, intent.At, intent.Location, intent.AddPauseSeconds, taskID, from)

	default:
		return fmt.Errorf("unknown intent kind: %d", intent.Kind)
	}

	if err != nil {
		return fmt.Errorf("failed to apply %s transition: %w", intent.Kind, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConflict
	}
	return nil
}

// DeleteTask removes the task and its material associations. Irreversible.
func (s *SQLStore) DeleteTask(ctx context.Context, taskID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM task_materials WHERE task_id = $1`, taskID); err != nil {
		return fmt.Errorf("failed to delete task materials: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, taskID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
