package models

// TaskStatus represents the lifecycle state of an assigned task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusPaused     TaskStatus = "paused"
	TaskStatusCompleted  TaskStatus = "completed" // Terminal
)

// TaskPriority represents how urgent a task is
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// Task is a unit of assigned work with its own lifecycle, optionally tied to
// a physical target location ("lat, lon" text).
//
// started_at/start_location are written once, on the first pending →
// in_progress transition; resuming from paused never touches them.
// completed_at/end_location are written exactly once, at completion.
type Task struct {
	ID          string       `json:"id" db:"id"`
	Title       string       `json:"title" db:"title"`
	Description string       `json:"description" db:"description"`
	Priority    TaskPriority `json:"priority" db:"priority"`
	Status      TaskStatus   `json:"status" db:"status"`
	AssignedTo  string       `json:"assigned_to" db:"assigned_to"`
	CreatedBy   *string      `json:"created_by,omitempty" db:"created_by"`

	EstimatedHours *float64 `json:"estimated_hours,omitempty" db:"estimated_hours"`

	// Location audit trail
	TargetLocation *string `json:"target_location,omitempty" db:"target_location"`
	StartLocation  *string `json:"start_location,omitempty" db:"start_location"`
	EndLocation    *string `json:"end_location,omitempty" db:"end_location"`

	// Lifecycle timestamps (epoch seconds)
	StartedAt         *int64 `json:"started_at,omitempty" db:"started_at"`
	CompletedAt       *int64 `json:"completed_at,omitempty" db:"completed_at"`
	PausedAt          *int64 `json:"paused_at,omitempty" db:"paused_at"`
	TotalPauseSeconds int    `json:"total_pause_seconds" db:"total_pause_seconds"`

	CreatedAt int64 `json:"created_at" db:"created_at"`
	UpdatedAt int64 `json:"updated_at" db:"updated_at"`

	// Loaded separately, not a column
	Materials []TaskMaterial `json:"materials,omitempty" db:"-"`
}

// IsTerminal reports whether the task can accept no further transitions.
func (t *Task) IsTerminal() bool {
	return t.Status == TaskStatusCompleted
}

// TaskWithPeople is a task joined with assignee/creator names for the
// manager task board.
type TaskWithPeople struct {
	Task
	AssigneeName string `json:"assignee_name" db:"assignee_name"`
	CreatorName  string `json:"creator_name" db:"creator_name"`
}
