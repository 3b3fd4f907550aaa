package tracker

import (
	"context"
	"fmt"
	"math"
	"time"

	"crewtrack-backend/internal/geo"
	"crewtrack-backend/internal/models"
)

// TaskTracker owns task lifecycle transitions for workers. Every operation
// validates the state machine before any side effect and goes through a
// typed TaskIntent, so the store can never write a partial or mixed-up
// field set.
//
// Transition graph: pending → in_progress → {paused, completed};
// paused → {in_progress, completed}; completed is terminal.
type TaskTracker struct {
	store        Store
	now          func() time.Time
	radiusMeters float64
	inflight     *inflightGuard
}

// NewTaskTracker builds a tracker with the configured geofence radius in
// meters (single source for the threshold).
func NewTaskTracker(store Store, radiusMeters float64) *TaskTracker {
	return &TaskTracker{
		store:        store,
		now:          time.Now,
		radiusMeters: radiusMeters,
		inflight:     newInflightGuard(),
	}
}

// StartConfirm carries the user's answers to the geofence warning dialogs.
type StartConfirm struct {
	// OutsideGeofence acknowledges being farther than the radius from the
	// task site.
	OutsideGeofence bool

	// LocationUnverified acknowledges starting without a position to check
	// against the site.
	LocationUnverified bool
}

// Start moves a pending task to in_progress, or resumes a paused one. A
// fresh start stamps started_at/start_location; a resume only clears the
// pause marker. When the task carries a target location the current position
// is checked against the geofence; being outside or unverifiable is a
// warn-and-confirm gate, never a hard block.
func (t *TaskTracker) Start(ctx context.Context, workerID, taskID string, current *geo.Position, confirm StartConfirm) (*models.Task, error) {
	key := "task:" + taskID
	if !t.inflight.acquire(key) {
		return nil, ErrBusy
	}
	defer t.inflight.release(key)

	task, err := t.loadAssigned(ctx, workerID, taskID)
	if err != nil {
		return nil, err
	}

	if task.Status != models.TaskStatusPending && task.Status != models.TaskStatusPaused {
		return nil, &InvalidTransitionError{From: task.Status, To: models.TaskStatusInProgress}
	}

	session, err := t.store.OpenSession(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoOpenSession
	}

	if err := t.checkGeofence(task, current, confirm); err != nil {
		return nil, err
	}

	now := t.now().Unix()
	var intent TaskIntent
	if task.Status == models.TaskStatusPaused {
		intent = TaskIntent{
			Kind:            ResumeFromPaused,
			At:              now,
			AddPauseSeconds: pauseDuration(task, now),
		}
	} else {
		intent = TaskIntent{
			Kind:     StartFromPending,
			At:       now,
			Location: formatOptional(current),
		}
	}

	if err := t.store.ApplyTaskTransition(ctx, taskID, task.Status, intent); err != nil {
		return nil, err
	}
	return t.store.TaskByID(ctx, taskID)
}

// Pause moves an in_progress task to paused and stamps the pause marker.
func (t *TaskTracker) Pause(ctx context.Context, workerID, taskID string) (*models.Task, error) {
	key := "task:" + taskID
	if !t.inflight.acquire(key) {
		return nil, ErrBusy
	}
	defer t.inflight.release(key)

	task, err := t.loadAssigned(ctx, workerID, taskID)
	if err != nil {
		return nil, err
	}

	if task.Status != models.TaskStatusInProgress {
		return nil, &InvalidTransitionError{From: task.Status, To: models.TaskStatusPaused}
	}

	intent := TaskIntent{Kind: PauseTask, At: t.now().Unix()}
	if err := t.store.ApplyTaskTransition(ctx, taskID, task.Status, intent); err != nil {
		return nil, err
	}
	return t.store.TaskByID(ctx, taskID)
}

// Complete finishes a task from in_progress or paused, stamping
// completed_at and the end location capture. Terminal.
func (t *TaskTracker) Complete(ctx context.Context, workerID, taskID string, current *geo.Position) (*models.Task, error) {
	key := "task:" + taskID
	if !t.inflight.acquire(key) {
		return nil, ErrBusy
	}
	defer t.inflight.release(key)

	task, err := t.loadAssigned(ctx, workerID, taskID)
	if err != nil {
		return nil, err
	}

	if task.Status != models.TaskStatusInProgress && task.Status != models.TaskStatusPaused {
		return nil, &InvalidTransitionError{From: task.Status, To: models.TaskStatusCompleted}
	}

	now := t.now().Unix()
	intent := TaskIntent{
		Kind:     CompleteTask,
		At:       now,
		Location: formatOptional(current),
	}
	if task.Status == models.TaskStatusPaused {
		intent.AddPauseSeconds = pauseDuration(task, now)
	}

	if err := t.store.ApplyTaskTransition(ctx, taskID, task.Status, intent); err != nil {
		return nil, err
	}
	return t.store.TaskByID(ctx, taskID)
}

// Delete removes a task and its material associations. Role enforcement
// happens at the HTTP layer; the tracker only guards against concurrent
// transitions on the same task.
func (t *TaskTracker) Delete(ctx context.Context, taskID string) error {
	key := "task:" + taskID
	if !t.inflight.acquire(key) {
		return ErrBusy
	}
	defer t.inflight.release(key)

	return t.store.DeleteTask(ctx, taskID)
}

// Active returns the worker's in_progress task, nil when none.
func (t *TaskTracker) Active(ctx context.Context, workerID string) (*models.Task, error) {
	return t.store.ActiveTask(ctx, workerID)
}

// ListForWorker returns the worker's tasks with material requirements,
// active work first.
func (t *TaskTracker) ListForWorker(ctx context.Context, workerID string) ([]models.Task, error) {
	return t.store.TasksForWorker(ctx, workerID)
}

func (t *TaskTracker) loadAssigned(ctx context.Context, workerID, taskID string) (*models.Task, error) {
	task, err := t.store.TaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.AssignedTo != workerID {
		return nil, ErrNotAssignee
	}
	return task, nil
}

func (t *TaskTracker) checkGeofence(task *models.Task, current *geo.Position, confirm StartConfirm) error {
	if task.TargetLocation == nil {
		return nil
	}

	target, ok := geo.ParseCoordinates(*task.TargetLocation)
	if !ok {
		// Malformed coordinates are treated as no target at all.
		return nil
	}

	if current == nil {
		if confirm.LocationUnverified {
			return nil
		}
		return &ConfirmationRequiredError{
			Reason:  ConfirmLocationUnverified,
			Message: "Your location could not be verified. Start the task without the check?",
		}
	}

	distance := geo.Distance(*current, target)
	if distance > t.radiusMeters && !confirm.OutsideGeofence {
		return &ConfirmationRequiredError{
			Reason:  ConfirmOutsideGeofence,
			Message: fmt.Sprintf("You are %d m away from the task site. Continue anyway?", int(math.Round(distance))),
		}
	}
	return nil
}

func pauseDuration(task *models.Task, now int64) int64 {
	if task.PausedAt == nil {
		return 0
	}
	d := now - *task.PausedAt
	if d < 0 {
		return 0
	}
	return d
}
