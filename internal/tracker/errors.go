package tracker

import (
	"errors"
	"fmt"

	"crewtrack-backend/internal/models"
)

var (
	// ErrBusy means another transition for the same entity is still in
	// flight. The second request is rejected, never queued.
	ErrBusy = errors.New("operation already in progress")

	// ErrShiftAlreadyOpen means the worker already has a session with no
	// end time.
	ErrShiftAlreadyOpen = errors.New("shift already open")

	// ErrNoOpenSession means the operation needs an open shift.
	ErrNoOpenSession = errors.New("no open shift")

	// ErrNotFound means the entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotAssignee means the task belongs to a different worker.
	ErrNotAssignee = errors.New("task not assigned to this worker")

	// ErrConflict means the row changed underneath the transition (another
	// device won the write). Last-write-wins at the store is accepted; the
	// losing request is reported, not retried.
	ErrConflict = errors.New("entity changed concurrently")
)

// InvalidTransitionError is returned for any status change outside the task
// state machine, before any side effect.
type InvalidTransitionError struct {
	From models.TaskStatus
	To   models.TaskStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s → %s", e.From, e.To)
}

// Confirmation reasons. The operation is allowed but needs explicit user
// sign-off; the client re-sends with the matching confirm flag set.
const (
	ConfirmLocationMissing    = "location_missing"
	ConfirmLocationUnverified = "location_unverified"
	ConfirmOutsideGeofence    = "outside_geofence"
	ConfirmTaskInProgress     = "task_in_progress"
)

// ConfirmationRequiredError carries the reason code the client echoes back
// as a confirm flag, plus a human-readable warning for the dialog.
type ConfirmationRequiredError struct {
	Reason  string
	Message string
}

func (e *ConfirmationRequiredError) Error() string {
	return e.Message
}

// AsConfirmation unwraps a confirmation gate from an operation error.
func AsConfirmation(err error) (*ConfirmationRequiredError, bool) {
	var c *ConfirmationRequiredError
	if errors.As(err, &c) {
		return c, true
	}
	return nil, false
}

// AsInvalidTransition unwraps a state machine rejection.
func AsInvalidTransition(err error) (*InvalidTransitionError, bool) {
	var it *InvalidTransitionError
	if errors.As(err, &it) {
		return it, true
	}
	return nil, false
}
