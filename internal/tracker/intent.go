package tracker

// IntentKind tags a task transition. The store maps each kind to a fixed
// field set, so a resume can never overwrite the fields a fresh start wrote.
type IntentKind int

const (
	// StartFromPending stamps started_at and start_location.
	StartFromPending IntentKind = iota + 1

	// ResumeFromPaused clears paused_at and folds the pause duration into
	// total_pause_seconds. started_at and start_location stay untouched.
	ResumeFromPaused

	// PauseTask stamps paused_at.
	PauseTask

	// CompleteTask stamps completed_at and end_location. Terminal.
	CompleteTask
)

func (k IntentKind) String() string {
	switch k {
	case StartFromPending:
		return "start"
	case ResumeFromPaused:
		return "resume"
	case PauseTask:
		return "pause"
	case CompleteTask:
		return "complete"
	default:
		return "unknown"
	}
}

// TaskIntent is the typed update payload for a single task transition.
type TaskIntent struct {
	Kind IntentKind

	// At is the transition timestamp (epoch seconds).
	At int64

	// Location is the formatted "lat, lon" capture for this transition, nil
	// when the device could not provide one. Start writes it to
	// start_location, complete to end_location; pause and resume ignore it.
	Location *string

	// AddPauseSeconds is the just-ended pause duration, folded into
	// total_pause_seconds on resume and on complete-from-paused.
	AddPauseSeconds int64
}
