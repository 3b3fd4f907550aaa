package tracker

import (
	"context"
	"time"

	"crewtrack-backend/internal/geo"
	"crewtrack-backend/internal/models"

	"github.com/google/uuid"
)

// ShiftTracker owns the shift lifecycle for workers: the single open session
// per worker, the break toggle, and the closed-session aggregation. The
// displayed elapsed counter is recomputed from wall-clock timestamps on
// every read; nothing accumulates tick-by-tick on the server, so the
// persisted duration can never drift from start/end times.
type ShiftTracker struct {
	store    Store
	now      func() time.Time
	inflight *inflightGuard
}

func NewShiftTracker(store Store) *ShiftTracker {
	return &ShiftTracker{
		store:    store,
		now:      time.Now,
		inflight: newInflightGuard(),
	}
}

// CurrentShift is an open session plus its computed elapsed time.
type CurrentShift struct {
	Session        *models.WorkSession `json:"session"`
	ElapsedSeconds int64               `json:"elapsed_seconds"`
}

// Current returns the worker's open session, nil when off the clock.
func (t *ShiftTracker) Current(ctx context.Context, workerID string) (*CurrentShift, error) {
	session, err := t.store.OpenSession(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	return &CurrentShift{
		Session:        session,
		ElapsedSeconds: session.ElapsedSeconds(t.now()),
	}, nil
}

// Start opens a new session. Location is best-effort: a missing position
// without the confirm flag is a confirmation gate, not a hard failure.
func (t *ShiftTracker) Start(ctx context.Context, workerID string, loc *geo.Position, confirmNoLocation bool) (*models.WorkSession, error) {
	key := "shift:" + workerID
	if !t.inflight.acquire(key) {
		return nil, ErrBusy
	}
	defer t.inflight.release(key)

	existing, err := t.store.OpenSession(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrShiftAlreadyOpen
	}

	if loc == nil && !confirmNoLocation {
		return nil, &ConfirmationRequiredError{
			Reason:  ConfirmLocationMissing,
			Message: "GPS coordinates are unavailable. Start the shift without recording a location?",
		}
	}

	now := t.now().Unix()
	session := &models.WorkSession{
		ID:            uuid.New().String(),
		UserID:        workerID,
		StartTime:     now,
		StartLocation: formatOptional(loc),
		CreatedAt:     now,
	}

	if err := t.store.InsertSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// End closes the open session. Duration comes strictly from wall-clock
// end-start; earnings are duration times the worker's hourly rate (0 when
// unset). An in-progress task only warns — the worker may confirm past it.
func (t *ShiftTracker) End(ctx context.Context, workerID string, loc *geo.Position, confirmActiveTask bool) (*models.ShiftEndResponse, error) {
	key := "shift:" + workerID
	if !t.inflight.acquire(key) {
		return nil, ErrBusy
	}
	defer t.inflight.release(key)

	session, err := t.store.OpenSession(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoOpenSession
	}

	if !confirmActiveTask {
		active, err := t.store.ActiveTask(ctx, workerID)
		if err != nil {
			return nil, err
		}
		if active != nil {
			return nil, &ConfirmationRequiredError{
				Reason:  ConfirmTaskInProgress,
				Message: "You have a task in progress. End the shift without completing it?",
			}
		}
	}

	rate, err := t.store.HourlyRate(ctx, workerID)
	if err != nil {
		return nil, err
	}

	endTime := t.now().Unix()
	totalHours := float64(endTime-session.StartTime) / 3600.0
	if totalHours < 0 {
		totalHours = 0
	}
	earnings := totalHours * rate

	endLocation := formatOptional(loc)
	if err := t.store.CloseSession(ctx, session.ID, endTime, endLocation, totalHours, earnings); err != nil {
		return nil, err
	}

	return &models.ShiftEndResponse{
		SessionID:   session.ID,
		EndTime:     endTime,
		TotalHours:  totalHours,
		Earnings:    earnings,
		EndLocation: endLocation,
	}, nil
}

// Break marks the open session as on break. Display-only: break time never
// enters the duration or earnings math, unlike the task-level pause.
func (t *ShiftTracker) Break(ctx context.Context, workerID string) (*models.WorkSession, error) {
	return t.setBreak(ctx, workerID, true)
}

// Resume clears the break flag.
func (t *ShiftTracker) Resume(ctx context.Context, workerID string) (*models.WorkSession, error) {
	return t.setBreak(ctx, workerID, false)
}

func (t *ShiftTracker) setBreak(ctx context.Context, workerID string, onBreak bool) (*models.WorkSession, error) {
	key := "shift:" + workerID
	if !t.inflight.acquire(key) {
		return nil, ErrBusy
	}
	defer t.inflight.release(key)

	session, err := t.store.OpenSession(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoOpenSession
	}
	if session.OnBreak == onBreak {
		return session, nil
	}

	if err := t.store.SetSessionBreak(ctx, session.ID, onBreak); err != nil {
		return nil, err
	}
	session.OnBreak = onBreak
	return session, nil
}

// Today aggregates the worker's closed sessions since local midnight plus
// the live elapsed seconds of the open one.
func (t *ShiftTracker) Today(ctx context.Context, workerID string) (*models.TodaySummary, error) {
	now := t.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	closed, err := t.store.ClosedSessionsBetween(ctx, workerID, dayStart.Unix(), dayStart.AddDate(0, 0, 1).Unix())
	if err != nil {
		return nil, err
	}

	summary := &models.TodaySummary{SessionCount: len(closed)}
	for _, s := range closed {
		if s.TotalHours != nil {
			summary.TotalHours += *s.TotalHours
		}
		if s.Earnings != nil {
			summary.Earnings += *s.Earnings
		}
	}

	open, err := t.store.OpenSession(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		summary.OpenSessionID = &open.ID
		summary.ElapsedSeconds = open.ElapsedSeconds(now)
	}
	return summary, nil
}

// History returns the worker's recent closed sessions, newest first.
func (t *ShiftTracker) History(ctx context.Context, workerID string, limit int) ([]models.WorkSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return t.store.SessionHistory(ctx, workerID, limit)
}

func formatOptional(p *geo.Position) *string {
	if p == nil {
		return nil
	}
	s := geo.FormatLocation(*p)
	return &s
}
