package tracker

import (
	"context"
	"errors"

	"crewtrack-backend/internal/models"
)

// fakeStore is an in-memory Store for tracker tests. Hooks let individual
// tests observe or stall calls.
type fakeStore struct {
	sessions map[string]*models.WorkSession
	tasks    map[string]*models.Task
	rates    map[string]float64

	insertErr error
	closeErr  error

	applied []TaskIntent

	// onApply runs inside ApplyTaskTransition, before the write.
	onApply func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[string]*models.WorkSession),
		tasks:    make(map[string]*models.Task),
		rates:    make(map[string]float64),
	}
}

func (f *fakeStore) OpenSession(_ context.Context, workerID string) (*models.WorkSession, error) {
	var newest *models.WorkSession
	for _, s := range f.sessions {
		if s.UserID == workerID && s.EndTime == nil {
			if newest == nil || s.StartTime > newest.StartTime {
				newest = s
			}
		}
	}
	if newest == nil {
		return nil, nil
	}
	copy := *newest
	return &copy, nil
}

func (f *fakeStore) InsertSession(_ context.Context, s *models.WorkSession) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	copy := *s
	f.sessions[s.ID] = &copy
	return nil
}

func (f *fakeStore) CloseSession(_ context.Context, sessionID string, endTime int64, endLocation *string, totalHours, earnings float64) error {
	if f.closeErr != nil {
		return f.closeErr
	}
	s, ok := f.sessions[sessionID]
	if !ok || s.EndTime != nil {
		return ErrConflict
	}
	s.EndTime = &endTime
	s.EndLocation = endLocation
	s.TotalHours = &totalHours
	s.Earnings = &earnings
	s.OnBreak = false
	return nil
}

func (f *fakeStore) SetSessionBreak(_ context.Context, sessionID string, onBreak bool) error {
	s, ok := f.sessions[sessionID]
	if !ok || s.EndTime != nil {
		return ErrConflict
	}
	s.OnBreak = onBreak
	return nil
}

func (f *fakeStore) ClosedSessionsBetween(_ context.Context, workerID string, from, to int64) ([]models.WorkSession, error) {
	var out []models.WorkSession
	for _, s := range f.sessions {
		if s.UserID == workerID && s.EndTime != nil && s.StartTime >= from && s.StartTime < to {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) SessionHistory(_ context.Context, workerID string, limit int) ([]models.WorkSession, error) {
	var out []models.WorkSession
	for _, s := range f.sessions {
		if s.UserID == workerID && s.EndTime != nil {
			out = append(out, *s)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) HourlyRate(_ context.Context, workerID string) (float64, error) {
	rate, ok := f.rates[workerID]
	if !ok {
		return 0, nil
	}
	return rate, nil
}

func (f *fakeStore) TaskByID(_ context.Context, taskID string) (*models.Task, error) {
	t, ok := f.tasks[taskID]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *t
	return &copy, nil
}

func (f *fakeStore) ActiveTask(_ context.Context, workerID string) (*models.Task, error) {
	for _, t := range f.tasks {
		if t.AssignedTo == workerID && t.Status == models.TaskStatusInProgress {
			copy := *t
			return &copy, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) TasksForWorker(_ context.Context, workerID string) ([]models.Task, error) {
	var out []models.Task
	for _, t := range f.tasks {
		if t.AssignedTo == workerID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeStore) ApplyTaskTransition(_ context.Context, taskID string, from models.TaskStatus, intent TaskIntent) error {
	if f.onApply != nil {
		f.onApply()
	}

	t, ok := f.tasks[taskID]
	if !ok || t.Status != from {
		return ErrConflict
	}

	switch intent.Kind {
	case StartFromPending:
		if from != models.TaskStatusPending {
			return ErrConflict
		}
		t.Status = models.TaskStatusInProgress
		t.StartedAt = &intent.At
		t.StartLocation = intent.Location
	case ResumeFromPaused:
		if from != models.TaskStatusPaused {
			return ErrConflict
		}
		t.Status = models.TaskStatusInProgress
		t.PausedAt = nil
		t.TotalPauseSeconds += int(intent.AddPauseSeconds)
	case PauseTask:
		if from != models.TaskStatusInProgress {
			return ErrConflict
		}
		t.Status = models.TaskStatusPaused
		t.PausedAt = &intent.At
	case CompleteTask:
		t.Status = models.TaskStatusCompleted
		t.CompletedAt = &intent.At
		t.EndLocation = intent.Location
		t.PausedAt = nil
		t.TotalPauseSeconds += int(intent.AddPauseSeconds)
	default:
		return errors.New("unknown intent")
	}

	t.UpdatedAt = intent.At
	f.applied = append(f.applied, intent)
	return nil
}

func (f *fakeStore) DeleteTask(_ context.Context, taskID string) error {
	if _, ok := f.tasks[taskID]; !ok {
		return ErrNotFound
	}
	delete(f.tasks, taskID)
	return nil
}
