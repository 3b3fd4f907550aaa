package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"crewtrack-backend/internal/geo"
	"crewtrack-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRadiusMeters = 100

func newTaskTrackerAt(store Store, at time.Time) (*TaskTracker, *time.Time) {
	clock := at
	tr := NewTaskTracker(store, testRadiusMeters)
	tr.now = func() time.Time { return clock }
	return tr, &clock
}

func seedOpenShift(store *fakeStore, workerID string, start int64) {
	store.sessions["s-"+workerID] = &models.WorkSession{
		ID:        "s-" + workerID,
		UserID:    workerID,
		StartTime: start,
	}
}

func pendingTask(id, workerID string) *models.Task {
	return &models.Task{
		ID:         id,
		Title:      "wire the panel",
		Priority:   models.TaskPriorityMedium,
		Status:     models.TaskStatusPending,
		AssignedTo: workerID,
	}
}

func TestTaskStart_FromPending(t *testing.T) {
	store := newFakeStore()
	store.tasks["t1"] = pendingTask("t1", "w1")
	seedOpenShift(store, "w1", 1000)

	tr, clock := newTaskTrackerAt(store, time.Unix(2000, 0))
	loc := &geo.Position{Lat: 55.7558, Lon: 37.6173}

	task, err := tr.Start(context.Background(), "w1", "t1", loc, StartConfirm{})
	require.NoError(t, err)

	assert.Equal(t, models.TaskStatusInProgress, task.Status)
	require.NotNil(t, task.StartedAt)
	assert.Equal(t, clock.Unix(), *task.StartedAt)
	require.NotNil(t, task.StartLocation)
	assert.Equal(t, "55.755800, 37.617300", *task.StartLocation)
}

func TestTaskStart_RequiresOpenShift(t *testing.T) {
	store := newFakeStore()
	store.tasks["t1"] = pendingTask("t1", "w1")

	tr, _ := newTaskTrackerAt(store, time.Unix(2000, 0))
	_, err := tr.Start(context.Background(), "w1", "t1", nil, StartConfirm{LocationUnverified: true})
	assert.ErrorIs(t, err, ErrNoOpenSession)
}

func TestTaskStart_RejectsForeignTask(t *testing.T) {
	store := newFakeStore()
	store.tasks["t1"] = pendingTask("t1", "someone-else")
	seedOpenShift(store, "w1", 1000)

	tr, _ := newTaskTrackerAt(store, time.Unix(2000, 0))
	_, err := tr.Start(context.Background(), "w1", "t1", nil, StartConfirm{})
	assert.ErrorIs(t, err, ErrNotAssignee)
}

func TestTaskStart_OutsideGeofenceNeedsConfirmation(t *testing.T) {
	store := newFakeStore()
	task := pendingTask("t1", "w1")
	target := "55.7558, 37.6173"
	task.TargetLocation = &target
	store.tasks["t1"] = task
	seedOpenShift(store, "w1", 1000)

	tr, _ := newTaskTrackerAt(store, time.Unix(2000, 0))

	// ~150 m north of the target with a 100 m radius.
	away := &geo.Position{Lat: 55.7558 + 150.0/111195.0, Lon: 37.6173}

	_, err := tr.Start(context.Background(), "w1", "t1", away, StartConfirm{})
	conf, ok := AsConfirmation(err)
	require.True(t, ok)
	assert.Equal(t, ConfirmOutsideGeofence, conf.Reason)
	assert.Contains(t, conf.Message, "m away")

	// No side effect happened.
	unchanged, _ := store.TaskByID(context.Background(), "t1")
	assert.Equal(t, models.TaskStatusPending, unchanged.Status)
	assert.Nil(t, unchanged.StartedAt)

	// Confirmed retry proceeds.
	started, err := tr.Start(context.Background(), "w1", "t1", away, StartConfirm{OutsideGeofence: true})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusInProgress, started.Status)
}

func TestTaskStart_InsideGeofenceNoConfirmation(t *testing.T) {
	store := newFakeStore()
	task := pendingTask("t1", "w1")
	target := "55.7558, 37.6173"
	task.TargetLocation = &target
	store.tasks["t1"] = task
	seedOpenShift(store, "w1", 1000)

	tr, _ := newTaskTrackerAt(store, time.Unix(2000, 0))

	near := &geo.Position{Lat: 55.7558 + 50.0/111195.0, Lon: 37.6173}
	_, err := tr.Start(context.Background(), "w1", "t1", near, StartConfirm{})
	require.NoError(t, err)
}

func TestTaskStart_NoPositionAgainstTargetNeedsConfirmation(t *testing.T) {
	store := newFakeStore()
	task := pendingTask("t1", "w1")
	target := "55.7558, 37.6173"
	task.TargetLocation = &target
	store.tasks["t1"] = task
	seedOpenShift(store, "w1", 1000)

	tr, _ := newTaskTrackerAt(store, time.Unix(2000, 0))

	_, err := tr.Start(context.Background(), "w1", "t1", nil, StartConfirm{})
	conf, ok := AsConfirmation(err)
	require.True(t, ok)
	assert.Equal(t, ConfirmLocationUnverified, conf.Reason)

	_, err = tr.Start(context.Background(), "w1", "t1", nil, StartConfirm{LocationUnverified: true})
	require.NoError(t, err)
}

func TestTaskStart_MalformedTargetSkipsCheck(t *testing.T) {
	store := newFakeStore()
	task := pendingTask("t1", "w1")
	target := "not a coordinate"
	task.TargetLocation = &target
	store.tasks["t1"] = task
	seedOpenShift(store, "w1", 1000)

	tr, _ := newTaskTrackerAt(store, time.Unix(2000, 0))
	_, err := tr.Start(context.Background(), "w1", "t1", nil, StartConfirm{})
	require.NoError(t, err)
}

func TestTaskResume_PreservesStartStamps(t *testing.T) {
	store := newFakeStore()
	store.tasks["t1"] = pendingTask("t1", "w1")
	seedOpenShift(store, "w1", 1000)

	tr, clock := newTaskTrackerAt(store, time.Unix(2000, 0))
	loc := &geo.Position{Lat: 55.7558, Lon: 37.6173}

	started, err := tr.Start(context.Background(), "w1", "t1", loc, StartConfirm{})
	require.NoError(t, err)
	originalStartedAt := *started.StartedAt
	originalStartLocation := *started.StartLocation

	*clock = clock.Add(10 * time.Minute)
	paused, err := tr.Pause(context.Background(), "w1", "t1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPaused, paused.Status)
	require.NotNil(t, paused.PausedAt)

	// Resume from a different position: start stamps must not move.
	*clock = clock.Add(5 * time.Minute)
	elsewhere := &geo.Position{Lat: 55.7600, Lon: 37.6200}
	resumed, err := tr.Start(context.Background(), "w1", "t1", elsewhere, StartConfirm{})
	require.NoError(t, err)

	assert.Equal(t, models.TaskStatusInProgress, resumed.Status)
	assert.Equal(t, originalStartedAt, *resumed.StartedAt)
	assert.Equal(t, originalStartLocation, *resumed.StartLocation)
	assert.Nil(t, resumed.PausedAt)
	assert.Equal(t, 300, resumed.TotalPauseSeconds)
}

func TestTaskPause_OnlyFromInProgress(t *testing.T) {
	store := newFakeStore()
	store.tasks["t1"] = pendingTask("t1", "w1")
	seedOpenShift(store, "w1", 1000)

	tr, _ := newTaskTrackerAt(store, time.Unix(2000, 0))

	_, err := tr.Pause(context.Background(), "w1", "t1")
	it, ok := AsInvalidTransition(err)
	require.True(t, ok)
	assert.Equal(t, models.TaskStatusPending, it.From)
	assert.Equal(t, models.TaskStatusPaused, it.To)
}

func TestTaskComplete_FromInProgress(t *testing.T) {
	store := newFakeStore()
	store.tasks["t1"] = pendingTask("t1", "w1")
	seedOpenShift(store, "w1", 1000)

	tr, clock := newTaskTrackerAt(store, time.Unix(2000, 0))
	_, err := tr.Start(context.Background(), "w1", "t1", nil, StartConfirm{})
	require.NoError(t, err)

	*clock = clock.Add(time.Hour)
	loc := &geo.Position{Lat: 55.7512, Lon: 37.6186}
	done, err := tr.Complete(context.Background(), "w1", "t1", loc)
	require.NoError(t, err)

	assert.Equal(t, models.TaskStatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, clock.Unix(), *done.CompletedAt)
	require.NotNil(t, done.EndLocation)
	assert.Equal(t, "55.751200, 37.618600", *done.EndLocation)
}

func TestTaskComplete_FromPausedFoldsPause(t *testing.T) {
	store := newFakeStore()
	store.tasks["t1"] = pendingTask("t1", "w1")
	seedOpenShift(store, "w1", 1000)

	tr, clock := newTaskTrackerAt(store, time.Unix(2000, 0))
	_, err := tr.Start(context.Background(), "w1", "t1", nil, StartConfirm{})
	require.NoError(t, err)

	_, err = tr.Pause(context.Background(), "w1", "t1")
	require.NoError(t, err)

	*clock = clock.Add(20 * time.Minute)
	done, err := tr.Complete(context.Background(), "w1", "t1", nil)
	require.NoError(t, err)

	assert.Equal(t, models.TaskStatusCompleted, done.Status)
	assert.Nil(t, done.PausedAt)
	assert.Equal(t, 1200, done.TotalPauseSeconds)
}

func TestTaskComplete_RejectedFromPendingAndCompleted(t *testing.T) {
	store := newFakeStore()
	store.tasks["t1"] = pendingTask("t1", "w1")
	seedOpenShift(store, "w1", 1000)

	tr, _ := newTaskTrackerAt(store, time.Unix(2000, 0))

	_, err := tr.Complete(context.Background(), "w1", "t1", nil)
	it, ok := AsInvalidTransition(err)
	require.True(t, ok)
	assert.Equal(t, models.TaskStatusPending, it.From)

	unchanged, _ := store.TaskByID(context.Background(), "t1")
	assert.Equal(t, models.TaskStatusPending, unchanged.Status)
	assert.Nil(t, unchanged.CompletedAt)

	// Drive it to completed, then confirm it is terminal.
	_, err = tr.Start(context.Background(), "w1", "t1", nil, StartConfirm{})
	require.NoError(t, err)
	_, err = tr.Complete(context.Background(), "w1", "t1", nil)
	require.NoError(t, err)

	_, err = tr.Complete(context.Background(), "w1", "t1", nil)
	_, ok = AsInvalidTransition(err)
	assert.True(t, ok)
	_, err = tr.Start(context.Background(), "w1", "t1", nil, StartConfirm{})
	_, ok = AsInvalidTransition(err)
	assert.True(t, ok)
}

func TestTaskStart_ConcurrentSecondCallRejected(t *testing.T) {
	store := newFakeStore()
	store.tasks["t1"] = pendingTask("t1", "w1")
	seedOpenShift(store, "w1", 1000)

	tr, _ := newTaskTrackerAt(store, time.Unix(2000, 0))

	entered := make(chan struct{})
	proceed := make(chan struct{})
	store.onApply = func() {
		close(entered)
		<-proceed
	}

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = tr.Start(context.Background(), "w1", "t1", nil, StartConfirm{})
	}()

	// Second call arrives while the first is still writing.
	<-entered
	_, secondErr := tr.Start(context.Background(), "w1", "t1", nil, StartConfirm{})
	assert.ErrorIs(t, secondErr, ErrBusy)

	close(proceed)
	wg.Wait()
	require.NoError(t, firstErr)

	// Exactly one start was applied: one timestamp, one location capture.
	assert.Len(t, store.applied, 1)
	task, _ := store.TaskByID(context.Background(), "t1")
	assert.Equal(t, models.TaskStatusInProgress, task.Status)
}

func TestTaskDelete_RemovesTask(t *testing.T) {
	store := newFakeStore()
	store.tasks["t1"] = pendingTask("t1", "w1")

	tr, _ := newTaskTrackerAt(store, time.Unix(2000, 0))
	require.NoError(t, tr.Delete(context.Background(), "t1"))

	_, err := store.TaskByID(context.Background(), "t1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, tr.Delete(context.Background(), "t1"), ErrNotFound)
}
