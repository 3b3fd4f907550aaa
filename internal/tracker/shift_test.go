package tracker

import (
	"context"
	"testing"
	"time"

	"crewtrack-backend/internal/geo"
	"crewtrack-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newShiftTrackerAt(store Store, at time.Time) (*ShiftTracker, *time.Time) {
	clock := at
	t := NewShiftTracker(store)
	t.now = func() time.Time { return clock }
	return t, &clock
}

func TestShiftStart_OpensSession(t *testing.T) {
	store := newFakeStore()
	tr, _ := newShiftTrackerAt(store, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	loc := &geo.Position{Lat: 55.7558, Lon: 37.6173}
	session, err := tr.Start(context.Background(), "w1", loc, false)
	require.NoError(t, err)

	assert.Equal(t, "w1", session.UserID)
	assert.Nil(t, session.EndTime)
	require.NotNil(t, session.StartLocation)
	assert.Equal(t, "55.755800, 37.617300", *session.StartLocation)
	assert.Nil(t, session.TotalHours, "duration must not be materialized before the session closes")
	assert.Nil(t, session.Earnings)
}

func TestShiftStart_RejectsSecondOpenSession(t *testing.T) {
	store := newFakeStore()
	tr, _ := newShiftTrackerAt(store, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	_, err := tr.Start(context.Background(), "w1", nil, true)
	require.NoError(t, err)

	_, err = tr.Start(context.Background(), "w1", nil, true)
	assert.ErrorIs(t, err, ErrShiftAlreadyOpen)
}

func TestShiftStart_MissingLocationNeedsConfirmation(t *testing.T) {
	store := newFakeStore()
	tr, _ := newShiftTrackerAt(store, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	_, err := tr.Start(context.Background(), "w1", nil, false)
	conf, ok := AsConfirmation(err)
	require.True(t, ok)
	assert.Equal(t, ConfirmLocationMissing, conf.Reason)

	// Nothing was persisted by the gated attempt.
	open, err := store.OpenSession(context.Background(), "w1")
	require.NoError(t, err)
	assert.Nil(t, open)

	// Confirmed retry proceeds without a location.
	session, err := tr.Start(context.Background(), "w1", nil, true)
	require.NoError(t, err)
	assert.Nil(t, session.StartLocation)
}

func TestShiftEnd_EarningsFromWallClock(t *testing.T) {
	store := newFakeStore()
	store.rates["w1"] = 500

	tr, clock := newShiftTrackerAt(store, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	_, err := tr.Start(context.Background(), "w1", nil, true)
	require.NoError(t, err)

	*clock = time.Date(2025, 3, 10, 11, 30, 0, 0, time.UTC)
	result, err := tr.End(context.Background(), "w1", nil, false)
	require.NoError(t, err)

	assert.InDelta(t, 2.5, result.TotalHours, 1e-9)
	assert.InDelta(t, 1250, result.Earnings, 1e-9)
}

func TestShiftEnd_UnsetRateMeansZeroEarnings(t *testing.T) {
	store := newFakeStore()
	tr, clock := newShiftTrackerAt(store, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	_, err := tr.Start(context.Background(), "w1", nil, true)
	require.NoError(t, err)

	*clock = clock.Add(4 * time.Hour)
	result, err := tr.End(context.Background(), "w1", nil, false)
	require.NoError(t, err)

	assert.InDelta(t, 4.0, result.TotalHours, 1e-9)
	assert.Equal(t, 0.0, result.Earnings)
}

func TestShiftEnd_WithoutOpenSession(t *testing.T) {
	store := newFakeStore()
	tr, _ := newShiftTrackerAt(store, time.Now())

	_, err := tr.End(context.Background(), "w1", nil, false)
	assert.ErrorIs(t, err, ErrNoOpenSession)
}

func TestShiftEnd_WarnsAboutActiveTask(t *testing.T) {
	store := newFakeStore()
	startedAt := int64(100)
	store.tasks["t1"] = &models.Task{
		ID:         "t1",
		AssignedTo: "w1",
		Status:     models.TaskStatusInProgress,
		StartedAt:  &startedAt,
	}

	tr, clock := newShiftTrackerAt(store, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	_, err := tr.Start(context.Background(), "w1", nil, true)
	require.NoError(t, err)

	*clock = clock.Add(time.Hour)
	_, err = tr.End(context.Background(), "w1", nil, false)
	conf, ok := AsConfirmation(err)
	require.True(t, ok)
	assert.Equal(t, ConfirmTaskInProgress, conf.Reason)

	// Session is still open after the warning.
	open, err := store.OpenSession(context.Background(), "w1")
	require.NoError(t, err)
	require.NotNil(t, open)

	// Confirmed retry closes the shift.
	result, err := tr.End(context.Background(), "w1", nil, true)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.TotalHours, 1e-9)
}

func TestShiftBreak_DisplayOnly(t *testing.T) {
	store := newFakeStore()
	store.rates["w1"] = 100

	tr, clock := newShiftTrackerAt(store, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	_, err := tr.Start(context.Background(), "w1", nil, true)
	require.NoError(t, err)

	session, err := tr.Break(context.Background(), "w1")
	require.NoError(t, err)
	assert.True(t, session.OnBreak)

	// A two-hour shift spent entirely on break still pays two hours: the
	// break flag is presentation state, not accounting state.
	*clock = clock.Add(2 * time.Hour)
	result, err := tr.End(context.Background(), "w1", nil, false)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, result.TotalHours, 1e-9)
	assert.InDelta(t, 200, result.Earnings, 1e-9)
}

func TestShiftBreak_RequiresOpenSession(t *testing.T) {
	store := newFakeStore()
	tr, _ := newShiftTrackerAt(store, time.Now())

	_, err := tr.Break(context.Background(), "w1")
	assert.ErrorIs(t, err, ErrNoOpenSession)
	_, err = tr.Resume(context.Background(), "w1")
	assert.ErrorIs(t, err, ErrNoOpenSession)
}

func TestShiftToday_AggregatesClosedSessions(t *testing.T) {
	store := newFakeStore()
	store.rates["w1"] = 500

	tr, clock := newShiftTrackerAt(store, time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))

	// Morning session: 2 hours.
	_, err := tr.Start(context.Background(), "w1", nil, true)
	require.NoError(t, err)
	*clock = clock.Add(2 * time.Hour)
	_, err = tr.End(context.Background(), "w1", nil, false)
	require.NoError(t, err)

	// Afternoon session, still open after 30 minutes.
	*clock = clock.Add(2 * time.Hour)
	_, err = tr.Start(context.Background(), "w1", nil, true)
	require.NoError(t, err)
	*clock = clock.Add(30 * time.Minute)

	summary, err := tr.Today(context.Background(), "w1")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SessionCount)
	assert.InDelta(t, 2.0, summary.TotalHours, 1e-9)
	assert.InDelta(t, 1000, summary.Earnings, 1e-9)
	require.NotNil(t, summary.OpenSessionID)
	assert.Equal(t, int64(1800), summary.ElapsedSeconds)
}

func TestShift_ConcurrentOperationRejected(t *testing.T) {
	store := newFakeStore()
	tr, _ := newShiftTrackerAt(store, time.Now())

	// Simulate an in-flight operation holding the worker's guard.
	require.True(t, tr.inflight.acquire("shift:w1"))
	defer tr.inflight.release("shift:w1")

	_, err := tr.Start(context.Background(), "w1", nil, true)
	assert.ErrorIs(t, err, ErrBusy)
	_, err = tr.End(context.Background(), "w1", nil, true)
	assert.ErrorIs(t, err, ErrBusy)
}
