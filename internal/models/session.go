package models

import "time"

// WorkSession is a single shift record. A session with a NULL end_time is
// the worker's open session; there is at most one per worker, maintained by
// the most-recent-open-session query in the tracker store.
type WorkSession struct {
	ID            string   `json:"id" db:"id"`
	UserID        string   `json:"user_id" db:"user_id"`
	StartTime     int64    `json:"start_time" db:"start_time"`
	EndTime       *int64   `json:"end_time" db:"end_time"`
	StartLocation *string  `json:"start_location" db:"start_location"`
	EndLocation   *string  `json:"end_location" db:"end_location"`
	TotalHours    *float64 `json:"total_hours" db:"total_hours"`
	Earnings      *float64 `json:"earnings" db:"earnings"`
	OnBreak       bool     `json:"on_break" db:"on_break"`
	CreatedAt     int64    `json:"created_at" db:"created_at"`
}

// IsOpen reports whether the session has not been closed yet.
func (s *WorkSession) IsOpen() bool {
	return s.EndTime == nil
}

// ElapsedSeconds returns wall-clock seconds since the shift started. This is
// the display counter; the persisted total_hours is always recomputed from
// start/end timestamps when the session closes.
func (s *WorkSession) ElapsedSeconds(now time.Time) int64 {
	elapsed := now.Unix() - s.StartTime
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// ShiftEndResponse is returned to the worker when a shift closes.
type ShiftEndResponse struct {
	SessionID   string  `json:"session_id"`
	EndTime     int64   `json:"end_time"`
	TotalHours  float64 `json:"total_hours"`
	Earnings    float64 `json:"earnings"`
	EndLocation *string `json:"end_location,omitempty"`
}

// TodaySummary aggregates the worker's closed sessions for the current day
// plus the live elapsed time of the open one, if any.
type TodaySummary struct {
	TotalHours     float64 `json:"total_hours"`
	Earnings       float64 `json:"earnings"`
	SessionCount   int     `json:"session_count"`
	OpenSessionID  *string `json:"open_session_id,omitempty"`
	ElapsedSeconds int64   `json:"elapsed_seconds"`
}
