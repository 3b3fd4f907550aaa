package models

// WorkerLocation is a GPS sample from a worker's device, streamed during an
// open shift and shown on the manager live map.
type WorkerLocation struct {
	ID        int      `json:"id" db:"id"`
	WorkerID  string   `json:"worker_id" db:"worker_id"`
	Latitude  float64  `json:"latitude" db:"latitude"`
	Longitude float64  `json:"longitude" db:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty" db:"accuracy"` // GPS accuracy in meters
	SessionID *string  `json:"session_id,omitempty" db:"session_id"`
	Timestamp int64    `json:"timestamp" db:"timestamp"` // Client-side timestamp
	CreatedAt int64    `json:"created_at" db:"created_at"`
}

// FCMToken registers a device for push notifications.
type FCMToken struct {
	ID         int    `json:"id" db:"id"`
	UserID     string `json:"user_id" db:"user_id"`
	Token      string `json:"token" db:"token"`
	DeviceType string `json:"device_type" db:"device_type"` // "ios" or "android"
	CreatedAt  int64  `json:"created_at" db:"created_at"`
	UpdatedAt  int64  `json:"updated_at" db:"updated_at"`
}
