package models

// Worker-facing roles. Managers and directors share the oversight surface;
// only admins may manage accounts and roles.
const (
	RoleWorker   = "worker"
	RoleManager  = "manager"
	RoleDirector = "director"
	RoleAdmin    = "admin"
)

type User struct {
	ID         string   `json:"id" db:"id"`
	Email      string   `json:"email" db:"email"`
	Password   string   `json:"-" db:"password"` // Never return password in JSON
	Name       string   `json:"name" db:"name"`
	Role       string   `json:"role" db:"role"`
	HourlyRate *float64 `json:"hourly_rate" db:"hourly_rate"`
	IsActive   bool     `json:"is_active" db:"is_active"`
	CreatedAt  int64    `json:"created_at" db:"created_at"`
	UpdatedAt  int64    `json:"updated_at" db:"updated_at"`
}

type UserResponse struct {
	ID         string   `json:"id"`
	Email      string   `json:"email"`
	Name       string   `json:"name"`
	Role       string   `json:"role"`
	HourlyRate *float64 `json:"hourly_rate,omitempty"`
	IsActive   bool     `json:"is_active"`
	CreatedAt  int64    `json:"created_at"`
}

func (u *User) ToUserResponse() UserResponse {
	return UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Role:       u.Role,
		HourlyRate: u.HourlyRate,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
	}
}

// IsManagerRole reports whether the role carries team oversight permissions.
func IsManagerRole(role string) bool {
	return role == RoleManager || role == RoleDirector || role == RoleAdmin
}

// RoleChangeLog is the audit record written whenever an admin changes a
// user's role.
type RoleChangeLog struct {
	ID        int     `json:"id" db:"id"`
	UserID    string  `json:"user_id" db:"user_id"`
	OldRole   string  `json:"old_role" db:"old_role"`
	NewRole   string  `json:"new_role" db:"new_role"`
	ChangedBy *string `json:"changed_by,omitempty" db:"changed_by"`
	ChangedAt int64   `json:"changed_at" db:"changed_at"`
}
