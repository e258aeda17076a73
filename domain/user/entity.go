package user

import "time"

// Role is the closed set of user roles.
type Role string

// Roles.
const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// User represents an account in the system.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Email        string    `gorm:"uniqueIndex;size:254;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         Role      `gorm:"size:16;index;not null" json:"role"`
	Position     string    `gorm:"size:100" json:"position,omitempty"`
	Department   string    `gorm:"size:100" json:"department,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// Identity is the slice of a user the real-time core cares about.
type Identity struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// Identity returns the id and role of u.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Role: u.Role}
}
