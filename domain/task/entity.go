package task

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

// Task statuses.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusRedo       Status = "redo"
	StatusCompleted  Status = "completed"
)

// ParseStatus converts s into a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusInProgress, StatusRedo, StatusCompleted:
		return st, nil
	default:
		return "", fmt.Errorf("unknown task status %q", s)
	}
}

// Task is a unit of work an admin assigns to an employee.
type Task struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"size:2000" json:"description"`
	AssignedTo  string    `gorm:"size:36;index;not null" json:"assigned_to"`
	CreatedBy   string    `gorm:"size:36;index;not null" json:"created_by"`
	Status      Status    `gorm:"size:16;not null;default:pending" json:"status"`
	DueDate     time.Time `gorm:"not null" json:"due_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the table name for the Task entity.
func (Task) TableName() string {
	return "tasks"
}

// Filter narrows a task listing. Zero values match everything.
type Filter struct {
	AssignedTo string `json:"assigned_to,omitempty"`
	CreatedBy  string `json:"created_by,omitempty"`
	Status     Status `json:"status,omitempty"`
}
