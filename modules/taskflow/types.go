package taskflow

import (
	"context"
	"time"

	"github.com/example/taskdesk/domain/apperr"
	"github.com/example/taskdesk/domain/task"
	"github.com/example/taskdesk/domain/user"
)

// AssignTaskRequest is the request for assigning a task.
type AssignTaskRequest struct {
	Actor       user.Identity `json:"actor"`
	EmployeeID  string        `json:"employee_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	DueDate     time.Time     `json:"due_date"`
}

// TaskResponse carries one task or a domain failure.
type TaskResponse struct {
	Task     *task.Task      `json:"task,omitempty"`
	Override bool            `json:"override,omitempty"`
	Failure  *apperr.Failure `json:"failure,omitempty"`
}

// SetStatusRequest is the request for a status transition.
type SetStatusRequest struct {
	Actor  user.Identity `json:"actor"`
	TaskID string        `json:"task_id"`
	Status string        `json:"status"`
}

// ListTasksRequest is the request for listing tasks.
type ListTasksRequest struct {
	Actor  user.Identity `json:"actor"`
	Filter task.Filter   `json:"filter"`
}

// ListTasksResponse is the response for listing tasks.
type ListTasksResponse struct {
	Tasks   []task.Task     `json:"tasks"`
	Total   int             `json:"total"`
	Failure *apperr.Failure `json:"failure,omitempty"`
}

// TaskPort defines the task operations exposed to request handlers.
type TaskPort interface {
	AssignTask(ctx context.Context, req *AssignTaskRequest) (*task.Task, error)
	SetTaskStatus(ctx context.Context, req *SetStatusRequest) (*task.Task, error)
	ListTasks(ctx context.Context, req *ListTasksRequest) ([]task.Task, error)
}
