package api

import (
	"time"

	"github.com/example/taskdesk/domain/chat"
	"github.com/example/taskdesk/domain/task"
	"github.com/example/taskdesk/domain/user"
)

// LoginRequest is the body of both login endpoints.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      *user.User `json:"user"`
}

// CreateEmployeeRequest is the body for registering an employee.
type CreateEmployeeRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Position   string `json:"position"`
	Department string `json:"department"`
}

// EmployeeListResponse lists employees.
type EmployeeListResponse struct {
	Employees []user.User `json:"employees"`
	Total     int         `json:"total"`
}

// EmployeeDetailResponse is an employee with their tasks.
type EmployeeDetailResponse struct {
	Employee *user.User  `json:"employee"`
	Tasks    []task.Task `json:"tasks"`
}

// AssignTaskRequest is the body for creating a task.
type AssignTaskRequest struct {
	EmployeeID  string    `json:"employee_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
}

// UpdateStatusRequest is the body for a status change.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// TaskListResponse lists tasks.
type TaskListResponse struct {
	Tasks []task.Task `json:"tasks"`
	Total int         `json:"total"`
}

// ContactResponse is one chat sidebar entry.
type ContactResponse struct {
	User   user.User `json:"user"`
	Unseen int       `json:"unseen"`
	Online bool      `json:"online"`
}

// ContactListResponse is the chat sidebar.
type ContactListResponse struct {
	Contacts []ContactResponse `json:"contacts"`
}

// ConversationResponse is a conversation as it was when opened.
type ConversationResponse struct {
	With     string         `json:"with"`
	Messages []chat.Message `json:"messages"`
}

// SendMessageRequest is the body for sending a message.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// MarkedResponse reports how many messages were acknowledged.
type MarkedResponse struct {
	With   string `json:"with"`
	Marked int64  `json:"marked"`
}

// UnseenResponse carries counterpart -> unseen count.
type UnseenResponse struct {
	Counts chat.UnseenCounts `json:"counts"`
}

// OnlineResponse lists reachable users.
type OnlineResponse struct {
	Users []string `json:"users"`
}

// DeletedResponse acknowledges a deletion.
type DeletedResponse struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}
