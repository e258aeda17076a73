package account

import (
	"context"
	"time"

	"github.com/example/taskdesk/domain/apperr"
	"github.com/example/taskdesk/domain/task"
	"github.com/example/taskdesk/domain/user"
)

// LoginRequest is the request for logging in as a given role.
type LoginRequest struct {
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     user.Role `json:"role"`
}

// LoginResponse carries a signed token or a domain failure.
type LoginResponse struct {
	Token     string          `json:"token,omitempty"`
	ExpiresAt time.Time       `json:"expires_at,omitzero"`
	User      *user.User      `json:"user,omitempty"`
	Failure   *apperr.Failure `json:"failure,omitempty"`
}

// ValidateTokenRequest is the request for validating a bearer token.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse carries the identity behind a token.
type ValidateTokenResponse struct {
	Identity user.Identity   `json:"identity"`
	Failure  *apperr.Failure `json:"failure,omitempty"`
}

// CreateEmployeeRequest is the request for registering an employee.
type CreateEmployeeRequest struct {
	Actor      user.Identity `json:"actor"`
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	Password   string        `json:"password"`
	Position   string        `json:"position"`
	Department string        `json:"department"`
}

// UserResponse carries one user or a domain failure.
type UserResponse struct {
	User    *user.User      `json:"user,omitempty"`
	Failure *apperr.Failure `json:"failure,omitempty"`
}

// EmployeeRequest addresses one employee.
type EmployeeRequest struct {
	Actor      user.Identity `json:"actor"`
	EmployeeID string        `json:"employee_id"`
}

// EmployeeResponse carries an employee with their tasks.
type EmployeeResponse struct {
	User    *user.User      `json:"user,omitempty"`
	Tasks   []task.Task     `json:"tasks,omitempty"`
	Failure *apperr.Failure `json:"failure,omitempty"`
}

// DeleteEmployeeResponse is the response for deleting an employee.
type DeleteEmployeeResponse struct {
	Deleted bool            `json:"deleted"`
	Failure *apperr.Failure `json:"failure,omitempty"`
}

// ListUsersRequest lists users visible to Actor.
type ListUsersRequest struct {
	Actor user.Identity `json:"actor"`
}

// ListUsersResponse is the response for user listings.
type ListUsersResponse struct {
	Users   []user.User     `json:"users"`
	Total   int             `json:"total"`
	Failure *apperr.Failure `json:"failure,omitempty"`
}

// AccountPort defines the account operations exposed to request handlers.
type AccountPort interface {
	Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error)
	ValidateToken(ctx context.Context, token string) (user.Identity, error)
	CreateEmployee(ctx context.Context, req *CreateEmployeeRequest) (*user.User, error)
	ListEmployees(ctx context.Context, actor user.Identity) ([]user.User, error)
	GetEmployee(ctx context.Context, req *EmployeeRequest) (*EmployeeResponse, error)
	DeleteEmployee(ctx context.Context, req *EmployeeRequest) error
	Contacts(ctx context.Context, actor user.Identity) ([]user.User, error)
}
