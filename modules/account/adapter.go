package account

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/taskdesk/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// accountAdapter wraps ServiceContainer for type-safe cross-module communication.
type accountAdapter struct {
	container mono.ServiceContainer
}

// NewAccountAdapter creates an AccountPort backed by the account module's services.
func NewAccountAdapter(container mono.ServiceContainer) AccountPort {
	if container == nil {
		panic("account adapter requires non-nil ServiceContainer")
	}
	return &accountAdapter{container: container}
}

// call performs one request-reply round trip and decodes the reply into resp.
func call[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s service call failed: %w", service, err)
	}
	return nil
}

// Login authenticates via the login service.
func (a *accountAdapter) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := call(ctx, a.container, "login", req, &resp); err != nil {
		return nil, err
	}
	if err := resp.Failure.Err(); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ValidateToken resolves a bearer token via the validate-token service.
func (a *accountAdapter) ValidateToken(ctx context.Context, token string) (user.Identity, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse
	if err := call(ctx, a.container, "validate-token", &req, &resp); err != nil {
		return user.Identity{}, err
	}
	return resp.Identity, resp.Failure.Err()
}

// CreateEmployee registers an employee via the create-employee service.
func (a *accountAdapter) CreateEmployee(ctx context.Context, req *CreateEmployeeRequest) (*user.User, error) {
	var resp UserResponse
	if err := call(ctx, a.container, "create-employee", req, &resp); err != nil {
		return nil, err
	}
	return resp.User, resp.Failure.Err()
}

// ListEmployees lists employees via the list-employees service.
func (a *accountAdapter) ListEmployees(ctx context.Context, actor user.Identity) ([]user.User, error) {
	req := ListUsersRequest{Actor: actor}
	var resp ListUsersResponse
	if err := call(ctx, a.container, "list-employees", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Users, resp.Failure.Err()
}

// GetEmployee fetches an employee and their tasks via the get-employee service.
func (a *accountAdapter) GetEmployee(ctx context.Context, req *EmployeeRequest) (*EmployeeResponse, error) {
	var resp EmployeeResponse
	if err := call(ctx, a.container, "get-employee", req, &resp); err != nil {
		return nil, err
	}
	if err := resp.Failure.Err(); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteEmployee removes an employee via the delete-employee service.
func (a *accountAdapter) DeleteEmployee(ctx context.Context, req *EmployeeRequest) error {
	var resp DeleteEmployeeResponse
	if err := call(ctx, a.container, "delete-employee", req, &resp); err != nil {
		return err
	}
	return resp.Failure.Err()
}

// Contacts lists chat counterparts via the contacts service.
func (a *accountAdapter) Contacts(ctx context.Context, actor user.Identity) ([]user.User, error) {
	req := ListUsersRequest{Actor: actor}
	var resp ListUsersResponse
	if err := call(ctx, a.container, "contacts", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Users, resp.Failure.Err()
}
