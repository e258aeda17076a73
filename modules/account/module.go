package account

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/taskdesk/domain/apperr"
	"github.com/example/taskdesk/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/jonboulle/clockwork"
)

// AdminSeed describes the admin account created on startup. An empty Email
// disables seeding.
type AdminSeed struct {
	Name     string
	Email    string
	Password string
}

// AccountModule owns user accounts and authentication.
type AccountModule struct {
	service  *AccountService
	seed     AdminSeed
	clock    clockwork.Clock
	eventBus mono.EventBus
	logger   types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*AccountModule)(nil)
var _ mono.ServiceProviderModule = (*AccountModule)(nil)
var _ mono.EventBusAwareModule = (*AccountModule)(nil)
var _ mono.EventEmitterModule = (*AccountModule)(nil)

// NewModule creates a new AccountModule.
func NewModule(store AccountStore, jwtConfig JWTConfig, bcryptCost int, seed AdminSeed, clock clockwork.Clock, logger types.Logger) *AccountModule {
	return &AccountModule{
		service: NewAccountService(
			store,
			NewPasswordHasher(bcryptCost),
			NewJWTManager(jwtConfig, clock),
			clock,
			logger,
		),
		seed:   seed,
		clock:  clock,
		logger: logger,
	}
}

// Name returns the module name.
func (m *AccountModule) Name() string {
	return "account"
}

// SetEventBus is called by the framework to inject the event bus.
func (m *AccountModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module publishes.
func (m *AccountModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.EmployeeDeletedV1.ToBase(),
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *AccountModule) RegisterServices(container mono.ServiceContainer) error {
	services := []struct {
		name     string
		register func() error
	}{
		{"login", func() error {
			return helper.RegisterTypedRequestReplyService(container, "login", json.Unmarshal, json.Marshal, m.login)
		}},
		{"validate-token", func() error {
			return helper.RegisterTypedRequestReplyService(container, "validate-token", json.Unmarshal, json.Marshal, m.validateToken)
		}},
		{"create-employee", func() error {
			return helper.RegisterTypedRequestReplyService(container, "create-employee", json.Unmarshal, json.Marshal, m.createEmployee)
		}},
		{"list-employees", func() error {
			return helper.RegisterTypedRequestReplyService(container, "list-employees", json.Unmarshal, json.Marshal, m.listEmployees)
		}},
		{"get-employee", func() error {
			return helper.RegisterTypedRequestReplyService(container, "get-employee", json.Unmarshal, json.Marshal, m.getEmployee)
		}},
		{"delete-employee", func() error {
			return helper.RegisterTypedRequestReplyService(container, "delete-employee", json.Unmarshal, json.Marshal, m.deleteEmployee)
		}},
		{"contacts", func() error {
			return helper.RegisterTypedRequestReplyService(container, "contacts", json.Unmarshal, json.Marshal, m.contacts)
		}},
	}

	for _, svc := range services {
		if err := svc.register(); err != nil {
			return fmt.Errorf("failed to register %s service: %w", svc.name, err)
		}
	}

	m.logger.Info("Registered services",
		"services", "services.account.{login,validate-token,create-employee,list-employees,get-employee,delete-employee,contacts}")
	return nil
}

// Start seeds the admin account when configured.
func (m *AccountModule) Start(ctx context.Context) error {
	if m.seed.Email != "" {
		created, err := m.service.SeedAdmin(ctx, m.seed.Name, m.seed.Email, m.seed.Password)
		if err != nil {
			return fmt.Errorf("failed to seed admin account: %w", err)
		}
		if created {
			m.logger.Info("Seeded admin account", "email", m.seed.Email)
		}
	}
	m.logger.Info("Account module started")
	return nil
}

// Stop shuts down the module.
func (m *AccountModule) Stop(_ context.Context) error {
	m.logger.Info("Account module stopped")
	return nil
}

func (m *AccountModule) login(ctx context.Context, req LoginRequest, _ *mono.Msg) (LoginResponse, error) {
	session, err := m.service.Login(ctx, req.Email, req.Password, req.Role)
	if err != nil {
		failure, internal := apperr.ToFailure(err)
		return LoginResponse{Failure: failure}, internal
	}
	return LoginResponse{Token: session.Token, ExpiresAt: session.ExpiresAt, User: session.User}, nil
}

func (m *AccountModule) validateToken(ctx context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	identity, err := m.service.ValidateToken(ctx, req.Token)
	if err != nil {
		failure, internal := apperr.ToFailure(err)
		return ValidateTokenResponse{Failure: failure}, internal
	}
	return ValidateTokenResponse{Identity: identity}, nil
}

func (m *AccountModule) createEmployee(ctx context.Context, req CreateEmployeeRequest, _ *mono.Msg) (UserResponse, error) {
	u, err := m.service.CreateEmployee(ctx, req.Actor, NewEmployee{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Position:   req.Position,
		Department: req.Department,
	})
	if err != nil {
		failure, internal := apperr.ToFailure(err)
		return UserResponse{Failure: failure}, internal
	}
	return UserResponse{User: u}, nil
}

func (m *AccountModule) listEmployees(ctx context.Context, req ListUsersRequest, _ *mono.Msg) (ListUsersResponse, error) {
	users, err := m.service.ListEmployees(ctx, req.Actor)
	if err != nil {
		failure, internal := apperr.ToFailure(err)
		return ListUsersResponse{Failure: failure}, internal
	}
	return ListUsersResponse{Users: users, Total: len(users)}, nil
}

func (m *AccountModule) getEmployee(ctx context.Context, req EmployeeRequest, _ *mono.Msg) (EmployeeResponse, error) {
	u, tasks, err := m.service.GetEmployee(ctx, req.Actor, req.EmployeeID)
	if err != nil {
		failure, internal := apperr.ToFailure(err)
		return EmployeeResponse{Failure: failure}, internal
	}
	return EmployeeResponse{User: u, Tasks: tasks}, nil
}

func (m *AccountModule) deleteEmployee(ctx context.Context, req EmployeeRequest, _ *mono.Msg) (DeleteEmployeeResponse, error) {
	if err := m.service.DeleteEmployee(ctx, req.Actor, req.EmployeeID); err != nil {
		failure, internal := apperr.ToFailure(err)
		return DeleteEmployeeResponse{Failure: failure}, internal
	}

	if m.eventBus != nil {
		event := events.EmployeeDeletedEvent{
			EmployeeID: req.EmployeeID,
			ActorID:    req.Actor.ID,
			Timestamp:  m.clock.Now().UTC(),
		}
		if err := events.EmployeeDeletedV1.Publish(m.eventBus, event, nil); err != nil {
			m.logger.Warn("Failed to publish EmployeeDeleted event", "employee_id", req.EmployeeID, "error", err)
		}
	}
	return DeleteEmployeeResponse{Deleted: true}, nil
}

func (m *AccountModule) contacts(ctx context.Context, req ListUsersRequest, _ *mono.Msg) (ListUsersResponse, error) {
	users, err := m.service.Contacts(ctx, req.Actor)
	if err != nil {
		failure, internal := apperr.ToFailure(err)
		return ListUsersResponse{Failure: failure}, internal
	}
	return ListUsersResponse{Users: users, Total: len(users)}, nil
}
