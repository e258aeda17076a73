package account

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/example/taskdesk/domain/apperr"
	"github.com/example/taskdesk/domain/task"
	"github.com/example/taskdesk/domain/user"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Password length bounds. bcrypt ignores bytes past 72.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

// AccountStore is the slice of the record store accounts need.
type AccountStore interface {
	CreateUser(ctx context.Context, u *user.User) error
	FindUserByID(ctx context.Context, id string) (*user.User, error)
	FindUserByEmail(ctx context.Context, email string) (*user.User, error)
	ListUsersByRole(ctx context.Context, role user.Role) ([]user.User, error)
	DeleteEmployee(ctx context.Context, id string) error
	ListTasks(ctx context.Context, filter task.Filter) ([]task.Task, error)
}

// NewEmployee is the input of CreateEmployee.
type NewEmployee struct {
	Name       string
	Email      string
	Password   string
	Position   string
	Department string
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *user.User
}

// AccountService handles logins and employee management.
type AccountService struct {
	store  AccountStore
	hasher *PasswordHasher
	jwt    *JWTManager
	clock  clockwork.Clock
	logger types.Logger
}

// NewAccountService creates a new AccountService.
func NewAccountService(store AccountStore, hasher *PasswordHasher, jwt *JWTManager, clock clockwork.Clock, logger types.Logger) *AccountService {
	return &AccountService{
		store:  store,
		hasher: hasher,
		jwt:    jwt,
		clock:  clock,
		logger: logger,
	}
}

// Login authenticates a user of the given role. An unknown email or a user of
// another role reads as "not found".
func (s *AccountService) Login(ctx context.Context, email, password string, role user.Role) (*Session, error) {
	u, err := s.store.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("%s not found", role)
		}
		return nil, err
	}
	if u.Role != role {
		return nil, apperr.NotFound("%s not found", role)
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return nil, apperr.Unauthorized("invalid credentials")
	}

	token, expiresAt, err := s.jwt.Generate(u.Identity())
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in", "user_id", u.ID, "role", u.Role)
	return &Session{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

// ValidateToken returns the identity a token was issued for. The account
// must still exist with the role the token carries.
func (s *AccountService) ValidateToken(ctx context.Context, token string) (user.Identity, error) {
	claims, err := s.jwt.Validate(token)
	if err != nil {
		return user.Identity{}, err
	}

	identity := claims.Identity()
	u, err := s.store.FindUserByID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return user.Identity{}, ErrAccountGone
		}
		return user.Identity{}, err
	}
	if u.Role != identity.Role {
		return user.Identity{}, ErrAccountGone
	}
	return identity, nil
}

// CreateEmployee registers a new employee on behalf of an admin.
func (s *AccountService) CreateEmployee(ctx context.Context, actor user.Identity, in NewEmployee) (*user.User, error) {
	if actor.Role != user.RoleAdmin {
		return nil, apperr.Forbidden("only admins can create employees")
	}
	return s.createUser(ctx, user.RoleEmployee, in)
}

func (s *AccountService) createUser(ctx context.Context, role user.Role, in NewEmployee) (*user.User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Invalid("name is required")
	}
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Invalid("invalid email format")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apperr.Invalid("password must be at least %d characters", MinPasswordLength)
	}
	if len(in.Password) > MaxPasswordLength {
		return nil, apperr.Invalid("password must be at most %d characters", MaxPasswordLength)
	}

	if _, err := s.store.FindUserByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("email %s already registered", email)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	u := &user.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Position:     strings.TrimSpace(in.Position),
		Department:   strings.TrimSpace(in.Department),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("User created", "user_id", u.ID, "role", role)
	return u, nil
}

// ListEmployees returns every employee.
func (s *AccountService) ListEmployees(ctx context.Context, actor user.Identity) ([]user.User, error) {
	if actor.Role != user.RoleAdmin {
		return nil, apperr.Forbidden("only admins can list employees")
	}
	return s.store.ListUsersByRole(ctx, user.RoleEmployee)
}

// GetEmployee returns an employee together with their tasks. Employees may
// only look themselves up.
func (s *AccountService) GetEmployee(ctx context.Context, actor user.Identity, id string) (*user.User, []task.Task, error) {
	if actor.Role != user.RoleAdmin && actor.ID != id {
		return nil, nil, apperr.Forbidden("cannot view employee %s", id)
	}
	u, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if u.Role != user.RoleEmployee {
		return nil, nil, apperr.NotFound("employee %s", id)
	}
	tasks, err := s.store.ListTasks(ctx, task.Filter{AssignedTo: id})
	if err != nil {
		return nil, nil, err
	}
	return u, tasks, nil
}

// DeleteEmployee removes an employee with their tasks and messages.
func (s *AccountService) DeleteEmployee(ctx context.Context, actor user.Identity, id string) error {
	if actor.Role != user.RoleAdmin {
		return apperr.Forbidden("only admins can delete employees")
	}
	if err := s.store.DeleteEmployee(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Employee deleted", "employee_id", id, "actor_id", actor.ID)
	return nil
}

// Contacts returns the users viewer may chat with: admins talk to employees
// and employees talk to admins.
func (s *AccountService) Contacts(ctx context.Context, viewer user.Identity) ([]user.User, error) {
	switch viewer.Role {
	case user.RoleAdmin:
		return s.store.ListUsersByRole(ctx, user.RoleEmployee)
	case user.RoleEmployee:
		return s.store.ListUsersByRole(ctx, user.RoleAdmin)
	default:
		return nil, apperr.Forbidden("unknown role %q", viewer.Role)
	}
}

// SeedAdmin creates the initial admin account unless the email is taken.
// It reports whether an account was created.
func (s *AccountService) SeedAdmin(ctx context.Context, name, email, password string) (bool, error) {
	_, err := s.createUser(ctx, user.RoleAdmin, NewEmployee{Name: name, Email: email, Password: password})
	if errors.Is(err, apperr.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
