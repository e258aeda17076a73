package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/taskdesk/domain/apperr"
	"github.com/example/taskdesk/domain/chat"
	"github.com/example/taskdesk/domain/task"
	"github.com/example/taskdesk/domain/user"
	"gorm.io/gorm"
)

// CreateUser saves a new user. A taken email yields apperr.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict("email %s already registered", u.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByID retrieves a user by id.
func (s *Store) FindUserByID(ctx context.Context, id string) (*user.User, error) {
	var u user.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user %s", id)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &u, nil
}

// FindUserByEmail retrieves a user by email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	if err := s.db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user with email %s", email)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &u, nil
}

// ListUsersByRole returns every user with role, ordered by name.
func (s *Store) ListUsersByRole(ctx context.Context, role user.Role) ([]user.User, error) {
	var users []user.User
	if err := s.db.WithContext(ctx).
		Where("role = ?", role).
		Order("name ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// DeleteEmployee removes an employee together with their tasks and every
// message they sent or received.
func (s *Store) DeleteEmployee(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND role = ?", id, user.RoleEmployee).Delete(&user.User{})
		if err := result.Error; err != nil {
			return fmt.Errorf("failed to delete employee: %w", err)
		}
		if result.RowsAffected == 0 {
			return apperr.NotFound("employee %s", id)
		}

		if err := tx.Where("assigned_to = ?", id).Delete(&task.Task{}).Error; err != nil {
			return fmt.Errorf("failed to delete employee tasks: %w", err)
		}
		if err := tx.Where("sender_id = ? OR receiver_id = ?", id, id).Delete(&chat.Message{}).Error; err != nil {
			return fmt.Errorf("failed to delete employee messages: %w", err)
		}
		return nil
	})
}
