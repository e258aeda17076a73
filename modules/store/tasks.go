package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/taskdesk/domain/apperr"
	"github.com/example/taskdesk/domain/task"
	"gorm.io/gorm"
)

// CreateTask saves a new task.
func (s *Store) CreateTask(ctx context.Context, t *task.Task) error {
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// FindTaskByID retrieves a task by id.
func (s *Store) FindTaskByID(ctx context.Context, id string) (*task.Task, error) {
	var t task.Task
	if err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("task %s", id)
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &t, nil
}

// UpdateTaskStatus moves a task from one status to another. The write only
// applies while the stored status still equals from; otherwise the task has
// changed underneath the caller and apperr.ErrInvalidTransition is returned.
func (s *Store) UpdateTaskStatus(ctx context.Context, id string, from, to task.Status, at time.Time) (*task.Task, error) {
	result := s.db.WithContext(ctx).
		Model(&task.Task{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": at})
	if err := result.Error; err != nil {
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}

	current, err := s.FindTaskByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 {
		return nil, apperr.InvalidTransition("task %s is %s, no longer %s", id, current.Status, from)
	}
	return current, nil
}

// ListTasks returns tasks matching filter, oldest first.
func (s *Store) ListTasks(ctx context.Context, filter task.Filter) ([]task.Task, error) {
	q := s.db.WithContext(ctx).Model(&task.Task{})
	if filter.AssignedTo != "" {
		q = q.Where("assigned_to = ?", filter.AssignedTo)
	}
	if filter.CreatedBy != "" {
		q = q.Where("created_by = ?", filter.CreatedBy)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var tasks []task.Task
	if err := q.Order("created_at ASC, rowid ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}
