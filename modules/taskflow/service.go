package taskflow

import (
	"context"
	"strings"
	"time"

	"github.com/example/taskdesk/domain/apperr"
	"github.com/example/taskdesk/domain/task"
	"github.com/example/taskdesk/domain/user"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// DefaultFinishDelay postpones the notification of an employee "finish".
const DefaultFinishDelay = 3 * time.Second

// TaskStore is the slice of the record store the state machine needs.
type TaskStore interface {
	CreateTask(ctx context.Context, t *task.Task) error
	FindTaskByID(ctx context.Context, id string) (*task.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, from, to task.Status, at time.Time) (*task.Task, error)
	ListTasks(ctx context.Context, filter task.Filter) ([]task.Task, error)
	FindUserByID(ctx context.Context, id string) (*user.User, error)
}

// Notice says who must hear about a change and after how long.
type Notice struct {
	Target string
	Delay  time.Duration
}

// NewTask is the input of AssignTask.
type NewTask struct {
	EmployeeID  string
	Title       string
	Description string
	DueDate     time.Time
}

// Outcome is the result of a successful transition.
type Outcome struct {
	Task     *task.Task
	From     task.Status
	Trigger  Trigger
	Override bool
	Notice   Notice
}

// Service validates and applies task assignments and status transitions.
type Service struct {
	store       TaskStore
	clock       clockwork.Clock
	finishDelay time.Duration
	logger      types.Logger
}

// NewService creates a Service.
func NewService(store TaskStore, clock clockwork.Clock, finishDelay time.Duration, logger types.Logger) *Service {
	return &Service{
		store:       store,
		clock:       clock,
		finishDelay: finishDelay,
		logger:      logger,
	}
}

// AssignTask creates a pending task for an employee on behalf of an admin.
func (s *Service) AssignTask(ctx context.Context, actor user.Identity, in NewTask) (*task.Task, Notice, error) {
	if actor.Role != user.RoleAdmin {
		return nil, Notice{}, apperr.Forbidden("only admins can assign tasks")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, Notice{}, apperr.Invalid("task title is required")
	}
	if in.DueDate.IsZero() {
		return nil, Notice{}, apperr.Invalid("task due date is required")
	}

	assignee, err := s.store.FindUserByID(ctx, in.EmployeeID)
	if err != nil {
		return nil, Notice{}, err
	}
	if assignee.Role != user.RoleEmployee {
		return nil, Notice{}, apperr.NotFound("employee %s", in.EmployeeID)
	}

	now := s.clock.Now().UTC()
	t := &task.Task{
		ID:          uuid.New().String(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		AssignedTo:  assignee.ID,
		CreatedBy:   actor.ID,
		Status:      task.StatusPending,
		DueDate:     in.DueDate.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, Notice{}, err
	}

	s.logger.Info("Task assigned", "task_id", t.ID, "assigned_to", t.AssignedTo, "created_by", t.CreatedBy)
	return t, Notice{Target: t.AssignedTo}, nil
}

// Transition moves a task to newStatus on behalf of actor.
//
// Checks run in order: status is known, task exists, an employee owns the
// task, the move is allowed for the actor's role. The write is conditional
// on the status read here, so a concurrent change fails with
// apperr.ErrInvalidTransition.
func (s *Service) Transition(ctx context.Context, taskID string, actor user.Identity, newStatus string) (*Outcome, error) {
	to, err := task.ParseStatus(newStatus)
	if err != nil {
		return nil, apperr.Invalid("%v", err)
	}

	current, err := s.store.FindTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if actor.Role != user.RoleAdmin && current.AssignedTo != actor.ID {
		return nil, apperr.Forbidden("task %s is not assigned to %s", taskID, actor.ID)
	}

	trigger, err := Decide(actor.Role, current.Status, to)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateTaskStatus(ctx, taskID, current.Status, to, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Task:     updated,
		From:     current.Status,
		Trigger:  trigger,
		Override: trigger == TriggerOverride,
	}
	if actor.Role == user.RoleAdmin {
		out.Notice.Target = updated.AssignedTo
	} else {
		out.Notice.Target = updated.CreatedBy
	}
	// A resubmit from redo is reported at once.
	if trigger == TriggerFinish {
		out.Notice.Delay = s.finishDelay
	}

	if out.Override {
		s.logger.Warn("Admin status override",
			"task_id", taskID, "actor_id", actor.ID, "from", current.Status, "to", to)
	} else {
		s.logger.Info("Task transitioned",
			"task_id", taskID, "actor_id", actor.ID, "trigger", trigger, "from", current.Status, "to", to)
	}
	return out, nil
}

// ListTasks returns the tasks visible to actor. Employees only see their own.
func (s *Service) ListTasks(ctx context.Context, actor user.Identity, filter task.Filter) ([]task.Task, error) {
	if actor.Role != user.RoleAdmin {
		filter.AssignedTo = actor.ID
	}
	return s.store.ListTasks(ctx, filter)
}
