package taskflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/taskdesk/domain/apperr"
	"github.com/example/taskdesk/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/jonboulle/clockwork"
)

// TaskflowModule exposes the task state machine as request-reply services
// and emits an event for every assignment and transition.
type TaskflowModule struct {
	service  *Service
	clock    clockwork.Clock
	eventBus mono.EventBus
	logger   types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*TaskflowModule)(nil)
var _ mono.ServiceProviderModule = (*TaskflowModule)(nil)
var _ mono.EventBusAwareModule = (*TaskflowModule)(nil)
var _ mono.EventEmitterModule = (*TaskflowModule)(nil)

// NewModule creates a new TaskflowModule.
func NewModule(store TaskStore, clock clockwork.Clock, finishDelay time.Duration, logger types.Logger) *TaskflowModule {
	return &TaskflowModule{
		service: NewService(store, clock, finishDelay, logger),
		clock:   clock,
		logger:  logger,
	}
}

// Name returns the module name.
func (m *TaskflowModule) Name() string {
	return "taskflow"
}

// SetEventBus is called by the framework to inject the event bus.
func (m *TaskflowModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module publishes.
func (m *TaskflowModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskAssignedV1.ToBase(),
		events.TaskUpdatedV1.ToBase(),
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *TaskflowModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "assign", json.Unmarshal, json.Marshal, m.assignTask,
	); err != nil {
		return fmt.Errorf("failed to register assign service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "set-status", json.Unmarshal, json.Marshal, m.setStatus,
	); err != nil {
		return fmt.Errorf("failed to register set-status service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list", json.Unmarshal, json.Marshal, m.listTasks,
	); err != nil {
		return fmt.Errorf("failed to register list service: %w", err)
	}

	m.logger.Info("Registered services", "services", "services.taskflow.{assign,set-status,list}")
	return nil
}

// Start initializes the module.
func (m *TaskflowModule) Start(_ context.Context) error {
	if m.eventBus == nil {
		m.logger.Warn("Event bus not set, task notifications will not be published")
	}
	m.logger.Info("Taskflow module started", "finish_delay", m.service.finishDelay)
	return nil
}

// Stop shuts down the module.
func (m *TaskflowModule) Stop(_ context.Context) error {
	m.logger.Info("Taskflow module stopped")
	return nil
}

func (m *TaskflowModule) assignTask(ctx context.Context, req AssignTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, notice, err := m.service.AssignTask(ctx, req.Actor, NewTask{
		EmployeeID:  req.EmployeeID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	})
	if err != nil {
		failure, internal := apperr.ToFailure(err)
		return TaskResponse{Failure: failure}, internal
	}

	m.publishAssigned(events.TaskAssignedEvent{
		Target:    notice.Target,
		Task:      *t,
		Timestamp: m.clock.Now().UTC(),
	})
	return TaskResponse{Task: t}, nil
}

func (m *TaskflowModule) setStatus(ctx context.Context, req SetStatusRequest, _ *mono.Msg) (TaskResponse, error) {
	out, err := m.service.Transition(ctx, req.TaskID, req.Actor, req.Status)
	if err != nil {
		failure, internal := apperr.ToFailure(err)
		return TaskResponse{Failure: failure}, internal
	}

	m.publishUpdated(events.TaskUpdatedEvent{
		Target:    out.Notice.Target,
		ActorID:   req.Actor.ID,
		From:      out.From,
		Override:  out.Override,
		Delay:     out.Notice.Delay,
		Task:      *out.Task,
		Timestamp: m.clock.Now().UTC(),
	})
	return TaskResponse{Task: out.Task, Override: out.Override}, nil
}

func (m *TaskflowModule) listTasks(ctx context.Context, req ListTasksRequest, _ *mono.Msg) (ListTasksResponse, error) {
	tasks, err := m.service.ListTasks(ctx, req.Actor, req.Filter)
	if err != nil {
		failure, internal := apperr.ToFailure(err)
		return ListTasksResponse{Failure: failure}, internal
	}
	return ListTasksResponse{Tasks: tasks, Total: len(tasks)}, nil
}

// A failed publish never rolls back the durable change.
func (m *TaskflowModule) publishAssigned(event events.TaskAssignedEvent) {
	if m.eventBus == nil {
		return
	}
	if err := events.TaskAssignedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish TaskAssigned event", "task_id", event.Task.ID, "error", err)
	}
}

func (m *TaskflowModule) publishUpdated(event events.TaskUpdatedEvent) {
	if m.eventBus == nil {
		return
	}
	if err := events.TaskUpdatedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish TaskUpdated event", "task_id", event.Task.ID, "error", err)
	}
}
