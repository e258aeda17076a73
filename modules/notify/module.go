package notify

import (
	"context"
	"fmt"

	"github.com/example/taskdesk/events"
	"github.com/example/taskdesk/modules/presence"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/jonboulle/clockwork"
)

// NotifyModule is an EventConsumerModule that pushes task and chat events
// to the connected counterpart.
type NotifyModule struct {
	registry   *presence.Registry
	dispatcher *Dispatcher
	logger     types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*NotifyModule)(nil)
var _ mono.EventConsumerModule = (*NotifyModule)(nil)
var _ mono.HealthCheckableModule = (*NotifyModule)(nil)

// NewModule creates a new NotifyModule.
func NewModule(clock clockwork.Clock, logger types.Logger) *NotifyModule {
	registry := presence.NewRegistry(logger.With("component", "presence"))
	return &NotifyModule{
		registry:   registry,
		dispatcher: NewDispatcher(registry, clock, logger.With("component", "dispatcher")),
		logger:     logger,
	}
}

// Name returns the module name.
func (m *NotifyModule) Name() string {
	return "notify"
}

// Start initializes the module.
func (m *NotifyModule) Start(_ context.Context) error {
	m.logger.Info("Notify module started")
	return nil
}

// Stop cancels deferred notifications and closes every live connection.
func (m *NotifyModule) Stop(_ context.Context) error {
	cancelled := m.dispatcher.Stop()
	closed := m.registry.CloseAll()
	m.logger.Info("Notify module stopped", "cancelled_notifications", cancelled, "closed_connections", closed)
	return nil
}

// Health returns the health status.
func (m *NotifyModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients":     m.registry.Count(),
			"pending_notifications": m.dispatcher.Pending(),
		},
	}
}

// RegisterEventConsumers registers event handlers.
func (m *NotifyModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.TaskAssignedV1, m.handleTaskAssigned, m,
	); err != nil {
		return fmt.Errorf("failed to register TaskAssigned consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.TaskUpdatedV1, m.handleTaskUpdated, m,
	); err != nil {
		return fmt.Errorf("failed to register TaskUpdated consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.EmployeeDeletedV1, m.handleEmployeeDeleted, m,
	); err != nil {
		return fmt.Errorf("failed to register EmployeeDeleted consumer: %w", err)
	}

	m.logger.Info("Registered event consumers", "events", []string{"TaskAssigned.v1", "TaskUpdated.v1", "MessageSent.v1", "EmployeeDeleted.v1"})
	return nil
}

func (m *NotifyModule) handleTaskAssigned(_ context.Context, event events.TaskAssignedEvent, _ *mono.Msg) error {
	m.dispatcher.Schedule(Intent{
		Target:  event.Target,
		Event:   EventTaskAssigned,
		Payload: event.Task,
	})
	return nil
}

func (m *NotifyModule) handleTaskUpdated(_ context.Context, event events.TaskUpdatedEvent, _ *mono.Msg) error {
	if event.Override {
		m.logger.Debug("Notifying override", "task_id", event.Task.ID, "actor_id", event.ActorID)
	}
	m.dispatcher.Schedule(Intent{
		Target:  event.Target,
		Event:   EventTaskUpdated,
		Payload: event.Task,
		Delay:   event.Delay,
	})
	return nil
}

func (m *NotifyModule) handleMessageSent(_ context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	m.dispatcher.Schedule(Intent{
		Target:  event.Target,
		Event:   EventNewMessage,
		Payload: event.Message,
	})
	return nil
}

// handleEmployeeDeleted disconnects a removed employee.
func (m *NotifyModule) handleEmployeeDeleted(_ context.Context, event events.EmployeeDeletedEvent, _ *mono.Msg) error {
	if m.registry.Evict(event.EmployeeID) {
		m.logger.Info("Disconnected removed employee", "employee_id", event.EmployeeID, "actor_id", event.ActorID)
	}
	return nil
}

// Registry returns the presence registry for the API module to bind
// connections against.
func (m *NotifyModule) Registry() *presence.Registry {
	return m.registry
}
