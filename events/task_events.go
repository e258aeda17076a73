package events

import (
	"time"

	"github.com/example/taskdesk/domain/task"
	"github.com/go-monolith/mono/pkg/helper"
)

// TaskAssignedEvent is emitted when an admin creates a task for an employee.
type TaskAssignedEvent struct {
	Target    string    `json:"target"`
	Task      task.Task `json:"task"`
	Timestamp time.Time `json:"timestamp"`
}

// TaskUpdatedEvent is emitted after every successful status transition.
// Target is the party that did not act. Delay postpones the real-time
// notification only; the status is already persisted.
type TaskUpdatedEvent struct {
	Target    string        `json:"target"`
	ActorID   string        `json:"actor_id"`
	From      task.Status   `json:"from"`
	Override  bool          `json:"override"`
	Delay     time.Duration `json:"delay"`
	Task      task.Task     `json:"task"`
	Timestamp time.Time     `json:"timestamp"`
}

// Event definitions for the task domain.
var (
	TaskAssignedV1 = helper.EventDefinition[TaskAssignedEvent](
		"task",
		"TaskAssigned",
		"v1",
	)

	TaskUpdatedV1 = helper.EventDefinition[TaskUpdatedEvent](
		"task",
		"TaskUpdated",
		"v1",
	)
)
