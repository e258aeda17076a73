package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// EmployeeDeletedEvent is emitted after an employee and everything they
// owned were removed.
type EmployeeDeletedEvent struct {
	EmployeeID string    `json:"employee_id"`
	ActorID    string    `json:"actor_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// EmployeeDeletedV1 is the event definition for employee removal.
var EmployeeDeletedV1 = helper.EventDefinition[EmployeeDeletedEvent](
	"account",
	"EmployeeDeleted",
	"v1",
)
