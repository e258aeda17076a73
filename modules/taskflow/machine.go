package taskflow

import (
	"github.com/example/taskdesk/domain/apperr"
	"github.com/example/taskdesk/domain/task"
	"github.com/example/taskdesk/domain/user"
)

// Trigger names the rule that allowed a transition.
type Trigger string

// Triggers.
const (
	TriggerStart    Trigger = "start"
	TriggerFinish   Trigger = "finish"
	TriggerResubmit Trigger = "resubmit"
	TriggerReject   Trigger = "reject"
	// TriggerOverride is an admin status write outside the table.
	TriggerOverride Trigger = "override"
)

type edge struct {
	role user.Role
	from task.Status
	to   task.Status
}

var transitions = map[edge]Trigger{
	{user.RoleEmployee, task.StatusPending, task.StatusInProgress}: TriggerStart,
	{user.RoleEmployee, task.StatusInProgress, task.StatusCompleted}: TriggerFinish,
	{user.RoleEmployee, task.StatusRedo, task.StatusCompleted}:       TriggerResubmit,
	{user.RoleAdmin, task.StatusCompleted, task.StatusRedo}:          TriggerReject,
}

// Decide returns the trigger that permits role to move a task from one
// status to another. Admins may write any status; writes outside the table
// come back as TriggerOverride.
func Decide(role user.Role, from, to task.Status) (Trigger, error) {
	if trigger, ok := transitions[edge{role, from, to}]; ok {
		return trigger, nil
	}
	if role == user.RoleAdmin {
		return TriggerOverride, nil
	}
	return "", apperr.InvalidTransition("%s may not move a task from %s to %s", role, from, to)
}
