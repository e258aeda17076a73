package taskflow

import (
	"errors"
	"testing"

	"github.com/example/taskdesk/domain/apperr"
	"github.com/example/taskdesk/domain/task"
	"github.com/example/taskdesk/domain/user"
	"github.com/stretchr/testify/assert"
)

var allStatuses = []task.Status{
	task.StatusPending,
	task.StatusInProgress,
	task.StatusRedo,
	task.StatusCompleted,
}

func TestDecide_Table(t *testing.T) {
	tests := []struct {
		role user.Role
		from task.Status
		to   task.Status
		want Trigger
	}{
		{user.RoleEmployee, task.StatusPending, task.StatusInProgress, TriggerStart},
		{user.RoleEmployee, task.StatusInProgress, task.StatusCompleted, TriggerFinish},
		{user.RoleEmployee, task.StatusRedo, task.StatusCompleted, TriggerResubmit},
		{user.RoleAdmin, task.StatusCompleted, task.StatusRedo, TriggerReject},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			got, err := Decide(tt.role, tt.from, tt.to)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Employees succeed exactly on the table's triples.
func TestDecide_EmployeeOnlyTable(t *testing.T) {
	allowed := map[[2]task.Status]bool{
		{task.StatusPending, task.StatusInProgress}:  true,
		{task.StatusInProgress, task.StatusCompleted}: true,
		{task.StatusRedo, task.StatusCompleted}:       true,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			_, err := Decide(user.RoleEmployee, from, to)
			if allowed[[2]task.Status{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}
			assert.True(t, errors.Is(err, apperr.ErrInvalidTransition), "%s -> %s: %v", from, to, err)
		}
	}
}

// Admins always succeed; anything but reject is an override.
func TestDecide_AdminOverride(t *testing.T) {
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			got, err := Decide(user.RoleAdmin, from, to)
			assert.NoError(t, err)
			if from == task.StatusCompleted && to == task.StatusRedo {
				assert.Equal(t, TriggerReject, got)
				continue
			}
			assert.Equal(t, TriggerOverride, got, "%s -> %s", from, to)
		}
	}
}

func TestDecide_RedoOnlyReturnsToCompleted(t *testing.T) {
	for _, to := range []task.Status{task.StatusInProgress, task.StatusPending, task.StatusRedo} {
		_, err := Decide(user.RoleEmployee, task.StatusRedo, to)
		assert.True(t, errors.Is(err, apperr.ErrInvalidTransition), "redo -> %s", to)
	}
}

func TestDecide_UnknownRole(t *testing.T) {
	_, err := Decide(user.Role("guest"), task.StatusPending, task.StatusInProgress)
	assert.True(t, errors.Is(err, apperr.ErrInvalidTransition))
}
