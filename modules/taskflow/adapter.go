package taskflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/taskdesk/domain/task"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// taskflowAdapter wraps ServiceContainer for type-safe cross-module communication.
type taskflowAdapter struct {
	container mono.ServiceContainer
}

// NewTaskflowAdapter creates a TaskPort backed by the taskflow module's services.
func NewTaskflowAdapter(container mono.ServiceContainer) TaskPort {
	if container == nil {
		panic("taskflow adapter requires non-nil ServiceContainer")
	}
	return &taskflowAdapter{container: container}
}

// AssignTask creates a task via the assign service.
func (a *taskflowAdapter) AssignTask(ctx context.Context, req *AssignTaskRequest) (*task.Task, error) {
	var resp TaskResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"assign",
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("assign service call failed: %w", err)
	}
	if resp.Failure != nil {
		return nil, resp.Failure.Err()
	}
	return resp.Task, nil
}

// SetTaskStatus transitions a task via the set-status service.
func (a *taskflowAdapter) SetTaskStatus(ctx context.Context, req *SetStatusRequest) (*task.Task, error) {
	var resp TaskResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"set-status",
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("set-status service call failed: %w", err)
	}
	if resp.Failure != nil {
		return nil, resp.Failure.Err()
	}
	return resp.Task, nil
}

// ListTasks lists tasks via the list service.
func (a *taskflowAdapter) ListTasks(ctx context.Context, req *ListTasksRequest) ([]task.Task, error) {
	var resp ListTasksResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"list",
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("list service call failed: %w", err)
	}
	if resp.Failure != nil {
		return nil, resp.Failure.Err()
	}
	return resp.Tasks, nil
}
