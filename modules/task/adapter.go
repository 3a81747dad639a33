package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// taskAdapter wraps ServiceContainer for type-safe cross-module communication.
// This is the adapter that implements the TaskPort interface.
type taskAdapter struct {
	container mono.ServiceContainer
}

// NewTaskAdapter creates a new adapter for task services.
// container is the ServiceContainer from the task module received via SetDependencyServiceContainer.
func NewTaskAdapter(container mono.ServiceContainer) TaskPort {
	if container == nil {
		panic("task adapter requires non-nil ServiceContainer")
	}
	return &taskAdapter{container: container}
}

func callService[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req *Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s service call failed: %w", service, err)
	}
	return nil
}

func singleTask[Req any](ctx context.Context, container mono.ServiceContainer, service string, req *Req) (*TaskResponse, error) {
	var resp TaskReply
	if err := callService(ctx, container, service, req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	if resp.Task == nil {
		return nil, fmt.Errorf("%s returned no task", service)
	}
	return resp.Task, nil
}

// CreateTask creates a new task via the create-task service.
func (a *taskAdapter) CreateTask(ctx context.Context, req *CreateTaskRequest) (*TaskResponse, error) {
	return singleTask(ctx, a.container, ServiceCreateTask, req)
}

// ListTasks lists a user's tasks via the list-tasks service.
func (a *taskAdapter) ListTasks(ctx context.Context, req *ListTasksRequest) (*ListTasksResponse, error) {
	var resp ListTasksResponse
	if err := callService(ctx, a.container, ServiceListTasks, req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	return &resp, nil
}

// GetTask retrieves a task via the get-task service.
func (a *taskAdapter) GetTask(ctx context.Context, userID, taskID string) (*TaskResponse, error) {
	return singleTask(ctx, a.container, ServiceGetTask, &TaskRequest{UserID: userID, TaskID: taskID})
}

// UpdateTask updates a task via the update-task service.
func (a *taskAdapter) UpdateTask(ctx context.Context, req *UpdateTaskRequest) (*TaskResponse, error) {
	return singleTask(ctx, a.container, ServiceUpdateTask, req)
}

// DeleteTask deletes a task via the delete-task service.
func (a *taskAdapter) DeleteTask(ctx context.Context, userID, taskID string) error {
	var resp DeleteTaskResponse
	if err := callService(ctx, a.container, ServiceDeleteTask, &TaskRequest{UserID: userID, TaskID: taskID}, &resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error.Err()
	}
	if !resp.Deleted {
		return fmt.Errorf("task not deleted: %s", taskID)
	}
	return nil
}

// ToggleTaskStatus flips a task's status via the toggle-task-status service.
func (a *taskAdapter) ToggleTaskStatus(ctx context.Context, userID, taskID string) (*TaskResponse, error) {
	return singleTask(ctx, a.container, ServiceToggleStatus, &TaskRequest{UserID: userID, TaskID: taskID})
}

// CountTasks counts a user's tasks via the count-tasks service.
func (a *taskAdapter) CountTasks(ctx context.Context, userID string) (int, error) {
	var resp CountTasksResponse
	if err := callService(ctx, a.container, ServiceCountTasks, &CountTasksRequest{UserID: userID}, &resp); err != nil {
		return 0, err
	}
	if resp.Error != nil {
		return 0, resp.Error.Err()
	}
	return resp.Count, nil
}
