package task

import (
	"context"
	"time"

	"github.com/example/todo-evolution/domain/apperr"
	domain "github.com/example/todo-evolution/domain/task"
	"github.com/example/todo-evolution/events"
	"github.com/go-monolith/mono"
)

// Handlers reply with an error payload instead of a transport error so the
// caller can recover the error kind.

// serviceFor returns a TodoService scoped to userID.
func (m *TaskModule) serviceFor(userID string) (*TodoService, error) {
	if userID == "" {
		return nil, apperr.Validation("user_id is required")
	}
	return NewTodoService(m.store.ForUser(userID)), nil
}

// fail logs unexpected errors and converts err for the reply.
func (m *TaskModule) fail(op string, err error) *apperr.Payload {
	if apperr.KindOf(err) == apperr.KindInternal {
		m.logger.Error("Task operation failed", "operation", op, "error", err)
	}
	return apperr.ToPayload(err)
}

func (m *TaskModule) createTask(ctx context.Context, req CreateTaskRequest, _ *mono.Msg) (TaskReply, error) {
	svc, err := m.serviceFor(req.UserID)
	if err != nil {
		return TaskReply{Error: m.fail(ServiceCreateTask, err)}, nil
	}

	t, err := svc.CreateTask(ctx, CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Tags:        req.Tags,
	})
	if err != nil {
		return TaskReply{Error: m.fail(ServiceCreateTask, err)}, nil
	}

	m.publishCreated(t)
	resp := toTaskResponse(t)
	return TaskReply{Task: &resp}, nil
}

func (m *TaskModule) listTasks(ctx context.Context, req ListTasksRequest, _ *mono.Msg) (ListTasksResponse, error) {
	svc, err := m.serviceFor(req.UserID)
	if err != nil {
		return ListTasksResponse{Error: m.fail(ServiceListTasks, err)}, nil
	}

	tasks, err := svc.GetAllTasks(ctx, ListQuery{
		Search:   req.Search,
		Status:   req.Status,
		Priority: req.Priority,
		Tag:      req.Tag,
		SortBy:   req.SortBy,
	})
	if err != nil {
		return ListTasksResponse{Error: m.fail(ServiceListTasks, err)}, nil
	}

	response := ListTasksResponse{
		Tasks: make([]TaskResponse, 0, len(tasks)),
		Total: len(tasks),
	}
	for _, t := range tasks {
		response.Tasks = append(response.Tasks, toTaskResponse(t))
	}
	return response, nil
}

func (m *TaskModule) getTask(ctx context.Context, req TaskRequest, _ *mono.Msg) (TaskReply, error) {
	svc, err := m.serviceFor(req.UserID)
	if err != nil {
		return TaskReply{Error: m.fail(ServiceGetTask, err)}, nil
	}

	t, err := svc.GetTask(ctx, req.TaskID)
	if err != nil {
		return TaskReply{Error: m.fail(ServiceGetTask, err)}, nil
	}
	resp := toTaskResponse(t)
	return TaskReply{Task: &resp}, nil
}

func (m *TaskModule) updateTask(ctx context.Context, req UpdateTaskRequest, _ *mono.Msg) (TaskReply, error) {
	svc, err := m.serviceFor(req.UserID)
	if err != nil {
		return TaskReply{Error: m.fail(ServiceUpdateTask, err)}, nil
	}

	t, err := svc.UpdateTask(ctx, req.TaskID, UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Tags:        req.Tags,
		Status:      req.Status,
	})
	if err != nil {
		return TaskReply{Error: m.fail(ServiceUpdateTask, err)}, nil
	}

	m.publishUpdated(t, changedFields(req))
	resp := toTaskResponse(t)
	return TaskReply{Task: &resp}, nil
}

func (m *TaskModule) deleteTask(ctx context.Context, req TaskRequest, _ *mono.Msg) (DeleteTaskResponse, error) {
	svc, err := m.serviceFor(req.UserID)
	if err != nil {
		return DeleteTaskResponse{Error: m.fail(ServiceDeleteTask, err)}, nil
	}

	if err := svc.DeleteTask(ctx, req.TaskID); err != nil {
		return DeleteTaskResponse{Error: m.fail(ServiceDeleteTask, err)}, nil
	}

	m.publishDeleted(req.TaskID, req.UserID)
	return DeleteTaskResponse{Deleted: true}, nil
}

func (m *TaskModule) toggleTaskStatus(ctx context.Context, req TaskRequest, _ *mono.Msg) (TaskReply, error) {
	svc, err := m.serviceFor(req.UserID)
	if err != nil {
		return TaskReply{Error: m.fail(ServiceToggleStatus, err)}, nil
	}

	t, err := svc.ToggleTaskStatus(ctx, req.TaskID)
	if err != nil {
		return TaskReply{Error: m.fail(ServiceToggleStatus, err)}, nil
	}

	m.publishToggled(t)
	resp := toTaskResponse(t)
	return TaskReply{Task: &resp}, nil
}

func (m *TaskModule) countTasks(ctx context.Context, req CountTasksRequest, _ *mono.Msg) (CountTasksResponse, error) {
	svc, err := m.serviceFor(req.UserID)
	if err != nil {
		return CountTasksResponse{Error: m.fail(ServiceCountTasks, err)}, nil
	}

	count, err := svc.GetTaskCount(ctx)
	if err != nil {
		return CountTasksResponse{Error: m.fail(ServiceCountTasks, err)}, nil
	}
	return CountTasksResponse{Count: count}, nil
}

func changedFields(req UpdateTaskRequest) []string {
	var fields []string
	if req.Title != nil {
		fields = append(fields, "title")
	}
	if req.Description != nil {
		fields = append(fields, "description")
	}
	if req.Priority != nil {
		fields = append(fields, "priority")
	}
	if req.Tags != nil {
		fields = append(fields, "tags")
	}
	if req.Status != nil {
		fields = append(fields, "status")
	}
	return fields
}

// Event publishing is best-effort; failures are logged but never fail the operation.

func (m *TaskModule) publishCreated(t *domain.Task) {
	if m.eventBus == nil {
		return
	}
	event := events.TaskCreatedEvent{
		TaskID:    t.ID,
		Title:     t.Title,
		Priority:  string(t.Priority),
		UserID:    t.UserID,
		CreatedAt: t.CreatedAt,
	}
	if err := events.TaskCreatedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish TaskCreated event", "task_id", t.ID, "error", err)
	}
}

func (m *TaskModule) publishUpdated(t *domain.Task, fields []string) {
	if m.eventBus == nil {
		return
	}
	event := events.TaskUpdatedEvent{
		TaskID:    t.ID,
		Title:     t.Title,
		UserID:    t.UserID,
		Fields:    fields,
		UpdatedAt: t.UpdatedAt,
	}
	if err := events.TaskUpdatedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish TaskUpdated event", "task_id", t.ID, "error", err)
	}
}

func (m *TaskModule) publishToggled(t *domain.Task) {
	if m.eventBus == nil {
		return
	}
	event := events.TaskStatusToggledEvent{
		TaskID:    t.ID,
		Title:     t.Title,
		UserID:    t.UserID,
		Status:    string(t.Status),
		UpdatedAt: t.UpdatedAt,
	}
	if err := events.TaskStatusToggledV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish TaskStatusToggled event", "task_id", t.ID, "error", err)
	}
}

func (m *TaskModule) publishDeleted(taskID, userID string) {
	if m.eventBus == nil {
		return
	}
	event := events.TaskDeletedEvent{
		TaskID:    taskID,
		UserID:    userID,
		DeletedAt: time.Now().UTC(),
	}
	if err := events.TaskDeletedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish TaskDeleted event", "task_id", taskID, "error", err)
	}
}
