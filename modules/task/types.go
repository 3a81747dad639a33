package task

import (
	"context"
	"time"

	"github.com/example/todo-evolution/domain/apperr"
	domain "github.com/example/todo-evolution/domain/task"
)

// Service names registered by the task module.
const (
	ServiceCreateTask   = "create-task"
	ServiceListTasks    = "list-tasks"
	ServiceGetTask      = "get-task"
	ServiceUpdateTask   = "update-task"
	ServiceDeleteTask   = "delete-task"
	ServiceToggleStatus = "toggle-task-status"
	ServiceCountTasks   = "count-tasks"
)

// CreateTaskRequest is the request for creating a task.
type CreateTaskRequest struct {
	UserID      string   `json:"user_id"`
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ListTasksRequest is the request for listing tasks.
type ListTasksRequest struct {
	UserID   string `json:"user_id"`
	Search   string `json:"search,omitempty"`
	Status   string `json:"status,omitempty"`
	Priority string `json:"priority,omitempty"`
	Tag      string `json:"tag,omitempty"`
	SortBy   string `json:"sort_by,omitempty"`
}

// ListTasksResponse is the response for listing tasks.
type ListTasksResponse struct {
	Tasks []TaskResponse  `json:"tasks"`
	Total int             `json:"total"`
	Error *apperr.Payload `json:"error,omitempty"`
}

// TaskRequest addresses a single task of a user.
type TaskRequest struct {
	UserID string `json:"user_id"`
	TaskID string `json:"task_id"`
}

// UpdateTaskRequest is the request for updating a task. Omitted fields are
// left unchanged; present-but-empty fields are cleared.
type UpdateTaskRequest struct {
	UserID      string    `json:"user_id"`
	TaskID      string    `json:"task_id"`
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Priority    *string   `json:"priority,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	Status      *string   `json:"status,omitempty"`
}

// TaskReply carries a single task or an error.
type TaskReply struct {
	Task  *TaskResponse   `json:"task,omitempty"`
	Error *apperr.Payload `json:"error,omitempty"`
}

// DeleteTaskResponse is the response for deleting a task.
type DeleteTaskResponse struct {
	Deleted bool            `json:"deleted"`
	Error   *apperr.Payload `json:"error,omitempty"`
}

// CountTasksRequest is the request for counting a user's tasks.
type CountTasksRequest struct {
	UserID string `json:"user_id"`
}

// CountTasksResponse is the response for counting tasks.
type CountTasksResponse struct {
	Count int             `json:"count"`
	Error *apperr.Payload `json:"error,omitempty"`
}

// TaskResponse is the wire form of a task.
type TaskResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	Tags        []string  `json:"tags"`
	UserID      string    `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// toTaskResponse converts a domain Task to a TaskResponse.
func toTaskResponse(t *domain.Task) TaskResponse {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		Tags:        tags,
		UserID:      t.UserID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// TaskPort defines the interface for task operations (hexagonal port).
// Driving adapters such as the HTTP API use it to reach the task module.
type TaskPort interface {
	CreateTask(ctx context.Context, req *CreateTaskRequest) (*TaskResponse, error)
	ListTasks(ctx context.Context, req *ListTasksRequest) (*ListTasksResponse, error)
	GetTask(ctx context.Context, userID, taskID string) (*TaskResponse, error)
	UpdateTask(ctx context.Context, req *UpdateTaskRequest) (*TaskResponse, error)
	DeleteTask(ctx context.Context, userID, taskID string) error
	ToggleTaskStatus(ctx context.Context, userID, taskID string) (*TaskResponse, error)
	CountTasks(ctx context.Context, userID string) (int, error)
}

// ScopedStorage is a task store that can hand out per-owner views.
type ScopedStorage interface {
	domain.Storage
	ForUser(userID string) domain.Storage
}

var (
	_ ScopedStorage = (*MemoryStorage)(nil)
	_ ScopedStorage = (*GormStorage)(nil)
	_ ScopedStorage = (*PostgresStorage)(nil)
)
