package activity

import (
	"context"
	"time"

	"github.com/example/todo-evolution/domain/apperr"
)

// ServiceListActivity is the request-reply service exposed by the module.
const ServiceListActivity = "list-activity"

// Actions recorded in the feed.
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionCompleted = "completed"
	ActionReopened  = "reopened"
	ActionDeleted   = "deleted"
)

// Entry is one line of a user's activity feed.
type Entry struct {
	TaskID string    `json:"task_id"`
	Action string    `json:"action"`
	Title  string    `json:"title,omitempty"`
	Fields []string  `json:"fields,omitempty"`
	At     time.Time `json:"at"`
}

// ListActivityRequest asks for the newest entries of a user's feed.
type ListActivityRequest struct {
	UserID string `json:"user_id"`
	Limit  int    `json:"limit,omitempty"`
}

// ListActivityResponse carries the feed, newest first.
type ListActivityResponse struct {
	Entries []Entry         `json:"entries"`
	Error   *apperr.Payload `json:"error,omitempty"`
}

// ActivityPort gives other modules read access to the feed.
type ActivityPort interface {
	ListActivity(ctx context.Context, userID string, limit int) ([]Entry, error)
}
