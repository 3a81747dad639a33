package task

import (
	"strings"
	"time"

	"github.com/example/todo-evolution/domain/apperr"
)

// TaskStatus represents the status of a task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
)

// ParseStatus converts user input into a TaskStatus. Unknown values are rejected.
func ParseStatus(s string) (TaskStatus, error) {
	switch TaskStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusCompleted:
		return StatusCompleted, nil
	}
	return "", apperr.Validation("invalid status %q: must be pending or completed", s)
}

// Priority represents how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority converts user input into a Priority. Unknown values are rejected.
func ParsePriority(s string) (Priority, error) {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityLow:
		return PriorityLow, nil
	case PriorityMedium:
		return PriorityMedium, nil
	case PriorityHigh:
		return PriorityHigh, nil
	}
	return "", apperr.Validation("invalid priority %q: must be low, medium or high", s)
}

// Rank orders priorities from low to high.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	}
	return 0
}

// Task represents a todo item.
// Description is nil when absent; a pointer to "" is an explicitly empty description.
type Task struct {
	ID          string
	Title       string
	Description *string
	Status      TaskStatus
	Priority    Priority
	Tags        []string
	UserID      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MarkCompleted sets the status to completed.
func (t *Task) MarkCompleted() {
	t.Status = StatusCompleted
	t.Touch()
}

// MarkPending sets the status to pending.
func (t *Task) MarkPending() {
	t.Status = StatusPending
	t.Touch()
}

// ToggleStatus flips between pending and completed.
func (t *Task) ToggleStatus() {
	if t.Status == StatusCompleted {
		t.MarkPending()
		return
	}
	t.MarkCompleted()
}

// Touch refreshes UpdatedAt. The new value is always strictly after the old
// one, even if the wall clock has not moved since the last mutation.
// Timestamps carry microsecond precision, the finest PostgreSQL keeps.
func (t *Task) Touch() {
	now := Now()
	if !now.After(t.UpdatedAt) {
		now = t.UpdatedAt.Add(time.Microsecond)
	}
	t.UpdatedAt = now
}

// Now returns the current UTC time at the precision tasks are stored with.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// HasTag reports whether tag is one of the task's tags.
func (t *Task) HasTag(tag string) bool {
	for _, tg := range t.Tags {
		if tg == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.Description != nil {
		d := *t.Description
		c.Description = &d
	}
	c.Tags = make([]string, len(t.Tags))
	copy(c.Tags, t.Tags)
	return &c
}

// ValidateTitle trims title and rejects it when nothing is left.
func ValidateTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", apperr.Validation("title is required and cannot be blank")
	}
	return trimmed, nil
}
