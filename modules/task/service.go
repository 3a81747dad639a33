package task

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/todo-evolution/domain/apperr"
	domain "github.com/example/todo-evolution/domain/task"
)

// CreateInput holds the fields for a new task. An empty Priority means medium.
type CreateInput struct {
	Title       string
	Description *string
	Priority    string
	Tags        []string
}

// UpdateInput holds optional changes to a task. A nil field is not changed;
// a non-nil pointer to an empty value overwrites with that empty value.
type UpdateInput struct {
	Title       *string
	Description *string
	Priority    *string
	Tags        *[]string
	Status      *string
}

// ListQuery filters and orders GetAllTasks. Zero values apply no filter.
type ListQuery struct {
	Search   string
	Status   string
	Priority string
	Tag      string
	SortBy   string
}

// TodoService applies task business rules on top of a Storage.
type TodoService struct {
	store domain.Storage
	now   func() time.Time
}

// NewTodoService creates a TodoService over store.
func NewTodoService(store domain.Storage) *TodoService {
	return &TodoService{
		store: store,
		now:   domain.Now,
	}
}

// CreateTask validates input and stores a new pending task.
func (s *TodoService) CreateTask(ctx context.Context, in CreateInput) (*domain.Task, error) {
	title, err := domain.ValidateTitle(in.Title)
	if err != nil {
		return nil, err
	}

	priority := domain.PriorityMedium
	if strings.TrimSpace(in.Priority) != "" {
		if priority, err = domain.ParsePriority(in.Priority); err != nil {
			return nil, err
		}
	}

	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}

	now := s.now()
	t := &domain.Task{
		Title:       title,
		Description: copyString(in.Description),
		Status:      domain.StatusPending,
		Priority:    priority,
		Tags:        tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	saved, err := s.store.Save(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}
	return saved, nil
}

// GetTask returns the task with id or a not-found error.
func (s *TodoService) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if t == nil {
		return nil, apperr.NotFound("task %s not found", id)
	}
	return t, nil
}

// GetAllTasks returns the tasks matching q. Filter values that cannot match
// any task produce an empty list rather than an error.
func (s *TodoService) GetAllTasks(ctx context.Context, q ListQuery) ([]*domain.Task, error) {
	tasks, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	if search := strings.ToLower(strings.TrimSpace(q.Search)); search != "" {
		tasks = filter(tasks, func(t *domain.Task) bool {
			if strings.Contains(strings.ToLower(t.Title), search) {
				return true
			}
			return t.Description != nil && strings.Contains(strings.ToLower(*t.Description), search)
		})
	}

	if q.Status != "" {
		status, err := domain.ParseStatus(q.Status)
		if err != nil {
			return []*domain.Task{}, nil
		}
		tasks = filter(tasks, func(t *domain.Task) bool { return t.Status == status })
	}

	if q.Priority != "" {
		priority, err := domain.ParsePriority(q.Priority)
		if err != nil {
			return []*domain.Task{}, nil
		}
		tasks = filter(tasks, func(t *domain.Task) bool { return t.Priority == priority })
	}

	if q.Tag != "" {
		tag := strings.TrimSpace(q.Tag)
		tasks = filter(tasks, func(t *domain.Task) bool { return t.HasTag(tag) })
	}

	sortTasks(tasks, q.SortBy)
	return tasks, nil
}

// UpdateTask applies the provided fields of in to task id.
func (s *TodoService) UpdateTask(ctx context.Context, id string, in UpdateInput) (*domain.Task, error) {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title, err := domain.ValidateTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		t.Title = title
	}
	if in.Description != nil {
		t.Description = copyString(in.Description)
	}
	if in.Priority != nil {
		priority, err := domain.ParsePriority(*in.Priority)
		if err != nil {
			return nil, err
		}
		t.Priority = priority
	}
	if in.Tags != nil {
		tags, err := normalizeTags(*in.Tags)
		if err != nil {
			return nil, err
		}
		t.Tags = tags
	}

	if in.Status != nil {
		status, err := domain.ParseStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		if status == domain.StatusCompleted {
			t.MarkCompleted()
		} else {
			t.MarkPending()
		}
	} else {
		t.Touch()
	}

	return s.persist(ctx, id, t)
}

// DeleteTask removes task id.
func (s *TodoService) DeleteTask(ctx context.Context, id string) error {
	exists, err := s.store.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check task: %w", err)
	}
	if !exists {
		return apperr.NotFound("task %s not found", id)
	}
	return s.store.Delete(ctx, id)
}

// ToggleTaskStatus flips task id between pending and completed.
func (s *TodoService) ToggleTaskStatus(ctx context.Context, id string) (*domain.Task, error) {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	t.ToggleStatus()
	return s.persist(ctx, id, t)
}

// GetTaskCount returns the number of tasks visible to the service.
func (s *TodoService) GetTaskCount(ctx context.Context) (int, error) {
	tasks, err := s.GetAllTasks(ctx, ListQuery{})
	if err != nil {
		return 0, err
	}
	return len(tasks), nil
}

func (s *TodoService) persist(ctx context.Context, id string, t *domain.Task) (*domain.Task, error) {
	updated, err := s.store.Update(ctx, id, t)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return updated, nil
}

// sortKeys maps sort_by names onto strict-weak orderings.
var sortKeys = map[string]func(a, b *domain.Task) bool{
	"title": func(a, b *domain.Task) bool {
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	},
	"priority": func(a, b *domain.Task) bool {
		return a.Priority.Rank() < b.Priority.Rank()
	},
	"status": func(a, b *domain.Task) bool {
		return a.Status < b.Status
	},
	"created_at": func(a, b *domain.Task) bool {
		return a.CreatedAt.Before(b.CreatedAt)
	},
	"updated_at": func(a, b *domain.Task) bool {
		return a.UpdatedAt.Before(b.UpdatedAt)
	},
}

// sortTasks stably sorts tasks by sortBy. A leading "-" reverses the order.
// Unknown keys leave the order untouched.
func sortTasks(tasks []*domain.Task, sortBy string) {
	key := strings.ToLower(strings.TrimSpace(sortBy))
	desc := strings.HasPrefix(key, "-")
	key = strings.TrimPrefix(key, "-")

	less, ok := sortKeys[key]
	if !ok {
		return
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if desc {
			return less(tasks[j], tasks[i])
		}
		return less(tasks[i], tasks[j])
	})
}

func filter(tasks []*domain.Task, keep func(*domain.Task) bool) []*domain.Task {
	out := tasks[:0]
	for _, t := range tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// normalizeTags trims each tag and rejects empty ones. Order and duplicates are kept.
func normalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return nil, apperr.Validation("tags must not be empty")
		}
		out = append(out, tag)
	}
	return out, nil
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
