package task

import (
	"context"
	"sync"

	"github.com/example/todo-evolution/domain/apperr"
	domain "github.com/example/todo-evolution/domain/task"
	"github.com/google/uuid"
)

// memoryTable is the state shared between a MemoryStorage and its owner views.
type memoryTable struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
	order []string
}

// MemoryStorage keeps tasks in process memory. GetAll returns insertion order.
type MemoryStorage struct {
	table  *memoryTable
	userID string
	scoped bool
}

var _ domain.Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty in-memory store that sees every task.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		table: &memoryTable{tasks: make(map[string]*domain.Task)},
	}
}

// ForUser returns a view of the same store restricted to one owner.
func (s *MemoryStorage) ForUser(userID string) domain.Storage {
	return &MemoryStorage{table: s.table, userID: userID, scoped: true}
}

func (s *MemoryStorage) visible(t *domain.Task) bool {
	return !s.scoped || t.UserID == s.userID
}

func (s *MemoryStorage) Save(_ context.Context, task *domain.Task) (*domain.Task, error) {
	stored := task.Clone()
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if s.scoped {
		stored.UserID = s.userID
	}

	s.table.mu.Lock()
	defer s.table.mu.Unlock()

	if _, ok := s.table.tasks[stored.ID]; ok {
		return nil, apperr.AlreadyExists("task %s already exists", stored.ID)
	}
	s.table.tasks[stored.ID] = stored
	s.table.order = append(s.table.order, stored.ID)
	return stored.Clone(), nil
}

func (s *MemoryStorage) Get(_ context.Context, id string) (*domain.Task, error) {
	s.table.mu.RLock()
	defer s.table.mu.RUnlock()

	t, ok := s.table.tasks[id]
	if !ok || !s.visible(t) {
		return nil, nil
	}
	return t.Clone(), nil
}

func (s *MemoryStorage) GetAll(_ context.Context) ([]*domain.Task, error) {
	s.table.mu.RLock()
	defer s.table.mu.RUnlock()

	result := make([]*domain.Task, 0, len(s.table.order))
	for _, id := range s.table.order {
		t := s.table.tasks[id]
		if s.visible(t) {
			result = append(result, t.Clone())
		}
	}
	return result, nil
}

func (s *MemoryStorage) Update(_ context.Context, id string, task *domain.Task) (*domain.Task, error) {
	s.table.mu.Lock()
	defer s.table.mu.Unlock()

	existing, ok := s.table.tasks[id]
	if !ok || !s.visible(existing) {
		return nil, apperr.NotFound("task %s not found", id)
	}

	stored := task.Clone()
	stored.ID = id
	stored.UserID = existing.UserID
	stored.CreatedAt = existing.CreatedAt
	s.table.tasks[id] = stored
	return stored.Clone(), nil
}

func (s *MemoryStorage) Delete(_ context.Context, id string) error {
	s.table.mu.Lock()
	defer s.table.mu.Unlock()

	existing, ok := s.table.tasks[id]
	if !ok || !s.visible(existing) {
		return apperr.NotFound("task %s not found", id)
	}

	delete(s.table.tasks, id)
	for i, oid := range s.table.order {
		if oid == id {
			s.table.order = append(s.table.order[:i], s.table.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStorage) Exists(_ context.Context, id string) (bool, error) {
	s.table.mu.RLock()
	defer s.table.mu.RUnlock()

	t, ok := s.table.tasks[id]
	return ok && s.visible(t), nil
}
