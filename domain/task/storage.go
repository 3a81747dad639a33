package task

import "context"

// Storage is the persistence port for tasks. Implementations are chosen at
// startup; owner scoping is applied when a backend view is constructed, not
// through this interface.
type Storage interface {
	// Save persists a new task, generating an ID when task.ID is empty.
	Save(ctx context.Context, task *Task) (*Task, error)
	// Get returns nil without error when no task has the given ID.
	Get(ctx context.Context, id string) (*Task, error)
	GetAll(ctx context.Context) ([]*Task, error)
	// Update replaces the stored fields of id. The ID itself never changes.
	Update(ctx context.Context, id string, task *Task) (*Task, error)
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
}
