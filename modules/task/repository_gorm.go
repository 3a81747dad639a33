package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/todo-evolution/domain/apperr"
	domain "github.com/example/todo-evolution/domain/task"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskRecord is the relational row for a task. Tags are stored as a JSON
// array so tag values may contain any character.
type TaskRecord struct {
	ID          string   `gorm:"primaryKey;type:text"`
	Title       string   `gorm:"not null;type:text"`
	Description *string  `gorm:"type:text"`
	Status      string   `gorm:"not null;type:text;default:pending"`
	Priority    string   `gorm:"not null;type:text;default:medium"`
	Tags        []string `gorm:"serializer:json;type:text"`
	UserID      string   `gorm:"index;not null;type:text;default:''"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for TaskRecord.
func (TaskRecord) TableName() string {
	return "tasks"
}

// newTaskRecord copies t so the record never aliases the caller's
// description or tags.
func newTaskRecord(t *domain.Task) *TaskRecord {
	t = t.Clone()
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return &TaskRecord{
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

func (r *TaskRecord) toDomain() *domain.Task {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return &domain.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Status:      domain.TaskStatus(r.Status),
		Priority:    domain.Priority(r.Priority),
		Tags:        tags,
		UserID:      r.UserID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// GormStorage persists tasks through GORM.
type GormStorage struct {
	db     *gorm.DB
	userID string
	scoped bool
}

var _ domain.Storage = (*GormStorage)(nil)

// NewGormStorage creates a store over db that sees every task.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return &GormStorage{db: db}
}

// ForUser returns a view restricted to rows owned by userID.
func (s *GormStorage) ForUser(userID string) domain.Storage {
	return &GormStorage{db: s.db, userID: userID, scoped: true}
}

func (s *GormStorage) query(ctx context.Context) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&TaskRecord{})
	if s.scoped {
		q = q.Where("user_id = ?", s.userID)
	}
	return q
}

func (s *GormStorage) Save(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	rec := newTaskRecord(task)
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if s.scoped {
		rec.UserID = s.userID
	}

	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.AlreadyExists("task %s already exists", rec.ID)
		}
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return rec.toDomain(), nil
}

func (s *GormStorage) Get(ctx context.Context, id string) (*domain.Task, error) {
	var rec TaskRecord
	if err := s.query(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return rec.toDomain(), nil
}

func (s *GormStorage) GetAll(ctx context.Context) ([]*domain.Task, error) {
	var recs []TaskRecord
	if err := s.query(ctx).Order("created_at ASC").Order("id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to find tasks: %w", err)
	}

	tasks := make([]*domain.Task, 0, len(recs))
	for i := range recs {
		tasks = append(tasks, recs[i].toDomain())
	}
	return tasks, nil
}

func (s *GormStorage) Update(ctx context.Context, id string, task *domain.Task) (*domain.Task, error) {
	rec := newTaskRecord(task)
	rec.ID = id

	// UpdateColumns keeps the entity's updated_at instead of GORM's clock, and
	// Select forces nil descriptions and empty tags to be written.
	result := s.query(ctx).Where("id = ?", id).
		Select("title", "description", "status", "priority", "tags", "updated_at").
		UpdateColumns(rec)
	if err := result.Error; err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if result.RowsAffected == 0 {
		return nil, apperr.NotFound("task %s not found", id)
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.NotFound("task %s not found", id)
	}
	return updated, nil
}

func (s *GormStorage) Delete(ctx context.Context, id string) error {
	q := s.db.WithContext(ctx).Where("id = ?", id)
	if s.scoped {
		q = q.Where("user_id = ?", s.userID)
	}
	result := q.Delete(&TaskRecord{})
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("task %s not found", id)
	}
	return nil
}

func (s *GormStorage) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := s.query(ctx).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check task existence: %w", err)
	}
	return count > 0, nil
}
