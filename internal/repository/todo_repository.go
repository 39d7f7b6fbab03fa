package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"todoapi/internal/model"
)

// TodoFilter narrows List results. Nil/empty fields are ignored; supplied
// fields combine with AND semantics.
type TodoFilter struct {
	Completed *bool
	Category  string
	Priority  *int
}

// TodoRepository defines todo persistence operations.
type TodoRepository interface {
	Create(ctx context.Context, todo *model.Todo) error
	Save(ctx context.Context, todo *model.Todo) error
	FindByID(ctx context.Context, id uint) (*model.Todo, error)
	List(ctx context.Context, filter TodoFilter) ([]model.Todo, error)
	Delete(ctx context.Context, id uint) error
	DeleteCompleted(ctx context.Context) (int64, error)
	CountAll(ctx context.Context) (int64, error)
	CountCompleted(ctx context.Context) (int64, error)
	CountOverdue(ctx context.Context, now time.Time) (int64, error)
	PriorityCounts(ctx context.Context) (map[int]int64, error)
	CategoryCounts(ctx context.Context) (map[string]int64, error)
}

type todoRepository struct {
	db *gorm.DB
}

// NewTodoRepository builds a GORM-backed todo repository.
func NewTodoRepository(db *gorm.DB) TodoRepository {
	return &todoRepository{db: db}
}

func (r *todoRepository) Create(ctx context.Context, todo *model.Todo) error {
	return r.db.WithContext(ctx).Create(todo).Error
}

func (r *todoRepository) Save(ctx context.Context, todo *model.Todo) error {
	return r.db.WithContext(ctx).Save(todo).Error
}

func (r *todoRepository) FindByID(ctx context.Context, id uint) (*model.Todo, error) {
	var todo model.Todo
	if err := r.db.WithContext(ctx).First(&todo, id).Error; err != nil {
		return nil, err
	}
	return &todo, nil
}

func (r *todoRepository) List(ctx context.Context, filter TodoFilter) ([]model.Todo, error) {
	q := r.db.WithContext(ctx).Model(&model.Todo{})
	if filter.Completed != nil {
		q = q.Where("is_completed = ?", *filter.Completed)
	}
	if filter.Category != "" {
		q = q.Where("LOWER(category) LIKE ?", containsPattern(filter.Category))
	}
	if filter.Priority != nil {
		q = q.Where("priority = ?", *filter.Priority)
	}

	var todos []model.Todo
	if err := q.Order("created_at ASC").Find(&todos).Error; err != nil {
		return nil, err
	}
	return todos, nil
}

func (r *todoRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Todo{}, id).Error
}

// DeleteCompleted removes every completed todo and returns the removed count.
func (r *todoRepository) DeleteCompleted(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("is_completed = ?", true).Delete(&model.Todo{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *todoRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Todo{}).Count(&count).Error
	return count, err
}

func (r *todoRepository) CountCompleted(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Todo{}).
		Where("is_completed = ?", true).Count(&count).Error
	return count, err
}

func (r *todoRepository) CountOverdue(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Todo{}).
		Where("is_completed = ? AND due_date IS NOT NULL AND due_date < ?", false, now).
		Count(&count).Error
	return count, err
}

func (r *todoRepository) PriorityCounts(ctx context.Context) (map[int]int64, error) {
	var rows []struct {
		Priority int
		Count    int64
	}
	err := r.db.WithContext(ctx).Model(&model.Todo{}).
		Select("priority, COUNT(*) AS count").
		Group("priority").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[int]int64, len(rows))
	for _, row := range rows {
		counts[row.Priority] = row.Count
	}
	return counts, nil
}

func (r *todoRepository) CategoryCounts(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Category string
		Count    int64
	}
	err := r.db.WithContext(ctx).Model(&model.Todo{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Category] = row.Count
	}
	return counts, nil
}
