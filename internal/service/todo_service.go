package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"todoapi/internal/cache"
	apperrors "todoapi/internal/errors"
	"todoapi/internal/model"
	"todoapi/internal/repository"
)

// DefaultPriority is applied when a create payload omits the priority.
const DefaultPriority = 1

const (
	todoCacheTTL      = 5 * time.Minute
	statsCacheTTL     = time.Minute
	todoStatsCacheKey = "stats:todos"
)

// TodoInput carries the writable fields for create and full-replace.
type TodoInput struct {
	Title       string
	Description string
	IsCompleted bool
	Priority    int
	Category    string
	DueDate     *time.Time
}

// TodoPatch carries optional per-field updates. Nil fields are left
// untouched; all supplied fields are validated before any is applied.
type TodoPatch struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	IsCompleted *bool      `json:"is_completed"`
	Priority    *int       `json:"priority"`
	Category    *string    `json:"category"`
	DueDate     *time.Time `json:"due_date"`
}

// TodoStats aggregates the todo table.
type TodoStats struct {
	TotalTodos        int64            `json:"total_todos"`
	CompletedTodos    int64            `json:"completed_todos"`
	PendingTodos      int64            `json:"pending_todos"`
	OverdueTodos      int64            `json:"overdue_todos"`
	CompletionRate    float64          `json:"completion_rate"`
	PriorityBreakdown map[string]int64 `json:"priority_breakdown"`
	CategoryBreakdown map[string]int64 `json:"category_breakdown"`
}

// TodoService exposes todo domain operations.
type TodoService interface {
	ListTodos(ctx context.Context, filter repository.TodoFilter) ([]model.Todo, error)
	GetTodo(ctx context.Context, id uint) (*model.Todo, error)
	CreateTodo(ctx context.Context, in TodoInput) (*model.Todo, error)
	UpdateTodo(ctx context.Context, id uint, in TodoInput) (*model.Todo, error)
	PatchTodo(ctx context.Context, id uint, patch TodoPatch) (*model.Todo, error)
	SetCompleted(ctx context.Context, id uint, completed bool) (*model.Todo, error)
	DeleteTodo(ctx context.Context, id uint) error
	DeleteCompleted(ctx context.Context) (int64, error)
	TodoStats(ctx context.Context) (*TodoStats, error)
}

type todoService struct {
	repo  repository.TodoRepository
	cache *cache.Client
}

// NewTodoService builds a TodoService with repository and cache.
func NewTodoService(repo repository.TodoRepository, cache *cache.Client) TodoService {
	return &todoService{repo: repo, cache: cache}
}

func todoCacheKey(id uint) string {
	return fmt.Sprintf("todo:%d", id)
}

func (s *todoService) ListTodos(ctx context.Context, filter repository.TodoFilter) ([]model.Todo, error) {
	return s.repo.List(ctx, filter)
}

func (s *todoService) GetTodo(ctx context.Context, id uint) (*model.Todo, error) {
	if data, _ := s.cache.Get(ctx, todoCacheKey(id)); data != nil {
		var cached model.Todo
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	todo, err := s.findTodo(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(todo); err == nil {
		_ = s.cache.Set(ctx, todoCacheKey(id), payload, todoCacheTTL)
	}
	return todo, nil
}

func (s *todoService) CreateTodo(ctx context.Context, in TodoInput) (*model.Todo, error) {
	if err := validateTodoInput(in); err != nil {
		return nil, err
	}

	now := time.Now()
	todo := &model.Todo{
		Title:       in.Title,
		Description: in.Description,
		IsCompleted: in.IsCompleted,
		Priority:    in.Priority,
		Category:    in.Category,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, todo); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return todo, nil
}

func (s *todoService) UpdateTodo(ctx context.Context, id uint, in TodoInput) (*model.Todo, error) {
	todo, err := s.findTodo(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateTodoInput(in); err != nil {
		return nil, err
	}

	todo.Title = in.Title
	todo.Description = in.Description
	todo.IsCompleted = in.IsCompleted
	todo.Priority = in.Priority
	todo.Category = in.Category
	todo.DueDate = in.DueDate
	todo.UpdatedAt = time.Now()

	if err := s.repo.Save(ctx, todo); err != nil {
		return nil, err
	}
	s.invalidate(ctx, todo.ID)
	return todo, nil
}

// PatchTodo applies a partial update. Every supplied field is validated
// first; on any failure nothing is written.
func (s *todoService) PatchTodo(ctx context.Context, id uint, patch TodoPatch) (*model.Todo, error) {
	todo, err := s.findTodo(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateTodoPatch(patch); err != nil {
		return nil, err
	}

	if patch.Title != nil {
		todo.Title = *patch.Title
	}
	if patch.Description != nil {
		todo.Description = *patch.Description
	}
	if patch.IsCompleted != nil {
		todo.IsCompleted = *patch.IsCompleted
	}
	if patch.Priority != nil {
		todo.Priority = *patch.Priority
	}
	if patch.Category != nil {
		todo.Category = *patch.Category
	}
	if patch.DueDate != nil {
		todo.DueDate = patch.DueDate
	}
	todo.UpdatedAt = time.Now()

	if err := s.repo.Save(ctx, todo); err != nil {
		return nil, err
	}
	s.invalidate(ctx, todo.ID)
	return todo, nil
}

func (s *todoService) SetCompleted(ctx context.Context, id uint, completed bool) (*model.Todo, error) {
	todo, err := s.findTodo(ctx, id)
	if err != nil {
		return nil, err
	}

	todo.IsCompleted = completed
	todo.UpdatedAt = time.Now()

	if err := s.repo.Save(ctx, todo); err != nil {
		return nil, err
	}
	s.invalidate(ctx, todo.ID)
	return todo, nil
}

func (s *todoService) DeleteTodo(ctx context.Context, id uint) error {
	if _, err := s.findTodo(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// DeleteCompleted removes every completed todo and returns the removed count.
func (s *todoService) DeleteCompleted(ctx context.Context) (int64, error) {
	completed := true
	doomed, err := s.repo.List(ctx, repository.TodoFilter{Completed: &completed})
	if err != nil {
		return 0, err
	}

	count, err := s.repo.DeleteCompleted(ctx)
	if err != nil {
		return 0, err
	}

	ids := make([]uint, len(doomed))
	for i, todo := range doomed {
		ids[i] = todo.ID
	}
	s.invalidate(ctx, ids...)
	return count, nil
}

func (s *todoService) TodoStats(ctx context.Context) (*TodoStats, error) {
	if data, _ := s.cache.Get(ctx, todoStatsCacheKey); data != nil {
		var cached TodoStats
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	total, err := s.repo.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	completed, err := s.repo.CountCompleted(ctx)
	if err != nil {
		return nil, err
	}
	overdue, err := s.repo.CountOverdue(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	priorities, err := s.repo.PriorityCounts(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.repo.CategoryCounts(ctx)
	if err != nil {
		return nil, err
	}

	stats := &TodoStats{
		TotalTodos:        total,
		CompletedTodos:    completed,
		PendingTodos:      total - completed,
		OverdueTodos:      overdue,
		CompletionRate:    ratePercent(completed, total),
		PriorityBreakdown: make(map[string]int64, len(priorities)),
		CategoryBreakdown: make(map[string]int64, len(categories)),
	}
	for priority, count := range priorities {
		stats.PriorityBreakdown[fmt.Sprintf("Priority%d", priority)] = count
	}
	for category, count := range categories {
		if category == "" {
			category = "Uncategorized"
		}
		stats.CategoryBreakdown[category] = count
	}

	if payload, err := json.Marshal(stats); err == nil {
		_ = s.cache.Set(ctx, todoStatsCacheKey, payload, statsCacheTTL)
	}
	return stats, nil
}

func (s *todoService) findTodo(ctx context.Context, id uint) (*model.Todo, error) {
	todo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTodoNotFound
		}
		return nil, err
	}
	return todo, nil
}

func (s *todoService) invalidate(ctx context.Context, ids ...uint) {
	keys := make([]string, 0, len(ids)+1)
	keys = append(keys, todoStatsCacheKey)
	for _, id := range ids {
		keys = append(keys, todoCacheKey(id))
	}
	_ = s.cache.Delete(ctx, keys...)
}

// ratePercent returns part/total as a percentage rounded to 2 decimal
// places, 0 when total is 0.
func ratePercent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return decimal.NewFromInt(part).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(total)).
		Round(2).
		InexactFloat64()
}

func validateTodoInput(in TodoInput) error {
	if l := len(in.Title); l < 1 || l > 200 {
		return apperrors.NewValidationError("title", "must be between 1 and 200 characters")
	}
	if len(in.Description) > 1000 {
		return apperrors.NewValidationError("description", "must be at most 1000 characters")
	}
	if in.Priority < 1 || in.Priority > 5 {
		return apperrors.NewValidationError("priority", "must be between 1 and 5")
	}
	if len(in.Category) > 50 {
		return apperrors.NewValidationError("category", "must be at most 50 characters")
	}
	if in.DueDate != nil && in.DueDate.Before(time.Now()) {
		return apperrors.NewValidationError("due_date", "cannot be in the past")
	}
	return nil
}

func validateTodoPatch(patch TodoPatch) error {
	if patch.Title != nil {
		if l := len(*patch.Title); l < 1 || l > 200 {
			return apperrors.NewValidationError("title", "must be between 1 and 200 characters")
		}
	}
	if patch.Description != nil && len(*patch.Description) > 1000 {
		return apperrors.NewValidationError("description", "must be at most 1000 characters")
	}
	if patch.Priority != nil && (*patch.Priority < 1 || *patch.Priority > 5) {
		return apperrors.NewValidationError("priority", "must be between 1 and 5")
	}
	if patch.Category != nil && len(*patch.Category) > 50 {
		return apperrors.NewValidationError("category", "must be at most 50 characters")
	}
	if patch.DueDate != nil && patch.DueDate.Before(time.Now()) {
		return apperrors.NewValidationError("due_date", "cannot be in the past")
	}
	return nil
}
