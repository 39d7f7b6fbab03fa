package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	apperrors "todoapi/internal/errors"
	"todoapi/internal/model"
	"todoapi/internal/repository"
)

// MockTodoRepository is a mock implementation of TodoRepository.
type MockTodoRepository struct {
	mock.Mock
}

func (m *MockTodoRepository) Create(ctx context.Context, todo *model.Todo) error {
	args := m.Called(ctx, todo)
	return args.Error(0)
}

func (m *MockTodoRepository) Save(ctx context.Context, todo *model.Todo) error {
	args := m.Called(ctx, todo)
	return args.Error(0)
}

func (m *MockTodoRepository) FindByID(ctx context.Context, id uint) (*model.Todo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Todo), args.Error(1)
}

func (m *MockTodoRepository) List(ctx context.Context, filter repository.TodoFilter) ([]model.Todo, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Todo), args.Error(1)
}

func (m *MockTodoRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTodoRepository) DeleteCompleted(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTodoRepository) CountAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTodoRepository) CountCompleted(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTodoRepository) CountOverdue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTodoRepository) PriorityCounts(ctx context.Context) (map[int]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int]int64), args.Error(1)
}

func (m *MockTodoRepository) CategoryCounts(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func TestTodoService_CreateTodo(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)

	tests := []struct {
		name          string
		input         TodoInput
		setupMock     func(*MockTodoRepository)
		expectedField string
	}{
		{
			name:  "successful creation",
			input: TodoInput{Title: "Write spec", Category: "Work", Priority: DefaultPriority},
			setupMock: func(m *MockTodoRepository) {
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.Todo")).Return(nil)
			},
		},
		{
			name:  "future due date accepted",
			input: TodoInput{Title: "Ship release", Priority: 3, DueDate: &future},
			setupMock: func(m *MockTodoRepository) {
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.Todo")).Return(nil)
			},
		},
		{
			name:          "past due date rejected",
			input:         TodoInput{Title: "Too late", Priority: 2, DueDate: &past},
			setupMock:     func(m *MockTodoRepository) {},
			expectedField: "due_date",
		},
		{
			name:          "priority above range rejected",
			input:         TodoInput{Title: "Urgent", Priority: 6},
			setupMock:     func(m *MockTodoRepository) {},
			expectedField: "priority",
		},
		{
			name:          "priority below range rejected",
			input:         TodoInput{Title: "Whenever", Priority: -1},
			setupMock:     func(m *MockTodoRepository) {},
			expectedField: "priority",
		},
		{
			name:          "zero priority rejected",
			input:         TodoInput{Title: "Whenever"},
			setupMock:     func(m *MockTodoRepository) {},
			expectedField: "priority",
		},
		{
			name:          "empty title rejected",
			input:         TodoInput{Priority: 1},
			setupMock:     func(m *MockTodoRepository) {},
			expectedField: "title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTodoRepository)
			tt.setupMock(mockRepo)

			svc := NewTodoService(mockRepo, nil)
			todo, err := svc.CreateTodo(context.Background(), tt.input)

			if tt.expectedField != "" {
				assert.Error(t, err)
				var ve *apperrors.ValidationError
				assert.ErrorAs(t, err, &ve)
				assert.Equal(t, tt.expectedField, ve.Field)
				assert.Nil(t, todo)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, todo)
				assert.Equal(t, tt.input.Title, todo.Title)
				assert.False(t, todo.IsCompleted)
				assert.False(t, todo.CreatedAt.IsZero())
				assert.Equal(t, todo.CreatedAt, todo.UpdatedAt)
				assert.Equal(t, tt.input.Priority, todo.Priority)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestTodoService_PatchTodo(t *testing.T) {
	created := time.Now().Add(-time.Hour)

	existing := func() *model.Todo {
		return &model.Todo{
			ID:        7,
			Title:     "Write spec",
			Priority:  3,
			Category:  "Work",
			CreatedAt: created,
			UpdatedAt: created,
		}
	}

	t.Run("patching priority changes only priority and updated_at", func(t *testing.T) {
		mockRepo := new(MockTodoRepository)
		mockRepo.On("FindByID", mock.Anything, uint(7)).Return(existing(), nil)
		mockRepo.On("Save", mock.Anything, mock.AnythingOfType("*model.Todo")).Return(nil)

		priority := 5
		svc := NewTodoService(mockRepo, nil)
		todo, err := svc.PatchTodo(context.Background(), 7, TodoPatch{Priority: &priority})

		assert.NoError(t, err)
		assert.Equal(t, 5, todo.Priority)
		assert.Equal(t, "Write spec", todo.Title)
		assert.Equal(t, "Work", todo.Category)
		assert.Equal(t, created, todo.CreatedAt)
		assert.True(t, todo.UpdatedAt.After(todo.CreatedAt))
		mockRepo.AssertExpectations(t)
	})

	t.Run("invalid priority writes nothing", func(t *testing.T) {
		mockRepo := new(MockTodoRepository)
		mockRepo.On("FindByID", mock.Anything, uint(7)).Return(existing(), nil)

		priority := 9
		svc := NewTodoService(mockRepo, nil)
		todo, err := svc.PatchTodo(context.Background(), 7, TodoPatch{Priority: &priority})

		assert.Error(t, err)
		assert.Nil(t, todo)
		mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
	})

	t.Run("one invalid field blocks the whole patch", func(t *testing.T) {
		mockRepo := new(MockTodoRepository)
		mockRepo.On("FindByID", mock.Anything, uint(7)).Return(existing(), nil)

		title := "Updated title"
		priority := 0
		svc := NewTodoService(mockRepo, nil)
		_, err := svc.PatchTodo(context.Background(), 7, TodoPatch{Title: &title, Priority: &priority})

		assert.Error(t, err)
		mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("missing todo returns not found", func(t *testing.T) {
		mockRepo := new(MockTodoRepository)
		mockRepo.On("FindByID", mock.Anything, uint(99)).Return(nil, gorm.ErrRecordNotFound)

		completed := true
		svc := NewTodoService(mockRepo, nil)
		_, err := svc.PatchTodo(context.Background(), 99, TodoPatch{IsCompleted: &completed})

		assert.ErrorIs(t, err, apperrors.ErrTodoNotFound)
	})
}

func TestTodoService_DeleteTodo(t *testing.T) {
	t.Run("delete removes the record", func(t *testing.T) {
		mockRepo := new(MockTodoRepository)
		mockRepo.On("FindByID", mock.Anything, uint(3)).Return(&model.Todo{ID: 3, Title: "x"}, nil)
		mockRepo.On("Delete", mock.Anything, uint(3)).Return(nil)

		svc := NewTodoService(mockRepo, nil)
		assert.NoError(t, svc.DeleteTodo(context.Background(), 3))
		mockRepo.AssertExpectations(t)
	})

	t.Run("missing id returns not found", func(t *testing.T) {
		mockRepo := new(MockTodoRepository)
		mockRepo.On("FindByID", mock.Anything, uint(3)).Return(nil, gorm.ErrRecordNotFound)

		svc := NewTodoService(mockRepo, nil)
		assert.ErrorIs(t, svc.DeleteTodo(context.Background(), 3), apperrors.ErrTodoNotFound)
	})
}

func TestTodoService_DeleteCompleted(t *testing.T) {
	mockRepo := new(MockTodoRepository)
	completed := []model.Todo{{ID: 1, IsCompleted: true}, {ID: 4, IsCompleted: true}, {ID: 9, IsCompleted: true}}
	mockRepo.On("List", mock.Anything, mock.AnythingOfType("repository.TodoFilter")).Return(completed, nil)
	mockRepo.On("DeleteCompleted", mock.Anything).Return(int64(3), nil)

	svc := NewTodoService(mockRepo, nil)
	count, err := svc.DeleteCompleted(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, int64(3), count)
	mockRepo.AssertExpectations(t)
}

func TestTodoService_TodoStats(t *testing.T) {
	t.Run("computes rate and breakdowns", func(t *testing.T) {
		mockRepo := new(MockTodoRepository)
		mockRepo.On("CountAll", mock.Anything).Return(int64(3), nil)
		mockRepo.On("CountCompleted", mock.Anything).Return(int64(2), nil)
		mockRepo.On("CountOverdue", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(1), nil)
		mockRepo.On("PriorityCounts", mock.Anything).Return(map[int]int64{1: 2, 3: 1}, nil)
		mockRepo.On("CategoryCounts", mock.Anything).Return(map[string]int64{"Work": 2, "": 1}, nil)

		svc := NewTodoService(mockRepo, nil)
		stats, err := svc.TodoStats(context.Background())

		assert.NoError(t, err)
		assert.Equal(t, int64(3), stats.TotalTodos)
		assert.Equal(t, int64(2), stats.CompletedTodos)
		assert.Equal(t, int64(1), stats.PendingTodos)
		assert.Equal(t, int64(1), stats.OverdueTodos)
		assert.InDelta(t, 66.67, stats.CompletionRate, 0.001)
		assert.Equal(t, map[string]int64{"Priority1": 2, "Priority3": 1}, stats.PriorityBreakdown)
		assert.Equal(t, map[string]int64{"Work": 2, "Uncategorized": 1}, stats.CategoryBreakdown)
	})

	t.Run("empty table yields zeros and empty breakdowns", func(t *testing.T) {
		mockRepo := new(MockTodoRepository)
		mockRepo.On("CountAll", mock.Anything).Return(int64(0), nil)
		mockRepo.On("CountCompleted", mock.Anything).Return(int64(0), nil)
		mockRepo.On("CountOverdue", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(0), nil)
		mockRepo.On("PriorityCounts", mock.Anything).Return(map[int]int64{}, nil)
		mockRepo.On("CategoryCounts", mock.Anything).Return(map[string]int64{}, nil)

		svc := NewTodoService(mockRepo, nil)
		stats, err := svc.TodoStats(context.Background())

		assert.NoError(t, err)
		assert.Equal(t, int64(0), stats.TotalTodos)
		assert.Equal(t, float64(0), stats.CompletionRate)
		assert.Empty(t, stats.PriorityBreakdown)
		assert.Empty(t, stats.CategoryBreakdown)
		assert.NotNil(t, stats.PriorityBreakdown)
		assert.NotNil(t, stats.CategoryBreakdown)
	})
}

func TestTodoService_SetCompleted(t *testing.T) {
	mockRepo := new(MockTodoRepository)
	created := time.Now().Add(-time.Minute)
	mockRepo.On("FindByID", mock.Anything, uint(2)).Return(&model.Todo{ID: 2, Title: "x", CreatedAt: created, UpdatedAt: created}, nil)
	mockRepo.On("Save", mock.Anything, mock.AnythingOfType("*model.Todo")).Return(nil)

	svc := NewTodoService(mockRepo, nil)
	todo, err := svc.SetCompleted(context.Background(), 2, true)

	assert.NoError(t, err)
	assert.True(t, todo.IsCompleted)
	assert.True(t, todo.UpdatedAt.After(todo.CreatedAt))
	mockRepo.AssertExpectations(t)
}
