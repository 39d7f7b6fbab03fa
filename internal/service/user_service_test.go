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

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Save(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, filter repository.UserFilter) ([]model.User, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) UsernameExists(ctx context.Context, username string, excludeID uint) (bool, error) {
	args := m.Called(ctx, username, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) EmailExists(ctx context.Context, email string, excludeID uint) (bool, error) {
	args := m.Called(ctx, email, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) CountAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) CountActive(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) RoleCounts(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func validInput() UserInput {
	return UserInput{
		Username:  "jdoe",
		Email:     "jdoe@example.com",
		FirstName: "John",
		LastName:  "Doe",
	}
}

func TestUserService_CreateUser(t *testing.T) {
	tests := []struct {
		name          string
		input         UserInput
		setupMock     func(*MockUserRepository)
		conflictField string
		invalidField  string
	}{
		{
			name:  "successful creation defaults role and active flag",
			input: validInput(),
			setupMock: func(m *MockUserRepository) {
				m.On("UsernameExists", mock.Anything, "jdoe", uint(0)).Return(false, nil)
				m.On("EmailExists", mock.Anything, "jdoe@example.com", uint(0)).Return(false, nil)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
		},
		{
			name:  "username conflict reported before email is checked",
			input: validInput(),
			setupMock: func(m *MockUserRepository) {
				m.On("UsernameExists", mock.Anything, "jdoe", uint(0)).Return(true, nil)
			},
			conflictField: "username",
		},
		{
			name:  "email conflict",
			input: validInput(),
			setupMock: func(m *MockUserRepository) {
				m.On("UsernameExists", mock.Anything, "jdoe", uint(0)).Return(false, nil)
				m.On("EmailExists", mock.Anything, "jdoe@example.com", uint(0)).Return(true, nil)
			},
			conflictField: "email",
		},
		{
			name: "short username rejected",
			input: UserInput{
				Username:  "jd",
				Email:     "jd@example.com",
				FirstName: "John",
				LastName:  "Doe",
			},
			setupMock:    func(m *MockUserRepository) {},
			invalidField: "username",
		},
		{
			name: "malformed email rejected",
			input: UserInput{
				Username:  "jdoe",
				Email:     "not-an-email",
				FirstName: "John",
				LastName:  "Doe",
			},
			setupMock:    func(m *MockUserRepository) {},
			invalidField: "email",
		},
		{
			name: "malformed phone rejected",
			input: UserInput{
				Username:    "jdoe",
				Email:       "jdoe@example.com",
				FirstName:   "John",
				LastName:    "Doe",
				PhoneNumber: "call me maybe",
			},
			setupMock:    func(m *MockUserRepository) {},
			invalidField: "phone_number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			svc := NewUserService(mockRepo, nil)
			user, err := svc.CreateUser(context.Background(), tt.input)

			switch {
			case tt.conflictField != "":
				var ce *apperrors.ConflictError
				assert.ErrorAs(t, err, &ce)
				assert.Equal(t, tt.conflictField, ce.Field)
				assert.Nil(t, user)
				if tt.conflictField == "username" {
					mockRepo.AssertNotCalled(t, "EmailExists", mock.Anything, mock.Anything, mock.Anything)
				}
			case tt.invalidField != "":
				var ve *apperrors.ValidationError
				assert.ErrorAs(t, err, &ve)
				assert.Equal(t, tt.invalidField, ve.Field)
				assert.Nil(t, user)
			default:
				assert.NoError(t, err)
				assert.NotNil(t, user)
				assert.Equal(t, "User", user.Role)
				assert.True(t, user.IsActive)
				assert.Equal(t, user.CreatedAt, user.UpdatedAt)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestUserService_UpdateUser(t *testing.T) {
	existing := &model.User{ID: 5, Username: "jdoe", Email: "jdoe@example.com", FirstName: "John", LastName: "Doe", Role: "User", IsActive: true}

	t.Run("uniqueness checks exclude the target id", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByID", mock.Anything, uint(5)).Return(existing, nil)
		mockRepo.On("UsernameExists", mock.Anything, "jdoe", uint(5)).Return(false, nil)
		mockRepo.On("EmailExists", mock.Anything, "jdoe@example.com", uint(5)).Return(false, nil)
		mockRepo.On("Save", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)

		svc := NewUserService(mockRepo, nil)
		in := validInput()
		in.IsActive = false
		user, err := svc.UpdateUser(context.Background(), 5, in)

		assert.NoError(t, err)
		assert.False(t, user.IsActive)
		mockRepo.AssertExpectations(t)
	})

	t.Run("missing user returns not found", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByID", mock.Anything, uint(99)).Return(nil, gorm.ErrRecordNotFound)

		svc := NewUserService(mockRepo, nil)
		_, err := svc.UpdateUser(context.Background(), 99, validInput())

		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})
}

func TestUserService_PatchUser(t *testing.T) {
	existing := func() *model.User {
		return &model.User{ID: 5, Username: "jdoe", Email: "jdoe@example.com", FirstName: "John", LastName: "Doe", Role: "User", IsActive: true}
	}

	t.Run("patching role changes only role", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByID", mock.Anything, uint(5)).Return(existing(), nil)
		mockRepo.On("Save", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)

		role := "Admin"
		svc := NewUserService(mockRepo, nil)
		user, err := svc.PatchUser(context.Background(), 5, UserPatch{Role: &role})

		assert.NoError(t, err)
		assert.Equal(t, "Admin", user.Role)
		assert.Equal(t, "jdoe", user.Username)
		mockRepo.AssertExpectations(t)
	})

	t.Run("patching role to empty resets to default", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		admin := existing()
		admin.Role = "Admin"
		mockRepo.On("FindByID", mock.Anything, uint(5)).Return(admin, nil)
		mockRepo.On("Save", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)

		role := ""
		svc := NewUserService(mockRepo, nil)
		user, err := svc.PatchUser(context.Background(), 5, UserPatch{Role: &role})

		assert.NoError(t, err)
		assert.Equal(t, "User", user.Role)
		mockRepo.AssertExpectations(t)
	})

	t.Run("username conflict aborts without writing", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByID", mock.Anything, uint(5)).Return(existing(), nil)
		mockRepo.On("UsernameExists", mock.Anything, "asmith", uint(5)).Return(true, nil)

		username := "asmith"
		first := "Alice"
		svc := NewUserService(mockRepo, nil)
		user, err := svc.PatchUser(context.Background(), 5, UserPatch{Username: &username, FirstName: &first})

		var ce *apperrors.ConflictError
		assert.ErrorAs(t, err, &ce)
		assert.Equal(t, "username", ce.Field)
		assert.Nil(t, user)
		mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("invalid email blocks the whole patch", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByID", mock.Anything, uint(5)).Return(existing(), nil)

		email := "nope"
		active := false
		svc := NewUserService(mockRepo, nil)
		_, err := svc.PatchUser(context.Background(), 5, UserPatch{Email: &email, IsActive: &active})

		var ve *apperrors.ValidationError
		assert.ErrorAs(t, err, &ve)
		assert.Equal(t, "email", ve.Field)
		mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestUserService_UserStats(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("CountAll", mock.Anything).Return(int64(4), nil)
	mockRepo.On("CountActive", mock.Anything).Return(int64(3), nil)
	mockRepo.On("CountCreatedSince", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(2), nil)
	mockRepo.On("RoleCounts", mock.Anything).Return(map[string]int64{"User": 3, "Admin": 1}, nil)

	svc := NewUserService(mockRepo, nil)
	stats, err := svc.UserStats(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalUsers)
	assert.Equal(t, int64(3), stats.ActiveUsers)
	assert.Equal(t, int64(1), stats.InactiveUsers)
	assert.Equal(t, int64(2), stats.RecentlyCreated)
	assert.InDelta(t, 75.0, stats.ActivationRate, 0.001)
	assert.Equal(t, map[string]int64{"User": 3, "Admin": 1}, stats.RoleBreakdown)
}

func TestUserService_SetActive(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("FindByID", mock.Anything, uint(5)).Return(&model.User{ID: 5, Username: "jdoe", IsActive: true}, nil)
	mockRepo.On("Save", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)

	svc := NewUserService(mockRepo, nil)
	user, err := svc.SetActive(context.Background(), 5, false)

	assert.NoError(t, err)
	assert.False(t, user.IsActive)
	mockRepo.AssertExpectations(t)
}
