package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"todoapi/internal/cache"
	apperrors "todoapi/internal/errors"
	"todoapi/internal/model"
	"todoapi/internal/repository"
)

const (
	userCacheTTL      = 5 * time.Minute
	userStatsCacheKey = "stats:users"
	recentUserWindow  = 30 * 24 * time.Hour
	defaultRole       = "User"
)

// UserInput carries the writable fields for create and full-replace.
// IsActive is only honored on full-replace; created users start active.
type UserInput struct {
	Username    string
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
	Role        string
	IsActive    bool
}

// UserPatch carries optional per-field updates, validated as a whole
// before any field is applied.
type UserPatch struct {
	Username    *string `json:"username"`
	Email       *string `json:"email"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	PhoneNumber *string `json:"phone_number"`
	Role        *string `json:"role"`
	IsActive    *bool   `json:"is_active"`
}

// UserStats aggregates the user table.
type UserStats struct {
	TotalUsers      int64            `json:"total_users"`
	ActiveUsers     int64            `json:"active_users"`
	InactiveUsers   int64            `json:"inactive_users"`
	RecentlyCreated int64            `json:"recently_created"`
	ActivationRate  float64          `json:"activation_rate"`
	RoleBreakdown   map[string]int64 `json:"role_breakdown"`
}

// UserService exposes user domain operations.
type UserService interface {
	ListUsers(ctx context.Context, filter repository.UserFilter) ([]model.User, error)
	GetUser(ctx context.Context, id uint) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	CreateUser(ctx context.Context, in UserInput) (*model.User, error)
	UpdateUser(ctx context.Context, id uint, in UserInput) (*model.User, error)
	PatchUser(ctx context.Context, id uint, patch UserPatch) (*model.User, error)
	SetActive(ctx context.Context, id uint, active bool) (*model.User, error)
	DeleteUser(ctx context.Context, id uint) error
	UserStats(ctx context.Context) (*UserStats, error)
}

type userService struct {
	repo  repository.UserRepository
	cache *cache.Client
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache *cache.Client) UserService {
	return &userService{repo: repo, cache: cache}
}

func userCacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

func (s *userService) ListUsers(ctx context.Context, filter repository.UserFilter) ([]model.User, error) {
	return s.repo.List(ctx, filter)
}

func (s *userService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	if data, _ := s.cache.Get(ctx, userCacheKey(id)); data != nil {
		var cached model.User
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(user); err == nil {
		_ = s.cache.Set(ctx, userCacheKey(id), payload, userCacheTTL)
	}
	return user, nil
}

func (s *userService) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) CreateUser(ctx context.Context, in UserInput) (*model.User, error) {
	if in.Role == "" {
		in.Role = defaultRole
	}
	if err := validateUserInput(in); err != nil {
		return nil, err
	}
	// username checked before email: on a double collision the username
	// conflict is the one reported
	if err := s.checkUnique(ctx, in.Username, in.Email, 0); err != nil {
		return nil, err
	}

	now := time.Now()
	user := &model.User{
		Username:    in.Username,
		Email:       in.Email,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		PhoneNumber: in.PhoneNumber,
		Role:        in.Role,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return user, nil
}

func (s *userService) UpdateUser(ctx context.Context, id uint, in UserInput) (*model.User, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = defaultRole
	}
	if err := validateUserInput(in); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, in.Username, in.Email, id); err != nil {
		return nil, err
	}

	user.Username = in.Username
	user.Email = in.Email
	user.FirstName = in.FirstName
	user.LastName = in.LastName
	user.PhoneNumber = in.PhoneNumber
	user.Role = in.Role
	user.IsActive = in.IsActive
	user.UpdatedAt = time.Now()

	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}
	s.invalidate(ctx, user.ID)
	return user, nil
}

// PatchUser applies a partial update. Every supplied field is validated,
// including the self-excluding uniqueness checks, before any is applied.
func (s *userService) PatchUser(ctx context.Context, id uint, patch UserPatch) (*model.User, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateUserPatch(patch); err != nil {
		return nil, err
	}
	if patch.Username != nil {
		taken, err := s.repo.UsernameExists(ctx, *patch.Username, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperrors.NewConflictError("username", *patch.Username)
		}
	}
	if patch.Email != nil {
		taken, err := s.repo.EmailExists(ctx, *patch.Email, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperrors.NewConflictError("email", *patch.Email)
		}
	}

	if patch.Username != nil {
		user.Username = *patch.Username
	}
	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.FirstName != nil {
		user.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		user.LastName = *patch.LastName
	}
	if patch.PhoneNumber != nil {
		user.PhoneNumber = *patch.PhoneNumber
	}
	if patch.Role != nil {
		// Same rule as full-replace: an empty role resets to the default.
		user.Role = *patch.Role
		if user.Role == "" {
			user.Role = defaultRole
		}
	}
	if patch.IsActive != nil {
		user.IsActive = *patch.IsActive
	}
	user.UpdatedAt = time.Now()

	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}
	s.invalidate(ctx, user.ID)
	return user, nil
}

func (s *userService) SetActive(ctx context.Context, id uint, active bool) (*model.User, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	user.IsActive = active
	user.UpdatedAt = time.Now()

	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}
	s.invalidate(ctx, user.ID)
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, id uint) error {
	if _, err := s.findUser(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *userService) UserStats(ctx context.Context) (*UserStats, error) {
	if data, _ := s.cache.Get(ctx, userStatsCacheKey); data != nil {
		var cached UserStats
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	total, err := s.repo.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.repo.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.CountCreatedSince(ctx, time.Now().Add(-recentUserWindow))
	if err != nil {
		return nil, err
	}
	roles, err := s.repo.RoleCounts(ctx)
	if err != nil {
		return nil, err
	}

	stats := &UserStats{
		TotalUsers:      total,
		ActiveUsers:     active,
		InactiveUsers:   total - active,
		RecentlyCreated: recent,
		ActivationRate:  ratePercent(active, total),
		RoleBreakdown:   make(map[string]int64, len(roles)),
	}
	for role, count := range roles {
		stats.RoleBreakdown[role] = count
	}

	if payload, err := json.Marshal(stats); err == nil {
		_ = s.cache.Set(ctx, userStatsCacheKey, payload, statsCacheTTL)
	}
	return stats, nil
}

func (s *userService) findUser(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// checkUnique runs the username check before the email check; excludeID is
// skipped so a record never conflicts with itself.
func (s *userService) checkUnique(ctx context.Context, username, email string, excludeID uint) error {
	taken, err := s.repo.UsernameExists(ctx, username, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return apperrors.NewConflictError("username", username)
	}
	taken, err = s.repo.EmailExists(ctx, email, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return apperrors.NewConflictError("email", email)
	}
	return nil
}

func (s *userService) invalidate(ctx context.Context, ids ...uint) {
	keys := make([]string, 0, len(ids)+1)
	keys = append(keys, userStatsCacheKey)
	for _, id := range ids {
		keys = append(keys, userCacheKey(id))
	}
	_ = s.cache.Delete(ctx, keys...)
}

func validateUserInput(in UserInput) error {
	if l := len(in.Username); l < 3 || l > 50 {
		return apperrors.NewValidationError("username", "must be between 3 and 50 characters")
	}
	if in.Email == "" || len(in.Email) > 100 {
		return apperrors.NewValidationError("email", "must be a valid email of at most 100 characters")
	}
	if err := validate.Var(in.Email, "email"); err != nil {
		return apperrors.NewValidationError("email", "must be a valid email address")
	}
	if l := len(in.FirstName); l < 1 || l > 50 {
		return apperrors.NewValidationError("first_name", "must be between 1 and 50 characters")
	}
	if l := len(in.LastName); l < 1 || l > 50 {
		return apperrors.NewValidationError("last_name", "must be between 1 and 50 characters")
	}
	if in.PhoneNumber != "" {
		if len(in.PhoneNumber) > 20 || !phoneRE.MatchString(in.PhoneNumber) {
			return apperrors.NewValidationError("phone_number", "must be a valid phone number of at most 20 characters")
		}
	}
	if len(in.Role) > 20 {
		return apperrors.NewValidationError("role", "must be at most 20 characters")
	}
	return nil
}

func validateUserPatch(patch UserPatch) error {
	if patch.Username != nil {
		if l := len(*patch.Username); l < 3 || l > 50 {
			return apperrors.NewValidationError("username", "must be between 3 and 50 characters")
		}
	}
	if patch.Email != nil {
		if *patch.Email == "" || len(*patch.Email) > 100 {
			return apperrors.NewValidationError("email", "must be a valid email of at most 100 characters")
		}
		if err := validate.Var(*patch.Email, "email"); err != nil {
			return apperrors.NewValidationError("email", "must be a valid email address")
		}
	}
	if patch.FirstName != nil {
		if l := len(*patch.FirstName); l < 1 || l > 50 {
			return apperrors.NewValidationError("first_name", "must be between 1 and 50 characters")
		}
	}
	if patch.LastName != nil {
		if l := len(*patch.LastName); l < 1 || l > 50 {
			return apperrors.NewValidationError("last_name", "must be between 1 and 50 characters")
		}
	}
	if patch.PhoneNumber != nil && *patch.PhoneNumber != "" {
		if len(*patch.PhoneNumber) > 20 || !phoneRE.MatchString(*patch.PhoneNumber) {
			return apperrors.NewValidationError("phone_number", "must be a valid phone number of at most 20 characters")
		}
	}
	if patch.Role != nil && len(*patch.Role) > 20 {
		return apperrors.NewValidationError("role", "must be at most 20 characters")
	}
	return nil
}
