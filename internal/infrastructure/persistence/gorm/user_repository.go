package gorm

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/user"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"gorm.io/gorm"
)

// ErrDuplicate is returned when a unique constraint rejects a write
var ErrDuplicate = errors.New("record already exists")

// UserRepository implements the user repository interface using GORM
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ outbound.UserRepository = (*UserRepository)(nil)

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	result := r.db.WithContext(ctx).Create(UserToModel(u))
	if result.Error != nil {
		if isDuplicate(result.Error) {
			return ErrDuplicate
		}
		return result.Error
	}
	return nil
}

// Update updates an existing user
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	result := r.db.WithContext(ctx).Save(UserToModel(u))
	if result.Error != nil {
		if isDuplicate(result.Error) {
			return ErrDuplicate
		}
		return result.Error
	}
	return nil
}

// FindByID finds a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return r.first(ctx, "id = ?", id)
}

// FindByEmail finds a user by email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.first(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

// Exists checks if a user exists by ID
func (r *UserRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64

	result := r.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", id).Count(&count)
	if result.Error != nil {
		return false, result.Error
	}

	return count > 0, nil
}

// List returns users ordered by creation time
func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]*user.User, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&UserModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []UserModel
	result := r.db.WithContext(ctx).
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		return nil, 0, result.Error
	}

	users := make([]*user.User, len(models))
	for i := range models {
		users[i] = ModelToUser(&models[i])
	}
	return users, total, nil
}

// IsAdmin reads only the role column of an active user
func (r *UserRepository) IsAdmin(ctx context.Context, id uuid.UUID) (bool, error) {
	var roles []string
	result := r.db.WithContext(ctx).Model(&UserModel{}).
		Where("id = ? AND is_active = ?", id, true).
		Limit(1).
		Pluck("role", &roles)
	if result.Error != nil {
		return false, result.Error
	}
	return len(roles) == 1 && roles[0] == string(user.RoleAdmin), nil
}

func (r *UserRepository) first(ctx context.Context, query string, args ...interface{}) (*user.User, error) {
	var model UserModel

	result := r.db.WithContext(ctx).Where(query, args...).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	return ModelToUser(&model), nil
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key")
}
