package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/fleetrent/backend/internal/domain/identity"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUserRepository implements UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Save creates or updates a user. A duplicate username maps to ALREADY_EXISTS.
func (r *GormUserRepository) Save(ctx context.Context, user *identity.User) error {
	if err := dbFromContext(ctx, r.db).Save(user).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError("ALREADY_EXISTS", "Username is already taken")
		}
		return err
	}
	return nil
}

// FindByID finds a user by its ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	var user identity.User
	if err := dbFromContext(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// FindByUsername finds a user by username, case-insensitively
func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	var user identity.User
	if err := dbFromContext(ctx, r.db).
		First(&user, "username = ?", strings.ToLower(username)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// FindActiveDrivers returns drivers that can accrue debts: active accounts
// with a vehicle assigned
func (r *GormUserRepository) FindActiveDrivers(ctx context.Context) ([]identity.User, error) {
	var users []identity.User
	if err := dbFromContext(ctx, r.db).
		Where("role = ? AND status = ? AND assigned_vehicle_id IS NOT NULL",
			identity.RoleDriver, identity.UserStatusActive).
		Order("username ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// List lists users, optionally narrowed to one role
func (r *GormUserRepository) List(ctx context.Context, role *identity.Role, filter shared.Filter) (*shared.Paginated[identity.User], error) {
	conn := dbFromContext(ctx, r.db)

	countQuery := conn.Model(&identity.User{})
	findQuery := conn.Model(&identity.User{})
	if role != nil {
		countQuery = countQuery.Where("role = ?", *role)
		findQuery = findQuery.Where("role = ?", *role)
	}

	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, err
	}

	var users []identity.User
	if err := applyFilter(findQuery, filter, "username ASC").Find(&users).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(users, total, filter.Page, filter.PageSize)
	return &result, nil
}

// Delete deletes a user
func (r *GormUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := dbFromContext(ctx, r.db).Delete(&identity.User{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ identity.UserRepository = (*GormUserRepository)(nil)
