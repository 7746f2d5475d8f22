package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/fleetrent/backend/internal/domain/expense"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormExpenseRepository implements the expense Repository using GORM
type GormExpenseRepository struct {
	db *gorm.DB
}

// NewGormExpenseRepository creates a new GormExpenseRepository
func NewGormExpenseRepository(db *gorm.DB) *GormExpenseRepository {
	return &GormExpenseRepository{db: db}
}

// Save creates or updates an expense
func (r *GormExpenseRepository) Save(ctx context.Context, exp *expense.Expense) error {
	return dbFromContext(ctx, r.db).Save(exp).Error
}

// FindByID finds an expense by its ID
func (r *GormExpenseRepository) FindByID(ctx context.Context, id uuid.UUID) (*expense.Expense, error) {
	var exp expense.Expense
	if err := dbFromContext(ctx, r.db).First(&exp, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &exp, nil
}

// List lists expenses, optionally narrowed by category and date range,
// newest first
func (r *GormExpenseRepository) List(ctx context.Context, category *expense.Category, from, to *time.Time, filter shared.Filter) (*shared.Paginated[expense.Expense], error) {
	conn := dbFromContext(ctx, r.db)

	apply := func(db *gorm.DB) *gorm.DB {
		if category != nil {
			db = db.Where("category = ?", *category)
		}
		if from != nil {
			db = db.Where("incurred_at >= ?", *from)
		}
		if to != nil {
			db = db.Where("incurred_at <= ?", *to)
		}
		return db
	}

	var total int64
	if err := apply(conn.Model(&expense.Expense{})).Count(&total).Error; err != nil {
		return nil, err
	}

	var expenses []expense.Expense
	if err := applyFilter(apply(conn.Model(&expense.Expense{})), filter, "incurred_at DESC").
		Find(&expenses).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(expenses, total, filter.Page, filter.PageSize)
	return &result, nil
}

// Delete deletes an expense
func (r *GormExpenseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := dbFromContext(ctx, r.db).Delete(&expense.Expense{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ expense.Repository = (*GormExpenseRepository)(nil)
