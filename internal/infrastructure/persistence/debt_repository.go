package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fleetrent/backend/internal/domain/billing"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDebtRepository implements DebtRepository using GORM
type GormDebtRepository struct {
	db *gorm.DB
}

// NewGormDebtRepository creates a new GormDebtRepository
func NewGormDebtRepository(db *gorm.DB) *GormDebtRepository {
	return &GormDebtRepository{db: db}
}

// Save creates or updates a debt. A unique-index violation on the
// (driver, vehicle, date) key maps to ALREADY_EXISTS so concurrent
// generation runs can treat it as a skip.
func (r *GormDebtRepository) Save(ctx context.Context, debt *billing.Debt) error {
	if err := dbFromContext(ctx, r.db).Save(debt).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError("ALREADY_EXISTS", "A debt already exists for this driver, vehicle and day")
		}
		return err
	}
	return nil
}

// SaveWithLock saves a debt with optimistic locking on Version.
// Returns a CONCURRENCY_CONFLICT domain error when the row changed
// underneath the caller.
func (r *GormDebtRepository) SaveWithLock(ctx context.Context, debt *billing.Debt) error {
	result := dbFromContext(ctx, r.db).
		Model(debt).
		Where("id = ? AND version = ?", debt.ID, debt.Version-1).
		Select("*").
		Updates(debt)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("CONCURRENCY_CONFLICT", "The debt was modified by another process")
	}
	return nil
}

// FindByID finds a debt by its ID
func (r *GormDebtRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Debt, error) {
	var debt billing.Debt
	if err := dbFromContext(ctx, r.db).First(&debt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &debt, nil
}

// FindByGatewayReference finds the debt that initiated a gateway checkout
func (r *GormDebtRepository) FindByGatewayReference(ctx context.Context, reference string) (*billing.Debt, error) {
	var debt billing.Debt
	if err := dbFromContext(ctx, r.db).
		First(&debt, "gateway_reference = ?", reference).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &debt, nil
}

// ExistsForDay reports whether a non-deleted debt already exists for the
// driver-vehicle pair on the given calendar day
func (r *GormDebtRepository) ExistsForDay(ctx context.Context, driverID, vehicleID uuid.UUID, day time.Time) (bool, error) {
	var count int64
	if err := dbFromContext(ctx, r.db).
		Model(&billing.Debt{}).
		Where("driver_id = ? AND vehicle_id = ? AND date = ? AND deleted = ?",
			driverID, vehicleID, billing.DayOf(day), false).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// List finds debts matching the query, newest day first
func (r *GormDebtRepository) List(ctx context.Context, query billing.DebtQuery, filter shared.Filter) (*shared.Paginated[billing.Debt], error) {
	conn := dbFromContext(ctx, r.db)

	var total int64
	if err := r.applyQuery(conn.Model(&billing.Debt{}), query).Count(&total).Error; err != nil {
		return nil, err
	}

	var debts []billing.Debt
	if err := applyFilter(r.applyQuery(conn.Model(&billing.Debt{}), query), filter, "date DESC, created_at DESC").
		Find(&debts).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(debts, total, filter.Page, filter.PageSize)
	return &result, nil
}

func (r *GormDebtRepository) applyQuery(db *gorm.DB, query billing.DebtQuery) *gorm.DB {
	if query.DriverID != nil {
		db = db.Where("driver_id = ?", *query.DriverID)
	}
	if query.VehicleID != nil {
		db = db.Where("vehicle_id = ?", *query.VehicleID)
	}
	if query.State != nil {
		db = db.Where("state = ?", *query.State)
	}
	if query.Paid != nil {
		db = db.Where("paid = ?", *query.Paid)
	}
	if query.From != nil {
		db = db.Where("date >= ?", billing.DayOf(*query.From))
	}
	if query.To != nil {
		db = db.Where("date <= ?", billing.DayOf(*query.To))
	}
	if !query.IncludeDeleted {
		db = db.Where("deleted = ?", false)
	}
	return db
}

// isUniqueViolation detects duplicate-key errors across drivers.
// TranslateError covers the common case; the string checks cover drivers
// that surface the raw constraint message.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}

// sortableColumns whitelists the columns callers may order by. OrderBy comes
// straight from the query string, so anything outside this set falls back to
// the repository's default order instead of reaching the SQL string.
var sortableColumns = map[string]bool{
	"created_at":  true,
	"updated_at":  true,
	"date":        true,
	"amount":      true,
	"state":       true,
	"paid_at":     true,
	"plate":       true,
	"username":    true,
	"incurred_at": true,
	"occurred_at": true,
}

// applyFilter applies pagination and ordering shared by list queries
func applyFilter(db *gorm.DB, filter shared.Filter, defaultOrder string) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		db = db.Offset(offset).Limit(filter.PageSize)
	}

	if sortableColumns[filter.OrderBy] {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		db = db.Order(filter.OrderBy + " " + orderDir)
	} else if defaultOrder != "" {
		db = db.Order(defaultOrder)
	}

	return db
}

var _ billing.DebtRepository = (*GormDebtRepository)(nil)
