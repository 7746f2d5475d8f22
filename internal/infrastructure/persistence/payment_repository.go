package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/fleetrent/backend/internal/domain/billing"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Save appends a payment to the ledger
func (r *GormPaymentRepository) Save(ctx context.Context, payment *billing.Payment) error {
	return dbFromContext(ctx, r.db).Save(payment).Error
}

// FindByID finds a payment by its ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	var payment billing.Payment
	if err := dbFromContext(ctx, r.db).First(&payment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// ExistsInRange reports whether the driver already paid for the vehicle
// within [from, to]
func (r *GormPaymentRepository) ExistsInRange(ctx context.Context, driverID, vehicleID uuid.UUID, from, to time.Time) (bool, error) {
	var count int64
	if err := dbFromContext(ctx, r.db).
		Model(&billing.Payment{}).
		Where("driver_id = ? AND vehicle_id = ? AND paid_at BETWEEN ? AND ?",
			driverID, vehicleID, from, to).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByDriver lists payments made by one driver, newest first
func (r *GormPaymentRepository) ListByDriver(ctx context.Context, driverID uuid.UUID, filter shared.Filter) (*shared.Paginated[billing.Payment], error) {
	return r.list(ctx, filter, "driver_id = ?", driverID)
}

// List lists all payments, newest first
func (r *GormPaymentRepository) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[billing.Payment], error) {
	return r.list(ctx, filter, "")
}

func (r *GormPaymentRepository) list(ctx context.Context, filter shared.Filter, cond string, args ...interface{}) (*shared.Paginated[billing.Payment], error) {
	conn := dbFromContext(ctx, r.db)

	countQuery := conn.Model(&billing.Payment{})
	findQuery := conn.Model(&billing.Payment{})
	if cond != "" {
		countQuery = countQuery.Where(cond, args...)
		findQuery = findQuery.Where(cond, args...)
	}

	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, err
	}

	var payments []billing.Payment
	if err := applyFilter(findQuery, filter, "paid_at DESC").Find(&payments).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(payments, total, filter.Page, filter.PageSize)
	return &result, nil
}

var _ billing.PaymentRepository = (*GormPaymentRepository)(nil)
