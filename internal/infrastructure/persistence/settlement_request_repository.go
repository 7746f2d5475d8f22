package persistence

import (
	"context"
	"errors"

	"github.com/fleetrent/backend/internal/domain/billing"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSettlementRequestRepository implements SettlementRequestRepository using GORM
type GormSettlementRequestRepository struct {
	db *gorm.DB
}

// NewGormSettlementRequestRepository creates a new GormSettlementRequestRepository
func NewGormSettlementRequestRepository(db *gorm.DB) *GormSettlementRequestRepository {
	return &GormSettlementRequestRepository{db: db}
}

// Save creates or updates a settlement request
func (r *GormSettlementRequestRepository) Save(ctx context.Context, request *billing.SettlementRequest) error {
	return dbFromContext(ctx, r.db).Save(request).Error
}

// SaveWithLock saves a settlement request with optimistic locking on Version
func (r *GormSettlementRequestRepository) SaveWithLock(ctx context.Context, request *billing.SettlementRequest) error {
	result := dbFromContext(ctx, r.db).
		Model(request).
		Where("id = ? AND version = ?", request.ID, request.Version-1).
		Select("*").
		Updates(request)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("CONCURRENCY_CONFLICT", "The settlement request was modified by another process")
	}
	return nil
}

// FindByID finds a settlement request by its ID
func (r *GormSettlementRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.SettlementRequest, error) {
	var request billing.SettlementRequest
	if err := dbFromContext(ctx, r.db).First(&request, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

// ListByState lists settlement requests in a given state, oldest first so the
// approval queue is processed in submission order. A non-nil driverID narrows
// the listing to that driver's requests.
func (r *GormSettlementRequestRepository) ListByState(ctx context.Context, state billing.SettlementRequestState, driverID *uuid.UUID, filter shared.Filter) (*shared.Paginated[billing.SettlementRequest], error) {
	if driverID != nil {
		return r.list(ctx, filter, "created_at ASC", "state = ? AND driver_id = ?", state, *driverID)
	}
	return r.list(ctx, filter, "created_at ASC", "state = ?", state)
}

// ListByDriver lists a driver's settlement requests, newest first
func (r *GormSettlementRequestRepository) ListByDriver(ctx context.Context, driverID uuid.UUID, filter shared.Filter) (*shared.Paginated[billing.SettlementRequest], error) {
	return r.list(ctx, filter, "created_at DESC", "driver_id = ?", driverID)
}

func (r *GormSettlementRequestRepository) list(ctx context.Context, filter shared.Filter, defaultOrder, cond string, args ...interface{}) (*shared.Paginated[billing.SettlementRequest], error) {
	conn := dbFromContext(ctx, r.db)

	var total int64
	if err := conn.Model(&billing.SettlementRequest{}).Where(cond, args...).Count(&total).Error; err != nil {
		return nil, err
	}

	var requests []billing.SettlementRequest
	if err := applyFilter(conn.Model(&billing.SettlementRequest{}).Where(cond, args...), filter, defaultOrder).
		Find(&requests).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(requests, total, filter.Page, filter.PageSize)
	return &result, nil
}

var _ billing.SettlementRequestRepository = (*GormSettlementRequestRepository)(nil)
