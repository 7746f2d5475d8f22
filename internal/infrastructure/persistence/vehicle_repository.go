package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/fleetrent/backend/internal/domain/fleet"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormVehicleRepository implements VehicleRepository using GORM
type GormVehicleRepository struct {
	db *gorm.DB
}

// NewGormVehicleRepository creates a new GormVehicleRepository
func NewGormVehicleRepository(db *gorm.DB) *GormVehicleRepository {
	return &GormVehicleRepository{db: db}
}

// Save creates or updates a vehicle. A duplicate plate maps to ALREADY_EXISTS.
func (r *GormVehicleRepository) Save(ctx context.Context, vehicle *fleet.Vehicle) error {
	if err := dbFromContext(ctx, r.db).Save(vehicle).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError("ALREADY_EXISTS", "A vehicle with this plate already exists")
		}
		return err
	}
	return nil
}

// FindByID finds a vehicle by its ID
func (r *GormVehicleRepository) FindByID(ctx context.Context, id uuid.UUID) (*fleet.Vehicle, error) {
	var vehicle fleet.Vehicle
	if err := dbFromContext(ctx, r.db).First(&vehicle, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vehicle, nil
}

// FindByPlate finds a vehicle by its license plate
func (r *GormVehicleRepository) FindByPlate(ctx context.Context, plate string) (*fleet.Vehicle, error) {
	var vehicle fleet.Vehicle
	if err := dbFromContext(ctx, r.db).
		First(&vehicle, "plate = ?", strings.ToUpper(plate)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vehicle, nil
}

// List lists vehicles, optionally narrowed to one status
func (r *GormVehicleRepository) List(ctx context.Context, status *fleet.VehicleStatus, filter shared.Filter) (*shared.Paginated[fleet.Vehicle], error) {
	conn := dbFromContext(ctx, r.db)

	countQuery := conn.Model(&fleet.Vehicle{})
	findQuery := conn.Model(&fleet.Vehicle{})
	if status != nil {
		countQuery = countQuery.Where("status = ?", *status)
		findQuery = findQuery.Where("status = ?", *status)
	}

	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, err
	}

	var vehicles []fleet.Vehicle
	if err := applyFilter(findQuery, filter, "plate ASC").Find(&vehicles).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(vehicles, total, filter.Page, filter.PageSize)
	return &result, nil
}

// Delete deletes a vehicle
func (r *GormVehicleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := dbFromContext(ctx, r.db).Delete(&fleet.Vehicle{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ fleet.VehicleRepository = (*GormVehicleRepository)(nil)
