package fleet

import (
	"context"

	"github.com/fleetrent/backend/internal/domain/fleet"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateVehicleInput carries the fields for registering a vehicle
type CreateVehicleInput struct {
	Plate     string
	Brand     string
	Model     string
	Year      int
	DailyRate *valueobject.Money
	Notes     string
}

// UpdateVehicleInput carries optional changes; nil fields are left as is
type UpdateVehicleInput struct {
	Brand     *string
	Model     *string
	Year      *int
	DailyRate *valueobject.Money
	Status    *fleet.VehicleStatus
	Notes     *string
}

// VehicleService manages the fleet inventory
type VehicleService struct {
	vehicleRepo fleet.VehicleRepository
	logger      *zap.Logger
}

// NewVehicleService creates a new VehicleService
func NewVehicleService(vehicleRepo fleet.VehicleRepository, logger *zap.Logger) *VehicleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VehicleService{vehicleRepo: vehicleRepo, logger: logger}
}

// Create registers a vehicle. Plates are unique across the fleet.
func (s *VehicleService) Create(ctx context.Context, input CreateVehicleInput) (*fleet.Vehicle, error) {
	vehicle, err := fleet.NewVehicle(input.Plate, input.Brand, input.Model, input.Year)
	if err != nil {
		return nil, err
	}

	existing, err := s.vehicleRepo.FindByPlate(ctx, vehicle.Plate)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("CONFLICT", "A vehicle with this plate already exists")
	}

	if input.DailyRate != nil {
		if err := vehicle.SetDailyRate(*input.DailyRate); err != nil {
			return nil, err
		}
	}
	vehicle.Notes = input.Notes

	if err := s.vehicleRepo.Save(ctx, vehicle); err != nil {
		return nil, err
	}

	s.logger.Info("Vehicle registered",
		zap.String("vehicle_id", vehicle.ID.String()),
		zap.String("plate", vehicle.Plate))

	return vehicle, nil
}

// Get returns one vehicle by ID
func (s *VehicleService) Get(ctx context.Context, id uuid.UUID) (*fleet.Vehicle, error) {
	vehicle, err := s.vehicleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Vehicle not found")
	}
	return vehicle, nil
}

// List returns vehicles, optionally filtered by status
func (s *VehicleService) List(ctx context.Context, status *fleet.VehicleStatus, filter shared.Filter) (*shared.Paginated[fleet.Vehicle], error) {
	return s.vehicleRepo.List(ctx, status, filter)
}

// Update applies changes to a vehicle
func (s *VehicleService) Update(ctx context.Context, id uuid.UUID, input UpdateVehicleInput) (*fleet.Vehicle, error) {
	vehicle, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Brand != nil {
		vehicle.Brand = *input.Brand
	}
	if input.Model != nil {
		vehicle.Model = *input.Model
	}
	if input.Year != nil {
		vehicle.Year = *input.Year
	}
	if input.Notes != nil {
		vehicle.Notes = *input.Notes
	}
	if input.DailyRate != nil {
		if err := vehicle.SetDailyRate(*input.DailyRate); err != nil {
			return nil, err
		}
	}
	if input.Status != nil {
		if err := vehicle.SetStatus(*input.Status); err != nil {
			return nil, err
		}
	}
	if err := s.vehicleRepo.Save(ctx, vehicle); err != nil {
		return nil, err
	}
	return vehicle, nil
}

// Retire takes a vehicle permanently out of service
func (s *VehicleService) Retire(ctx context.Context, id uuid.UUID) error {
	vehicle, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := vehicle.SetStatus(fleet.VehicleStatusRetired); err != nil {
		return err
	}
	return s.vehicleRepo.Save(ctx, vehicle)
}
