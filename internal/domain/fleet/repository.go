package fleet

import (
	"context"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// VehicleRepository persists vehicle aggregates.
// Find methods return (nil, nil) when no row matches.
type VehicleRepository interface {
	Save(ctx context.Context, vehicle *Vehicle) error
	FindByID(ctx context.Context, id uuid.UUID) (*Vehicle, error)
	FindByPlate(ctx context.Context, plate string) (*Vehicle, error)
	List(ctx context.Context, status *VehicleStatus, filter shared.Filter) (*shared.Paginated[Vehicle], error)
	Delete(ctx context.Context, id uuid.UUID) error
}
