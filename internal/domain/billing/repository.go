package billing

import (
	"context"
	"time"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// DebtQuery narrows debt listings. Zero-valued fields are ignored.
type DebtQuery struct {
	DriverID       *uuid.UUID
	VehicleID      *uuid.UUID
	State          *DebtState
	Paid           *bool
	From           *time.Time
	To             *time.Time
	IncludeDeleted bool
}

// DebtRepository persists debt aggregates.
// Find methods return (nil, nil) when no row matches.
type DebtRepository interface {
	Save(ctx context.Context, debt *Debt) error
	// SaveWithLock applies optimistic concurrency control on Version and
	// returns a CONCURRENCY_CONFLICT domain error when the row changed
	// underneath the caller.
	SaveWithLock(ctx context.Context, debt *Debt) error
	FindByID(ctx context.Context, id uuid.UUID) (*Debt, error)
	FindByGatewayReference(ctx context.Context, reference string) (*Debt, error)
	// ExistsForDay reports whether a non-deleted debt already exists for the
	// driver-vehicle pair on the given calendar day.
	ExistsForDay(ctx context.Context, driverID, vehicleID uuid.UUID, day time.Time) (bool, error)
	List(ctx context.Context, query DebtQuery, filter shared.Filter) (*shared.Paginated[Debt], error)
}

// PaymentRepository persists the append-only payment ledger
type PaymentRepository interface {
	Save(ctx context.Context, payment *Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	// ExistsInRange reports whether the driver already paid for the vehicle
	// within [from, to], used to skip debt generation for prepaid days.
	ExistsInRange(ctx context.Context, driverID, vehicleID uuid.UUID, from, to time.Time) (bool, error)
	ListByDriver(ctx context.Context, driverID uuid.UUID, filter shared.Filter) (*shared.Paginated[Payment], error)
	List(ctx context.Context, filter shared.Filter) (*shared.Paginated[Payment], error)
}

// SettlementRequestRepository persists standalone payment requests
type SettlementRequestRepository interface {
	Save(ctx context.Context, request *SettlementRequest) error
	SaveWithLock(ctx context.Context, request *SettlementRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*SettlementRequest, error)
	// ListByState lists requests in a state, optionally scoped to one driver.
	ListByState(ctx context.Context, state SettlementRequestState, driverID *uuid.UUID, filter shared.Filter) (*shared.Paginated[SettlementRequest], error)
	ListByDriver(ctx context.Context, driverID uuid.UUID, filter shared.Filter) (*shared.Paginated[SettlementRequest], error)
}
