package billing

import (
	"context"
	"time"

	"github.com/fleetrent/backend/internal/domain/activity"
	"github.com/fleetrent/backend/internal/domain/billing"
	"github.com/fleetrent/backend/internal/domain/fleet"
	"github.com/fleetrent/backend/internal/domain/identity"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockDebtRepository struct {
	mock.Mock
}

func (m *MockDebtRepository) Save(ctx context.Context, debt *billing.Debt) error {
	args := m.Called(ctx, debt)
	return args.Error(0)
}

func (m *MockDebtRepository) SaveWithLock(ctx context.Context, debt *billing.Debt) error {
	args := m.Called(ctx, debt)
	return args.Error(0)
}

func (m *MockDebtRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Debt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Debt), args.Error(1)
}

func (m *MockDebtRepository) FindByGatewayReference(ctx context.Context, reference string) (*billing.Debt, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Debt), args.Error(1)
}

func (m *MockDebtRepository) ExistsForDay(ctx context.Context, driverID, vehicleID uuid.UUID, day time.Time) (bool, error) {
	args := m.Called(ctx, driverID, vehicleID, day)
	return args.Bool(0), args.Error(1)
}

func (m *MockDebtRepository) List(ctx context.Context, query billing.DebtQuery, filter shared.Filter) (*shared.Paginated[billing.Debt], error) {
	args := m.Called(ctx, query, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[billing.Debt]), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Save(ctx context.Context, payment *billing.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ExistsInRange(ctx context.Context, driverID, vehicleID uuid.UUID, from, to time.Time) (bool, error) {
	args := m.Called(ctx, driverID, vehicleID, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepository) ListByDriver(ctx context.Context, driverID uuid.UUID, filter shared.Filter) (*shared.Paginated[billing.Payment], error) {
	args := m.Called(ctx, driverID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[billing.Payment]), args.Error(1)
}

func (m *MockPaymentRepository) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[billing.Payment], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[billing.Payment]), args.Error(1)
}

type MockSettlementRequestRepository struct {
	mock.Mock
}

func (m *MockSettlementRequestRepository) Save(ctx context.Context, request *billing.SettlementRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockSettlementRequestRepository) SaveWithLock(ctx context.Context, request *billing.SettlementRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockSettlementRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.SettlementRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.SettlementRequest), args.Error(1)
}

func (m *MockSettlementRequestRepository) ListByState(ctx context.Context, state billing.SettlementRequestState, driverID *uuid.UUID, filter shared.Filter) (*shared.Paginated[billing.SettlementRequest], error) {
	args := m.Called(ctx, state, driverID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[billing.SettlementRequest]), args.Error(1)
}

func (m *MockSettlementRequestRepository) ListByDriver(ctx context.Context, driverID uuid.UUID, filter shared.Filter) (*shared.Paginated[billing.SettlementRequest], error) {
	args := m.Called(ctx, driverID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[billing.SettlementRequest]), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Save(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindActiveDrivers(ctx context.Context) ([]identity.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]identity.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, role *identity.Role, filter shared.Filter) (*shared.Paginated[identity.User], error) {
	args := m.Called(ctx, role, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[identity.User]), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockVehicleRepository struct {
	mock.Mock
}

func (m *MockVehicleRepository) Save(ctx context.Context, vehicle *fleet.Vehicle) error {
	args := m.Called(ctx, vehicle)
	return args.Error(0)
}

func (m *MockVehicleRepository) FindByID(ctx context.Context, id uuid.UUID) (*fleet.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fleet.Vehicle), args.Error(1)
}

func (m *MockVehicleRepository) FindByPlate(ctx context.Context, plate string) (*fleet.Vehicle, error) {
	args := m.Called(ctx, plate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fleet.Vehicle), args.Error(1)
}

func (m *MockVehicleRepository) List(ctx context.Context, status *fleet.VehicleStatus, filter shared.Filter) (*shared.Paginated[fleet.Vehicle], error) {
	args := m.Called(ctx, status, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[fleet.Vehicle]), args.Error(1)
}

func (m *MockVehicleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Name() string {
	return "wompi"
}

func (m *MockGateway) CheckoutURL(ctx context.Context, req billing.CheckoutRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) ParseEvent(ctx context.Context, payload []byte) (billing.GatewayEvent, error) {
	args := m.Called(ctx, payload)
	return args.Get(0).(billing.GatewayEvent), args.Error(1)
}

// recorderSpy collects audit entries written during a test
type recorderSpy struct {
	entries []*activity.Entry
}

func (r *recorderSpy) Record(_ context.Context, entry *activity.Entry) {
	r.entries = append(r.entries, entry)
}

// noopUOW runs the function without a real transaction
type noopUOW struct{}

func (noopUOW) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memoryIdempotency is a map-backed idempotency store for tests
type memoryIdempotency struct {
	seen map[string]bool
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{seen: make(map[string]bool)}
}

func (s *memoryIdempotency) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *memoryIdempotency) Forget(_ context.Context, key string) error {
	delete(s.seen, key)
	return nil
}
