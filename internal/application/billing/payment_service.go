package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetrent/backend/internal/domain/activity"
	"github.com/fleetrent/backend/internal/domain/billing"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecordPaymentInput captures an out-of-band payment an admin enters
// directly into the ledger
type RecordPaymentInput struct {
	DriverID   uuid.UUID
	VehicleID  uuid.UUID
	DebtID     *uuid.UUID
	Amount     valueobject.Money
	PaidAt     time.Time
	ReceiptRef string
	Notes      string
}

// PaymentService reads and appends the payment ledger
type PaymentService struct {
	paymentRepo billing.PaymentRepository
	recorder    activity.Recorder
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(paymentRepo billing.PaymentRepository, recorder activity.Recorder, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{paymentRepo: paymentRepo, recorder: recorder, logger: logger}
}

// Record appends a manual ledger entry
func (s *PaymentService) Record(ctx context.Context, adminID uuid.UUID, input RecordPaymentInput) (*billing.Payment, error) {
	payment, err := billing.NewPayment(input.DriverID, input.VehicleID, input.DebtID, input.Amount, billing.SettlementMethodManual, input.PaidAt)
	if err != nil {
		return nil, err
	}
	payment.ReceiptRef = input.ReceiptRef
	payment.Notes = input.Notes

	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, activity.NewEntry(
		activity.EntryPaymentRecorded,
		fmt.Sprintf("Payment recorded for %s", payment.PaidAt.Format("2006-01-02")),
	).WithActor(adminID, "").WithSubject(payment.ID).WithAmount(payment.Amount))

	return payment, nil
}

// Get returns one ledger entry
func (s *PaymentService) Get(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment not found")
	}
	return payment, nil
}

// List returns ledger entries for admin views
func (s *PaymentService) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[billing.Payment], error) {
	return s.paymentRepo.List(ctx, filter)
}

// ListForDriver returns the driver's own ledger entries
func (s *PaymentService) ListForDriver(ctx context.Context, driverID uuid.UUID, filter shared.Filter) (*shared.Paginated[billing.Payment], error) {
	return s.paymentRepo.ListByDriver(ctx, driverID, filter)
}
