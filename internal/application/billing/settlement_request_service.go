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

// SettlementRequestService reviews standalone payment requests
type SettlementRequestService struct {
	requestRepo billing.SettlementRequestRepository
	paymentRepo billing.PaymentRepository
	recorder    activity.Recorder
	uow         shared.UnitOfWork
	logger      *zap.Logger
}

// NewSettlementRequestService creates a new SettlementRequestService
func NewSettlementRequestService(
	requestRepo billing.SettlementRequestRepository,
	paymentRepo billing.PaymentRepository,
	recorder activity.Recorder,
	uow shared.UnitOfWork,
	logger *zap.Logger,
) *SettlementRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementRequestService{
		requestRepo: requestRepo,
		paymentRepo: paymentRepo,
		recorder:    recorder,
		uow:         uow,
		logger:      logger,
	}
}

// Submit files a new payment request for admin review
func (s *SettlementRequestService) Submit(ctx context.Context, driverID, vehicleID uuid.UUID, amount valueobject.Money, receiptRef, notes string) (*billing.SettlementRequest, error) {
	request, err := billing.NewSettlementRequest(driverID, vehicleID, amount, receiptRef, notes)
	if err != nil {
		return nil, err
	}
	if err := s.requestRepo.Save(ctx, request); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, activity.NewEntry(
		activity.EntryRequestSubmitted,
		"Payment request submitted",
	).WithActor(driverID, "").WithSubject(request.ID).WithAmount(request.Amount))

	return request, nil
}

// Get returns one request by ID
func (s *SettlementRequestService) Get(ctx context.Context, id uuid.UUID) (*billing.SettlementRequest, error) {
	request, err := s.requestRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment request not found")
	}
	return request, nil
}

// Approve accepts the request and writes the ledger entry in one transaction
func (s *SettlementRequestService) Approve(ctx context.Context, adminID, requestID uuid.UUID) (*billing.SettlementRequest, error) {
	var request *billing.SettlementRequest
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		var err error
		request, err = s.Get(ctx, requestID)
		if err != nil {
			return err
		}

		now := time.Now()
		payment, err := billing.NewPayment(request.DriverID, request.VehicleID, nil, request.AmountMoney(), billing.SettlementMethodManual, now)
		if err != nil {
			return err
		}
		payment.ReceiptRef = request.ReceiptRef

		if err := s.paymentRepo.Save(ctx, payment); err != nil {
			return err
		}
		if err := request.Approve(adminID, payment.ID, now); err != nil {
			return err
		}
		return s.requestRepo.SaveWithLock(ctx, request)
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, activity.NewEntry(
		activity.EntryRequestApproved,
		"Payment request approved",
	).WithActor(adminID, "").WithSubject(request.ID).WithAmount(request.Amount))

	return request, nil
}

// Reject refuses the request with a reason
func (s *SettlementRequestService) Reject(ctx context.Context, adminID, requestID uuid.UUID, reason string) (*billing.SettlementRequest, error) {
	request, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := request.Reject(adminID, reason, time.Now()); err != nil {
		return nil, err
	}
	if err := s.requestRepo.SaveWithLock(ctx, request); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, activity.NewEntry(
		activity.EntryRequestRejected,
		fmt.Sprintf("Payment request rejected: %s", request.RejectionReason),
	).WithActor(adminID, "").WithSubject(request.ID).WithAmount(request.Amount))

	return request, nil
}

// ListPending returns requests waiting for review
func (s *SettlementRequestService) ListPending(ctx context.Context, filter shared.Filter) (*shared.Paginated[billing.SettlementRequest], error) {
	return s.requestRepo.ListByState(ctx, billing.SettlementRequestPending, nil, filter)
}

// ListForDriver returns the driver's own requests
func (s *SettlementRequestService) ListForDriver(ctx context.Context, driverID uuid.UUID, filter shared.Filter) (*shared.Paginated[billing.SettlementRequest], error) {
	return s.requestRepo.ListByDriver(ctx, driverID, filter)
}
