package billing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fleetrent/backend/internal/domain/activity"
	"github.com/fleetrent/backend/internal/domain/billing"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DebtReferencePrefix prefixes the gateway correlation reference built from
// a debt ID
const DebtReferencePrefix = "DEBT-"

// RejectedItem is one line of the merged rejected listing, covering both
// rejected debts and rejected standalone payment requests
type RejectedItem struct {
	Kind       string          `json:"kind"` // "debt" or "request"
	ID         uuid.UUID       `json:"id"`
	DriverID   uuid.UUID       `json:"driverId"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	RejectedAt time.Time       `json:"rejectedAt"`
}

// DebtService drives the settlement lifecycle of debts
type DebtService struct {
	debtRepo    billing.DebtRepository
	paymentRepo billing.PaymentRepository
	requestRepo billing.SettlementRequestRepository
	gateway     billing.PaymentGateway
	recorder    activity.Recorder
	uow         shared.UnitOfWork
	redirectURL string
	logger      *zap.Logger
}

// NewDebtService creates a new DebtService
func NewDebtService(
	debtRepo billing.DebtRepository,
	paymentRepo billing.PaymentRepository,
	requestRepo billing.SettlementRequestRepository,
	gateway billing.PaymentGateway,
	recorder activity.Recorder,
	uow shared.UnitOfWork,
	redirectURL string,
	logger *zap.Logger,
) *DebtService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DebtService{
		debtRepo:    debtRepo,
		paymentRepo: paymentRepo,
		requestRepo: requestRepo,
		gateway:     gateway,
		recorder:    recorder,
		uow:         uow,
		redirectURL: redirectURL,
		logger:      logger,
	}
}

// List returns debts matching the query, for admin views
func (s *DebtService) List(ctx context.Context, query billing.DebtQuery, filter shared.Filter) (*shared.Paginated[billing.Debt], error) {
	return s.debtRepo.List(ctx, query, filter)
}

// ListForDriver returns the driver's own non-deleted debts
func (s *DebtService) ListForDriver(ctx context.Context, driverID uuid.UUID, onlyOpen bool, filter shared.Filter) (*shared.Paginated[billing.Debt], error) {
	query := billing.DebtQuery{DriverID: &driverID}
	if onlyOpen {
		paid := false
		query.Paid = &paid
	}
	return s.debtRepo.List(ctx, query, filter)
}

// Get returns one debt by ID
func (s *DebtService) Get(ctx context.Context, id uuid.UUID) (*billing.Debt, error) {
	debt, err := s.debtRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if debt == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Debt not found")
	}
	return debt, nil
}

// SubmitReceipt records a driver's manual payment receipt and queues the
// debt for admin review
func (s *DebtService) SubmitReceipt(ctx context.Context, driverID, debtID uuid.UUID, receiptRef string) (*billing.Debt, error) {
	debt, err := s.Get(ctx, debtID)
	if err != nil {
		return nil, err
	}
	if err := debt.SubmitManualReceipt(driverID, receiptRef); err != nil {
		return nil, err
	}
	if err := s.debtRepo.SaveWithLock(ctx, debt); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, activity.NewEntry(
		activity.EntryReceiptSubmitted,
		fmt.Sprintf("Payment receipt submitted for debt of %s", debt.Date.Format("2006-01-02")),
	).WithActor(driverID, "").WithSubject(debt.ID).WithAmount(debt.Amount))

	return debt, nil
}

// InitiateOnlinePayment switches the debt to online settlement and returns
// the hosted checkout URL for the driver
func (s *DebtService) InitiateOnlinePayment(ctx context.Context, driverID, debtID uuid.UUID) (string, error) {
	debt, err := s.Get(ctx, debtID)
	if err != nil {
		return "", err
	}

	reference := DebtReferencePrefix + debt.ID.String()
	if err := debt.ChooseOnlineMethod(driverID, reference); err != nil {
		return "", err
	}

	checkoutURL, err := s.gateway.CheckoutURL(ctx, billing.CheckoutRequest{
		Reference:   reference,
		Amount:      debt.AmountMoney(),
		Description: fmt.Sprintf("Vehicle rental %s", debt.Date.Format("2006-01-02")),
		RedirectURL: s.redirectURL,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build checkout URL: %w", err)
	}

	if err := s.debtRepo.SaveWithLock(ctx, debt); err != nil {
		return "", err
	}

	s.logger.Info("Online payment initiated",
		zap.String("debt_id", debt.ID.String()),
		zap.String("reference", reference))

	return checkoutURL, nil
}

// Approve settles a pending manual debt: it writes the ledger entry and
// marks the debt paid in one transaction
func (s *DebtService) Approve(ctx context.Context, adminID, debtID uuid.UUID) (*billing.Debt, error) {
	var debt *billing.Debt
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		var err error
		debt, err = s.Get(ctx, debtID)
		if err != nil {
			return err
		}

		now := time.Now()
		payment, err := billing.NewPayment(debt.DriverID, debt.VehicleID, &debt.ID, debt.AmountMoney(), billing.SettlementMethodManual, now)
		if err != nil {
			return err
		}
		payment.ReceiptRef = debt.ReceiptRef

		if err := s.paymentRepo.Save(ctx, payment); err != nil {
			return err
		}
		if err := debt.Approve(payment.ID, now); err != nil {
			return err
		}
		return s.debtRepo.SaveWithLock(ctx, debt)
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, activity.NewEntry(
		activity.EntryDebtApproved,
		fmt.Sprintf("Debt of %s approved", debt.Date.Format("2006-01-02")),
	).WithActor(adminID, "").WithSubject(debt.ID).WithAmount(debt.Amount))

	return debt, nil
}

// Reject refuses a pending manual settlement with a reason
func (s *DebtService) Reject(ctx context.Context, adminID, debtID uuid.UUID, reason string) (*billing.Debt, error) {
	debt, err := s.Get(ctx, debtID)
	if err != nil {
		return nil, err
	}
	if err := debt.Reject(reason); err != nil {
		return nil, err
	}
	if err := s.debtRepo.SaveWithLock(ctx, debt); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, activity.NewEntry(
		activity.EntryDebtRejected,
		fmt.Sprintf("Debt of %s rejected: %s", debt.Date.Format("2006-01-02"), debt.RejectionReason),
	).WithActor(adminID, "").WithSubject(debt.ID).WithAmount(debt.Amount))

	return debt, nil
}

// UpdateAmount changes the owed amount of an unsettled debt
func (s *DebtService) UpdateAmount(ctx context.Context, adminID, debtID uuid.UUID, amount valueobject.Money) (*billing.Debt, error) {
	debt, err := s.Get(ctx, debtID)
	if err != nil {
		return nil, err
	}
	if err := debt.UpdateAmount(amount); err != nil {
		return nil, err
	}
	if err := s.debtRepo.SaveWithLock(ctx, debt); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, activity.NewEntry(
		activity.EntryDebtUpdated,
		fmt.Sprintf("Debt of %s amount updated", debt.Date.Format("2006-01-02")),
	).WithActor(adminID, "").WithSubject(debt.ID).WithAmount(debt.Amount))

	return debt, nil
}

// Remove soft-deletes a debt, keeping it for audit
func (s *DebtService) Remove(ctx context.Context, adminID, debtID uuid.UUID, reason string) error {
	debt, err := s.Get(ctx, debtID)
	if err != nil {
		return err
	}
	if err := debt.SoftDelete(reason); err != nil {
		return err
	}
	if err := s.debtRepo.SaveWithLock(ctx, debt); err != nil {
		return err
	}

	s.recorder.Record(ctx, activity.NewEntry(
		activity.EntryDebtDeleted,
		fmt.Sprintf("Debt of %s deleted: %s", debt.Date.Format("2006-01-02"), reason),
	).WithActor(adminID, "").WithSubject(debt.ID).WithAmount(debt.Amount))

	return nil
}

// ListPending returns debts waiting for admin approval
func (s *DebtService) ListPending(ctx context.Context, filter shared.Filter) (*shared.Paginated[billing.Debt], error) {
	state := billing.DebtStatePendingApproval
	return s.debtRepo.List(ctx, billing.DebtQuery{State: &state}, filter)
}

// ListRejected merges rejected debts and rejected payment requests into one
// listing ordered by rejection date, newest first. A non-nil driverID scopes
// the listing to that driver. Both sources are fetched in full and paginated
// after the merge so page boundaries hold across the combined listing.
func (s *DebtService) ListRejected(ctx context.Context, driverID *uuid.UUID, filter shared.Filter) (*shared.Paginated[RejectedItem], error) {
	// zero Page/PageSize disables repository-level pagination
	all := shared.Filter{}
	state := billing.DebtStateRejected
	debts, err := s.debtRepo.List(ctx, billing.DebtQuery{State: &state, DriverID: driverID}, all)
	if err != nil {
		return nil, err
	}
	requests, err := s.requestRepo.ListByState(ctx, billing.SettlementRequestRejected, driverID, all)
	if err != nil {
		return nil, err
	}

	items := make([]RejectedItem, 0, len(debts.Items)+len(requests.Items))
	for _, d := range debts.Items {
		items = append(items, RejectedItem{
			Kind:       "debt",
			ID:         d.ID,
			DriverID:   d.DriverID,
			Amount:     d.Amount,
			Reason:     d.RejectionReason,
			RejectedAt: d.UpdatedAt,
		})
	}
	for _, r := range requests.Items {
		rejectedAt := r.UpdatedAt
		if r.ReviewedAt != nil {
			rejectedAt = *r.ReviewedAt
		}
		items = append(items, RejectedItem{
			Kind:       "request",
			ID:         r.ID,
			DriverID:   r.DriverID,
			Amount:     r.Amount,
			Reason:     r.RejectionReason,
			RejectedAt: rejectedAt,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].RejectedAt.After(items[j].RejectedAt)
	})

	total := int64(len(items))
	if filter.Page > 0 && filter.PageSize > 0 {
		start := (filter.Page - 1) * filter.PageSize
		if start > len(items) {
			start = len(items)
		}
		end := start + filter.PageSize
		if end > len(items) {
			end = len(items)
		}
		items = items[start:end]
	}

	merged := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &merged, nil
}
