package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetrent/backend/internal/domain/activity"
	"github.com/fleetrent/backend/internal/domain/billing"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// callbackKeyTTL bounds how long a processed transaction ID is remembered.
// Gateway retry windows are measured in hours, not days.
const callbackKeyTTL = 48 * time.Hour

// CallbackResult tells the HTTP layer what happened with a gateway
// notification. Outside of signature failures the webhook always responds
// 200, so the result is informational.
type CallbackResult struct {
	Processed        bool   `json:"processed"`
	AlreadyProcessed bool   `json:"alreadyProcessed,omitempty"`
	Ignored          bool   `json:"ignored,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

// GatewayCallbackService confirms online settlements from provider webhooks
type GatewayCallbackService struct {
	debtRepo    billing.DebtRepository
	paymentRepo billing.PaymentRepository
	gateway     billing.PaymentGateway
	idempotency shared.IdempotencyStore
	recorder    activity.Recorder
	uow         shared.UnitOfWork
	logger      *zap.Logger
}

// NewGatewayCallbackService creates a new GatewayCallbackService
func NewGatewayCallbackService(
	debtRepo billing.DebtRepository,
	paymentRepo billing.PaymentRepository,
	gateway billing.PaymentGateway,
	idempotency shared.IdempotencyStore,
	recorder activity.Recorder,
	uow shared.UnitOfWork,
	logger *zap.Logger,
) *GatewayCallbackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GatewayCallbackService{
		debtRepo:    debtRepo,
		paymentRepo: paymentRepo,
		gateway:     gateway,
		idempotency: idempotency,
		recorder:    recorder,
		uow:         uow,
		logger:      logger,
	}
}

// HandleCallback verifies and applies one gateway notification.
// An invalid signature returns an UNAUTHORIZED domain error; every other
// outcome, including an unknown reference or an already-settled debt, is a
// silent no-op so the provider stops retrying.
func (s *GatewayCallbackService) HandleCallback(ctx context.Context, payload []byte) (*CallbackResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "gateway_callback")
	defer span.End()

	event, err := s.gateway.ParseEvent(ctx, payload)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentGateway, s.gateway.Name(),
		telemetry.SpanAttrReference, event.Reference,
	)

	s.logger.Info("Gateway callback received",
		zap.String("transaction_id", event.TransactionID),
		zap.String("reference", event.Reference),
		zap.String("status", event.Status))

	if !event.IsApproved() {
		return &CallbackResult{Ignored: true, Reason: "transaction not approved"}, nil
	}

	key := fmt.Sprintf("gateway:%s:%s", s.gateway.Name(), event.TransactionID)
	fresh, err := s.idempotency.MarkProcessed(ctx, key, callbackKeyTTL)
	if err != nil {
		return nil, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !fresh {
		return &CallbackResult{AlreadyProcessed: true}, nil
	}

	var result *CallbackResult
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("gateway_callback", nil), func(ctx context.Context) {
		result, err = s.applyEvent(ctx, event)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		// Release the key so the provider's retry can succeed.
		if forgetErr := s.idempotency.Forget(ctx, key); forgetErr != nil {
			s.logger.Warn("Failed to release idempotency key",
				zap.String("key", key),
				zap.Error(forgetErr))
		}
		return nil, err
	}
	telemetry.SetOK(span)
	return result, nil
}

func (s *GatewayCallbackService) applyEvent(ctx context.Context, event billing.GatewayEvent) (*CallbackResult, error) {
	var debt *billing.Debt
	var result *CallbackResult

	err := s.uow.Do(ctx, func(ctx context.Context) error {
		var err error
		debt, err = s.debtRepo.FindByGatewayReference(ctx, event.Reference)
		if err != nil {
			return err
		}
		if debt == nil || debt.Deleted {
			s.logger.Warn("Gateway callback references unknown debt",
				zap.String("reference", event.Reference))
			result = &CallbackResult{Ignored: true, Reason: "unknown reference"}
			return nil
		}
		if debt.Paid {
			result = &CallbackResult{AlreadyProcessed: true}
			return nil
		}

		now := event.FinalizedAt
		if now.IsZero() {
			now = time.Now()
		}
		payment, err := billing.NewPayment(debt.DriverID, debt.VehicleID, &debt.ID, debt.AmountMoney(), billing.SettlementMethodOnline, now)
		if err != nil {
			return err
		}
		payment.Reference = event.TransactionID

		if err := s.paymentRepo.Save(ctx, payment); err != nil {
			return err
		}
		if err := debt.ConfirmGateway(payment.ID, now); err != nil {
			return err
		}
		if err := s.debtRepo.SaveWithLock(ctx, debt); err != nil {
			return err
		}
		result = &CallbackResult{Processed: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Processed {
		s.recorder.Record(ctx, activity.NewEntry(
			activity.EntryOnlinePayment,
			fmt.Sprintf("Online payment confirmed for debt of %s", debt.Date.Format("2006-01-02")),
		).WithSubject(debt.ID).WithAmount(debt.Amount))

		s.logger.Info("Online settlement confirmed",
			zap.String("debt_id", debt.ID.String()),
			zap.String("transaction_id", event.TransactionID))
	}
	return result, nil
}
