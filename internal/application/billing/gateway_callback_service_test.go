package billing

import (
	"context"
	"testing"
	"time"

	"github.com/fleetrent/backend/internal/domain/billing"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func onlineDebt(t *testing.T) *billing.Debt {
	t.Helper()
	amount := valueobject.NewMoneyCOPFromInt(70000)
	debt, err := billing.NewDebt(uuid.New(), uuid.New(), time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC), amount)
	require.NoError(t, err)
	require.NoError(t, debt.ChooseOnlineMethod(debt.DriverID, DebtReferencePrefix+debt.ID.String()))
	return debt
}

func approvedEvent(debt *billing.Debt) billing.GatewayEvent {
	return billing.GatewayEvent{
		TransactionID: "txn-123",
		Reference:     debt.GatewayReference,
		Status:        billing.GatewayStatusApproved,
		AmountInCents: 7_000_000,
		Currency:      "COP",
		FinalizedAt:   time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC),
	}
}

func TestGatewayCallbackService_HandleCallback(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"event":"transaction.updated"}`)

	t.Run("confirms online settlement", func(t *testing.T) {
		debtRepo := new(MockDebtRepository)
		paymentRepo := new(MockPaymentRepository)
		gateway := new(MockGateway)
		recorder := &recorderSpy{}
		debt := onlineDebt(t)
		event := approvedEvent(debt)

		gateway.On("ParseEvent", mock.Anything, payload).Return(event, nil)
		debtRepo.On("FindByGatewayReference", mock.Anything, debt.GatewayReference).Return(debt, nil)
		paymentRepo.On("Save", mock.Anything, mock.AnythingOfType("*billing.Payment")).Return(nil)
		debtRepo.On("SaveWithLock", mock.Anything, debt).Return(nil)

		svc := NewGatewayCallbackService(debtRepo, paymentRepo, gateway, newMemoryIdempotency(), recorder, noopUOW{}, nil)
		result, err := svc.HandleCallback(ctx, payload)
		require.NoError(t, err)
		assert.True(t, result.Processed)
		assert.True(t, debt.Paid)
		assert.Equal(t, billing.DebtStateApproved, debt.State)

		payment := paymentRepo.Calls[0].Arguments.Get(1).(*billing.Payment)
		assert.Equal(t, "txn-123", payment.Reference)
		assert.Equal(t, billing.SettlementMethodOnline, payment.Method)
		require.Len(t, recorder.entries, 1)
	})

	t.Run("duplicate delivery is a no-op", func(t *testing.T) {
		debtRepo := new(MockDebtRepository)
		paymentRepo := new(MockPaymentRepository)
		gateway := new(MockGateway)
		debt := onlineDebt(t)
		event := approvedEvent(debt)

		gateway.On("ParseEvent", mock.Anything, payload).Return(event, nil)
		debtRepo.On("FindByGatewayReference", mock.Anything, debt.GatewayReference).Return(debt, nil)
		paymentRepo.On("Save", mock.Anything, mock.AnythingOfType("*billing.Payment")).Return(nil)
		debtRepo.On("SaveWithLock", mock.Anything, debt).Return(nil)

		svc := NewGatewayCallbackService(debtRepo, paymentRepo, gateway, newMemoryIdempotency(), &recorderSpy{}, noopUOW{}, nil)
		_, err := svc.HandleCallback(ctx, payload)
		require.NoError(t, err)

		result, err := svc.HandleCallback(ctx, payload)
		require.NoError(t, err)
		assert.True(t, result.AlreadyProcessed)
		paymentRepo.AssertNumberOfCalls(t, "Save", 1)
	})

	t.Run("non-approved status is ignored", func(t *testing.T) {
		gateway := new(MockGateway)
		debt := onlineDebt(t)
		event := approvedEvent(debt)
		event.Status = billing.GatewayStatusDeclined

		gateway.On("ParseEvent", mock.Anything, payload).Return(event, nil)

		svc := NewGatewayCallbackService(new(MockDebtRepository), new(MockPaymentRepository), gateway, newMemoryIdempotency(), &recorderSpy{}, noopUOW{}, nil)
		result, err := svc.HandleCallback(ctx, payload)
		require.NoError(t, err)
		assert.True(t, result.Ignored)
		assert.False(t, debt.Paid)
	})

	t.Run("unknown reference is swallowed", func(t *testing.T) {
		debtRepo := new(MockDebtRepository)
		gateway := new(MockGateway)
		debt := onlineDebt(t)
		event := approvedEvent(debt)

		gateway.On("ParseEvent", mock.Anything, payload).Return(event, nil)
		debtRepo.On("FindByGatewayReference", mock.Anything, debt.GatewayReference).Return(nil, nil)

		svc := NewGatewayCallbackService(debtRepo, new(MockPaymentRepository), gateway, newMemoryIdempotency(), &recorderSpy{}, noopUOW{}, nil)
		result, err := svc.HandleCallback(ctx, payload)
		require.NoError(t, err)
		assert.True(t, result.Ignored)
	})

	t.Run("deleted debt is swallowed without payment", func(t *testing.T) {
		debtRepo := new(MockDebtRepository)
		paymentRepo := new(MockPaymentRepository)
		gateway := new(MockGateway)
		debt := onlineDebt(t)
		require.NoError(t, debt.SoftDelete("duplicated entry"))
		event := approvedEvent(debt)

		gateway.On("ParseEvent", mock.Anything, payload).Return(event, nil)
		debtRepo.On("FindByGatewayReference", mock.Anything, debt.GatewayReference).Return(debt, nil)

		svc := NewGatewayCallbackService(debtRepo, paymentRepo, gateway, newMemoryIdempotency(), &recorderSpy{}, noopUOW{}, nil)
		result, err := svc.HandleCallback(ctx, payload)
		require.NoError(t, err)
		assert.True(t, result.Ignored)
		assert.False(t, debt.Paid)
		paymentRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		debtRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("already settled debt is a no-op", func(t *testing.T) {
		debtRepo := new(MockDebtRepository)
		paymentRepo := new(MockPaymentRepository)
		gateway := new(MockGateway)
		debt := onlineDebt(t)
		require.NoError(t, debt.ConfirmGateway(uuid.New(), time.Now()))
		event := approvedEvent(debt)

		gateway.On("ParseEvent", mock.Anything, payload).Return(event, nil)
		debtRepo.On("FindByGatewayReference", mock.Anything, debt.GatewayReference).Return(debt, nil)

		svc := NewGatewayCallbackService(debtRepo, paymentRepo, gateway, newMemoryIdempotency(), &recorderSpy{}, noopUOW{}, nil)
		result, err := svc.HandleCallback(ctx, payload)
		require.NoError(t, err)
		assert.True(t, result.AlreadyProcessed)
		paymentRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("invalid signature propagates", func(t *testing.T) {
		gateway := new(MockGateway)
		gateway.On("ParseEvent", mock.Anything, payload).Return(billing.GatewayEvent{}, shared.ErrUnauthorized)

		svc := NewGatewayCallbackService(new(MockDebtRepository), new(MockPaymentRepository), gateway, newMemoryIdempotency(), &recorderSpy{}, noopUOW{}, nil)
		_, err := svc.HandleCallback(ctx, payload)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "UNAUTHORIZED", domainErr.Code)
	})

	t.Run("processing failure releases idempotency key", func(t *testing.T) {
		debtRepo := new(MockDebtRepository)
		paymentRepo := new(MockPaymentRepository)
		gateway := new(MockGateway)
		store := newMemoryIdempotency()
		debt := onlineDebt(t)
		event := approvedEvent(debt)

		gateway.On("ParseEvent", mock.Anything, payload).Return(event, nil)
		debtRepo.On("FindByGatewayReference", mock.Anything, debt.GatewayReference).Return(debt, nil)
		paymentRepo.On("Save", mock.Anything, mock.AnythingOfType("*billing.Payment")).Return(assert.AnError)

		svc := NewGatewayCallbackService(debtRepo, paymentRepo, gateway, store, &recorderSpy{}, noopUOW{}, nil)
		_, err := svc.HandleCallback(ctx, payload)
		require.Error(t, err)
		assert.Empty(t, store.seen)
	})
}
