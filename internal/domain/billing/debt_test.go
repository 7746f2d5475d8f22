package billing

import (
	"testing"
	"time"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDebt(t *testing.T) *Debt {
	t.Helper()
	amount := valueobject.NewMoneyCOPFromInt(70000)
	debt, err := NewDebt(uuid.New(), uuid.New(), time.Date(2026, 8, 27, 14, 30, 0, 0, time.UTC), amount)
	require.NoError(t, err)
	return debt
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	return domainErr.Code
}

func TestNewDebt(t *testing.T) {
	amount := valueobject.NewMoneyCOPFromInt(70000)

	t.Run("creates debt at day start", func(t *testing.T) {
		debt, err := NewDebt(uuid.New(), uuid.New(), time.Date(2026, 8, 27, 23, 59, 0, 0, time.UTC), amount)
		require.NoError(t, err)
		assert.Equal(t, DebtStateCreated, debt.State)
		assert.Equal(t, SettlementMethodManual, debt.Method)
		assert.False(t, debt.Paid)
		assert.Equal(t, time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC), debt.Date)
		assert.Equal(t, 1, debt.GetVersion())
	})

	t.Run("rejects empty driver", func(t *testing.T) {
		_, err := NewDebt(uuid.Nil, uuid.New(), time.Now(), amount)
		assert.Equal(t, "VALIDATION_ERROR", domainCode(t, err))
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		zero := valueobject.ZeroCOP()
		_, err := NewDebt(uuid.New(), uuid.New(), time.Now(), zero)
		assert.Equal(t, "VALIDATION_ERROR", domainCode(t, err))
	})
}

func TestDayRange(t *testing.T) {
	start, end := DayRange(time.Date(2026, 8, 27, 13, 45, 12, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 8, 27, 23, 59, 59, 999000000, time.UTC), end)
}

func TestDebt_SubmitManualReceipt(t *testing.T) {
	t.Run("moves created debt to pending approval", func(t *testing.T) {
		debt := newTestDebt(t)
		err := debt.SubmitManualReceipt(debt.DriverID, "https://receipts.example/abc.jpg")
		require.NoError(t, err)
		assert.Equal(t, DebtStatePendingApproval, debt.State)
		assert.Equal(t, SettlementMethodManual, debt.Method)
		assert.Equal(t, "https://receipts.example/abc.jpg", debt.ReceiptRef)
		assert.Equal(t, 2, debt.GetVersion())
	})

	t.Run("rejects another driver's debt", func(t *testing.T) {
		debt := newTestDebt(t)
		err := debt.SubmitManualReceipt(uuid.New(), "ref")
		assert.Equal(t, "FORBIDDEN", domainCode(t, err))
	})

	t.Run("rejects empty receipt", func(t *testing.T) {
		debt := newTestDebt(t)
		err := debt.SubmitManualReceipt(debt.DriverID, "")
		assert.Equal(t, "VALIDATION_ERROR", domainCode(t, err))
	})

	t.Run("hides settled debt", func(t *testing.T) {
		debt := newTestDebt(t)
		require.NoError(t, debt.SubmitManualReceipt(debt.DriverID, "ref"))
		require.NoError(t, debt.Approve(uuid.New(), time.Now()))
		err := debt.SubmitManualReceipt(debt.DriverID, "ref")
		assert.Equal(t, "NOT_FOUND", domainCode(t, err))
	})

	t.Run("rejects double submission", func(t *testing.T) {
		debt := newTestDebt(t)
		require.NoError(t, debt.SubmitManualReceipt(debt.DriverID, "ref"))
		err := debt.SubmitManualReceipt(debt.DriverID, "ref2")
		assert.Equal(t, "CONFLICT", domainCode(t, err))
	})
}

func TestDebt_ChooseOnlineMethod(t *testing.T) {
	t.Run("records gateway reference without changing state", func(t *testing.T) {
		debt := newTestDebt(t)
		err := debt.ChooseOnlineMethod(debt.DriverID, "DEBT-"+debt.ID.String())
		require.NoError(t, err)
		assert.Equal(t, DebtStateCreated, debt.State)
		assert.Equal(t, SettlementMethodOnline, debt.Method)
		assert.Equal(t, "DEBT-"+debt.ID.String(), debt.GatewayReference)
	})

	t.Run("rejects after receipt submission", func(t *testing.T) {
		debt := newTestDebt(t)
		require.NoError(t, debt.SubmitManualReceipt(debt.DriverID, "ref"))
		err := debt.ChooseOnlineMethod(debt.DriverID, "DEBT-x")
		assert.Equal(t, "CONFLICT", domainCode(t, err))
	})

	t.Run("hides deleted debt", func(t *testing.T) {
		debt := newTestDebt(t)
		require.NoError(t, debt.SoftDelete("duplicated entry"))
		err := debt.ChooseOnlineMethod(debt.DriverID, "DEBT-x")
		assert.Equal(t, "NOT_FOUND", domainCode(t, err))
	})
}

func TestDebt_Approve(t *testing.T) {
	t.Run("settles pending manual debt", func(t *testing.T) {
		debt := newTestDebt(t)
		require.NoError(t, debt.SubmitManualReceipt(debt.DriverID, "ref"))
		paymentID := uuid.New()
		now := time.Now()

		err := debt.Approve(paymentID, now)
		require.NoError(t, err)
		assert.Equal(t, DebtStateApproved, debt.State)
		assert.True(t, debt.Paid)
		require.NotNil(t, debt.PaidAt)
		assert.Equal(t, now, *debt.PaidAt)
		require.NotNil(t, debt.PaymentID)
		assert.Equal(t, paymentID, *debt.PaymentID)
	})

	t.Run("rejects debt not awaiting approval", func(t *testing.T) {
		debt := newTestDebt(t)
		err := debt.Approve(uuid.New(), time.Now())
		assert.Equal(t, "CONFLICT", domainCode(t, err))
	})

	t.Run("rejects double approval", func(t *testing.T) {
		debt := newTestDebt(t)
		require.NoError(t, debt.SubmitManualReceipt(debt.DriverID, "ref"))
		require.NoError(t, debt.Approve(uuid.New(), time.Now()))
		err := debt.Approve(uuid.New(), time.Now())
		assert.Equal(t, "CONFLICT", domainCode(t, err))
	})
}

func TestDebt_ConfirmGateway(t *testing.T) {
	t.Run("settles online debt", func(t *testing.T) {
		debt := newTestDebt(t)
		require.NoError(t, debt.ChooseOnlineMethod(debt.DriverID, "DEBT-x"))
		err := debt.ConfirmGateway(uuid.New(), time.Now())
		require.NoError(t, err)
		assert.True(t, debt.Paid)
		assert.Equal(t, DebtStateApproved, debt.State)
	})

	t.Run("rejects already settled debt", func(t *testing.T) {
		debt := newTestDebt(t)
		require.NoError(t, debt.ChooseOnlineMethod(debt.DriverID, "DEBT-x"))
		require.NoError(t, debt.ConfirmGateway(uuid.New(), time.Now()))
		err := debt.ConfirmGateway(uuid.New(), time.Now())
		assert.Equal(t, "CONFLICT", domainCode(t, err))
	})

	t.Run("rejects manual debt", func(t *testing.T) {
		debt := newTestDebt(t)
		err := debt.ConfirmGateway(uuid.New(), time.Now())
		assert.Equal(t, "CONFLICT", domainCode(t, err))
	})

	t.Run("rejects deleted debt", func(t *testing.T) {
		debt := newTestDebt(t)
		require.NoError(t, debt.ChooseOnlineMethod(debt.DriverID, "DEBT-x"))
		require.NoError(t, debt.SoftDelete("charged by mistake"))
		err := debt.ConfirmGateway(uuid.New(), time.Now())
		assert.Equal(t, "CONFLICT", domainCode(t, err))
		assert.False(t, debt.Paid)
	})
}

func TestDebt_Reject(t *testing.T) {
	t.Run("rejects pending debt with reason", func(t *testing.T) {
		debt := newTestDebt(t)
		require.NoError(t, debt.SubmitManualReceipt(debt.DriverID, "ref"))
		err := debt.Reject("blurry receipt")
		require.NoError(t, err)
		assert.Equal(t, DebtStateRejected, debt.State)
		assert.Equal(t, "blurry receipt", debt.RejectionReason)
		assert.False(t, debt.Paid)
	})

	t.Run("defaults reason when empty", func(t *testing.T) {
		debt := newTestDebt(t)
		require.NoError(t, debt.SubmitManualReceipt(debt.DriverID, "ref"))
		require.NoError(t, debt.Reject(""))
		assert.Equal(t, "unspecified", debt.RejectionReason)
	})

	t.Run("rejection is terminal", func(t *testing.T) {
		debt := newTestDebt(t)
		require.NoError(t, debt.SubmitManualReceipt(debt.DriverID, "ref"))
		require.NoError(t, debt.Reject("bad"))
		err := debt.SubmitManualReceipt(debt.DriverID, "new-ref")
		assert.Equal(t, "CONFLICT", domainCode(t, err))
	})

	t.Run("rejects created debt", func(t *testing.T) {
		debt := newTestDebt(t)
		err := debt.Reject("reason")
		assert.Equal(t, "CONFLICT", domainCode(t, err))
	})
}

func TestDebt_UpdateAmount(t *testing.T) {
	t.Run("updates open debt", func(t *testing.T) {
		debt := newTestDebt(t)
		amount := valueobject.NewMoneyCOPFromInt(85000)
		require.NoError(t, debt.UpdateAmount(amount))
		assert.True(t, debt.AmountMoney().Equals(amount))
	})

	t.Run("rejects settled debt", func(t *testing.T) {
		debt := newTestDebt(t)
		require.NoError(t, debt.SubmitManualReceipt(debt.DriverID, "ref"))
		require.NoError(t, debt.Approve(uuid.New(), time.Now()))
		amount := valueobject.NewMoneyCOPFromInt(85000)
		err := debt.UpdateAmount(amount)
		assert.Equal(t, "CONFLICT", domainCode(t, err))
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		debt := newTestDebt(t)
		err := debt.UpdateAmount(valueobject.ZeroCOP())
		assert.Equal(t, "VALIDATION_ERROR", domainCode(t, err))
	})
}

func TestDebt_SoftDelete(t *testing.T) {
	t.Run("flags debt with reason", func(t *testing.T) {
		debt := newTestDebt(t)
		require.NoError(t, debt.SoftDelete("duplicated row"))
		assert.True(t, debt.Deleted)
		assert.Equal(t, "duplicated row", debt.DeletionReason)
	})

	t.Run("allows deleting a settled debt", func(t *testing.T) {
		debt := newTestDebt(t)
		require.NoError(t, debt.SubmitManualReceipt(debt.DriverID, "ref"))
		require.NoError(t, debt.Approve(uuid.New(), time.Now()))
		require.NoError(t, debt.SoftDelete("charged by mistake"))
		assert.True(t, debt.Deleted)
		assert.True(t, debt.Paid)
	})

	t.Run("rejects short reason", func(t *testing.T) {
		debt := newTestDebt(t)
		err := debt.SoftDelete("no")
		assert.Equal(t, "VALIDATION_ERROR", domainCode(t, err))
	})

	t.Run("rejects double deletion", func(t *testing.T) {
		debt := newTestDebt(t)
		require.NoError(t, debt.SoftDelete("duplicated row"))
		err := debt.SoftDelete("again")
		assert.Equal(t, "CONFLICT", domainCode(t, err))
	})
}
