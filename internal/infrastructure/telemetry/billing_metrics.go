// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"errors"

	"github.com/fleetrent/backend/internal/domain/activity"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when a metrics constructor receives a nil meter.
var ErrMeterNil = errors.New("NewBillingMetrics: meter cannot be nil")

// BillingMetrics tracks fleet billing activity: debt generation, settlements
// and payments. It implements activity.Recorder so it can be fanned in next
// to the audit trail and observe the same event stream.
type BillingMetrics struct {
	logger *zap.Logger

	debtsGeneratedTotal    *Counter
	debtsApprovedTotal     *Counter
	debtsRejectedTotal     *Counter
	receiptsSubmittedTotal *Counter
	paymentsTotal          *Counter
	paymentAmountTotal     *Counter
	loginsTotal            *Counter
}

// NewBillingMetrics creates a new BillingMetrics instance
func NewBillingMetrics(meter metric.Meter, logger *zap.Logger) (*BillingMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BillingMetrics{logger: logger}

	var err error
	if bm.debtsGeneratedTotal, err = NewCounter(meter,
		"fleet.debts.generated.total", "Total number of daily debts generated", "{debt}"); err != nil {
		return nil, err
	}
	if bm.debtsApprovedTotal, err = NewCounter(meter,
		"fleet.debts.approved.total", "Total number of settlements approved", "{debt}"); err != nil {
		return nil, err
	}
	if bm.debtsRejectedTotal, err = NewCounter(meter,
		"fleet.debts.rejected.total", "Total number of settlements rejected", "{debt}"); err != nil {
		return nil, err
	}
	if bm.receiptsSubmittedTotal, err = NewCounter(meter,
		"fleet.receipts.submitted.total", "Total number of manual receipts submitted", "{receipt}"); err != nil {
		return nil, err
	}
	if bm.paymentsTotal, err = NewCounter(meter,
		"fleet.payments.total", "Total number of payments recorded in the ledger", "{payment}"); err != nil {
		return nil, err
	}
	if bm.paymentAmountTotal, err = NewCounter(meter,
		"fleet.payments.amount.total", "Total amount of payments recorded, in COP", "COP"); err != nil {
		return nil, err
	}
	if bm.loginsTotal, err = NewCounter(meter,
		"fleet.logins.total", "Total number of successful logins", "{login}"); err != nil {
		return nil, err
	}

	return bm, nil
}

// Record maps an activity entry onto the matching counters
func (bm *BillingMetrics) Record(ctx context.Context, entry *activity.Entry) {
	if entry == nil {
		return
	}

	switch entry.Type {
	case activity.EntryDebtGenerated:
		bm.debtsGeneratedTotal.Inc(ctx)
	case activity.EntryDebtApproved, activity.EntryRequestApproved:
		bm.debtsApprovedTotal.Inc(ctx, AttrEntryType.String(string(entry.Type)))
	case activity.EntryDebtRejected, activity.EntryRequestRejected:
		bm.debtsRejectedTotal.Inc(ctx, AttrEntryType.String(string(entry.Type)))
	case activity.EntryReceiptSubmitted, activity.EntryRequestSubmitted:
		bm.receiptsSubmittedTotal.Inc(ctx, AttrEntryType.String(string(entry.Type)))
	case activity.EntryOnlinePayment:
		bm.recordPayment(ctx, entry, string(billingMethodOnline))
	case activity.EntryPaymentRecorded:
		bm.recordPayment(ctx, entry, string(billingMethodManual))
	case activity.EntryUserLoggedIn:
		bm.loginsTotal.Inc(ctx)
	}
}

type billingMethod string

const (
	billingMethodManual billingMethod = "manual"
	billingMethodOnline billingMethod = "online"
)

func (bm *BillingMetrics) recordPayment(ctx context.Context, entry *activity.Entry, method string) {
	bm.paymentsTotal.Inc(ctx, AttrSettlementMethod.String(method))
	if !entry.Amount.IsZero() {
		// Whole pesos; COP has no fractional circulation
		bm.paymentAmountTotal.Add(ctx, entry.Amount.Round(0).IntPart(),
			AttrSettlementMethod.String(method))
	}
}

var _ activity.Recorder = (*BillingMetrics)(nil)
