package billing

import (
	"fmt"
	"time"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementMethod is how a driver clears a debt
type SettlementMethod string

const (
	SettlementMethodManual SettlementMethod = "manual"
	SettlementMethodOnline SettlementMethod = "online"
)

// IsValid returns true for a known settlement method
func (m SettlementMethod) IsValid() bool {
	return m == SettlementMethodManual || m == SettlementMethodOnline
}

// DebtState is the settlement state of a debt
type DebtState string

const (
	DebtStateCreated         DebtState = "CREATED"
	DebtStatePendingApproval DebtState = "PENDING_APPROVAL"
	DebtStateApproved        DebtState = "APPROVED"
	DebtStateRejected        DebtState = "REJECTED"
)

// IsTerminal returns true when no further settlement transition is allowed
func (s DebtState) IsTerminal() bool {
	return s == DebtStateApproved || s == DebtStateRejected
}

// Debt represents one day of rental owed by a driver for an assigned vehicle.
// At most one non-deleted debt exists per (driver, vehicle, day); the
// persistence layer enforces this with a partial unique index and the
// generation engine re-checks it as a fast path.
type Debt struct {
	shared.BaseAggregateRoot
	DriverID         uuid.UUID        `gorm:"type:uuid;not null;index:idx_debts_driver_vehicle_date,priority:1"`
	VehicleID        uuid.UUID        `gorm:"type:uuid;not null;index:idx_debts_driver_vehicle_date,priority:2"`
	Date             time.Time        `gorm:"type:date;not null;index:idx_debts_driver_vehicle_date,priority:3"`
	Amount           decimal.Decimal  `gorm:"type:decimal(18,2);not null"`
	Method           SettlementMethod `gorm:"type:varchar(20);not null;default:'manual'"`
	State            DebtState        `gorm:"type:varchar(20);not null;default:'CREATED';index"`
	Paid             bool             `gorm:"not null;default:false"`
	PaidAt           *time.Time
	ReceiptRef       string `gorm:"type:varchar(500)"`
	GatewayReference string `gorm:"type:varchar(100);index"`
	PaymentID        *uuid.UUID `gorm:"type:uuid"`
	RejectionReason  string     `gorm:"type:varchar(500)"`
	Deleted          bool       `gorm:"not null;default:false;index"`
	DeletionReason   string     `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Debt) TableName() string {
	return "debts"
}

// DayOf truncates a timestamp to the start of its calendar day in UTC.
// Debt dates and day-range payment lookups both use this boundary.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayRange returns the inclusive [00:00:00.000, 23:59:59.999] range of the
// calendar day containing t
func DayRange(t time.Time) (time.Time, time.Time) {
	start := DayOf(t)
	return start, start.Add(24*time.Hour - time.Millisecond)
}

// NewDebt creates a debt for one driver-vehicle-day
func NewDebt(driverID, vehicleID uuid.UUID, date time.Time, amount valueobject.Money) (*Debt, error) {
	if driverID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Driver ID cannot be empty")
	}
	if vehicleID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Vehicle ID cannot be empty")
	}
	if date.IsZero() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Debt date is required")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Debt amount must be positive")
	}

	return &Debt{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		DriverID:          driverID,
		VehicleID:         vehicleID,
		Date:              DayOf(date),
		Amount:            amount.Amount(),
		Method:            SettlementMethodManual,
		State:             DebtStateCreated,
		Paid:              false,
	}, nil
}

// SubmitManualReceipt records a driver's payment receipt and moves the debt
// into the admin approval queue
func (d *Debt) SubmitManualReceipt(driverID uuid.UUID, receiptRef string) error {
	if err := d.checkSettleable(driverID); err != nil {
		return err
	}
	if receiptRef == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Payment receipt is required")
	}
	if d.State != DebtStateCreated {
		return shared.NewDomainError("CONFLICT", fmt.Sprintf("Cannot submit receipt for debt in %s state", d.State))
	}

	d.ReceiptRef = receiptRef
	d.Method = SettlementMethodManual
	d.State = DebtStatePendingApproval
	d.touch()
	return nil
}

// ChooseOnlineMethod switches the debt to online settlement and attaches the
// gateway correlation reference. The state stays CREATED until the gateway
// confirms the transaction.
func (d *Debt) ChooseOnlineMethod(driverID uuid.UUID, reference string) error {
	if err := d.checkSettleable(driverID); err != nil {
		return err
	}
	if reference == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Gateway reference is required")
	}
	if d.State != DebtStateCreated {
		return shared.NewDomainError("CONFLICT", fmt.Sprintf("Cannot initiate online payment for debt in %s state", d.State))
	}

	d.Method = SettlementMethodOnline
	d.GatewayReference = reference
	d.touch()
	return nil
}

// Approve settles a manual debt after admin review, linking the created
// payment record
func (d *Debt) Approve(paymentID uuid.UUID, now time.Time) error {
	if d.State != DebtStatePendingApproval || d.Method != SettlementMethodManual || d.Paid {
		return shared.NewDomainError("CONFLICT", "Debt is not awaiting manual approval")
	}
	d.settle(paymentID, now)
	return nil
}

// ConfirmGateway settles an online debt when the gateway reports the
// transaction as approved
func (d *Debt) ConfirmGateway(paymentID uuid.UUID, now time.Time) error {
	if d.Deleted {
		return shared.NewDomainError("CONFLICT", "Cannot settle a deleted debt")
	}
	if d.Paid {
		return shared.NewDomainError("CONFLICT", "Debt is already settled")
	}
	if d.Method != SettlementMethodOnline {
		return shared.NewDomainError("CONFLICT", "Debt is not an online settlement")
	}
	d.settle(paymentID, now)
	return nil
}

// Reject refuses a pending manual settlement
func (d *Debt) Reject(reason string) error {
	if d.State != DebtStatePendingApproval {
		return shared.NewDomainError("CONFLICT", fmt.Sprintf("Cannot reject debt in %s state", d.State))
	}
	if reason == "" {
		reason = "unspecified"
	}
	d.State = DebtStateRejected
	d.RejectionReason = reason
	d.touch()
	return nil
}

// UpdateAmount changes the owed amount of an unsettled debt
func (d *Debt) UpdateAmount(amount valueobject.Money) error {
	if d.Paid {
		return shared.NewDomainError("CONFLICT", "Cannot edit a settled debt")
	}
	if d.Deleted {
		return shared.NewDomainError("CONFLICT", "Cannot edit a deleted debt")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("VALIDATION_ERROR", "Debt amount must be positive")
	}
	d.Amount = amount.Amount()
	d.touch()
	return nil
}

// SoftDelete flags the debt as deleted while retaining it for audit.
// A settled debt may still be soft-deleted; that is the only mutation
// allowed after approval.
func (d *Debt) SoftDelete(reason string) error {
	if len(reason) < 3 {
		return shared.NewDomainError("VALIDATION_ERROR", "Deletion reason must be at least 3 characters")
	}
	if d.Deleted {
		return shared.NewDomainError("CONFLICT", "Debt is already deleted")
	}
	d.Deleted = true
	d.DeletionReason = reason
	d.touch()
	return nil
}

// AmountMoney returns the owed amount as a Money value object
func (d *Debt) AmountMoney() valueobject.Money {
	return valueobject.NewMoneyCOP(d.Amount)
}

// IsOpen returns true while the debt still awaits settlement
func (d *Debt) IsOpen() bool {
	return !d.Paid && !d.Deleted && !d.State.IsTerminal()
}

func (d *Debt) checkSettleable(driverID uuid.UUID) error {
	if d.Paid || d.Deleted {
		return shared.NewDomainError("NOT_FOUND", "Debt not found or already settled")
	}
	if d.DriverID != driverID {
		return shared.NewDomainError("FORBIDDEN", "Debt belongs to another driver")
	}
	return nil
}

func (d *Debt) settle(paymentID uuid.UUID, now time.Time) {
	paidAt := now
	d.State = DebtStateApproved
	d.Paid = true
	d.PaidAt = &paidAt
	d.PaymentID = &paymentID
	d.touch()
}

func (d *Debt) touch() {
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
}
