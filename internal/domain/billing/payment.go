package billing

import (
	"time"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentConcept classifies what a ledger entry settles
type PaymentConcept string

const (
	PaymentConceptRent  PaymentConcept = "rent"
	PaymentConceptOther PaymentConcept = "other"
)

// Payment is an immutable ledger entry recording money received from a
// driver. Entries are only ever created; corrections happen through the
// debts they settle.
type Payment struct {
	shared.BaseEntity
	DriverID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	VehicleID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	DebtID     *uuid.UUID      `gorm:"type:uuid;index"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Concept    PaymentConcept  `gorm:"type:varchar(20);not null;default:'rent'"`
	Method     SettlementMethod `gorm:"type:varchar(20);not null"`
	PaidAt     time.Time       `gorm:"not null;index"`
	ReceiptRef string          `gorm:"type:varchar(500)"`
	Reference  string          `gorm:"type:varchar(100);index"`
	Notes      string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// NewPayment records money received for a debt
func NewPayment(driverID, vehicleID uuid.UUID, debtID *uuid.UUID, amount valueobject.Money, method SettlementMethod, paidAt time.Time) (*Payment, error) {
	if driverID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Driver ID cannot be empty")
	}
	if vehicleID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Vehicle ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Payment amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Unknown settlement method")
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	return &Payment{
		BaseEntity: shared.NewBaseEntity(),
		DriverID:   driverID,
		VehicleID:  vehicleID,
		DebtID:     debtID,
		Amount:     amount.Amount(),
		Concept:    PaymentConceptRent,
		Method:     method,
		PaidAt:     paidAt,
	}, nil
}

// AmountMoney returns the entry amount as a Money value object
func (p *Payment) AmountMoney() valueobject.Money {
	return valueobject.NewMoneyCOP(p.Amount)
}
