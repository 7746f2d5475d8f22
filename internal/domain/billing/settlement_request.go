package billing

import (
	"time"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementRequestState is the review state of a standalone payment request
type SettlementRequestState string

const (
	SettlementRequestPending  SettlementRequestState = "PENDING"
	SettlementRequestApproved SettlementRequestState = "APPROVED"
	SettlementRequestRejected SettlementRequestState = "REJECTED"
)

// SettlementRequest is a driver-initiated payment claim that is not bound to
// a single generated debt, e.g. paying several days at once or settling an
// amount agreed out of band. Admins review it like a manual receipt.
type SettlementRequest struct {
	shared.BaseAggregateRoot
	DriverID        uuid.UUID              `gorm:"type:uuid;not null;index"`
	VehicleID       uuid.UUID              `gorm:"type:uuid;not null;index"`
	Amount          decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	ReceiptRef      string                 `gorm:"type:varchar(500);not null"`
	Notes           string                 `gorm:"type:varchar(500)"`
	State           SettlementRequestState `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	RejectionReason string                 `gorm:"type:varchar(500)"`
	PaymentID       *uuid.UUID             `gorm:"type:uuid"`
	ReviewedAt      *time.Time
	ReviewedBy      *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (SettlementRequest) TableName() string {
	return "settlement_requests"
}

// NewSettlementRequest creates a pending payment request for review
func NewSettlementRequest(driverID, vehicleID uuid.UUID, amount valueobject.Money, receiptRef, notes string) (*SettlementRequest, error) {
	if driverID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Driver ID cannot be empty")
	}
	if vehicleID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Vehicle ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Request amount must be positive")
	}
	if receiptRef == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Payment receipt is required")
	}

	return &SettlementRequest{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		DriverID:          driverID,
		VehicleID:         vehicleID,
		Amount:            amount.Amount(),
		ReceiptRef:        receiptRef,
		Notes:             notes,
		State:             SettlementRequestPending,
	}, nil
}

// Approve accepts the request and links the payment recorded for it
func (r *SettlementRequest) Approve(reviewerID, paymentID uuid.UUID, now time.Time) error {
	if r.State != SettlementRequestPending {
		return shared.NewDomainError("CONFLICT", "Request has already been reviewed")
	}
	reviewedAt := now
	r.State = SettlementRequestApproved
	r.PaymentID = &paymentID
	r.ReviewedAt = &reviewedAt
	r.ReviewedBy = &reviewerID
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	return nil
}

// Reject refuses the request with a reason
func (r *SettlementRequest) Reject(reviewerID uuid.UUID, reason string, now time.Time) error {
	if r.State != SettlementRequestPending {
		return shared.NewDomainError("CONFLICT", "Request has already been reviewed")
	}
	if reason == "" {
		reason = "unspecified"
	}
	reviewedAt := now
	r.State = SettlementRequestRejected
	r.RejectionReason = reason
	r.ReviewedAt = &reviewedAt
	r.ReviewedBy = &reviewerID
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	return nil
}

// AmountMoney returns the requested amount as a Money value object
func (r *SettlementRequest) AmountMoney() valueobject.Money {
	return valueobject.NewMoneyCOP(r.Amount)
}
