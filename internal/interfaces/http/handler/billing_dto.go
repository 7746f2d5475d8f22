package handler

import (
	"time"

	"github.com/fleetrent/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DebtResponse represents a daily debt in API responses
type DebtResponse struct {
	ID               uuid.UUID       `json:"id"`
	DriverID         uuid.UUID       `json:"driver_id"`
	VehicleID        uuid.UUID       `json:"vehicle_id"`
	Date             string          `json:"date"`
	Amount           decimal.Decimal `json:"amount"`
	Method           string          `json:"method"`
	State            string          `json:"state"`
	Paid             bool            `json:"paid"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	ReceiptRef       string          `json:"receipt_ref,omitempty"`
	GatewayReference string          `json:"gateway_reference,omitempty"`
	PaymentID        *uuid.UUID      `json:"payment_id,omitempty"`
	RejectionReason  string          `json:"rejection_reason,omitempty"`
	Deleted          bool            `json:"deleted"`
	DeletionReason   string          `json:"deletion_reason,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// toDebtResponse converts a debt aggregate to its API representation
func toDebtResponse(d *billing.Debt) DebtResponse {
	return DebtResponse{
		ID:               d.ID,
		DriverID:         d.DriverID,
		VehicleID:        d.VehicleID,
		Date:             d.Date.Format("2006-01-02"),
		Amount:           d.Amount,
		Method:           string(d.Method),
		State:            string(d.State),
		Paid:             d.Paid,
		PaidAt:           d.PaidAt,
		ReceiptRef:       d.ReceiptRef,
		GatewayReference: d.GatewayReference,
		PaymentID:        d.PaymentID,
		RejectionReason:  d.RejectionReason,
		Deleted:          d.Deleted,
		DeletionReason:   d.DeletionReason,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

// toDebtResponses converts a page of debts
func toDebtResponses(debts []billing.Debt) []DebtResponse {
	out := make([]DebtResponse, len(debts))
	for i := range debts {
		out[i] = toDebtResponse(&debts[i])
	}
	return out
}

// PaymentResponse represents a ledger entry in API responses
type PaymentResponse struct {
	ID         uuid.UUID       `json:"id"`
	DriverID   uuid.UUID       `json:"driver_id"`
	VehicleID  uuid.UUID       `json:"vehicle_id"`
	DebtID     *uuid.UUID      `json:"debt_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Concept    string          `json:"concept"`
	Method     string          `json:"method"`
	PaidAt     time.Time       `json:"paid_at"`
	ReceiptRef string          `json:"receipt_ref,omitempty"`
	Reference  string          `json:"reference,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

func toPaymentResponse(p *billing.Payment) PaymentResponse {
	return PaymentResponse{
		ID:         p.ID,
		DriverID:   p.DriverID,
		VehicleID:  p.VehicleID,
		DebtID:     p.DebtID,
		Amount:     p.Amount,
		Concept:    string(p.Concept),
		Method:     string(p.Method),
		PaidAt:     p.PaidAt,
		ReceiptRef: p.ReceiptRef,
		Reference:  p.Reference,
		Notes:      p.Notes,
		CreatedAt:  p.CreatedAt,
	}
}

func toPaymentResponses(payments []billing.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i := range payments {
		out[i] = toPaymentResponse(&payments[i])
	}
	return out
}

// SettlementRequestResponse represents a standalone payment request in API responses
type SettlementRequestResponse struct {
	ID              uuid.UUID       `json:"id"`
	DriverID        uuid.UUID       `json:"driver_id"`
	VehicleID       uuid.UUID       `json:"vehicle_id"`
	Amount          decimal.Decimal `json:"amount"`
	ReceiptRef      string          `json:"receipt_ref"`
	Notes           string          `json:"notes,omitempty"`
	State           string          `json:"state"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	PaymentID       *uuid.UUID      `json:"payment_id,omitempty"`
	ReviewedAt      *time.Time      `json:"reviewed_at,omitempty"`
	ReviewedBy      *uuid.UUID      `json:"reviewed_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func toSettlementRequestResponse(r *billing.SettlementRequest) SettlementRequestResponse {
	return SettlementRequestResponse{
		ID:              r.ID,
		DriverID:        r.DriverID,
		VehicleID:       r.VehicleID,
		Amount:          r.Amount,
		ReceiptRef:      r.ReceiptRef,
		Notes:           r.Notes,
		State:           string(r.State),
		RejectionReason: r.RejectionReason,
		PaymentID:       r.PaymentID,
		ReviewedAt:      r.ReviewedAt,
		ReviewedBy:      r.ReviewedBy,
		CreatedAt:       r.CreatedAt,
	}
}

func toSettlementRequestResponses(requests []billing.SettlementRequest) []SettlementRequestResponse {
	out := make([]SettlementRequestResponse, len(requests))
	for i := range requests {
		out[i] = toSettlementRequestResponse(&requests[i])
	}
	return out
}
