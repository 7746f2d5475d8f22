package handler

import (
	"time"

	appbilling "github.com/fleetrent/backend/internal/application/billing"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler handles payment ledger API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *appbilling.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *appbilling.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// RecordPaymentRequest represents a manually recorded ledger entry
type RecordPaymentRequest struct {
	DriverID   string     `json:"driver_id" binding:"required,uuid"`
	VehicleID  string     `json:"vehicle_id" binding:"required,uuid"`
	DebtID     *string    `json:"debt_id" binding:"omitempty,uuid"`
	Amount     string     `json:"amount" binding:"required"`
	PaidAt     *time.Time `json:"paid_at"`
	ReceiptRef string     `json:"receipt_ref" binding:"max=500"`
	Notes      string     `json:"notes" binding:"max=500"`
}

// Record appends a manual payment to the ledger (admin)
func (h *PaymentHandler) Record(c *gin.Context) {
	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	amount, err := valueobject.NewMoneyCOPFromString(req.Amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	adminID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	paidAt := time.Now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}

	input := appbilling.RecordPaymentInput{
		DriverID:   uuid.MustParse(req.DriverID),
		VehicleID:  uuid.MustParse(req.VehicleID),
		Amount:     amount,
		PaidAt:     paidAt,
		ReceiptRef: req.ReceiptRef,
		Notes:      req.Notes,
	}
	if req.DebtID != nil {
		debtID := uuid.MustParse(*req.DebtID)
		input.DebtID = &debtID
	}

	payment, err := h.paymentService.Record(c.Request.Context(), adminID, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toPaymentResponse(payment))
}

// Get returns a single ledger entry by ID (admin)
func (h *PaymentHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return
	}

	payment, err := h.paymentService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPaymentResponse(payment))
}

// List returns the full ledger, newest first (admin)
func (h *PaymentHandler) List(c *gin.Context) {
	filter, err := listFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.paymentService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, toPaymentResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// ListMine returns the authenticated driver's own payments
func (h *PaymentHandler) ListMine(c *gin.Context) {
	driverID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	filter, err := listFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.paymentService.ListForDriver(c.Request.Context(), driverID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, toPaymentResponses(page.Items), page.Total, page.Page, page.PageSize)
}
