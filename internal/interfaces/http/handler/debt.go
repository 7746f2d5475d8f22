package handler

import (
	"time"

	appbilling "github.com/fleetrent/backend/internal/application/billing"
	"github.com/fleetrent/backend/internal/domain/billing"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DebtHandler handles daily debt API endpoints
type DebtHandler struct {
	BaseHandler
	debtService *appbilling.DebtService
}

// NewDebtHandler creates a new DebtHandler
func NewDebtHandler(debtService *appbilling.DebtService) *DebtHandler {
	return &DebtHandler{
		debtService: debtService,
	}
}

// ListDebtsRequest represents admin debt list filters
type ListDebtsRequest struct {
	DriverID       string `form:"driver_id" binding:"omitempty,uuid"`
	VehicleID      string `form:"vehicle_id" binding:"omitempty,uuid"`
	State          string `form:"state" binding:"omitempty,oneof=CREATED PENDING_APPROVAL APPROVED REJECTED"`
	Paid           *bool  `form:"paid"`
	From           string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To             string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	IncludeDeleted bool   `form:"include_deleted"`
}

// UpdateDebtAmountRequest represents a request to correct a debt amount
type UpdateDebtAmountRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// RejectDebtRequest represents a request to reject a submitted receipt
type RejectDebtRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// DeleteDebtRequest represents a request to soft-delete a debt
type DeleteDebtRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=500"`
}

// SubmitReceiptRequest represents a driver's manual settlement submission
type SubmitReceiptRequest struct {
	ReceiptRef string `json:"receipt_ref" binding:"required,min=1,max=500"`
}

// List returns debts matching the given filters (admin)
func (h *DebtHandler) List(c *gin.Context) {
	var req ListDebtsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := listFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	query := billing.DebtQuery{IncludeDeleted: req.IncludeDeleted, Paid: req.Paid}
	if req.DriverID != "" {
		id := uuid.MustParse(req.DriverID)
		query.DriverID = &id
	}
	if req.VehicleID != "" {
		id := uuid.MustParse(req.VehicleID)
		query.VehicleID = &id
	}
	if req.State != "" {
		state := billing.DebtState(req.State)
		query.State = &state
	}
	if req.From != "" {
		from, _ := time.Parse("2006-01-02", req.From)
		query.From = &from
	}
	if req.To != "" {
		to, _ := time.Parse("2006-01-02", req.To)
		query.To = &to
	}

	page, err := h.debtService.List(c.Request.Context(), query, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, toDebtResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// Get returns a single debt by ID (admin)
func (h *DebtHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid debt ID")
		return
	}

	debt, err := h.debtService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toDebtResponse(debt))
}

// UpdateAmount corrects the amount of an unpaid debt (admin)
func (h *DebtHandler) UpdateAmount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid debt ID")
		return
	}

	var req UpdateDebtAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
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

	debt, err := h.debtService.UpdateAmount(c.Request.Context(), adminID, id, amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toDebtResponse(debt))
}

// Approve confirms a pending settlement and creates its ledger entry (admin)
func (h *DebtHandler) Approve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid debt ID")
		return
	}

	adminID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	debt, err := h.debtService.Approve(c.Request.Context(), adminID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toDebtResponse(debt))
}

// Reject turns down a pending settlement with a reason (admin)
func (h *DebtHandler) Reject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid debt ID")
		return
	}

	var req RejectDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Rejection reason is required")
		return
	}

	adminID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	debt, err := h.debtService.Reject(c.Request.Context(), adminID, id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toDebtResponse(debt))
}

// Delete soft-deletes a debt, keeping it for audit (admin)
func (h *DebtHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid debt ID")
		return
	}

	var req DeleteDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "A deletion reason of at least 3 characters is required")
		return
	}

	adminID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	if err := h.debtService.Remove(c.Request.Context(), adminID, id, req.Reason); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// ListPending returns the review queue of submitted settlements (admin)
func (h *DebtHandler) ListPending(c *gin.Context) {
	filter, err := listFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.debtService.ListPending(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, toDebtResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// ListRejected returns rejected debts and rejected standalone requests (admin)
func (h *DebtHandler) ListRejected(c *gin.Context) {
	filter, err := listFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.debtService.ListRejected(c.Request.Context(), nil, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ListMineRejected returns the authenticated driver's rejected debts and
// rejected standalone requests
func (h *DebtHandler) ListMineRejected(c *gin.Context) {
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

	page, err := h.debtService.ListRejected(c.Request.Context(), &driverID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ListMine returns the authenticated driver's own debts
func (h *DebtHandler) ListMine(c *gin.Context) {
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

	onlyOpen := c.Query("only_open") == "true"

	page, err := h.debtService.ListForDriver(c.Request.Context(), driverID, onlyOpen, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, toDebtResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// SubmitReceipt records a manual payment receipt for one of the driver's debts
func (h *DebtHandler) SubmitReceipt(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid debt ID")
		return
	}

	var req SubmitReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "A receipt reference is required")
		return
	}

	driverID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	debt, err := h.debtService.SubmitReceipt(c.Request.Context(), driverID, id, req.ReceiptRef)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toDebtResponse(debt))
}

// CheckoutResponse carries the gateway checkout URL for an online payment
type CheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

// PayOnline creates a gateway checkout session for one of the driver's debts
func (h *DebtHandler) PayOnline(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid debt ID")
		return
	}

	driverID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	checkoutURL, err := h.debtService.InitiateOnlinePayment(c.Request.Context(), driverID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, CheckoutResponse{CheckoutURL: checkoutURL})
}
