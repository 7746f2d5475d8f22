package handler

import (
	appbilling "github.com/fleetrent/backend/internal/application/billing"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SettlementRequestHandler handles standalone payment request endpoints
type SettlementRequestHandler struct {
	BaseHandler
	requestService *appbilling.SettlementRequestService
}

// NewSettlementRequestHandler creates a new SettlementRequestHandler
func NewSettlementRequestHandler(requestService *appbilling.SettlementRequestService) *SettlementRequestHandler {
	return &SettlementRequestHandler{
		requestService: requestService,
	}
}

// SubmitSettlementRequest represents a driver's standalone payment submission
type SubmitSettlementRequest struct {
	VehicleID  string `json:"vehicle_id" binding:"required,uuid"`
	Amount     string `json:"amount" binding:"required"`
	ReceiptRef string `json:"receipt_ref" binding:"required,min=1,max=500"`
	Notes      string `json:"notes" binding:"max=500"`
}

// RejectSettlementRequest represents an admin rejection with a reason
type RejectSettlementRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// Submit files a payment request for review (driver)
func (h *SettlementRequestHandler) Submit(c *gin.Context) {
	var req SubmitSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	amount, err := valueobject.NewMoneyCOPFromString(req.Amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	driverID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	request, err := h.requestService.Submit(c.Request.Context(), driverID, uuid.MustParse(req.VehicleID), amount, req.ReceiptRef, req.Notes)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toSettlementRequestResponse(request))
}

// Get returns a single payment request by ID (admin)
func (h *SettlementRequestHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid request ID")
		return
	}

	request, err := h.requestService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toSettlementRequestResponse(request))
}

// Approve accepts a pending payment request and records its payment (admin)
func (h *SettlementRequestHandler) Approve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid request ID")
		return
	}

	adminID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	request, err := h.requestService.Approve(c.Request.Context(), adminID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toSettlementRequestResponse(request))
}

// Reject turns down a pending payment request with a reason (admin)
func (h *SettlementRequestHandler) Reject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid request ID")
		return
	}

	var req RejectSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Rejection reason is required")
		return
	}

	adminID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	request, err := h.requestService.Reject(c.Request.Context(), adminID, id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toSettlementRequestResponse(request))
}

// ListPending returns the review queue in submission order (admin)
func (h *SettlementRequestHandler) ListPending(c *gin.Context) {
	filter, err := listFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.requestService.ListPending(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, toSettlementRequestResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// ListMine returns the authenticated driver's own payment requests
func (h *SettlementRequestHandler) ListMine(c *gin.Context) {
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

	page, err := h.requestService.ListForDriver(c.Request.Context(), driverID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, toSettlementRequestResponses(page.Items), page.Total, page.Page, page.PageSize)
}
