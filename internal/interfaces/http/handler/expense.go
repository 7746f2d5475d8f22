package handler

import (
	"time"

	appexpense "github.com/fleetrent/backend/internal/application/expense"
	"github.com/fleetrent/backend/internal/domain/expense"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseHandler handles fleet expense API endpoints
type ExpenseHandler struct {
	BaseHandler
	expenseService *appexpense.Service
}

// NewExpenseHandler creates a new ExpenseHandler
func NewExpenseHandler(expenseService *appexpense.Service) *ExpenseHandler {
	return &ExpenseHandler{
		expenseService: expenseService,
	}
}

// CreateExpenseRequest represents a request to record an expense
type CreateExpenseRequest struct {
	Concept    string     `json:"concept" binding:"required,min=1,max=200"`
	Category   string     `json:"category" binding:"required,oneof=maintenance fuel insurance paperwork other"`
	Amount     string     `json:"amount" binding:"required"`
	VehicleID  *string    `json:"vehicle_id" binding:"omitempty,uuid"`
	IncurredAt *time.Time `json:"incurred_at"`
	Notes      string     `json:"notes" binding:"max=500"`
}

// ExpenseResponse represents an expense in API responses
type ExpenseResponse struct {
	ID         uuid.UUID       `json:"id"`
	Concept    string          `json:"concept"`
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	VehicleID  *uuid.UUID      `json:"vehicle_id,omitempty"`
	IncurredAt time.Time       `json:"incurred_at"`
	Notes      string          `json:"notes,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

func toExpenseResponse(e *expense.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:         e.ID,
		Concept:    e.Concept,
		Category:   string(e.Category),
		Amount:     e.Amount,
		VehicleID:  e.VehicleID,
		IncurredAt: e.IncurredAt,
		Notes:      e.Notes,
		CreatedAt:  e.CreatedAt,
	}
}

// Create records a fleet operating expense (admin)
func (h *ExpenseHandler) Create(c *gin.Context) {
	var req CreateExpenseRequest
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

	incurredAt := time.Now()
	if req.IncurredAt != nil {
		incurredAt = *req.IncurredAt
	}

	input := appexpense.CreateExpenseInput{
		Concept:    req.Concept,
		Category:   expense.Category(req.Category),
		Amount:     amount,
		IncurredAt: incurredAt,
		Notes:      req.Notes,
	}
	if req.VehicleID != nil {
		vehicleID := uuid.MustParse(*req.VehicleID)
		input.VehicleID = &vehicleID
	}

	created, err := h.expenseService.Create(c.Request.Context(), adminID, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toExpenseResponse(created))
}

// Get returns a single expense by ID (admin)
func (h *ExpenseHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid expense ID")
		return
	}

	found, err := h.expenseService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toExpenseResponse(found))
}

// List returns expenses, optionally filtered by category and date range (admin)
func (h *ExpenseHandler) List(c *gin.Context) {
	filter, err := listFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var category *expense.Category
	if cat := c.Query("category"); cat != "" {
		parsed := expense.Category(cat)
		if !parsed.IsValid() {
			h.BadRequest(c, "Unknown expense category")
			return
		}
		category = &parsed
	}

	var from, to *time.Time
	if f := c.Query("from"); f != "" {
		parsed, err := time.Parse("2006-01-02", f)
		if err != nil {
			h.BadRequest(c, "Invalid from date, expected YYYY-MM-DD")
			return
		}
		from = &parsed
	}
	if t := c.Query("to"); t != "" {
		parsed, err := time.Parse("2006-01-02", t)
		if err != nil {
			h.BadRequest(c, "Invalid to date, expected YYYY-MM-DD")
			return
		}
		to = &parsed
	}

	page, err := h.expenseService.List(c.Request.Context(), category, from, to, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]ExpenseResponse, len(page.Items))
	for i := range page.Items {
		out[i] = toExpenseResponse(&page.Items[i])
	}
	h.SuccessWithMeta(c, out, page.Total, page.Page, page.PageSize)
}

// Delete removes an expense record (admin)
func (h *ExpenseHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid expense ID")
		return
	}

	if err := h.expenseService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
