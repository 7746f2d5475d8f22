package handler

import (
	"time"

	appfleet "github.com/fleetrent/backend/internal/application/fleet"
	"github.com/fleetrent/backend/internal/domain/fleet"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VehicleHandler handles fleet inventory API endpoints
type VehicleHandler struct {
	BaseHandler
	vehicleService *appfleet.VehicleService
}

// NewVehicleHandler creates a new VehicleHandler
func NewVehicleHandler(vehicleService *appfleet.VehicleService) *VehicleHandler {
	return &VehicleHandler{
		vehicleService: vehicleService,
	}
}

// CreateVehicleRequest represents a request to register a vehicle
type CreateVehicleRequest struct {
	Plate     string  `json:"plate" binding:"required,min=1,max=20"`
	Brand     string  `json:"brand" binding:"max=100"`
	Model     string  `json:"model" binding:"max=100"`
	Year      int     `json:"year" binding:"omitempty,min=1950,max=2100"`
	DailyRate *string `json:"daily_rate"`
	Notes     string  `json:"notes" binding:"max=500"`
}

// UpdateVehicleRequest represents a request to update a vehicle
type UpdateVehicleRequest struct {
	Brand     *string `json:"brand" binding:"omitempty,max=100"`
	Model     *string `json:"model" binding:"omitempty,max=100"`
	Year      *int    `json:"year" binding:"omitempty,min=1950,max=2100"`
	DailyRate *string `json:"daily_rate"`
	Status    *string `json:"status" binding:"omitempty,oneof=active maintenance retired"`
	Notes     *string `json:"notes" binding:"omitempty,max=500"`
}

// VehicleResponse represents a vehicle in API responses
type VehicleResponse struct {
	ID        uuid.UUID       `json:"id"`
	Plate     string          `json:"plate"`
	Brand     string          `json:"brand,omitempty"`
	Model     string          `json:"model,omitempty"`
	Year      int             `json:"year,omitempty"`
	DailyRate decimal.Decimal `json:"daily_rate"`
	Status    string          `json:"status"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func toVehicleResponse(v *fleet.Vehicle) VehicleResponse {
	return VehicleResponse{
		ID:        v.ID,
		Plate:     v.Plate,
		Brand:     v.Brand,
		Model:     v.Model,
		Year:      v.Year,
		DailyRate: v.DailyRate,
		Status:    string(v.Status),
		Notes:     v.Notes,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

// Create registers a new vehicle (admin)
func (h *VehicleHandler) Create(c *gin.Context) {
	var req CreateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	input := appfleet.CreateVehicleInput{
		Plate: req.Plate,
		Brand: req.Brand,
		Model: req.Model,
		Year:  req.Year,
		Notes: req.Notes,
	}
	if req.DailyRate != nil {
		rate, err := valueobject.NewMoneyCOPFromString(*req.DailyRate)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		input.DailyRate = &rate
	}

	vehicle, err := h.vehicleService.Create(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toVehicleResponse(vehicle))
}

// Get returns a single vehicle by ID (admin)
func (h *VehicleHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid vehicle ID")
		return
	}

	vehicle, err := h.vehicleService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toVehicleResponse(vehicle))
}

// List returns vehicles ordered by plate (admin)
func (h *VehicleHandler) List(c *gin.Context) {
	filter, err := listFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var status *fleet.VehicleStatus
	if s := c.Query("status"); s != "" {
		vs := fleet.VehicleStatus(s)
		status = &vs
	}

	page, err := h.vehicleService.List(c.Request.Context(), status, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]VehicleResponse, len(page.Items))
	for i := range page.Items {
		out[i] = toVehicleResponse(&page.Items[i])
	}
	h.SuccessWithMeta(c, out, page.Total, page.Page, page.PageSize)
}

// Update changes a vehicle's details or status (admin)
func (h *VehicleHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid vehicle ID")
		return
	}

	var req UpdateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	input := appfleet.UpdateVehicleInput{
		Brand: req.Brand,
		Model: req.Model,
		Year:  req.Year,
		Notes: req.Notes,
	}
	if req.DailyRate != nil {
		rate, err := valueobject.NewMoneyCOPFromString(*req.DailyRate)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		input.DailyRate = &rate
	}
	if req.Status != nil {
		status := fleet.VehicleStatus(*req.Status)
		input.Status = &status
	}

	vehicle, err := h.vehicleService.Update(c.Request.Context(), id, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toVehicleResponse(vehicle))
}

// Retire takes a vehicle out of service (admin)
func (h *VehicleHandler) Retire(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid vehicle ID")
		return
	}

	if err := h.vehicleService.Retire(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
