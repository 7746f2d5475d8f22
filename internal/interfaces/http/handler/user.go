package handler

import (
	"time"

	appidentity "github.com/fleetrent/backend/internal/application/identity"
	"github.com/fleetrent/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserHandler handles account management API endpoints
type UserHandler struct {
	BaseHandler
	userService *appidentity.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService *appidentity.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// CreateUserRequest represents a request to create an account
type CreateUserRequest struct {
	Username    string  `json:"username" binding:"required,min=3,max=100"`
	Password    string  `json:"password" binding:"required,min=8,max=100"`
	Role        string  `json:"role" binding:"required,oneof=admin driver"`
	DisplayName string  `json:"display_name" binding:"max=200"`
	Phone       string  `json:"phone" binding:"max=50"`
	VehicleID   *string `json:"vehicle_id" binding:"omitempty,uuid"`
}

// UpdateUserRequest represents a request to update an account profile
type UpdateUserRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=200"`
	Phone       *string `json:"phone" binding:"omitempty,max=50"`
	Password    *string `json:"password" binding:"omitempty,min=8,max=100"`
}

// AssignVehicleRequest represents a driver-vehicle assignment
type AssignVehicleRequest struct {
	VehicleID string `json:"vehicle_id" binding:"required,uuid"`
}

// UserResponse represents an account in API responses
type UserResponse struct {
	ID                uuid.UUID  `json:"id"`
	Username          string     `json:"username"`
	DisplayName       string     `json:"display_name,omitempty"`
	Phone             string     `json:"phone,omitempty"`
	Role              string     `json:"role"`
	Status            string     `json:"status"`
	AssignedVehicleID *uuid.UUID `json:"assigned_vehicle_id,omitempty"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func toUserResponse(u *identity.User) UserResponse {
	return UserResponse{
		ID:                u.ID,
		Username:          u.Username,
		DisplayName:       u.DisplayName,
		Phone:             u.Phone,
		Role:              string(u.Role),
		Status:            string(u.Status),
		AssignedVehicleID: u.AssignedVehicleID,
		LastLoginAt:       u.LastLoginAt,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

// Create registers a new account (admin)
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	input := appidentity.CreateUserInput{
		Username:    req.Username,
		Password:    req.Password,
		Role:        identity.Role(req.Role),
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
	}
	if req.VehicleID != nil {
		vehicleID := uuid.MustParse(*req.VehicleID)
		input.VehicleID = &vehicleID
	}

	user, err := h.userService.Create(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toUserResponse(user))
}

// Get returns a single account by ID (admin)
func (h *UserHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	user, err := h.userService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toUserResponse(user))
}

// List returns accounts, optionally filtered by role (admin)
func (h *UserHandler) List(c *gin.Context) {
	filter, err := listFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var role *identity.Role
	if r := c.Query("role"); r != "" {
		parsed := identity.Role(r)
		if !parsed.IsValid() {
			h.BadRequest(c, "Unknown role filter")
			return
		}
		role = &parsed
	}

	page, err := h.userService.List(c.Request.Context(), role, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]UserResponse, len(page.Items))
	for i := range page.Items {
		out[i] = toUserResponse(&page.Items[i])
	}
	h.SuccessWithMeta(c, out, page.Total, page.Page, page.PageSize)
}

// Update changes an account's profile (admin)
func (h *UserHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	user, err := h.userService.Update(c.Request.Context(), id, appidentity.UpdateUserInput{
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
		Password:    req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toUserResponse(user))
}

// AssignVehicle links a driver to a vehicle for daily debt generation (admin)
func (h *UserHandler) AssignVehicle(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	var req AssignVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "A vehicle ID is required")
		return
	}

	user, err := h.userService.AssignVehicle(c.Request.Context(), id, uuid.MustParse(req.VehicleID))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toUserResponse(user))
}

// UnassignVehicle benches a driver; no further debts are generated for them (admin)
func (h *UserHandler) UnassignVehicle(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	user, err := h.userService.UnassignVehicle(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toUserResponse(user))
}

// Deactivate disables an account (admin)
func (h *UserHandler) Deactivate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	if err := h.userService.Deactivate(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// MyVehicle returns the vehicle assigned to the authenticated driver
func (h *UserHandler) MyVehicle(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	vehicle, err := h.userService.AssignedVehicle(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toVehicleResponse(vehicle))
}
