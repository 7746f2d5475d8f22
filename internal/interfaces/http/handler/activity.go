package handler

import (
	"time"

	appactivity "github.com/fleetrent/backend/internal/application/activity"
	"github.com/fleetrent/backend/internal/domain/activity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ActivityHandler handles audit trail API endpoints
type ActivityHandler struct {
	BaseHandler
	activityService *appactivity.Service
}

// NewActivityHandler creates a new ActivityHandler
func NewActivityHandler(activityService *appactivity.Service) *ActivityHandler {
	return &ActivityHandler{
		activityService: activityService,
	}
}

// ActivityEntryResponse represents an audit line in API responses
type ActivityEntryResponse struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	ActorID     *uuid.UUID      `json:"actor_id,omitempty"`
	ActorName   string          `json:"actor_name,omitempty"`
	SubjectID   *uuid.UUID      `json:"subject_id,omitempty"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

func toActivityEntryResponse(e *activity.Entry) ActivityEntryResponse {
	return ActivityEntryResponse{
		ID:          e.ID,
		Type:        string(e.Type),
		ActorID:     e.ActorID,
		ActorName:   e.ActorName,
		SubjectID:   e.SubjectID,
		Description: e.Description,
		Amount:      e.Amount,
		OccurredAt:  e.OccurredAt,
	}
}

// List returns the audit trail, newest first (admin)
func (h *ActivityHandler) List(c *gin.Context) {
	filter, err := listFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var entryType *activity.EntryType
	if t := c.Query("type"); t != "" {
		parsed := activity.EntryType(t)
		entryType = &parsed
	}

	page, err := h.activityService.List(c.Request.Context(), entryType, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]ActivityEntryResponse, len(page.Items))
	for i := range page.Items {
		out[i] = toActivityEntryResponse(&page.Items[i])
	}
	h.SuccessWithMeta(c, out, page.Total, page.Page, page.PageSize)
}

// ListByActor returns the audit trail of a single user (admin)
func (h *ActivityHandler) ListByActor(c *gin.Context) {
	actorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid actor ID")
		return
	}

	filter, err := listFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.activityService.ListByActor(c.Request.Context(), actorID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]ActivityEntryResponse, len(page.Items))
	for i := range page.Items {
		out[i] = toActivityEntryResponse(&page.Items[i])
	}
	h.SuccessWithMeta(c, out, page.Total, page.Page, page.PageSize)
}
