package handler

import (
	"time"

	appbilling "github.com/fleetrent/backend/internal/application/billing"
	"github.com/gin-gonic/gin"
)

// GenerationHandler exposes the debt generation trigger for external cron
// callers. The route is mounted behind the cron-secret guard, not JWT.
type GenerationHandler struct {
	BaseHandler
	generationService *appbilling.DebtGenerationService
}

// NewGenerationHandler creates a new GenerationHandler
func NewGenerationHandler(generationService *appbilling.DebtGenerationService) *GenerationHandler {
	return &GenerationHandler{
		generationService: generationService,
	}
}

// TriggerGenerationRequest optionally pins the run to a specific day.
// When omitted the server's current date is used.
type TriggerGenerationRequest struct {
	Date string `json:"date,omitempty" binding:"omitempty,datetime=2006-01-02"`
}

// Trigger runs debt generation for the requested day. The run is
// idempotent, so retried cron deliveries are harmless.
func (h *GenerationHandler) Trigger(c *gin.Context) {
	var req TriggerGenerationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, "Invalid request body, expected {\"date\": \"YYYY-MM-DD\"}")
			return
		}
	}

	referenceDate := time.Now()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			h.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
			return
		}
		referenceDate = parsed
	}

	result, err := h.generationService.GenerateDailyDebts(c.Request.Context(), referenceDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
