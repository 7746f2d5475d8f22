package handler

import (
	"io"

	appbilling "github.com/fleetrent/backend/internal/application/billing"
	"github.com/gin-gonic/gin"
)

// maxCallbackBody caps webhook payload size
const maxCallbackBody = 1 << 20

// GatewayHandler handles payment gateway webhook endpoints
type GatewayHandler struct {
	BaseHandler
	callbackService *appbilling.GatewayCallbackService
}

// NewGatewayHandler creates a new GatewayHandler
func NewGatewayHandler(callbackService *appbilling.GatewayCallbackService) *GatewayHandler {
	return &GatewayHandler{
		callbackService: callbackService,
	}
}

// Callback receives a gateway transaction notification.
// The provider retries non-2xx deliveries, so unknown references and repeat
// notifications still answer 200. Only a bad signature gets a 401, and a
// malformed payload a 400.
func (h *GatewayHandler) Callback(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBody))
	if err != nil {
		h.BadRequest(c, "Unable to read request body")
		return
	}

	result, err := h.callbackService.HandleCallback(c.Request.Context(), payload)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
