package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/vanhub/pkg/api/types"
	"github.com/urmzd/vanhub/pkg/dispatch"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	intake *dispatch.Intake
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(intake *dispatch.Intake) *HealthHandler {
	return &HealthHandler{intake: intake}
}

// Health handles GET /health
// @Summary      Health check
// @Description  Returns the hub status, the number of configured devices and the mailbox state
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse  "Service is healthy"
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, types.HealthResponse{
		Status:    "healthy",
		Devices:   h.intake.Registry().Len(),
		Mailbox:   h.intake.Mailbox().Kind.String(),
		Timestamp: time.Now(),
	})
}
